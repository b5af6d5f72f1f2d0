package mapper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/externalmodel"
	"portfoliotracker/src/model"
)

var ErrEmptyValue = errors.New("value is empty")

// FieldError reports the field of a raw record that could not be parsed.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s (%q): %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// MapRawTransaction converts one exported CoinGecko record into a transaction
// candidate for the given pair. ID is left zero; the caller assigns it.
func MapRawTransaction(raw externalmodel.RawTransaction, portfolioID int64, assetID string) (model.Transaction, error) {
	txType, err := model.ParseTxType(raw.TransactionType)
	if err != nil {
		return model.Transaction{}, &FieldError{Field: "transaction_type", Value: raw.TransactionType, Err: err}
	}

	quantity, err := ParseAmount("quantity", raw.Quantity)
	if err != nil {
		return model.Transaction{}, err
	}

	price, err := ParseAmount("price", raw.Price)
	if err != nil {
		return model.Transaction{}, err
	}

	fees := decimal.Zero
	if strings.TrimSpace(raw.Fees) != "" {
		fees, err = ParseAmount("fees", raw.Fees)
		if err != nil {
			return model.Transaction{}, err
		}
	}

	currency, err := ParseCurrency(raw.Currency)
	if err != nil {
		return model.Transaction{}, err
	}

	executedAt, err := ParseTimestamp("transaction_timestamp", raw.TransactionTimestamp)
	if err != nil {
		return model.Transaction{}, err
	}

	tx := model.Transaction{
		PortfolioID: portfolioID,
		AssetID:     assetID,
		TxType:      txType,
		Quantity:    quantity,
		Price:       price,
		Fees:        fees,
		Currency:    currency,
		ExecutedAt:  executedAt,
		Notes:       normalizeNotes(raw.Notes),
	}
	if id := raw.ID.String(); id != "" {
		tx.ExternalID = &id
	}

	logger.WithFields(map[string]interface{}{
		"mapper":      "MapRawTransaction",
		"external_id": raw.ID.String(),
		"tx_type":     txType,
	}).Debug("Raw transaction mapped")

	return tx, nil
}

// ParseAmount parses a non negative decimal.
func ParseAmount(field, value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, &FieldError{Field: field, Value: value, Err: ErrEmptyValue}
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, &FieldError{Field: field, Value: value, Err: err}
	}
	if d.IsNegative() {
		return decimal.Zero, &FieldError{Field: field, Value: value, Err: errors.New("must not be negative")}
	}
	return d, nil
}

// ParseCurrency validates an ISO 4217 code and returns it lowercased.
func ParseCurrency(value string) (string, error) {
	code := strings.TrimSpace(value)
	if code == "" {
		return "", &FieldError{Field: "currency", Value: value, Err: ErrEmptyValue}
	}
	if money.GetCurrency(strings.ToUpper(code)) == nil {
		return "", &FieldError{Field: "currency", Value: value, Err: errors.New("unknown currency code")}
	}
	return strings.ToLower(code), nil
}

// ParseTimestamp parses an RFC3339 timestamp and normalizes it to UTC.
func ParseTimestamp(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, &FieldError{Field: field, Value: value, Err: ErrEmptyValue}
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, &FieldError{Field: field, Value: value, Err: err}
	}
	return ts.UTC(), nil
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
