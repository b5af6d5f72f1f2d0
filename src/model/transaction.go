package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxTypeBuy         TxType = "buy"
	TxTypeSell        TxType = "sell"
	TxTypeTransferIn  TxType = "transfer_in"
	TxTypeTransferOut TxType = "transfer_out"
)

// ParseTxType accepts the canonical names plus the spellings used by import
// sources ("transferin", "Transfer In", "TRANSFER-OUT"...).
func ParseTxType(s string) (TxType, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("_", "", "-", "", " ", "").Replace(normalized)

	switch normalized {
	case "buy":
		return TxTypeBuy, nil
	case "sell":
		return TxTypeSell, nil
	case "transferin":
		return TxTypeTransferIn, nil
	case "transferout":
		return TxTypeTransferOut, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

func (t TxType) Valid() bool {
	switch t {
	case TxTypeBuy, TxTypeSell, TxTypeTransferIn, TxTypeTransferOut:
		return true
	}
	return false
}

// Transaction is one economic event against one asset inside one portfolio.
// ID, PortfolioID, AssetID and ExternalID never change after creation.
type Transaction struct {
	ID          int64           `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	ExternalID  *string         `gorm:"size:100;uniqueIndex:idx_tx_pair_external" json:"external_id,omitempty"`
	PortfolioID int64           `gorm:"not null;index:idx_tx_pair;uniqueIndex:idx_tx_pair_external" json:"portfolio_id,string"`
	AssetID     string          `gorm:"size:150;not null;index:idx_tx_pair;uniqueIndex:idx_tx_pair_external" json:"asset_id"`
	TxType      TxType          `gorm:"size:20;not null" json:"tx_type"`
	Quantity    decimal.Decimal `gorm:"type:numeric;not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric;not null" json:"price"`
	Fees        decimal.Decimal `gorm:"type:numeric;not null" json:"fees"`
	Currency    string          `gorm:"size:10;not null" json:"currency"`
	ExecutedAt  time.Time       `gorm:"not null" json:"executed_at"`
	Notes       *string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// TransactionUpdate carries the fields of a transaction that may be
// overwritten in place. Nil fields are left untouched, except Notes when
// ClearNotes is set: a nil Notes then resets the column to NULL.
type TransactionUpdate struct {
	TxType     *TxType          `json:"tx_type,omitempty"`
	Quantity   *decimal.Decimal `json:"quantity,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Fees       *decimal.Decimal `json:"fees,omitempty"`
	Currency   *string          `json:"currency,omitempty"`
	ExecutedAt *time.Time       `json:"executed_at,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
	ClearNotes bool             `json:"-"`
}

// UpdateFromTransaction builds an update that overwrites every mutable field
// with the values of t.
func UpdateFromTransaction(t Transaction) TransactionUpdate {
	return TransactionUpdate{
		TxType:     &t.TxType,
		Quantity:   &t.Quantity,
		Price:      &t.Price,
		Fees:       &t.Fees,
		Currency:   &t.Currency,
		ExecutedAt: &t.ExecutedAt,
		Notes:      t.Notes,
		ClearNotes: true,
	}
}

func (u TransactionUpdate) IsEmpty() bool {
	return u.TxType == nil && u.Quantity == nil && u.Price == nil && u.Fees == nil &&
		u.Currency == nil && u.ExecutedAt == nil && u.Notes == nil && !u.ClearNotes
}

// Columns returns the column map used for partial updates.
func (u TransactionUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.TxType != nil {
		cols["tx_type"] = *u.TxType
	}
	if u.Quantity != nil {
		cols["quantity"] = *u.Quantity
	}
	if u.Price != nil {
		cols["price"] = *u.Price
	}
	if u.Fees != nil {
		cols["fees"] = *u.Fees
	}
	if u.Currency != nil {
		cols["currency"] = *u.Currency
	}
	if u.ExecutedAt != nil {
		cols["executed_at"] = *u.ExecutedAt
	}
	if u.Notes != nil {
		cols["notes"] = *u.Notes
	} else if u.ClearNotes {
		cols["notes"] = nil
	}
	return cols
}

// Apply writes the non nil fields of u onto t.
func (u TransactionUpdate) Apply(t *Transaction) {
	if u.TxType != nil {
		t.TxType = *u.TxType
	}
	if u.Quantity != nil {
		t.Quantity = *u.Quantity
	}
	if u.Price != nil {
		t.Price = *u.Price
	}
	if u.Fees != nil {
		t.Fees = *u.Fees
	}
	if u.Currency != nil {
		t.Currency = *u.Currency
	}
	if u.ExecutedAt != nil {
		t.ExecutedAt = *u.ExecutedAt
	}
	if u.Notes != nil {
		notes := *u.Notes
		t.Notes = &notes
	} else if u.ClearNotes {
		t.Notes = nil
	}
}
