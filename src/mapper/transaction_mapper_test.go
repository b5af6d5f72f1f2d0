package mapper

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliotracker/src/externalmodel"
	"portfoliotracker/src/model"
)

func validRaw() externalmodel.RawTransaction {
	notes := "  first buy "
	return externalmodel.RawTransaction{
		ID:                   "abc",
		TransactionType:      "Buy",
		Currency:             "USD",
		Quantity:             "1.25",
		Price:                "64000.5",
		TransactionTimestamp: "2024-03-01T10:15:00+07:00",
		Fees:                 "0.5",
		Notes:                &notes,
	}
}

func TestMapRawTransaction(t *testing.T) {
	tx, err := MapRawTransaction(validRaw(), 7, "CRYPTO_bitcoin")
	require.NoError(t, err)

	require.NotNil(t, tx.ExternalID)
	assert.Equal(t, "abc", *tx.ExternalID)
	assert.Equal(t, int64(7), tx.PortfolioID)
	assert.Equal(t, "CRYPTO_bitcoin", tx.AssetID)
	assert.Equal(t, model.TxTypeBuy, tx.TxType)
	assert.True(t, tx.Quantity.Equal(decimal.RequireFromString("1.25")))
	assert.True(t, tx.Price.Equal(decimal.RequireFromString("64000.5")))
	assert.True(t, tx.Fees.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, "usd", tx.Currency)
	assert.Equal(t, time.Date(2024, 3, 1, 3, 15, 0, 0, time.UTC), tx.ExecutedAt)
	require.NotNil(t, tx.Notes)
	assert.Equal(t, "first buy", *tx.Notes)
	assert.Zero(t, tx.ID)
}

func TestMapRawTransaction_TransferSpellings(t *testing.T) {
	cases := map[string]model.TxType{
		"transfer_in":  model.TxTypeTransferIn,
		"Transfer In":  model.TxTypeTransferIn,
		"transferin":   model.TxTypeTransferIn,
		"TRANSFER-OUT": model.TxTypeTransferOut,
		"sell":         model.TxTypeSell,
	}
	for input, want := range cases {
		raw := validRaw()
		raw.TransactionType = input
		tx, err := MapRawTransaction(raw, 1, "CRYPTO_eth")
		require.NoError(t, err, input)
		assert.Equal(t, want, tx.TxType, input)
	}
}

func TestMapRawTransaction_EmptyFeesDefaultToZero(t *testing.T) {
	raw := validRaw()
	raw.Fees = ""
	raw.ID = ""
	raw.Notes = nil

	tx, err := MapRawTransaction(raw, 1, "CRYPTO_eth")
	require.NoError(t, err)
	assert.True(t, tx.Fees.IsZero())
	assert.Nil(t, tx.ExternalID)
	assert.Nil(t, tx.Notes)
}

func TestMapRawTransaction_FieldErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*externalmodel.RawTransaction)
		field  string
	}{
		{"bad type", func(r *externalmodel.RawTransaction) { r.TransactionType = "stake" }, "transaction_type"},
		{"bad quantity", func(r *externalmodel.RawTransaction) { r.Quantity = "1,5" }, "quantity"},
		{"empty price", func(r *externalmodel.RawTransaction) { r.Price = " " }, "price"},
		{"negative fees", func(r *externalmodel.RawTransaction) { r.Fees = "-1" }, "fees"},
		{"unknown currency", func(r *externalmodel.RawTransaction) { r.Currency = "zzz" }, "currency"},
		{"bad timestamp", func(r *externalmodel.RawTransaction) { r.TransactionTimestamp = "01/03/2024" }, "transaction_timestamp"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := validRaw()
			tc.mutate(&raw)

			_, err := MapRawTransaction(raw, 1, "CRYPTO_eth")
			require.Error(t, err)

			var fieldErr *FieldError
			require.True(t, errors.As(err, &fieldErr))
			assert.Equal(t, tc.field, fieldErr.Field)
		})
	}
}

func TestParseCurrency(t *testing.T) {
	code, err := ParseCurrency(" VND ")
	require.NoError(t, err)
	assert.Equal(t, "vnd", code)

	_, err = ParseCurrency("")
	assert.ErrorIs(t, err, ErrEmptyValue)
}
