package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/auth"
	"portfoliotracker/src/externalmodel"
	"portfoliotracker/src/mapper"
	"portfoliotracker/src/model"
	"portfoliotracker/src/response"
)

// recordTransactionPayload uses the export field names so manual entries
// go through the same mapper as imported ones.
type recordTransactionPayload struct {
	AssetID              string  `json:"asset_id"`
	TransactionType      string  `json:"transaction_type"`
	Currency             string  `json:"currency"`
	Quantity             string  `json:"quantity"`
	Price                string  `json:"price"`
	TransactionTimestamp string  `json:"transaction_timestamp"`
	Fees                 string  `json:"fees"`
	Notes                *string `json:"notes"`
}

type amendTransactionPayload struct {
	TransactionType      *string `json:"transaction_type"`
	Currency             *string `json:"currency"`
	Quantity             *string `json:"quantity"`
	Price                *string `json:"price"`
	TransactionTimestamp *string `json:"transaction_timestamp"`
	Fees                 *string `json:"fees"`
	Notes                *string `json:"notes"`
}

type transactionResult struct {
	Transaction model.Transaction      `json:"transaction"`
	Snapshot    model.PositionSnapshot `json:"snapshot"`
}

type TransactionHandlers struct {
	Portfolios   portfolioStore
	Assets       assetStore
	Transactions transactionReader
	Ledger       ledgerWriter
}

// ListForPair returns the transactions of one portfolio position.
func (h *TransactionHandlers) ListForPair() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portfolio, ok := ownedPortfolio(w, r, h.Portfolios)
		if !ok {
			return
		}
		assetID := chi.URLParam(r, "assetId")

		txs, err := h.Transactions.ListByPair(r.Context(), portfolio.ID, assetID)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "ListForPair", "portfolio_id": portfolio.ID, "asset_id": assetID})
			return
		}
		if txs == nil {
			txs = []model.Transaction{}
		}
		response.OK(w, txs)
	}
}

func (h *TransactionHandlers) Record() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portfolio, ok := ownedPortfolio(w, r, h.Portfolios)
		if !ok {
			return
		}

		var payload recordTransactionPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		assetID := strings.TrimSpace(payload.AssetID)
		asset, err := h.Assets.FindByID(r.Context(), assetID)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "RecordTransaction", "asset_id": assetID})
			return
		}
		if asset == nil {
			response.Error(w, http.StatusNotFound, "Asset not found")
			return
		}

		tx, err := mapper.MapRawTransaction(externalmodel.RawTransaction{
			TransactionType:      payload.TransactionType,
			Currency:             payload.Currency,
			Quantity:             payload.Quantity,
			Price:                payload.Price,
			TransactionTimestamp: payload.TransactionTimestamp,
			Fees:                 payload.Fees,
			Notes:                payload.Notes,
		}, portfolio.ID, asset.ID)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "RecordTransaction"})
			return
		}

		saved, snapshot, err := h.Ledger.Record(r.Context(), tx)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "RecordTransaction", "portfolio_id": portfolio.ID, "asset_id": asset.ID})
			return
		}
		response.JSON(w, http.StatusCreated, transactionResult{Transaction: saved, Snapshot: snapshot})
	}
}

func (h *TransactionHandlers) Amend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid transaction id")
			return
		}

		var payload amendTransactionPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		update, err := payload.toUpdate()
		if err != nil {
			writeError(w, err, logger.Fields{"op": "AmendTransaction", "transaction_id": id})
			return
		}
		if update.IsEmpty() {
			response.Error(w, http.StatusBadRequest, "Nothing to update")
			return
		}

		current, err := h.Transactions.FindByID(r.Context(), id)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "AmendTransaction", "transaction_id": id})
			return
		}
		if current == nil {
			response.Error(w, http.StatusNotFound, "Transaction not found")
			return
		}
		if _, ok := checkOwner(w, r, h.Portfolios, userID, current.PortfolioID); !ok {
			return
		}

		saved, snapshot, err := h.Ledger.Amend(r.Context(), id, update)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "AmendTransaction", "transaction_id": id})
			return
		}
		response.OK(w, transactionResult{Transaction: saved, Snapshot: snapshot})
	}
}

func (p amendTransactionPayload) toUpdate() (model.TransactionUpdate, error) {
	var update model.TransactionUpdate

	if p.TransactionType != nil {
		txType, err := model.ParseTxType(*p.TransactionType)
		if err != nil {
			return update, &mapper.FieldError{Field: "transaction_type", Value: *p.TransactionType, Err: err}
		}
		update.TxType = &txType
	}
	if p.Currency != nil {
		currency, err := mapper.ParseCurrency(*p.Currency)
		if err != nil {
			return update, err
		}
		update.Currency = &currency
	}
	if p.Quantity != nil {
		quantity, err := mapper.ParseAmount("quantity", *p.Quantity)
		if err != nil {
			return update, err
		}
		update.Quantity = &quantity
	}
	if p.Price != nil {
		price, err := mapper.ParseAmount("price", *p.Price)
		if err != nil {
			return update, err
		}
		update.Price = &price
	}
	if p.Fees != nil {
		fees, err := mapper.ParseAmount("fees", *p.Fees)
		if err != nil {
			return update, err
		}
		update.Fees = &fees
	}
	if p.TransactionTimestamp != nil {
		executedAt, err := mapper.ParseTimestamp("transaction_timestamp", *p.TransactionTimestamp)
		if err != nil {
			return update, err
		}
		update.ExecutedAt = &executedAt
	}
	if p.Notes != nil {
		notes := strings.TrimSpace(*p.Notes)
		update.Notes = &notes
	}
	return update, nil
}
