package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/auth"
	"portfoliotracker/src/externalmodel"
	"portfoliotracker/src/ledger"
	"portfoliotracker/src/response"
)

type coinGeckoImportPayload struct {
	PortfolioID  int64                          `json:"portfolio_id,string"`
	CoinID       string                         `json:"coin_id"`
	Transactions []externalmodel.RawTransaction `json:"transactions"`
}

type importResult struct {
	PortfolioID int64  `json:"portfolio_id,string"`
	AssetID     string `json:"asset_id"`
	ledger.ReconcileSummary
}

type ImportHandlers struct {
	Portfolios portfolioStore
	Assets     *AssetHandlers
	Ledger     ledgerWriter
}

// CoinGeckoTransactions reconciles a CoinGecko portfolio export into the
// caller's portfolio. Re-importing the same export changes nothing.
func (h *ImportHandlers) CoinGeckoTransactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var payload coinGeckoImportPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid import payload")
			response.Error(w, http.StatusBadRequest, "Invalid payload")
			return
		}
		coinID := strings.ToLower(strings.TrimSpace(payload.CoinID))
		if coinID == "" {
			response.Error(w, http.StatusBadRequest, "coin_id is required")
			return
		}

		portfolio, ok := checkOwner(w, r, h.Portfolios, userID, payload.PortfolioID)
		if !ok {
			return
		}

		fields := logger.Fields{
			"op":           "ImportCoinGecko",
			"portfolio_id": portfolio.ID,
			"coin_id":      coinID,
			"records":      len(payload.Transactions),
		}

		asset, err := h.Assets.ensureCrypto(r, coinID)
		if err != nil {
			writeError(w, err, fields)
			return
		}

		summary, err := h.Ledger.Reconcile(r.Context(), portfolio.ID, asset.ID, payload.Transactions)
		if err != nil {
			writeError(w, err, fields)
			return
		}

		logger.WithFields(fields).WithFields(logger.Fields{
			"inserted": summary.Inserted,
			"updated":  summary.Updated,
		}).Info("CoinGecko import reconciled")

		response.OK(w, importResult{
			PortfolioID:      portfolio.ID,
			AssetID:          asset.ID,
			ReconcileSummary: summary,
		})
	}
}

func (h *ImportHandlers) CoinData() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coinID := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "coinId")))
		if coinID == "" {
			response.Error(w, http.StatusBadRequest, "coin id is required")
			return
		}

		coin, err := h.Assets.Coins.GetCoinData(r.Context(), coinID)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "CoinData", "coin_id": coinID})
			return
		}
		response.OK(w, coin)
	}
}
