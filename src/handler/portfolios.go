package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/auth"
	"portfoliotracker/src/model"
	"portfoliotracker/src/response"
	"portfoliotracker/src/stream"
)

type createPortfolioPayload struct {
	Name string `json:"name"`
}

type PortfolioHandlers struct {
	Portfolios   portfolioStore
	IDs          idGenerator
	Hub          *stream.Hub
	StreamConfig stream.Config
}

func (h *PortfolioHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var payload createPortfolioPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid payload")
			return
		}
		name := strings.TrimSpace(payload.Name)
		if name == "" {
			response.Error(w, http.StatusBadRequest, "Name is required")
			return
		}

		id, err := h.IDs.Generate()
		if err != nil {
			writeError(w, err, logger.Fields{"op": "CreatePortfolio", "user_id": userID})
			return
		}

		portfolio := &model.Portfolio{ID: id, OwnerID: userID, Name: name}
		if err := h.Portfolios.Create(r.Context(), portfolio); err != nil {
			writeError(w, err, logger.Fields{"op": "CreatePortfolio", "user_id": userID})
			return
		}
		response.JSON(w, http.StatusCreated, portfolio)
	}
}

func (h *PortfolioHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		portfolios, err := h.Portfolios.ListByOwner(r.Context(), userID)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "ListPortfolios", "user_id": userID})
			return
		}
		if portfolios == nil {
			portfolios = []model.Portfolio{}
		}
		response.OK(w, portfolios)
	}
}

func (h *PortfolioHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portfolio, ok := ownedPortfolio(w, r, h.Portfolios)
		if !ok {
			return
		}
		response.OK(w, portfolio)
	}
}

// Stream upgrades to a websocket that receives the portfolio's snapshots.
func (h *PortfolioHandlers) Stream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portfolio, ok := ownedPortfolio(w, r, h.Portfolios)
		if !ok {
			return
		}
		stream.Serve(w, r, h.Hub, portfolio.ID, h.StreamConfig)
	}
}

// ownedPortfolio loads the {id} portfolio and checks that the caller owns it.
// It writes the error response itself and returns false on failure.
func ownedPortfolio(w http.ResponseWriter, r *http.Request, portfolios portfolioStore) (*model.Portfolio, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	id, err := idParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid portfolio id")
		return nil, false
	}

	return checkOwner(w, r, portfolios, userID, id)
}

func checkOwner(w http.ResponseWriter, r *http.Request, portfolios portfolioStore, userID, portfolioID int64) (*model.Portfolio, bool) {
	portfolio, err := portfolios.FindByID(r.Context(), portfolioID)
	if err != nil {
		writeError(w, err, logger.Fields{"op": "checkOwner", "portfolio_id": portfolioID})
		return nil, false
	}
	if portfolio == nil {
		response.Error(w, http.StatusNotFound, "Portfolio not found")
		return nil, false
	}
	if portfolio.OwnerID != userID {
		logger.WithFields(logger.Fields{
			"portfolio_id": portfolioID,
			"user_id":      userID,
		}).Warn("portfolio owner mismatch")
		response.Error(w, http.StatusForbidden, "Portfolio does not belong to the user")
		return nil, false
	}
	return portfolio, true
}
