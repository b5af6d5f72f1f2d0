package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"portfoliotracker/src/externalmodel"
	"portfoliotracker/src/ledger"
	"portfoliotracker/src/model"
	"portfoliotracker/src/repository"
)

type idGenerator interface {
	Generate() (int64, error)
}

type userStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type sessionCreator interface {
	Create(ctx context.Context, session *model.UserSession) error
}

type tokenIssuer interface {
	Issue(session model.UserSession) (string, error)
	TTL() time.Duration
}

type portfolioStore interface {
	Create(ctx context.Context, portfolio *model.Portfolio) error
	FindByID(ctx context.Context, id int64) (*model.Portfolio, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Portfolio, error)
}

type assetStore interface {
	Create(ctx context.Context, asset *model.Asset) error
	FindByID(ctx context.Context, id string) (*model.Asset, error)
	Search(ctx context.Context, options repository.AssetSearchOptions) ([]model.Asset, int64, error)
}

type coinDataFetcher interface {
	GetCoinData(ctx context.Context, coinID string) (*externalmodel.CoinDataResponse, error)
}

type transactionReader interface {
	ListByPair(ctx context.Context, portfolioID int64, assetID string) ([]model.Transaction, error)
	FindByID(ctx context.Context, id int64) (*model.Transaction, error)
}

type ledgerWriter interface {
	Reconcile(ctx context.Context, portfolioID int64, assetID string, raws []externalmodel.RawTransaction) (ledger.ReconcileSummary, error)
	Record(ctx context.Context, tx model.Transaction) (model.Transaction, model.PositionSnapshot, error)
	Amend(ctx context.Context, id int64, update model.TransactionUpdate) (model.Transaction, model.PositionSnapshot, error)
}

var errInvalidID = errors.New("invalid id")

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
