package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"portfoliotracker/src/auth"
	"portfoliotracker/src/connectors"
	"portfoliotracker/src/externalmodel"
	"portfoliotracker/src/ledger"
	"portfoliotracker/src/model"
	"portfoliotracker/src/repository"
	"portfoliotracker/src/security"
)

type envelope struct {
	UnixTime int64 `json:"unix_time"`
	Errors   []struct {
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
	} `json:"errors"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func asUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(auth.WithClaims(r.Context(), &security.Claims{UserID: userID, SessionID: 1}))
}

// serve routes a single request through chi so URL params resolve.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Method(method, pattern, h)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

type seqIDs struct {
	mu   sync.Mutex
	next int64
	err  error
}

func (g *seqIDs) Generate() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return 0, g.err
	}
	g.next++
	return g.next, nil
}

type fakeUsers struct {
	byID map[int64]*model.User
	err  error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*model.User{}}
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	for _, u := range f.byID {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeSessions struct {
	created []model.UserSession
}

func (f *fakeSessions) Create(_ context.Context, session *model.UserSession) error {
	f.created = append(f.created, *session)
	return nil
}

type fakePortfolios struct {
	byID map[int64]*model.Portfolio
}

func newFakePortfolios(portfolios ...model.Portfolio) *fakePortfolios {
	f := &fakePortfolios{byID: map[int64]*model.Portfolio{}}
	for i := range portfolios {
		p := portfolios[i]
		f.byID[p.ID] = &p
	}
	return f
}

func (f *fakePortfolios) Create(_ context.Context, portfolio *model.Portfolio) error {
	cp := *portfolio
	f.byID[portfolio.ID] = &cp
	return nil
}

func (f *fakePortfolios) FindByID(_ context.Context, id int64) (*model.Portfolio, error) {
	if p, ok := f.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePortfolios) ListByOwner(_ context.Context, ownerID int64) ([]model.Portfolio, error) {
	var out []model.Portfolio
	for _, p := range f.byID {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeAssets struct {
	byID    map[string]*model.Asset
	options repository.AssetSearchOptions
	total   int64
}

func newFakeAssets(assets ...model.Asset) *fakeAssets {
	f := &fakeAssets{byID: map[string]*model.Asset{}}
	for i := range assets {
		a := assets[i]
		f.byID[a.ID] = &a
	}
	return f
}

func (f *fakeAssets) Create(_ context.Context, asset *model.Asset) error {
	if _, ok := f.byID[asset.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *asset
	f.byID[asset.ID] = &cp
	return nil
}

func (f *fakeAssets) FindByID(_ context.Context, id string) (*model.Asset, error) {
	if a, ok := f.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAssets) Search(_ context.Context, options repository.AssetSearchOptions) ([]model.Asset, int64, error) {
	f.options = options
	var out []model.Asset
	for _, a := range f.byID {
		if options.AssetType == nil || a.AssetType == *options.AssetType {
			out = append(out, *a)
		}
	}
	return out, f.total, nil
}

type fakeCoins struct {
	coins map[string]externalmodel.CoinDataResponse
	err   error
	calls int
}

func (f *fakeCoins) GetCoinData(_ context.Context, coinID string) (*externalmodel.CoinDataResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	coin, ok := f.coins[coinID]
	if !ok {
		return nil, connectors.ErrCoinNotFound
	}
	return &coin, nil
}

type fakeTransactions struct {
	byID map[int64]*model.Transaction
}

func (f *fakeTransactions) ListByPair(_ context.Context, portfolioID int64, assetID string) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, tx := range f.byID {
		if tx.PortfolioID == portfolioID && tx.AssetID == assetID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (f *fakeTransactions) FindByID(_ context.Context, id int64) (*model.Transaction, error) {
	if tx, ok := f.byID[id]; ok {
		cp := *tx
		return &cp, nil
	}
	return nil, nil
}

type fakeLedger struct {
	reconciled []externalmodel.RawTransaction
	recorded   []model.Transaction
	amended    []model.TransactionUpdate
	summary    ledger.ReconcileSummary
	err        error
}

func (f *fakeLedger) Reconcile(_ context.Context, _ int64, _ string, raws []externalmodel.RawTransaction) (ledger.ReconcileSummary, error) {
	if f.err != nil {
		return ledger.ReconcileSummary{}, f.err
	}
	f.reconciled = append(f.reconciled, raws...)
	return f.summary, nil
}

func (f *fakeLedger) Record(_ context.Context, tx model.Transaction) (model.Transaction, model.PositionSnapshot, error) {
	if f.err != nil {
		return model.Transaction{}, model.PositionSnapshot{}, f.err
	}
	tx.ID = 900
	f.recorded = append(f.recorded, tx)
	return tx, model.PositionSnapshot{HoldingAmount: tx.Quantity}, nil
}

func (f *fakeLedger) Amend(_ context.Context, id int64, update model.TransactionUpdate) (model.Transaction, model.PositionSnapshot, error) {
	if f.err != nil {
		return model.Transaction{}, model.PositionSnapshot{}, f.err
	}
	f.amended = append(f.amended, update)
	return model.Transaction{ID: id}, model.PositionSnapshot{}, nil
}
