package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"portfoliotracker/src/connectors"
	"portfoliotracker/src/database"
	"portfoliotracker/src/idgen"
	"portfoliotracker/src/model"
	"portfoliotracker/src/security"
	"portfoliotracker/src/stream"
)

type envelope struct {
	Errors []struct {
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
	} `json:"errors"`
	Data json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver:          database.DriverSQLite,
		DatabaseURLMain: ":memory:",
		GormLogLevel:    1,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	coingecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/bitcoin" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":{"thumb":"https://img/thumb.png"}}`))
	}))
	t.Cleanup(coingecko.Close)

	ids, err := idgen.NewWithClock(1, idgen.SystemClock)
	require.NoError(t, err)

	services := &Services{
		DB:         db,
		IDs:        ids,
		Tokens:     security.NewTokenManager("server-test-secret", time.Hour),
		BcryptCost: bcrypt.MinCost,
		Coins:      connectors.NewCoinGeckoClient("", coingecko.URL, 5*time.Second, 1),
		Hub:        stream.NewHub(8),
		Stream:     stream.Config{SubscriberBuffer: 8, PingInterval: time.Second, WriteTimeout: time.Second},
		Origins:    []string{"https://app.example"},
	}
	return NewRouter(services.Dependencies())
}

func do(t *testing.T, router http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr, env
}

func TestRouter_PublicAndProtected(t *testing.T) {
	router := newTestRouter(t)

	rr, _ := do(t, router, http.MethodGet, "/healthcheck", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	rr, env := do(t, router, http.MethodGet, "/api/portfolios", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, http.StatusUnauthorized, env.Errors[0].StatusCode)

	rr, _ = do(t, router, http.MethodGet, "/api/portfolios", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_CORS(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/portfolios", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_ImportFlow(t *testing.T) {
	router := newTestRouter(t)

	rr, _ := do(t, router, http.MethodPost, "/auth/signup", "",
		`{"email":"dana@example.com","password":"correct-horse","name":"Dana"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, env := do(t, router, http.MethodPost, "/auth/login_with_password", "",
		`{"email":"dana@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var authResp model.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &authResp))
	token := authResp.Token

	rr, env = do(t, router, http.MethodGet, "/api/users/me", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Data), "dana@example.com")

	rr, env = do(t, router, http.MethodPost, "/api/portfolios", token, `{"name":"main"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var portfolio model.Portfolio
	require.NoError(t, json.Unmarshal(env.Data, &portfolio))
	pid := portfolio.ID
	pidText := strconv.FormatInt(pid, 10)

	body := `{"portfolio_id":"` + pidText + `","coin_id":"bitcoin","transactions":[` +
		`{"id":1,"transaction_type":"buy","currency":"usd","quantity":"2","price":"100","transaction_timestamp":"2024-01-01T00:00:00Z","fees":"0"},` +
		`{"id":2,"transaction_type":"buy","currency":"usd","quantity":"1","price":"400","transaction_timestamp":"2024-01-02T00:00:00Z","fees":""}]}`

	rr, env = do(t, router, http.MethodPost, "/api/imports/coingecko/transactions", token, body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var summary struct {
		AssetID  string                 `json:"asset_id"`
		Inserted int                    `json:"inserted"`
		Updated  int                    `json:"updated"`
		Snapshot model.PositionSnapshot `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "CRYPTO_bitcoin", summary.AssetID)
	assert.Equal(t, 2, summary.Inserted)
	assert.True(t, summary.Snapshot.HoldingAmount.Equal(decimal.NewFromInt(3)))
	assert.True(t, summary.Snapshot.TotalCost.Equal(decimal.NewFromInt(600)))
	assert.True(t, summary.Snapshot.AvgBuyPrice.Equal(decimal.NewFromInt(200)))

	// importing the same export again only overwrites in place
	rr, env = do(t, router, http.MethodPost, "/api/imports/coingecko/transactions", token, body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 2, summary.Updated)
	assert.True(t, summary.Snapshot.HoldingAmount.Equal(decimal.NewFromInt(3)))

	rr, env = do(t, router, http.MethodGet, "/api/portfolios/"+pidText+"/assets/CRYPTO_bitcoin/transactions", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var txs []model.Transaction
	require.NoError(t, json.Unmarshal(env.Data, &txs))
	assert.Len(t, txs, 2)

	rr, env = do(t, router, http.MethodGet, "/api/portfolios/"+pidText, token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(env.Data, &portfolio))
	require.Len(t, portfolio.Assets, 1)
	assert.Equal(t, "CRYPTO_bitcoin", portfolio.Assets[0].AssetID)
	assert.True(t, portfolio.Assets[0].Snapshot.HoldingAmount.Equal(decimal.NewFromInt(3)))
	require.NotNil(t, portfolio.Assets[0].Asset)
	assert.Equal(t, "BTC", portfolio.Assets[0].Asset.Symbol)

	rr, env = do(t, router, http.MethodGet, "/api/assets?asset_type=crypto", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	rr, _ = do(t, router, http.MethodPost, "/api/assets", token, `{"asset_type":"crypto","external_id":"bitcoin"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func signUp(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	rr, env := do(t, router, http.MethodPost, "/auth/signup", "",
		`{"email":"`+email+`","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var authResp model.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &authResp))
	return authResp.Token
}

func TestRouter_StreamReceivesRecordedSnapshot(t *testing.T) {
	router := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	token := signUp(t, router, "erin@example.com")
	other := signUp(t, router, "frank@example.com")

	rr, env := do(t, router, http.MethodPost, "/api/portfolios", token, `{"name":"main"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var portfolio model.Portfolio
	require.NoError(t, json.Unmarshal(env.Data, &portfolio))
	pidText := strconv.FormatInt(portfolio.ID, 10)

	rr, _ = do(t, router, http.MethodPost, "/api/assets", token, `{"asset_type":"crypto","external_id":"bitcoin"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/portfolios/" + pidText + "/stream?token="

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+other, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	rr, _ = do(t, router, http.MethodPost, "/api/portfolios/"+pidText+"/transactions", token,
		`{"asset_id":"CRYPTO_bitcoin","transaction_type":"buy","currency":"usd","quantity":"5","price":"10","transaction_timestamp":"2024-06-01T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event stream.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, portfolio.ID, event.PortfolioID)
	assert.Equal(t, "CRYPTO_bitcoin", event.AssetID)
	assert.True(t, event.Snapshot.HoldingAmount.Equal(decimal.NewFromInt(5)))
	assert.True(t, event.Snapshot.TotalCost.Equal(decimal.NewFromInt(50)))
}
