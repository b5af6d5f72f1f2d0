package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"portfoliotracker/src/handler"
)

// Dependencies are the handler groups and middleware a router serves.
type Dependencies struct {
	Authenticate func(http.Handler) http.Handler
	Checks       map[string]handler.Check
	AllowOrigins []string

	Auth         *handler.AuthHandlers
	Portfolios   *handler.PortfolioHandlers
	Assets       *handler.AssetHandlers
	Transactions *handler.TransactionHandlers
	Imports      *handler.ImportHandlers
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// === Global Middleware ===
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(deps.AllowOrigins))

	// Public routes
	r.Get("/healthcheck", handler.HealthcheckHandler(deps.Checks))
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", deps.Auth.SignUp())
		r.Post("/login_with_password", deps.Auth.LoginWithPassword())
	})

	// Protected routes
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.Authenticate)

		r.Get("/users/me", handler.MeHandler(deps.Auth.Users))
		r.Get("/users/{id}", handler.GetUserHandler(deps.Auth.Users))

		r.Route("/portfolios", func(r chi.Router) {
			r.Post("/", deps.Portfolios.Create())
			r.Get("/", deps.Portfolios.List())
			r.Get("/{id}", deps.Portfolios.Get())
			r.Get("/{id}/stream", deps.Portfolios.Stream())
			r.Post("/{id}/transactions", deps.Transactions.Record())
			r.Get("/{id}/assets/{assetId}/transactions", deps.Transactions.ListForPair())
		})
		r.Patch("/transactions/{id}", deps.Transactions.Amend())

		r.Get("/assets", deps.Assets.List())
		r.Post("/assets", deps.Assets.Create())

		r.Post("/imports/coingecko/transactions", deps.Imports.CoinGeckoTransactions())
		r.Get("/imports/coingecko/coin_data/{coinId}", deps.Imports.CoinData())
	})

	return r
}
