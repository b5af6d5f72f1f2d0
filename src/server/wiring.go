package server

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"portfoliotracker/src/auth"
	"portfoliotracker/src/connectors"
	"portfoliotracker/src/database"
	"portfoliotracker/src/handler"
	"portfoliotracker/src/ledger"
	"portfoliotracker/src/repository"
	"portfoliotracker/src/security"
	"portfoliotracker/src/stream"
)

// Services are the long lived collaborators the handlers share.
type Services struct {
	DB              *gorm.DB
	Redis           *redis.Client
	SessionCacheTTL time.Duration
	IDs             ledger.IDGenerator
	Tokens          *security.TokenManager
	BcryptCost      int
	Coins           *connectors.CoinGeckoClient
	Hub             *stream.Hub
	Stream          stream.Config
	Origins         []string

	relay *stream.RedisRelay
}

// Dependencies builds the repositories, the reconciler and the handler
// groups on top of the services. A nil Redis keeps sessions in the database
// and snapshots in process.
func (s *Services) Dependencies() Dependencies {
	transactions := repository.NewTransactionRepository().WithDB(s.DB)
	portfolios := repository.NewPortfolioRepository().WithDB(s.DB)
	assets := repository.NewAssetRepository().WithDB(s.DB)
	users := repository.NewUserRepository().WithDB(s.DB)
	sessions := repository.NewSessionRepository().WithDB(s.DB)

	var (
		publisher ledger.Publisher = s.Hub
		cache     auth.SessionCache
	)
	if s.Redis != nil {
		s.relay = stream.NewRedisRelay(s.Redis, s.Stream.RedisChannel, s.Hub)
		publisher = s.relay
		cache = repository.NewRedisSessionCache(s.Redis, s.SessionCacheTTL)
	}

	reconciler := ledger.NewReconciler(transactions, s.IDs, publisher)
	assetHandlers := &handler.AssetHandlers{Assets: assets, Coins: s.Coins}

	checks := map[string]handler.Check{
		"database": func(context.Context) error { return database.Ping(s.DB) },
	}
	if s.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return s.Redis.Ping(ctx).Err() }
	}

	return Dependencies{
		Authenticate: auth.RequireAuthentication(s.Tokens, sessions, cache),
		Checks:       checks,
		AllowOrigins: s.Origins,
		Auth: &handler.AuthHandlers{
			Users:      users,
			Sessions:   sessions,
			Tokens:     s.Tokens,
			IDs:        s.IDs,
			BcryptCost: s.BcryptCost,
		},
		Portfolios: &handler.PortfolioHandlers{
			Portfolios:   portfolios,
			IDs:          s.IDs,
			Hub:          s.Hub,
			StreamConfig: s.Stream,
		},
		Assets: assetHandlers,
		Transactions: &handler.TransactionHandlers{
			Portfolios:   portfolios,
			Assets:       assets,
			Transactions: transactions,
			Ledger:       reconciler,
		},
		Imports: &handler.ImportHandlers{
			Portfolios: portfolios,
			Assets:     assetHandlers,
			Ledger:     reconciler,
		},
	}
}

// RunRelay forwards snapshots published by other processes to local
// subscribers until ctx is done. It is a no-op without redis.
func (s *Services) RunRelay(ctx context.Context) {
	if s.relay == nil {
		return
	}
	if err := s.relay.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("snapshot relay stopped")
	}
}
