package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/connectors"
	"portfoliotracker/src/database"
	"portfoliotracker/src/idgen"
	"portfoliotracker/src/security"
	"portfoliotracker/src/stream"
)

// NewServicesFromEnv builds the services over the initialized databases.
func NewServicesFromEnv(config *Config) (*Services, error) {
	ids, err := idgen.New()
	if err != nil {
		return nil, fmt.Errorf("id generator: %w", err)
	}
	logger.WithField("node_id", ids.NodeID()).Info("id generator ready")

	securityConfig := security.GetConfig()
	streamConfig := stream.GetConfig()

	return &Services{
		DB:              database.MainDB,
		Redis:           database.Redis,
		SessionCacheTTL: database.GetConfig().RedisSessionTTL,
		IDs:             ids,
		Tokens:          security.NewTokenManager(securityConfig.JWTSecretKey, securityConfig.TokenTTL),
		BcryptCost:      securityConfig.BcryptCost,
		Coins:           connectors.NewCoinGeckoClientFromEnv(),
		Hub:             stream.NewHub(streamConfig.SubscriberBuffer),
		Stream:          streamConfig,
		Origins:         config.AllowOrigins,
	}, nil
}

func StartServer(config *Config) error {
	services, err := NewServicesFromEnv(config)
	if err != nil {
		return err
	}
	router := NewRouter(services.Dependencies())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go services.RunRelay(ctx)

	// Graceful server
	addr := ":" + config.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}
