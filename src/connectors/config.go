package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	CoinGeckoAPIKey  string        `envconfig:"COINGECKO_API_KEY" default:""`
	CoinGeckoBaseURL string        `envconfig:"COINGECKO_BASE_URL" default:"https://api.coingecko.com/api/v3"`
	CoinGeckoTimeout time.Duration `envconfig:"COINGECKO_TIMEOUT" default:"15s"`
	RetryAttempts    int           `envconfig:"COINGECKO_RETRY_ATTEMPTS" default:"3"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
