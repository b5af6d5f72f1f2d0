package importer

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	File        string `envconfig:"IMPORT_FILE" default:""`
	PortfolioID int64  `envconfig:"IMPORT_PORTFOLIO_ID" default:"0"`
	CoinID      string `envconfig:"IMPORT_COIN_ID" default:""`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
