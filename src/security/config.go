package security

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	JWTSecretKey string        `envconfig:"JWT_SECRET_KEY" default:"change-me-in-production"`
	TokenTTL     time.Duration `envconfig:"TOKEN_TTL" default:"168h"`
	BcryptCost   int           `envconfig:"BCRYPT_COST" default:"10"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
