package idgen

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// NodeID pins the node component of generated ids. Negative means derive
	// one from the process identity.
	NodeID int `envconfig:"IDGEN_NODE_ID" default:"-1"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
