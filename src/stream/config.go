package stream

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	SubscriberBuffer int           `envconfig:"STREAM_SUBSCRIBER_BUFFER" default:"16"`
	PingInterval     time.Duration `envconfig:"STREAM_PING_INTERVAL" default:"30s"`
	WriteTimeout     time.Duration `envconfig:"STREAM_WRITE_TIMEOUT" default:"10s"`
	RedisChannel     string        `envconfig:"STREAM_REDIS_CHANNEL" default:"portfoliotracker:snapshots"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
