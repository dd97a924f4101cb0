package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	APIBaseURL        string `env:"API_BASE_URL,required=true"`
	APIToken          string `env:"API_TOKEN"`
	RedisURL          string `env:"REDIS_URL,required=true"`
	ListenPort        int    `env:"LISTEN_PORT,default=8090"`
	PollIntervalSec   int    `env:"POLL_INTERVAL_SEC,default=60"`
	RequestTimeoutSec int    `env:"REQUEST_TIMEOUT_SEC,default=15"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// PollInterval returns the notification poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// RequestTimeout returns the per-request backend timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}
