// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTP HTTP
	PG   PG
	Log  Log
}

type HTTP struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

type PG struct {
	DSN           string        `env:"DATABASE_DSN,required"`
	MaxConns      int32         `env:"PG_MAX_CONNS" envDefault:"10"`
	MinConns      int32         `env:"PG_MIN_CONNS" envDefault:"2"`
	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`
}

type Log struct {
	Format string `env:"LOG_FORMAT" envDefault:"json"` // json or text
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	// The .env file is a development convenience; its absence is fine.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
