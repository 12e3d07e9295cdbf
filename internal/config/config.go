package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	HTTP struct {
		Port string `env:"HTTP_PORT" envDefault:"8080"`
	}

	DB struct {
		Host            string `env:"DB_HOST" envDefault:"postgres"`
		Port            int    `env:"DB_PORT" envDefault:"5432"`
		User            string `env:"DB_USER" envDefault:"dispatch"`
		Password        string `env:"DB_PASSWORD" envDefault:"dispatch"`
		Name            string `env:"DB_NAME" envDefault:"dispatch_db"`
		SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns    int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifeTime int    `env:"DB_CONN_MAX_LIFETIME_MIN" envDefault:"30"` // minutes
	}

	Auth struct {
		// Comma-separated static bearer tokens, and/or an HMAC secret for JWTs.
		StaticTokens string `env:"STATIC_TOKENS"`
		JWTSecret    string `env:"JWT_HMAC_SECRET"`
	}

	// How often the sweeper transitions lapsed holds to expired, in seconds.
	HoldSweepSeconds int `env:"HOLD_SWEEP_SECONDS" envDefault:"60"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, fmt.Errorf("invalid DB config: host/user/name must not be empty")
	}
	return cfg, nil
}
