// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	UsersTable       string `env:"USERS_TABLE_NAME,required"`
	IdempotencyTable string `env:"IDEMPOTENCY_TABLE_NAME,required"`
	AuditTable       string `env:"AUDIT_TABLE_NAME,required"`
	EventBus         string `env:"EVENT_BUS_NAME" envDefault:"user-management-audit-events"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv           string `env:"APP_ENV" envDefault:"production"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
