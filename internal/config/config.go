package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dnovikov/ironio-oauth/token"
)

type Config interface {
	EnvConfig
	OAuthConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetLogFormat() string
	GetCallbackURL() string
}

type OAuthConfig interface {
	GetServiceID() string
	GetStateTTL() time.Duration
	GetRequireState() bool
	GetHTTPTimeout() time.Duration
}

type StoreConfig interface {
	GetStoreKind() StoreKind
	GetStorePath() string
	GetWritePolicy() token.WritePolicy
}

type mainConfig struct {
	EnvVars
	OAuth
	Store
}

var _ Config = mainConfig{}

// Load reads the process settings from the environment.
func Load() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Store.validate(); err != nil {
		return nil, err
	}
	c.Store.dataFolder = c.DataFolder
	return c, nil
}
