// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Translator provider identifiers.
const (
	ProviderDeepL  = "deepl"
	ProviderOpenAI = "openai"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	CMSManagementToken string `env:"CMS_MANAGEMENT_TOKEN,required"`
	TranslatorAPIKey   string `env:"TRANSLATOR_API_KEY,required"`
	TranslatorProvider string `env:"TRANSLATOR_PROVIDER" envDefault:"deepl"`

	ServerHost string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	ServerPort int    `env:"PORT" envDefault:"3001"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Env        string `env:"APP_ENV" envDefault:"development"`

	// Default CMS scope; every request may override space and environment.
	CMSBaseURL       string `env:"CMS_BASE_URL" envDefault:"https://api.contentful.com"`
	SpaceID          string `env:"CMS_SPACE_ID"`
	EnvironmentID    string `env:"CMS_ENVIRONMENT_ID" envDefault:"master"`
	StorageLocale    string `env:"CMS_STORAGE_LOCALE" envDefault:"en-US-POSIX"`
	RootContentType  string `env:"CMS_ROOT_CONTENT_TYPE" envDefault:"cmsPage"`
	MetadataType     string `env:"CMS_METADATA_CONTENT_TYPE" envDefault:"translationMetadata"`
	TrackingDir      string `env:"TRACKING_DIR" envDefault:"./data/tracking"`
	MaxReferenceDepth int   `env:"MAX_REFERENCE_DEPTH" envDefault:"3"`

	// Cache configuration (translator metadata only)
	RedisURL    string `env:"REDIS_URL"`                       // Optional Redis URL for shared caching
	CachePrefix string `env:"CACHE_PREFIX" envDefault:"lingo:"` // Redis key prefix
	CacheTTL    int    `env:"CACHE_TTL" envDefault:"3600"`     // Default cache TTL in seconds

	// Optional background snapshot refresh (cron spec, empty = disabled)
	RefreshCron string `env:"REFRESH_CRON"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// RefreshEnabled returns true if the background snapshot refresher is configured.
func (c Config) RefreshEnabled() bool {
	return c.RefreshCron != ""
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.TranslatorProvider {
	case ProviderDeepL, ProviderOpenAI:
	default:
		return nil, fmt.Errorf("TRANSLATOR_PROVIDER must be %q or %q, got %q",
			ProviderDeepL, ProviderOpenAI, cfg.TranslatorProvider)
	}

	if cfg.MaxReferenceDepth < 1 {
		return nil, fmt.Errorf("MAX_REFERENCE_DEPTH must be at least 1, got %d", cfg.MaxReferenceDepth)
	}

	return cfg, nil
}
