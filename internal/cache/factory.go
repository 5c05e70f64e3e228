// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Config selects and tunes the cache backend.
type Config struct {
	RedisURL        string // empty = in-memory cache
	Prefix          string
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// New builds a cache from the configuration. A Redis URL that cannot be
// reached falls back to the in-memory cache so the service still starts.
func New(cfg Config, logger *slog.Logger) Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}

	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			logger.Info("cache initialized", "backend", "redis", "url", cfg.RedisURL)
			return rc
		}
		logger.Warn("redis unavailable, falling back to memory cache", "error", err)
	}

	logger.Info("cache initialized", "backend", "memory")
	return NewMemoryCache(cfg.DefaultTTL, cfg.CleanupInterval)
}
