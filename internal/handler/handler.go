// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"time"

	"github.com/olegiv/lingoclone-go/internal/cache"
	"github.com/olegiv/lingoclone-go/internal/config"
	"github.com/olegiv/lingoclone-go/internal/engine"
	"github.com/olegiv/lingoclone-go/internal/store"
	"github.com/olegiv/lingoclone-go/internal/translator"
	"github.com/olegiv/lingoclone-go/internal/version"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	engine     *engine.Engine
	translator translator.Translator
	store      store.RelationshipStore
	cache      cache.Cache
	cfg        *config.Config
	logger     *slog.Logger
	version    *version.Info
	startTime  time.Time
}

// Options bundles the handler dependencies.
type Options struct {
	Engine     *engine.Engine
	Translator translator.Translator
	Store      store.RelationshipStore
	Cache      cache.Cache
	Config     *config.Config
	Logger     *slog.Logger
	Version    *version.Info
}

// New creates the API handler.
func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:     opts.Engine,
		translator: opts.Translator,
		store:      opts.Store,
		cache:      opts.Cache,
		cfg:        opts.Config,
		logger:     logger,
		version:    opts.Version,
		startTime:  time.Now(),
	}
}

// scopedEngine returns the engine bound to the request's space and
// environment, defaulting to the configured scope.
func (h *Handler) scopedEngine(spaceID, envID string) *engine.Engine {
	return h.engine.WithScope(spaceID, envID)
}
