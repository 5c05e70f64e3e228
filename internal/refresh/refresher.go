// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package refresh runs the optional background snapshot refresher. It
// walks every stored relationship on a cron schedule and performs the
// no-write status check, which refreshes clean tree snapshots so removals
// surface promptly.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/lingoclone-go/internal/engine"
	"github.com/olegiv/lingoclone-go/internal/store"
)

// runTimeout bounds one full refresh sweep.
const runTimeout = 10 * time.Minute

// Refresher periodically re-checks tracked relationships.
type Refresher struct {
	cron   *cron.Cron
	spec   string
	store  store.RelationshipStore
	engine *engine.Engine
	logger *slog.Logger
}

// New creates a Refresher with the given cron spec. An empty spec disables
// the refresher; Start becomes a no-op.
func New(spec string, st store.RelationshipStore, eng *engine.Engine, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		cron:   cron.New(),
		spec:   spec,
		store:  st,
		engine: eng,
		logger: logger,
	}
}

// Start registers the cron job and starts the scheduler.
func (r *Refresher) Start() error {
	if r.spec == "" {
		r.logger.Info("snapshot refresher disabled")
		return nil
	}
	if _, err := r.cron.AddFunc(r.spec, r.run); err != nil {
		return fmt.Errorf("invalid refresh cron spec %q: %w", r.spec, err)
	}
	r.cron.Start()
	r.logger.Info("snapshot refresher started", "cron", r.spec)
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// run sweeps every stored relationship once.
func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	rels, err := r.store.ListAll(ctx)
	if err != nil {
		r.logger.Error("refresh sweep failed to list relationships", "error", err)
		return
	}

	checked, pending := 0, 0
	for _, rel := range rels {
		status, err := r.engine.Status(ctx, rel.SourceEntryID, rel.TargetEntryID)
		if err != nil {
			r.logger.Warn("refresh status check failed",
				"source", rel.SourceEntryID,
				"target", rel.TargetEntryID,
				"error", err)
			continue
		}
		checked++
		if !status.UpToDate {
			pending++
		}
	}
	r.logger.Info("refresh sweep complete",
		"relationships", len(rels),
		"checked", checked,
		"pending_updates", pending)
}
