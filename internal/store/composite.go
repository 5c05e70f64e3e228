// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/olegiv/lingoclone-go/internal/model"
)

// Backend names for observability.
const (
	BackendCMS  = "cms"
	BackendFile = "file"
)

// Composite tries the primary (CMS) backend first and falls back to the
// file backend on any primary error. Once a primary write succeeds again
// the primary is authoritative. The backend that answered the most recent
// operation is recorded for observability.
type Composite struct {
	primary  RelationshipStore
	fallback RelationshipStore
	logger   *slog.Logger
	last     atomic.Value // string
}

// NewComposite builds the standard CMS-primary, file-fallback store.
func NewComposite(primary, fallback RelationshipStore, logger *slog.Logger) *Composite {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Composite{primary: primary, fallback: fallback, logger: logger}
	c.last.Store(BackendCMS)
	return c
}

// LastBackend reports which backend answered the most recent operation.
func (c *Composite) LastBackend() string {
	return c.last.Load().(string)
}

func (c *Composite) answered(backend string) {
	c.last.Store(backend)
}

// failover logs a primary failure before the fallback runs.
func (c *Composite) failover(op string, err error) {
	c.logger.Warn("primary store failed, using file fallback", "op", op, "error", err)
}

// Store upserts via the primary, falling back on error.
func (c *Composite) Store(ctx context.Context, rel *model.Relationship) error {
	if err := c.primary.Store(ctx, rel); err != nil {
		c.failover("store", err)
		c.answered(BackendFile)
		return c.fallback.Store(ctx, rel)
	}
	c.answered(BackendCMS)
	return nil
}

// Get prefers the primary; a miss or failure consults the fallback so a
// relationship written during an outage stays reachable.
func (c *Composite) Get(ctx context.Context, sourceID, targetID string) (*model.Relationship, error) {
	rel, err := c.primary.Get(ctx, sourceID, targetID)
	if err == nil {
		c.answered(BackendCMS)
		return rel, nil
	}
	if !errors.Is(err, ErrNotFound) {
		c.failover("get", err)
	}
	rel, ferr := c.fallback.Get(ctx, sourceID, targetID)
	if ferr == nil {
		c.answered(BackendFile)
		return rel, nil
	}
	if errors.Is(err, ErrNotFound) && errors.Is(ferr, ErrNotFound) {
		return nil, ErrNotFound
	}
	if errors.Is(ferr, ErrNotFound) {
		return nil, err
	}
	return nil, ferr
}

// Delete removes the pair from both backends.
func (c *Composite) Delete(ctx context.Context, sourceID, targetID string) (bool, error) {
	deleted, err := c.primary.Delete(ctx, sourceID, targetID)
	if err != nil {
		c.failover("delete", err)
	}
	fdeleted, ferr := c.fallback.Delete(ctx, sourceID, targetID)
	if err != nil && ferr != nil {
		return false, err
	}
	c.answered(BackendCMS)
	return deleted || fdeleted, nil
}

// ListBySource merges primary results with fallback-only relationships.
func (c *Composite) ListBySource(ctx context.Context, sourceID string) ([]*model.Relationship, error) {
	rels, err := c.primary.ListBySource(ctx, sourceID)
	if err != nil {
		c.failover("list_by_source", err)
		c.answered(BackendFile)
		return c.fallback.ListBySource(ctx, sourceID)
	}
	c.answered(BackendCMS)
	return c.mergeFallback(ctx, rels, func(fb RelationshipStore) ([]*model.Relationship, error) {
		return fb.ListBySource(ctx, sourceID)
	}), nil
}

// ListAll merges primary results with fallback-only relationships.
func (c *Composite) ListAll(ctx context.Context) ([]*model.Relationship, error) {
	rels, err := c.primary.ListAll(ctx)
	if err != nil {
		c.failover("list_all", err)
		c.answered(BackendFile)
		return c.fallback.ListAll(ctx)
	}
	c.answered(BackendCMS)
	return c.mergeFallback(ctx, rels, func(fb RelationshipStore) ([]*model.Relationship, error) {
		return fb.ListAll(ctx)
	}), nil
}

// mergeFallback appends fallback relationships unknown to the primary.
func (c *Composite) mergeFallback(_ context.Context, rels []*model.Relationship,
	list func(RelationshipStore) ([]*model.Relationship, error)) []*model.Relationship {
	fbRels, err := list(c.fallback)
	if err != nil {
		return rels
	}
	known := make(map[string]bool, len(rels))
	for _, r := range rels {
		known[r.RelationshipID()] = true
	}
	for _, r := range fbRels {
		if !known[r.RelationshipID()] {
			rels = append(rels, r)
		}
	}
	return rels
}

// StoreDeepMap merges the snapshot via the primary, falling back on error.
func (c *Composite) StoreDeepMap(ctx context.Context, tree *model.ReferenceTree) error {
	if err := c.primary.StoreDeepMap(ctx, tree); err != nil {
		c.failover("store_deep_map", err)
		c.answered(BackendFile)
		return c.fallback.StoreDeepMap(ctx, tree)
	}
	c.answered(BackendCMS)
	return nil
}

// GetDeepMap prefers the primary, consulting the fallback on miss/failure.
func (c *Composite) GetDeepMap(ctx context.Context, sourceID, targetID string) (*model.ReferenceTree, error) {
	tree, err := c.primary.GetDeepMap(ctx, sourceID, targetID)
	if err == nil {
		c.answered(BackendCMS)
		return tree, nil
	}
	if !errors.Is(err, ErrNotFound) {
		c.failover("get_deep_map", err)
	}
	tree, ferr := c.fallback.GetDeepMap(ctx, sourceID, targetID)
	if ferr == nil {
		c.answered(BackendFile)
		return tree, nil
	}
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	return nil, err
}

// StoreBackup records the backup via the primary and always writes the
// file history as well, so the full backup trail survives in one place.
func (c *Composite) StoreBackup(ctx context.Context, sourceID, targetID string, backup *model.Backup) error {
	ferr := c.fallback.StoreBackup(ctx, sourceID, targetID, backup)
	if err := c.primary.StoreBackup(ctx, sourceID, targetID, backup); err != nil {
		c.failover("store_backup", err)
		c.answered(BackendFile)
		return ferr
	}
	c.answered(BackendCMS)
	return nil
}

// ListBackups merges the file history with the primary's latest snapshots.
func (c *Composite) ListBackups(ctx context.Context, entryID string) ([]*model.Backup, error) {
	fileBackups, ferr := c.fallback.ListBackups(ctx, entryID)
	cmsBackups, err := c.primary.ListBackups(ctx, entryID)
	if err != nil {
		c.failover("list_backups", err)
		c.answered(BackendFile)
		return fileBackups, ferr
	}
	c.answered(BackendCMS)

	known := make(map[string]bool, len(fileBackups))
	for _, b := range fileBackups {
		known[b.BackupID] = true
	}
	for _, b := range cmsBackups {
		if !known[b.BackupID] {
			fileBackups = append(fileBackups, b)
		}
	}
	return fileBackups, nil
}
