// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store persists translation relationships, tree snapshots and
// target backups. The primary backend lives in the CMS itself; a local
// file backend serves as transparent fallback.
package store

import (
	"context"
	"errors"

	"github.com/olegiv/lingoclone-go/internal/model"
)

// ErrNotFound indicates no relationship exists for the requested pair.
var ErrNotFound = errors.New("store: relationship not found")

// RelationshipStore is the capability set required by the engine. Every
// operation takes the (sourceID, targetID) identity pair.
type RelationshipStore interface {
	// Store upserts a relationship, preserving CreatedAt on update.
	Store(ctx context.Context, rel *model.Relationship) error

	// Get returns the relationship or ErrNotFound.
	Get(ctx context.Context, sourceID, targetID string) (*model.Relationship, error)

	// Delete removes a relationship; the result reports whether one existed.
	Delete(ctx context.Context, sourceID, targetID string) (bool, error)

	// ListBySource returns every relationship rooted at the source entry.
	ListBySource(ctx context.Context, sourceID string) ([]*model.Relationship, error)

	// ListAll returns every stored relationship.
	ListAll(ctx context.Context) ([]*model.Relationship, error)

	// StoreDeepMap merges a tree snapshot into the relationship it names,
	// preserving all other relationship fields.
	StoreDeepMap(ctx context.Context, tree *model.ReferenceTree) error

	// GetDeepMap returns the stored tree snapshot or ErrNotFound.
	GetDeepMap(ctx context.Context, sourceID, targetID string) (*model.ReferenceTree, error)

	// StoreBackup merges a target-entry backup into the relationship.
	StoreBackup(ctx context.Context, sourceID, targetID string, backup *model.Backup) error

	// ListBackups returns the backup history involving the given entry.
	ListBackups(ctx context.Context, entryID string) ([]*model.Backup, error)
}
