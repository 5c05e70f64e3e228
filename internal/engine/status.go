// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/lingoclone-go/internal/model"
	"github.com/olegiv/lingoclone-go/internal/reftree"
	"github.com/olegiv/lingoclone-go/internal/store"
)

// Status change kinds.
const (
	ChangeKindField      = "field"
	ChangeKindReference  = "reference"
	ChangeKindNewRef     = "newReference"
	ChangeKindRemovedRef = "removedReference"
)

// StatusChange is one pending difference between source and target.
type StatusChange struct {
	Kind        string `json:"kind"`
	EntryID     string `json:"entryId,omitempty"`
	Field       string `json:"field,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Depth       int    `json:"depth,omitempty"`
	ParentField string `json:"parentField,omitempty"`
}

// StatusResult is the outcome of a no-write status check. Conflict
// detection is a stub and always reports an empty list.
type StatusResult struct {
	HasRelationship bool                        `json:"hasRelationship"`
	UpToDate        bool                        `json:"upToDate"`
	Changes         []StatusChange              `json:"changes"`
	Conflicts       []string                    `json:"conflicts"`
	Metadata        *model.RelationshipMetadata `json:"metadata,omitempty"`
}

// Status performs the read-only half of an incremental update: fresh tree,
// diff against the stored snapshot, and root-level hash diff. On the
// no-change path the tree snapshot is refreshed so removals stay visible.
func (e *Engine) Status(ctx context.Context, sourceID, targetID string) (*StatusResult, error) {
	rel, err := e.store.Get(ctx, sourceID, targetID)
	if errors.Is(err, store.ErrNotFound) {
		return &StatusResult{Changes: []StatusChange{}, Conflicts: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading relationship: %w", err)
	}

	source, err := e.cms.GetEntry(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("fetching source entry: %w", err)
	}

	build, err := e.tracker.BuildTree(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("building reference tree: %w", err)
	}
	storedTree := rel.DeepReferenceMap
	if storedTree == nil {
		if t, err := e.store.GetDeepMap(ctx, sourceID, targetID); err == nil {
			storedTree = t
		}
	}
	diff := reftree.DiffTrees(storedTree, build.Tree, build.Entries)

	schemas := e.newSchemaCache()
	rootCT, err := schemas.get(ctx, source.ContentTypeID())
	if err != nil {
		return nil, fmt.Errorf("fetching root schema: %w", err)
	}
	_, newFieldHashes := reftree.HashFields(source, rootCT, e.policy)

	changes := []StatusChange{}
	for _, fieldID := range changedRootFields(rel.FieldHashes, newFieldHashes) {
		changes = append(changes, StatusChange{
			Kind:    ChangeKindField,
			EntryID: sourceID,
			Field:   fieldID,
		})
	}
	for _, ref := range diff.Changed {
		if len(ref.FieldChanges) == 0 {
			changes = append(changes, StatusChange{
				Kind:        ChangeKindReference,
				EntryID:     ref.ID,
				Reason:      string(ref.Reason),
				Depth:       ref.Depth,
				ParentField: ref.ParentField,
			})
			continue
		}
		for _, fc := range ref.FieldChanges {
			changes = append(changes, StatusChange{
				Kind:        ChangeKindReference,
				EntryID:     ref.ID,
				Field:       fc.FieldName,
				Reason:      string(ref.Reason),
				Depth:       ref.Depth,
				ParentField: ref.ParentField,
			})
		}
	}
	for _, ref := range diff.New {
		changes = append(changes, StatusChange{
			Kind:        ChangeKindNewRef,
			EntryID:     ref.ID,
			Depth:       ref.Depth,
			ParentField: ref.ParentField,
		})
	}
	for _, ref := range diff.Removed {
		changes = append(changes, StatusChange{
			Kind:        ChangeKindRemovedRef,
			EntryID:     ref.ID,
			Depth:       ref.Depth,
			ParentField: ref.ParentField,
		})
	}

	upToDate := len(changes) == 0 && source.Sys.Version <= rel.Metadata.LastTranslatedVersion

	if len(changes) == 0 {
		// Clean path: refresh the snapshot so LastScanned moves forward.
		build.Tree.TargetEntryID = targetID
		if err := e.store.StoreDeepMap(ctx, build.Tree); err != nil {
			e.logger.Warn("refreshing tree snapshot failed", "error", err)
		}
	}

	return &StatusResult{
		HasRelationship: true,
		UpToDate:        upToDate,
		Changes:         changes,
		Conflicts:       []string{}, // conflict detection stub
		Metadata:        &rel.Metadata,
	}, nil
}

// DeepRefStats summarizes a stored reference tree for the API surface.
type DeepRefStats struct {
	SourceEntryID string      `json:"sourceEntryId"`
	TargetEntryID string      `json:"targetEntryId"`
	MaxDepth      int         `json:"maxDepth"`
	LastScanned   time.Time   `json:"lastScanned"`
	TotalRefs     int         `json:"totalRefs"`
	ByDepth       map[int]int `json:"byDepth"`
}

func statsFromTree(tree *model.ReferenceTree) *DeepRefStats {
	stats := &DeepRefStats{
		SourceEntryID: tree.SourceEntryID,
		TargetEntryID: tree.TargetEntryID,
		MaxDepth:      tree.MaxDepth,
		LastScanned:   tree.LastScanned,
		ByDepth:       make(map[int]int),
	}
	for _, node := range tree.FlattenedRefs {
		stats.TotalRefs++
		stats.ByDepth[node.Depth]++
	}
	return stats
}

// DeepReferenceStats reports the stored tree snapshot for a pair.
func (e *Engine) DeepReferenceStats(ctx context.Context, sourceID, targetID string) (*DeepRefStats, error) {
	tree, err := e.store.GetDeepMap(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}
	return statsFromTree(tree), nil
}

// RebuildDeepReferences forces a fresh tree build and stores it as the new
// snapshot.
func (e *Engine) RebuildDeepReferences(ctx context.Context, sourceID, targetID string) (*DeepRefStats, error) {
	unlock := e.lockPair(sourceID, targetID)
	defer unlock()

	source, err := e.cms.GetEntry(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("fetching source entry: %w", err)
	}
	build, err := e.tracker.BuildTree(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("building reference tree: %w", err)
	}
	build.Tree.TargetEntryID = targetID
	if err := e.store.StoreDeepMap(ctx, build.Tree); err != nil {
		return nil, fmt.Errorf("storing tree snapshot: %w", err)
	}
	return statsFromTree(build.Tree), nil
}
