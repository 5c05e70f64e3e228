// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/model"
)

// CMSStore keeps relationships as entries of a dedicated content type in
// the CMS itself, one entry per relationship, under the storage locale.
// Uniqueness of relationshipId is enforced at application level; the CMS
// has no uniqueness constraint.
type CMSStore struct {
	client        *cms.Client
	contentTypeID string
	locale        string
	logger        *slog.Logger
}

// NewCMSStore creates a CMS-backed relationship store.
func NewCMSStore(client *cms.Client, contentTypeID, storageLocale string, logger *slog.Logger) *CMSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CMSStore{
		client:        client,
		contentTypeID: contentTypeID,
		locale:        storageLocale,
		logger:        logger,
	}
}

// Store upserts the relationship entry, preserving CreatedAt on update.
func (s *CMSStore) Store(ctx context.Context, rel *model.Relationship) error {
	existing, err := s.find(ctx, rel.RelationshipID())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if existing != nil {
		if prev, err := s.decode(existing); err == nil && !prev.Metadata.CreatedAt.IsZero() {
			rel.Metadata.CreatedAt = prev.Metadata.CreatedAt
		}
	}
	if rel.Metadata.CreatedAt.IsZero() {
		rel.Metadata.CreatedAt = time.Now().UTC()
	}

	fields, err := s.encode(rel)
	if err != nil {
		return err
	}

	if existing != nil {
		if _, err := s.client.UpdateEntry(ctx, existing.Sys.ID, existing.Sys.Version, fields); err != nil {
			return fmt.Errorf("updating relationship entry: %w", err)
		}
		return nil
	}
	if _, err := s.client.CreateEntry(ctx, s.contentTypeID, fields); err != nil {
		return fmt.Errorf("creating relationship entry: %w", err)
	}
	return nil
}

// Get returns the relationship or ErrNotFound.
func (s *CMSStore) Get(ctx context.Context, sourceID, targetID string) (*model.Relationship, error) {
	entry, err := s.find(ctx, model.RelationshipID(sourceID, targetID))
	if err != nil {
		return nil, err
	}
	return s.decode(entry)
}

// Delete removes the relationship entry.
func (s *CMSStore) Delete(ctx context.Context, sourceID, targetID string) (bool, error) {
	entry, err := s.find(ctx, model.RelationshipID(sourceID, targetID))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.client.DeleteEntry(ctx, entry.Sys.ID, entry.Sys.Version); err != nil {
		return false, fmt.Errorf("deleting relationship entry: %w", err)
	}
	return true, nil
}

// ListBySource returns relationships rooted at the source entry.
func (s *CMSStore) ListBySource(ctx context.Context, sourceID string) ([]*model.Relationship, error) {
	entries, err := s.client.GetEntries(ctx, map[string]string{
		"content_type": s.contentTypeID,
		"fields.sourceEntryId." + s.locale: sourceID,
	})
	if err != nil {
		return nil, fmt.Errorf("listing relationships by source: %w", err)
	}
	return s.decodeAll(entries), nil
}

// ListAll returns every stored relationship.
func (s *CMSStore) ListAll(ctx context.Context) ([]*model.Relationship, error) {
	entries, err := s.client.GetEntries(ctx, map[string]string{
		"content_type": s.contentTypeID,
	})
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	return s.decodeAll(entries), nil
}

// StoreDeepMap merges the tree snapshot into its relationship entry.
func (s *CMSStore) StoreDeepMap(ctx context.Context, tree *model.ReferenceTree) error {
	rel, err := s.Get(ctx, tree.SourceEntryID, tree.TargetEntryID)
	if err != nil {
		return err
	}
	rel.DeepReferenceMap = tree
	return s.Store(ctx, rel)
}

// GetDeepMap returns the stored tree snapshot or ErrNotFound.
func (s *CMSStore) GetDeepMap(ctx context.Context, sourceID, targetID string) (*model.ReferenceTree, error) {
	rel, err := s.Get(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}
	if rel.DeepReferenceMap == nil {
		return nil, ErrNotFound
	}
	return rel.DeepReferenceMap, nil
}

// StoreBackup merges a backup into the relationship entry.
func (s *CMSStore) StoreBackup(ctx context.Context, sourceID, targetID string, backup *model.Backup) error {
	rel, err := s.Get(ctx, sourceID, targetID)
	if err != nil {
		return err
	}
	rel.BackupData = backup
	return s.Store(ctx, rel)
}

// ListBackups returns the latest backups recorded on relationships that
// involve the entry. The CMS backend keeps only the most recent backup per
// relationship; full history lives in the file backend.
func (s *CMSStore) ListBackups(ctx context.Context, entryID string) ([]*model.Backup, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*model.Backup
	for _, rel := range all {
		if rel.BackupData == nil {
			continue
		}
		if rel.SourceEntryID == entryID || rel.TargetEntryID == entryID || rel.BackupData.EntryID == entryID {
			out = append(out, rel.BackupData)
		}
	}
	return out, nil
}

// find returns the relationship entry by indexed relationshipId lookup.
func (s *CMSStore) find(ctx context.Context, relationshipID string) (*cms.Entry, error) {
	entries, err := s.client.GetEntries(ctx, map[string]string{
		"content_type": s.contentTypeID,
		"fields.relationshipId." + s.locale: relationshipID,
		"limit": "1",
	})
	if err != nil {
		return nil, fmt.Errorf("querying relationship %s: %w", relationshipID, err)
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries[0], nil
}

// encode builds the localized field map for a relationship entry.
func (s *CMSStore) encode(rel *model.Relationship) (map[string]cms.LocalizedValue, error) {
	fields := map[string]cms.LocalizedValue{
		"relationshipId": {s.locale: rel.RelationshipID()},
		"sourceEntryId":  {s.locale: rel.SourceEntryID},
		"targetEntryId":  {s.locale: rel.TargetEntryID},
	}

	objects := map[string]any{
		"translationContext": rel.TranslationContext,
		"metadata":           rel.Metadata,
		"fieldHashes":        rel.FieldHashes,
		"cloneMapping":       rel.CloneMapping,
	}
	if rel.DeepReferenceMap != nil {
		objects["deepReferenceMap"] = rel.DeepReferenceMap
	}
	if rel.BackupData != nil {
		objects["backupData"] = rel.BackupData
	}

	for name, v := range objects {
		raw, err := toJSONValue(v)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}
		fields[name] = cms.LocalizedValue{s.locale: raw}
	}
	return fields, nil
}

// decode rebuilds a Relationship from a metadata entry.
func (s *CMSStore) decode(entry *cms.Entry) (*model.Relationship, error) {
	rel := &model.Relationship{
		SourceEntryID: cms.StringIn(entry.Fields["sourceEntryId"], s.locale),
		TargetEntryID: cms.StringIn(entry.Fields["targetEntryId"], s.locale),
	}
	if rel.SourceEntryID == "" || rel.TargetEntryID == "" {
		return nil, fmt.Errorf("relationship entry %s has no source/target ids", entry.Sys.ID)
	}

	decode := func(field string, out any) error {
		v, ok := entry.Fields[field]
		if !ok {
			return nil
		}
		raw, ok := v[s.locale]
		if !ok || raw == nil {
			return nil
		}
		return fromJSONValue(raw, out)
	}

	if err := decode("translationContext", &rel.TranslationContext); err != nil {
		return nil, fmt.Errorf("decoding translationContext: %w", err)
	}
	if err := decode("metadata", &rel.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if err := decode("fieldHashes", &rel.FieldHashes); err != nil {
		return nil, fmt.Errorf("decoding fieldHashes: %w", err)
	}
	if err := decode("cloneMapping", &rel.CloneMapping); err != nil {
		return nil, fmt.Errorf("decoding cloneMapping: %w", err)
	}
	if err := decode("deepReferenceMap", &rel.DeepReferenceMap); err != nil {
		return nil, fmt.Errorf("decoding deepReferenceMap: %w", err)
	}
	if err := decode("backupData", &rel.BackupData); err != nil {
		return nil, fmt.Errorf("decoding backupData: %w", err)
	}
	return rel, nil
}

func (s *CMSStore) decodeAll(entries []*cms.Entry) []*model.Relationship {
	var out []*model.Relationship
	for _, e := range entries {
		rel, err := s.decode(e)
		if err != nil {
			s.logger.Warn("skipping malformed relationship entry", "id", e.Sys.ID, "error", err)
			continue
		}
		out = append(out, rel)
	}
	return out
}

// toJSONValue converts a typed value to the generic JSON shape stored in an
// Object field.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fromJSONValue converts a generic JSON value back into a typed struct.
func fromJSONValue(raw, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
