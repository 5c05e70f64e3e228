// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/olegiv/lingoclone-go/internal/model"
)

const (
	deepRefsSuffix = "_deep_refs.json"
	backupsDirName = "backups"
)

// FileStore keeps each relationship as one JSON file
// "<sourceId>_<targetId>.json", each tree snapshot as a sibling
// "<sourceId>_<targetId>_deep_refs.json", and backups under backups/.
// Writes are atomic: temp file in the same directory, then rename.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates the tracking directory if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(dir, backupsDirName), 0755); err != nil {
		return nil, fmt.Errorf("creating tracking directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) relPath(sourceID, targetID string) string {
	return filepath.Join(s.dir, model.RelationshipID(sourceID, targetID)+".json")
}

func (s *FileStore) treePath(sourceID, targetID string) string {
	return filepath.Join(s.dir, model.RelationshipID(sourceID, targetID)+deepRefsSuffix)
}

// Store upserts a relationship file, preserving CreatedAt.
func (s *FileStore) Store(_ context.Context, rel *model.Relationship) error {
	path := s.relPath(rel.SourceEntryID, rel.TargetEntryID)
	if existing, err := s.readRelationship(path); err == nil {
		if !existing.Metadata.CreatedAt.IsZero() {
			rel.Metadata.CreatedAt = existing.Metadata.CreatedAt
		}
	}
	if rel.Metadata.CreatedAt.IsZero() {
		rel.Metadata.CreatedAt = time.Now().UTC()
	}
	return s.writeJSON(path, rel)
}

// Get returns the relationship or ErrNotFound.
func (s *FileStore) Get(_ context.Context, sourceID, targetID string) (*model.Relationship, error) {
	return s.readRelationship(s.relPath(sourceID, targetID))
}

// Delete removes the relationship file and its tree snapshot.
func (s *FileStore) Delete(_ context.Context, sourceID, targetID string) (bool, error) {
	err := os.Remove(s.relPath(sourceID, targetID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deleting relationship file: %w", err)
	}
	if err := os.Remove(s.treePath(sourceID, targetID)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to delete tree snapshot file", "error", err)
	}
	return true, nil
}

// ListBySource returns relationships whose SourceEntryID equals sourceID.
func (s *FileStore) ListBySource(ctx context.Context, sourceID string) ([]*model.Relationship, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*model.Relationship
	for _, rel := range all {
		if rel.SourceEntryID == sourceID {
			out = append(out, rel)
		}
	}
	return out, nil
}

// ListAll reads every relationship file in the tracking directory.
func (s *FileStore) ListAll(_ context.Context) ([]*model.Relationship, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading tracking directory: %w", err)
	}
	var out []*model.Relationship
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, deepRefsSuffix) {
			continue
		}
		rel, err := s.readRelationship(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("skipping unreadable relationship file", "file", name, "error", err)
			continue
		}
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RelationshipID() < out[j].RelationshipID()
	})
	return out, nil
}

// StoreDeepMap writes the tree snapshot file.
func (s *FileStore) StoreDeepMap(_ context.Context, tree *model.ReferenceTree) error {
	if tree.SourceEntryID == "" || tree.TargetEntryID == "" {
		return fmt.Errorf("tree snapshot needs source and target ids")
	}
	return s.writeJSON(s.treePath(tree.SourceEntryID, tree.TargetEntryID), tree)
}

// GetDeepMap returns the stored tree snapshot or ErrNotFound.
func (s *FileStore) GetDeepMap(_ context.Context, sourceID, targetID string) (*model.ReferenceTree, error) {
	raw, err := s.readShape(s.treePath(sourceID, targetID), "referenceTree")
	if err != nil {
		return nil, err
	}
	var tree model.ReferenceTree
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decoding tree snapshot: %w", err)
	}
	return &tree, nil
}

// StoreBackup writes a backup snapshot file and records the latest backup
// on the relationship when one exists.
func (s *FileStore) StoreBackup(ctx context.Context, sourceID, targetID string, backup *model.Backup) error {
	ts := backup.CreatedAt.UTC().Format("2006-01-02T15-04-05.000Z")
	name := fmt.Sprintf("%s_%s.json", backup.EntryID, ts)
	if err := s.writeJSON(filepath.Join(s.dir, backupsDirName, name), backup); err != nil {
		return err
	}

	rel, err := s.Get(ctx, sourceID, targetID)
	if err != nil {
		return nil // backup kept even without a relationship file
	}
	rel.BackupData = backup
	return s.Store(ctx, rel)
}

// ListBackups returns the backup history for an entry, newest first.
func (s *FileStore) ListBackups(_ context.Context, entryID string) ([]*model.Backup, error) {
	dir := filepath.Join(s.dir, backupsDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backups directory: %w", err)
	}
	var out []*model.Backup
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, entryID+"_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			s.logger.Warn("skipping unreadable backup file", "file", name, "error", err)
			continue
		}
		var b model.Backup
		if err := json.Unmarshal(data, &b); err != nil {
			s.logger.Warn("skipping malformed backup file", "file", name, "error", err)
			continue
		}
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// readRelationship reads and shape-checks a relationship file. A tree
// snapshot is never returned as a relationship.
func (s *FileStore) readRelationship(path string) (*model.Relationship, error) {
	raw, err := s.readShape(path, "cloneMapping")
	if err != nil {
		return nil, err
	}
	var rel model.Relationship
	if err := json.Unmarshal(raw, &rel); err != nil {
		return nil, fmt.Errorf("decoding relationship: %w", err)
	}
	return &rel, nil
}

// readShape reads a JSON file and verifies the discriminating key is
// present, refusing files of the sibling shape.
func (s *FileStore) readShape(path, requiredKey string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if _, ok := probe[requiredKey]; !ok {
		return nil, fmt.Errorf("%s: missing %q, wrong file shape", filepath.Base(path), requiredKey)
	}
	return data, nil
}

// writeJSON writes a file atomically: temp file in the target directory,
// then rename.
func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
