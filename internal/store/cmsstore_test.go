// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/cms/cmstest"
	"github.com/olegiv/lingoclone-go/internal/model"
	"github.com/olegiv/lingoclone-go/internal/store"
)

const locale = "en-US-POSIX"

func newCMSStore(t *testing.T) (*store.CMSStore, *cmstest.Server) {
	t.Helper()
	srv := cmstest.New()
	t.Cleanup(srv.Close)
	srv.AddContentType(&cms.ContentType{
		Sys:  cms.Sys{ID: "translationMetadata"},
		Name: "Translation Metadata",
		Fields: []cms.ContentTypeField{
			{ID: "relationshipId", Type: cms.FieldTypeSymbol},
			{ID: "sourceEntryId", Type: cms.FieldTypeSymbol},
			{ID: "targetEntryId", Type: cms.FieldTypeSymbol},
			{ID: "translationContext", Type: cms.FieldTypeObject},
			{ID: "metadata", Type: cms.FieldTypeObject},
			{ID: "fieldHashes", Type: cms.FieldTypeObject},
			{ID: "cloneMapping", Type: cms.FieldTypeObject},
			{ID: "deepReferenceMap", Type: cms.FieldTypeObject},
			{ID: "backupData", Type: cms.FieldTypeObject},
		},
	})
	return store.NewCMSStore(srv.Client("sp", "env"), "translationMetadata", locale, nil), srv
}

func sampleRelationship() *model.Relationship {
	return &model.Relationship{
		SourceEntryID: "X",
		TargetEntryID: "Y",
		Metadata: model.RelationshipMetadata{
			LastTranslatedVersion: 3,
			LastUpdated:           time.Now().UTC(),
		},
		TranslationContext: model.TranslationContext{SourceLanguage: "DE", TargetLanguage: "IT"},
		FieldHashes:        map[string]string{"title": "h1"},
		CloneMapping:       map[string]string{"Entry:X": "Y"},
	}
}

func TestCMSStoreRoundTrip(t *testing.T) {
	s, srv := newCMSStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, sampleRelationship()))
	require.Len(t, srv.EntriesOfType("translationMetadata"), 1)

	got, err := s.Get(ctx, "X", "Y")
	require.NoError(t, err)
	assert.Equal(t, "IT", got.TranslationContext.TargetLanguage)
	assert.Equal(t, "h1", got.FieldHashes["title"])
	assert.Equal(t, "Y", got.CloneMapping["Entry:X"])
	assert.Equal(t, 3, got.Metadata.LastTranslatedVersion)
	assert.False(t, got.Metadata.CreatedAt.IsZero())
}

func TestCMSStoreUpsertKeepsSingleEntry(t *testing.T) {
	s, srv := newCMSStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, sampleRelationship()))
	created, err := s.Get(ctx, "X", "Y")
	require.NoError(t, err)

	update := sampleRelationship()
	update.Metadata.LastTranslatedVersion = 4
	require.NoError(t, s.Store(ctx, update))

	// Application-level uniqueness: still one entry after the upsert.
	require.Len(t, srv.EntriesOfType("translationMetadata"), 1)

	got, err := s.Get(ctx, "X", "Y")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Metadata.LastTranslatedVersion)
	assert.True(t, got.Metadata.CreatedAt.Equal(created.Metadata.CreatedAt),
		"CreatedAt must be preserved on upsert")
}

func TestCMSStoreDeepMapMerge(t *testing.T) {
	s, _ := newCMSStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, sampleRelationship()))

	root := &model.ReferenceNode{ID: "X", ContentHash: "h"}
	tree := &model.ReferenceTree{
		SourceEntryID: "X",
		TargetEntryID: "Y",
		MaxDepth:      3,
		Root:          root,
		FlattenedRefs: map[string]*model.ReferenceNode{"X": root},
	}
	require.NoError(t, s.StoreDeepMap(ctx, tree))

	got, err := s.GetDeepMap(ctx, "X", "Y")
	require.NoError(t, err)
	require.NotNil(t, got.Root)
	assert.Equal(t, "X", got.Root.ID)

	// The merge must preserve the other relationship fields.
	rel, err := s.Get(ctx, "X", "Y")
	require.NoError(t, err)
	assert.Equal(t, "Y", rel.CloneMapping["Entry:X"])
	assert.Equal(t, "h1", rel.FieldHashes["title"])
}

func TestCMSStoreDeleteAndList(t *testing.T) {
	s, _ := newCMSStore(t)
	ctx := context.Background()

	rel2 := sampleRelationship()
	rel2.TargetEntryID = "Z"
	require.NoError(t, s.Store(ctx, sampleRelationship()))
	require.NoError(t, s.Store(ctx, rel2))

	rels, err := s.ListBySource(ctx, "X")
	require.NoError(t, err)
	require.Len(t, rels, 2)

	deleted, err := s.Delete(ctx, "X", "Y")
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = s.Get(ctx, "X", "Y")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rels, err = s.ListBySource(ctx, "X")
	require.NoError(t, err)
	assert.Len(t, rels, 1)
}
