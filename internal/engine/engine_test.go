// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/cms/cmstest"
	"github.com/olegiv/lingoclone-go/internal/policy"
	"github.com/olegiv/lingoclone-go/internal/reftree"
	"github.com/olegiv/lingoclone-go/internal/store"
	"github.com/olegiv/lingoclone-go/internal/translator"
)

const locale = "en-US-POSIX"

// fakeTranslator marks translations as "<TARGET>:<text>" so tests can
// assert exactly what was translated. fail switches it into outage mode.
type fakeTranslator struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (f *fakeTranslator) Name() string { return "fake" }

func (f *fakeTranslator) Translate(_ context.Context, text, _, targetLang string, _ translator.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return "", errors.New("translator down")
	}
	return targetLang + ":" + text, nil
}

func (f *fakeTranslator) Usage(context.Context) (*translator.Usage, error) {
	return &translator.Usage{}, nil
}

func (f *fakeTranslator) SourceLanguages(context.Context) ([]translator.Language, error) {
	return nil, nil
}

func (f *fakeTranslator) TargetLanguages(context.Context) ([]translator.Language, error) {
	return nil, nil
}

func (f *fakeTranslator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func str(s string) cms.LocalizedValue {
	return cms.LocalizedValue{locale: s}
}

func links(ids ...string) cms.LocalizedValue {
	arr := make([]any, 0, len(ids))
	for _, id := range ids {
		arr = append(arr, cms.NewLinkValue(cms.LinkTypeEntry, id))
	}
	return cms.LocalizedValue{locale: arr}
}

func singleLink(id string) cms.LocalizedValue {
	return cms.LocalizedValue{locale: cms.NewLinkValue(cms.LinkTypeEntry, id)}
}

func assetLink(id string) cms.LocalizedValue {
	return cms.LocalizedValue{locale: cms.NewLinkValue(cms.LinkTypeAsset, id)}
}

func pageSchema() *cms.ContentType {
	return &cms.ContentType{
		Sys:  cms.Sys{ID: "cmsPage"},
		Name: "CMS Page",
		Fields: []cms.ContentTypeField{
			{ID: "internalName", Type: cms.FieldTypeSymbol},
			{ID: "title", Type: cms.FieldTypeSymbol},
			{ID: "slug", Type: cms.FieldTypeSymbol, Required: true},
			{ID: "culture", Type: cms.FieldTypeSymbol},
			{ID: "teaserText", Type: cms.FieldTypeText},
			{ID: "heroImage", Type: cms.FieldTypeLink, LinkType: "Asset"},
			{ID: "authors", Type: cms.FieldTypeArray, Items: &cms.FieldItems{Type: cms.FieldTypeLink, LinkType: "Entry"}},
			{ID: "elements", Type: cms.FieldTypeArray, Items: &cms.FieldItems{Type: cms.FieldTypeLink, LinkType: "Entry"}},
			{ID: "parentPage", Type: cms.FieldTypeLink, LinkType: "Entry"},
		},
	}
}

func textSchema() *cms.ContentType {
	return &cms.ContentType{
		Sys:  cms.Sys{ID: "scText"},
		Name: "Text Block",
		Fields: []cms.ContentTypeField{
			{ID: "internalName", Type: cms.FieldTypeSymbol},
			{ID: "content", Type: cms.FieldTypeText},
			{ID: "ref", Type: cms.FieldTypeLink, LinkType: "Entry"},
		},
	}
}

func authorSchema() *cms.ContentType {
	return &cms.ContentType{
		Sys:  cms.Sys{ID: "author"},
		Name: "Author",
		Fields: []cms.ContentTypeField{
			{ID: "name", Type: cms.FieldTypeSymbol},
			{ID: "locale", Type: cms.FieldTypeSymbol},
		},
	}
}

// testEnv bundles the fake CMS, a file-backed store, a fake translator and
// the engine under test.
type testEnv struct {
	srv   *cmstest.Server
	store *store.FileStore
	trans *fakeTranslator
	eng   *Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	srv := cmstest.New()
	t.Cleanup(srv.Close)
	srv.AddContentType(pageSchema())
	srv.AddContentType(textSchema())
	srv.AddContentType(authorSchema())

	fileStore, err := store.NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	trans := &fakeTranslator{}
	client := srv.Client("sp", "env")
	pol := policy.DefaultPolicy()
	tracker := reftree.New(client, pol, reftree.DefaultConfig(), nil)

	eng := New(Options{
		CMS:             client,
		Translator:      trans,
		Store:           fileStore,
		Tracker:         tracker,
		Policy:          pol,
		StorageLocale:   locale,
		RootContentType: "cmsPage",
	})

	return &testEnv{srv: srv, store: fileStore, trans: trans, eng: eng}
}

// fieldString reads a string field of a stored entry.
func fieldString(t *testing.T, e *cms.Entry, fieldID string) string {
	t.Helper()
	if e == nil {
		t.Fatal("entry is nil")
	}
	s, _ := e.Fields[fieldID][locale].(string)
	return s
}

// fieldLinkIDs reads the entry link ids of an array field.
func fieldLinkIDs(e *cms.Entry, fieldID string) []string {
	var out []string
	for _, l := range cms.LinksIn(e.Fields[fieldID][locale]) {
		out = append(out, l.ID)
	}
	return out
}
