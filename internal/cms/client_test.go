// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cms_test

import (
	"context"
	"testing"

	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/cms/cmstest"
)

const locale = "en-US-POSIX"

func TestGetEntry(t *testing.T) {
	srv := cmstest.New()
	defer srv.Close()
	srv.AddEntry("E1", "scText", map[string]cms.LocalizedValue{
		"content": {locale: "Hallo"},
	})

	client := srv.Client("sp", "env")
	entry, err := client.GetEntry(context.Background(), "E1")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if entry.Sys.ID != "E1" || entry.Sys.Version != 1 {
		t.Errorf("sys = %+v", entry.Sys)
	}
	if entry.ContentTypeID() != "scText" {
		t.Errorf("content type = %q", entry.ContentTypeID())
	}
	if got := cms.StringIn(entry.Fields["content"], locale); got != "Hallo" {
		t.Errorf("content = %q", got)
	}
}

func TestGetEntryNotFound(t *testing.T) {
	srv := cmstest.New()
	defer srv.Close()
	client := srv.Client("sp", "env")

	_, err := client.GetEntry(context.Background(), "missing")
	if !cms.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestGetEntryRetriesTransientFailures(t *testing.T) {
	srv := cmstest.New()
	defer srv.Close()
	srv.AddEntry("E1", "scText", map[string]cms.LocalizedValue{"content": {locale: "ok"}})
	srv.FailNextGets("E1", 2) // two 500s, then success

	client := srv.Client("sp", "env")
	entry, err := client.GetEntry(context.Background(), "E1")
	if err != nil {
		t.Fatalf("GetEntry should retry through transient failures: %v", err)
	}
	if entry.Sys.ID != "E1" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestGetEntryRetriesExhausted(t *testing.T) {
	srv := cmstest.New()
	defer srv.Close()
	srv.AddEntry("E1", "scText", map[string]cms.LocalizedValue{"content": {locale: "ok"}})
	srv.FailNextGets("E1", 10)

	client := srv.Client("sp", "env")
	if _, err := client.GetEntry(context.Background(), "E1"); err == nil {
		t.Fatal("expected failure after retries are exhausted")
	}
}

func TestCreateAndUpdateEntry(t *testing.T) {
	srv := cmstest.New()
	defer srv.Close()
	client := srv.Client("sp", "env")
	ctx := context.Background()

	created, err := client.CreateEntry(ctx, "scText", map[string]cms.LocalizedValue{
		"content": {locale: "neu"},
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if created.Sys.Version != 1 || !created.IsDraft() {
		t.Errorf("created = %+v, want draft v1", created.Sys)
	}

	created.Fields["content"] = cms.LocalizedValue{locale: "geändert"}
	updated, err := client.UpdateEntry(ctx, created.Sys.ID, created.Sys.Version, created.Fields)
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if updated.Sys.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Sys.Version)
	}

	// Stale version must be rejected.
	if _, err := client.UpdateEntry(ctx, created.Sys.ID, 1, created.Fields); err == nil {
		t.Error("stale version update should fail")
	}
}

func TestGetEntriesQuery(t *testing.T) {
	srv := cmstest.New()
	defer srv.Close()
	srv.AddEntry("A1", "author", map[string]cms.LocalizedValue{
		"name": {locale: "Anna"}, "locale": {locale: "de-DE"},
	})
	srv.AddEntry("A2", "author", map[string]cms.LocalizedValue{
		"name": {locale: "Anna"}, "locale": {locale: "it-IT"},
	})
	srv.AddEntry("E1", "scText", map[string]cms.LocalizedValue{"content": {locale: "x"}})

	client := srv.Client("sp", "env")
	entries, err := client.GetEntries(context.Background(), map[string]string{
		"content_type":            "author",
		"fields.locale." + locale: "it-IT",
	})
	if err != nil {
		t.Fatalf("GetEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Sys.ID != "A2" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestDeleteEntry(t *testing.T) {
	srv := cmstest.New()
	defer srv.Close()
	srv.AddEntry("E1", "scText", map[string]cms.LocalizedValue{"content": {locale: "x"}})

	client := srv.Client("sp", "env")
	ctx := context.Background()
	if err := client.DeleteEntry(ctx, "E1", 1); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := client.GetEntry(ctx, "E1"); !cms.IsNotFound(err) {
		t.Errorf("entry survived delete: %v", err)
	}
}

func TestWithScope(t *testing.T) {
	srv := cmstest.New()
	defer srv.Close()
	client := srv.Client("sp", "env")

	scoped := client.WithScope("other", "staging")
	if scoped.SpaceID() != "other" || scoped.EnvironmentID() != "staging" {
		t.Errorf("scoped = %s/%s", scoped.SpaceID(), scoped.EnvironmentID())
	}
	// Empty values keep the current scope.
	same := client.WithScope("", "")
	if same.SpaceID() != "sp" || same.EnvironmentID() != "env" {
		t.Errorf("same = %s/%s", same.SpaceID(), same.EnvironmentID())
	}
}
