// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"slices"
	"testing"

	"github.com/olegiv/lingoclone-go/internal/cms"
)

// cloneS1 runs the first clone of the S1 fixture and returns the target id.
func cloneS1(t *testing.T, e *testEnv) string {
	t.Helper()
	result, err := e.eng.Clone(context.Background(), CloneRequest{
		SourceEntryID:  "X",
		TargetLanguage: "IT",
	})
	if err != nil {
		t.Fatalf("first clone: %v", err)
	}
	return result.ClonedEntryID
}

func TestStatusAfterCloneIsUpToDate(t *testing.T) {
	e := newTestEnv(t)
	seedS1(e)
	targetID := cloneS1(t, e)
	ctx := context.Background()

	status, err := e.eng.Status(ctx, "X", targetID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.HasRelationship {
		t.Fatal("hasRelationship = false")
	}
	if !status.UpToDate {
		t.Errorf("upToDate = false, changes = %+v", status.Changes)
	}
	if len(status.Changes) != 0 {
		t.Errorf("changes = %+v, want none", status.Changes)
	}
	if len(status.Conflicts) != 0 {
		t.Errorf("conflicts = %+v, want empty stub", status.Conflicts)
	}
}

func TestStatusWithoutRelationship(t *testing.T) {
	e := newTestEnv(t)
	status, err := e.eng.Status(context.Background(), "nope", "nada")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.HasRelationship || status.UpToDate {
		t.Errorf("status = %+v", status)
	}
}

func TestIncrementalTextChange(t *testing.T) {
	e := newTestEnv(t)
	seedS1(e)
	targetID := cloneS1(t, e)
	ctx := context.Background()

	// The referenced text block changes on the source side.
	e.srv.SetField("E1", "content", str("Weiterlesen"))

	status, err := e.eng.Status(ctx, "X", targetID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.UpToDate {
		t.Fatal("upToDate should be false after a reference change")
	}
	found := false
	for _, c := range status.Changes {
		if c.Kind == ChangeKindReference && c.EntryID == "E1" && c.Field == "content" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E1.content change, got %+v", status.Changes)
	}

	rootVersionBefore := e.srv.Entry(targetID).Sys.Version

	result := e.eng.Update(ctx, "X", targetID, UpdateOptions{})
	if !result.Success {
		t.Fatalf("Update failed: %+v", result)
	}
	if !slices.Contains(result.FieldsUpdated, "E1.content") {
		t.Errorf("fieldsUpdated = %v", result.FieldsUpdated)
	}
	if result.BackupID == "" {
		t.Error("backupId missing")
	}

	// The mapped child clone got the translated new text.
	rel, err := e.store.Get(ctx, "X", targetID)
	if err != nil {
		t.Fatalf("Get relationship: %v", err)
	}
	e1Clone := e.srv.Entry(rel.CloneMapping["Entry:E1"])
	if got := fieldString(t, e1Clone, "content"); got != "IT:Weiterlesen" {
		t.Errorf("E1 clone content = %q", got)
	}

	// The root target itself is unchanged.
	if v := e.srv.Entry(targetID).Sys.Version; v != rootVersionBefore {
		t.Errorf("root target version moved %d -> %d without root changes", rootVersionBefore, v)
	}

	// Backup captured the pre-update target.
	backups, err := e.store.ListBackups(ctx, targetID)
	if err != nil || len(backups) == 0 {
		t.Fatalf("ListBackups = %v, %v", backups, err)
	}

	// Second status is clean: the snapshot was refreshed.
	status, err = e.eng.Status(ctx, "X", targetID)
	if err != nil {
		t.Fatalf("Status after update: %v", err)
	}
	if !status.UpToDate {
		t.Errorf("upToDate = false after update, changes = %+v", status.Changes)
	}
}

func TestIncrementalUpdateIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	seedS1(e)
	targetID := cloneS1(t, e)
	ctx := context.Background()

	e.srv.SetField("E1", "content", str("Weiterlesen"))

	first := e.eng.Update(ctx, "X", targetID, UpdateOptions{})
	if !first.Success {
		t.Fatalf("first update: %+v", first)
	}

	second := e.eng.Update(ctx, "X", targetID, UpdateOptions{})
	if !second.Success {
		t.Fatalf("second update: %+v", second)
	}
	if len(second.FieldsUpdated) != 0 {
		t.Errorf("second update touched fields: %v", second.FieldsUpdated)
	}
}

func TestIncrementalRootFieldChange(t *testing.T) {
	e := newTestEnv(t)
	seedS1(e)
	targetID := cloneS1(t, e)
	ctx := context.Background()

	e.srv.SetField("X", "title", str("Hallo Welt"))

	result := e.eng.Update(ctx, "X", targetID, UpdateOptions{})
	if !result.Success {
		t.Fatalf("Update: %+v", result)
	}
	if !slices.Contains(result.FieldsUpdated, "title") {
		t.Errorf("fieldsUpdated = %v", result.FieldsUpdated)
	}

	clone := e.srv.Entry(targetID)
	if got := fieldString(t, clone, "title"); got != "[Clone] IT:Hallo Welt" {
		t.Errorf("title = %q (prefix must survive re-translation)", got)
	}

	rel, _ := e.store.Get(ctx, "X", targetID)
	if rel.Metadata.LastTranslatedVersion != e.srv.Entry("X").Sys.Version {
		t.Errorf("lastTranslatedVersion = %d, want %d",
			rel.Metadata.LastTranslatedVersion, e.srv.Entry("X").Sys.Version)
	}
}

func TestIncrementalNewReference(t *testing.T) {
	e := newTestEnv(t)
	seedS1(e)
	targetID := cloneS1(t, e)
	ctx := context.Background()

	e.srv.AddEntry("E2", "scText", map[string]cms.LocalizedValue{"content": str("Neuer Block")})
	e.srv.SetField("X", "elements", links("E1", "E2"))

	result := e.eng.Update(ctx, "X", targetID, UpdateOptions{})
	if !result.Success {
		t.Fatalf("Update: %+v", result)
	}
	if len(result.NewReferences) != 1 || !result.NewReferences[0].Success {
		t.Fatalf("newReferences = %+v", result.NewReferences)
	}

	rel, _ := e.store.Get(ctx, "X", targetID)
	e2CloneID := rel.CloneMapping["Entry:E2"]
	if e2CloneID == "" {
		t.Fatal("clone map did not grow for E2")
	}
	if got := fieldString(t, e.srv.Entry(e2CloneID), "content"); got != "IT:Neuer Block" {
		t.Errorf("E2 clone content = %q", got)
	}

	// Parent link list re-projected in source order.
	want := []string{rel.CloneMapping["Entry:E1"], e2CloneID}
	got := fieldLinkIDs(e.srv.Entry(targetID), "elements")
	if !slices.Equal(got, want) {
		t.Errorf("elements = %v, want %v", got, want)
	}
}

func TestIncrementalRemovedReference(t *testing.T) {
	e := newTestEnv(t)
	seedS1(e)
	targetID := cloneS1(t, e)
	ctx := context.Background()

	e.srv.AddEntry("E2", "scText", map[string]cms.LocalizedValue{"content": str("Bleibt")})
	e.srv.SetField("X", "elements", links("E1", "E2"))
	if res := e.eng.Update(ctx, "X", targetID, UpdateOptions{}); !res.Success {
		t.Fatalf("setup update: %+v", res)
	}

	rel, _ := e.store.Get(ctx, "X", targetID)
	e1CloneID := rel.CloneMapping["Entry:E1"]
	e2CloneID := rel.CloneMapping["Entry:E2"]
	translatorCallsBefore := e.trans.callCount()

	// E1 is dropped from the source list.
	e.srv.SetField("X", "elements", links("E2"))

	result := e.eng.Update(ctx, "X", targetID, UpdateOptions{})
	if !result.Success {
		t.Fatalf("Update: %+v", result)
	}
	// Removal alone requires no translation work.
	if e.trans.callCount() != translatorCallsBefore {
		t.Errorf("translator called %d times for a removal",
			e.trans.callCount()-translatorCallsBefore)
	}

	got := fieldLinkIDs(e.srv.Entry(targetID), "elements")
	if !slices.Equal(got, []string{e2CloneID}) {
		t.Errorf("elements = %v, want [%s]", got, e2CloneID)
	}

	// The orphaned clone is left in place, not deleted.
	if e.srv.Entry(e1CloneID) == nil {
		t.Error("removed reference's clone was deleted")
	}
}

func TestIncrementalUpdateWithoutRelationship(t *testing.T) {
	e := newTestEnv(t)
	result := e.eng.Update(context.Background(), "ghost", "ghost2", UpdateOptions{})
	if result.Success {
		t.Fatal("update without relationship should fail")
	}
	if result.FieldsUpdated == nil || len(result.FieldsUpdated) != 0 {
		t.Errorf("fieldsUpdated = %v, want empty", result.FieldsUpdated)
	}
	if result.Error == "" {
		t.Error("error message missing")
	}
}

func TestRebuildDeepReferences(t *testing.T) {
	e := newTestEnv(t)
	seedS1(e)
	targetID := cloneS1(t, e)
	ctx := context.Background()

	stats, err := e.eng.DeepReferenceStats(ctx, "X", targetID)
	if err != nil {
		t.Fatalf("DeepReferenceStats: %v", err)
	}
	if stats.TotalRefs != 2 { // X + E1 (authors are untracked)
		t.Errorf("totalRefs = %d, want 2", stats.TotalRefs)
	}

	e.srv.AddEntry("E2", "scText", map[string]cms.LocalizedValue{"content": str("mehr")})
	e.srv.SetField("X", "elements", links("E1", "E2"))

	stats, err = e.eng.RebuildDeepReferences(ctx, "X", targetID)
	if err != nil {
		t.Fatalf("RebuildDeepReferences: %v", err)
	}
	if stats.TotalRefs != 3 {
		t.Errorf("totalRefs after rebuild = %d, want 3", stats.TotalRefs)
	}
}
