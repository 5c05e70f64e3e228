// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package reftree

import (
	"testing"

	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/policy"
)

const testLocale = "en-US-POSIX"

func TestHashValueDeterministic(t *testing.T) {
	a := map[string]any{"b": 1, "a": "x", "c": []any{"one", "two"}}
	b := map[string]any{"c": []any{"one", "two"}, "a": "x", "b": 1}
	if HashValue(a) != HashValue(b) {
		t.Error("equal maps should hash equal regardless of insertion order")
	}
	if HashValue(a) == HashValue(map[string]any{"a": "y"}) {
		t.Error("different values should hash differently")
	}
}

func TestHashFieldsTranslatableOnly(t *testing.T) {
	p := policy.DefaultPolicy()
	ct := &cms.ContentType{
		Sys: cms.Sys{ID: "scText"},
		Fields: []cms.ContentTypeField{
			{ID: "internalName", Type: cms.FieldTypeSymbol},
			{ID: "content", Type: cms.FieldTypeText},
			{ID: "ref", Type: cms.FieldTypeLink, LinkType: "Entry"},
		},
	}
	entry := &cms.Entry{
		Sys: cms.Sys{ID: "E1"},
		Fields: map[string]cms.LocalizedValue{
			"internalName": {testLocale: "text block 1"},
			"content":      {testLocale: "Mehr lesen"},
			"ref":          {testLocale: cms.NewLinkValue(cms.LinkTypeEntry, "E2")},
		},
	}

	contentHash, fieldHashes := HashFields(entry, ct, p)
	if contentHash == "" {
		t.Fatal("content hash should not be empty")
	}
	if len(fieldHashes) != 1 {
		t.Fatalf("fieldHashes = %v, want only content", fieldHashes)
	}
	if _, ok := fieldHashes["content"]; !ok {
		t.Error("content field hash missing")
	}

	// Changing a non-translatable field must not move the content hash.
	entry.Fields["internalName"] = cms.LocalizedValue{testLocale: "renamed"}
	contentHash2, _ := HashFields(entry, ct, p)
	if contentHash != contentHash2 {
		t.Error("non-translatable change moved the content hash")
	}

	// Changing the translatable field must move it.
	entry.Fields["content"] = cms.LocalizedValue{testLocale: "Weiterlesen"}
	contentHash3, fieldHashes3 := HashFields(entry, ct, p)
	if contentHash == contentHash3 {
		t.Error("translatable change did not move the content hash")
	}
	if fieldHashes["content"] == fieldHashes3["content"] {
		t.Error("translatable change did not move the field hash")
	}
}
