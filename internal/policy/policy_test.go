// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package policy

import (
	"testing"
	"time"

	"github.com/olegiv/lingoclone-go/internal/cms"
)

func loc(v any) cms.LocalizedValue {
	return cms.LocalizedValue{"en-US-POSIX": v}
}

func entryLink(id string) map[string]any {
	return cms.NewLinkValue(cms.LinkTypeEntry, id)
}

func TestClassify(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name        string
		contentType string
		field       cms.ContentTypeField
		value       cms.LocalizedValue
		want        FieldKind
	}{
		{
			name:  "slug is emptied",
			field: cms.ContentTypeField{ID: "slug", Type: cms.FieldTypeSymbol},
			value: loc("welcome-page"),
			want:  KindEmptyOnClone,
		},
		{
			name:  "authors with links are re-linked, not emptied",
			field: cms.ContentTypeField{ID: "authors", Type: cms.FieldTypeArray, Items: &cms.FieldItems{Type: cms.FieldTypeLink, LinkType: "Entry"}},
			value: loc([]any{entryLink("A1")}),
			want:  KindAuthorLink,
		},
		{
			name:  "empty authors field stays empty-on-clone",
			field: cms.ContentTypeField{ID: "authors", Type: cms.FieldTypeArray, Items: &cms.FieldItems{Type: cms.FieldTypeLink, LinkType: "Entry"}},
			value: loc([]any{}),
			want:  KindEmptyOnClone,
		},
		{
			name:  "domain is copied as-is",
			field: cms.ContentTypeField{ID: "domain", Type: cms.FieldTypeSymbol},
			value: loc("example.com"),
			want:  KindCopyAsIs,
		},
		{
			name:  "culture field by substring",
			field: cms.ContentTypeField{ID: "pageCulture", Type: cms.FieldTypeSymbol},
			value: loc("de-DE"),
			want:  KindCulture,
		},
		{
			name:        "markdown per content type",
			contentType: "cmsPage",
			field:       cms.ContentTypeField{ID: "teaserText", Type: cms.FieldTypeText},
			value:       loc("## Hallo"),
			want:        KindMarkdown,
		},
		{
			name:        "same field on another type is plain text",
			contentType: "scText",
			field:       cms.ContentTypeField{ID: "teaserText", Type: cms.FieldTypeText},
			value:       loc("## Hallo"),
			want:        KindText,
		},
		{
			name:  "title is plain text",
			field: cms.ContentTypeField{ID: "title", Type: cms.FieldTypeSymbol},
			value: loc("Willkommen"),
			want:  KindText,
		},
		{
			name:  "link array recurses",
			field: cms.ContentTypeField{ID: "elements", Type: cms.FieldTypeArray, Items: &cms.FieldItems{Type: cms.FieldTypeLink, LinkType: "Entry"}},
			value: loc([]any{entryLink("E1")}),
			want:  KindLinks,
		},
		{
			name:  "number is opaque",
			field: cms.ContentTypeField{ID: "sortOrder", Type: cms.FieldTypeInteger},
			value: loc(float64(5)),
			want:  KindOpaque,
		},
		{
			name:  "empty string is opaque, not text",
			field: cms.ContentTypeField{ID: "subtitle", Type: cms.FieldTypeSymbol},
			value: loc(""),
			want:  KindOpaque,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Classify(tt.contentType, &tt.field, tt.value)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTranslatable(t *testing.T) {
	p := DefaultPolicy()

	title := cms.ContentTypeField{ID: "title", Type: cms.FieldTypeSymbol}
	if !p.Translatable(&title, loc("Hello")) {
		t.Error("title with text should be translatable")
	}
	if p.Translatable(&title, loc("")) {
		t.Error("empty string should not be translatable")
	}

	slug := cms.ContentTypeField{ID: "slug", Type: cms.FieldTypeSymbol}
	if p.Translatable(&slug, loc("hello")) {
		t.Error("denylisted slug should not be translatable")
	}

	ref := cms.ContentTypeField{ID: "hero", Type: cms.FieldTypeLink, LinkType: "Entry"}
	if p.Translatable(&ref, loc(entryLink("E1"))) {
		t.Error("link field should not be translatable")
	}
}

func TestPrefixRoundTrip(t *testing.T) {
	p := DefaultPolicy()

	s := p.ApplyPrefix("Benvenuto")
	if s != "[Clone] Benvenuto" {
		t.Fatalf("ApplyPrefix() = %q", s)
	}
	// Applying twice must not stack prefixes.
	if again := p.ApplyPrefix(s); again != s {
		t.Errorf("ApplyPrefix() stacked prefix: %q", again)
	}

	body, had := p.StripPrefix(s)
	if !had || body != "Benvenuto" {
		t.Errorf("StripPrefix() = %q, %v", body, had)
	}

	body, had = p.StripPrefix("no prefix here")
	if had || body != "no prefix here" {
		t.Errorf("StripPrefix() on plain text = %q, %v", body, had)
	}
}

func TestEmptyValue(t *testing.T) {
	tests := []struct {
		fieldType string
		want      any
		ok        bool
	}{
		{cms.FieldTypeSymbol, "", true},
		{cms.FieldTypeText, "", true},
		{cms.FieldTypeArray, []any{}, true},
		{cms.FieldTypeObject, map[string]any{}, true},
		{cms.FieldTypeLink, nil, false},
		{cms.FieldTypeBoolean, nil, false},
	}
	for _, tt := range tests {
		f := cms.ContentTypeField{ID: "f", Type: tt.fieldType}
		got, ok := EmptyValue(&f)
		if ok != tt.ok {
			t.Errorf("EmptyValue(%s) ok = %v, want %v", tt.fieldType, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		switch want := tt.want.(type) {
		case string:
			if got != want {
				t.Errorf("EmptyValue(%s) = %v", tt.fieldType, got)
			}
		case []any:
			if arr, ok := got.([]any); !ok || len(arr) != 0 {
				t.Errorf("EmptyValue(%s) = %v", tt.fieldType, got)
			}
		case map[string]any:
			if m, ok := got.(map[string]any); !ok || len(m) != 0 {
				t.Errorf("EmptyValue(%s) = %v", tt.fieldType, got)
			}
		}
	}
}

func TestDefaultValue(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	enum := cms.ContentTypeField{
		ID: "pageType", Type: cms.FieldTypeSymbol,
		Validations: []cms.Validation{{In: []string{"article", "landing"}}},
	}
	if v, ok := DefaultValue(&enum, now); !ok || v != "article" {
		t.Errorf("enum default = %v, %v", v, ok)
	}

	boolean := cms.ContentTypeField{ID: "flag", Type: cms.FieldTypeBoolean}
	if v, ok := DefaultValue(&boolean, now); !ok || v != false {
		t.Errorf("bool default = %v, %v", v, ok)
	}

	date := cms.ContentTypeField{ID: "publicationDate", Type: cms.FieldTypeDate}
	if v, ok := DefaultValue(&date, now); !ok || v != "2026-01-15T12:00:00Z" {
		t.Errorf("date default = %v, %v", v, ok)
	}

	link := cms.ContentTypeField{ID: "hero", Type: cms.FieldTypeLink}
	if _, ok := DefaultValue(&link, now); ok {
		t.Error("link field should have no default")
	}
}

func TestIsTrackable(t *testing.T) {
	p := DefaultPolicy()
	if p.IsTrackable("parentPage") {
		t.Error("parentPage should not be trackable")
	}
	if p.IsTrackable("authors") {
		t.Error("authors should not be trackable")
	}
	if !p.IsTrackable("elements") {
		t.Error("elements should be trackable")
	}
}
