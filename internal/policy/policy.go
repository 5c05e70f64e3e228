// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package policy implements the field classifier and clone policies. All
// functions are pure; a Policy value is immutable after construction.
package policy

import (
	"strings"
	"time"

	"github.com/olegiv/lingoclone-go/internal/cms"
)

// FieldKind is the resolved behavior of one (contentType, field) pair. The
// engine dispatches on this enum instead of ad-hoc string checks.
type FieldKind int

// Field kinds. Declaration order is not precedence; see Classify.
const (
	KindOpaque FieldKind = iota // pass through unchanged
	KindEmptyOnClone
	KindCopyAsIs
	KindAuthorLink
	KindCulture
	KindMarkdown
	KindText  // plain translatable text
	KindLinks // link or list of links, needs recursion
)

// String returns the kind name for logging.
func (k FieldKind) String() string {
	switch k {
	case KindEmptyOnClone:
		return "empty"
	case KindCopyAsIs:
		return "copy"
	case KindAuthorLink:
		return "author"
	case KindCulture:
		return "culture"
	case KindMarkdown:
		return "markdown"
	case KindText:
		return "text"
	case KindLinks:
		return "links"
	default:
		return "opaque"
	}
}

// ClonePrefix is the default prefix prepended to selected fields of a clone.
const ClonePrefix = "[Clone] "

// Policy bundles every field policy table. Build one with DefaultPolicy and
// adjust fields before first use; request-level overrides get their own copy.
type Policy struct {
	Prefix       string
	PrefixFields map[string]bool

	EmptyOnClone map[string]bool
	CopyAsIs     map[string]bool

	AuthorFields      map[string]bool
	AuthorContentType string

	// MarkdownFields maps content-type id to the set of markdown field ids.
	MarkdownFields map[string]map[string]bool

	// NonTranslatable is the denylist for the translatable predicate.
	NonTranslatable map[string]bool

	// UntrackedFields are link fields the reference tracker does not follow.
	UntrackedFields map[string]bool

	// Cultures maps provider language codes to stored locale tags.
	Cultures CultureMap
}

// DefaultPolicy returns the built-in policy tables.
func DefaultPolicy() *Policy {
	return &Policy{
		Prefix:       ClonePrefix,
		PrefixFields: set("title"),

		EmptyOnClone: set("slug", "parentPage", "productionUrl", "authors"),
		CopyAsIs: set("domain", "pageType", "productionUrl", "makeModel",
			"publicationDate", "lastModificationDate", "makeIds", "modelIds", "trackingName"),

		AuthorFields:      set("authors"),
		AuthorContentType: "author",

		MarkdownFields: map[string]map[string]bool{
			"cmsPage":     set("teaserText"),
			"scText":      set("content"),
			"scSuperhero": set("text", "bulletList"),
			"scTeaser":    set("teaserText"),
			"scQuote":     set("quoteText"),
		},

		NonTranslatable: set("slug", "internalName", "culture", "domain", "pageType",
			"publicationDate", "lastModificationDate", "trackingName", "fieldStatus",
			"automationTags", "featureFlags", "makeIds", "modelIds", "makeModel",
			"productionUrl", "parentPage"),

		UntrackedFields: set("parentPage", "authors", "makeModel", "makeIds",
			"modelIds", "trackingName", "internalName", "fieldStatus",
			"automationTags", "culture", "domain", "pageType"),

		Cultures: DefaultCultureMap(),
	}
}

func set(ids ...string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// Classify resolves the behavior for one field occurrence. Precedence
// follows the clone algorithm: author link (when links are present),
// empty-set, copy-as-is, culture, markdown, links, translatable text, opaque.
func (p *Policy) Classify(contentTypeID string, field *cms.ContentTypeField, value cms.LocalizedValue) FieldKind {
	switch {
	case p.AuthorFields[field.ID] && hasLinks(value):
		// Author re-link wins over empty-on-clone when links are present;
		// an empty author field still clones empty.
		return KindAuthorLink
	case p.EmptyOnClone[field.ID]:
		return KindEmptyOnClone
	case p.CopyAsIs[field.ID]:
		return KindCopyAsIs
	case p.IsCultureField(field.ID):
		return KindCulture
	case p.IsMarkdownField(contentTypeID, field.ID):
		return KindMarkdown
	case field.IsLinkField() || hasLinks(value):
		return KindLinks
	case p.Translatable(field, value):
		return KindText
	default:
		return KindOpaque
	}
}

// IsCultureField reports whether a field names the stored locale. Any field
// id containing "culture" qualifies.
func (p *Policy) IsCultureField(fieldID string) bool {
	return strings.Contains(strings.ToLower(fieldID), "culture")
}

// IsMarkdownField reports whether the field is on the per-content-type
// markdown allowlist.
func (p *Policy) IsMarkdownField(contentTypeID, fieldID string) bool {
	return p.MarkdownFields[contentTypeID][fieldID]
}

// IsPrefixField reports whether the clone prefix applies to the field.
func (p *Policy) IsPrefixField(fieldID string) bool {
	return p.PrefixFields[fieldID]
}

// IsTrackable reports whether the reference tracker follows a link field.
func (p *Policy) IsTrackable(fieldID string) bool {
	return !p.UntrackedFields[fieldID]
}

// Translatable is the translatable predicate: the field is not a system or
// denylisted field, is not a link or list of links, and its value resolves
// to a non-empty string in some locale.
func (p *Policy) Translatable(field *cms.ContentTypeField, value cms.LocalizedValue) bool {
	if field == nil || p.NonTranslatable[field.ID] || field.ID == "id" {
		return false
	}
	if field.IsLinkField() || hasLinks(value) {
		return false
	}
	_, ok := cms.FirstString(value)
	return ok
}

// ApplyPrefix prepends the clone prefix unless already present.
func (p *Policy) ApplyPrefix(s string) string {
	if strings.HasPrefix(s, p.Prefix) {
		return s
	}
	return p.Prefix + s
}

// StripPrefix detaches the clone prefix. The second result reports whether
// the prefix was present; callers re-prepend it verbatim after translation.
func (p *Policy) StripPrefix(s string) (string, bool) {
	if strings.HasPrefix(s, p.Prefix) {
		return s[len(p.Prefix):], true
	}
	return s, false
}

// EmptyValue returns the typed empty value for a field shape: "" for
// strings, [] for arrays, {} for objects. Fields with no typed default
// return ok=false and are skipped.
func EmptyValue(field *cms.ContentTypeField) (any, bool) {
	switch field.Type {
	case cms.FieldTypeSymbol, cms.FieldTypeText:
		return "", true
	case cms.FieldTypeArray:
		return []any{}, true
	case cms.FieldTypeObject:
		return map[string]any{}, true
	default:
		return nil, false
	}
}

// DefaultValue returns the type-specific default for a required field absent
// in the source: the first enum symbol when the schema validates membership,
// otherwise a zero of the field's shape.
func DefaultValue(field *cms.ContentTypeField, now time.Time) (any, bool) {
	if enum := field.EnumValues(); len(enum) > 0 {
		return enum[0], true
	}
	switch field.Type {
	case cms.FieldTypeInteger, cms.FieldTypeNumber:
		return 0, true
	case cms.FieldTypeBoolean:
		return false, true
	case cms.FieldTypeDate:
		return now.UTC().Format(time.RFC3339), true
	case cms.FieldTypeSymbol, cms.FieldTypeText:
		return "", true
	case cms.FieldTypeArray:
		return []any{}, true
	case cms.FieldTypeObject:
		return map[string]any{}, true
	default:
		return nil, false
	}
}

func hasLinks(value cms.LocalizedValue) bool {
	for _, v := range value {
		if cms.ContainsLinks(v) {
			return true
		}
	}
	return false
}
