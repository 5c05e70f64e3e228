// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cms

// Link is a decoded reference to another entry or asset.
type Link struct {
	LinkType string
	ID       string
}

// IsEntry reports whether the link targets an entry.
func (l Link) IsEntry() bool { return l.LinkType == LinkTypeEntry }

// IsAsset reports whether the link targets an asset.
func (l Link) IsAsset() bool { return l.LinkType == LinkTypeAsset }

// AsLink decodes a raw field value into a Link if it has the link shape
// {"sys": {"type": "Link", "linkType": ..., "id": ...}}.
func AsLink(v any) (Link, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Link{}, false
	}
	sys, ok := m["sys"].(map[string]any)
	if !ok {
		return Link{}, false
	}
	if t, _ := sys["type"].(string); t != "Link" {
		return Link{}, false
	}
	linkType, _ := sys["linkType"].(string)
	id, _ := sys["id"].(string)
	if linkType == "" || id == "" {
		return Link{}, false
	}
	return Link{LinkType: linkType, ID: id}, true
}

// NewLinkValue builds the raw value for a link to the given target.
func NewLinkValue(linkType, id string) map[string]any {
	return map[string]any{
		"sys": map[string]any{
			"type":     "Link",
			"linkType": linkType,
			"id":       id,
		},
	}
}

// LinksIn collects every link reachable in a raw value: a single link, an
// array of links, or a mixed array. Non-link elements are ignored.
func LinksIn(v any) []Link {
	if l, ok := AsLink(v); ok {
		return []Link{l}
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var links []Link
	for _, el := range arr {
		if l, ok := AsLink(el); ok {
			links = append(links, l)
		}
	}
	return links
}

// ContainsLinks reports whether the raw value holds at least one link.
func ContainsLinks(v any) bool {
	return len(LinksIn(v)) > 0
}

// LocaleLinks collects links across every locale of a localized value.
func LocaleLinks(lv LocalizedValue) []Link {
	var links []Link
	for _, v := range lv {
		links = append(links, LinksIn(v)...)
	}
	return links
}

// StringIn returns the string value under the given locale, or "".
func StringIn(lv LocalizedValue, locale string) string {
	if lv == nil {
		return ""
	}
	s, _ := lv[locale].(string)
	return s
}

// FirstString returns the first non-empty string value in any locale.
func FirstString(lv LocalizedValue) (string, bool) {
	for _, v := range lv {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
