// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package policy

import (
	"strings"

	"golang.org/x/text/language"
)

// CultureMap maps provider language codes (DE, EN-GB, ...) to stored locale
// tags (de-DE, en-GB, ...) and back.
type CultureMap struct {
	toLocale   map[string]string
	toProvider map[string]string
}

// DefaultCultureMap returns the deployment's culture mapping.
func DefaultCultureMap() CultureMap {
	pairs := map[string]string{
		"DE":    "de-DE",
		"IT":    "it-IT",
		"EN":    "en-GB",
		"EN-GB": "en-GB",
		"EN-US": "en-US",
		"FR":    "fr-FR",
		"FR-CA": "fr-CA",
		"NL":    "nl-NL",
		"NL-BE": "nl-BE",
		"ES":    "es-ES",
		"PT-PT": "pt-PT",
		"PL":    "pl-PL",
	}
	m := CultureMap{
		toLocale:   make(map[string]string, len(pairs)),
		toProvider: make(map[string]string, len(pairs)),
	}
	for code, locale := range pairs {
		m.toLocale[code] = locale
		// Ambiguous inversions (EN and EN-GB both store en-GB) keep whichever
		// code map iteration reaches first; the regional provider codes are
		// pinned explicitly below.
		if _, exists := m.toProvider[strings.ToLower(locale)]; !exists {
			m.toProvider[strings.ToLower(locale)] = code
		}
	}
	m.toProvider["en-gb"] = "EN-GB"
	m.toProvider["en-us"] = "EN-US"
	return m
}

// LocaleFor resolves a provider language code to a stored locale tag.
// Unknown codes are normalized through BCP 47 parsing when possible.
func (m CultureMap) LocaleFor(providerCode string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(providerCode))
	if locale, ok := m.toLocale[code]; ok {
		return locale, true
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	return tag.String(), true
}

// ProviderFor resolves a stored locale tag to a provider language code.
// Used to auto-detect the source language from an entry's culture field.
func (m CultureMap) ProviderFor(locale string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(locale))
	if code, ok := m.toProvider[key]; ok {
		return code, true
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	return strings.ToUpper(base.String()), true
}
