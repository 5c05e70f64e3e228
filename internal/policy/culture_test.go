// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package policy

import "testing"

func TestLocaleFor(t *testing.T) {
	m := DefaultCultureMap()

	tests := []struct {
		code   string
		want   string
		wantOK bool
	}{
		{"DE", "de-DE", true},
		{"de", "de-DE", true},
		{"IT", "it-IT", true},
		{"EN", "en-GB", true},
		{"EN-GB", "en-GB", true},
		{"FR-CA", "fr-CA", true},
		{"NL-BE", "nl-BE", true},
		{"PT-PT", "pt-PT", true},
		{"???", "", false},
	}
	for _, tt := range tests {
		got, ok := m.LocaleFor(tt.code)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("LocaleFor(%q) = %q, %v; want %q, %v", tt.code, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestProviderFor(t *testing.T) {
	m := DefaultCultureMap()

	tests := []struct {
		locale string
		want   string
		wantOK bool
	}{
		{"de-DE", "DE", true},
		{"it-IT", "IT", true},
		{"en-GB", "EN-GB", true},
		{"en-US", "EN-US", true},
		{"fr-CA", "FR-CA", true},
		{"not a locale!", "", false},
	}
	for _, tt := range tests {
		got, ok := m.ProviderFor(tt.locale)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ProviderFor(%q) = %q, %v; want %q, %v", tt.locale, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestProviderForUnknownRegionFallsBackToBase(t *testing.T) {
	m := DefaultCultureMap()
	got, ok := m.ProviderFor("de-AT")
	if !ok || got != "DE" {
		t.Errorf("ProviderFor(de-AT) = %q, %v; want DE", got, ok)
	}
}
