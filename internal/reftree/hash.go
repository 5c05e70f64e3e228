// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package reftree builds, hashes and diffs bounded-depth reference trees.
package reftree

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/policy"
)

// HashValue returns the sha256 hex digest of the canonical JSON encoding of
// a field value. encoding/json sorts map keys, which makes the encoding
// canonical for the JSON-shaped values the CMS delivers.
func HashValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Field values come from decoded JSON and always re-encode; an
		// error here means a non-JSON value leaked in. Hash its type-less
		// placeholder so the diff flags it as changed rather than panicking.
		data = []byte("\"unencodable\"")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashDoc is one (field, value) pair of the canonical content digest.
// A slice keeps schema field order significant.
type hashDoc struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// HashFields computes the node content hash and per-field hashes over the
// entry's translatable fields only, in schema field order.
func HashFields(entry *cms.Entry, ct *cms.ContentType, p *policy.Policy) (string, map[string]string) {
	var doc []hashDoc
	fieldHashes := make(map[string]string)

	for i := range ct.Fields {
		field := &ct.Fields[i]
		value, present := entry.Fields[field.ID]
		if !present || !p.Translatable(field, value) {
			continue
		}
		doc = append(doc, hashDoc{ID: field.ID, Value: value})
		fieldHashes[field.ID] = HashValue(value)
	}

	return HashValue(doc), fieldHashes
}
