// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/model"
	"github.com/olegiv/lingoclone-go/internal/reftree"
)

// UpdateOptions tunes one incremental update.
type UpdateOptions struct {
	Reason string `json:"reason,omitempty"`
}

// NewRefResult reports the clone attempt for one newly added reference.
type NewRefResult struct {
	ID       string `json:"id"`
	Success  bool   `json:"success"`
	TargetID string `json:"targetId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UpdateResult is the structured outcome of an incremental update.
type UpdateResult struct {
	Success       bool           `json:"success"`
	FieldsUpdated []string       `json:"fieldsUpdated"`
	BackupID      string         `json:"backupId,omitempty"`
	NewVersion    int            `json:"newVersion,omitempty"`
	Message       string         `json:"message,omitempty"`
	NewReferences []NewRefResult `json:"newReferences,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Update runs an incremental update and never propagates an error past its
// boundary: any failure yields a structured result with an empty
// fieldsUpdated list and the prior stored state untouched.
func (e *Engine) Update(ctx context.Context, sourceID, targetID string, opts UpdateOptions) *UpdateResult {
	res, err := e.update(ctx, sourceID, targetID, opts)
	if err != nil {
		e.logger.Error("incremental update failed",
			"source", sourceID,
			"target", targetID,
			"error", err)
		return &UpdateResult{
			Success:       false,
			FieldsUpdated: []string{},
			Error:         err.Error(),
		}
	}
	return res
}

func (e *Engine) update(ctx context.Context, sourceID, targetID string, opts UpdateOptions) (*UpdateResult, error) {
	unlock := e.lockPair(sourceID, targetID)
	defer unlock()

	rel, err := e.store.Get(ctx, sourceID, targetID)
	if err != nil {
		return nil, fmt.Errorf("loading relationship: %w", err)
	}

	source, err := e.cms.GetEntry(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("fetching source entry: %w", err)
	}
	target, err := e.cms.GetEntry(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("fetching target entry: %w", err)
	}

	// Snapshot the target before touching it.
	reason := opts.Reason
	if reason == "" {
		reason = "incremental update"
	}
	backup := &model.Backup{
		BackupID:  uuid.NewString(),
		EntryID:   targetID,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
		Version:   target.Sys.Version,
		Fields:    fieldsAsAny(target.Fields),
	}
	if err := e.store.StoreBackup(ctx, sourceID, targetID, backup); err != nil {
		e.logger.Warn("backup write failed, continuing", "target", targetID, "error", err)
	}

	// Fresh tree and diff against the stored snapshot.
	build, err := e.tracker.BuildTree(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("building reference tree: %w", err)
	}
	storedTree := rel.DeepReferenceMap
	if storedTree == nil {
		if t, err := e.store.GetDeepMap(ctx, sourceID, targetID); err == nil {
			storedTree = t
		}
	}
	diff := reftree.DiffTrees(storedTree, build.Tree, build.Entries)

	targetLocale, ok := e.policy.Cultures.LocaleFor(rel.TranslationContext.TargetLanguage)
	if !ok {
		return nil, fmt.Errorf("relationship has unknown target language %q", rel.TranslationContext.TargetLanguage)
	}
	r := e.newCloneRun(ctx, rel.TranslationContext, targetLocale, rel.CloneMapping)
	r.sources[sourceID] = source

	var fieldsUpdated []string
	targetChanged := false

	// Root-level basic field changes from the per-field hash diff.
	rootCT, err := r.schemas.get(ctx, source.ContentTypeID())
	if err != nil {
		return nil, fmt.Errorf("fetching root schema: %w", err)
	}
	_, newFieldHashes := reftree.HashFields(source, rootCT, e.policy)
	for _, fieldID := range changedRootFields(rel.FieldHashes, newFieldHashes) {
		srcVal, present := source.Fields[fieldID]
		if !present {
			continue
		}
		translated := r.translateFieldValue(rootCT.Sys.ID, fieldID, srcVal)
		target.Fields[fieldID] = translated
		fieldsUpdated = append(fieldsUpdated, fieldID)
		targetChanged = true
	}

	// Changed references: translate only the changed fields of the mapped
	// target children.
	for _, ref := range diff.Changed {
		updated, err := r.patchChangedReference(ref, build.Entries[ref.ID])
		if err != nil {
			e.logger.Warn("failed to patch changed reference",
				"id", ref.ID, "error", err)
			continue
		}
		fieldsUpdated = append(fieldsUpdated, updated...)
	}

	// New references: clone under the same translation context.
	var newRefs []NewRefResult
	for _, ref := range diff.New {
		entry := build.Entries[ref.ID]
		if entry == nil {
			entry, err = e.cms.GetEntry(ctx, ref.ID)
			if err != nil {
				newRefs = append(newRefs, NewRefResult{ID: ref.ID, Error: err.Error()})
				continue
			}
		}
		cloneID, err := r.cloneEntry(entry)
		if err != nil {
			newRefs = append(newRefs, NewRefResult{ID: ref.ID, Error: err.Error()})
			continue
		}
		newRefs = append(newRefs, NewRefResult{ID: ref.ID, Success: true, TargetID: cloneID})
	}

	// Removed references generate no translation work; the link rewrite
	// below drops them from the parent. The orphan clone stays in place.

	// Re-project every link-bearing root field through the updated clone
	// map so additions appear, removals disappear and order matches the
	// source.
	for i := range rootCT.Fields {
		field := &rootCT.Fields[i]
		srcVal, present := source.Fields[field.ID]
		if !present {
			continue
		}
		if !linkBearing(srcVal) {
			continue
		}
		if e.policy.EmptyOnClone[field.ID] && !e.policy.AuthorFields[field.ID] {
			continue
		}

		var projected cms.LocalizedValue
		if e.policy.AuthorFields[field.ID] {
			projected, err = r.relinkAuthors(srcVal)
			if err != nil {
				e.logger.Warn("author re-link failed during update", "field", field.ID, "error", err)
				continue
			}
		} else {
			projected = r.rewriteLinksOnly(srcVal)
		}

		if reftree.HashValue(target.Fields[field.ID]) != reftree.HashValue(projected) {
			target.Fields[field.ID] = projected
			fieldsUpdated = append(fieldsUpdated, field.ID)
			targetChanged = true
		}
	}

	// One CMS write for the root target; a failure aborts before any
	// relationship or snapshot write so the stored state stays consistent.
	newVersion := target.Sys.Version
	if targetChanged {
		updated, err := e.cms.UpdateEntry(ctx, target.Sys.ID, target.Sys.Version, target.Fields)
		if err != nil {
			return nil, fmt.Errorf("updating target entry: %w", err)
		}
		newVersion = updated.Sys.Version
	}

	// Persist the relationship, then — and only then — the tree snapshot.
	rel.Metadata.LastTranslatedVersion = source.Sys.Version
	rel.Metadata.LastUpdated = time.Now().UTC()
	rel.FieldHashes = newFieldHashes
	rel.CloneMapping = r.cloneMap
	if err := e.store.Store(ctx, rel); err != nil {
		return nil, fmt.Errorf("storing relationship: %w", err)
	}
	build.Tree.TargetEntryID = targetID
	if err := e.store.StoreDeepMap(ctx, build.Tree); err != nil {
		e.logger.Warn("storing tree snapshot failed; next run will re-diff", "error", err)
	}

	if fieldsUpdated == nil {
		fieldsUpdated = []string{}
	}
	msg := fmt.Sprintf("updated %d field(s), %d new reference(s), %d removed",
		len(fieldsUpdated), len(diff.New), len(diff.Removed))
	return &UpdateResult{
		Success:       true,
		FieldsUpdated: fieldsUpdated,
		BackupID:      backup.BackupID,
		NewVersion:    newVersion,
		Message:       msg,
		NewReferences: newRefs,
	}, nil
}

// patchChangedReference translates the changed fields of one referenced
// entry onto its mapped target child. Failures skip the reference and the
// update continues.
func (r *cloneRun) patchChangedReference(ref reftree.ChangedReference, sourceChild *cms.Entry) ([]string, error) {
	childTargetID, ok := r.cloneMap[model.CloneKey(cms.LinkTypeEntry, ref.ID)]
	if !ok {
		return nil, fmt.Errorf("reference %s has no mapped clone", ref.ID)
	}
	if sourceChild == nil {
		return nil, fmt.Errorf("reference %s missing from tree build", ref.ID)
	}

	var toTranslate []reftree.FieldChange
	for _, fc := range ref.FieldChanges {
		if fc.NeedsTranslation {
			toTranslate = append(toTranslate, fc)
		}
	}
	if len(toTranslate) == 0 {
		return nil, nil
	}

	childTarget, err := r.e.cms.GetEntry(r.ctx, childTargetID)
	if err != nil {
		return nil, fmt.Errorf("fetching target child %s: %w", childTargetID, err)
	}

	ctID := sourceChild.ContentTypeID()
	var updated []string
	for _, fc := range toTranslate {
		srcVal, present := sourceChild.Fields[fc.FieldName]
		if !present {
			continue
		}
		childTarget.Fields[fc.FieldName] = r.translateFieldValue(ctID, fc.FieldName, srcVal)
		updated = append(updated, ref.ID+"."+fc.FieldName)
	}
	if len(updated) == 0 {
		return nil, nil
	}

	if _, err := r.e.cms.UpdateEntry(r.ctx, childTarget.Sys.ID, childTarget.Sys.Version, childTarget.Fields); err != nil {
		return nil, fmt.Errorf("updating target child %s: %w", childTargetID, err)
	}
	return updated, nil
}

// translateFieldValue translates one localized value by field policy:
// markdown fields go through the markdown path, everything else through
// plain text; prefix fields keep the clone prefix.
func (r *cloneRun) translateFieldValue(contentTypeID, fieldID string, srcVal cms.LocalizedValue) cms.LocalizedValue {
	var out cms.LocalizedValue
	if r.e.policy.IsMarkdownField(contentTypeID, fieldID) {
		out = r.translateMarkdownValue(srcVal)
	} else {
		out = r.translateTextValue(srcVal)
	}
	if r.e.policy.IsPrefixField(fieldID) {
		for locale, v := range out {
			if s, ok := v.(string); ok && s != "" {
				out[locale] = r.e.policy.ApplyPrefix(s)
			}
		}
	}
	return out
}

// changedRootFields classifies root-level hash differences. Deleted fields
// generate no translation work; added and modified ones do.
func changedRootFields(stored, current map[string]string) []string {
	var out []string
	for _, name := range sortedKeys(current) {
		if stored[name] != current[name] {
			out = append(out, name)
		}
	}
	return out
}

// linkBearing reports whether any locale of the value contains links.
func linkBearing(lv cms.LocalizedValue) bool {
	for _, v := range lv {
		if cms.ContainsLinks(v) {
			return true
		}
	}
	return false
}

func fieldsAsAny(fields map[string]cms.LocalizedValue) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// sortedKeys keeps fieldsUpdated output deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
