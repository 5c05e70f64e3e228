// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/model"
	"github.com/olegiv/lingoclone-go/internal/policy"
	"github.com/olegiv/lingoclone-go/internal/reftree"
)

// CloneRequest describes a first clone of a source entry into one target
// language. SourceLanguage may be empty for root content-type entries with
// a resolvable culture field.
type CloneRequest struct {
	SourceEntryID  string `json:"sourceEntryId"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
	TargetLanguage string `json:"targetLanguage"`
}

// CloneResult is the structured outcome of a first clone.
type CloneResult struct {
	Success          bool              `json:"success"`
	OriginalEntryID  string            `json:"originalEntryId"`
	ClonedEntryID    string            `json:"clonedEntryId,omitempty"`
	CloneMapping     map[string]string `json:"cloneMapping,omitempty"`
	TargetLanguage   string            `json:"targetLanguage"`
	TargetLocale     string            `json:"targetLocale,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// Clone performs the recursive first clone. The returned error covers input
// validation and fatal CMS failures only; translator failures degrade to
// untranslated text and never fail the clone.
func (e *Engine) Clone(ctx context.Context, req CloneRequest) (*CloneResult, error) {
	if req.SourceEntryID == "" {
		return nil, fmt.Errorf("sourceEntryId is required")
	}
	if req.TargetLanguage == "" {
		return nil, fmt.Errorf("targetLanguage is required")
	}

	source, err := e.cms.GetEntry(ctx, req.SourceEntryID)
	if err != nil {
		return nil, fmt.Errorf("fetching source entry: %w", err)
	}

	sourceLang := req.SourceLanguage
	if sourceLang == "" {
		sourceLang, err = e.detectSourceLanguage(source)
		if err != nil {
			return nil, err
		}
	}

	targetLocale, ok := e.policy.Cultures.LocaleFor(req.TargetLanguage)
	if !ok {
		return nil, fmt.Errorf("unknown target language %q", req.TargetLanguage)
	}

	r := e.newCloneRun(ctx, model.TranslationContext{
		SourceLanguage: sourceLang,
		TargetLanguage: req.TargetLanguage,
	}, targetLocale, nil)

	unlock := e.locks.lock("clone_" + req.SourceEntryID + "_" + req.TargetLanguage)
	defer unlock()

	targetID, err := r.cloneEntry(source)
	if err != nil {
		return nil, fmt.Errorf("cloning entry tree: %w", err)
	}
	if err := r.fixupDeferredLinks(); err != nil {
		e.logger.Warn("cycle link fixup incomplete", "error", err)
	}

	// Persist the relationship, then the initial tree snapshot.
	ct, err := r.schemas.get(ctx, source.ContentTypeID())
	if err != nil {
		return nil, fmt.Errorf("fetching root schema: %w", err)
	}
	_, fieldHashes := reftree.HashFields(source, ct, e.policy)

	now := time.Now().UTC()
	rel := &model.Relationship{
		SourceEntryID: source.Sys.ID,
		TargetEntryID: targetID,
		Metadata: model.RelationshipMetadata{
			LastTranslatedVersion: source.Sys.Version,
			CreatedAt:             now,
			LastUpdated:           now,
		},
		TranslationContext: r.tctx,
		FieldHashes:        fieldHashes,
		CloneMapping:       r.cloneMap,
	}
	if err := e.store.Store(ctx, rel); err != nil {
		return nil, fmt.Errorf("storing relationship: %w", err)
	}

	if build, err := e.tracker.BuildTree(ctx, source); err != nil {
		e.logger.Warn("initial tree snapshot failed", "source", source.Sys.ID, "error", err)
	} else {
		build.Tree.TargetEntryID = targetID
		if err := e.store.StoreDeepMap(ctx, build.Tree); err != nil {
			e.logger.Warn("storing initial tree snapshot failed", "error", err)
		}
	}

	return &CloneResult{
		Success:         true,
		OriginalEntryID: source.Sys.ID,
		ClonedEntryID:   targetID,
		CloneMapping:    r.cloneMap,
		TargetLanguage:  req.TargetLanguage,
		TargetLocale:    targetLocale,
	}, nil
}

// detectSourceLanguage reads the source entry's culture field and maps the
// stored locale back to a provider code. Only root content-type entries
// carry a culture field this path can rely on.
func (e *Engine) detectSourceLanguage(source *cms.Entry) (string, error) {
	if ctID := source.ContentTypeID(); ctID != e.rootContentType {
		return "", fmt.Errorf("sourceLanguage is required for content type %q (auto-detection works for %q only)",
			ctID, e.rootContentType)
	}
	for fieldID, lv := range source.Fields {
		if !e.policy.IsCultureField(fieldID) {
			continue
		}
		locale, ok := cms.FirstString(lv)
		if !ok {
			break
		}
		if code, ok := e.policy.Cultures.ProviderFor(locale); ok {
			return code, nil
		}
		return "", fmt.Errorf("culture %q does not map to a known provider language", locale)
	}
	return "", fmt.Errorf("source entry %s has no culture field; pass sourceLanguage explicitly", source.Sys.ID)
}

// cloneRun is the per-request state of one recursive clone: the in-run
// memo (which is also the clone map), the processing stack, and the schema
// cache.
type cloneRun struct {
	e            *Engine
	ctx          context.Context
	tctx         model.TranslationContext
	targetLocale string
	cloneMap     map[string]string
	processing   map[string]bool
	deferred     map[string]bool // source ids whose links need a second pass
	schemas      *schemaCache
	sources      map[string]*cms.Entry // source entries by id, for fixup
}

// newCloneRun builds run state. seed preloads the memo (incremental updates
// seed it with the stored clone map so shared references resolve to their
// existing targets).
func (e *Engine) newCloneRun(ctx context.Context, tctx model.TranslationContext, targetLocale string, seed map[string]string) *cloneRun {
	cloneMap := make(map[string]string, len(seed))
	for k, v := range seed {
		cloneMap[k] = v
	}
	return &cloneRun{
		e:            e,
		ctx:          ctx,
		tctx:         tctx,
		targetLocale: targetLocale,
		cloneMap:     cloneMap,
		processing:   make(map[string]bool),
		deferred:     make(map[string]bool),
		schemas:      e.newSchemaCache(),
		sources:      make(map[string]*cms.Entry),
	}
}

// cloneEntry clones one entry depth-first and returns the target id. An id
// already in the memo is returned immediately; shared references resolve to
// one shared target.
func (r *cloneRun) cloneEntry(source *cms.Entry) (string, error) {
	key := model.CloneKey(cms.LinkTypeEntry, source.Sys.ID)
	if targetID, ok := r.cloneMap[key]; ok {
		return targetID, nil
	}

	r.processing[source.Sys.ID] = true
	defer delete(r.processing, source.Sys.ID)
	r.sources[source.Sys.ID] = source

	ct, err := r.schemas.get(r.ctx, source.ContentTypeID())
	if err != nil {
		return "", fmt.Errorf("schema for %s: %w", source.Sys.ID, err)
	}

	fields, err := r.buildFields(source, ct)
	if err != nil {
		return "", err
	}

	created, err := r.e.cms.CreateEntry(r.ctx, ct.Sys.ID, fields)
	if err != nil {
		return "", fmt.Errorf("creating clone of %s: %w", source.Sys.ID, err)
	}

	r.cloneMap[key] = created.Sys.ID
	r.e.logger.Info("cloned entry",
		"source", source.Sys.ID,
		"target", created.Sys.ID,
		"content_type", ct.Sys.ID)
	return created.Sys.ID, nil
}

// buildFields produces the new entry's fields, processing schema fields in
// order and dispatching on the classifier.
func (r *cloneRun) buildFields(source *cms.Entry, ct *cms.ContentType) (map[string]cms.LocalizedValue, error) {
	p := r.e.policy
	out := make(map[string]cms.LocalizedValue)

	for i := range ct.Fields {
		field := &ct.Fields[i]
		srcVal, present := source.Fields[field.ID]
		if !present {
			if field.Required {
				if v, ok := requiredDefault(p, field); ok {
					out[field.ID] = cms.LocalizedValue{r.e.storageLocale: v}
				}
			}
			continue
		}

		switch p.Classify(ct.Sys.ID, field, srcVal) {
		case policy.KindEmptyOnClone:
			if v, ok := policy.EmptyValue(field); ok {
				out[field.ID] = cms.LocalizedValue{r.e.storageLocale: v}
			}

		case policy.KindCopyAsIs:
			out[field.ID] = r.rewriteLinksOnly(srcVal)

		case policy.KindAuthorLink:
			lv, err := r.relinkAuthors(srcVal)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.ID, err)
			}
			out[field.ID] = lv

		case policy.KindCulture:
			out[field.ID] = cms.LocalizedValue{r.e.storageLocale: r.targetLocale}

		case policy.KindMarkdown:
			out[field.ID] = r.translateMarkdownValue(srcVal)

		case policy.KindText:
			out[field.ID] = r.translateTextValue(srcVal)

		case policy.KindLinks:
			lv, err := r.cloneLinkValue(source.Sys.ID, srcVal)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.ID, err)
			}
			out[field.ID] = lv

		default: // KindOpaque
			out[field.ID] = srcVal
		}
	}

	// Prefix policy runs after translation on selected scalar fields.
	for i := range ct.Fields {
		field := &ct.Fields[i]
		if !p.IsPrefixField(field.ID) {
			continue
		}
		lv, ok := out[field.ID]
		if !ok {
			continue
		}
		for locale, v := range lv {
			if s, ok := v.(string); ok && s != "" {
				lv[locale] = p.ApplyPrefix(s)
			}
		}
	}

	return out, nil
}

// requiredDefault emits the empty-set value or the type-specific default
// for a required field absent in the source.
func requiredDefault(p *policy.Policy, field *cms.ContentTypeField) (any, bool) {
	if p.EmptyOnClone[field.ID] {
		if v, ok := policy.EmptyValue(field); ok {
			return v, true
		}
	}
	return policy.DefaultValue(field, time.Now())
}

// cloneLinkValue rewrites a link-bearing value, recursing into referenced
// entries. Asset links pass through unchanged and are recorded identity in
// the clone map.
func (r *cloneRun) cloneLinkValue(ownerID string, lv cms.LocalizedValue) (cms.LocalizedValue, error) {
	out := make(cms.LocalizedValue, len(lv))
	for _, locale := range sortedLocales(lv) {
		v, err := r.cloneLinkedItem(ownerID, lv[locale])
		if err != nil {
			return nil, err
		}
		out[locale] = v
	}
	return out, nil
}

func (r *cloneRun) cloneLinkedItem(ownerID string, v any) (any, error) {
	if link, ok := cms.AsLink(v); ok {
		return r.cloneLink(ownerID, link, v)
	}
	arr, ok := v.([]any)
	if !ok {
		return v, nil
	}
	out := make([]any, 0, len(arr))
	for _, el := range arr {
		nv, err := r.cloneLinkedItem(ownerID, el)
		if err != nil {
			return nil, err
		}
		out = append(out, nv)
	}
	return out, nil
}

// cloneLink resolves one link: assets keep identity, cycle hits keep the
// original link for a second pass, everything else clones depth-first.
func (r *cloneRun) cloneLink(ownerID string, link cms.Link, original any) (any, error) {
	if link.IsAsset() {
		r.cloneMap[model.CloneKey(cms.LinkTypeAsset, link.ID)] = link.ID
		return original, nil
	}

	key := model.CloneKey(cms.LinkTypeEntry, link.ID)
	if targetID, ok := r.cloneMap[key]; ok {
		return cms.NewLinkValue(cms.LinkTypeEntry, targetID), nil
	}

	if r.processing[link.ID] {
		// Cycle: the referenced entry is on the processing stack and has no
		// target yet. Emit the original link and patch it once the whole
		// graph is mapped.
		r.deferred[ownerID] = true
		return original, nil
	}

	child, err := r.e.cms.GetEntry(r.ctx, link.ID)
	if err != nil {
		// Unreachable reference: keep the original link, skip the subtree.
		r.e.logger.Warn("referenced entry not fetchable, keeping original link",
			"id", link.ID, "owner", ownerID, "error", err)
		return original, nil
	}

	targetID, err := r.cloneEntry(child)
	if err != nil {
		return nil, err
	}
	return cms.NewLinkValue(cms.LinkTypeEntry, targetID), nil
}

// relinkAuthors redirects author links to existing target-culture authors;
// a miss falls through to a normal clone.
func (r *cloneRun) relinkAuthors(lv cms.LocalizedValue) (cms.LocalizedValue, error) {
	out := make(cms.LocalizedValue, len(lv))
	for _, locale := range sortedLocales(lv) {
		v := lv[locale]
		if link, ok := cms.AsLink(v); ok {
			nv, err := r.relinkAuthor(link, v)
			if err != nil {
				return nil, err
			}
			out[locale] = nv
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			out[locale] = v
			continue
		}
		outArr := make([]any, 0, len(arr))
		for _, el := range arr {
			link, ok := cms.AsLink(el)
			if !ok {
				outArr = append(outArr, el)
				continue
			}
			nv, err := r.relinkAuthor(link, el)
			if err != nil {
				return nil, err
			}
			outArr = append(outArr, nv)
		}
		out[locale] = outArr
	}
	return out, nil
}

func (r *cloneRun) relinkAuthor(link cms.Link, original any) (any, error) {
	if !link.IsEntry() {
		return original, nil
	}
	key := model.CloneKey(cms.LinkTypeEntry, link.ID)
	if targetID, ok := r.cloneMap[key]; ok {
		return cms.NewLinkValue(cms.LinkTypeEntry, targetID), nil
	}

	author, err := r.e.cms.GetEntry(r.ctx, link.ID)
	if err != nil {
		r.e.logger.Warn("author entry not fetchable, keeping original link", "id", link.ID, "error", err)
		return original, nil
	}

	if match := r.findTargetAuthor(author); match != "" {
		r.cloneMap[key] = match
		return cms.NewLinkValue(cms.LinkTypeEntry, match), nil
	}

	targetID, err := r.cloneEntry(author)
	if err != nil {
		return nil, err
	}
	return cms.NewLinkValue(cms.LinkTypeEntry, targetID), nil
}

// findTargetAuthor looks up an existing author with the same name and the
// target culture. Returns "" when no match exists.
func (r *cloneRun) findTargetAuthor(author *cms.Entry) string {
	name, ok := cms.FirstString(author.Fields["name"])
	if !ok {
		return ""
	}
	matches, err := r.e.cms.GetEntries(r.ctx, map[string]string{
		"content_type": r.e.policy.AuthorContentType,
		"fields.name." + r.e.storageLocale:   name,
		"fields.locale." + r.e.storageLocale: r.targetLocale,
		"limit": "1",
	})
	if err != nil {
		r.e.logger.Warn("author lookup failed, falling back to clone", "name", name, "error", err)
		return ""
	}
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Sys.ID
}

// rewriteLinksOnly maps links already in the clone map; scalars and
// unmapped links pass through untouched. Copy-as-is fields never trigger
// recursion.
func (r *cloneRun) rewriteLinksOnly(lv cms.LocalizedValue) cms.LocalizedValue {
	out := make(cms.LocalizedValue, len(lv))
	for locale, v := range lv {
		out[locale] = r.rewriteItem(v)
	}
	return out
}

func (r *cloneRun) rewriteItem(v any) any {
	if link, ok := cms.AsLink(v); ok {
		if link.IsEntry() {
			if targetID, ok := r.cloneMap[model.CloneKey(cms.LinkTypeEntry, link.ID)]; ok {
				return cms.NewLinkValue(cms.LinkTypeEntry, targetID)
			}
		}
		return v
	}
	arr, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, 0, len(arr))
	for _, el := range arr {
		out = append(out, r.rewriteItem(el))
	}
	return out
}

// translateTextValue translates every string value of a localized field.
func (r *cloneRun) translateTextValue(lv cms.LocalizedValue) cms.LocalizedValue {
	out := make(cms.LocalizedValue, len(lv))
	for locale, v := range lv {
		if s, ok := v.(string); ok {
			out[locale] = r.e.translateText(r.ctx, s, r.tctx)
		} else {
			out[locale] = v
		}
	}
	return out
}

// translateMarkdownValue translates markdown strings; bullet-list arrays
// are translated element-wise.
func (r *cloneRun) translateMarkdownValue(lv cms.LocalizedValue) cms.LocalizedValue {
	out := make(cms.LocalizedValue, len(lv))
	for locale, v := range lv {
		switch tv := v.(type) {
		case string:
			out[locale] = r.e.translateMarkdown(r.ctx, tv, r.tctx)
		case []any:
			items := make([]any, 0, len(tv))
			for _, el := range tv {
				if s, ok := el.(string); ok {
					items = append(items, r.e.translateMarkdown(r.ctx, s, r.tctx))
				} else {
					items = append(items, el)
				}
			}
			out[locale] = items
		default:
			out[locale] = v
		}
	}
	return out
}

// fixupDeferredLinks is the second pass after a cycle: every entry that
// emitted an original link gets its link fields re-projected through the
// now-complete clone map.
func (r *cloneRun) fixupDeferredLinks() error {
	for sourceID := range r.deferred {
		targetID, ok := r.cloneMap[model.CloneKey(cms.LinkTypeEntry, sourceID)]
		if !ok {
			continue
		}
		source := r.sources[sourceID]
		if source == nil {
			continue
		}
		target, err := r.e.cms.GetEntry(r.ctx, targetID)
		if err != nil {
			return fmt.Errorf("fetching clone %s for link fixup: %w", targetID, err)
		}

		ct, err := r.schemas.get(r.ctx, source.ContentTypeID())
		if err != nil {
			return err
		}
		changed := false
		for i := range ct.Fields {
			field := &ct.Fields[i]
			srcVal, present := source.Fields[field.ID]
			if !present || !cms.ContainsLinks(srcVal[r.e.storageLocale]) {
				continue
			}
			if r.e.policy.EmptyOnClone[field.ID] {
				continue
			}
			target.Fields[field.ID] = r.rewriteLinksOnly(srcVal)
			changed = true
		}
		if !changed {
			continue
		}
		if _, err := r.e.cms.UpdateEntry(r.ctx, target.Sys.ID, target.Sys.Version, target.Fields); err != nil {
			return fmt.Errorf("updating clone %s after cycle: %w", targetID, err)
		}
	}
	return nil
}

func sortedLocales(lv cms.LocalizedValue) []string {
	locales := make([]string, 0, len(lv))
	for locale := range lv {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	return locales
}
