// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package reftree

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/model"
	"github.com/olegiv/lingoclone-go/internal/policy"
)

// DefaultMaxDepth bounds reference traversal when no depth is configured.
const DefaultMaxDepth = 3

// Config tunes the tracker.
type Config struct {
	MaxDepth             int
	AutoTranslateNewRefs bool
}

// DefaultConfig returns the tracker defaults.
func DefaultConfig() Config {
	return Config{MaxDepth: DefaultMaxDepth, AutoTranslateNewRefs: true}
}

// Tracker builds reference trees for source entries. A Tracker never
// persists trees itself; only the engine's post-processing hook stores
// snapshots, so a failed update keeps the previous snapshot intact.
type Tracker struct {
	cms    *cms.Client
	policy *policy.Policy
	cfg    Config
	logger *slog.Logger
}

// New creates a Tracker.
func New(client *cms.Client, p *policy.Policy, cfg Config, logger *slog.Logger) *Tracker {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{cms: client, policy: p, cfg: cfg, logger: logger}
}

// Config returns the tracker configuration.
func (t *Tracker) Config() Config { return t.cfg }

// BuildResult is a freshly built tree plus the entries fetched on the way,
// keyed by id. The diff uses the entries to report changed field values
// without re-fetching.
type BuildResult struct {
	Tree    *model.ReferenceTree
	Entries map[string]*cms.Entry
}

// build carries per-build state: the schema cache and fetched entries.
type build struct {
	ctx     context.Context
	t       *Tracker
	schemas map[string]*cms.ContentType
	entries map[string]*cms.Entry
}

// BuildTree builds a bounded-depth reference tree rooted at the given entry.
// Traversal is depth-first in schema field order; assets are skipped;
// cycles are broken by a visited-on-path guard plus the depth cap.
func (t *Tracker) BuildTree(ctx context.Context, root *cms.Entry) (*BuildResult, error) {
	if root == nil {
		return nil, fmt.Errorf("build tree: nil root entry")
	}

	b := &build{
		ctx:     ctx,
		t:       t,
		schemas: make(map[string]*cms.ContentType),
		entries: make(map[string]*cms.Entry),
	}
	b.entries[root.Sys.ID] = root

	onPath := map[string]bool{root.Sys.ID: true}
	rootNode, err := b.node(root, 0, "", "", onPath)
	if err != nil {
		return nil, err
	}

	tree := &model.ReferenceTree{
		SourceEntryID: root.Sys.ID,
		MaxDepth:      t.cfg.MaxDepth,
		LastScanned:   time.Now().UTC(),
		Root:          rootNode,
		FlattenedRefs: Flatten(rootNode),
	}
	return &BuildResult{Tree: tree, Entries: b.entries}, nil
}

// node builds one tree node and recurses into its trackable references.
func (b *build) node(entry *cms.Entry, depth int, parentID, parentField string, onPath map[string]bool) (*model.ReferenceNode, error) {
	ct, err := b.schema(entry.ContentTypeID())
	if err != nil {
		return nil, err
	}

	contentHash, fieldHashes := HashFields(entry, ct, b.t.policy)
	node := &model.ReferenceNode{
		ID:          entry.Sys.ID,
		Version:     entry.Sys.Version,
		Depth:       depth,
		ParentID:    parentID,
		ParentField: parentField,
		ContentHash: contentHash,
		FieldHashes: fieldHashes,
		LastUpdated: entry.Sys.UpdatedAt,
	}

	if depth >= b.t.cfg.MaxDepth {
		return node, nil
	}

	for i := range ct.Fields {
		field := &ct.Fields[i]
		if !b.t.policy.IsTrackable(field.ID) {
			continue
		}
		value, present := entry.Fields[field.ID]
		if !present {
			continue
		}
		for _, link := range localeLinksOrdered(value) {
			if !link.IsEntry() {
				continue // assets are shared by reference, never tracked
			}
			if onPath[link.ID] {
				continue // cycle: already on the current path
			}

			child, err := b.fetch(link.ID)
			if err != nil {
				b.t.logger.Warn("skipping unreachable reference",
					"id", link.ID,
					"parent", entry.Sys.ID,
					"field", field.ID,
					"error", err)
				continue
			}

			onPath[link.ID] = true
			childNode, err := b.node(child, depth+1, entry.Sys.ID, field.ID, onPath)
			delete(onPath, link.ID)
			if err != nil {
				b.t.logger.Warn("skipping reference subtree",
					"id", link.ID,
					"error", err)
				continue
			}
			node.Children = append(node.Children, childNode)
		}
	}

	return node, nil
}

// fetch returns an entry, reusing entries already fetched in this build.
func (b *build) fetch(id string) (*cms.Entry, error) {
	if e, ok := b.entries[id]; ok {
		return e, nil
	}
	e, err := b.t.cms.GetEntry(b.ctx, id)
	if err != nil {
		return nil, err
	}
	b.entries[id] = e
	return e, nil
}

// schema returns a content-type schema, cached per build.
func (b *build) schema(id string) (*cms.ContentType, error) {
	if id == "" {
		return nil, fmt.Errorf("entry has no content type")
	}
	if ct, ok := b.schemas[id]; ok {
		return ct, nil
	}
	ct, err := b.t.cms.GetContentType(b.ctx, id)
	if err != nil {
		return nil, err
	}
	b.schemas[id] = ct
	return ct, nil
}

// localeLinksOrdered collects links across locales in sorted locale order so
// traversal stays deterministic.
func localeLinksOrdered(lv cms.LocalizedValue) []cms.Link {
	locales := make([]string, 0, len(lv))
	for locale := range lv {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	var links []cms.Link
	for _, locale := range locales {
		links = append(links, cms.LinksIn(lv[locale])...)
	}
	return links
}

// Flatten produces the id -> node map of a tree. Children are dropped from
// the flattened copies; the first node discovered for an id wins.
func Flatten(root *model.ReferenceNode) map[string]*model.ReferenceNode {
	flat := make(map[string]*model.ReferenceNode)
	var walk func(n *model.ReferenceNode)
	walk = func(n *model.ReferenceNode) {
		if _, seen := flat[n.ID]; !seen {
			flat[n.ID] = n.WithoutChildren()
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return flat
}
