// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package reftree

import (
	"sort"

	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/model"
)

// ChangeType classifies why a reference is reported as changed.
type ChangeType string

// Change reasons. A reference with both a version bump and a content-hash
// change is reported once, tagged "version + content".
const (
	ChangeVersion        ChangeType = "version"
	ChangeContent        ChangeType = "content"
	ChangeVersionContent ChangeType = "version + content"
)

// FieldChangeType classifies one field-level change on a changed reference.
type FieldChangeType string

// Field change kinds.
const (
	FieldAdded    FieldChangeType = "added"
	FieldModified FieldChangeType = "modified"
)

// FieldChange is one field-level difference on a changed reference.
type FieldChange struct {
	FieldName        string          `json:"fieldName"`
	ChangeType       FieldChangeType `json:"changeType"`
	NewValue         any             `json:"newValue,omitempty"`
	IsTranslatable   bool            `json:"isTranslatable"`
	NeedsTranslation bool            `json:"needsTranslation"`
}

// ChangedReference is a reference present in both trees whose content moved.
type ChangedReference struct {
	ID           string        `json:"id"`
	Reason       ChangeType    `json:"reason"`
	Depth        int           `json:"depth"`
	ParentID     string        `json:"parentId,omitempty"`
	ParentField  string        `json:"parentField,omitempty"`
	OldVersion   int           `json:"oldVersion"`
	NewVersion   int           `json:"newVersion"`
	FieldChanges []FieldChange `json:"fieldChanges,omitempty"`
}

// NewReference is a reference present only in the current tree.
type NewReference struct {
	ID          string `json:"id"`
	Depth       int    `json:"depth"`
	ParentID    string `json:"parentId,omitempty"`
	ParentField string `json:"parentField,omitempty"`
}

// RemovedReference is a reference present only in the stored tree.
type RemovedReference struct {
	ID          string `json:"id"`
	Depth       int    `json:"depth"`
	ParentField string `json:"parentField,omitempty"`
}

// Diff is the result of comparing a stored tree against a fresh one.
type Diff struct {
	Changed []ChangedReference `json:"changed"`
	New     []NewReference     `json:"new"`
	Removed []RemovedReference `json:"removed"`
}

// HasChanges reports whether any reference moved.
func (d *Diff) HasChanges() bool {
	return len(d.Changed) > 0 || len(d.New) > 0 || len(d.Removed) > 0
}

// DiffTrees compares the stored snapshot against the current tree. The root
// entry is excluded: root-level field changes are the engine's basic hash
// diff, not a reference change. Output order follows discovery order of the
// respective tree; entries supplies current field values for FieldChanges.
func DiffTrees(stored, current *model.ReferenceTree, entries map[string]*cms.Entry) *Diff {
	d := &Diff{}
	if current == nil {
		return d
	}
	rootID := current.SourceEntryID

	for _, node := range discoveryOrder(current.Root) {
		if node.ID == rootID {
			continue
		}
		old := stored.Lookup(node.ID)
		if old == nil {
			d.New = append(d.New, NewReference{
				ID:          node.ID,
				Depth:       node.Depth,
				ParentID:    node.ParentID,
				ParentField: node.ParentField,
			})
			continue
		}

		versionMoved := node.Version > old.Version
		contentMoved := node.ContentHash != old.ContentHash
		if !versionMoved && !contentMoved {
			continue
		}

		reason := ChangeVersion
		switch {
		case versionMoved && contentMoved:
			reason = ChangeVersionContent
		case contentMoved:
			reason = ChangeContent
		}

		d.Changed = append(d.Changed, ChangedReference{
			ID:           node.ID,
			Reason:       reason,
			Depth:        node.Depth,
			ParentID:     node.ParentID,
			ParentField:  node.ParentField,
			OldVersion:   old.Version,
			NewVersion:   node.Version,
			FieldChanges: fieldChanges(old, node, entries[node.ID]),
		})
	}

	if stored != nil {
		currentFlat := current.FlattenedRefs
		for _, node := range discoveryOrder(stored.Root) {
			if node.ID == rootID {
				continue
			}
			if _, ok := currentFlat[node.ID]; !ok {
				d.Removed = append(d.Removed, RemovedReference{
					ID:          node.ID,
					Depth:       node.Depth,
					ParentField: node.ParentField,
				})
			}
		}
	}

	return d
}

// fieldChanges re-hashes the node's current fields against the stored
// per-field hashes, when available. Only translatable fields carry hashes,
// so every reported change needs translation.
func fieldChanges(old, node *model.ReferenceNode, entry *cms.Entry) []FieldChange {
	if len(node.FieldHashes) == 0 {
		return nil
	}

	names := make([]string, 0, len(node.FieldHashes))
	for name := range node.FieldHashes {
		names = append(names, name)
	}
	sort.Strings(names)

	var changes []FieldChange
	for _, name := range names {
		newHash := node.FieldHashes[name]
		oldHash, had := old.FieldHashes[name]
		if had && oldHash == newHash {
			continue
		}
		changeType := FieldModified
		if !had {
			changeType = FieldAdded
		}
		fc := FieldChange{
			FieldName:        name,
			ChangeType:       changeType,
			IsTranslatable:   true,
			NeedsTranslation: true,
		}
		if entry != nil {
			fc.NewValue = entry.Fields[name]
		}
		changes = append(changes, fc)
	}
	return changes
}

// discoveryOrder lists nodes depth-first, first visit per id only.
func discoveryOrder(root *model.ReferenceNode) []*model.ReferenceNode {
	var out []*model.ReferenceNode
	seen := make(map[string]bool)
	var walk func(n *model.ReferenceNode)
	walk = func(n *model.ReferenceNode) {
		if !seen[n.ID] {
			seen[n.ID] = true
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}
