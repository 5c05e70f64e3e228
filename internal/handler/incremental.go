// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/lingoclone-go/internal/engine"
	"github.com/olegiv/lingoclone-go/internal/model"
	"github.com/olegiv/lingoclone-go/internal/store"
)

// IncrementalStatus handles
// GET /api/incremental/status?entryId&targetLanguage&spaceId&environmentId.
// The target entry is resolved through the stored relationships.
func (h *Handler) IncrementalStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entryID := q.Get("entryId")
	targetLang := q.Get("targetLanguage")
	if entryID == "" {
		WriteBadRequest(w, "entryId is required")
		return
	}

	rel, err := h.resolveRelationship(r, entryID, targetLang)
	if err != nil {
		WriteInternalError(w, "Failed to resolve relationship: "+err.Error())
		return
	}
	if rel == nil {
		WriteJSON(w, http.StatusOK, &engine.StatusResult{
			Changes:   []engine.StatusChange{},
			Conflicts: []string{},
		})
		return
	}

	eng := h.scopedEngine(q.Get("spaceId"), q.Get("environmentId"))
	status, err := eng.Status(r.Context(), rel.SourceEntryID, rel.TargetEntryID)
	if err != nil {
		WriteInternalError(w, "Status check failed: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// resolveRelationship finds the relationship for a source entry and target
// language. Returns nil when none exists.
func (h *Handler) resolveRelationship(r *http.Request, entryID, targetLang string) (*model.Relationship, error) {
	rels, err := h.store.ListBySource(r.Context(), entryID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	for _, rel := range rels {
		if targetLang == "" || rel.TranslationContext.TargetLanguage == targetLang {
			return rel, nil
		}
	}
	return nil, nil
}

// UpdateRequest is the POST /api/incremental/update body.
type UpdateRequest struct {
	SourceEntryID string               `json:"sourceEntryId"`
	TargetEntryID string               `json:"targetEntryId"`
	SpaceID       string               `json:"spaceId,omitempty"`
	EnvironmentID string               `json:"environmentId,omitempty"`
	Options       engine.UpdateOptions `json:"options"`
}

// IncrementalUpdate handles POST /api/incremental/update.
func (h *Handler) IncrementalUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := decodeJSONBody(r, &req); err != nil {
		WriteBadRequest(w, "Invalid JSON body: "+err.Error())
		return
	}
	if req.SourceEntryID == "" || req.TargetEntryID == "" {
		WriteBadRequest(w, "sourceEntryId and targetEntryId are required")
		return
	}

	eng := h.scopedEngine(req.SpaceID, req.EnvironmentID)
	result := eng.Update(r.Context(), req.SourceEntryID, req.TargetEntryID, req.Options)
	if !result.Success {
		WriteJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// Relationships handles GET /api/incremental/relationships/{entryId}:
// every relationship involving the entry, as source or target.
func (h *Handler) Relationships(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryId")
	if entryID == "" {
		WriteBadRequest(w, "entryId is required")
		return
	}

	bySource, err := h.store.ListBySource(r.Context(), entryID)
	if err != nil {
		WriteInternalError(w, "Failed to list relationships: "+err.Error())
		return
	}

	out := make([]*model.Relationship, 0, len(bySource))
	seen := make(map[string]bool)
	for _, rel := range bySource {
		out = append(out, rel)
		seen[rel.RelationshipID()] = true
	}
	if all, err := h.store.ListAll(r.Context()); err == nil {
		for _, rel := range all {
			if rel.TargetEntryID == entryID && !seen[rel.RelationshipID()] {
				out = append(out, rel)
			}
		}
	} else {
		h.logger.Warn("listing all relationships failed", "error", err)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"entryId":       entryID,
		"relationships": out,
	})
}

// Backups handles GET /api/incremental/backups/{entryId}.
func (h *Handler) Backups(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryId")
	if entryID == "" {
		WriteBadRequest(w, "entryId is required")
		return
	}
	backups, err := h.store.ListBackups(r.Context(), entryID)
	if err != nil {
		WriteInternalError(w, "Failed to list backups: "+err.Error())
		return
	}
	if backups == nil {
		backups = []*model.Backup{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"entryId": entryID,
		"backups": backups,
	})
}

// DeepReferences handles GET /api/incremental/deep-references/{sourceId}/{targetId}.
func (h *Handler) DeepReferences(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceId")
	targetID := chi.URLParam(r, "targetId")
	stats, err := h.engine.DeepReferenceStats(r.Context(), sourceID, targetID)
	if errors.Is(err, store.ErrNotFound) {
		WriteNotFound(w, "No tree snapshot stored for this pair")
		return
	}
	if err != nil {
		WriteInternalError(w, "Failed to load tree snapshot: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// RebuildDeepReferences handles
// POST /api/incremental/deep-references/{sourceId}/{targetId}/rebuild.
func (h *Handler) RebuildDeepReferences(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceId")
	targetID := chi.URLParam(r, "targetId")
	stats, err := h.engine.RebuildDeepReferences(r.Context(), sourceID, targetID)
	if err != nil {
		WriteInternalError(w, "Rebuild failed: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
