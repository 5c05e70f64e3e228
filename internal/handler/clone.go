// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/lingoclone-go/internal/engine"
)

// CloneRequest is the POST /api/clone body. Either targetLanguage or
// targetLanguages must be set.
type CloneRequest struct {
	SourceEntryID   string   `json:"sourceEntryId"`
	SpaceID         string   `json:"spaceId,omitempty"`
	EnvironmentID   string   `json:"environmentId,omitempty"`
	SourceLanguage  string   `json:"sourceLanguage,omitempty"`
	TargetLanguage  string   `json:"targetLanguage,omitempty"`
	TargetLanguages []string `json:"targetLanguages,omitempty"`
}

// CloneResponse is the POST /api/clone response. ClonedEntryID and
// CloneMapping describe the first target language that cloned successfully;
// AllResults carries one
// result per requested language.
type CloneResponse struct {
	OriginalEntryID string                `json:"originalEntryId"`
	ClonedEntryID   string                `json:"clonedEntryId,omitempty"`
	CloneMapping    map[string]string     `json:"cloneMapping,omitempty"`
	AllResults      []*engine.CloneResult `json:"allResults"`
	TargetLocales   []string              `json:"targetLocales"`
}

// Clone handles POST /api/clone.
func (h *Handler) Clone(w http.ResponseWriter, r *http.Request) {
	var req CloneRequest
	if err := decodeJSONBody(r, &req); err != nil {
		WriteBadRequest(w, "Invalid JSON body: "+err.Error())
		return
	}
	if req.SourceEntryID == "" {
		WriteBadRequest(w, "sourceEntryId is required")
		return
	}

	targets := req.TargetLanguages
	if len(targets) == 0 {
		if req.TargetLanguage == "" {
			WriteBadRequest(w, "targetLanguage or targetLanguages is required")
			return
		}
		targets = []string{req.TargetLanguage}
	}

	eng := h.scopedEngine(req.SpaceID, req.EnvironmentID)

	resp := CloneResponse{
		OriginalEntryID: req.SourceEntryID,
		AllResults:      make([]*engine.CloneResult, 0, len(targets)),
		TargetLocales:   make([]string, 0, len(targets)),
	}

	for _, targetLang := range targets {
		result, err := eng.Clone(r.Context(), engine.CloneRequest{
			SourceEntryID:  req.SourceEntryID,
			SourceLanguage: req.SourceLanguage,
			TargetLanguage: targetLang,
		})
		if err != nil {
			h.logger.Error("clone failed",
				"source", req.SourceEntryID,
				"target_lang", targetLang,
				"error", err)
			result = &engine.CloneResult{
				OriginalEntryID: req.SourceEntryID,
				TargetLanguage:  targetLang,
				Error:           err.Error(),
			}
		}
		resp.AllResults = append(resp.AllResults, result)
		if result.TargetLocale != "" {
			resp.TargetLocales = append(resp.TargetLocales, result.TargetLocale)
		}
		if resp.ClonedEntryID == "" && result.Success {
			resp.ClonedEntryID = result.ClonedEntryID
			resp.CloneMapping = result.CloneMapping
		}
	}

	if resp.ClonedEntryID == "" {
		// Every language failed; each error is in AllResults.
		WriteJSON(w, http.StatusBadGateway, resp)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}
