// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/olegiv/lingoclone-go/internal/cache"
	"github.com/olegiv/lingoclone-go/internal/store"
	"github.com/olegiv/lingoclone-go/internal/translator"
)

// translatorStatusTTL bounds how often the status endpoint hits the
// translator API for quota and language lists.
const translatorStatusTTL = time.Hour

// HealthStatus is the GET /health response.
type HealthStatus struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	Version      string `json:"version,omitempty"`
	StoreBackend string `json:"storeBackend,omitempty"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	status := HealthStatus{
		Status: "ok",
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.version != nil {
		status.Version = h.version.Version
	}
	if c, ok := h.store.(*store.Composite); ok {
		status.StoreBackend = c.LastBackend()
	}
	WriteJSON(w, http.StatusOK, status)
}

// TranslatorStatus is the GET /api/deepl/status response.
type TranslatorStatus struct {
	Provider        string                `json:"provider"`
	Reachable       bool                  `json:"reachable"`
	Usage           *translator.Usage     `json:"usage,omitempty"`
	SourceLanguages []translator.Language `json:"sourceLanguages,omitempty"`
	TargetLanguages []translator.Language `json:"targetLanguages,omitempty"`
	Error           string                `json:"error,omitempty"`
}

// DeepLStatus handles GET /api/deepl/status: translator reachability,
// quota and supported languages. Results are cached.
func (h *Handler) DeepLStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := TranslatorStatus{Provider: h.translator.Name()}

	if cached, err := h.cache.Get(ctx, "translator_status"); err == nil {
		if json.Unmarshal(cached, &status) == nil {
			WriteJSON(w, http.StatusOK, status)
			return
		}
	}

	usage, err := h.translator.Usage(ctx)
	if err != nil {
		status.Error = err.Error()
		WriteJSON(w, http.StatusOK, status)
		return
	}
	status.Reachable = true
	status.Usage = usage

	if langs, err := h.translator.SourceLanguages(ctx); err == nil {
		status.SourceLanguages = langs
	} else {
		h.logger.Warn("fetching source languages failed", "error", err)
	}
	if langs, err := h.translator.TargetLanguages(ctx); err == nil {
		status.TargetLanguages = langs
	} else {
		h.logger.Warn("fetching target languages failed", "error", err)
	}

	if data, err := json.Marshal(status); err == nil {
		if err := h.cache.Set(ctx, "translator_status", data, translatorStatusTTL); err != nil &&
			err != cache.ErrCacheClosed {
			h.logger.Warn("caching translator status failed", "error", err)
		}
	}

	WriteJSON(w, http.StatusOK, status)
}
