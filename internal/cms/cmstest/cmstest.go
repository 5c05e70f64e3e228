// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmstest provides an in-memory fake of the CMS Management API for
// tests.
package cmstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/olegiv/lingoclone-go/internal/cms"
)

// Server is an in-memory Management API backed by maps. It supports the
// entry and content-type operations the client uses, including field
// equality queries.
type Server struct {
	mu           sync.Mutex
	entries      map[string]*cms.Entry
	contentTypes map[string]*cms.ContentType
	nextID       int
	failures     map[string]int // entry id -> remaining forced 500s

	httpSrv *httptest.Server
}

// New starts a fake Management API server.
func New() *Server {
	s := &Server{
		entries:      make(map[string]*cms.Entry),
		contentTypes: make(map[string]*cms.ContentType),
		failures:     make(map[string]int),
	}
	s.httpSrv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the server base URL.
func (s *Server) URL() string { return s.httpSrv.URL }

// Close shuts the server down.
func (s *Server) Close() { s.httpSrv.Close() }

// Client returns a cms.Client pointed at this server.
func (s *Server) Client(spaceID, envID string) *cms.Client {
	return cms.NewClient(cms.Options{
		BaseURL:       s.httpSrv.URL,
		Token:         "test-token",
		SpaceID:       spaceID,
		EnvironmentID: envID,
	})
}

// AddContentType registers a schema.
func (s *Server) AddContentType(ct *cms.ContentType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentTypes[ct.Sys.ID] = ct
}

// AddEntry stores an entry with version 1.
func (s *Server) AddEntry(id, contentTypeID string, fields map[string]cms.LocalizedValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &cms.Entry{
		Sys: cms.Sys{
			ID:      id,
			Type:    "Entry",
			Version: 1,
			ContentType: &cms.TypeLink{
				Sys: cms.LinkSys{Type: "Link", LinkType: "ContentType", ID: contentTypeID},
			},
		},
		Fields: fields,
	}
}

// SetFields replaces an entry's fields and bumps its version, simulating an
// editor change in the CMS.
func (s *Server) SetFields(id string, fields map[string]cms.LocalizedValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		panic(fmt.Sprintf("cmstest: no entry %s", id))
	}
	e.Fields = fields
	e.Sys.Version++
}

// SetField replaces one field and bumps the version.
func (s *Server) SetField(id, fieldID string, value cms.LocalizedValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		panic(fmt.Sprintf("cmstest: no entry %s", id))
	}
	e.Fields[fieldID] = value
	e.Sys.Version++
}

// Entry returns a copy of the stored entry, or nil.
func (s *Server) Entry(id string) *cms.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	return copyEntry(e)
}

// EntryCount returns the number of stored entries.
func (s *Server) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// EntriesOfType returns the ids of entries with the given content type.
func (s *Server) EntriesOfType(contentTypeID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, e := range s.entries {
		if e.ContentTypeID() == contentTypeID {
			out = append(out, id)
		}
	}
	return out
}

// FailNextGets forces the next n GETs of an entry to return HTTP 500.
func (s *Server) FailNextGets(id string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// spaces/{space}/environments/{env}/...
	if len(parts) < 4 || parts[0] != "spaces" || parts[2] != "environments" {
		http.NotFound(w, r)
		return
	}
	rest := parts[4:]

	switch {
	case len(rest) == 0:
		writeJSON(w, http.StatusOK, map[string]any{"sys": map[string]any{"id": parts[3], "type": "Environment"}})

	case rest[0] == "content_types" && len(rest) == 2:
		s.handleContentType(w, rest[1])

	case rest[0] == "entries" && len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			s.handleQuery(w, r)
		case http.MethodPost:
			s.handleCreate(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}

	case rest[0] == "entries" && len(rest) == 2:
		id := rest[1]
		switch r.Method {
		case http.MethodGet:
			s.handleGet(w, id)
		case http.MethodPut:
			s.handleUpdate(w, r, id)
		case http.MethodDelete:
			s.handleDelete(w, id)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}

	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleContentType(w http.ResponseWriter, id string) {
	s.mu.Lock()
	ct, ok := s.contentTypes[id]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, nil)
		return
	}
	writeJSON(w, http.StatusOK, ct)
}

func (s *Server) handleGet(w http.ResponseWriter, id string) {
	s.mu.Lock()
	if n := s.failures[id]; n > 0 {
		s.failures[id] = n - 1
		s.mu.Unlock()
		http.Error(w, "forced failure", http.StatusInternalServerError)
		return
	}
	e, ok := s.entries[id]
	var out *cms.Entry
	if ok {
		out = copyEntry(e)
	}
	s.mu.Unlock()
	if out == nil {
		http.NotFound(w, nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	contentType := q.Get("content_type")

	s.mu.Lock()
	var items []*cms.Entry
	for _, e := range s.entries {
		if contentType != "" && e.ContentTypeID() != contentType {
			continue
		}
		if matchesFieldFilters(e, q) {
			items = append(items, copyEntry(e))
		}
	}
	s.mu.Unlock()

	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n < len(items) {
			items = items[:n]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(items), "items": items})
}

func matchesFieldFilters(e *cms.Entry, q map[string][]string) bool {
	for key, values := range q {
		if !strings.HasPrefix(key, "fields.") {
			continue
		}
		// fields.<fieldId>.<locale>
		keyParts := strings.SplitN(strings.TrimPrefix(key, "fields."), ".", 2)
		if len(keyParts) != 2 {
			return false
		}
		fieldID, locale := keyParts[0], keyParts[1]
		got, _ := e.Fields[fieldID][locale].(string)
		if got != values[0] {
			return false
		}
	}
	return true
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	contentTypeID := r.Header.Get("X-Contentful-Content-Type")
	if contentTypeID == "" {
		http.Error(w, "missing content type header", http.StatusBadRequest)
		return
	}
	var body struct {
		Fields map[string]cms.LocalizedValue `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("gen-%d", s.nextID)
	e := &cms.Entry{
		Sys: cms.Sys{
			ID:      id,
			Type:    "Entry",
			Version: 1,
			ContentType: &cms.TypeLink{
				Sys: cms.LinkSys{Type: "Link", LinkType: "ContentType", ID: contentTypeID},
			},
		},
		Fields: body.Fields,
	}
	s.entries[id] = e
	out := copyEntry(e)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	version, _ := strconv.Atoi(r.Header.Get("X-Contentful-Version"))
	var body struct {
		Fields map[string]cms.LocalizedValue `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		http.NotFound(w, nil)
		return
	}
	if version != e.Sys.Version {
		s.mu.Unlock()
		http.Error(w, "version mismatch", http.StatusConflict)
		return
	}
	e.Fields = body.Fields
	e.Sys.Version++
	out := copyEntry(e)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDelete(w http.ResponseWriter, id string) {
	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func copyEntry(e *cms.Entry) *cms.Entry {
	data, _ := json.Marshal(e)
	var out cms.Entry
	_ = json.Unmarshal(data, &out)
	return &out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
