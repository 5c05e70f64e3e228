// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	deeplFreeBaseURL = "https://api-free.deepl.com/v2"
	deeplProBaseURL  = "https://api.deepl.com/v2"

	deeplTimeout = 30 * time.Second
)

// DeepL implements Translator against the DeepL v2 API.
type DeepL struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewDeepL creates a DeepL translator. Free-tier keys (suffix ":fx") are
// routed to the free API host.
func NewDeepL(apiKey string) *DeepL {
	baseURL := deeplProBaseURL
	if strings.HasSuffix(apiKey, ":fx") {
		baseURL = deeplFreeBaseURL
	}
	return &DeepL{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: deeplTimeout},
	}
}

// Name identifies the provider.
func (d *DeepL) Name() string { return "deepl" }

// Translate translates text via POST /v2/translate.
func (d *DeepL) Translate(ctx context.Context, text, sourceLang, targetLang string, opts Options) (string, error) {
	body := map[string]any{
		"text":        []string{text},
		"target_lang": targetLang,
	}
	if sourceLang != "" {
		body["source_lang"] = sourceLang
	}
	if opts.PreserveFormatting {
		body["preserve_formatting"] = true
	}
	if opts.TagHandling != "" {
		body["tag_handling"] = opts.TagHandling
	}

	respBody, err := d.doJSON(ctx, http.MethodPost, "/translate", body)
	if err != nil {
		return "", fmt.Errorf("deepl translate: %w", err)
	}

	var result struct {
		Translations []struct {
			DetectedSourceLanguage string `json:"detected_source_language"`
			Text                   string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("deepl decode: %w", err)
	}
	if len(result.Translations) == 0 {
		return "", fmt.Errorf("deepl: no translations returned")
	}
	return result.Translations[0].Text, nil
}

// Usage returns character quota via GET /v2/usage.
func (d *DeepL) Usage(ctx context.Context) (*Usage, error) {
	respBody, err := d.doJSON(ctx, http.MethodGet, "/usage", nil)
	if err != nil {
		return nil, fmt.Errorf("deepl usage: %w", err)
	}
	var result struct {
		CharacterCount int64 `json:"character_count"`
		CharacterLimit int64 `json:"character_limit"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("deepl usage decode: %w", err)
	}
	return &Usage{CharacterCount: result.CharacterCount, CharacterLimit: result.CharacterLimit}, nil
}

// SourceLanguages lists supported source languages.
func (d *DeepL) SourceLanguages(ctx context.Context) ([]Language, error) {
	return d.languages(ctx, "source")
}

// TargetLanguages lists supported target languages.
func (d *DeepL) TargetLanguages(ctx context.Context) ([]Language, error) {
	return d.languages(ctx, "target")
}

func (d *DeepL) languages(ctx context.Context, kind string) ([]Language, error) {
	respBody, err := d.doJSON(ctx, http.MethodGet, "/languages?type="+kind, nil)
	if err != nil {
		return nil, fmt.Errorf("deepl languages: %w", err)
	}
	var result []struct {
		Language string `json:"language"`
		Name     string `json:"name"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("deepl languages decode: %w", err)
	}
	langs := make([]Language, 0, len(result))
	for _, l := range result {
		langs = append(langs, Language{Code: l.Language, Name: l.Name})
	}
	return langs, nil
}

// doJSON performs an authenticated JSON request against the DeepL API.
func (d *DeepL) doJSON(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
