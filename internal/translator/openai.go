// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const openAIDefaultModel = openai.ChatModelGPT4oMini

// openAILanguages is the static capability list for the OpenAI provider;
// there is no language discovery endpoint.
var openAILanguages = []Language{
	{Code: "DE", Name: "German"},
	{Code: "EN", Name: "English"},
	{Code: "EN-GB", Name: "English (British)"},
	{Code: "EN-US", Name: "English (American)"},
	{Code: "FR", Name: "French"},
	{Code: "FR-CA", Name: "French (Canadian)"},
	{Code: "IT", Name: "Italian"},
	{Code: "NL", Name: "Dutch"},
	{Code: "NL-BE", Name: "Dutch (Belgian)"},
	{Code: "ES", Name: "Spanish"},
	{Code: "PT-PT", Name: "Portuguese (European)"},
	{Code: "PL", Name: "Polish"},
}

// OpenAI implements Translator on top of chat completions. It is an
// alternate provider for deployments without a DeepL subscription.
type OpenAI struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAI creates an OpenAI-backed translator.
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openAIDefaultModel,
	}
}

// Name identifies the provider.
func (o *OpenAI) Name() string { return "openai" }

// Translate translates text with a translation-only system prompt.
func (o *OpenAI) Translate(ctx context.Context, text, sourceLang, targetLang string, opts Options) (string, error) {
	var sb strings.Builder
	sb.WriteString("You are a professional translator. Translate the user's text")
	if sourceLang != "" {
		fmt.Fprintf(&sb, " from %s", sourceLang)
	}
	fmt.Fprintf(&sb, " to %s.", targetLang)
	sb.WriteString(" Output only the translation, nothing else.")
	if opts.PreserveFormatting {
		sb.WriteString(" Preserve all formatting, whitespace and line breaks exactly.")
	}
	if opts.TagHandling == "xml" {
		sb.WriteString(" Leave XML/HTML tags and markdown syntax untranslated and in place.")
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(sb.String()),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai translate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Usage reports no quota; chat completions are billed per token, not per
// character.
func (o *OpenAI) Usage(_ context.Context) (*Usage, error) {
	return &Usage{}, nil
}

// SourceLanguages lists supported source languages.
func (o *OpenAI) SourceLanguages(_ context.Context) ([]Language, error) {
	return openAILanguages, nil
}

// TargetLanguages lists supported target languages.
func (o *OpenAI) TargetLanguages(_ context.Context) ([]Language, error) {
	return openAILanguages, nil
}
