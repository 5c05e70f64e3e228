// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"strings"

	"github.com/olegiv/lingoclone-go/internal/model"
	"github.com/olegiv/lingoclone-go/internal/translator"
)

// minTranslatableRunes is the minimum number of non-space characters a text
// needs before a translator call is worth issuing.
const minTranslatableRunes = 2

// translateText translates plain text best-effort. The clone prefix is
// detached before translating and re-prepended verbatim. Any translator
// error keeps the source text.
func (e *Engine) translateText(ctx context.Context, text string, tctx model.TranslationContext) string {
	if !worthTranslating(text) {
		return text
	}

	body, hadPrefix := e.policy.StripPrefix(text)
	if !worthTranslating(body) {
		return text
	}

	translated, err := e.translator.Translate(ctx, body, tctx.SourceLanguage, tctx.TargetLanguage, translator.Options{
		PreserveFormatting: true,
	})
	if err != nil {
		e.logger.Warn("translation failed, keeping source text",
			"source_lang", tctx.SourceLanguage,
			"target_lang", tctx.TargetLanguage,
			"error", err)
		return text
	}

	if hadPrefix {
		return e.policy.Prefix + translated
	}
	return translated
}

// worthTranslating reports whether the text has at least two non-space
// characters.
func worthTranslating(text string) bool {
	count := 0
	for _, r := range text {
		if !strings.ContainsRune(" \t\n\r", r) {
			count++
			if count >= minTranslatableRunes {
				return true
			}
		}
	}
	return false
}
