// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/olegiv/lingoclone-go/internal/model"
	"github.com/olegiv/lingoclone-go/internal/translator"
)

// imageBlock is one markdown image occurrence `![caption](url)`.
type imageBlock struct {
	raw     string
	caption string
	url     string
}

// placeholder returns the XML-shaped token standing in for block i. Tag
// handling keeps it intact through translation.
func placeholder(i int) string {
	return fmt.Sprintf(`<ph id="img-%d"/>`, i)
}

// translateMarkdown translates a markdown string. Image blocks are swapped
// for placeholder tokens, the body is translated in one call with
// formatting preservation and tag handling, captions are translated
// independently, and the blocks are reassembled with their original URLs.
// Every failure path keeps source content.
func (e *Engine) translateMarkdown(ctx context.Context, markdown string, tctx model.TranslationContext) string {
	if !worthTranslating(markdown) {
		return markdown
	}

	blocks := extractImageBlocks(markdown)

	body := markdown
	for i, b := range blocks {
		body = strings.Replace(body, b.raw, placeholder(i), 1)
	}

	translated, err := e.translator.Translate(ctx, body, tctx.SourceLanguage, tctx.TargetLanguage, translator.Options{
		PreserveFormatting: true,
		TagHandling:        "xml",
	})
	if err != nil {
		e.logger.Warn("markdown translation failed, keeping source text",
			"target_lang", tctx.TargetLanguage,
			"error", err)
		translated = body
	}

	for i, b := range blocks {
		ph := placeholder(i)
		if !strings.Contains(translated, ph) {
			// The translator mangled a placeholder; the reassembled text
			// would lose an image. Keep the whole source string instead.
			e.logger.Warn("image placeholder lost in translation, keeping source markdown")
			return markdown
		}
		translated = strings.Replace(translated, ph, e.translateImageBlock(ctx, b, tctx), 1)
	}
	return translated
}

// translateImageBlock rebuilds one image block with a translated caption.
// The URL is preserved exactly; a caption failure falls back to the
// original block.
func (e *Engine) translateImageBlock(ctx context.Context, b imageBlock, tctx model.TranslationContext) string {
	if !worthTranslating(b.caption) {
		return b.raw
	}
	caption, err := e.translator.Translate(ctx, b.caption, tctx.SourceLanguage, tctx.TargetLanguage, translator.Options{
		PreserveFormatting: true,
	})
	if err != nil {
		e.logger.Warn("image caption translation failed, keeping original block", "error", err)
		return b.raw
	}
	return "![" + caption + "](" + b.url + ")"
}

// extractImageBlocks finds every image in the markdown AST, in document
// order.
func extractImageBlocks(source string) []imageBlock {
	src := []byte(source)
	doc := goldmark.DefaultParser().Parse(gmtext.NewReader(src))

	var blocks []imageBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		caption := nodeText(img, src)
		url := string(img.Destination)
		raw := "![" + caption + "](" + url + ")"
		if strings.Contains(source, raw) {
			blocks = append(blocks, imageBlock{raw: raw, caption: caption, url: url})
		}
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

// nodeText concatenates the text content of a node's children.
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		} else {
			sb.WriteString(nodeText(c, source))
		}
	}
	return sb.String()
}
