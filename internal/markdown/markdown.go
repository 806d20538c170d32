// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown renders post bodies from Markdown to HTML with goldmark.
// Raw HTML in the source is escaped, not passed through.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"blogapi/internal/models"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// ToHTML converts Markdown source into HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPost fills p.ContentHTML from p.Content. A post without content
// gets an empty ContentHTML.
func RenderPost(p *models.Post) error {
	if p == nil || p.Content == nil || *p.Content == "" {
		if p != nil {
			p.ContentHTML = ""
		}
		return nil
	}
	html, err := ToHTML(*p.Content)
	if err != nil {
		return fmt.Errorf("render post %s: %w", p.ID, err)
	}
	p.ContentHTML = html
	return nil
}
