/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package content

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/go-openapi/strfmt"

	"github.com/suparena/pressbox/corpus"
)

// FrontMatter is the YAML header of an article source file. Unknown keys are
// preserved in Custom so authors can carry platform-specific metadata without
// schema changes.
type FrontMatter struct {
	Title        string         `yaml:"title"`
	Slug         string         `yaml:"slug"`
	Summary      string         `yaml:"summary"`
	Series       string         `yaml:"series"`
	Tags         []string       `yaml:"tags"`
	Status       string         `yaml:"status"`
	PublishAt    time.Time      `yaml:"publish_at"`
	CoverImage   string         `yaml:"cover_image"`
	CanonicalURL string         `yaml:"canonical_url"`
	Custom       map[string]any `yaml:",inline"`
}

// Document is a parsed article source: the frontmatter and the Markdown body
// with the delimiters stripped. BodyHTML stays empty until rendered.
type Document struct {
	FrontMatter FrontMatter
	Body        []byte
}

// ParseDocument splits an article source file into frontmatter and body.
// A file without a frontmatter block parses as an empty FrontMatter with the
// whole source as body.
func ParseDocument(source []byte) (*Document, error) {
	var meta FrontMatter

	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	return &Document{FrontMatter: meta, Body: body}, nil
}

// ToArticle maps a parsed document onto a corpus article. The slug falls back
// to a slugified title when the frontmatter omits it; status defaults to
// draft. Validation is the caller's job, after rendering fills in the
// derived fields.
func (d *Document) ToArticle() *corpus.Article {
	fm := d.FrontMatter

	slug := fm.Slug
	if slug == "" {
		slug = Slugify(fm.Title)
	}

	status := fm.Status
	if status == "" {
		status = corpus.StatusDraft
	}

	a := &corpus.Article{
		Slug:         slug,
		Title:        strings.TrimSpace(fm.Title),
		Summary:      strings.TrimSpace(fm.Summary),
		Series:       fm.Series,
		Tags:         normalizeTags(fm.Tags),
		Status:       status,
		Body:         string(d.Body),
		CoverImage:   fm.CoverImage,
		CanonicalURL: fm.CanonicalURL,
	}
	if !fm.PublishAt.IsZero() {
		a.PublishAt = strfmt.DateTime(fm.PublishAt.UTC())
	}
	return a
}

// normalizeTags lowercases, trims and dedupes tags, keeping author order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
