/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package devto cross-posts articles to a Forem-compatible platform.
// Matching between the corpus and the platform runs over the canonical URL,
// which always points back at the site.
package devto

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/suparena/pressbox/content"
	"github.com/suparena/pressbox/corpus"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/log"
)

// DefaultBaseURL is the dev.to API root. Self-hosted Forem instances
// override it with WithBaseURL.
const DefaultBaseURL = "https://dev.to/api"

// The platform accepts at most four tags per article.
const maxTags = 4

const defaultPageSize = 100

// Article is the payload shape the API accepts under "article".
type Article struct {
	Title        string   `json:"title"`
	BodyMarkdown string   `json:"body_markdown"`
	Published    bool     `json:"published"`
	Series       string   `json:"series,omitempty"`
	CanonicalURL string   `json:"canonical_url,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Description  string   `json:"description,omitempty"`
	MainImage    string   `json:"main_image,omitempty"`
}

type articleRequest struct {
	Article *Article `json:"article"`
}

// PublishedArticle is the platform's record of a cross-posted article.
type PublishedArticle struct {
	ID           int    `json:"id"`
	URL          string `json:"url"`
	CanonicalURL string `json:"canonical_url"`
	Published    bool   `json:"published"`
	Title        string `json:"title"`
}

// Client talks to one Forem instance with one API key.
type Client struct {
	http     *retryablehttp.Client
	baseURL  string
	apiKey   string
	siteURL  string
	resolve  func(string) string
	pageSize int
}

// Option adjusts a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient replaces the retrying HTTP client.
func WithHTTPClient(hc *retryablehttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithImageResolver rewrites relative image references in the Markdown body
// before it leaves the site, typically to CDN URLs.
func WithImageResolver(resolve func(string) string) Option {
	return func(c *Client) { c.resolve = resolve }
}

// WithPageSize adjusts the page size used when scanning for an existing
// article.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient constructs a client. siteBaseURL anchors canonical URLs.
func NewClient(apiKey, siteBaseURL string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("empty API key")
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 4 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil

	c := &Client{
		http:     rc,
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		siteURL:  strings.TrimSuffix(siteBaseURL, "/"),
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BuildArticle maps a corpus article onto the platform payload. Tags are
// capped at the platform limit, relative images are rewritten through the
// resolver, and the canonical URL points at the site unless the article
// pins its own.
func (c *Client) BuildArticle(article *corpus.Article) (*Article, error) {
	if article == nil || article.Slug == "" {
		return nil, pberrors.NewValidationError("slug", "required")
	}
	if article.Title == "" {
		return nil, pberrors.NewValidationError("title", "required")
	}

	body := article.Body
	if c.resolve != nil {
		body = string(content.RewriteImages([]byte(body), c.resolve))
	}

	tags := article.Tags
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	canonical := article.CanonicalURL
	if canonical == "" {
		canonical = fmt.Sprintf("%s/articles/%s", c.siteURL, article.Slug)
	}

	cover := article.CoverImage
	if cover != "" && c.resolve != nil && content.IsRelativeRef(cover) {
		cover = c.resolve(cover)
	}

	published := article.Status == corpus.StatusPublished
	return &Article{
		Title:        article.Title,
		BodyMarkdown: frontMatter(article, tags, canonical, published, cover) + body,
		Published:    published,
		Series:       article.Series,
		CanonicalURL: canonical,
		Tags:         tags,
		Description:  article.Summary,
		MainImage:    cover,
	}, nil
}

// frontMatter renders the Jekyll-style header the platform reads out of
// body_markdown. Fields set there take precedence server-side, so they
// mirror the payload exactly.
func frontMatter(article *corpus.Article, tags []string, canonical string, published bool, cover string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", article.Title)
	fmt.Fprintf(&b, "published: %t\n", published)
	if article.Summary != "" {
		fmt.Fprintf(&b, "description: %q\n", article.Summary)
	}
	if len(tags) > 0 {
		fmt.Fprintf(&b, "tags: %s\n", strings.Join(tags, ", "))
	}
	if article.Series != "" {
		fmt.Fprintf(&b, "series: %q\n", article.Series)
	}
	if cover != "" {
		fmt.Fprintf(&b, "cover_image: %s\n", cover)
	}
	fmt.Fprintf(&b, "canonical_url: %s\n", canonical)
	b.WriteString("---\n\n")
	return b.String()
}

// CreateArticle posts a new article to the platform.
func (c *Client) CreateArticle(ctx context.Context, article *corpus.Article) (*PublishedArticle, error) {
	payload, err := c.BuildArticle(article)
	if err != nil {
		return nil, err
	}

	var out PublishedArticle
	if err := c.do(ctx, http.MethodPost, "/articles", articleRequest{Article: payload}, &out); err != nil {
		return nil, err
	}
	log.WithFields(map[string]interface{}{
		"slug": article.Slug,
		"id":   out.ID,
		"url":  out.URL,
	}).Info("devto article created")
	return &out, nil
}

// UpdateArticle replaces an existing platform article.
func (c *Client) UpdateArticle(ctx context.Context, id int, article *corpus.Article) (*PublishedArticle, error) {
	if id <= 0 {
		return nil, pberrors.NewValidationError("id", "must be a platform article ID")
	}
	payload, err := c.BuildArticle(article)
	if err != nil {
		return nil, err
	}

	var out PublishedArticle
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/articles/%d", id), articleRequest{Article: payload}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByCanonical scans the authenticated user's articles for one whose
// canonical URL matches. Returns nil when no copy exists yet.
func (c *Client) FindByCanonical(ctx context.Context, canonicalURL string) (*PublishedArticle, error) {
	if canonicalURL == "" {
		return nil, pberrors.NewValidationError("canonicalUrl", "required")
	}

	for page := 1; ; page++ {
		var articles []PublishedArticle
		path := fmt.Sprintf("/articles/me/all?page=%d&per_page=%d", page, c.pageSize)
		if err := c.do(ctx, http.MethodGet, path, nil, &articles); err != nil {
			return nil, err
		}
		for i := range articles {
			if articles[i].CanonicalURL == canonicalURL {
				return &articles[i], nil
			}
		}
		if len(articles) < c.pageSize {
			return nil, nil
		}
	}
}

// CrossPost creates or updates the platform copy of an article, matching an
// existing copy by canonical URL.
func (c *Client) CrossPost(ctx context.Context, article *corpus.Article) (*PublishedArticle, error) {
	payload, err := c.BuildArticle(article)
	if err != nil {
		return nil, err
	}

	existing, err := c.FindByCanonical(ctx, payload.CanonicalURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return c.UpdateArticle(ctx, existing.ID, article)
	}
	return c.CreateArticle(ctx, article)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var raw interface{}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		raw = body
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, raw)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Accept", "application/vnd.forem.api-v1+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return pberrors.NewValidationError("article", errorDetail(resp.Body))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: api key rejected (status %d)", method, path, resp.StatusCode)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// errorDetail pulls the message out of a platform error response, falling
// back to the raw body.
func errorDetail(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return strings.TrimSpace(string(data))
}
