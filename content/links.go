/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package content

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// IsRelativeRef reports whether an image or link destination is a
// bundle-relative path, as opposed to an absolute URL, anchor or data URI.
func IsRelativeRef(dest string) bool {
	if dest == "" {
		return false
	}
	if strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "//") {
		return false
	}
	if strings.Contains(dest, "://") {
		return false
	}
	for _, scheme := range []string{"mailto:", "data:", "tel:"} {
		if strings.HasPrefix(dest, scheme) {
			return false
		}
	}
	return true
}

// ImageRefs returns every image destination in the Markdown source, in
// document order, deduplicated. Reference-style images are resolved the same
// as inline ones since extraction walks the parsed AST.
func ImageRefs(source []byte) []string {
	doc := auditEngine.Parser().Parse(text.NewReader(source))

	var refs []string
	seen := map[string]struct{}{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			dest := string(img.Destination)
			if _, dup := seen[dest]; !dup {
				seen[dest] = struct{}{}
				refs = append(refs, dest)
			}
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// auditEngine is the parse-only goldmark instance used for extraction. GFM
// matches the render defaults, so the audit sees the same AST the renderer
// will.
var auditEngine = goldmark.New(goldmark.WithExtensions(extension.GFM))

// LinkIssue is one problem found by an image audit.
type LinkIssue struct {
	Dest   string `json:"dest"`
	Reason string `json:"reason"`
}

// AuditImages checks every relative image reference against the bundle's
// files. The exists callback receives the destination cleaned of a leading
// "./". Absolute URLs are not checked.
func AuditImages(source []byte, exists func(string) bool) []LinkIssue {
	var issues []LinkIssue
	for _, dest := range ImageRefs(source) {
		if !IsRelativeRef(dest) {
			continue
		}
		cleaned := strings.TrimPrefix(dest, "./")
		if strings.HasPrefix(cleaned, "/") {
			issues = append(issues, LinkIssue{Dest: dest, Reason: "absolute path, must be bundle-relative"})
			continue
		}
		if strings.Contains(cleaned, "..") {
			issues = append(issues, LinkIssue{Dest: dest, Reason: "path escapes the bundle"})
			continue
		}
		if !exists(cleaned) {
			issues = append(issues, LinkIssue{Dest: dest, Reason: "no such file in bundle"})
		}
	}
	return issues
}

// inlineImagePattern matches inline Markdown images: ![alt](dest) and
// ![alt](dest "title"). Reference-style definitions are matched separately.
var (
	inlineImagePattern = regexp.MustCompile(`(!\[[^\]]*\]\()\s*([^)\s]+)([^)]*\))`)
	refDefPattern      = regexp.MustCompile(`(?m)^(\s*\[[^\]]+\]:\s*)(\S+)(.*)$`)
)

// RewriteImages returns a copy of the Markdown source with every relative
// image destination passed through the rewrite function. Absolute URLs are
// left alone. This operates on source text so the result is still Markdown,
// which is what the publication targets ingest.
func RewriteImages(source []byte, rewrite func(string) string) []byte {
	out := inlineImagePattern.ReplaceAllFunc(source, func(m []byte) []byte {
		parts := inlineImagePattern.FindSubmatch(m)
		dest := string(parts[2])
		if !IsRelativeRef(dest) {
			return m
		}
		return []byte(string(parts[1]) + rewrite(dest) + string(parts[3]))
	})
	out = refDefPattern.ReplaceAllFunc(out, func(m []byte) []byte {
		parts := refDefPattern.FindSubmatch(m)
		dest := string(parts[2])
		if !IsRelativeRef(dest) {
			return m
		}
		return []byte(string(parts[1]) + rewrite(dest) + string(parts[3]))
	})
	return out
}

// NewCDNResolver builds a rewrite function from a CDN base URL and a map of
// bundle-relative paths to CDN paths. Destinations without a mapping are
// returned unchanged so the audit, not the rewriter, reports them.
func NewCDNResolver(baseURL string, cdnPaths map[string]string) func(string) string {
	base := strings.TrimRight(baseURL, "/")
	return func(dest string) string {
		cleaned := strings.TrimPrefix(dest, "./")
		cdnPath, ok := cdnPaths[cleaned]
		if !ok {
			return dest
		}
		return base + "/" + strings.TrimLeft(cdnPath, "/")
	}
}
