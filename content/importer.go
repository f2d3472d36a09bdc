/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package content

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/suparena/pressbox/corpus"
)

// BundleFile is the Markdown entry point of an article bundle.
const BundleFile = "index.md"

// excerptLen caps auto-derived summaries.
const excerptLen = 240

// Bundle is one article directory on disk: index.md plus the images it
// references.
type Bundle struct {
	Dir    string
	Doc    *Document
	Assets []BundleAsset
	Issues []LinkIssue
}

// BundleAsset is one bundle-relative file referenced by the article.
type BundleAsset struct {
	// RelPath is the path as written in the Markdown, cleaned of "./".
	RelPath string
	// AbsPath is the file's location on disk.
	AbsPath string
}

// LoadBundle reads and parses one article bundle. Image references are
// audited against the bundle's files; audit findings land in Issues rather
// than failing the load, so a sync can report them all at once.
func LoadBundle(dir string) (*Bundle, error) {
	source, err := os.ReadFile(filepath.Join(dir, BundleFile))
	if err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", dir, err)
	}

	doc, err := ParseDocument(source)
	if err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", dir, err)
	}

	b := &Bundle{
		Dir: dir,
		Doc: doc,
	}

	exists := func(rel string) bool {
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
		return err == nil && info.Mode().IsRegular()
	}
	b.Issues = AuditImages(doc.Body, exists)

	for _, ref := range ImageRefs(doc.Body) {
		if !IsRelativeRef(ref) {
			continue
		}
		rel := strings.TrimPrefix(ref, "./")
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
			b.Assets = append(b.Assets, BundleAsset{RelPath: rel, AbsPath: abs})
		}
	}

	if cover := doc.FrontMatter.CoverImage; cover != "" && IsRelativeRef(cover) {
		rel := strings.TrimPrefix(cover, "./")
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
			b.Assets = append(b.Assets, BundleAsset{RelPath: rel, AbsPath: abs})
		} else {
			b.Issues = append(b.Issues, LinkIssue{Dest: cover, Reason: "cover image not in bundle"})
		}
	}

	return b, nil
}

// ToArticle builds the corpus entity with the derived fields filled in:
// reading time from the body, an excerpt as summary fallback.
func (b *Bundle) ToArticle() *corpus.Article {
	a := b.Doc.ToArticle()
	a.ReadingTime = ReadingTime(b.Doc.Body)
	if a.Summary == "" {
		a.Summary = Excerpt(b.Doc.Body, excerptLen)
	}
	return a
}

// ScanCorpus walks root and loads every directory containing an index.md.
// Hidden and underscore-prefixed directories are skipped. Bundles come back
// sorted by directory path so syncs are deterministic.
func ScanCorpus(root string) ([]*Bundle, error) {
	var bundles []*Bundle

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != BundleFile {
			return nil
		}
		b, err := LoadBundle(filepath.Dir(path))
		if err != nil {
			return err
		}
		bundles = append(bundles, b)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan corpus %s: %w", root, err)
	}

	sort.Slice(bundles, func(i, j int) bool { return bundles[i].Dir < bundles[j].Dir })
	return bundles, nil
}
