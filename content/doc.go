// Package content turns article source files into publishable form.
//
// An article lives on disk as a bundle: a directory with an index.md and the
// images it references by relative path. The package parses the YAML
// frontmatter, renders the Markdown body to HTML through goldmark, audits
// image references against the bundle, and derives the fields the corpus
// caches (reading time, excerpt, slug).
//
// Rendering and rewriting are split on purpose. The HTML pane uses an AST
// transformer to point image tags at the CDN while the stored body keeps its
// relative paths; export targets that ingest Markdown get a rewritten copy
// from RewriteImages instead.
package content
