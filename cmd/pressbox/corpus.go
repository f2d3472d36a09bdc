/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/suparena/pressbox/content"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Lint a corpus directory: frontmatter, slugs, image references",
		ArgsUsage: "[dir]",
		Action:    validateAction,
	}
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	root := cmd.Args().First()
	if root == "" {
		root = "."
	}

	bundles, err := content.ScanCorpus(root)
	if err != nil {
		return err
	}
	if len(bundles) == 0 {
		return fmt.Errorf("no article bundles under %s", root)
	}

	issues := 0
	seen := map[string]string{}
	for _, b := range bundles {
		article := b.ToArticle()
		if prev, dup := seen[article.Slug]; dup {
			fmt.Printf("%s: duplicate slug %q, first seen in %s\n", b.Dir, article.Slug, prev)
			issues++
		} else {
			seen[article.Slug] = b.Dir
		}
		if err := article.Validate(); err != nil {
			fmt.Printf("%s: %v\n", b.Dir, err)
			issues++
		}
		for _, li := range b.Issues {
			fmt.Printf("%s: image %s: %s\n", b.Dir, li.Dest, li.Reason)
			issues++
		}
	}

	if issues > 0 {
		return fmt.Errorf("%d issue(s) across %d bundle(s)", issues, len(bundles))
	}
	fmt.Printf("%d bundle(s) clean\n", len(bundles))
	return nil
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render every corpus article to HTML files",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Value:   "dist",
				Usage:   "output directory for the rendered HTML",
			},
		},
		Action: renderAction,
	}
}

func renderAction(ctx context.Context, cmd *cli.Command) error {
	root := cmd.Args().First()
	if root == "" {
		root = "."
	}
	out := cmd.String("out")

	bundles, err := content.ScanCorpus(root)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", out, err)
	}

	renderer := content.NewRenderer(content.RenderOptions{AllowHTML: true})
	for _, b := range bundles {
		article := b.ToArticle()
		html, err := renderer.Render([]byte(article.Body))
		if err != nil {
			return fmt.Errorf("render %s: %w", article.Slug, err)
		}
		path := filepath.Join(out, article.Slug+".html")
		if err := os.WriteFile(path, html, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("%s -> %s\n", article.Slug, path)
	}
	return nil
}
