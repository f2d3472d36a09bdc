/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/config"
	"github.com/suparena/pressbox/content"
	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/events"
	"github.com/suparena/pressbox/media"
)

func mediaCommand() *cli.Command {
	return &cli.Command{
		Name:  "media",
		Usage: "Media asset operations",
		Commands: []*cli.Command{
			{
				Name:      "sync",
				Usage:     "Upload every asset the corpus references, skipping unchanged content",
				ArgsUsage: "[dir]",
				Action:    mediaSyncAction,
			},
		},
	}
}

func mediaSyncAction(ctx context.Context, cmd *cli.Command) error {
	root := cmd.Args().First()
	if root == "" {
		root = "."
	}

	cfg, awscfg, err := setup(ctx, cmd, config.EnvTableName, config.EnvMediaBucket)
	if err != nil {
		return err
	}
	stores, err := openStores(cfg, awscfg)
	if err != nil {
		return err
	}
	s3 := awsx.NewS3(awscfg)
	store, err := media.NewStore(s3, awsx.NewS3Presigner(s3), cfg.MediaBucket, cfg.CDNBaseURL)
	if err != nil {
		return err
	}
	library := media.NewLibrary(store, stores.Media)

	var bus *events.Publisher
	if cfg.EventBusName != "" {
		if bus, err = events.NewPublisher(awsx.NewEventBridge(awscfg), cfg.EventBusName, events.Source); err != nil {
			return err
		}
	}

	bundles, err := content.ScanCorpus(root)
	if err != nil {
		return err
	}

	var uploaded, reused int
	var uploadedBytes uint64
	for _, b := range bundles {
		slug := b.ToArticle().Slug
		for _, asset := range b.Assets {
			body, err := os.ReadFile(asset.AbsPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", asset.AbsPath, err)
			}
			record, existing, err := library.Attach(ctx, media.UploadInput{
				ArticleSlug: slug,
				FileName:    filepath.Base(asset.RelPath),
				ContentType: mime.TypeByExtension(filepath.Ext(asset.RelPath)),
				Body:        body,
			})
			if err != nil {
				return fmt.Errorf("attach %s to %s: %w", asset.RelPath, slug, err)
			}
			if existing {
				reused++
				continue
			}
			uploaded++
			uploadedBytes += uint64(len(body))
			fmt.Printf("%s: uploaded %s (%s)\n", slug, record.Key, humanize.Bytes(uint64(len(body))))
			if bus != nil {
				if err := bus.Publish(ctx, events.MediaAttachedEvent(record)); err != nil {
					return err
				}
			}
		}
	}

	fmt.Printf("synced %d bundle(s): %d uploaded (%s), %d unchanged\n",
		len(bundles), uploaded, humanize.Bytes(uploadedBytes), reused)
	return nil
}

func subscribersCommand() *cli.Command {
	return &cli.Command{
		Name:  "subscribers",
		Usage: "Subscriber list operations",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import subscribers from a CSV file (email[,topic;topic...])",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "confirmed",
						Usage: "mark imported subscribers confirmed, skipping double opt-in",
					},
				},
				Action: subscribersImportAction,
			},
		},
	}
}

func subscribersImportAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: pressbox subscribers import <file>")
	}

	cfg, awscfg, err := setup(ctx, cmd, config.EnvTableName)
	if err != nil {
		return err
	}
	stores, err := openStores(cfg, awscfg)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var batch []corpus.Subscriber
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		line++

		email := strings.ToLower(strings.TrimSpace(record[0]))
		if email == "" || email == "email" {
			// Header row or blank line.
			continue
		}

		sub := corpus.NewSubscriber(email)
		if len(record) > 1 && strings.TrimSpace(record[1]) != "" {
			for _, topic := range strings.Split(record[1], ";") {
				if topic = strings.TrimSpace(topic); topic != "" {
					sub.Topics = append(sub.Topics, topic)
				}
			}
		}
		if cmd.Bool("confirmed") {
			sub.Status = corpus.SubscriberConfirmed
			sub.ConfirmToken = ""
		}
		if err := sub.Validate(); err != nil {
			return fmt.Errorf("line %d (%s): %w", line, email, err)
		}
		batch = append(batch, *sub)
	}

	if len(batch) == 0 {
		return fmt.Errorf("no subscribers in %s", path)
	}
	if err := stores.Subscribers.PutBatch(ctx, batch); err != nil {
		return err
	}
	fmt.Printf("imported %d subscriber(s)\n", len(batch))
	return nil
}
