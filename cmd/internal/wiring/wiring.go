/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package wiring assembles the collaborators the entrypoint binaries share.
// Every Lambda main and the CLI start the same way: read configuration, load
// AWS config, open the stores, then pick the collaborators the surface needs.
package wiring

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/suparena/pressbox"
	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/config"
	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/devto"
	"github.com/suparena/pressbox/events"
	"github.com/suparena/pressbox/log"
	"github.com/suparena/pressbox/media"
	"github.com/suparena/pressbox/notify"
	"github.com/suparena/pressbox/pipeline"
	"github.com/suparena/pressbox/queue"
)

// Env initializes logging, reads configuration from the environment and
// loads AWS SDK config. The required env vars are checked up front so a
// misdeployed function fails at init with every missing name listed.
func Env(ctx context.Context, required ...string) (*config.Config, aws.Config, error) {
	log.Init()

	cfg := config.FromEnv()
	if err := cfg.Require(required...); err != nil {
		return nil, aws.Config{}, err
	}

	awscfg, err := AWS(ctx, cfg)
	if err != nil {
		return nil, aws.Config{}, err
	}
	return cfg, awscfg, nil
}

// AWS loads SDK config with the region and endpoint overrides the
// configuration carries.
func AWS(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	var opts []awsx.Option
	if cfg.Region != "" {
		opts = append(opts, awsx.WithRegion(cfg.Region))
	}
	if cfg.EndpointURL != "" {
		opts = append(opts, awsx.WithEndpoint(cfg.EndpointURL))
	}
	awscfg, err := awsx.Load(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awscfg, nil
}

// Stores opens the corpus stores over the configured table.
func Stores(cfg *config.Config, awscfg aws.Config) (*pressbox.Stores, error) {
	return pressbox.OpenStores(awsx.NewDynamoDB(awscfg), cfg.TableName)
}

// Pipeline builds the publication pipeline with every collaborator the
// configuration names. Unset config values leave the matching step off,
// mirroring the pipeline's own nil-optional contract.
func Pipeline(cfg *config.Config, awscfg aws.Config, stores *pressbox.Stores) (*pipeline.Publisher, error) {
	deps := pipeline.Deps{
		Articles:    stores.Articles,
		Records:     stores.Records,
		Subscribers: stores.Subscribers,
	}

	if cfg.DistributionID != "" {
		deps.CDN = media.NewInvalidator(awsx.NewCloudFront(awscfg), cfg.DistributionID)
	}
	if cfg.EventBusName != "" {
		bus, err := events.NewPublisher(awsx.NewEventBridge(awscfg), cfg.EventBusName, events.Source)
		if err != nil {
			return nil, fmt.Errorf("wire event bus: %w", err)
		}
		deps.Events = bus
	}
	if cfg.SenderAddress != "" {
		mailer, err := notify.NewMailer(awsx.NewSES(awscfg), cfg.SenderAddress, cfg.SiteBaseURL)
		if err != nil {
			return nil, fmt.Errorf("wire mailer: %w", err)
		}
		deps.Mailer = mailer
	}
	if cfg.TopicARN != "" {
		deps.Ops = notify.NewFanout(awsx.NewSNS(awscfg), cfg.TopicARN)
	}
	if cfg.DevtoAPIKey != "" {
		client, err := devto.NewClient(cfg.DevtoAPIKey, cfg.SiteBaseURL)
		if err != nil {
			return nil, fmt.Errorf("wire dev.to client: %w", err)
		}
		deps.DevTo = client
	}
	if cfg.QueueURL != "" {
		jobs, err := queue.NewProducer(awsx.NewSQS(awscfg), cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("wire job producer: %w", err)
		}
		deps.Jobs = jobs
		// Email announcements go out in-process through the mailer, so the
		// queued fan-out carries cross-posting only.
		if deps.DevTo != nil {
			deps.Deliveries = append(deps.Deliveries, corpus.TargetDevto)
		}
	}

	return pipeline.NewPublisher(deps)
}
