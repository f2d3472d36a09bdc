/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// The api Lambda serves the editor and reader HTTP API behind API Gateway.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/cmd/internal/wiring"
	"github.com/suparena/pressbox/config"
	"github.com/suparena/pressbox/events"
	"github.com/suparena/pressbox/handler/api"
	"github.com/suparena/pressbox/log"
	"github.com/suparena/pressbox/media"
	"github.com/suparena/pressbox/notify"
	"github.com/suparena/pressbox/pipeline"
	"github.com/suparena/pressbox/queue"
	"github.com/suparena/pressbox/schedule"
)

func main() {
	ctx := context.Background()

	cfg, awscfg, err := wiring.Env(ctx, config.EnvTableName)
	if err != nil {
		log.WithError(err).Fatal("api init failed")
	}

	stores, err := wiring.Stores(cfg, awscfg)
	if err != nil {
		log.WithError(err).Fatal("open stores failed")
	}

	pub, err := wiring.Pipeline(cfg, awscfg, stores)
	if err != nil {
		log.WithError(err).Fatal("wire pipeline failed")
	}

	deps := api.Deps{
		Articles:    stores.Articles,
		Subscribers: stores.Subscribers,
		Pipeline:    pub,
	}

	if cfg.StateMachineARN != "" {
		driver, err := pipeline.NewDriver(awsx.NewStepFunctions(awscfg), cfg.StateMachineARN)
		if err != nil {
			log.WithError(err).Fatal("wire publication driver failed")
		}
		deps.Driver = driver
	}
	if cfg.ScheduleTargetARN != "" {
		sched, err := schedule.NewScheduler(awsx.NewScheduler(awscfg),
			cfg.ScheduleGroup, cfg.ScheduleTargetARN, cfg.ScheduleRoleARN)
		if err != nil {
			log.WithError(err).Fatal("wire scheduler failed")
		}
		deps.Scheduler = sched
	}
	if cfg.MediaBucket != "" {
		s3 := awsx.NewS3(awscfg)
		store, err := media.NewStore(s3, awsx.NewS3Presigner(s3), cfg.MediaBucket, cfg.CDNBaseURL)
		if err != nil {
			log.WithError(err).Fatal("wire media store failed")
		}
		deps.Media = store
	}
	if cfg.EventBusName != "" {
		bus, err := events.NewPublisher(awsx.NewEventBridge(awscfg), cfg.EventBusName, events.Source)
		if err != nil {
			log.WithError(err).Fatal("wire event bus failed")
		}
		deps.Events = bus
	}
	if cfg.SenderAddress != "" {
		mailer, err := notify.NewMailer(awsx.NewSES(awscfg), cfg.SenderAddress, cfg.SiteBaseURL)
		if err != nil {
			log.WithError(err).Fatal("wire mailer failed")
		}
		deps.Mailer = mailer
	}
	if cfg.QueueURL != "" {
		jobs, err := queue.NewProducer(awsx.NewSQS(awscfg), cfg.QueueURL)
		if err != nil {
			log.WithError(err).Fatal("wire job producer failed")
		}
		deps.Jobs = jobs
	}

	h, err := api.New(deps)
	if err != nil {
		log.WithError(err).Fatal("build api handler failed")
	}
	lambda.Start(h.Handle)
}
