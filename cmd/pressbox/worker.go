/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/cmd/internal/wiring"
	"github.com/suparena/pressbox/config"
	"github.com/suparena/pressbox/log"
	"github.com/suparena/pressbox/queue"
)

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run the work queue consumer until interrupted",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"n"},
				Value:   4,
				Usage:   "concurrent job workers",
			},
			&cli.DurationFlag{
				Name:  "visibility",
				Value: 2 * time.Minute,
				Usage: "visibility timeout requested per receive",
			},
		},
		Action: workerAction,
	}
}

func workerAction(ctx context.Context, cmd *cli.Command) error {
	cfg, awscfg, err := setup(ctx, cmd, config.EnvTableName, config.EnvQueueURL)
	if err != nil {
		return err
	}
	stores, err := openStores(cfg, awscfg)
	if err != nil {
		return err
	}
	pub, err := wiring.Pipeline(cfg, awscfg, stores)
	if err != nil {
		return err
	}

	handle := func(ctx context.Context, job queue.Job) error {
		switch job.Type {
		case queue.JobRender:
			return pub.Refresh(ctx, job.Slug)
		case queue.JobDelivery:
			return pub.Deliver(ctx, job.Slug, job.Attempt, job.Target)
		default:
			return fmt.Errorf("unknown job type %q", job.Type)
		}
	}

	consumer, err := queue.NewConsumer(awsx.NewSQS(awscfg), cfg.QueueURL, handle,
		queue.WithWorkers(int(cmd.Int("workers"))),
		queue.WithVisibility(cmd.Duration("visibility")),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("worker draining %s", cfg.QueueURL)
	return consumer.Run(ctx)
}
