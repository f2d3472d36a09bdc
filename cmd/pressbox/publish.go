/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/cmd/internal/wiring"
	"github.com/suparena/pressbox/config"
	"github.com/suparena/pressbox/corpus"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/pipeline"
	"github.com/suparena/pressbox/schedule"
)

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish an article now",
		ArgsUsage: "<slug>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "workflow",
				Aliases: []string{"w"},
				Usage:   "start the Step Functions publication workflow instead of publishing in-process",
			},
		},
		Action: publishAction,
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "Describe a publication workflow run",
				ArgsUsage: "<execution-arn>",
				Action:    publishStatusAction,
			},
		},
	}
}

func publishStatusAction(ctx context.Context, cmd *cli.Command) error {
	arn := cmd.Args().First()
	if arn == "" {
		return fmt.Errorf("usage: pressbox publish status <execution-arn>")
	}

	cfg, awscfg, err := setup(ctx, cmd, config.EnvStateMachineARN)
	if err != nil {
		return err
	}
	driver, err := pipeline.NewDriver(awsx.NewStepFunctions(awscfg), cfg.StateMachineARN)
	if err != nil {
		return err
	}
	exec, err := driver.Status(ctx, arn)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s (started %s)\n", exec.Name, exec.Status, exec.StartedAt.Format(time.RFC3339))
	if !exec.StoppedAt.IsZero() {
		fmt.Printf("stopped %s\n", exec.StoppedAt.Format(time.RFC3339))
	}
	if exec.Output != "" {
		fmt.Println(exec.Output)
	}
	return nil
}

func publishAction(ctx context.Context, cmd *cli.Command) error {
	slug := cmd.Args().First()
	if slug == "" {
		return fmt.Errorf("usage: pressbox publish <slug>")
	}

	if cmd.Bool("workflow") {
		cfg, awscfg, err := setup(ctx, cmd, config.EnvTableName, config.EnvStateMachineARN)
		if err != nil {
			return err
		}
		driver, err := pipeline.NewDriver(awsx.NewStepFunctions(awscfg), cfg.StateMachineARN)
		if err != nil {
			return err
		}
		arn, err := driver.StartPublication(ctx, pipeline.StartInput{
			Slug:        slug,
			RequestedBy: "cli",
		})
		if err != nil {
			return err
		}
		fmt.Printf("started publication workflow: %s\n", arn)
		return nil
	}

	cfg, awscfg, err := setup(ctx, cmd, config.EnvTableName)
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

	result, err := pub.Publish(ctx, slug)
	switch {
	case errors.Is(err, pipeline.ErrAlreadyPublished):
		fmt.Printf("%s is already published\n", slug)
		return nil
	case err != nil && result != nil:
		fmt.Printf("published %s (attempt %s) with follow-up failures: %v\n",
			slug, result.AttemptID, err)
		return nil
	case err != nil:
		return err
	}
	fmt.Printf("published %s (attempt %s, %d announced)\n", slug, result.AttemptID, result.Announced)
	return nil
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "schedule",
		Usage:     "Schedule an article for future publication",
		ArgsUsage: "<slug>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "at",
				Aliases: []string{"t"},
				Usage:   "publication time, RFC 3339",
			},
			&cli.BoolFlag{
				Name:  "cancel",
				Usage: "cancel the article's pending schedule",
			},
		},
		Action: scheduleAction,
	}
}

func scheduleAction(ctx context.Context, cmd *cli.Command) error {
	slug := cmd.Args().First()
	if slug == "" {
		return fmt.Errorf("usage: pressbox schedule <slug> -t <time>")
	}

	cfg, awscfg, err := setup(ctx, cmd,
		config.EnvTableName, config.EnvScheduleTarget, config.EnvScheduleRoleARN)
	if err != nil {
		return err
	}
	stores, err := openStores(cfg, awscfg)
	if err != nil {
		return err
	}
	sched, err := schedule.NewScheduler(awsx.NewScheduler(awscfg),
		cfg.ScheduleGroup, cfg.ScheduleTargetARN, cfg.ScheduleRoleARN)
	if err != nil {
		return err
	}

	article, err := stores.Articles.GetOne(ctx, slug)
	if err != nil {
		return err
	}
	if article == nil {
		return pberrors.NewNotFoundError(corpus.TypeArticle, slug)
	}

	if cmd.Bool("cancel") {
		if err := sched.CancelPublish(ctx, slug); err != nil {
			return err
		}
		if err := article.Transition(corpus.StatusDraft); err != nil {
			return err
		}
		article.UpdatedAt = corpus.Now()
		if err := stores.Articles.Put(ctx, *article); err != nil {
			return err
		}
		fmt.Printf("cancelled schedule for %s\n", slug)
		return nil
	}

	at, err := time.Parse(time.RFC3339, cmd.String("at"))
	if err != nil {
		return fmt.Errorf("parse --at: %w", err)
	}
	if !at.After(time.Now()) {
		return fmt.Errorf("--at must be in the future")
	}

	rescheduling := article.Status == corpus.StatusScheduled
	if !rescheduling {
		if err := article.Transition(corpus.StatusScheduled); err != nil {
			return err
		}
	}
	article.PublishAt = corpus.At(at)
	article.UpdatedAt = corpus.Now()
	if err := stores.Articles.Put(ctx, *article); err != nil {
		return err
	}

	var name string
	if rescheduling {
		name, err = sched.Reschedule(ctx, article)
	} else {
		name, err = sched.SchedulePublish(ctx, article)
	}
	if err != nil {
		return err
	}
	fmt.Printf("scheduled %s for %s (schedule %s)\n", slug, at.Format(time.RFC3339), name)
	return nil
}
