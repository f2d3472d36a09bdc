/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/urfave/cli/v3"

	"github.com/suparena/pressbox"
	"github.com/suparena/pressbox/cmd/internal/wiring"
	"github.com/suparena/pressbox/config"
)

func newApp() *cli.Command {
	app := &cli.Command{
		Name:  "pressbox",
		Usage: "Publishing engine for a Markdown article corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file; environment variables override it",
			},
		},
	}

	app.Commands = append(app.Commands,
		validateCommand(),
		renderCommand(),
		publishCommand(),
		scheduleCommand(),
		mediaCommand(),
		subscribersCommand(),
		authorsCommand(),
		workerCommand(),
		versionCommand(),
	)
	return app
}

// setup loads configuration and AWS SDK config for commands that talk to
// the deployment. Required env names are checked up front so the command
// fails with every missing value listed.
func setup(ctx context.Context, cmd *cli.Command, required ...string) (*config.Config, aws.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, aws.Config{}, err
	}
	if err := cfg.Require(required...); err != nil {
		return nil, aws.Config{}, err
	}
	awscfg, err := wiring.AWS(ctx, cfg)
	if err != nil {
		return nil, aws.Config{}, err
	}
	return cfg, awscfg, nil
}

func openStores(cfg *config.Config, awscfg aws.Config) (*pressbox.Stores, error) {
	return wiring.Stores(cfg, awscfg)
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version and build information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			info := pressbox.GetVersionInfo()
			fmt.Printf("pressbox %s (commit %s, built %s, %s)\n",
				info.Version, info.GitCommit, info.BuildDate, info.GoVersion)
			return nil
		},
	}
}
