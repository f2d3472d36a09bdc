/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/suparena/pressbox/auth"
	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/config"
)

func authorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "authors",
		Usage: "Author account management in the Cognito pool",
		Commands: []*cli.Command{
			{
				Name:      "invite",
				Usage:     "Create the author account and add it to the authors group",
				ArgsUsage: "<email>",
				Action:    authorAction((*auth.Admin).EnsureAuthor, "invited"),
			},
			{
				Name:      "disable",
				Usage:     "Disable the author's sign-in",
				ArgsUsage: "<email>",
				Action:    authorAction((*auth.Admin).DisableAuthor, "disabled"),
			},
			{
				Name:      "show",
				Usage:     "Show the author as the pool knows them",
				ArgsUsage: "<email>",
				Action:    authorShowAction,
			},
		},
	}
}

func authorAction(op func(*auth.Admin, context.Context, string) error, verb string) func(context.Context, *cli.Command) error {
	return func(ctx context.Context, cmd *cli.Command) error {
		email := cmd.Args().First()
		if email == "" {
			return fmt.Errorf("usage: pressbox authors %s <email>", cmd.Name)
		}
		admin, err := poolAdmin(ctx, cmd)
		if err != nil {
			return err
		}
		if err := op(admin, ctx, email); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", verb, email)
		return nil
	}
}

func authorShowAction(ctx context.Context, cmd *cli.Command) error {
	email := cmd.Args().First()
	if email == "" {
		return fmt.Errorf("usage: pressbox authors show <email>")
	}
	admin, err := poolAdmin(ctx, cmd)
	if err != nil {
		return err
	}
	author, err := admin.FindAuthor(ctx, email)
	if err != nil {
		return err
	}
	if author == nil {
		fmt.Printf("%s: not in the pool\n", email)
		return nil
	}
	fmt.Printf("%s: sub=%s status=%s enabled=%t\n",
		author.Username, author.Subject, author.Status, author.Enabled)
	return nil
}

func poolAdmin(ctx context.Context, cmd *cli.Command) (*auth.Admin, error) {
	cfg, awscfg, err := setup(ctx, cmd, config.EnvUserPoolID)
	if err != nil {
		return nil, err
	}
	return auth.NewAdmin(awsx.NewCognito(awscfg), cfg.UserPoolID)
}
