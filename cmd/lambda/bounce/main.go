/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// The bounce Lambda receives SES feedback notifications through SNS and
// suppresses subscribers whose addresses bounce permanently.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/suparena/pressbox/cmd/internal/wiring"
	"github.com/suparena/pressbox/config"
	"github.com/suparena/pressbox/handler/bounce"
	"github.com/suparena/pressbox/log"
)

func main() {
	ctx := context.Background()

	cfg, awscfg, err := wiring.Env(ctx, config.EnvTableName)
	if err != nil {
		log.WithError(err).Fatal("bounce init failed")
	}

	stores, err := wiring.Stores(cfg, awscfg)
	if err != nil {
		log.WithError(err).Fatal("open stores failed")
	}

	h, err := bounce.New(stores.Subscribers)
	if err != nil {
		log.WithError(err).Fatal("build bounce handler failed")
	}
	lambda.Start(h.Handle)
}
