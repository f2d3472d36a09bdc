/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// The worker Lambda drains the work queue: re-render jobs after edits to
// live articles and delivery jobs fanned out after publication.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/suparena/pressbox/cmd/internal/wiring"
	"github.com/suparena/pressbox/config"
	"github.com/suparena/pressbox/handler/queue"
	"github.com/suparena/pressbox/log"
)

func main() {
	ctx := context.Background()

	cfg, awscfg, err := wiring.Env(ctx, config.EnvTableName)
	if err != nil {
		log.WithError(err).Fatal("worker init failed")
	}

	stores, err := wiring.Stores(cfg, awscfg)
	if err != nil {
		log.WithError(err).Fatal("open stores failed")
	}

	pub, err := wiring.Pipeline(cfg, awscfg, stores)
	if err != nil {
		log.WithError(err).Fatal("wire pipeline failed")
	}

	h, err := queue.New(pub)
	if err != nil {
		log.WithError(err).Fatal("build queue handler failed")
	}
	lambda.Start(h.Handle)
}
