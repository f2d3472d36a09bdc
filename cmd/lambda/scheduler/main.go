/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// The scheduler Lambda is the EventBridge Scheduler target: one invocation
// per due schedule, running the stored publication attempt.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/suparena/pressbox/cmd/internal/wiring"
	"github.com/suparena/pressbox/config"
	"github.com/suparena/pressbox/handler/scheduled"
	"github.com/suparena/pressbox/log"
)

func main() {
	ctx := context.Background()

	cfg, awscfg, err := wiring.Env(ctx, config.EnvTableName)
	if err != nil {
		log.WithError(err).Fatal("scheduler init failed")
	}

	stores, err := wiring.Stores(cfg, awscfg)
	if err != nil {
		log.WithError(err).Fatal("open stores failed")
	}

	pub, err := wiring.Pipeline(cfg, awscfg, stores)
	if err != nil {
		log.WithError(err).Fatal("wire pipeline failed")
	}

	h, err := scheduled.New(pub)
	if err != nil {
		log.WithError(err).Fatal("build scheduled handler failed")
	}
	lambda.Start(h.Handle)
}
