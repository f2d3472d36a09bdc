/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// The stream Lambda tails the corpus table's DynamoDB stream and turns
// status flips into domain events on the bus.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/cmd/internal/wiring"
	"github.com/suparena/pressbox/config"
	"github.com/suparena/pressbox/events"
	"github.com/suparena/pressbox/handler/stream"
	"github.com/suparena/pressbox/log"
)

func main() {
	ctx := context.Background()

	cfg, awscfg, err := wiring.Env(ctx, config.EnvEventBusName)
	if err != nil {
		log.WithError(err).Fatal("stream init failed")
	}

	bus, err := events.NewPublisher(awsx.NewEventBridge(awscfg), cfg.EventBusName, events.Source)
	if err != nil {
		log.WithError(err).Fatal("wire event bus failed")
	}

	h, err := stream.New(bus)
	if err != nil {
		log.WithError(err).Fatal("build stream handler failed")
	}
	lambda.Start(h.Handle)
}
