/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// pressbox is the operator CLI for the publishing engine: corpus linting
// and rendering, publication and scheduling, media sync, subscriber import
// and a long-running queue worker.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/suparena/pressbox/log"
)

func main() {
	log.Init()

	ctx := context.Background()
	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
