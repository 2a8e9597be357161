// Package main provides the competition id resolution server entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/garyellow/admission-lists/internal/app"
	"github.com/garyellow/admission-lists/internal/config"
)

func main() {
	cfg, err := config.LoadForMode(config.ServerMode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	application, err := app.Initialize(context.Background(), cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Server stopped with error: %v\n", err)
		os.Exit(1)
	}
}
