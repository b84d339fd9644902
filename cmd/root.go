// Package cmd defines the guidance command line interface.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sima-platform/guidance/internal/app"
	"github.com/sima-platform/guidance/internal/config"
	"github.com/sima-platform/guidance/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "guidance",
	Short: "Extractive question answering over regulatory guidelines",
	Long: `guidance indexes versioned regulatory guideline documents and answers
questions strictly from the indexed text, with citations for every claim.
It refuses to answer when no indexed evidence supports a question.

Run 'guidance serve' to expose the HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration and assembles the application. The returned
// context is cancelled on SIGINT or SIGTERM.
func setup() (context.Context, context.CancelFunc, *app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("initializing application: %w", err)
	}
	return ctx, cancel, a, nil
}
