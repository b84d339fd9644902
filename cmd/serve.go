package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sima-platform/guidance/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel, a, err := setup()
		if err != nil {
			return err
		}
		defer cancel()
		defer a.Close()

		addr := serveAddr
		if addr == "" {
			addr = a.Config.ServeAddr
		}

		server := api.NewServer(a.Engine, a.Guidelines, a.Recorder, a.Pool, a.Logger,
			api.WithQueryPreviewChars(a.Config.QueryPreviewChars))
		if err := server.Run(ctx, addr); err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
