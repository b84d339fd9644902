package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryVersionID string
	queryTopK      int
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Inspect retrieval results without synthesizing an answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryVersionID == "" {
			return fmt.Errorf("--version is required")
		}
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			return fmt.Errorf("query must not be empty")
		}

		ctx, cancel, a, err := setup()
		if err != nil {
			return err
		}
		defer cancel()
		defer a.Close()

		ranked, err := a.Engine.Query(ctx, queryVersionID, text, queryTopK)
		if err != nil {
			return fmt.Errorf("querying: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ranked) == 0 {
			fmt.Fprintln(out, "no results")
			return nil
		}
		for i, r := range ranked {
			preview := r.Chunk.Content
			if runes := []rune(preview); len(runes) > 120 {
				preview = string(runes[:120]) + "..."
			}
			fmt.Fprintf(out, "%2d. %-30s final=%.3f sim=%.3f bm25=%.3f fuzz=%.3f\n    %s\n",
				i+1, r.Chunk.Ref, r.Final, r.Sim, r.BM25, r.Fuzz, preview)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryVersionID, "version", "", "guideline version id (required)")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 10, "number of results")
	rootCmd.AddCommand(queryCmd)
}
