package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	indexVersionID string
	indexForce     bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the chunk index for a guideline version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if indexVersionID == "" {
			return fmt.Errorf("--version is required")
		}

		ctx, cancel, a, err := setup()
		if err != nil {
			return err
		}
		defer cancel()
		defer a.Close()

		result, err := a.Engine.Index(ctx, indexVersionID, indexForce)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", indexVersionID, err)
		}

		if result.AlreadyIndexed {
			fmt.Fprintf(cmd.OutOrStdout(), "already indexed: %d chunks (use --force to rebuild)\n", result.Chunks)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "indexed: %d chunks\n", result.Chunks)
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexVersionID, "version", "", "guideline version id (required)")
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "delete and rebuild existing chunks")
	rootCmd.AddCommand(indexCmd)
}
