package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sima-platform/guidance/internal/rag"
)

var askVersionID string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed guidelines",
	Long: `Answers strictly from indexed guideline text. When the target version is
not indexed, or no evidence supports the question, the command prints a
refusal instead of an answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("question must not be empty")
		}

		ctx, cancel, a, err := setup()
		if err != nil {
			return err
		}
		defer cancel()
		defer a.Close()

		answer, err := a.Engine.Ask(ctx, question, askVersionID)
		if err != nil {
			return fmt.Errorf("asking: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, answer.Answer)
		if answer.Mode != rag.ModeExtractive {
			fmt.Fprintf(out, "\n[%s]\n", answer.Mode)
			return nil
		}

		fmt.Fprintln(out, "\nCitations:")
		for _, c := range answer.Citations {
			fmt.Fprintf(out, "  %-30s score=%.3f\n", c.Ref, c.Score)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askVersionID, "version", "", "guideline version id (default: latest)")
	rootCmd.AddCommand(askCmd)
}
