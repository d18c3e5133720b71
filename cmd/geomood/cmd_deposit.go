package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit [text]",
		Short: "Write a journal entry",
		Long: `Deposit a journal entry. The mood score runs from 0 (low) to 1 (high)
and picks the mineral the entry settles as. Without a text argument the
entry is read from stdin.

Examples:
  geomood deposit "今天阳光很好" --mood 0.8
  echo "a long day" | geomood deposit --mood 0.3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			mood, _ := cmd.Flags().GetFloat64("mood")

			var content string
			if len(args) == 1 {
				content = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read entry from stdin: %w", err)
				}
				content = string(data)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := a.journal.Deposit(context.Background(), content, mood)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"entry":   entry,
					"message": fmt.Sprintf("Deposited %d grains of %s", entry.Thickness, entry.MineralType.DisplayName()),
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deposited %d grains of %s (%s)\n", entry.Thickness, entry.MineralType.DisplayName(), entry.ID)
			if entry.HasGem {
				fmt.Fprintf(cmd.OutOrStdout(), "A gem formed in this layer. Dig it up with: geomood appraise %s\n", entry.ID)
			}
			return nil
		},
	}

	cmd.Flags().Float64("mood", 0.5, "Mood score from 0.0 to 1.0")

	return cmd
}
