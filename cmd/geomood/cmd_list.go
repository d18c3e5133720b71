package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nvandessel/geomood/internal/models"
	"github.com/nvandessel/geomood/internal/sanitize"
	"github.com/nvandessel/geomood/internal/store"
)

// previewLen is how much of an entry list views show.
const previewLen = 40

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			jsonl, _ := cmd.Flags().GetBool("jsonl")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.journal.Entries(context.Background())
			if err != nil {
				return err
			}
			total := len(entries)
			if limit > 0 && limit < total {
				entries = entries[:limit]
			}

			if jsonl {
				return store.WriteEntriesJSONL(cmd.OutOrStdout(), entries)
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"entries": entries,
					"count":   len(entries),
					"total":   total,
				})
			}

			if total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries yet. Write one with 'geomood deposit'.")
				return nil
			}
			printEntries(cmd.OutOrStdout(), entries)
			fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d of %d entries\n", len(entries), total)
			return nil
		},
	}

	cmd.Flags().Int("limit", 0, "Show only the newest N entries (0 for all)")
	cmd.Flags().Bool("jsonl", false, "Write one JSON entry per line")

	return cmd
}

func newGemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gems",
		Short: "List entries that hold a gem",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			gems, err := a.journal.Gems(context.Background())
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"gems":  gems,
					"count": len(gems),
				})
			}

			if len(gems) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No gems yet.")
				return nil
			}
			printEntries(cmd.OutOrStdout(), gems)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.journal.Delete(context.Background(), args[0]); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"id":      args[0],
					"deleted": true,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func printEntries(w io.Writer, entries []models.Entry) {
	for _, e := range entries {
		marker := " "
		if e.HasGem {
			marker = "*"
			if e.GemWisdom != nil {
				marker = "◆"
			}
		}
		preview := sanitize.TruncateUnits(e.Content, previewLen)
		if preview != e.Content {
			preview += "..."
		}
		fmt.Fprintf(w, "%s %s  %s  %-9s %.2f  %s\n",
			marker,
			e.Date.Local().Format("2006-01-02 15:04"),
			e.ID,
			e.MineralType,
			e.MoodScore,
			preview,
		)
	}
}
