package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/geomood/internal/backup"
)

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups with metadata",
		Long: `List all backup files in the default backup directory with version,
format, size, and entry counts.

Examples:
  geomood backup list
  geomood backup list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			dir, err := backup.DefaultBackupDir()
			if err != nil {
				return fmt.Errorf("failed to get backup directory: %w", err)
			}

			backups, err := backup.ListBackups(dir)
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"backups":     backups,
					"total_count": len(backups),
					"directory":   dir,
				})
			}

			if len(backups) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No backups found in %s\n", dir)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Backups in %s:\n", dir)
			var totalSize int64
			for _, b := range backups {
				totalSize += b.Size

				label := "??  ----"
				switch b.Version {
				case backup.FormatV1:
					label = "v1  json"
				case backup.FormatV2:
					label = "v2  gzip"
				}

				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s  %8s  %4d entries  %3d gems  %s\n",
					b.CreatedAt.Format("2006-01-02 15:04"),
					label,
					formatBytes(b.Size),
					b.Entries,
					b.Gems,
					filepath.Base(b.Path),
				)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %d backups, %s\n", len(backups), formatBytes(totalSize))
			return nil
		},
	}
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1fGB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1fMB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1fKB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%dB", b)
	}
}
