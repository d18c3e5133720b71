package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/geomood/internal/backup"
	"github.com/nvandessel/geomood/internal/config"
	"github.com/nvandessel/geomood/internal/pathutil"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export every journal entry to a backup file",
		Long: `Backup the journal to a compressed file.

Default location: ~/.geomood/backups/geomood-backup-YYYYMMDD-HHMMSS.json.gz
Keeps backups according to retention policy (default: last 10).

Examples:
  geomood backup                                  # Backup to default location (V2 compressed)
  geomood backup --output ~/.geomood/backups/a.json.gz
  geomood backup --no-compress                    # Plain JSON array, readable by the web client
  geomood backup list                             # List all backups
  geomood backup verify <file>                    # Verify backup integrity`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")
			noCompress, _ := cmd.Flags().GetBool("no-compress")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			compress := a.cfg.Backup.Compression && !noCompress

			if outputPath == "" {
				dir, err := backup.DefaultBackupDir()
				if err != nil {
					return fmt.Errorf("failed to get backup directory: %w", err)
				}
				if compress {
					outputPath = backup.GenerateBackupPath(dir)
				} else {
					outputPath = backup.GenerateBackupPathV1(dir)
				}
			} else if err := pathutil.ValidateBackupPath(outputPath, root); err != nil {
				return fmt.Errorf("backup path rejected: %w", err)
			}

			result, err := backup.BackupWithOptions(context.Background(), a.store, outputPath, compress)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			policy, err := retentionPolicy(&a.cfg.Backup)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			if _, err := backup.ApplyRetention(filepath.Dir(outputPath), policy); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to apply retention: %v\n", err)
			}

			if jsonOut {
				var sizeBytes int64
				if info, err := os.Stat(outputPath); err == nil {
					sizeBytes = info.Size()
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"path":        outputPath,
					"entry_count": len(result.Entries),
					"version":     result.Version,
					"compressed":  compress,
					"size_bytes":  sizeBytes,
					"message":     fmt.Sprintf("Backup created: %d entries", len(result.Entries)),
				})
			}

			versionLabel := "v2/gzip"
			if !compress {
				versionLabel = "v1/json"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %d entries (%s)\n", len(result.Entries), versionLabel)
			fmt.Fprintf(cmd.OutOrStdout(), "  Path: %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().String("output", "", "Output file path (default: auto-generated in ~/.geomood/backups/)")
	cmd.Flags().Bool("no-compress", false, "Create V1 uncompressed backup instead of V2 compressed")

	cmd.AddCommand(
		newBackupListCmd(),
		newBackupVerifyCmd(),
	)

	return cmd
}

// retentionPolicy builds the retention policy from config. Unparseable
// limits are reported and the count limit is still applied.
func retentionPolicy(cfg *config.BackupConfig) (backup.RetentionPolicy, error) {
	r := cfg.Retention
	policy, err := backup.PolicyFromLimits(r.MaxCount, r.MaxAge, r.MaxTotalSize)
	if err != nil {
		fallback, _ := backup.PolicyFromLimits(r.MaxCount, "", "")
		return fallback, fmt.Errorf("invalid retention settings: %w", err)
	}
	return policy, nil
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Import journal entries from a backup file",
		Long: `Restore the journal from a backup file (V1 or V2 format).
Format is auto-detected. A V1 file may also be the entry array exported
from the web client's local storage.

Modes:
  merge   - Skip entries that already exist (default)
  replace - Clear the journal first, then restore

Examples:
  geomood restore ~/.geomood/backups/geomood-backup-20260206-120000.json.gz
  geomood restore ~/.geomood/backups/export.json --mode replace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			modeFlag, _ := cmd.Flags().GetString("mode")

			if err := pathutil.ValidateBackupPath(inputPath, root); err != nil {
				return fmt.Errorf("restore path rejected: %w", err)
			}
			mode, err := backup.ParseRestoreMode(modeFlag)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := backup.Restore(context.Background(), a.store, inputPath, mode)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			a.decisions.LogRestore(inputPath, string(mode), result.EntriesRestored, result.EntriesSkipped)

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"version":          result.Version,
					"entries_restored": result.EntriesRestored,
					"entries_skipped":  result.EntriesSkipped,
					"entries_removed":  result.EntriesRemoved,
					"message":          fmt.Sprintf("Restore complete: %d entries", result.EntriesRestored),
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Restore complete (mode: %s, format: v%d)\n", mode, result.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Entries: %d restored, %d skipped", result.EntriesRestored, result.EntriesSkipped)
			if result.EntriesRemoved > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", %d removed", result.EntriesRemoved)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().String("mode", "merge", "Restore mode: merge or replace")

	return cmd
}
