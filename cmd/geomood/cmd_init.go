package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/geomood/internal/config"
	"github.com/nvandessel/geomood/internal/store"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a journal in the root directory",
		Long: `Create .geomood/ with an empty journal database under --root, and
write a default ~/.geomood/config.yaml if none exists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := store.NewSQLiteEntryStore(root)
			if err != nil {
				return fmt.Errorf("failed to create journal: %w", err)
			}
			dbPath := s.DBPath()
			if err := s.Close(); err != nil {
				return fmt.Errorf("failed to close journal: %w", err)
			}

			configPath, err := config.Path()
			if err != nil {
				return err
			}
			configCreated := false
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := config.Default().Save(configPath); err != nil {
					return fmt.Errorf("failed to write config: %w", err)
				}
				configCreated = true
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status":         "initialized",
					"database":       dbPath,
					"config":         configPath,
					"config_created": configCreated,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized journal at %s\n", dbPath)
			if configCreated {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", configPath)
			}
			return nil
		},
	}
}
