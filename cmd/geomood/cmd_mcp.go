package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/geomood/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run an MCP server over stdio",
		Long: `Run geomood as an MCP (Model Context Protocol) server so an assistant can
deposit entries, draw the core and dig up gems.

Add to your MCP client configuration:
  {"command": "geomood", "args": ["mcp-server", "--root", "/path/to/journal"]}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}

			policy, err := retentionPolicy(&a.cfg.Backup)
			if err != nil {
				a.logger.Warn("using count-only retention", "error", err)
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:      "geomood",
				Version:   version,
				Root:      a.root,
				Journal:   a.journal,
				Retention: policy,
				Compress:  a.cfg.Backup.Compression,
				Logger:    a.logger,
			})
			if err != nil {
				a.Close()
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer a.decisions.Close()

			// Run closes the journal store on exit.
			return server.Run(context.Background())
		},
	}
}
