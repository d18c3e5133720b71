package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nvandessel/geomood/internal/config"
	"github.com/nvandessel/geomood/internal/journal"
	"github.com/nvandessel/geomood/internal/llm"
	"github.com/nvandessel/geomood/internal/logging"
	"github.com/nvandessel/geomood/internal/store"
)

// app is the journal and its supporting pieces, opened for one command.
type app struct {
	root      string
	cfg       *config.GeomoodConfig
	journal   *journal.Service
	store     *store.SQLiteEntryStore
	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

// loadConfig loads and validates configuration, applying --log-level.
func loadConfig(cmd *cobra.Command) (*config.GeomoodConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openApp loads configuration and opens the journal under --root.
func openApp(cmd *cobra.Command) (*app, error) {
	root, _ := cmd.Flags().GetString("root")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	labeler, err := cfg.DateFormatter()
	if err != nil {
		return nil, fmt.Errorf("invalid date settings: %w", err)
	}

	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

	s, err := store.NewSQLiteEntryStore(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	decisions := logging.NewDecisionLogger(store.LocalGeomoodPath(root), cfg.Logging.Level)

	j := journal.New(s, journal.Options{
		Columns:   cfg.World.Columns,
		Labeler:   labeler,
		Appraiser: llm.NewAppraiser(cfg.LLM.ClientConfig()),
		Logger:    logger,
		Decisions: decisions,
	})

	logger.Debug("journal opened", "db", s.DBPath(), "columns", cfg.World.Columns, "llm", cfg.LLM.String())

	return &app{
		root:      root,
		cfg:       cfg,
		journal:   j,
		store:     s,
		logger:    logger,
		decisions: decisions,
	}, nil
}

// Close releases the store and the decision log.
func (a *app) Close() error {
	a.decisions.Close()
	return a.store.Close()
}

// canvasWidth is the default canvas width: one grain size per column.
func (a *app) canvasWidth() int {
	return a.cfg.World.Columns * a.cfg.World.GrainSize
}
