// Package mcp provides an MCP (Model Context Protocol) server for geomood.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/geomood/internal/backup"
	"github.com/nvandessel/geomood/internal/constants"
	"github.com/nvandessel/geomood/internal/journal"
	"github.com/nvandessel/geomood/internal/logging"
	"github.com/nvandessel/geomood/internal/ratelimit"
	"github.com/nvandessel/geomood/internal/store"
)

// Server wraps the MCP SDK server and exposes journal operations as tools.
type Server struct {
	server          *sdk.Server
	journal         *journal.Service
	root            string
	toolLimiters    ratelimit.ToolLimiters
	auditLogger     *AuditLogger
	retentionPolicy backup.RetentionPolicy
	compress        bool
	logger          *slog.Logger
	closeOnce       sync.Once
	closeErr        error
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "geomood")
	Version string // Server version
	Root    string // Project root directory

	// Journal serves the tools. When nil, a SQLite journal under Root is opened.
	Journal *journal.Service

	// Retention is applied to the backup directory after each backup.
	// Defaults to keeping the newest 10.
	Retention backup.RetentionPolicy

	// Compress selects V2 backups.
	Compress bool

	Logger *slog.Logger
}

// NewServer creates a new MCP server with geomood tools.
func NewServer(cfg *Config) (*Server, error) {
	j := cfg.Journal
	if j == nil {
		s, err := store.NewSQLiteEntryStore(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		j = journal.New(s, journal.Options{Logger: cfg.Logger})
	}

	retention := cfg.Retention
	if retention == nil {
		retention = &backup.CountPolicy{MaxCount: 10}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:          mcpServer,
		journal:         j,
		root:            cfg.Root,
		toolLimiters:    ratelimit.NewToolLimiters(),
		auditLogger:     NewAuditLogger(filepath.Join(cfg.Root, constants.DataDirName)),
		retentionPolicy: retention,
		compress:        cfg.Compress,
		logger:          logger,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close closes the journal store and the audit log. It is safe to call
// more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.journal.Store().Close()
		if err := s.auditLogger.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
