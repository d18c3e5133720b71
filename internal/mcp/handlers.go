package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/geomood/internal/backup"
	"github.com/nvandessel/geomood/internal/pathutil"
	"github.com/nvandessel/geomood/internal/ratelimit"
	"github.com/nvandessel/geomood/internal/visualization"
)

// CoreResourceURI is the resource holding the current core as text.
const CoreResourceURI = "geomood://core/ascii"

// registerTools registers all geomood MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolDeposit,
		Description: "Deposit a journal entry with a mood score; it settles as a layer of mineral grains",
	}, s.handleDeposit)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolList,
		Description: "List journal entries, newest first",
	}, s.handleList)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolCore,
		Description: "Render the sediment core built from every entry as ASCII, SVG, or JSON",
	}, s.handleCore)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolGems,
		Description: "List entries that hold a gem",
	}, s.handleGems)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolAppraise,
		Description: "Dig up a gem and read its card: mineral name, composition, quote, and curator's note",
	}, s.handleAppraise)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolSurface,
		Description: "Report what grows on the surface of the core, from the newest entries' moods",
	}, s.handleSurface)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolBackup,
		Description: "Export every journal entry to a backup file",
	}, s.handleBackup)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolRestore,
		Description: "Import journal entries from a backup file (merge or replace)",
	}, s.handleRestore)
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         CoreResourceURI,
		Name:        "geomood-core",
		Description: "The current sediment core drawn as text, newest layers on top.",
		MIMEType:    "text/plain",
	}, s.handleCoreResource)
}

func (s *Server) handleCoreResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	core, err := s.journal.Core(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to simulate core: %w", err)
	}

	var buf bytes.Buffer
	if err := visualization.RenderASCII(&buf, core.Result); err != nil {
		return nil, fmt.Errorf("render ASCII: %w", err)
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      CoreResourceURI,
				MIMEType: "text/plain",
				Text:     buf.String(),
			},
		},
	}, nil
}

// handleDeposit implements the geomood_deposit tool.
func (s *Server) handleDeposit(ctx context.Context, req *sdk.CallToolRequest, args DepositInput) (_ *sdk.CallToolResult, _ DepositOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolDeposit, start, retErr, sanitizeToolParams(map[string]interface{}{
			"content": args.Content, "mood": args.Mood,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolDeposit); err != nil {
		return nil, DepositOutput{}, err
	}

	entry, err := s.journal.Deposit(ctx, args.Content, args.Mood)
	if err != nil {
		return nil, DepositOutput{}, fmt.Errorf("deposit failed: %w", err)
	}

	msg := fmt.Sprintf("Deposited %d grains of %s", entry.Thickness, entry.MineralType.DisplayName())
	if entry.HasGem {
		msg += "; a gem formed in this layer"
	}

	return nil, DepositOutput{
		Entry:   toEntryItem(*entry),
		Message: msg,
	}, nil
}

// handleList implements the geomood_list tool.
func (s *Server) handleList(ctx context.Context, req *sdk.CallToolRequest, args ListInput) (_ *sdk.CallToolResult, _ ListOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolList, start, retErr, sanitizeToolParams(map[string]interface{}{
			"limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolList); err != nil {
		return nil, ListOutput{}, err
	}
	if args.Limit < 0 {
		return nil, ListOutput{}, fmt.Errorf("'limit' must not be negative, got %d", args.Limit)
	}

	entries, err := s.journal.Entries(ctx)
	if err != nil {
		return nil, ListOutput{}, fmt.Errorf("failed to list entries: %w", err)
	}

	total := len(entries)
	if args.Limit > 0 && args.Limit < total {
		entries = entries[:args.Limit]
	}

	items := make([]EntryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, toEntryItem(e))
	}

	return nil, ListOutput{
		Entries: items,
		Count:   len(items),
		Total:   total,
	}, nil
}

// handleCore implements the geomood_core tool.
func (s *Server) handleCore(ctx context.Context, req *sdk.CallToolRequest, args CoreInput) (_ *sdk.CallToolResult, _ CoreOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolCore, start, retErr, sanitizeToolParams(map[string]interface{}{
			"format": args.Format, "width": args.Width,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolCore); err != nil {
		return nil, CoreOutput{}, err
	}

	format := visualization.FormatASCII
	if args.Format != "" {
		f, err := visualization.ParseFormat(args.Format)
		if err != nil {
			return nil, CoreOutput{}, err
		}
		format = f
	}

	core, err := s.journal.Core(ctx)
	if err != nil {
		return nil, CoreOutput{}, fmt.Errorf("failed to simulate core: %w", err)
	}

	var buf bytes.Buffer
	switch format {
	case visualization.FormatASCII:
		err = visualization.RenderASCII(&buf, core.Result)
	case visualization.FormatSVG:
		layout := visualization.NewLayout(args.Width, 0, core.Columns, core.MaxHeight)
		err = visualization.RenderSVG(&buf, core.Result, layout)
	case visualization.FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		err = enc.Encode(core)
	default:
		return nil, CoreOutput{}, fmt.Errorf("unsupported format %q (use 'ascii', 'svg', or 'json')", format)
	}
	if err != nil {
		return nil, CoreOutput{}, fmt.Errorf("render %s: %w", format, err)
	}

	return nil, CoreOutput{
		Format:    string(format),
		Core:      buf.String(),
		Entries:   len(core.Entries),
		Grains:    len(core.Grains),
		MaxHeight: core.MaxHeight,
		Gems:      len(core.Gems),
		Dates:     len(core.DateMarkers),
	}, nil
}

// handleGems implements the geomood_gems tool.
func (s *Server) handleGems(ctx context.Context, req *sdk.CallToolRequest, args GemsInput) (_ *sdk.CallToolResult, _ GemsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolGems, start, retErr, sanitizeToolParams(map[string]interface{}{}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolGems); err != nil {
		return nil, GemsOutput{}, err
	}

	gems, err := s.journal.Gems(ctx)
	if err != nil {
		return nil, GemsOutput{}, fmt.Errorf("failed to list gems: %w", err)
	}

	items := make([]EntryItem, 0, len(gems))
	appraised := 0
	for _, e := range gems {
		item := toEntryItem(e)
		if item.Appraised {
			appraised++
		}
		items = append(items, item)
	}

	return nil, GemsOutput{
		Gems:      items,
		Count:     len(items),
		Appraised: appraised,
	}, nil
}

// handleAppraise implements the geomood_appraise tool.
func (s *Server) handleAppraise(ctx context.Context, req *sdk.CallToolRequest, args AppraiseInput) (_ *sdk.CallToolResult, _ AppraiseOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolAppraise, start, retErr, sanitizeToolParams(map[string]interface{}{
			"id": args.ID,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolAppraise); err != nil {
		return nil, AppraiseOutput{}, err
	}
	if args.ID == "" {
		return nil, AppraiseOutput{}, fmt.Errorf("'id' parameter is required")
	}

	appraisal, err := s.journal.Appraise(ctx, args.ID)
	if err != nil {
		return nil, AppraiseOutput{}, fmt.Errorf("appraisal failed: %w", err)
	}

	w := appraisal.Wisdom
	return nil, AppraiseOutput{
		ID:          args.ID,
		MineralName: w.MineralName,
		Composition: w.Composition,
		Quote:       w.Quote,
		Advice:      w.Advice,
		Source:      appraisal.Outcome,
	}, nil
}

// handleSurface implements the geomood_surface tool.
func (s *Server) handleSurface(ctx context.Context, req *sdk.CallToolRequest, args SurfaceInput) (_ *sdk.CallToolResult, _ SurfaceOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolSurface, start, retErr, sanitizeToolParams(map[string]interface{}{}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolSurface); err != nil {
		return nil, SurfaceOutput{}, err
	}

	entries, err := s.journal.Entries(ctx)
	if err != nil {
		return nil, SurfaceOutput{}, fmt.Errorf("failed to list entries: %w", err)
	}
	surface, err := s.journal.Surface(ctx)
	if err != nil {
		return nil, SurfaceOutput{}, fmt.Errorf("failed to read surface: %w", err)
	}

	return nil, SurfaceOutput{
		Surface: string(surface),
		Entries: len(entries),
	}, nil
}

// handleBackup implements the geomood_backup tool.
func (s *Server) handleBackup(ctx context.Context, req *sdk.CallToolRequest, args BackupInput) (_ *sdk.CallToolResult, _ BackupOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolBackup, start, retErr, sanitizeToolParams(map[string]interface{}{
			"output_path": args.OutputPath,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolBackup); err != nil {
		return nil, BackupOutput{}, err
	}

	outputPath := args.OutputPath
	if outputPath == "" {
		// Default path -- controlled by us, no validation needed
		backupDir, err := backup.DefaultBackupDir()
		if err != nil {
			return nil, BackupOutput{}, fmt.Errorf("failed to get backup directory: %w", err)
		}
		if s.compress {
			outputPath = backup.GenerateBackupPath(backupDir)
		} else {
			outputPath = backup.GenerateBackupPathV1(backupDir)
		}
	} else if err := pathutil.ValidateBackupPath(outputPath, s.root); err != nil {
		return nil, BackupOutput{}, fmt.Errorf("backup path rejected: %w", err)
	}

	result, err := backup.BackupWithOptions(ctx, s.journal.Store(), outputPath, s.compress)
	if err != nil {
		return nil, BackupOutput{}, fmt.Errorf("backup failed: %w", err)
	}

	if _, err := backup.ApplyRetention(filepath.Dir(outputPath), s.retentionPolicy); err != nil {
		s.logger.Warn("failed to apply retention", "error", err)
	}

	var sizeBytes int64
	if info, err := os.Stat(outputPath); err == nil {
		sizeBytes = info.Size()
	}

	return nil, BackupOutput{
		Path:       outputPath,
		EntryCount: len(result.Entries),
		Version:    result.Version,
		Compressed: result.Version == backup.FormatV2,
		SizeBytes:  sizeBytes,
		Message:    fmt.Sprintf("Backup created: %d entries → %s", len(result.Entries), outputPath),
	}, nil
}

// handleRestore implements the geomood_restore tool.
func (s *Server) handleRestore(ctx context.Context, req *sdk.CallToolRequest, args RestoreInput) (_ *sdk.CallToolResult, _ RestoreOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolRestore, start, retErr, sanitizeToolParams(map[string]interface{}{
			"input_path": args.InputPath, "mode": args.Mode,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolRestore); err != nil {
		return nil, RestoreOutput{}, err
	}
	if args.InputPath == "" {
		return nil, RestoreOutput{}, fmt.Errorf("'input_path' parameter is required")
	}
	if err := pathutil.ValidateBackupPath(args.InputPath, s.root); err != nil {
		return nil, RestoreOutput{}, fmt.Errorf("restore path rejected: %w", err)
	}

	mode, err := backup.ParseRestoreMode(args.Mode)
	if err != nil {
		return nil, RestoreOutput{}, err
	}

	result, err := backup.Restore(ctx, s.journal.Store(), args.InputPath, mode)
	if err != nil {
		return nil, RestoreOutput{}, fmt.Errorf("restore failed: %w", err)
	}
	s.journal.Decisions().LogRestore(args.InputPath, string(mode), result.EntriesRestored, result.EntriesSkipped)

	return nil, RestoreOutput{
		EntriesRestored: result.EntriesRestored,
		EntriesSkipped:  result.EntriesSkipped,
		EntriesRemoved:  result.EntriesRemoved,
		Message: fmt.Sprintf("Restore complete: %d entries restored, %d skipped, %d removed",
			result.EntriesRestored, result.EntriesSkipped, result.EntriesRemoved),
	}, nil
}

