package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/geomood/internal/backup"
	"github.com/nvandessel/geomood/internal/classify"
	"github.com/nvandessel/geomood/internal/constants"
	"github.com/nvandessel/geomood/internal/journal"
	"github.com/nvandessel/geomood/internal/llm"
	"github.com/nvandessel/geomood/internal/models"
	"github.com/nvandessel/geomood/internal/ratelimit"
	"github.com/nvandessel/geomood/internal/sediment"
	"github.com/nvandessel/geomood/internal/store"
)

func dataDir(root string) string {
	return filepath.Join(root, constants.DataDirName)
}

// setupTestServerWith builds a server over an in-memory journal with a
// fixed clock, sequential ids and a coin that never lands.
func setupTestServerWith(t *testing.T, appraiser llm.Appraiser) (*Server, string) {
	t.Helper()
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	j := journal.New(store.NewInMemoryEntryStore(), journal.Options{
		Columns:    12,
		Labeler:    sediment.LabelFunc(func(t time.Time) string { return t.UTC().Format("2006-01-02") }),
		Classifier: classify.New(func() float64 { return 0 }),
		Appraiser:  appraiser,
		Now: func() time.Time {
			clock = clock.Add(time.Hour)
			return clock
		},
		NewID: func() string {
			n++
			return fmt.Sprintf("entry-%d", n)
		},
	})

	server, err := NewServer(&Config{
		Name:     "test-server",
		Version:  "v1.0.0",
		Root:     tmpDir,
		Journal:  j,
		Compress: true,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	return server, tmpDir
}

func setupTestServer(t *testing.T) (*Server, string) {
	return setupTestServerWith(t, nil)
}

func deposit(t *testing.T, server *Server, content string, mood float64) DepositOutput {
	t.Helper()
	_, out, err := server.handleDeposit(context.Background(), &sdk.CallToolRequest{}, DepositInput{Content: content, Mood: mood})
	if err != nil {
		t.Fatalf("handleDeposit(%q): %v", content, err)
	}
	return out
}

func TestHandleDeposit(t *testing.T) {
	server, _ := setupTestServer(t)

	result, out, err := server.handleDeposit(context.Background(), &sdk.CallToolRequest{}, DepositInput{Content: "雨天，有点闷", Mood: 0.1})
	if err != nil {
		t.Fatalf("handleDeposit failed: %v", err)
	}
	if result != nil {
		t.Error("Expected nil result (SDK auto-populates)")
	}
	if out.Entry.ID != "entry-1" {
		t.Errorf("ID = %q, want entry-1", out.Entry.ID)
	}
	if out.Entry.MineralType != models.MineralObsidian {
		t.Errorf("MineralType = %s, want OBSIDIAN", out.Entry.MineralType)
	}
	if out.Entry.Thickness != 6 {
		t.Errorf("Thickness = %d, want 6", out.Entry.Thickness)
	}
	if !strings.Contains(out.Message, "6 grains") {
		t.Errorf("Message = %q", out.Message)
	}

	long := deposit(t, server, strings.Repeat("长", 81), 0.5)
	if !long.Entry.HasGem || !strings.Contains(long.Message, "gem") {
		t.Errorf("long entry should hold a gem: %+v", long)
	}
}

func TestHandleDeposit_Invalid(t *testing.T) {
	server, _ := setupTestServer(t)

	tests := []struct {
		name    string
		input   DepositInput
		wantErr error
	}{
		{name: "empty", input: DepositInput{Content: "   ", Mood: 0.5}, wantErr: journal.ErrEmptyContent},
		{name: "mood too high", input: DepositInput{Content: "hi", Mood: 1.5}, wantErr: journal.ErrMoodRange},
		{name: "mood negative", input: DepositInput{Content: "hi", Mood: -0.1}, wantErr: journal.ErrMoodRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := server.handleDeposit(context.Background(), &sdk.CallToolRequest{}, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandleList(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleList(ctx, &sdk.CallToolRequest{}, ListInput{})
	if err != nil {
		t.Fatalf("handleList failed: %v", err)
	}
	if out.Count != 0 || out.Entries == nil {
		t.Errorf("empty journal: %+v", out)
	}

	deposit(t, server, "one", 0.5)
	deposit(t, server, "two", 0.5)
	deposit(t, server, "three", 0.5)

	_, out, err = server.handleList(ctx, &sdk.CallToolRequest{}, ListInput{Limit: 2})
	if err != nil {
		t.Fatalf("handleList failed: %v", err)
	}
	if out.Count != 2 || out.Total != 3 {
		t.Errorf("Count = %d, Total = %d, want 2, 3", out.Count, out.Total)
	}
	if out.Entries[0].Content != "three" || out.Entries[1].Content != "two" {
		t.Errorf("entries not newest first: %+v", out.Entries)
	}

	if _, _, err := server.handleList(ctx, &sdk.CallToolRequest{}, ListInput{Limit: -1}); err == nil {
		t.Error("negative limit should fail")
	}
}

func TestHandleCore(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	deposit(t, server, "abcdef", 0.5)
	deposit(t, server, strings.Repeat("x", 90), 0.95)

	tests := []struct {
		format string
		want   string
	}{
		{format: "", want: "+------------+ 2024-05-01"},
		{format: "ascii", want: "@"},
		{format: "svg", want: "<svg"},
		{format: "json", want: `"gemLocations"`},
	}
	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			_, out, err := server.handleCore(ctx, &sdk.CallToolRequest{}, CoreInput{Format: tt.format})
			if err != nil {
				t.Fatalf("handleCore failed: %v", err)
			}
			if !strings.Contains(out.Core, tt.want) {
				t.Errorf("core missing %q:\n%s", tt.want, out.Core)
			}
			if out.Entries != 2 || out.Grains != 96 || out.Gems != 1 || out.Dates != 1 {
				t.Errorf("summary = %+v", out)
			}
		})
	}

	if _, _, err := server.handleCore(ctx, &sdk.CallToolRequest{}, CoreInput{Format: "png"}); err == nil {
		t.Error("unknown format should fail")
	}
	if _, _, err := server.handleCore(ctx, &sdk.CallToolRequest{}, CoreInput{Format: "html"}); err == nil {
		t.Error("html is served by the web view, not the tool")
	}
}

func TestHandleGemsAndAppraise(t *testing.T) {
	mock := llm.NewMockAppraiser().WithWisdom(&models.GemWisdom{
		MineralName: "星辉石",
		Composition: "七成勇气",
		Quote:       "xxx",
		Advice:      "继续走",
	})
	server, _ := setupTestServerWith(t, mock)
	ctx := context.Background()

	deposit(t, server, "plain", 0.5)
	gem := deposit(t, server, strings.Repeat("x", 90), 0.95)

	_, gems, err := server.handleGems(ctx, &sdk.CallToolRequest{}, GemsInput{})
	if err != nil {
		t.Fatalf("handleGems failed: %v", err)
	}
	if gems.Count != 1 || gems.Gems[0].ID != gem.Entry.ID || gems.Appraised != 0 {
		t.Errorf("gems = %+v", gems)
	}

	_, card, err := server.handleAppraise(ctx, &sdk.CallToolRequest{}, AppraiseInput{ID: gem.Entry.ID})
	if err != nil {
		t.Fatalf("handleAppraise failed: %v", err)
	}
	if card.MineralName != "星辉石" || card.Source != "model" {
		t.Errorf("card = %+v", card)
	}

	_, card, err = server.handleAppraise(ctx, &sdk.CallToolRequest{}, AppraiseInput{ID: gem.Entry.ID})
	if err != nil {
		t.Fatalf("handleAppraise failed: %v", err)
	}
	if card.Source != "cached" || mock.CallCount() != 1 {
		t.Errorf("second appraisal source = %q, calls = %d", card.Source, mock.CallCount())
	}

	_, gems, _ = server.handleGems(ctx, &sdk.CallToolRequest{}, GemsInput{})
	if gems.Appraised != 1 {
		t.Errorf("Appraised = %d, want 1", gems.Appraised)
	}
}

func TestHandleAppraise_Errors(t *testing.T) {
	server, _ := setupTestServer(t)
	// Every call below is charged before its id is checked.
	server.toolLimiters[ratelimit.ToolAppraise] = ratelimit.NewLimiter(0, 10)
	ctx := context.Background()
	plain := deposit(t, server, "plain", 0.5)

	if _, _, err := server.handleAppraise(ctx, &sdk.CallToolRequest{}, AppraiseInput{}); err == nil {
		t.Error("missing id should fail")
	}
	if _, _, err := server.handleAppraise(ctx, &sdk.CallToolRequest{}, AppraiseInput{ID: "nope"}); !errors.Is(err, journal.ErrNotFound) {
		t.Errorf("unknown id error = %v, want ErrNotFound", err)
	}
	if _, _, err := server.handleAppraise(ctx, &sdk.CallToolRequest{}, AppraiseInput{ID: plain.Entry.ID}); !errors.Is(err, journal.ErrNoGem) {
		t.Errorf("plain entry error = %v, want ErrNoGem", err)
	}
}

func TestHandleAppraise_Fallback(t *testing.T) {
	server, _ := setupTestServer(t) // fallback appraiser
	gem := deposit(t, server, strings.Repeat("y", 90), 0.95)

	_, card, err := server.handleAppraise(context.Background(), &sdk.CallToolRequest{}, AppraiseInput{ID: gem.Entry.ID})
	if err != nil {
		t.Fatalf("handleAppraise failed: %v", err)
	}
	if card.Source != "fallback" || card.MineralName != llm.FallbackMineralName {
		t.Errorf("card = %+v", card)
	}
	if card.Quote != strings.Repeat("y", 20)+"..." {
		t.Errorf("Quote = %q", card.Quote)
	}
}

func TestHandleSurface(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleSurface(ctx, &sdk.CallToolRequest{}, SurfaceInput{})
	if err != nil {
		t.Fatalf("handleSurface failed: %v", err)
	}
	if out.Surface != string(classify.SurfaceBarren) || out.Entries != 0 {
		t.Errorf("empty surface = %+v", out)
	}

	for i := 0; i < 3; i++ {
		deposit(t, server, "sunny", 0.9)
	}
	_, out, _ = server.handleSurface(ctx, &sdk.CallToolRequest{}, SurfaceInput{})
	if out.Surface != string(classify.SurfaceHouse) {
		t.Errorf("Surface = %q, want HOUSE", out.Surface)
	}
}

func TestHandleBackupRestore(t *testing.T) {
	server, tmpDir := setupTestServer(t)
	ctx := context.Background()

	deposit(t, server, "first", 0.2)
	deposit(t, server, "second", 0.8)

	path := filepath.Join(dataDir(tmpDir), "backups", "snap.json.gz")
	_, out, err := server.handleBackup(ctx, &sdk.CallToolRequest{}, BackupInput{OutputPath: path})
	if err != nil {
		t.Fatalf("handleBackup failed: %v", err)
	}
	if out.EntryCount != 2 || out.Version != backup.FormatV2 || !out.Compressed || out.SizeBytes == 0 {
		t.Errorf("backup output = %+v", out)
	}

	third := deposit(t, server, "third", 0.5)

	_, res, err := server.handleRestore(ctx, &sdk.CallToolRequest{}, RestoreInput{InputPath: path})
	if err != nil {
		t.Fatalf("merge restore failed: %v", err)
	}
	if res.EntriesRestored != 0 || res.EntriesSkipped != 2 {
		t.Errorf("merge result = %+v", res)
	}

	_, res, err = server.handleRestore(ctx, &sdk.CallToolRequest{}, RestoreInput{InputPath: path, Mode: "replace"})
	if err != nil {
		t.Fatalf("replace restore failed: %v", err)
	}
	if res.EntriesRestored != 2 || res.EntriesRemoved != 3 {
		t.Errorf("replace result = %+v", res)
	}

	_, list, _ := server.handleList(ctx, &sdk.CallToolRequest{}, ListInput{})
	for _, e := range list.Entries {
		if e.ID == third.Entry.ID {
			t.Error("replace should drop entries missing from the backup")
		}
	}
}

func TestHandleBackup_DefaultPath(t *testing.T) {
	server, _ := setupTestServer(t)
	deposit(t, server, "hello", 0.5)

	_, out, err := server.handleBackup(context.Background(), &sdk.CallToolRequest{}, BackupInput{})
	if err != nil {
		t.Fatalf("handleBackup failed: %v", err)
	}
	home, _ := os.UserHomeDir()
	if filepath.Dir(out.Path) != filepath.Join(home, constants.DataDirName, "backups") {
		t.Errorf("Path = %q, want it under the home backup dir", out.Path)
	}
	if !strings.HasSuffix(out.Path, ".json.gz") {
		t.Errorf("Path = %q, want .json.gz", out.Path)
	}
}

func TestHandleBackupRestore_PathRejected(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()
	outside := filepath.Join(t.TempDir(), "evil.json.gz")

	if _, _, err := server.handleBackup(ctx, &sdk.CallToolRequest{}, BackupInput{OutputPath: outside}); err == nil || !strings.Contains(err.Error(), "backup path rejected") {
		t.Errorf("backup error = %v, want path rejection", err)
	}
	if _, _, err := server.handleRestore(ctx, &sdk.CallToolRequest{}, RestoreInput{InputPath: outside}); err == nil || !strings.Contains(err.Error(), "restore path rejected") {
		t.Errorf("restore error = %v, want path rejection", err)
	}
	if _, _, err := server.handleRestore(ctx, &sdk.CallToolRequest{}, RestoreInput{}); err == nil {
		t.Error("missing input_path should fail")
	}
}

func TestHandleAppraise_RateLimited(t *testing.T) {
	server, _ := setupTestServer(t)
	server.toolLimiters[ratelimit.ToolAppraise] = ratelimit.NewLimiter(0, 1)
	ctx := context.Background()

	server.handleAppraise(ctx, &sdk.CallToolRequest{}, AppraiseInput{ID: "x"})
	_, _, err := server.handleAppraise(ctx, &sdk.CallToolRequest{}, AppraiseInput{ID: "x"})
	if !errors.Is(err, ratelimit.ErrLimited) {
		t.Errorf("error = %v, want ErrLimited", err)
	}
}

func TestHandleCoreResource(t *testing.T) {
	server, _ := setupTestServer(t)
	deposit(t, server, "abc", 0.5)

	res, err := server.handleCoreResource(context.Background(), &sdk.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleCoreResource failed: %v", err)
	}
	if len(res.Contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(res.Contents))
	}
	c := res.Contents[0]
	if c.URI != CoreResourceURI || c.MIMEType != "text/plain" {
		t.Errorf("content = %+v", c)
	}
	if !strings.Contains(c.Text, "2024-05-01") {
		t.Errorf("resource text missing date marker:\n%s", c.Text)
	}
}

func TestHandlers_WriteAudit(t *testing.T) {
	server, tmpDir := setupTestServer(t)
	deposit(t, server, "秘密日记", 0.5)
	server.Close()

	entries := readAudit(t, dataDir(tmpDir))
	if len(entries) != 1 || entries[0].Tool != ratelimit.ToolDeposit {
		t.Fatalf("audit entries = %+v", entries)
	}
	if entries[0].Params["content"] != "(set)" {
		t.Errorf("content param = %q, want (set)", entries[0].Params["content"])
	}
	data, _ := os.ReadFile(filepath.Join(dataDir(tmpDir), AuditFileName))
	if strings.Contains(string(data), "秘密日记") {
		t.Error("audit log must not contain entry text")
	}
}
