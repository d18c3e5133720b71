package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/geomood/internal/config"
	"github.com/nvandessel/geomood/internal/store"
)

// isolateHome points HOME at a temp directory so tests never touch the
// real ~/.geomood/. It must be called by every test that opens a journal.
func isolateHome(t *testing.T) string {
	t.Helper()
	tmpHome := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	t.Setenv("GEOMOOD_DATES_TIMEZONE", "UTC")
	t.Setenv("GEOMOOD_LLM_ENABLED", "false")
	return tmpHome
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("geomood %s: %v\noutput: %s", strings.Join(args, " "), err, out)
	}
	return out
}

type entryJSON struct {
	ID          string  `json:"id"`
	Content     string  `json:"content"`
	MoodScore   float64 `json:"moodScore"`
	Thickness   int     `json:"thickness"`
	MineralType string  `json:"mineralType"`
	HasGem      bool    `json:"hasGem"`
}

func depositJSON(t *testing.T, root, content, mood string) entryJSON {
	t.Helper()
	out := mustRun(t, "--root", root, "--json", "deposit", content, "--mood", mood)
	var resp struct {
		Entry   entryJSON `json:"entry"`
		Message string    `json:"message"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode deposit output %q: %v", out, err)
	}
	return resp.Entry
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()
	want := []string{
		"version", "init", "deposit", "list", "gems", "appraise", "delete",
		"core", "surface", "serve", "backup", "restore", "config", "mcp-server",
	}
	have := make(map[string]bool)
	for _, c := range cmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("root command missing %q", name)
		}
	}
	for _, flag := range []string{"json", "root", "log-level"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("root command missing --%s", flag)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out := mustRun(t, "version")
	if !strings.Contains(out, version) {
		t.Errorf("version output %q missing %q", out, version)
	}

	out = mustRun(t, "--json", "version")
	var v map[string]string
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode version JSON: %v", err)
	}
	if v["version"] != version {
		t.Errorf("version = %q, want %q", v["version"], version)
	}
}

func TestInitCmd(t *testing.T) {
	home := isolateHome(t)
	root := t.TempDir()

	out := mustRun(t, "--root", root, "--json", "init")
	var resp map[string]interface{}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode init JSON: %v", err)
	}
	if resp["status"] != "initialized" {
		t.Errorf("status = %v", resp["status"])
	}
	if resp["config_created"] != true {
		t.Errorf("config_created = %v, want true", resp["config_created"])
	}

	if _, err := os.Stat(store.DatabasePath(root)); err != nil {
		t.Errorf("database not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".geomood", config.FileName)); err != nil {
		t.Errorf("config not created: %v", err)
	}

	// A second init keeps the existing config.
	out = mustRun(t, "--root", root, "init")
	if strings.Contains(out, "Wrote default config") {
		t.Errorf("second init rewrote config: %q", out)
	}
}

func TestDepositAndList(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()

	out := mustRun(t, "--root", root, "list")
	if !strings.Contains(out, "No entries yet") {
		t.Errorf("empty list output = %q", out)
	}

	first := depositJSON(t, root, "晴天", "0.5")
	if first.Thickness != 2 || first.MineralType != "MOONSTONE" || first.HasGem {
		t.Errorf("first entry = %+v", first)
	}

	out, err := run(t, "from stdin", "--root", root, "deposit", "--mood", "0.1")
	if err != nil {
		t.Fatalf("deposit from stdin: %v", err)
	}
	if !strings.Contains(out, "Deposited 10 grains of") {
		t.Errorf("stdin deposit output = %q", out)
	}

	out = mustRun(t, "--root", root, "--json", "list", "--limit", "1")
	var list struct {
		Entries []entryJSON `json:"entries"`
		Count   int         `json:"count"`
		Total   int         `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode list JSON: %v", err)
	}
	if list.Count != 1 || list.Total != 2 {
		t.Errorf("count/total = %d/%d, want 1/2", list.Count, list.Total)
	}
	if list.Entries[0].Content != "from stdin" {
		t.Errorf("newest entry = %q, want the stdin entry", list.Entries[0].Content)
	}
	if list.Entries[0].MineralType != "OBSIDIAN" {
		t.Errorf("mood 0.1 mineral = %s, want OBSIDIAN", list.Entries[0].MineralType)
	}

	out = mustRun(t, "--root", root, "list")
	if !strings.Contains(out, "Showing 2 of 2 entries") {
		t.Errorf("list output = %q", out)
	}

	out = mustRun(t, "--root", root, "list", "--jsonl")
	lines, err := store.ReadEntriesJSONL(strings.NewReader(out))
	if err != nil {
		t.Fatalf("read jsonl list: %v", err)
	}
	if len(lines) != 2 || lines[1].Content != "晴天" {
		t.Errorf("jsonl list = %+v", lines)
	}
}

func TestDeposit_Invalid(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{name: "mood too high", args: []string{"deposit", "text", "--mood", "1.5"}},
		{name: "mood negative", args: []string{"deposit", "text", "--mood", "-0.1"}},
		{name: "blank content", args: []string{"deposit", "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--root", root}, tt.args...)
			if _, err := run(t, "", args...); err == nil {
				t.Errorf("geomood %v succeeded, want error", tt.args)
			}
		})
	}
}

func TestGemsAndAppraise(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()

	mustRun(t, "--root", root, "deposit", "short", "--mood", "0.5")
	out := mustRun(t, "--root", root, "gems")
	if !strings.Contains(out, "No gems yet.") {
		t.Errorf("gems output = %q", out)
	}

	long := strings.Repeat("风", 90)
	gem := depositJSON(t, root, long, "0.5")
	if !gem.HasGem {
		t.Fatal("entry longer than 80 units should hold a gem")
	}

	out = mustRun(t, "--root", root, "--json", "gems")
	var gems struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &gems); err != nil {
		t.Fatalf("decode gems JSON: %v", err)
	}
	if gems.Count != 1 {
		t.Errorf("gem count = %d, want 1", gems.Count)
	}

	out = mustRun(t, "--root", root, "--json", "appraise", gem.ID)
	var appraisal struct {
		Outcome string `json:"outcome"`
		Wisdom  struct {
			MineralName string `json:"mineralName"`
			Quote       string `json:"quote"`
		} `json:"wisdom"`
	}
	if err := json.Unmarshal([]byte(out), &appraisal); err != nil {
		t.Fatalf("decode appraise JSON %q: %v", out, err)
	}
	if appraisal.Outcome != "fallback" {
		t.Errorf("outcome = %q, want fallback with the model disabled", appraisal.Outcome)
	}
	if appraisal.Wisdom.Quote != strings.Repeat("风", 20)+"..." {
		t.Errorf("quote = %q", appraisal.Wisdom.Quote)
	}

	out = mustRun(t, "--root", root, "appraise", gem.ID)
	if !strings.Contains(out, "◆") || !strings.Contains(out, "(fallback)") {
		t.Errorf("appraise text output = %q", out)
	}

	if _, err := run(t, "", "--root", root, "appraise", "missing"); err == nil {
		t.Error("appraise of unknown id should fail")
	}
}

func TestDeleteCmd(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()

	e := depositJSON(t, root, "to be removed", "0.5")
	out := mustRun(t, "--root", root, "delete", e.ID)
	if !strings.Contains(out, "Deleted "+e.ID) {
		t.Errorf("delete output = %q", out)
	}
	if _, err := run(t, "", "--root", root, "delete", e.ID); err == nil {
		t.Error("second delete should fail")
	}
	out = mustRun(t, "--root", root, "list")
	if !strings.Contains(out, "No entries yet") {
		t.Errorf("list after delete = %q", out)
	}
}

func TestCoreCmd(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()

	depositJSON(t, root, strings.Repeat("a", 30), "0.9")

	out := mustRun(t, "--root", root, "core")
	if !strings.Contains(out, "==") {
		t.Errorf("ascii core missing bedrock: %q", out)
	}

	out = mustRun(t, "--root", root, "core", "--format", "json")
	var core struct {
		Grains    []json.RawMessage `json:"grains"`
		MaxHeight int               `json:"maxHeight"`
		Columns   int               `json:"columns"`
		Layout    struct {
			Width int `json:"width"`
		} `json:"layout"`
	}
	if err := json.Unmarshal([]byte(out), &core); err != nil {
		t.Fatalf("decode core JSON: %v", err)
	}
	if len(core.Grains) != 30 {
		t.Errorf("grains = %d, want 30", len(core.Grains))
	}
	if core.Columns != config.Default().World.Columns {
		t.Errorf("columns = %d", core.Columns)
	}
	if core.Layout.Width != config.Default().World.Columns*config.Default().World.GrainSize {
		t.Errorf("layout width = %d", core.Layout.Width)
	}

	svgPath := filepath.Join(t.TempDir(), "core.svg")
	out = mustRun(t, "--root", root, "core", "--format", "svg", "-o", svgPath)
	if !strings.Contains(out, "Core written to "+svgPath) {
		t.Errorf("svg output = %q", out)
	}
	data, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("<svg")) {
		t.Errorf("svg file starts with %q", data[:min(len(data), 20)])
	}

	htmlPath := filepath.Join(t.TempDir(), "core.html")
	mustRun(t, "--root", root, "core", "--format", "html", "-o", htmlPath, "--no-open")
	data, err = os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	if !bytes.Contains(data, []byte("/api/grain")) {
		t.Error("html page missing the grain lookup script")
	}

	if _, err := run(t, "", "--root", root, "core", "--format", "png"); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestSurfaceCmd(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()

	out := mustRun(t, "--root", root, "surface")
	if out != "Surface: BARREN\n" {
		t.Errorf("surface with no entries = %q", out)
	}

	for i := 0; i < 3; i++ {
		depositJSON(t, root, "sunny", "0.9")
	}
	out = mustRun(t, "--root", root, "--json", "surface")
	var resp map[string]string
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode surface JSON: %v", err)
	}
	if resp["surface"] != "HOUSE" {
		t.Errorf("surface = %q, want HOUSE", resp["surface"])
	}
}

func TestBackupRestoreCycle(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()

	depositJSON(t, root, "one", "0.5")
	depositJSON(t, root, "two", "0.3")

	out := mustRun(t, "--root", root, "--json", "backup")
	var b struct {
		Path       string `json:"path"`
		EntryCount int    `json:"entry_count"`
		Version    int    `json:"version"`
		Compressed bool   `json:"compressed"`
	}
	if err := json.Unmarshal([]byte(out), &b); err != nil {
		t.Fatalf("decode backup JSON: %v", err)
	}
	if b.EntryCount != 2 || b.Version != 2 || !b.Compressed {
		t.Errorf("backup result = %+v", b)
	}

	out = mustRun(t, "backup", "verify", b.Path)
	if !strings.Contains(out, "OK: checksum verified") {
		t.Errorf("verify output = %q", out)
	}

	out = mustRun(t, "backup", "list")
	if !strings.Contains(out, "Total: 1 backups") {
		t.Errorf("backup list output = %q", out)
	}

	out = mustRun(t, "--root", root, "--json", "restore", b.Path)
	var merge struct {
		Restored int `json:"entries_restored"`
		Skipped  int `json:"entries_skipped"`
	}
	if err := json.Unmarshal([]byte(out), &merge); err != nil {
		t.Fatalf("decode restore JSON: %v", err)
	}
	if merge.Restored != 0 || merge.Skipped != 2 {
		t.Errorf("merge restore = %+v, want 0 restored 2 skipped", merge)
	}

	depositJSON(t, root, "three", "0.7")
	out = mustRun(t, "--root", root, "restore", b.Path, "--mode", "replace")
	if !strings.Contains(out, "2 restored") || !strings.Contains(out, "3 removed") {
		t.Errorf("replace output = %q", out)
	}

	out = mustRun(t, "--root", root, "--json", "list")
	var list struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode list JSON: %v", err)
	}
	if list.Total != 2 {
		t.Errorf("entries after replace = %d, want 2", list.Total)
	}
}

func TestBackup_Uncompressed(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	depositJSON(t, root, "plain", "0.5")

	out := mustRun(t, "--root", root, "backup", "--no-compress")
	if !strings.Contains(out, "v1/json") {
		t.Errorf("backup output = %q", out)
	}

	out = mustRun(t, "--json", "backup", "list")
	var list struct {
		Backups []struct {
			Path string `json:"path"`
		} `json:"backups"`
		TotalCount int `json:"total_count"`
	}
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode backup list JSON: %v", err)
	}
	if list.TotalCount != 1 {
		t.Fatalf("total_count = %d, want 1", list.TotalCount)
	}

	out = mustRun(t, "backup", "verify", list.Backups[0].Path)
	if !strings.Contains(out, "V1 format") {
		t.Errorf("verify output = %q", out)
	}
}

func TestBackup_PathRejected(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "elsewhere.json.gz")

	if _, err := run(t, "", "--root", root, "backup", "--output", outside); err == nil {
		t.Error("backup outside the allowed directories should fail")
	}
	if _, err := run(t, "", "--root", root, "restore", outside); err == nil {
		t.Error("restore outside the allowed directories should fail")
	}

	inRoot := filepath.Join(root, ".geomood", "backups", "local.json.gz")
	depositJSON(t, root, "kept", "0.5")
	if _, err := run(t, "", "--root", root, "backup", "--output", inRoot); err != nil {
		t.Errorf("backup under the journal root: %v", err)
	}
}

func TestRestore_InvalidMode(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	path := filepath.Join(root, ".geomood", "backups", "x.json")
	if _, err := run(t, "", "--root", root, "restore", path, "--mode", "overwrite"); err == nil {
		t.Error("unknown restore mode should fail")
	}
}

func TestBackupVerify_Corrupt(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	res := verifyBackup(path)
	if res.Valid {
		t.Errorf("corrupt file verified: %+v", res)
	}
}

func TestConfigCmd(t *testing.T) {
	home := isolateHome(t)
	t.Setenv("GEOMOOD_LLM_API_KEY", "sk-test-abcdefghijklmnop")

	out := mustRun(t, "config", "path")
	if want := filepath.Join(home, ".geomood", config.FileName); strings.TrimSpace(out) != want {
		t.Errorf("config path = %q, want %q", out, want)
	}

	out = mustRun(t, "config", "list")
	if strings.Contains(out, "sk-test-abcdefghijklmnop") {
		t.Error("config list leaked the API key")
	}
	if !strings.Contains(out, "columns:") {
		t.Errorf("config list output = %q", out)
	}

	out = mustRun(t, "config", "set", "backup.retention.max_count", "3")
	if !strings.Contains(out, "Set backup.retention.max_count = 3") {
		t.Errorf("set output = %q", out)
	}
	out = mustRun(t, "--json", "config", "get", "backup.retention.max_count")
	var got struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode get JSON: %v", err)
	}
	if got.Value != 3 {
		t.Errorf("max_count = %d, want 3", got.Value)
	}

	saved, err := config.LoadFromFile(filepath.Join(home, ".geomood", config.FileName))
	if err != nil {
		t.Fatalf("load saved config: %v", err)
	}
	if saved.LLM.APIKey != "" {
		t.Error("environment API key was written to the config file")
	}

	mustRun(t, "config", "set", "dates.locale", "en-US")
	out = mustRun(t, "config", "get", "dates.locale")
	if out != "dates.locale = en-US\n" {
		t.Errorf("get output = %q", out)
	}

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown key", args: []string{"config", "set", "world.gravity", "1"}},
		{name: "invalid value", args: []string{"config", "set", "world.columns", "-4"}},
		{name: "bad provider", args: []string{"config", "set", "llm.provider", "gpt"}},
		{name: "get unknown", args: []string{"config", "get", "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, "", tt.args...); err == nil {
				t.Errorf("geomood %v succeeded, want error", tt.args)
			}
		})
	}
}

func TestInvalidLogLevel(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	if _, err := run(t, "", "--root", root, "--log-level", "loud", "list"); err == nil {
		t.Error("invalid --log-level should fail")
	}
	if _, err := run(t, "", "--root", root, "--log-level", "debug", "list"); err != nil {
		t.Errorf("--log-level debug: %v", err)
	}
}

func TestRetentionPolicy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.BackupConfig
		wantErr bool
	}{
		{name: "count only", cfg: config.BackupConfig{Retention: config.RetentionConfig{MaxCount: 5}}},
		{name: "age and size", cfg: config.BackupConfig{Retention: config.RetentionConfig{MaxCount: 5, MaxAge: "30d", MaxTotalSize: "100MB"}}},
		{name: "bad age", cfg: config.BackupConfig{Retention: config.RetentionConfig{MaxCount: 5, MaxAge: "forever"}}, wantErr: true},
		{name: "bad size", cfg: config.BackupConfig{Retention: config.RetentionConfig{MaxCount: 5, MaxTotalSize: "lots"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := retentionPolicy(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("retentionPolicy() error = %v, wantErr %v", err, tt.wantErr)
			}
			if policy == nil {
				t.Error("retentionPolicy() returned nil policy")
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{1024, "1.0KB"},
		{1536, "1.5KB"},
		{5 * 1024 * 1024, "5.0MB"},
		{3 * 1024 * 1024 * 1024, "3.0GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
