package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/geomood/internal/models"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"error", slog.LevelError},
		{"warn", slog.LevelWarn},
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"Debug", slog.LevelDebug},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	for _, s := range []string{"", "info", "WARN", "trace"} {
		if !ValidLevel(s) {
			t.Errorf("ValidLevel(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"verbose", "fatal"} {
		if ValidLevel(s) {
			t.Errorf("ValidLevel(%q) = true, want false", s)
		}
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level      string
		logAtDebug bool
		logAtInfo  bool
	}{
		{"warn", false, false},
		{"info", false, true},
		{"debug", true, true},
		{"trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			if got := strings.Contains(buf.String(), "debug message"); got != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v", got, tt.logAtDebug)
			}

			buf.Reset()
			logger.Info("info message")
			if got := strings.Contains(buf.String(), "info message"); got != tt.logAtInfo {
				t.Errorf("info message visible = %v, want %v", got, tt.logAtInfo)
			}
		})
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)
	logger.Log(context.Background(), LevelTrace, "prompt")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("trace record not labelled: %q", buf.String())
	}
}

func readEvents(t *testing.T, dir string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, DecisionsFileName))
	if err != nil {
		t.Fatalf("failed to read %s: %v", DecisionsFileName, err)
	}
	var events []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e map[string]any
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("failed to parse JSONL line %q: %v", line, err)
		}
		events = append(events, e)
	}
	return events
}

func TestNewDecisionLogger_Levels(t *testing.T) {
	for _, level := range []string{"info", "warn", ""} {
		dir := t.TempDir()
		if dl := NewDecisionLogger(dir, level); dl != nil {
			t.Errorf("NewDecisionLogger(%q) should be nil", level)
		}
		if _, err := os.Stat(filepath.Join(dir, DecisionsFileName)); err == nil {
			t.Errorf("%s should not exist at level %q", DecisionsFileName, level)
		}
	}

	dir := t.TempDir()
	dl := NewDecisionLogger(filepath.Join(dir, "nested"), "debug")
	if dl == nil {
		t.Fatal("expected a DecisionLogger at debug level")
	}
	defer dl.Close()
	if dl.Trace() {
		t.Error("Trace() should be false at debug level")
	}

	info, err := os.Stat(filepath.Join(dir, "nested", DecisionsFileName))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestDecisionLogger_Log(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "debug")
	defer dl.Close()

	event := map[string]any{"event": "first", "score": 0.87}
	dl.Log(event)
	dl.Log(map[string]any{"event": "second"})

	if _, hasTime := event["time"]; hasTime {
		t.Error("Log() should not mutate caller's map")
	}

	events := readEvents(t, dir)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0]["event"] != "first" || events[0]["score"] != 0.87 || events[0]["time"] == nil {
		t.Errorf("first event = %v", events[0])
	}
	if events[1]["event"] != "second" {
		t.Errorf("second event = %v", events[1])
	}
}

func TestDecisionLogger_NilSafety(t *testing.T) {
	var dl *DecisionLogger
	dl.Log(map[string]any{"event": "should_not_panic"})
	dl.LogDeposit(&models.Entry{})
	dl.LogAppraisal("x", AppraisalFallback, nil, errors.New("e"))
	dl.LogCore(CoreSummary{})
	dl.LogDelete("x")
	dl.LogRestore("p", "merge", 0, 0)
	if dl.Trace() {
		t.Error("nil logger should not trace")
	}
	dl.Close()
}

func TestDecisionLogger_LogAfterClose(t *testing.T) {
	dl := NewDecisionLogger(t.TempDir(), "debug")
	dl.Close()
	dl.Log(map[string]any{"event": "after_close"})
}

func TestDecisionLogger_LogDeposit(t *testing.T) {
	entry := &models.Entry{ID: "e1", Content: "secret diary", MoodScore: 0.95, Thickness: 12, MineralType: models.MineralGold, HasGem: true}

	tests := []struct {
		level       string
		wantContent bool
	}{
		{"debug", false},
		{"trace", true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			dir := t.TempDir()
			dl := NewDecisionLogger(dir, tt.level)
			dl.LogDeposit(entry)
			dl.Close()

			e := readEvents(t, dir)[0]
			if e["event"] != EventDeposit || e["entry_id"] != "e1" || e["mineral"] != "GOLD" || e["has_gem"] != true {
				t.Errorf("deposit event = %v", e)
			}
			if _, has := e["content"]; has != tt.wantContent {
				t.Errorf("content present = %v, want %v", has, tt.wantContent)
			}
		})
	}
}

func TestDecisionLogger_LogAppraisal(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "debug")
	dl.LogAppraisal("g", AppraisalModel, &models.GemWisdom{MineralName: "星尘碎片"}, nil)
	dl.LogAppraisal("g", AppraisalFallback, nil, errors.New("timeout"))
	dl.LogCore(CoreSummary{Entries: 2, Columns: 60, Grains: 5, MaxHeight: 1, Gems: 1, Dates: 2})
	dl.Close()

	events := readEvents(t, dir)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0]["outcome"] != AppraisalModel || events[0]["mineral_name"] != "星尘碎片" {
		t.Errorf("model appraisal event = %v", events[0])
	}
	if events[1]["outcome"] != AppraisalFallback || events[1]["error"] != "timeout" {
		t.Errorf("fallback appraisal event = %v", events[1])
	}
	if events[2]["event"] != EventCore || events[2]["grains"] != float64(5) {
		t.Errorf("core event = %v", events[2])
	}
}
