// Package backup exports and restores geomood journals.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/geomood/internal/constants"
	"github.com/nvandessel/geomood/internal/models"
	"github.com/nvandessel/geomood/internal/pathutil"
	"github.com/nvandessel/geomood/internal/store"
)

// MaxRestoreFileSize bounds the size of a backup file accepted by Restore (50MB).
const MaxRestoreFileSize = 50 * 1024 * 1024

// FilePrefix starts every generated backup file name.
const FilePrefix = "geomood-backup-"

// BackupFormat is a journal snapshot. Entries are newest first.
type BackupFormat struct {
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Entries   []models.Entry `json:"entries"`
}

// DefaultBackupDir returns the default backup directory (~/.geomood/backups/).
func DefaultBackupDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DataDirName, "backups"), nil
}

// Backup exports every entry to a compressed V2 file. When allowedDirs is
// given, outputPath must lie inside one of them.
func Backup(ctx context.Context, s store.EntryStore, outputPath string, allowedDirs ...string) (*BackupFormat, error) {
	return BackupWithOptions(ctx, s, outputPath, true, allowedDirs...)
}

// BackupWithOptions exports every entry as V2 when compress is true, and
// as a plain V1 JSON array otherwise.
func BackupWithOptions(ctx context.Context, s store.EntryStore, outputPath string, compress bool, allowedDirs ...string) (*BackupFormat, error) {
	if len(allowedDirs) > 0 {
		if err := pathutil.ValidatePath(outputPath, allowedDirs); err != nil {
			return nil, fmt.Errorf("backup path rejected: %w", err)
		}
	}

	entries, err := s.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	backup := &BackupFormat{
		Version:   FormatV1,
		CreatedAt: time.Now(),
		Entries:   entries,
	}

	if compress {
		backup.Version = FormatV2
		if err := WriteV2(outputPath, backup); err != nil {
			return nil, fmt.Errorf("failed to write backup: %w", err)
		}
		return backup, nil
	}

	if err := WriteV1(outputPath, entries); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	return backup, nil
}

// RestoreMode controls how restore handles existing data.
type RestoreMode string

const (
	// RestoreMerge skips entries that already exist (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace clears the store before restoring.
	RestoreReplace RestoreMode = "replace"
)

// ParseRestoreMode validates a mode name. Empty means merge.
func ParseRestoreMode(s string) (RestoreMode, error) {
	switch RestoreMode(s) {
	case "", RestoreMerge:
		return RestoreMerge, nil
	case RestoreReplace:
		return RestoreReplace, nil
	default:
		return "", fmt.Errorf("invalid restore mode %q (valid: merge, replace)", s)
	}
}

// RestoreResult contains statistics about the restore operation.
type RestoreResult struct {
	Version         int `json:"version"`
	EntriesRestored int `json:"entries_restored"`
	EntriesSkipped  int `json:"entries_skipped"`
	EntriesRemoved  int `json:"entries_removed"`
}

// Restore imports entries from a V1 or V2 backup file into the store.
// Entries without an id or with a mood outside [0,1] are skipped.
func Restore(ctx context.Context, s store.EntryStore, inputPath string, mode RestoreMode, allowedDirs ...string) (*RestoreResult, error) {
	if len(allowedDirs) > 0 {
		if err := pathutil.ValidatePath(inputPath, allowedDirs); err != nil {
			return nil, fmt.Errorf("restore path rejected: %w", err)
		}
	}

	backup, err := Read(inputPath)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{Version: backup.Version}

	if mode == RestoreReplace {
		existing, err := s.ListEntries(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list existing entries: %w", err)
		}
		for _, e := range existing {
			if err := s.DeleteEntry(ctx, e.ID); err != nil {
				return nil, fmt.Errorf("failed to clear entry %s: %w", e.ID, err)
			}
			result.EntriesRemoved++
		}
	}

	// Insert oldest first so stores that break timestamp ties by insertion
	// order keep the backup's order.
	for i := len(backup.Entries) - 1; i >= 0; i-- {
		entry := normalizeEntry(backup.Entries[i])
		if entry.ID == "" || entry.MoodScore < 0 || entry.MoodScore > 1 {
			result.EntriesSkipped++
			continue
		}

		existing, err := s.GetEntry(ctx, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing entry %s: %w", entry.ID, err)
		}
		if existing != nil {
			result.EntriesSkipped++
			continue
		}

		if err := s.AddEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to restore entry %s: %w", entry.ID, err)
		}
		result.EntriesRestored++
	}

	if err := s.Sync(ctx); err != nil {
		return nil, fmt.Errorf("failed to sync after restore: %w", err)
	}

	return result, nil
}

// Read loads a backup file of either format.
func Read(path string) (*BackupFormat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	if info.Size() > MaxRestoreFileSize {
		return nil, fmt.Errorf("backup file exceeds maximum size of %d bytes", MaxRestoreFileSize)
	}

	version, err := DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect backup format: %w", err)
	}

	switch version {
	case FormatV2:
		return ReadV2(path)
	default:
		entries, err := ReadV1(path)
		if err != nil {
			return nil, err
		}
		return &BackupFormat{Version: FormatV1, CreatedAt: info.ModTime(), Entries: entries}, nil
	}
}

// normalizeEntry fills fields that older journals may lack.
func normalizeEntry(e models.Entry) models.Entry {
	if e.Thickness == 0 && e.Content != "" {
		e.Thickness = models.ContentLength(e.Content)
	}
	if e.MineralType == "" {
		e.MineralType = models.MineralSandstone
	}
	return e
}

// GenerateBackupPath creates a timestamped V2 backup filename in the given directory.
func GenerateBackupPath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("%s%s.json.gz", FilePrefix, ts))
}

// GenerateBackupPathV1 creates a timestamped V1 backup filename in the given directory.
func GenerateBackupPathV1(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("%s%s.json", FilePrefix, ts))
}

// ReadV1 reads a plain JSON array of entries, the format the browser
// client kept under its storage key.
func ReadV1(path string) ([]models.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxRestoreFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	if len(data) > MaxRestoreFileSize {
		return nil, errors.New("backup file exceeds maximum size")
	}

	var entries []models.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	return entries, nil
}

// WriteV1 writes entries as an indented JSON array.
func WriteV1(path string, entries []models.Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if entries == nil {
		entries = []models.Entry{}
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(entries); err != nil {
		return fmt.Errorf("encoding entries: %w", err)
	}
	return nil
}
