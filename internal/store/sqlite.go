package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/geomood/internal/constants"
	"github.com/nvandessel/geomood/internal/models"

	_ "modernc.org/sqlite" // SQLite driver
)

// EntriesFileName is the JSONL mirror of the journal written on Sync.
const EntriesFileName = "entries.jsonl"

// SQLiteEntryStore implements EntryStore using SQLite for persistence.
// It mirrors the journal to a JSONL file on Sync so the journal stays
// readable and diffable without the database.
type SQLiteEntryStore struct {
	mu          sync.RWMutex
	db          *sql.DB
	dataDir     string
	dbPath      string
	entriesFile string
}

// NewSQLiteEntryStore creates a new SQLiteEntryStore rooted at root.
// It creates the database at .geomood/geomood.db and imports an existing
// entries.jsonl into an empty database.
func NewSQLiteEntryStore(root string) (*SQLiteEntryStore, error) {
	dataDir := LocalGeomoodPath(root)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", constants.DataDirName, err)
	}

	dbPath := filepath.Join(dataDir, constants.DatabaseFileName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteEntryStore{
		db:          db,
		dataDir:     dataDir,
		dbPath:      dbPath,
		entriesFile: filepath.Join(dataDir, EntriesFileName),
	}

	if err := s.autoImport(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to auto-import JSONL: %w", err)
	}

	return s, nil
}

// DBPath returns the database file path.
func (s *SQLiteEntryStore) DBPath() string {
	return s.dbPath
}

// autoImport loads entries.jsonl when the database has no entries.
func (s *SQLiteEntryStore) autoImport(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	if count > 0 {
		return nil
	}

	f, err := os.Open(s.entriesFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", EntriesFileName, err)
	}
	defer f.Close()

	entries, err := ReadEntriesJSONL(f)
	if err != nil {
		return err
	}
	// The file is newest first; insert oldest first so ties keep their order.
	for i := len(entries) - 1; i >= 0; i-- {
		if err := s.insertEntry(ctx, entries[i]); err != nil {
			return fmt.Errorf("failed to import entry %s: %w", entries[i].ID, err)
		}
	}
	return nil
}

// AddEntry adds an entry to the store. Ids must be unique.
func (s *SQLiteEntryStore) AddEntry(ctx context.Context, entry models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		return fmt.Errorf("entry ID is required")
	}
	return s.insertEntry(ctx, entry)
}

func (s *SQLiteEntryStore) insertEntry(ctx context.Context, entry models.Entry) error {
	wisdom, err := marshalWisdom(entry.GemWisdom)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (id, created_ns, date, content, mood_score, thickness, mineral_type, has_gem, gem_wisdom)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Date.UnixNano(),
		entry.Date.Format(time.RFC3339Nano),
		entry.Content,
		entry.MoodScore,
		entry.Thickness,
		string(entry.MineralType),
		boolToInt(entry.HasGem),
		wisdom,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry %s: %w", entry.ID, err)
	}
	return nil
}

const selectEntry = `SELECT id, date, content, mood_score, thickness, mineral_type, has_gem, gem_wisdom FROM entries`

// GetEntry retrieves an entry by ID. Returns nil if not found.
func (s *SQLiteEntryStore) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry %s: %w", id, err)
	}
	return entry, nil
}

// ListEntries returns every entry, newest first.
func (s *SQLiteEntryStore) ListEntries(ctx context.Context) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listUnlocked(ctx)
}

func (s *SQLiteEntryStore) listUnlocked(ctx context.Context) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+` ORDER BY created_ns DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// UpdateGemWisdom stores the appraisal card for an entry.
func (s *SQLiteEntryStore) UpdateGemWisdom(ctx context.Context, id string, wisdom models.GemWisdom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := marshalWisdom(&wisdom)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE entries SET gem_wisdom = ? WHERE id = ?`, data, id)
	if err != nil {
		return fmt.Errorf("failed to update entry %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// DeleteEntry removes an entry.
func (s *SQLiteEntryStore) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// Sync exports every entry to entries.jsonl, newest first.
func (s *SQLiteEntryStore) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.listUnlocked(ctx)
	if err != nil {
		return err
	}

	tmp := s.entriesFile + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create entries file: %w", err)
	}
	if err := WriteEntriesJSONL(f, entries); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close entries file: %w", err)
	}
	if err := os.Rename(tmp, s.entriesFile); err != nil {
		return fmt.Errorf("failed to replace entries file: %w", err)
	}
	return nil
}

// Close syncs and closes the store.
func (s *SQLiteEntryStore) Close() error {
	if err := s.Sync(context.Background()); err != nil {
		// Log but don't fail on sync error during close
		fmt.Fprintf(os.Stderr, "warning: failed to sync during close: %v\n", err)
	}
	return s.db.Close()
}

// Helper functions

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e       models.Entry
		date    string
		mineral string
		hasGem  int
		wisdom  sql.NullString
	)
	if err := row.Scan(&e.ID, &date, &e.Content, &e.MoodScore, &e.Thickness, &mineral, &hasGem, &wisdom); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return nil, fmt.Errorf("entry %s has malformed date %q: %w", e.ID, date, err)
	}
	e.Date = t
	e.MineralType = models.MineralType(mineral)
	e.HasGem = hasGem != 0

	if wisdom.Valid {
		var w models.GemWisdom
		if err := json.Unmarshal([]byte(wisdom.String), &w); err != nil {
			return nil, fmt.Errorf("entry %s has malformed gem wisdom: %w", e.ID, err)
		}
		e.GemWisdom = &w
	}
	return &e, nil
}

func marshalWisdom(w *models.GemWisdom) (sql.NullString, error) {
	if w == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(w)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal gem wisdom: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
