package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nvandessel/geomood/internal/models"
)

func testEntry(id string, day int, content string) models.Entry {
	return models.Entry{
		ID:          id,
		Date:        time.Date(2024, time.May, day, 9, 30, 0, 0, time.UTC),
		Content:     content,
		MoodScore:   0.5,
		Thickness:   models.ContentLength(content),
		MineralType: models.MineralMoonstone,
	}
}

// storeFactories lets every contract test run against each implementation.
func storeFactories() map[string]func(t *testing.T) EntryStore {
	return map[string]func(t *testing.T) EntryStore{
		"memory": func(t *testing.T) EntryStore { return NewInMemoryEntryStore() },
		"sqlite": func(t *testing.T) EntryStore {
			s, err := NewSQLiteEntryStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewSQLiteEntryStore() error = %v", err)
			}
			return s
		},
	}
}

func TestEntryStore_AddGet(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			want := testEntry("e1", 1, "晴天😀")
			want.HasGem = true
			if err := s.AddEntry(ctx, want); err != nil {
				t.Fatalf("AddEntry() error = %v", err)
			}

			got, err := s.GetEntry(ctx, "e1")
			if err != nil {
				t.Fatalf("GetEntry() error = %v", err)
			}
			if got == nil {
				t.Fatal("GetEntry() returned nil for existing entry")
			}
			if got.ID != want.ID || got.Content != want.Content || !got.Date.Equal(want.Date) ||
				got.MoodScore != want.MoodScore || got.Thickness != want.Thickness ||
				got.MineralType != want.MineralType || got.HasGem != want.HasGem || got.GemWisdom != nil {
				t.Errorf("GetEntry() = %+v, want %+v", got, want)
			}

			missing, err := s.GetEntry(ctx, "nope")
			if err != nil {
				t.Errorf("GetEntry(missing) error = %v", err)
			}
			if missing != nil {
				t.Errorf("GetEntry(missing) = %+v, want nil", missing)
			}
		})
	}
}

func TestEntryStore_AddRejects(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			if err := s.AddEntry(ctx, testEntry("", 1, "x")); err == nil {
				t.Error("AddEntry() should require an ID")
			}
			if err := s.AddEntry(ctx, testEntry("dup", 1, "x")); err != nil {
				t.Fatalf("AddEntry() error = %v", err)
			}
			if err := s.AddEntry(ctx, testEntry("dup", 2, "y")); err == nil {
				t.Error("AddEntry() should reject a duplicate ID")
			}
		})
	}
}

func TestEntryStore_ListNewestFirst(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			// Deposit out of date order; a and b share a timestamp.
			for _, e := range []models.Entry{
				testEntry("mid", 2, "m"),
				testEntry("a", 1, "a"),
				testEntry("b", 1, "b"),
				testEntry("new", 3, "n"),
			} {
				if err := s.AddEntry(ctx, e); err != nil {
					t.Fatalf("AddEntry(%s) error = %v", e.ID, err)
				}
			}

			got, err := s.ListEntries(ctx)
			if err != nil {
				t.Fatalf("ListEntries() error = %v", err)
			}
			want := []string{"new", "mid", "b", "a"}
			if len(got) != len(want) {
				t.Fatalf("ListEntries() returned %d entries, want %d", len(got), len(want))
			}
			for i, id := range want {
				if got[i].ID != id {
					t.Errorf("ListEntries()[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestEntryStore_ListEmpty(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()

			got, err := s.ListEntries(context.Background())
			if err != nil {
				t.Fatalf("ListEntries() error = %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("ListEntries() = %v, want empty non-nil slice", got)
			}
		})
	}
}

func TestEntryStore_UpdateGemWisdom(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			if err := s.AddEntry(ctx, testEntry("g", 1, "gem")); err != nil {
				t.Fatalf("AddEntry() error = %v", err)
			}
			w := models.GemWisdom{MineralName: "深渊之泪", Composition: "60% 焦虑", Quote: "gem", Advice: "休息"}
			if err := s.UpdateGemWisdom(ctx, "g", w); err != nil {
				t.Fatalf("UpdateGemWisdom() error = %v", err)
			}

			got, err := s.GetEntry(ctx, "g")
			if err != nil || got == nil {
				t.Fatalf("GetEntry() = %v, %v", got, err)
			}
			if got.GemWisdom == nil || *got.GemWisdom != w {
				t.Errorf("GemWisdom = %+v, want %+v", got.GemWisdom, w)
			}

			err = s.UpdateGemWisdom(ctx, "missing", w)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("UpdateGemWisdom(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestEntryStore_Delete(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			for _, id := range []string{"x", "y", "z"} {
				if err := s.AddEntry(ctx, testEntry(id, 1, id)); err != nil {
					t.Fatalf("AddEntry() error = %v", err)
				}
			}
			if err := s.DeleteEntry(ctx, "x"); err != nil {
				t.Fatalf("DeleteEntry() error = %v", err)
			}
			if got, _ := s.GetEntry(ctx, "x"); got != nil {
				t.Error("deleted entry still present")
			}
			// Entries after the deleted one stay reachable.
			if got, _ := s.GetEntry(ctx, "z"); got == nil {
				t.Error("entry z lost after deleting x")
			}
			if err := s.DeleteEntry(ctx, "x"); !errors.Is(err, ErrNotFound) {
				t.Errorf("second DeleteEntry() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestInMemoryEntryStore_ReturnsCopies(t *testing.T) {
	s := NewInMemoryEntryStore()
	ctx := context.Background()
	s.AddEntry(ctx, testEntry("c", 1, "copy"))
	s.UpdateGemWisdom(ctx, "c", models.GemWisdom{MineralName: "a"})

	got, _ := s.GetEntry(ctx, "c")
	got.Content = "changed"
	got.GemWisdom.MineralName = "changed"

	again, _ := s.GetEntry(ctx, "c")
	if again.Content != "copy" || again.GemWisdom.MineralName != "a" {
		t.Errorf("store was mutated through a returned entry: %+v", again)
	}
}

func TestSortNewestFirst(t *testing.T) {
	entries := []models.Entry{testEntry("old", 1, ""), testEntry("new", 9, ""), testEntry("mid", 5, "")}
	SortNewestFirst(entries)
	if entries[0].ID != "new" || entries[1].ID != "mid" || entries[2].ID != "old" {
		t.Errorf("SortNewestFirst() order = %s, %s, %s", entries[0].ID, entries[1].ID, entries[2].ID)
	}
}
