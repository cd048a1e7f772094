package macro

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/earnest-s/slate-core/internal/infrastructure/database"
	_ "github.com/earnest-s/slate-core/migrations"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "macros.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewStore(db)
}

func testSequence(id string) Sequence {
	now := time.Now().UTC().Truncate(time.Second)
	return Sequence{
		ID:   id,
		Name: "open-overlay",
		Events: []Event{
			{Kind: KeyDown, Code: 125, DelayMs: 0},
			{Kind: KeyDown, Code: 34, DelayMs: 80},
			{Kind: KeyUp, Code: 34, DelayMs: 60},
			{Kind: KeyUp, Code: 125, DelayMs: 40},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seq := testSequence("seq-1")
	if err := store.Save(ctx, seq); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(ctx, "seq-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != seq.Name {
		t.Errorf("name = %q, want %q", got.Name, seq.Name)
	}
	if len(got.Events) != 4 {
		t.Fatalf("events = %d, want 4", len(got.Events))
	}
	if got.Events[1].DelayMs != 80 {
		t.Errorf("event 1 delay = %d, want 80", got.Events[1].DelayMs)
	}
}

func TestStoreGet_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStoreSave_Upsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seq := testSequence("seq-1")
	if err := store.Save(ctx, seq); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	seq.Name = "renamed"
	seq.Events = seq.Events[:2]
	if err := store.Save(ctx, seq); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := store.Get(ctx, "seq-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "renamed" || len(got.Events) != 2 {
		t.Errorf("after upsert: name=%q events=%d, want renamed/2", got.Name, len(got.Events))
	}
}

func TestStoreList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a := testSequence("seq-a")
	a.Name = "zeta"
	b := testSequence("seq-b")
	b.Name = "alpha"
	for _, seq := range []Sequence{a, b} {
		if err := store.Save(ctx, seq); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() len = %d, want 2", len(got))
	}
	if got[0].Name != "alpha" || got[1].Name != "zeta" {
		t.Errorf("List() order = %q, %q; want alpha, zeta", got[0].Name, got[1].Name)
	}
}

func TestStoreDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSequence("seq-1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, "seq-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "seq-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	if err := store.Delete(ctx, "seq-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
