package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"xplore/internal/core/ports"
	"xplore/internal/engine/navigation"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), time.Second)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveAndLoadHistory(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	state := ports.HistoryState{
		Active: navigation.Location{Path: "src/main.c", Line: 42, Pattern: "/^int main(void)$/"},
		Back: []navigation.Location{
			{Path: "src/a.c", Line: 10},
			{Path: "include/a.h", Pattern: "/^int foo(void);$/"},
		},
		Forward: []navigation.Location{{Path: "src/b.c", Line: 3}},
	}
	if err := store.SaveHistory(ctx, "s1", state); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.LoadHistory(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, state) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, state)
	}

	// Saving again replaces the stacks rather than appending.
	state.Back = state.Back[:1]
	state.Forward = nil
	if err := store.SaveHistory(ctx, "s1", state); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, _, err = store.LoadHistory(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Back) != 1 || len(got.Forward) != 0 {
		t.Fatalf("expected replaced stacks, got %+v", got)
	}
}

func TestStore_LoadUnknownSession(t *testing.T) {
	store := openStore(t)
	_, ok, err := store.LoadHistory(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected unknown session to report not found")
	}
}

func TestStore_RejectsEmptySessionID(t *testing.T) {
	store := openStore(t)
	if err := store.SaveHistory(context.Background(), "  ", ports.HistoryState{}); err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestStore_Prune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base }
	if err := store.SaveHistory(ctx, "old", ports.HistoryState{Back: []navigation.Location{{Path: "a.c"}}}); err != nil {
		t.Fatal(err)
	}
	store.now = func() time.Time { return base.Add(time.Hour) }
	if err := store.SaveHistory(ctx, "new", ports.HistoryState{}); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Prune(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned session, got %d", removed)
	}
	if _, ok, _ := store.LoadHistory(ctx, "old"); ok {
		t.Error("old session should be gone")
	}
	if _, ok, _ := store.LoadHistory(ctx, "new"); !ok {
		t.Error("new session should survive")
	}

	var entries int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM history_entries`).Scan(&entries); err != nil {
		t.Fatal(err)
	}
	if entries != 0 {
		t.Errorf("expected cascade delete of entries, found %d", entries)
	}
}

func TestOpen_RejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir, 0); err == nil {
		t.Fatal("expected error when path is a directory")
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store := openStore(t)
	if err := EnsureSchema(store.db); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
	var version int
	if err := store.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != SchemaVersion {
		t.Errorf("expected version %d, got %d", SchemaVersion, version)
	}
	if _, err := os.Stat(store.Path()); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestEnsureSchema_UpgradesVersionOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	raw, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(`CREATE TABLE schema_migrations (version INTEGER PRIMARY KEY, applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP))`); err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(migrations[0].sql); err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(`INSERT INTO schema_migrations(version) VALUES (1)`); err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(`INSERT INTO sessions (session_id, active_path, updated_at_utc) VALUES ('s1', 'a.c', '2026-01-01T00:00:00Z')`); err != nil {
		t.Fatal(err)
	}
	if err := raw.Close(); err != nil {
		t.Fatal(err)
	}

	store, err := Open(path, time.Second)
	if err != nil {
		t.Fatalf("open upgraded store: %v", err)
	}
	defer store.Close()

	got, ok, err := store.LoadHistory(context.Background(), "s1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Active != (navigation.Location{Path: "a.c"}) {
		t.Fatalf("expected a.c with no line after upgrade, got %+v", got.Active)
	}

	got.Active.Line = 7
	if err := store.SaveHistory(context.Background(), "s1", got); err != nil {
		t.Fatal(err)
	}
	got, _, err = store.LoadHistory(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Active.Line != 7 {
		t.Fatalf("expected active line 7, got %+v", got.Active)
	}
}
