package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/core"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.json")
	store := NewFileStore(path, zap.NewNop())
	ctx := context.Background()

	snap := &core.Snapshot{
		FetchedAt: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		Groups: []core.NewsgroupEntry{
			{Name: "comp.lang.go", High: 120, Low: 7, Flag: "y"},
			{Name: "rec.games.chess", High: 9, Low: 1, Flag: "m"},
		},
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.FetchedAt.Equal(snap.FetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", loaded.FetchedAt, snap.FetchedAt)
	}
	if len(loaded.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(loaded.Groups))
	}
	if loaded.Groups[0] != snap.Groups[0] || loaded.Groups[1] != snap.Groups[1] {
		t.Errorf("groups = %v, want %v", loaded.Groups, snap.Groups)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"), zap.NewNop())

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !snap.Empty() {
		t.Errorf("snapshot = %v, want empty for a missing file", snap)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path, zap.NewNop())

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !snap.Empty() {
		t.Errorf("snapshot = %v, want empty for a corrupt file", snap)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	store := NewFileStore(path, zap.NewNop())
	ctx := context.Background()

	first := &core.Snapshot{
		FetchedAt: time.Unix(1700000000, 0),
		Groups:    []core.NewsgroupEntry{{Name: "old.group", High: 5, Low: 1}},
	}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := &core.Snapshot{
		FetchedAt: time.Unix(1700100000, 0),
		Groups:    []core.NewsgroupEntry{{Name: "new.group", High: 10, Low: 2}},
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Groups) != 1 || loaded.Groups[0].Name != "new.group" {
		t.Errorf("groups = %v, want the replacement snapshot only", loaded.Groups)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory entries = %d, want just the snapshot", len(entries))
	}
}
