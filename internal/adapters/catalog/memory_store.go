package catalog

import (
	"context"
	"sync"

	"github.com/mikey/usenet-explorer/internal/core"
)

// MemoryStore keeps the snapshot in process memory; useful for tests and
// for runs that should not touch the filesystem.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *core.Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored snapshot, or an empty one.
func (ms *MemoryStore) Load(ctx context.Context) (*core.Snapshot, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if ms.snap == nil {
		return &core.Snapshot{}, nil
	}
	cp := &core.Snapshot{
		FetchedAt: ms.snap.FetchedAt,
		Groups:    append([]core.NewsgroupEntry(nil), ms.snap.Groups...),
	}
	return cp, nil
}

// Save replaces the stored snapshot.
func (ms *MemoryStore) Save(ctx context.Context, snap *core.Snapshot) error {
	cp := &core.Snapshot{
		FetchedAt: snap.FetchedAt,
		Groups:    append([]core.NewsgroupEntry(nil), snap.Groups...),
	}
	ms.mu.Lock()
	ms.snap = cp
	ms.mu.Unlock()
	return nil
}
