package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCatalogMaxAge is the staleness threshold for the cached catalog.
const DefaultCatalogMaxAge = 24 * time.Hour

// DefaultCatalogPageSize is how many entries a refresh pulls per catalog
// page.
const DefaultCatalogPageSize = 1000

// Catalog manages the cached newsgroup catalog: load, staleness, refresh.
// Refreshes replace the snapshot atomically and coalesce when issued
// concurrently, so the provider is enumerated at most once at a time.
type Catalog struct {
	store    CatalogStore
	logger   *zap.Logger
	maxAge   time.Duration
	pageSize int

	mu     sync.RWMutex
	snap   *Snapshot
	loaded bool

	refreshGroup singleflight.Group
}

// NewCatalog creates a catalog manager over the given store. maxAge <= 0
// uses the 24h default; pageSize <= 0 uses the default page size.
func NewCatalog(store CatalogStore, logger *zap.Logger, maxAge time.Duration, pageSize int) *Catalog {
	if maxAge <= 0 {
		maxAge = DefaultCatalogMaxAge
	}
	if pageSize <= 0 {
		pageSize = DefaultCatalogPageSize
	}
	return &Catalog{
		store:    store,
		logger:   logger,
		maxAge:   maxAge,
		pageSize: pageSize,
	}
}

// Load returns the current snapshot, reading it from the store on first
// use. A missing or corrupt store yields an empty snapshot, never an error.
func (c *Catalog) Load(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	if c.loaded {
		snap := c.snap
		c.mu.RUnlock()
		return snap, nil
	}
	c.mu.RUnlock()

	snap, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		snap = &Snapshot{}
	}

	c.mu.Lock()
	if !c.loaded {
		c.snap = snap
		c.loaded = true
	}
	snap = c.snap
	c.mu.Unlock()
	return snap, nil
}

// IsStale reports whether the snapshot is empty or older than the staleness
// threshold at the given instant. Exactly at the boundary the snapshot is
// still fresh.
func (c *Catalog) IsStale(snap *Snapshot, now time.Time) bool {
	if snap.Empty() {
		return true
	}
	return now.Sub(snap.FetchedAt) > c.maxAge
}

// Info describes the cached snapshot for callers.
func (c *Catalog) Info(ctx context.Context) (CatalogInfo, error) {
	snap, err := c.Load(ctx)
	if err != nil {
		return CatalogInfo{}, err
	}
	if snap.Empty() {
		return CatalogInfo{}, nil
	}
	now := time.Now()
	return CatalogInfo{
		Exists:     true,
		FetchedAt:  snap.FetchedAt,
		AgeHours:   now.Sub(snap.FetchedAt).Hours(),
		GroupCount: len(snap.Groups),
		Stale:      c.IsStale(snap, now),
	}, nil
}

// Refresh re-enumerates the full catalog unless the cached snapshot is
// still fresh. ForceRefresh semantics are selected with force. Concurrent
// refreshes coalesce to a single provider enumeration; a failed refresh
// leaves the previous snapshot untouched.
func (c *Catalog) Refresh(ctx context.Context, dialer Dialer, force bool) (*Snapshot, error) {
	snap, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !force && !c.IsStale(snap, time.Now()) {
		return snap, nil
	}

	v, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		return c.refresh(ctx, dialer)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *Catalog) refresh(ctx context.Context, dialer Dialer) (*Snapshot, error) {
	start := time.Now()
	session, err := dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	stream, err := session.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}

	fresh := &Snapshot{FetchedAt: time.Now()}
	seen := make(map[string]struct{})
	dropped := 0
	for !stream.Exhausted() {
		page, err := stream.Next(c.pageSize)
		if err != nil {
			return nil, err
		}
		for _, g := range page {
			if g.High < g.Low {
				dropped++
				continue
			}
			if _, dup := seen[g.Name]; dup {
				continue
			}
			seen[g.Name] = struct{}{}
			fresh.Groups = append(fresh.Groups, g)
		}
	}

	if err := c.store.Save(ctx, fresh); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.snap = fresh
	c.loaded = true
	c.mu.Unlock()

	c.logger.Info("Catalog refreshed",
		zap.Int("groups", len(fresh.Groups)),
		zap.Int("dropped_invalid", dropped),
		zap.Duration("elapsed", time.Since(start)))
	return fresh, nil
}
