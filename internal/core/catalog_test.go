package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestIsStale(t *testing.T) {
	maxAge := 24 * time.Hour
	now := time.Now()
	cat := NewCatalog(&stubStore{}, zap.NewNop(), maxAge, 0)

	tests := []struct {
		name string
		snap *Snapshot
		want bool
	}{
		{
			name: "empty snapshot",
			snap: &Snapshot{},
			want: true,
		},
		{
			name: "fresh",
			snap: &Snapshot{FetchedAt: now.Add(-time.Hour), Groups: []NewsgroupEntry{{Name: "a"}}},
			want: false,
		},
		{
			name: "exactly at the boundary",
			snap: &Snapshot{FetchedAt: now.Add(-maxAge), Groups: []NewsgroupEntry{{Name: "a"}}},
			want: false,
		},
		{
			name: "past the boundary",
			snap: &Snapshot{FetchedAt: now.Add(-maxAge - time.Second), Groups: []NewsgroupEntry{{Name: "a"}}},
			want: true,
		},
	}

	for _, tt := range tests {
		if got := cat.IsStale(tt.snap, now); got != tt.want {
			t.Errorf("%s: IsStale = %t, want %t", tt.name, got, tt.want)
		}
	}
}

func TestRefreshSkipsWhenFresh(t *testing.T) {
	store := &stubStore{snap: &Snapshot{
		FetchedAt: time.Now().Add(-time.Hour),
		Groups:    []NewsgroupEntry{{Name: "comp.lang.go", Low: 1, High: 10}},
	}}
	provider := &stubProvider{}
	cat := NewCatalog(store, zap.NewNop(), 24*time.Hour, 0)

	snap, err := cat.Refresh(context.Background(), provider, false)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if provider.dialCount() != 0 {
		t.Errorf("dials = %d, want 0 for a fresh snapshot", provider.dialCount())
	}
	if len(snap.Groups) != 1 {
		t.Errorf("groups = %d, want the cached snapshot", len(snap.Groups))
	}
}

func TestRefreshForceReplacesSnapshot(t *testing.T) {
	store := &stubStore{snap: &Snapshot{
		FetchedAt: time.Now().Add(-time.Hour),
		Groups:    []NewsgroupEntry{{Name: "old.group", Low: 1, High: 5}},
	}}
	provider := &stubProvider{catalog: []NewsgroupEntry{
		{Name: "comp.lang.go", Low: 1, High: 10},
		{Name: "comp.lang.go", Low: 1, High: 10}, // duplicate is dropped
		{Name: "broken.group", Low: 10, High: 2}, // high < low is dropped
		{Name: "rec.games.chess", Low: 5, High: 9},
	}}
	cat := NewCatalog(store, zap.NewNop(), 24*time.Hour, 2)

	snap, err := cat.Refresh(context.Background(), provider, true)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if provider.dialCount() != 1 {
		t.Errorf("dials = %d, want 1", provider.dialCount())
	}
	if len(snap.Groups) != 2 {
		t.Fatalf("groups = %d, want 2 after dedupe and validity filtering", len(snap.Groups))
	}
	if snap.Groups[0].Name != "comp.lang.go" || snap.Groups[1].Name != "rec.games.chess" {
		t.Errorf("groups = %v, want catalog order preserved", snap.Groups)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want the snapshot persisted once", store.saves)
	}
}

func TestRefreshIdempotentPersistedSnapshot(t *testing.T) {
	store := &stubStore{}
	provider := &stubProvider{catalog: []NewsgroupEntry{
		{Name: "comp.lang.go", Low: 1, High: 10, Flag: "y"},
		{Name: "rec.games.chess", Low: 5, High: 9, Flag: "y"},
	}}
	cat := NewCatalog(store, zap.NewNop(), 24*time.Hour, 0)

	for i := 0; i < 2; i++ {
		if _, err := cat.Refresh(context.Background(), provider, true); err != nil {
			t.Fatalf("refresh %d: %v", i+1, err)
		}
	}
	if len(store.history) != 2 {
		t.Fatalf("persisted snapshots = %d, want 2", len(store.history))
	}

	first, second := *store.history[0], *store.history[1]
	if first.FetchedAt.IsZero() || second.FetchedAt.IsZero() {
		t.Fatal("persisted snapshots must carry a fetch time")
	}

	// With no provider-side change the two persisted documents must be
	// byte-identical apart from the fetch time.
	first.FetchedAt, second.FetchedAt = time.Time{}, time.Time{}
	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("snapshots differ beyond FetchedAt:\n%s\n%s", a, b)
	}
}

// gateDialer blocks every dial until released, so concurrent refreshes
// overlap deterministically.
type gateDialer struct {
	inner   *stubProvider
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (d *gateDialer) Dial(ctx context.Context) (Session, error) {
	d.once.Do(func() { close(d.started) })
	<-d.release
	return d.inner.Dial(ctx)
}

func TestRefreshCoalescesConcurrentCalls(t *testing.T) {
	provider := &stubProvider{catalog: []NewsgroupEntry{
		{Name: "comp.lang.go", Low: 1, High: 10},
	}}
	dialer := &gateDialer{
		inner:   provider,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	cat := NewCatalog(&stubStore{}, zap.NewNop(), 24*time.Hour, 0)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = cat.Refresh(context.Background(), dialer, false)
	}()
	<-dialer.started

	// The first refresh holds its dial open; the rest arrive while it is
	// in flight and must join it instead of dialing themselves.
	for i := 1; i < len(errs); i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = cat.Refresh(context.Background(), dialer, false)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(dialer.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
	if provider.dialCount() != 1 {
		t.Errorf("dials = %d, want concurrent refreshes coalesced into 1", provider.dialCount())
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	cached := &Snapshot{
		FetchedAt: time.Now().Add(-48 * time.Hour),
		Groups:    []NewsgroupEntry{{Name: "comp.lang.go", Low: 1, High: 10}},
	}
	store := &stubStore{snap: cached}
	provider := &stubProvider{dialErr: errors.New("connection refused")}
	cat := NewCatalog(store, zap.NewNop(), 24*time.Hour, 0)

	if _, err := cat.Refresh(context.Background(), provider, false); err == nil {
		t.Fatal("expected refresh failure")
	}

	snap, err := cat.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Groups) != 1 || snap.Groups[0].Name != "comp.lang.go" {
		t.Errorf("snapshot = %v, want the previous one untouched", snap.Groups)
	}
}

func TestInfo(t *testing.T) {
	fetched := time.Now().Add(-2 * time.Hour)
	store := &stubStore{snap: &Snapshot{
		FetchedAt: fetched,
		Groups:    []NewsgroupEntry{{Name: "a"}, {Name: "b"}},
	}}
	cat := NewCatalog(store, zap.NewNop(), 24*time.Hour, 0)

	info, err := cat.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if !info.Exists {
		t.Error("expected Exists")
	}
	if info.GroupCount != 2 {
		t.Errorf("GroupCount = %d, want 2", info.GroupCount)
	}
	if info.Stale {
		t.Error("2h old snapshot should not be stale")
	}
	if info.AgeHours < 1.9 || info.AgeHours > 2.1 {
		t.Errorf("AgeHours = %f, want about 2", info.AgeHours)
	}
}

func TestInfoEmptyStore(t *testing.T) {
	cat := NewCatalog(&stubStore{}, zap.NewNop(), 24*time.Hour, 0)
	info, err := cat.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Exists {
		t.Error("expected no snapshot")
	}
}
