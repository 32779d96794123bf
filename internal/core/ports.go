package core

import (
	"context"
)

// Dialer opens authenticated provider sessions. Each call yields a fresh
// connection; sessions are never shared across concurrent fetches because
// the protocol is stateful per connection.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// GroupStatus is the provider's view of one selected group.
type GroupStatus struct {
	Count int64
	Low   int64
	High  int64
}

// Session is one authenticated channel to the provider. All network I/O
// funnels through a Session, and a Session holds exactly one live socket.
type Session interface {
	// ListCatalog starts a full catalog enumeration. The returned stream
	// must be read to exhaustion before the session issues other commands.
	ListCatalog(ctx context.Context) (CatalogStream, error)

	// SelectGroup makes the named group current and returns its article
	// water marks.
	SelectGroup(ctx context.Context, group string) (GroupStatus, error)

	// FetchOverview streams overview headers for an article range in the
	// currently selected group. The stream must be fully drained or
	// aborted before the session is reused; aborting poisons the session.
	FetchOverview(ctx context.Context, group string, low, high int64) (OverviewStream, error)

	// FetchBody retrieves one article body from the currently selected
	// group.
	FetchBody(ctx context.Context, article int64) (string, error)

	// Capabilities probes the server, used for connection checks.
	Capabilities(ctx context.Context) ([]string, error)

	Close() error
}

// CatalogStream pages through a catalog enumeration. Next returns up to n
// entries; a short page signals exhaustion, not an error.
type CatalogStream interface {
	Next(n int) ([]NewsgroupEntry, error)
	// Exhausted reports whether the enumeration has been fully consumed.
	Exhausted() bool
}

// OverviewStream lazily yields message headers bound to the owning
// session's connection, in the scanner idiom: Next advances, Header returns
// the current header, Err reports a terminal failure after Next returns
// false.
type OverviewStream interface {
	Next() bool
	Header() MessageHeader
	Err() error
	// Abort discards the rest of the stream. The owning session is
	// poisoned afterwards and must be discarded.
	Abort() error
}

// CatalogStore persists catalog snapshots. Load returns an empty snapshot
// for a missing or corrupt store, never an error for corruption.
type CatalogStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// RelevanceGateway scores poster/topic relevance for message headers. A
// gateway may be unavailable; callers fall back to deterministic keyword
// matching rather than surfacing gateway failures.
type RelevanceGateway interface {
	// Available reports whether the gateway can currently serve requests.
	Available() bool

	// Assess returns one assessment per header, in header order.
	Assess(ctx context.Context, headers []MessageHeader, crit Criterion) ([]RelevanceAssessment, error)
}
