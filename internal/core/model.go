package core

import (
	"time"
)

// NewsgroupEntry is a single newsgroup as advertised by the provider's
// catalog: name, high/low water marks and the posting-status flag.
type NewsgroupEntry struct {
	Name string
	High int64
	Low  int64
	Flag string
}

// Snapshot is a full catalog enumeration plus the time it was fetched.
// A snapshot is replaced wholesale on refresh, never patched.
type Snapshot struct {
	FetchedAt time.Time
	Groups    []NewsgroupEntry
}

// Empty reports whether the snapshot has never been populated.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Groups) == 0
}

// MessageHeader is one article's overview fields. Date is nil when the
// server's Date header could not be parsed; such headers are retained and
// sort after all dated entries.
type MessageHeader struct {
	Number     int64
	MessageID  string
	Subject    string
	From       string
	Date       *time.Time
	RawDate    string
	References []string
	Group      string

	// Body is populated only by opt-in body retrieval.
	Body string

	// Assessment is attached by the relevance gateway, when one ran.
	Assessment *RelevanceAssessment
}

// SearchWindow is the resolved retrieval window for one invocation.
type SearchWindow struct {
	Cutoff         time.Time
	PerGroupBudget int
	Days           int
}

// GroupFetchOutcome is the per-group result of a multi-group fetch. Err is
// nil on success; a failed group still occupies its slot in the aggregate.
type GroupFetchOutcome struct {
	Group   string
	Headers []MessageHeader
	Err     error
}

// FailureReason returns a human-readable reason for a failed outcome, or ""
// when the group fetch succeeded.
func (o GroupFetchOutcome) FailureReason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Criterion describes what the relevance gateway should score: a poster
// identity, a topic, or both. WithBody allows body text to inform scoring.
type Criterion struct {
	Poster   string
	Topic    string
	WithBody bool
}

// IsZero reports whether no scoring was requested.
func (c Criterion) IsZero() bool {
	return c.Poster == "" && c.Topic == ""
}

// RelevanceAssessment is the gateway's verdict for one message. The core
// treats it as opaque ranking input.
type RelevanceAssessment struct {
	MessageID  string
	Match      bool
	Confidence float64
	Reasoning  string
}

// CatalogInfo describes the cached catalog snapshot for callers.
type CatalogInfo struct {
	Exists     bool
	FetchedAt  time.Time
	AgeHours   float64
	GroupCount int
	Stale      bool
}

// ListOptions controls catalog listing.
type ListOptions struct {
	ForceRefresh bool
	// Substring filters group names case-insensitively; empty means all.
	Substring string
	// MaxResults bounds the returned entries; <= 0 means unbounded.
	MaxResults int
}

// CatalogReport is the result of a catalog listing.
type CatalogReport struct {
	Entries   []NewsgroupEntry
	Info      CatalogInfo
	Refreshed bool
	// Limited is true when MaxResults cut the entry list short.
	Limited bool
}

// SearchParams are the caller-supplied parameters of a search.
type SearchParams struct {
	Pattern  string
	Period   string
	Poster   string
	Topic    string
	WithBody bool
	// MaxGroups caps the candidate groups considered; <= 0 uses the
	// configured default.
	MaxGroups int
	// MaxResults bounds the ranked result list; <= 0 means unbounded.
	MaxResults int
}

// SearchReport is the aggregate outcome of a search invocation.
type SearchReport struct {
	Messages []MessageHeader
	// GroupStats maps group name to the number of headers it contributed
	// after filtering.
	GroupStats map[string]int
	// Failures maps group name to its failure reason.
	Failures        map[string]string
	GroupsMatched   int
	GroupsSucceeded int
	GroupsFailed    int
	// TruncatedGroups is how many matching groups were dropped by the
	// candidate cap.
	TruncatedGroups int
	Window          SearchWindow
	MultiGroup      bool
	// FallbackUsed is true when keyword matching substituted for the
	// relevance gateway.
	FallbackUsed bool
}

// RawReport is the outcome of an unscored header listing.
type RawReport struct {
	Messages        []MessageHeader
	GroupStats      map[string]int
	Failures        map[string]string
	GroupsMatched   int
	GroupsSucceeded int
	GroupsFailed    int
	TruncatedGroups int
	TotalCount      int
	Window          SearchWindow
	MultiGroup      bool
}
