package core

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBodyTopK bounds how many header-ranked candidates get their bodies
// retrieved for body-bearing assessment.
const DefaultBodyTopK = 20

// DefaultMinConfidence is the assessment confidence below which a match is
// dropped from search results.
const DefaultMinConfidence = 0.5

// ExplorerService is the invocation surface consumed by the command layer:
// catalog listing, scored search and raw header listing.
type ExplorerService struct {
	catalog       *Catalog
	dialer        Dialer
	fetcher       *HeaderFetcher
	gateway       RelevanceGateway
	fallback      RelevanceGateway
	logger        *zap.Logger
	maxGroups     int
	bodyTopK      int
	minConfidence float64
}

// NewExplorerService wires the service. gateway may be nil (keyword
// fallback only); fallback must always be usable.
func NewExplorerService(
	catalog *Catalog,
	dialer Dialer,
	fetcher *HeaderFetcher,
	gateway RelevanceGateway,
	fallback RelevanceGateway,
	logger *zap.Logger,
	maxGroups int,
	bodyTopK int,
	minConfidence float64,
) *ExplorerService {
	if maxGroups <= 0 {
		maxGroups = DefaultMaxCandidates
	}
	if bodyTopK <= 0 {
		bodyTopK = DefaultBodyTopK
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &ExplorerService{
		catalog:       catalog,
		dialer:        dialer,
		fetcher:       fetcher,
		gateway:       gateway,
		fallback:      fallback,
		logger:        logger,
		maxGroups:     maxGroups,
		bodyTopK:      bodyTopK,
		minConfidence: minConfidence,
	}
}

// TestConnection dials the provider and probes its capabilities.
func (s *ExplorerService) TestConnection(ctx context.Context) error {
	session, err := s.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	if _, err := session.Capabilities(ctx); err != nil {
		return err
	}
	return nil
}

// ListCatalog returns the newsgroup catalog, refreshing the cache when
// forced or stale. When an automatic refresh fails but a previous snapshot
// exists, the stale snapshot is served rather than failing the listing.
func (s *ExplorerService) ListCatalog(ctx context.Context, opts ListOptions) (*CatalogReport, error) {
	snap, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}

	refreshed := false
	if opts.ForceRefresh || s.catalog.IsStale(snap, time.Now()) {
		fresh, err := s.catalog.Refresh(ctx, s.dialer, opts.ForceRefresh)
		switch {
		case err == nil:
			snap, refreshed = fresh, true
		case snap.Empty():
			return nil, err
		default:
			s.logger.Warn("Catalog refresh failed, serving stale snapshot", zap.Error(err))
		}
	}

	report := &CatalogReport{Refreshed: refreshed}
	needle := strings.ToLower(opts.Substring)
	for _, g := range snap.AllGroups() {
		if needle != "" && !strings.Contains(strings.ToLower(g.Name), needle) {
			continue
		}
		if opts.MaxResults > 0 && len(report.Entries) >= opts.MaxResults {
			report.Limited = true
			break
		}
		report.Entries = append(report.Entries, g)
	}

	info, err := s.catalog.Info(ctx)
	if err != nil {
		return nil, err
	}
	report.Info = info
	return report, nil
}

// Search retrieves headers for groups matching the pattern within the
// period, optionally scored against a poster and/or topic criterion.
// Multi-group failures are isolated per group; an exact single-group
// failure aborts the search with that failure.
func (s *ExplorerService) Search(ctx context.Context, params SearchParams) (*SearchReport, error) {
	window, sel, outcomes, err := s.retrieve(ctx, params.Pattern, params.Period, params.MaxGroups)
	if err != nil {
		return nil, err
	}

	report := &SearchReport{
		GroupStats:      make(map[string]int),
		Failures:        make(map[string]string),
		GroupsMatched:   len(sel.Names),
		TruncatedGroups: sel.Truncated,
		Window:          window,
		MultiGroup:      !sel.Exact,
	}
	for _, o := range outcomes {
		if o.Err != nil {
			report.GroupsFailed++
			report.Failures[o.Group] = o.FailureReason()
			continue
		}
		report.GroupsSucceeded++
	}

	merged := MergeHeaders(outcomes)

	crit := Criterion{Poster: params.Poster, Topic: params.Topic, WithBody: params.WithBody}
	if !crit.IsZero() && len(merged) > 0 {
		if crit.WithBody {
			merged = s.fetcher.AttachBodies(ctx, merged, s.bodyTopK)
		}
		merged, report.FallbackUsed = s.assess(ctx, merged, crit)
	}

	if params.MaxResults > 0 && len(merged) > params.MaxResults {
		merged = merged[:params.MaxResults]
	}
	for _, h := range merged {
		report.GroupStats[h.Group]++
	}
	report.Messages = merged
	return report, nil
}

// ListRaw retrieves headers matching the pattern and period with no
// relevance scoring, for data verification.
func (s *ExplorerService) ListRaw(ctx context.Context, pattern, period string) (*RawReport, error) {
	window, sel, outcomes, err := s.retrieve(ctx, pattern, period, 0)
	if err != nil {
		return nil, err
	}

	report := &RawReport{
		GroupStats:      make(map[string]int),
		Failures:        make(map[string]string),
		GroupsMatched:   len(sel.Names),
		TruncatedGroups: sel.Truncated,
		Window:          window,
		MultiGroup:      !sel.Exact,
	}
	for _, o := range outcomes {
		if o.Err != nil {
			report.GroupsFailed++
			report.Failures[o.Group] = o.FailureReason()
			continue
		}
		report.GroupsSucceeded++
	}

	report.Messages = MergeHeaders(outcomes)
	report.TotalCount = len(report.Messages)
	for _, h := range report.Messages {
		report.GroupStats[h.Group]++
	}
	return report, nil
}

// retrieve is the shared front half of Search and ListRaw: validate,
// resolve the window, select candidate groups and fan out the fetch.
func (s *ExplorerService) retrieve(ctx context.Context, pattern, period string, maxGroups int) (SearchWindow, Selection, []GroupFetchOutcome, error) {
	if strings.TrimSpace(pattern) == "" {
		return SearchWindow{}, Selection{}, nil, NewValidationError("empty group pattern")
	}
	if period == "" {
		period = "week"
	}
	window, err := ResolveWindow(period, time.Now())
	if err != nil {
		return SearchWindow{}, Selection{}, nil, err
	}

	var snap *Snapshot
	if HasWildcard(pattern) {
		// The only point where pattern resolution may touch the network:
		// a stale or absent catalog is refreshed before matching.
		snap, err = s.catalog.Refresh(ctx, s.dialer, false)
		if err != nil {
			cached, loadErr := s.catalog.Load(ctx)
			if loadErr != nil || cached.Empty() {
				return SearchWindow{}, Selection{}, nil, err
			}
			s.logger.Warn("Catalog refresh failed, matching against stale snapshot", zap.Error(err))
			snap = cached
		}
	}

	if maxGroups <= 0 {
		maxGroups = s.maxGroups
	}
	sel, err := SelectGroups(pattern, snap, maxGroups)
	if err != nil {
		return SearchWindow{}, Selection{}, nil, err
	}
	if sel.Truncated > 0 {
		s.logger.Info("Group selection truncated",
			zap.String("pattern", pattern),
			zap.Int("kept", len(sel.Names)),
			zap.Int("dropped", sel.Truncated))
	}
	if len(sel.Names) == 0 {
		return window, sel, nil, nil
	}

	outcomes := s.fetcher.FetchAll(ctx, sel.Names, window)
	if sel.Exact && outcomes[0].Err != nil {
		return SearchWindow{}, Selection{}, nil, outcomes[0].Err
	}
	return window, sel, outcomes, nil
}

// assess scores headers through the relevance gateway, falling back to
// deterministic keyword matching when the gateway is unavailable or errors.
// It returns the matching headers with assessments attached and whether the
// fallback path ran.
func (s *ExplorerService) assess(ctx context.Context, headers []MessageHeader, crit Criterion) ([]MessageHeader, bool) {
	gw := s.gateway
	usedFallback := false
	if gw == nil || !gw.Available() {
		gw, usedFallback = s.fallback, true
	}

	assessments, err := gw.Assess(ctx, headers, crit)
	if err != nil && !usedFallback {
		s.logger.Warn("Relevance gateway failed, using keyword fallback", zap.Error(err))
		gw, usedFallback = s.fallback, true
		assessments, err = gw.Assess(ctx, headers, crit)
	}
	if err != nil {
		// The fallback is deterministic and should not fail; if it somehow
		// does, return the unscored headers rather than erroring.
		s.logger.Error("Keyword fallback failed", zap.Error(err))
		return headers, usedFallback
	}

	byID := make(map[string]RelevanceAssessment, len(assessments))
	for _, a := range assessments {
		byID[a.MessageID] = a
	}

	var matched []MessageHeader
	for i, h := range headers {
		a, ok := byID[h.MessageID]
		if !ok && i < len(assessments) {
			a, ok = assessments[i], true
		}
		if !ok {
			continue
		}
		if !a.Match || a.Confidence < s.minConfidence {
			continue
		}
		verdict := a
		h.Assessment = &verdict
		matched = append(matched, h)
	}
	return matched, usedFallback
}
