package core

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchConcurrency bounds the cross-group fetch worker pool.
const DefaultFetchConcurrency = 4

// HeaderFetcher retrieves headers for many groups concurrently. Each worker
// dials its own session, failures stay isolated to their group's outcome,
// and results aggregate in input order regardless of completion order.
type HeaderFetcher struct {
	dialer      Dialer
	logger      *zap.Logger
	concurrency int
}

// NewHeaderFetcher creates a fetcher with the given worker bound.
// concurrency <= 0 uses the default of 4.
func NewHeaderFetcher(dialer Dialer, logger *zap.Logger, concurrency int) *HeaderFetcher {
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	return &HeaderFetcher{
		dialer:      dialer,
		logger:      logger,
		concurrency: concurrency,
	}
}

// FetchAll retrieves headers for every group within the window. It always
// returns exactly one outcome per group, in input order; per-group failures
// are recorded on the outcome and never abort siblings. Cancellation of ctx
// makes unfinished workers report a timeout while completed outcomes are
// preserved.
func (f *HeaderFetcher) FetchAll(ctx context.Context, groups []string, window SearchWindow) []GroupFetchOutcome {
	outcomes := make([]GroupFetchOutcome, len(groups))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, name := range groups {
		i, name := i, name
		g.Go(func() error {
			outcomes[i] = f.fetchGroup(ctx, name, window)
			return nil
		})
	}
	// Workers never return errors; failures live in the outcome slots.
	_ = g.Wait()

	return outcomes
}

func (f *HeaderFetcher) fetchGroup(ctx context.Context, group string, window SearchWindow) GroupFetchOutcome {
	outcome := GroupFetchOutcome{Group: group}

	if err := ctx.Err(); err != nil {
		outcome.Err = f.describe(err)
		return outcome
	}

	session, err := f.dialer.Dial(ctx)
	if err != nil {
		outcome.Err = f.describe(err)
		return outcome
	}
	defer session.Close()

	status, err := session.SelectGroup(ctx, group)
	if err != nil {
		outcome.Err = f.describe(err)
		return outcome
	}

	// Pull at most the budget's worth of the newest articles.
	low := status.Low
	if span := int64(window.PerGroupBudget); span > 0 && status.High-span+1 > low {
		low = status.High - span + 1
	}
	if low > status.High {
		return outcome
	}

	stream, err := session.FetchOverview(ctx, group, low, status.High)
	if err != nil {
		outcome.Err = f.describe(err)
		return outcome
	}

	var headers []MessageHeader
	for stream.Next() {
		h := stream.Header()
		// Cutoff applies before budget truncation; unparsable dates are
		// retained rather than dropped.
		if h.Date != nil && h.Date.Before(window.Cutoff) {
			continue
		}
		h.Group = group
		headers = append(headers, h)
	}
	if err := stream.Err(); err != nil {
		outcome.Err = f.describe(err)
		return outcome
	}

	// Keep the most recent entries when the filtered set still exceeds the
	// budget. Overview order is ascending article number, so the tail is
	// the newest.
	if window.PerGroupBudget > 0 && len(headers) > window.PerGroupBudget {
		headers = headers[len(headers)-window.PerGroupBudget:]
	}

	outcome.Headers = headers
	f.logger.Debug("Fetched group headers",
		zap.String("group", group),
		zap.Int("headers", len(headers)))
	return outcome
}

// describe maps deadline and cancellation failures to explicit reasons, so
// a Ctrl-C reads as cancelled rather than as a provider timeout.
func (f *HeaderFetcher) describe(err error) error {
	switch {
	case IsCancellation(err):
		return fmt.Errorf("cancelled: %w", err)
	case IsTimeout(err):
		return fmt.Errorf("timed out: %w", err)
	}
	return err
}

// MergeHeaders flattens outcomes into a single list ordered by parsed date
// descending. Headers without a parsed date sort after all dated entries;
// relative order of ties is preserved.
func MergeHeaders(outcomes []GroupFetchOutcome) []MessageHeader {
	var merged []MessageHeader
	for _, o := range outcomes {
		merged = append(merged, o.Headers...)
	}
	SortHeaders(merged)
	return merged
}

// SortHeaders orders headers newest first with nil dates last, stably.
func SortHeaders(headers []MessageHeader) {
	sort.SliceStable(headers, func(i, j int) bool {
		a, b := headers[i].Date, headers[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

// AttachBodies fetches bodies for the first topK headers, one session per
// group, and returns the updated slice. Per-article retrieval failures
// leave that header body-less; they never fail the call.
func (f *HeaderFetcher) AttachBodies(ctx context.Context, headers []MessageHeader, topK int) []MessageHeader {
	if topK <= 0 || topK > len(headers) {
		topK = len(headers)
	}

	// Index the top candidates by owning group, preserving rank order.
	byGroup := make(map[string][]int)
	var groupOrder []string
	for i := 0; i < topK; i++ {
		g := headers[i].Group
		if _, seen := byGroup[g]; !seen {
			groupOrder = append(groupOrder, g)
		}
		byGroup[g] = append(byGroup[g], i)
	}

	for _, group := range groupOrder {
		if ctx.Err() != nil {
			break
		}
		f.attachGroupBodies(ctx, group, byGroup[group], headers)
	}
	return headers
}

func (f *HeaderFetcher) attachGroupBodies(ctx context.Context, group string, indexes []int, headers []MessageHeader) {
	session, err := f.dialer.Dial(ctx)
	if err != nil {
		f.logger.Warn("Body retrieval skipped for group",
			zap.String("group", group), zap.Error(err))
		return
	}
	defer session.Close()

	if _, err := session.SelectGroup(ctx, group); err != nil {
		f.logger.Warn("Body retrieval skipped for group",
			zap.String("group", group), zap.Error(err))
		return
	}

	for _, i := range indexes {
		if ctx.Err() != nil {
			return
		}
		body, err := session.FetchBody(ctx, headers[i].Number)
		if err != nil {
			f.logger.Debug("Body retrieval failed for article",
				zap.String("group", group),
				zap.Int64("article", headers[i].Number),
				zap.Error(err))
			continue
		}
		headers[i].Body = body
	}
}
