package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestService(provider *stubProvider, store *stubStore, gateway RelevanceGateway) *ExplorerService {
	logger := zap.NewNop()
	cat := NewCatalog(store, logger, 24*time.Hour, 0)
	fetcher := NewHeaderFetcher(provider, logger, 4)
	fallback := &stubGateway{available: true}
	return NewExplorerService(cat, provider, fetcher, gateway, fallback, logger, 20, 20, 0.5)
}

func threeGroupProvider(now time.Time) *stubProvider {
	provider := &stubProvider{groups: map[string]*stubGroup{}}
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("comp.lang.g%d", i)
		provider.catalog = append(provider.catalog, NewsgroupEntry{Name: name, Low: 1, High: 2})
		provider.groups[name] = &stubGroup{
			status: GroupStatus{Count: 2, Low: 1, High: 2},
			headers: []MessageHeader{
				overviewHeader(1, fmt.Sprintf("<1@%s>", name), datePtr(now.Add(-time.Hour))),
				overviewHeader(2, fmt.Sprintf("<2@%s>", name), datePtr(now)),
			},
		}
	}
	return provider
}

func TestSearchMultiGroup(t *testing.T) {
	now := time.Now()
	provider := threeGroupProvider(now)
	service := newTestService(provider, &stubStore{}, nil)

	report, err := service.Search(context.Background(), SearchParams{
		Pattern: "comp.lang.*",
		Period:  "week",
		Topic:   "subject",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if report.GroupsMatched != 3 || report.GroupsSucceeded != 3 || report.GroupsFailed != 0 {
		t.Errorf("groups matched/succeeded/failed = %d/%d/%d, want 3/3/0",
			report.GroupsMatched, report.GroupsSucceeded, report.GroupsFailed)
	}
	if !report.MultiGroup {
		t.Error("expected MultiGroup for a wildcard pattern")
	}
	if !report.FallbackUsed {
		t.Error("expected keyword fallback with no gateway configured")
	}
	if len(report.Messages) != 6 {
		t.Errorf("messages = %d, want 6", len(report.Messages))
	}
	for _, msg := range report.Messages {
		if msg.Assessment == nil {
			t.Errorf("message %s has no assessment", msg.MessageID)
		}
	}
}

func TestSearchIsolatesGroupFailure(t *testing.T) {
	now := time.Now()
	provider := threeGroupProvider(now)
	provider.groups["comp.lang.g1"].selectErr = errors.New("451 temporary failure")
	service := newTestService(provider, &stubStore{}, nil)

	report, err := service.Search(context.Background(), SearchParams{
		Pattern: "comp.lang.*",
		Topic:   "subject",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if report.GroupsFailed != 1 || report.GroupsSucceeded != 2 {
		t.Errorf("failed/succeeded = %d/%d, want 1/2", report.GroupsFailed, report.GroupsSucceeded)
	}
	if _, ok := report.Failures["comp.lang.g1"]; !ok {
		t.Error("expected a failure reason for comp.lang.g1")
	}
	if len(report.Messages) != 4 {
		t.Errorf("messages = %d, want 4 from the surviving groups", len(report.Messages))
	}
}

func TestSearchExactGroupFailureIsFatal(t *testing.T) {
	now := time.Now()
	provider := threeGroupProvider(now)
	provider.groups["comp.lang.g0"].selectErr = errors.New("411 no such group")
	service := newTestService(provider, &stubStore{}, nil)

	_, err := service.Search(context.Background(), SearchParams{
		Pattern: "comp.lang.g0",
		Topic:   "subject",
	})
	if err == nil {
		t.Fatal("expected an exact single-group failure to abort the search")
	}
}

func TestSearchValidation(t *testing.T) {
	service := newTestService(&stubProvider{}, &stubStore{}, nil)

	if _, err := service.Search(context.Background(), SearchParams{Pattern: ""}); err == nil {
		t.Error("expected error for empty pattern")
	}
	if _, err := service.Search(context.Background(), SearchParams{Pattern: "a.b", Period: "junk"}); err == nil {
		t.Error("expected error for junk period")
	}
}

func TestSearchGatewayErrorFallsBack(t *testing.T) {
	now := time.Now()
	provider := threeGroupProvider(now)
	gateway := &stubGateway{available: true, err: errors.New("model quota exhausted")}
	service := newTestService(provider, &stubStore{}, gateway)

	report, err := service.Search(context.Background(), SearchParams{
		Pattern: "comp.lang.g0",
		Topic:   "subject",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gateway.calls != 1 {
		t.Errorf("gateway calls = %d, want 1", gateway.calls)
	}
	if !report.FallbackUsed {
		t.Error("expected fallback after gateway error")
	}
	if len(report.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(report.Messages))
	}
}

func TestSearchConfidenceFilter(t *testing.T) {
	now := time.Now()
	provider := threeGroupProvider(now)
	gateway := &stubGateway{available: true, assessments: []RelevanceAssessment{
		{MessageID: "<1@comp.lang.g0>", Match: true, Confidence: 0.9},
		{MessageID: "<2@comp.lang.g0>", Match: true, Confidence: 0.3},
	}}
	service := newTestService(provider, &stubStore{}, gateway)

	report, err := service.Search(context.Background(), SearchParams{
		Pattern: "comp.lang.g0",
		Topic:   "subject",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(report.Messages) != 1 {
		t.Fatalf("messages = %d, want 1 above the confidence floor", len(report.Messages))
	}
	if report.Messages[0].MessageID != "<1@comp.lang.g0>" {
		t.Errorf("kept %s, want <1@comp.lang.g0>", report.Messages[0].MessageID)
	}
}

func TestSearchMaxResults(t *testing.T) {
	now := time.Now()
	provider := threeGroupProvider(now)
	service := newTestService(provider, &stubStore{}, nil)

	report, err := service.Search(context.Background(), SearchParams{
		Pattern:    "comp.lang.*",
		Topic:      "subject",
		MaxResults: 2,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(report.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(report.Messages))
	}
}

func TestListRaw(t *testing.T) {
	now := time.Now()
	provider := threeGroupProvider(now)
	service := newTestService(provider, &stubStore{}, nil)

	report, err := service.ListRaw(context.Background(), "comp.lang.*", "month")
	if err != nil {
		t.Fatalf("ListRaw: %v", err)
	}
	if report.TotalCount != 6 {
		t.Errorf("TotalCount = %d, want 6", report.TotalCount)
	}
	if report.Window.Days != 30 {
		t.Errorf("window days = %d, want 30", report.Window.Days)
	}
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("comp.lang.g%d", i)
		if report.GroupStats[name] != 2 {
			t.Errorf("GroupStats[%s] = %d, want 2", name, report.GroupStats[name])
		}
	}
	// Newest first across groups.
	if report.Messages[0].Date.Before(*report.Messages[len(report.Messages)-1].Date) {
		t.Error("messages not sorted newest first")
	}
}

func TestListRawMonthScalesOverWeek(t *testing.T) {
	now := time.Now()
	provider := &stubProvider{groups: map[string]*stubGroup{}}
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("0.test.g%d", i)
		group := &stubGroup{status: GroupStatus{Count: 300, Low: 1, High: 300}}
		for n := int64(1); n <= 300; n++ {
			// One article every 3 hours, newest at the high water mark.
			age := time.Duration(300-n) * 3 * time.Hour
			group.headers = append(group.headers,
				overviewHeader(n, fmt.Sprintf("<%d@%s>", n, name), datePtr(now.Add(-age))))
		}
		provider.catalog = append(provider.catalog, NewsgroupEntry{Name: name, Low: 1, High: 300})
		provider.groups[name] = group
	}
	service := newTestService(provider, &stubStore{}, nil)

	week, err := service.ListRaw(context.Background(), "0.*", "week")
	if err != nil {
		t.Fatalf("ListRaw week: %v", err)
	}
	month, err := service.ListRaw(context.Background(), "0.*", "month")
	if err != nil {
		t.Fatalf("ListRaw month: %v", err)
	}

	if week.TotalCount == 0 || month.TotalCount == 0 {
		t.Fatalf("counts = %d/%d, want both windows populated", week.TotalCount, month.TotalCount)
	}
	// Enough posting history for the month window to dwarf the week's.
	if month.TotalCount < 4*week.TotalCount {
		t.Errorf("month count %d < 4x week count %d", month.TotalCount, week.TotalCount)
	}
}

func TestListCatalogRefreshesWhenStale(t *testing.T) {
	now := time.Now()
	provider := threeGroupProvider(now)
	store := &stubStore{snap: &Snapshot{
		FetchedAt: now.Add(-48 * time.Hour),
		Groups:    []NewsgroupEntry{{Name: "old.group", Low: 1, High: 5}},
	}}
	service := newTestService(provider, store, nil)

	report, err := service.ListCatalog(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if !report.Refreshed {
		t.Error("expected a refresh for a stale snapshot")
	}
	if len(report.Entries) != 3 {
		t.Errorf("entries = %d, want the refreshed catalog", len(report.Entries))
	}
}

func TestListCatalogServesStaleOnRefreshFailure(t *testing.T) {
	now := time.Now()
	provider := &stubProvider{dialErr: errors.New("connection refused")}
	store := &stubStore{snap: &Snapshot{
		FetchedAt: now.Add(-48 * time.Hour),
		Groups:    []NewsgroupEntry{{Name: "old.group", Low: 1, High: 5}},
	}}
	service := newTestService(provider, store, nil)

	report, err := service.ListCatalog(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if report.Refreshed {
		t.Error("refresh cannot have succeeded")
	}
	if len(report.Entries) != 1 || report.Entries[0].Name != "old.group" {
		t.Errorf("entries = %v, want the stale snapshot", report.Entries)
	}
}

func TestListCatalogSubstringFilter(t *testing.T) {
	now := time.Now()
	provider := threeGroupProvider(now)
	store := &stubStore{snap: &Snapshot{
		FetchedAt: now.Add(-time.Hour),
		Groups: []NewsgroupEntry{
			{Name: "comp.lang.go", Low: 1, High: 10},
			{Name: "rec.games.chess", Low: 1, High: 10},
			{Name: "comp.os.linux", Low: 1, High: 10},
		},
	}}
	service := newTestService(provider, store, nil)

	report, err := service.ListCatalog(context.Background(), ListOptions{Substring: "COMP"})
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if len(report.Entries) != 2 {
		t.Errorf("entries = %d, want 2 (case-insensitive substring)", len(report.Entries))
	}

	report, err = service.ListCatalog(context.Background(), ListOptions{MaxResults: 1})
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if len(report.Entries) != 1 || !report.Limited {
		t.Errorf("entries = %d limited = %t, want 1/true", len(report.Entries), report.Limited)
	}
}

func TestSearchWithBody(t *testing.T) {
	now := time.Now()
	provider := threeGroupProvider(now)
	provider.groups["comp.lang.g0"].bodies = map[int64]string{
		1: "discussing generics at length",
		2: "nothing of note",
	}
	service := newTestService(provider, &stubStore{}, nil)

	report, err := service.Search(context.Background(), SearchParams{
		Pattern:  "comp.lang.g0",
		Topic:    "subject",
		WithBody: true,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, msg := range report.Messages {
		if msg.Body == "" {
			t.Errorf("message %s has no body", msg.MessageID)
		}
	}
}

func TestTestConnection(t *testing.T) {
	if err := newTestService(threeGroupProvider(time.Now()), &stubStore{}, nil).TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}

	provider := &stubProvider{dialErr: errors.New("connection refused")}
	err := newTestService(provider, &stubStore{}, nil).TestConnection(context.Background())
	if err == nil || !strings.Contains(err.Error(), "refused") {
		t.Fatalf("err = %v, want the dial failure", err)
	}
}
