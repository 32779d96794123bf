package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// stubGroup is one group's provider-side state for tests.
type stubGroup struct {
	status      GroupStatus
	headers     []MessageHeader
	bodies      map[int64]string
	selectErr   error
	overviewErr error
}

// stubProvider backs stub sessions with shared, scripted data.
type stubProvider struct {
	mu      sync.Mutex
	catalog []NewsgroupEntry
	groups  map[string]*stubGroup
	dialErr error
	listErr error
	dials   int
}

func (p *stubProvider) Dial(ctx context.Context) (Session, error) {
	p.mu.Lock()
	p.dials++
	p.mu.Unlock()
	if p.dialErr != nil {
		return nil, p.dialErr
	}
	return &stubSession{provider: p}, nil
}

func (p *stubProvider) dialCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dials
}

type stubSession struct {
	provider *stubProvider
	current  *stubGroup
}

func (s *stubSession) ListCatalog(ctx context.Context) (CatalogStream, error) {
	if s.provider.listErr != nil {
		return nil, s.provider.listErr
	}
	return &sliceCatalogStream{entries: s.provider.catalog}, nil
}

func (s *stubSession) SelectGroup(ctx context.Context, group string) (GroupStatus, error) {
	g, ok := s.provider.groups[group]
	if !ok {
		return GroupStatus{}, fmt.Errorf("group %q not carried by provider", group)
	}
	if g.selectErr != nil {
		return GroupStatus{}, g.selectErr
	}
	s.current = g
	return g.status, nil
}

func (s *stubSession) FetchOverview(ctx context.Context, group string, low, high int64) (OverviewStream, error) {
	if s.current == nil {
		return nil, fmt.Errorf("no group selected")
	}
	if s.current.overviewErr != nil {
		return nil, s.current.overviewErr
	}
	var hs []MessageHeader
	for _, h := range s.current.headers {
		if h.Number >= low && h.Number <= high {
			hs = append(hs, h)
		}
	}
	return &sliceOverviewStream{headers: hs}, nil
}

func (s *stubSession) FetchBody(ctx context.Context, article int64) (string, error) {
	if s.current == nil {
		return "", fmt.Errorf("no group selected")
	}
	body, ok := s.current.bodies[article]
	if !ok {
		return "", fmt.Errorf("no such article %d", article)
	}
	return body, nil
}

func (s *stubSession) Capabilities(ctx context.Context) ([]string, error) {
	return []string{"VERSION 2", "READER"}, nil
}

func (s *stubSession) Close() error { return nil }

type sliceCatalogStream struct {
	entries []NewsgroupEntry
	pos     int
}

func (c *sliceCatalogStream) Next(n int) ([]NewsgroupEntry, error) {
	end := c.pos + n
	if end > len(c.entries) {
		end = len(c.entries)
	}
	page := c.entries[c.pos:end]
	c.pos = end
	return page, nil
}

func (c *sliceCatalogStream) Exhausted() bool { return c.pos >= len(c.entries) }

type sliceOverviewStream struct {
	headers []MessageHeader
	pos     int
	err     error
}

func (o *sliceOverviewStream) Next() bool {
	if o.err != nil || o.pos >= len(o.headers) {
		return false
	}
	o.pos++
	return true
}

func (o *sliceOverviewStream) Header() MessageHeader { return o.headers[o.pos-1] }
func (o *sliceOverviewStream) Err() error            { return o.err }
func (o *sliceOverviewStream) Abort() error          { o.pos = len(o.headers); return nil }

// stubStore is an in-memory CatalogStore with scriptable failures. Every
// persisted snapshot is kept in history for inspection.
type stubStore struct {
	mu      sync.Mutex
	snap    *Snapshot
	loadErr error
	saveErr error
	saves   int
	history []*Snapshot
}

func (s *stubStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.snap == nil {
		return &Snapshot{}, nil
	}
	return s.snap, nil
}

func (s *stubStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap
	s.saves++
	s.history = append(s.history, snap)
	return nil
}

// stubGateway is a scriptable RelevanceGateway.
type stubGateway struct {
	available   bool
	err         error
	assessments []RelevanceAssessment
	calls       int
}

func (g *stubGateway) Available() bool { return g.available }

func (g *stubGateway) Assess(ctx context.Context, headers []MessageHeader, crit Criterion) ([]RelevanceAssessment, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if g.assessments != nil {
		return g.assessments, nil
	}
	out := make([]RelevanceAssessment, len(headers))
	for i, h := range headers {
		out[i] = RelevanceAssessment{MessageID: h.MessageID, Match: true, Confidence: 0.9}
	}
	return out, nil
}

func datePtr(t time.Time) *time.Time { return &t }

func overviewHeader(num int64, id string, date *time.Time) MessageHeader {
	return MessageHeader{
		Number:    num,
		MessageID: id,
		Subject:   fmt.Sprintf("subject %d", num),
		From:      fmt.Sprintf("poster%d@example.org", num),
		Date:      date,
	}
}
