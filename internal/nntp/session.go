package nntp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/core"
)

// Session is one live NNTP connection. It is not safe for concurrent use;
// each concurrent fetch dials its own session. After a protocol error or an
// aborted stream the session is poisoned and refuses further commands.
type Session struct {
	cfg    Config
	conn   net.Conn
	text   *textproto.Conn
	logger *zap.Logger

	poisoned  bool
	streaming bool
	closed    bool
}

func (s *Session) handshake(ctx context.Context) error {
	s.setDeadline(ctx)
	// 200 posting allowed, 201 read-only: both are fine for retrieval.
	if _, _, err := s.text.ReadCodeLine(20); err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) {
			return &core.ProtocolError{Detail: fmt.Sprintf("unexpected greeting %d %s", tpErr.Code, tpErr.Msg)}
		}
		return &core.ConnectionError{Host: s.cfg.Addr(), Err: fmt.Errorf("reading greeting: %w", err)}
	}

	if s.cfg.Username == "" {
		return nil
	}

	s.setDeadline(ctx)
	if err := s.text.PrintfLine("AUTHINFO USER %s", s.cfg.Username); err != nil {
		return &core.ConnectionError{Host: s.cfg.Addr(), Err: err}
	}
	if _, _, err := s.text.ReadCodeLine(381); err != nil {
		// Some servers accept the user alone with 281.
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && tpErr.Code == 281 {
			return nil
		}
		return &core.AuthError{Err: err}
	}

	s.setDeadline(ctx)
	if err := s.text.PrintfLine("AUTHINFO PASS %s", s.cfg.Password); err != nil {
		return &core.ConnectionError{Host: s.cfg.Addr(), Err: err}
	}
	if _, _, err := s.text.ReadCodeLine(281); err != nil {
		return &core.AuthError{Err: err}
	}
	return nil
}

// setDeadline applies the sooner of the per-exchange timeout and the
// context deadline. Every network call on the session is bounded.
func (s *Session) setDeadline(ctx context.Context) {
	d := time.Now().Add(s.cfg.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(d) {
		d = dl
	}
	s.conn.SetDeadline(d)
}

func (s *Session) ready() error {
	switch {
	case s.closed:
		return &core.ProtocolError{Detail: "session closed"}
	case s.poisoned:
		return &core.ProtocolError{Detail: "session poisoned by earlier protocol failure"}
	case s.streaming:
		return &core.ProtocolError{Detail: "previous stream not drained"}
	}
	return nil
}

// fail poisons the session and wraps a command failure into the domain
// error taxonomy.
func (s *Session) fail(detail string, err error) error {
	s.poisoned = true
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return &core.ProtocolError{Detail: fmt.Sprintf("%s: unexpected response %d %s", detail, tpErr.Code, tpErr.Msg)}
	}
	if core.IsTimeout(err) || core.IsCancellation(err) {
		return fmt.Errorf("%s: %w", detail, err)
	}
	return &core.ConnectionError{Host: s.cfg.Addr(), Err: fmt.Errorf("%s: %w", detail, err)}
}

// ListCatalog issues LIST and returns the paged enumeration stream.
func (s *Session) ListCatalog(ctx context.Context) (core.CatalogStream, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.setDeadline(ctx)
	if err := s.text.PrintfLine("LIST"); err != nil {
		return nil, s.fail("LIST", err)
	}
	if _, _, err := s.text.ReadCodeLine(215); err != nil {
		return nil, s.fail("LIST", err)
	}
	s.streaming = true
	return &catalogStream{session: s, ctx: ctx}, nil
}

// SelectGroup makes the group current and returns its water marks.
func (s *Session) SelectGroup(ctx context.Context, group string) (core.GroupStatus, error) {
	if err := s.ready(); err != nil {
		return core.GroupStatus{}, err
	}
	s.setDeadline(ctx)
	if err := s.text.PrintfLine("GROUP %s", group); err != nil {
		return core.GroupStatus{}, s.fail("GROUP", err)
	}
	_, msg, err := s.text.ReadCodeLine(211)
	if err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && tpErr.Code == 411 {
			// Clean refusal, the session stays usable.
			return core.GroupStatus{}, fmt.Errorf("group %q not carried by provider", group)
		}
		return core.GroupStatus{}, s.fail("GROUP", err)
	}

	fields := strings.Fields(msg)
	if len(fields) < 3 {
		return core.GroupStatus{}, s.fail("GROUP", fmt.Errorf("short response %q", msg))
	}
	count, err1 := strconv.ParseInt(fields[0], 10, 64)
	low, err2 := strconv.ParseInt(fields[1], 10, 64)
	high, err3 := strconv.ParseInt(fields[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return core.GroupStatus{}, s.fail("GROUP", fmt.Errorf("unparsable response %q", msg))
	}
	return core.GroupStatus{Count: count, Low: low, High: high}, nil
}

// FetchOverview issues XOVER for the article range and returns the lazy
// header stream bound to this connection.
func (s *Session) FetchOverview(ctx context.Context, group string, low, high int64) (core.OverviewStream, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.setDeadline(ctx)
	if err := s.text.PrintfLine("XOVER %d-%d", low, high); err != nil {
		return nil, s.fail("XOVER", err)
	}
	if _, _, err := s.text.ReadCodeLine(224); err != nil {
		return nil, s.fail("XOVER", err)
	}
	s.streaming = true
	return &overviewStream{session: s, ctx: ctx, group: group}, nil
}

// FetchBody retrieves one article body from the currently selected group.
func (s *Session) FetchBody(ctx context.Context, article int64) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	s.setDeadline(ctx)
	if err := s.text.PrintfLine("BODY %d", article); err != nil {
		return "", s.fail("BODY", err)
	}
	if _, _, err := s.text.ReadCodeLine(222); err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && (tpErr.Code == 423 || tpErr.Code == 430) {
			return "", fmt.Errorf("article %d not available", article)
		}
		return "", s.fail("BODY", err)
	}
	lines, err := s.text.ReadDotLines()
	if err != nil {
		return "", s.fail("BODY", err)
	}
	return strings.Join(lines, "\n"), nil
}

// Capabilities probes the server's advertised capabilities.
func (s *Session) Capabilities(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.setDeadline(ctx)
	if err := s.text.PrintfLine("CAPABILITIES"); err != nil {
		return nil, s.fail("CAPABILITIES", err)
	}
	if _, _, err := s.text.ReadCodeLine(101); err != nil {
		return nil, s.fail("CAPABILITIES", err)
	}
	caps, err := s.text.ReadDotLines()
	if err != nil {
		return nil, s.fail("CAPABILITIES", err)
	}
	return caps, nil
}

// Close quits politely when the session is healthy and always releases the
// socket.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.poisoned && !s.streaming {
		s.conn.SetDeadline(time.Now().Add(2 * time.Second))
		if err := s.text.PrintfLine("QUIT"); err == nil {
			s.text.ReadCodeLine(205)
		}
	}
	return s.text.Close()
}
