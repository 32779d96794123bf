// Package nntp implements the provider session: a single authenticated
// NNTP connection with paged catalog listing, XOVER header streaming and
// article body retrieval.
package nntp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/textproto"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/core"
)

// DefaultTimeout bounds every network exchange on a session.
const DefaultTimeout = 30 * time.Second

// Config holds the provider connection parameters. It is owned by the
// caller and borrowed by sessions for connection setup.
type Config struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	Timeout  time.Duration
}

// Addr returns the dial address.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		if c.TLS {
			port = 563
		} else {
			port = 119
		}
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// Dialer opens authenticated sessions to one provider.
type Dialer struct {
	cfg    Config
	logger *zap.Logger
}

// NewDialer creates a dialer for the configured provider.
func NewDialer(cfg Config, logger *zap.Logger) *Dialer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Dialer{cfg: cfg, logger: logger}
}

// Dial connects, reads the greeting and authenticates when credentials are
// configured. The returned session owns exactly one live socket.
func (d *Dialer) Dial(ctx context.Context) (core.Session, error) {
	nd := &net.Dialer{Timeout: d.cfg.Timeout}
	conn, err := nd.DialContext(ctx, "tcp", d.cfg.Addr())
	if err != nil {
		return nil, &core.ConnectionError{Host: d.cfg.Addr(), Err: err}
	}

	if d.cfg.TLS {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: d.cfg.Host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, &core.ConnectionError{Host: d.cfg.Addr(), Err: fmt.Errorf("tls handshake: %w", err)}
		}
		conn = tlsConn
	}

	s := &Session{
		cfg:    d.cfg,
		conn:   conn,
		text:   textproto.NewConn(conn),
		logger: d.logger,
	}

	if err := s.handshake(ctx); err != nil {
		s.conn.Close()
		return nil, err
	}

	d.logger.Debug("Provider session established",
		zap.String("addr", d.cfg.Addr()),
		zap.Bool("tls", d.cfg.TLS),
		zap.Bool("authenticated", d.cfg.Username != ""))
	return s, nil
}
