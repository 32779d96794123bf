package core

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ConnectionError indicates the provider could not be reached or the
// connection dropped mid-exchange.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError indicates the provider rejected the configured credentials.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ProtocolError indicates a malformed server exchange. A session that
// produced a ProtocolError must be discarded, never reused.
type ProtocolError struct {
	Detail string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("protocol error: %s", e.Detail)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ValidationError indicates bad caller input, rejected before any network
// I/O happens.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// NewValidationError builds a ValidationError with a formatted detail.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}

// IsTimeout reports whether err is a deadline or network timeout of any
// flavor. Used to map worker failures to a timeout failure reason.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsCancellation reports whether err stems from caller cancellation rather
// than a deadline.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
