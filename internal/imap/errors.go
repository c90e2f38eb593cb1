package imap

import (
	"fmt"

	"github.com/pkg/errors"
)

// TransportError reports a connect, handshake or stream failure. It is
// fatal to the operation that hit it; retry policy belongs to the caller.
type TransportError struct {
	Server    string
	Transport Transport
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("imap: %s (%s): %v", e.Server, e.Transport, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError reports rejected or missing credentials. Cached credentials
// for the host/port are invalidated before this is returned.
type AuthError struct {
	Server string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("imap: authentication failed for %s: %v", e.Server, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ProtocolError reports a NO or BAD completion. The session remains
// usable.
type ProtocolError struct {
	Status string
	Text   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("imap: server said %s %s", e.Status, e.Text)
}

// ErrNotFound is returned when the server reports an article absent.
var ErrNotFound = errors.New("imap: article not found")

// ErrNotExpunged is the non-fatal condition reported when articles were
// marked deleted but neither a scoped nor an unscoped expunge was
// permitted; they remain present, just flagged.
var ErrNotExpunged = errors.New("imap: messages marked deleted but not expunged")
