package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Failure taxonomy. Each reason is distinct so callers can decide whether to
// retry; only send-failed, server-rejected and timeout are eligible for
// silent retry after a reconnect.
var (
	ErrNoSigner       = errors.New("no signing capability available")
	ErrUserRejected   = errors.New("signature request rejected by user")
	ErrSendFailed     = errors.New("failed to send signed challenge")
	ErrServerRejected = errors.New("server rejected signature")
	ErrTimeout        = errors.New("authentication timed out")
)

// Retryable reports whether an authentication failure may be silently
// retried with remembered credentials. A user rejection is never retried.
func Retryable(err error) bool {
	return errors.Is(err, ErrSendFailed) ||
		errors.Is(err, ErrServerRejected) ||
		errors.Is(err, ErrTimeout)
}

// Error wraps a failure reason with server or wallet detail.
type Error struct {
	Reason error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason.Error(), e.Detail)
}

func (e *Error) Unwrap() error { return e.Reason }

// IsUnauthenticatedText is a compatibility shim for backends that report auth
// loss only through error text. The structured "unauthenticated" message is
// the primary trigger.
func IsUnauthenticatedText(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "not authenticated")
}
