// Package apperr defines the error taxonomy shared by the dispatch
// pipeline, the platform gateways and the API layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline error. Only RateLimited and TransientNetwork
// are eligible for retry.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindCredentialExpired  Kind = "credential_expired"
	KindRateLimited        Kind = "rate_limited"
	KindTransientNetwork   Kind = "transient_network"
	KindPermanentRejected  Kind = "permanent_rejected"
	KindAIGenerationFailed Kind = "ai_generation_failed"
)

// Error couples a Kind with an underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a taxonomy error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap creates a taxonomy error around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Retryable reports whether err may be retried with backoff.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTransientNetwork:
		return true
	}
	return false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
