package ai

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call to the language model. Every kind is
// recoverable by the rule-based path; the distinction is for logs and metrics.
type Kind string

const (
	KindTimeout            Kind = "timeout"
	KindRateLimited        Kind = "rate_limited"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindMalformedResponse  Kind = "malformed_response"
	// KindUpstream covers network failures, 5xx responses and a disabled client.
	KindUpstream Kind = "upstream"
)

var (
	ErrTimeout            = errors.New("ai request timed out")
	ErrRateLimited        = errors.New("ai rate limited")
	ErrQuotaExceeded      = errors.New("ai quota exceeded")
	ErrInvalidCredentials = errors.New("ai credentials rejected")
	ErrMalformedResponse  = errors.New("ai response malformed")
	ErrUpstream           = errors.New("ai service unavailable")
)

var sentinels = map[Kind]error{
	KindTimeout:            ErrTimeout,
	KindRateLimited:        ErrRateLimited,
	KindQuotaExceeded:      ErrQuotaExceeded,
	KindInvalidCredentials: ErrInvalidCredentials,
	KindMalformedResponse:  ErrMalformedResponse,
	KindUpstream:           ErrUpstream,
}

// Error is returned by every failing Client and analysis call.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind, so errors.Is(err, ErrTimeout) works.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the kind of err and whether err is an *Error at all.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
