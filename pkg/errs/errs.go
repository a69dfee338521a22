// Package errs defines the typed error kinds that cross component
// boundaries in this module. Every user-visible failure names a stable
// code and, where applicable, the match it concerns, so the API surface
// and the event bus can render a consistent error shape regardless of
// which component raised it.
package errs

import "fmt"

// Kind is a stable, API-facing error classification.
type Kind string

const (
	InvalidInput     Kind = "invalid-input"
	NoMatch          Kind = "no-match"
	ProofFailed      Kind = "proof-failed"
	SignatureTimeout Kind = "signature-timeout"
	OnChainTransient Kind = "on-chain-transient"
	OnChainTerminal  Kind = "on-chain-terminal"
	SubscriberSlow   Kind = "subscriber-slow"
)

// Error is the typed error value passed between components. MatchID is
// empty when the error is not match-scoped (e.g. InvalidInput at submit
// time, before a match exists).
type Error struct {
	Kind    Kind
	MatchID string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.MatchID != "" {
		return fmt.Sprintf("%s: %s (match %s)", e.Kind, e.Message, e.MatchID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Code returns the stable string clients should switch on.
func (e *Error) Code() string { return string(e.Kind) }

// New builds a non-match-scoped error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a non-match-scoped error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ForMatch builds a match-scoped error.
func ForMatch(kind Kind, matchID, message string) *Error {
	return &Error{Kind: kind, MatchID: matchID, Message: message}
}

// ForMatchf builds a match-scoped error with a formatted message.
func ForMatchf(kind Kind, matchID, format string, args ...any) *Error {
	return &Error{Kind: kind, MatchID: matchID, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error without a match scope.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// IsTerminal reports whether a kind always ends a match's lifecycle.
func IsTerminal(kind Kind) bool {
	switch kind {
	case ProofFailed, SignatureTimeout, OnChainTerminal:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether a kind should trigger backoff retry rather
// than an immediate terminal transition.
func IsRetryable(kind Kind) bool {
	return kind == OnChainTransient
}
