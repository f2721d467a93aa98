package entities

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so calling layers can branch on kind.
type ErrorKind string

const (
	// KindConfiguration covers invalid parameters: bad window/overlap,
	// non-positive k, empty source IDs, dimension mismatches.
	KindConfiguration ErrorKind = "configuration"
	// KindNotFound means an unknown source ID was requested.
	KindNotFound ErrorKind = "not_found"
	// KindEmbeddingUnavailable means the embedding model could not be
	// loaded or reached. Fatal: nothing else can proceed without it.
	KindEmbeddingUnavailable ErrorKind = "embedding_unavailable"
	// KindGenerationBackend means the external generation call failed.
	// Recovered by falling back to the none-backend answer path.
	KindGenerationBackend ErrorKind = "generation_backend"
)

// Error is a structured error: a kind plus a human-readable message,
// optionally wrapping a lower-level cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a structured error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps a cause with a kind and message.
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or "" when err carries no kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err (or anything it wraps) has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsNotFound reports whether err is a missing-source error.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// IsConfiguration reports whether err is an invalid-parameter error.
func IsConfiguration(err error) bool { return IsKind(err, KindConfiguration) }
