package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrLexicalUnavailable indicates the active vector backend has no
	// lexical index. The strict policy requires one; the hybrid policy
	// degrades to ANN-only instead.
	ErrLexicalUnavailable = errors.New("lexical search unavailable")
)

// ValidationError reports a malformed filter expression: an unknown field,
// an unsupported operator, or a value the operator cannot apply to.
// It is always surfaced to the caller and never retried.
type ValidationError struct {
	Field  string
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("invalid filter %s__%s: %s", e.Field, e.Op, e.Reason)
	}
	return fmt.Sprintf("invalid filter %s: %s", e.Field, e.Reason)
}

// BackendUnavailableError reports a connection or network failure against a
// remote backend. Callers may retry; the store never retries internally.
type BackendUnavailableError struct {
	Backend string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend %s unavailable: %v", e.Backend, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// PartialWriteError reports a batch upsert in which at least one chunk was
// rejected. The whole call fails; Stored and Failed let the caller retry
// only the failed subset.
type PartialWriteError struct {
	Backend string

	// Stored lists chunk UIDs that were persisted before the failure.
	Stored []string

	// Failed maps rejected chunk UIDs to the rejection cause.
	Failed map[string]string
}

func (e *PartialWriteError) Error() string {
	uids := make([]string, 0, len(e.Failed))
	for uid := range e.Failed {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return fmt.Sprintf("backend %s: upsert rejected %d of %d chunks: %s",
		e.Backend, len(e.Failed), len(e.Failed)+len(e.Stored), strings.Join(uids, ", "))
}
