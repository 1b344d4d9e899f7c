// Package faults defines the engine's error taxonomy. Nothing here is fatal
// to the process; callers decide between rejecting a request, degrading a
// result, or skipping a single scheme.
package faults

import (
	"errors"
	"fmt"
)

// ErrRetrievalUnavailable signals that the similarity-search backend could
// not be reached. The orchestrator degrades to a filter-only scan of the
// cached catalog snapshot instead of failing the request.
var ErrRetrievalUnavailable = errors.New("retrieval backend unavailable")

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed or incomplete input before evaluation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// PredicateCorruptionError marks a single scheme whose predicate data could
// not be evaluated. The scheme is excluded from results; the request as a
// whole continues.
type PredicateCorruptionError struct {
	SchemeID string
	Reason   string
}

func (e *PredicateCorruptionError) Error() string {
	return fmt.Sprintf("corrupt predicate data for scheme %s: %s", e.SchemeID, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsPredicateCorruption reports whether err marks corrupt per-scheme data.
func IsPredicateCorruption(err error) bool {
	var p *PredicateCorruptionError
	return errors.As(err, &p)
}
