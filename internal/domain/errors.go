package domain

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrConfig signals missing or inconsistent entity/query metadata:
	// no id field, a non-struct entity, or absent index/type/id where required.
	ErrConfig = errors.New("configuration error")
	// ErrNilArgument signals a nil value where one is mandatory.
	ErrNilArgument = errors.New("nil argument")
	// ErrFacetType signals a facet that is not a term facet.
	ErrFacetType = errors.New("facet is not a term facet")
	// ErrBulkFailure signals that at least one bulk item failed.
	ErrBulkFailure = errors.New("bulk indexing has failures")
)

// BulkError carries the id -> message mapping of every failed bulk item.
// The write as a whole is reported failed even if most items succeeded.
type BulkError struct {
	Failures map[string]string
	Total    int
	order    []string
}

// NewBulkError builds a BulkError. ids lists failed ids in item order and
// must match the keys of failures.
func NewBulkError(failures map[string]string, ids []string, total int) *BulkError {
	return &BulkError{Failures: failures, Total: total, order: ids}
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("%s: %d of %d documents failed", ErrBulkFailure.Error(), len(e.Failures), e.Total)
}

func (e *BulkError) Unwrap() error { return ErrBulkFailure }

// FailedIDs returns failed ids in bulk item order when known, sorted otherwise.
func (e *BulkError) FailedIDs() []string {
	if len(e.order) == len(e.Failures) {
		return append([]string(nil), e.order...)
	}
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Configf returns an ErrConfig-wrapped error with context.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// NilArgument returns an ErrNilArgument-wrapped error naming the argument.
func NilArgument(what string) error {
	return fmt.Errorf("%w: %s", ErrNilArgument, what)
}
