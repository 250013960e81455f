package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend operations.
var (
	ErrIndexNotFound = errors.New("engine: index not found")
	ErrIndexExists   = errors.New("engine: index already exists")
	ErrUnavailable   = errors.New("engine: backend unavailable")
	ErrConflict      = errors.New("engine: version conflict")
)

// Op constants name backend operations for error context and metrics.
const (
	OpPing          = "ping"
	OpGet           = "get"
	OpSearch        = "search"
	OpSuggest       = "suggest"
	OpCount         = "count"
	OpIndex         = "index"
	OpUpdate        = "update"
	OpDelete        = "delete"
	OpDeleteByQuery = "delete_by_query"
	OpBulk          = "bulk"
	OpRefresh       = "refresh"
	OpCreateIndex   = "create_index"
	OpDeleteIndex   = "delete_index"
	OpIndexExists   = "index_exists"
)

// Error wraps an underlying error with the operation name for diagnostics.
// Status, Type and Reason are filled when the backend answered with an
// error document.
type Error struct {
	Op     string
	Status int
	Type   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: [%d] %s: %s", e.Op, e.Status, e.Type, e.Reason)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
