package esrepo

import (
	"github.com/kailas-cloud/esrepo/internal/domain"
	"github.com/kailas-cloud/esrepo/pkg/document"
	"github.com/kailas-cloud/esrepo/pkg/engine"
)

// Sentinel errors returned by repository operations. Use errors.Is.
var (
	ErrConfig      = domain.ErrConfig
	ErrNilArgument = domain.ErrNilArgument
	ErrFacetType   = domain.ErrFacetType
	ErrBulkFailure = domain.ErrBulkFailure

	ErrIndexNotFound = engine.ErrIndexNotFound
	ErrUnavailable   = engine.ErrUnavailable
	ErrConflict      = engine.ErrConflict
)

// BulkError reports the failed items of a bulk write. Failures maps each
// failed id to its message.
type BulkError = domain.BulkError

// DocumentConfig is the storage configuration an entity may declare.
type DocumentConfig = document.Config
