package batch

import (
	"context"

	"github.com/kailas-cloud/esrepo/internal/mapping"
	"github.com/kailas-cloud/esrepo/pkg/engine"
	"github.com/kailas-cloud/esrepo/pkg/query"
)

// BulkWriter executes one multi-document write.
type BulkWriter interface {
	Bulk(ctx context.Context, req *engine.BulkRequest) (*engine.BulkResponse, error)
}

// IndexTranslator turns one index descriptor into a write item.
type IndexTranslator interface {
	Index(q *query.IndexQuery, meta *mapping.Metadata) (*engine.IndexRequest, error)
}
