// Package engine defines the contract between the repository layer and a
// document search backend, plus the wire-level request and response model
// exchanged over it.
package engine

import (
	"context"
	"time"
)

// Backend is the search backend facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces below
type Backend interface {
	Pinger
	Getter
	Searcher
	Counter
	Writer
	Bulker
	IndexManager
	Refresher
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Getter fetches single documents by id.
type Getter interface {
	Get(ctx context.Context, req *GetRequest) (*GetResponse, error)
}

// Searcher runs search and suggest requests.
type Searcher interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
	Suggest(ctx context.Context, req *SuggestRequest) (*SuggestResponse, error)
}

// Counter counts documents matching a query.
type Counter interface {
	Count(ctx context.Context, req *CountRequest) (int64, error)
}

// Writer performs single-document mutations.
type Writer interface {
	Index(ctx context.Context, req *IndexRequest) (string, error)
	Update(ctx context.Context, req *UpdateRequest) error
	Delete(ctx context.Context, req *DeleteRequest) error
	DeleteByQuery(ctx context.Context, req *DeleteByQueryRequest) error
}

// Bulker executes multi-document writes.
type Bulker interface {
	Bulk(ctx context.Context, req *BulkRequest) (*BulkResponse, error)
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, index string, settings *IndexSettings) error
	DeleteIndex(ctx context.Context, index string) error
	IndexExists(ctx context.Context, index string) (bool, error)
}

// Refresher makes recent writes visible to search.
type Refresher interface {
	Refresh(ctx context.Context, indices ...string) error
}
