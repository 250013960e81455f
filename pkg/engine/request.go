package engine

// Body is a request body in the backend's query DSL.
type Body = map[string]any

// GetRequest fetches one document.
type GetRequest struct {
	Index string
	Type  string
	ID    string
}

// SearchRequest is a fully translated search. Body holds query, paging,
// sort, projection, post filter, aggregations and highlight sections.
type SearchRequest struct {
	Indices []string
	Types   []string
	Routing []string
	Body    Body
}

// CountRequest counts documents matching Body["query"].
type CountRequest struct {
	Indices []string
	Types   []string
	Body    Body
}

// SuggestRequest asks for suggestions only; no hits are returned.
type SuggestRequest struct {
	Indices    []string
	Preference string
	Routing    []string
	Body       Body
}

// VersionExternal is the version type used when a caller supplies its own
// document version.
const VersionExternal = "external"

// IndexRequest writes one serialized document.
type IndexRequest struct {
	Index       string
	Type        string
	ID          string // empty lets the backend assign one
	Source      []byte
	Version     *int64
	VersionType string
}

// UpdateRequest applies a partial document.
type UpdateRequest struct {
	Index string
	Type  string
	ID    string
	Body  Body
}

// DeleteRequest removes one document.
type DeleteRequest struct {
	Index string
	Type  string
	ID    string
}

// DeleteByQueryRequest removes every document matching Body["query"].
type DeleteByQueryRequest struct {
	Indices []string
	Types   []string
	Body    Body
}

// BulkRequest batches index writes into one round-trip.
type BulkRequest struct {
	Items []*IndexRequest
}
