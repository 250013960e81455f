package esrepo

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/internal/assemble"
	"github.com/kailas-cloud/esrepo/internal/domain"
	"github.com/kailas-cloud/esrepo/internal/mapping"
	"github.com/kailas-cloud/esrepo/pkg/engine"
	"github.com/kailas-cloud/esrepo/pkg/query"
)

// Repository is a typed view of one entity type's index. It holds no
// per-call state and is safe for concurrent use.
//
// Every Save, Index, SaveAll, Delete* call refreshes the affected index
// before returning, so a following read sees the write. Update does not.
type Repository[T any] struct {
	client *Client
	meta   *mapping.Metadata
}

// NewRepository resolves T's mapping and, unless disabled on the client,
// creates its index with the resolved settings when it does not exist.
func NewRepository[T any](ctx context.Context, c *Client) (*Repository[T], error) {
	meta, err := mapping.For[T](c.cache)
	if err != nil {
		return nil, fmt.Errorf("esrepo: %w", err)
	}
	r := &Repository[T]{client: c, meta: meta}
	if c.createIndex {
		if err := r.createIndexIfMissing(ctx); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// IndexName returns the index T maps to.
func (r *Repository[T]) IndexName() string { return r.meta.Index }

// TypeName returns the document type T maps to.
func (r *Repository[T]) TypeName() string { return r.meta.TypeName }

// Client returns the client this repository was created from.
func (r *Repository[T]) Client() *Client { return r.client }

// --- reads ---

// FindOne fetches the entity with the given id. A missing document is
// reported as ok=false, not as an error.
func (r *Repository[T]) FindOne(ctx context.Context, id string) (T, bool, error) {
	var zero T
	req, err := r.client.translator.Get(&query.GetQuery{ID: id}, r.meta)
	if err != nil {
		return zero, false, fmt.Errorf("find one: %w", err)
	}
	resp, err := r.client.backend.Get(ctx, req)
	if err != nil {
		return zero, false, fmt.Errorf("find one %s: %w", id, err)
	}
	entity, ok, err := assemble.One[T](r.client.assembler, resp)
	if err != nil {
		return zero, false, fmt.Errorf("find one %s: %w", id, err)
	}
	return entity, ok, nil
}

// Exists reports whether FindOne would return an entity. It fetches the
// full document.
func (r *Repository[T]) Exists(ctx context.Context, id string) (bool, error) {
	_, ok, err := r.FindOne(ctx, id)
	return ok, err
}

// Count returns the number of documents in the entity's index.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	return r.CountQuery(ctx, nil)
}

// CountQuery counts documents matching q. A nil q matches everything.
func (r *Repository[T]) CountQuery(ctx context.Context, q *query.SearchQuery) (int64, error) {
	n, err := r.client.backend.Count(ctx, r.client.translator.Count(q, r.meta))
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// FindAll returns every document of the index in one page sized to the
// current count. An empty index returns without searching.
func (r *Repository[T]) FindAll(ctx context.Context) ([]T, error) {
	return r.searchAll(ctx, nil)
}

// FindAllPage returns one page of a match-all search.
func (r *Repository[T]) FindAllPage(ctx context.Context, p *query.Pageable) (*query.Page[T], error) {
	return r.SearchQuery(ctx, &query.SearchQuery{
		Target: query.Target{Pageable: p},
		Query:  query.MatchAll(),
	})
}

// Search returns every document matching clause. It counts first and
// sizes a single page to the count; zero matches return without
// searching.
func (r *Repository[T]) Search(ctx context.Context, clause query.Clause) ([]T, error) {
	return r.searchAll(ctx, clause)
}

// SearchPage runs clause with explicit paging.
func (r *Repository[T]) SearchPage(ctx context.Context, clause query.Clause, p *query.Pageable) (*query.Page[T], error) {
	return r.SearchQuery(ctx, &query.SearchQuery{
		Target: query.Target{Pageable: p},
		Query:  clause,
	})
}

// SearchQuery runs a structured search with default result assembly:
// hits are decoded and the first highlight fragment of each field is
// written into the entity.
func (r *Repository[T]) SearchQuery(ctx context.Context, q *query.SearchQuery) (*query.Page[T], error) {
	return r.SearchWith(ctx, q, nil)
}

// SearchWith runs a structured search and assembles the result through
// parser. A nil parser behaves like SearchQuery.
func (r *Repository[T]) SearchWith(ctx context.Context, q *query.SearchQuery, parser query.Parser[T]) (*query.Page[T], error) {
	req, err := r.client.translator.Search(q, r.meta)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	resp, err := r.client.backend.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	page, err := assemble.Page[T](r.client.assembler, resp, r.meta, q.Pageable, parser)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	r.client.logger.Debug("search",
		zap.String("index", r.meta.Index),
		zap.Int64("total", page.Total),
		zap.Int("returned", len(page.Result)),
	)
	return page, nil
}

// QueryForList runs q and returns only the entities.
func (r *Repository[T]) QueryForList(ctx context.Context, q *query.SearchQuery) ([]T, error) {
	page, err := r.SearchQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	return page.Result, nil
}

// QueryForIDs runs q without fetching sources and returns hit ids in
// result order.
func (r *Repository[T]) QueryForIDs(ctx context.Context, q *query.SearchQuery) ([]string, error) {
	req, err := r.client.translator.SearchIDs(q, r.meta)
	if err != nil {
		return nil, fmt.Errorf("query for ids: %w", err)
	}
	resp, err := r.client.backend.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("query for ids: %w", err)
	}
	return assemble.IDs(resp), nil
}

// SearchSimilar finds documents similar to entity over q's fields. q's
// pageable defaults to the first page of DefaultPageSize, and q's indices
// and types scope where similar documents are looked for.
func (r *Repository[T]) SearchSimilar(ctx context.Context, entity *T, q *query.SearchQuery) (*query.Page[T], error) {
	if entity == nil {
		return nil, fmt.Errorf("search similar: %w", domain.NilArgument("entity"))
	}
	if q == nil || len(q.Fields) == 0 {
		return nil, fmt.Errorf("search similar: %w", domain.NilArgument("fields"))
	}
	id, ok, err := r.meta.ExtractID(entity)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("search similar: %w", domain.Configf("entity has no id"))
	}

	pageable := q.Pageable
	if pageable == nil {
		pageable = query.NewPageable(1, query.DefaultPageSize)
	}
	return r.MoreLikeThis(ctx, &query.MoreLikeThisQuery{
		Index:         r.meta.Index,
		Type:          r.meta.TypeName,
		ID:            id,
		SearchIndices: q.Indices,
		SearchTypes:   q.Types,
		Fields:        q.Fields,
		Pageable:      pageable,
	})
}

// MoreLikeThis runs a fully specified similarity search.
func (r *Repository[T]) MoreLikeThis(ctx context.Context, q *query.MoreLikeThisQuery) (*query.Page[T], error) {
	req, err := r.client.translator.MoreLikeThis(q, r.meta)
	if err != nil {
		return nil, fmt.Errorf("more like this: %w", err)
	}
	resp, err := r.client.backend.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("more like this: %w", err)
	}
	page, err := assemble.Page[T](r.client.assembler, resp, r.meta, q.Pageable, nil)
	if err != nil {
		return nil, fmt.Errorf("more like this: %w", err)
	}
	return page, nil
}

// Suggest runs q against the entity's index unless q names indices.
func (r *Repository[T]) Suggest(ctx context.Context, q *query.SuggestQuery) (*engine.SuggestResponse, error) {
	req, err := r.client.translator.Suggest(q, r.meta)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	resp, err := r.client.backend.Suggest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return resp, nil
}

// SuggestTerms runs one phrase suggestion for keyword on field, named
// after the entity's index, and flattens every option text of every entry
// in order.
func (r *Repository[T]) SuggestTerms(ctx context.Context, field, keyword string, size int) ([]string, error) {
	if size <= 0 {
		size = query.DefaultSuggestSize
	}
	q := (&query.SuggestQuery{}).Add(query.Suggestion{
		Name:  r.meta.Index,
		Kind:  query.SuggestPhrase,
		Field: field,
		Text:  keyword,
		Size:  size,
	})
	resp, err := r.Suggest(ctx, q)
	if err != nil {
		return nil, err
	}

	s, ok := resp.Suggestion(r.meta.Index)
	if !ok {
		return []string{}, nil
	}
	out := make([]string, 0, size)
	for _, entry := range s.Entries {
		for _, opt := range entry.Options {
			if len(out) == size {
				return out, nil
			}
			out = append(out, opt.Text)
		}
	}
	return out, nil
}

func (r *Repository[T]) searchAll(ctx context.Context, clause query.Clause) ([]T, error) {
	q := &query.SearchQuery{Query: clause}
	if clause == nil {
		q.Query = query.MatchAll()
	}
	n, err := r.CountQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []T{}, nil
	}
	q.Pageable = query.NewPageable(1, int(n))
	return r.QueryForList(ctx, q)
}

// --- writes ---

// Save indexes entity under its id, or under a backend-assigned id when it
// has none, and refreshes the index. It returns the stored id.
func (r *Repository[T]) Save(ctx context.Context, entity *T) (string, error) {
	return r.SaveQuery(ctx, nil, entity)
}

// Index is Save.
func (r *Repository[T]) Index(ctx context.Context, entity *T) (string, error) {
	return r.Save(ctx, entity)
}

// SaveQuery indexes entity with the index, type and version from q, which
// may be nil. q.Object is ignored.
func (r *Repository[T]) SaveQuery(ctx context.Context, q *query.IndexQuery, entity *T) (string, error) {
	iq, err := r.indexQuery(entity)
	if err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	if q != nil {
		iq.Index, iq.Type, iq.Version = q.Index, q.Type, q.Version
		if q.ID != "" {
			iq.ID = q.ID
		}
	}

	req, err := r.client.translator.Index(iq, r.meta)
	if err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	id, err := r.client.backend.Index(ctx, req)
	if err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	if err := r.refresh(ctx, req.Index); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	r.client.logger.Debug("saved", zap.String("index", req.Index), zap.String("id", id))
	return id, nil
}

// SaveAll indexes entities in one bulk request and refreshes the index.
// If any item fails the error is a *BulkError; the other items are stored.
func (r *Repository[T]) SaveAll(ctx context.Context, entities []*T) error {
	if entities == nil {
		return fmt.Errorf("save all: %w", domain.NilArgument("entities"))
	}
	if len(entities) == 0 {
		return nil
	}

	queries := make([]*query.IndexQuery, len(entities))
	for i, e := range entities {
		iq, err := r.indexQuery(e)
		if err != nil {
			return fmt.Errorf("save all: item %d: %w", i, err)
		}
		queries[i] = iq
	}

	_, bulkErr := r.client.bulk.Index(ctx, queries, r.meta)
	var failures *domain.BulkError
	if bulkErr != nil && !errors.As(bulkErr, &failures) {
		return fmt.Errorf("save all: %w", bulkErr)
	}
	// Refresh even on partial failure: the accepted items are stored.
	if err := r.refresh(ctx, r.meta.Index); err != nil {
		return fmt.Errorf("save all: %w", err)
	}
	if failures != nil {
		return fmt.Errorf("save all: %w", failures)
	}
	return nil
}

// Update writes entity's current state as a partial document keyed by its
// id. With upsert the document is created from the same payload when it
// does not exist. The index is not refreshed.
func (r *Repository[T]) Update(ctx context.Context, entity *T, upsert bool) error {
	if entity == nil {
		return fmt.Errorf("update: %w", domain.NilArgument("entity"))
	}
	id, ok, err := r.meta.ExtractID(entity)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if !ok {
		return fmt.Errorf("update: %w", domain.Configf("entity has no id"))
	}

	req, err := r.client.translator.Update(&query.UpdateQuery{
		ID:       id,
		DoUpsert: upsert,
		Doc:      entity,
	}, r.meta)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if err := r.client.backend.Update(ctx, req); err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	return nil
}

// Delete removes the document with id and refreshes the index. Deleting a
// missing document is not an error.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	req, err := r.client.translator.Delete("", "", id, r.meta)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := r.client.backend.Delete(ctx, req); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if err := r.refresh(ctx, req.Index); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	r.client.logger.Debug("deleted", zap.String("index", req.Index), zap.String("id", id))
	return nil
}

// DeleteEntity removes entity by its id.
func (r *Repository[T]) DeleteEntity(ctx context.Context, entity *T) error {
	if entity == nil {
		return fmt.Errorf("delete: %w", domain.NilArgument("entity"))
	}
	id, ok, err := r.meta.ExtractID(entity)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if !ok {
		return fmt.Errorf("delete: %w", domain.NilArgument("id"))
	}
	return r.Delete(ctx, id)
}

// DeleteEntities removes each entity in turn. It stops at the first error.
func (r *Repository[T]) DeleteEntities(ctx context.Context, entities []*T) error {
	if entities == nil {
		return fmt.Errorf("delete: %w", domain.NilArgument("entities"))
	}
	for _, e := range entities {
		if err := r.DeleteEntity(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll removes every document of the index and refreshes it.
func (r *Repository[T]) DeleteAll(ctx context.Context) error {
	return r.DeleteQuery(ctx, &query.DeleteQuery{Query: query.MatchAll()})
}

// DeleteQuery removes every document matching q and refreshes the indices
// it touched.
func (r *Repository[T]) DeleteQuery(ctx context.Context, q *query.DeleteQuery) error {
	req, err := r.client.translator.DeleteByQuery(q, r.meta)
	if err != nil {
		return fmt.Errorf("delete by query: %w", err)
	}
	if err := r.client.backend.DeleteByQuery(ctx, req); err != nil {
		return fmt.Errorf("delete by query: %w", err)
	}
	if err := r.refresh(ctx, req.Indices...); err != nil {
		return fmt.Errorf("delete by query: %w", err)
	}
	return nil
}

// --- admin ---

// CreateIndex creates the entity's index with its resolved settings.
func (r *Repository[T]) CreateIndex(ctx context.Context) error {
	if err := r.client.backend.CreateIndex(ctx, r.meta.Index, r.meta.Settings); err != nil {
		return fmt.Errorf("create index %s: %w", r.meta.Index, err)
	}
	return nil
}

// DeleteIndex drops the entity's index.
func (r *Repository[T]) DeleteIndex(ctx context.Context) error {
	if err := r.client.backend.DeleteIndex(ctx, r.meta.Index); err != nil {
		return fmt.Errorf("delete index %s: %w", r.meta.Index, err)
	}
	return nil
}

// IndexExists reports whether the entity's index exists.
func (r *Repository[T]) IndexExists(ctx context.Context) (bool, error) {
	ok, err := r.client.backend.IndexExists(ctx, r.meta.Index)
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", r.meta.Index, err)
	}
	return ok, nil
}

// Refresh makes recent writes to the entity's index visible.
func (r *Repository[T]) Refresh(ctx context.Context) error {
	return r.refresh(ctx, r.meta.Index)
}

func (r *Repository[T]) createIndexIfMissing(ctx context.Context) error {
	ok, err := r.IndexExists(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	err = r.CreateIndex(ctx)
	if errors.Is(err, engine.ErrIndexExists) {
		return nil // created concurrently
	}
	return err
}

func (r *Repository[T]) refresh(ctx context.Context, indices ...string) error {
	if err := r.client.backend.Refresh(ctx, indices...); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

func (r *Repository[T]) indexQuery(entity *T) (*query.IndexQuery, error) {
	if entity == nil {
		return nil, domain.NilArgument("entity")
	}
	id, _, err := r.meta.ExtractID(entity)
	if err != nil {
		return nil, err
	}
	return &query.IndexQuery{ID: id, Object: entity}, nil
}
