package esrepo

import (
	"context"

	"github.com/kailas-cloud/esrepo/pkg/query"
)

// SearchBuilder is a fluent builder for typed search queries.
type SearchBuilder[T any] struct {
	repo   *Repository[T]
	q      query.SearchQuery
	parser query.Parser[T]
}

// Find returns a fluent search builder for this repository.
func (r *Repository[T]) Find() *SearchBuilder[T] {
	return &SearchBuilder[T]{repo: r}
}

// Query sets the main query clause. Unset matches everything.
func (b *SearchBuilder[T]) Query(c query.Clause) *SearchBuilder[T] {
	b.q.Query = c
	return b
}

// Match is shorthand for Query(query.Match(field, text)).
func (b *SearchBuilder[T]) Match(field, text string) *SearchBuilder[T] {
	return b.Query(query.Match(field, text))
}

// Filter narrows hits (and facets, unless disabled on the client).
func (b *SearchBuilder[T]) Filter(c query.Clause) *SearchBuilder[T] {
	b.q.Filter = c
	return b
}

// Where adds an exact term filter. Repeated calls are combined with AND.
func (b *SearchBuilder[T]) Where(field string, value any) *SearchBuilder[T] {
	term := query.Term(field, value)
	if b.q.Filter == nil {
		b.q.Filter = term
		return b
	}
	b.q.Filter = query.Bool(b.q.Filter, term)
	return b
}

// Facet adds a terms facet on field, named after the field.
func (b *SearchBuilder[T]) Facet(field string, size int) *SearchBuilder[T] {
	b.q.Facets = append(b.q.Facets, query.TermFacet{Name: field, Field: field, Size: size})
	return b
}

// Highlight requests fragments for the given fields with default tags.
func (b *SearchBuilder[T]) Highlight(fields ...string) *SearchBuilder[T] {
	for _, f := range fields {
		b.q.Highlight = append(b.q.Highlight, query.HighlightField{Name: f})
	}
	return b
}

// Page sets page number (1-based) and size.
func (b *SearchBuilder[T]) Page(page, size int) *SearchBuilder[T] {
	b.q.Pageable = query.NewPageable(page, size)
	return b
}

// Sort adds a sort on field. It implies the first page of
// query.DefaultPageSize when no page was set.
func (b *SearchBuilder[T]) Sort(field string, dir query.Direction) *SearchBuilder[T] {
	if b.q.Pageable == nil {
		b.q.Pageable = query.NewPageable(1, query.DefaultPageSize)
	}
	b.q.Pageable.Sort(field, dir)
	return b
}

// Fields limits the returned source fields.
func (b *SearchBuilder[T]) Fields(fields ...string) *SearchBuilder[T] {
	b.q.AddFields(fields...)
	return b
}

// Indices searches the given indices instead of the entity's own.
func (b *SearchBuilder[T]) Indices(indices ...string) *SearchBuilder[T] {
	b.q.AddIndices(indices...)
	return b
}

// Parser sets a custom result parser.
func (b *SearchBuilder[T]) Parser(p query.Parser[T]) *SearchBuilder[T] {
	b.parser = p
	return b
}

// Build returns a copy of the accumulated query.
func (b *SearchBuilder[T]) Build() *query.SearchQuery {
	q := b.q
	return &q
}

// Do executes the search.
func (b *SearchBuilder[T]) Do(ctx context.Context) (*query.Page[T], error) {
	return b.repo.SearchWith(ctx, b.Build(), b.parser)
}
