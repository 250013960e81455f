package query

import "github.com/kailas-cloud/esrepo/pkg/engine"

// Page is one page of typed results. Total is the backend-reported number
// of matches, independent of len(Result).
type Page[T any] struct {
	Total       int64
	PageSize    int
	CurrentPage int
	Result      []T
	Facets      map[string]map[string]int64
}

// NewPage returns an empty page echoing pageable. A nil pageable leaves
// paging at zero values.
func NewPage[T any](total int64, pageable *Pageable) *Page[T] {
	p := &Page[T]{Total: total}
	if pageable != nil {
		p.PageSize = pageable.PageSize
		p.CurrentPage = pageable.CurrentPage
	}
	return p
}

// TotalPages is the number of pages of PageSize covering Total.
func (p *Page[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// HasNext reports whether a page follows this one.
func (p *Page[T]) HasNext() bool {
	return p.CurrentPage < p.TotalPages()
}

// Parser customizes how a search response becomes a page. It is either a
// HighlightParser or a ResponseParser.
type Parser[T any] interface {
	isParser()
}

// HighlightParser replaces default highlight injection. It receives the
// raw highlight map of a hit and the already decoded entity.
type HighlightParser[T any] func(highlight map[string][]string, entity *T) error

func (HighlightParser[T]) isParser() {}

// ResponseParser takes over assembly entirely. page already carries the
// total and paging echo.
type ResponseParser[T any] func(resp *engine.SearchResponse, page *Page[T]) (*Page[T], error)

func (ResponseParser[T]) isParser() {}
