// Package assemble converts raw backend responses into typed results.
package assemble

import (
	"bytes"
	"fmt"

	"github.com/kailas-cloud/esrepo/internal/codec"
	"github.com/kailas-cloud/esrepo/internal/domain"
	"github.com/kailas-cloud/esrepo/internal/mapping"
	"github.com/kailas-cloud/esrepo/pkg/engine"
	"github.com/kailas-cloud/esrepo/pkg/query"
)

// termKinds are the typed-key prefixes of terms aggregations.
var termKinds = map[string]struct{}{
	"terms":   {},
	"sterms":  {},
	"lterms":  {},
	"dterms":  {},
	"umterms": {},
}

// Assembler decodes documents with its codec. Stateless between calls.
type Assembler struct {
	codec codec.Codec
}

// New creates an Assembler.
func New(c codec.Codec) *Assembler {
	return &Assembler{codec: c}
}

// Page assembles a search response. A nil parser decodes every hit and
// writes the first highlight fragment of each highlighted field into the
// entity. A HighlightParser replaces only that injection step. A
// ResponseParser receives the response and a page shell and does the rest.
func Page[T any](
	a *Assembler,
	resp *engine.SearchResponse,
	meta *mapping.Metadata,
	pageable *query.Pageable,
	parser query.Parser[T],
) (*query.Page[T], error) {
	if resp == nil {
		return query.NewPage[T](0, pageable), nil
	}
	page := query.NewPage[T](resp.Total, pageable)

	var inject func(h map[string][]string, entity *T) error
	switch p := parser.(type) {
	case query.ResponseParser[T]:
		if p != nil {
			out, err := p(resp, page)
			if err != nil {
				return nil, fmt.Errorf("response parser: %w", err)
			}
			return out, nil
		}
		inject = defaultInjector[T](meta)
	case query.HighlightParser[T]:
		if p != nil {
			inject = p
		} else {
			inject = defaultInjector[T](meta)
		}
	case nil:
		inject = defaultInjector[T](meta)
	default:
		return nil, domain.Configf("unsupported parser %T", parser)
	}

	result := make([]T, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if hit == nil {
			continue
		}
		var entity T
		if err := a.codec.Unmarshal(hit.Source, &entity); err != nil {
			return nil, fmt.Errorf("hit %s: %w", hit.ID, err)
		}
		if len(hit.Highlight) > 0 {
			if err := inject(hit.Highlight, &entity); err != nil {
				return nil, fmt.Errorf("highlight hit %s: %w", hit.ID, err)
			}
		}
		result = append(result, entity)
	}
	page.Result = result

	facets, err := Facets(resp)
	if err != nil {
		return nil, err
	}
	page.Facets = facets
	return page, nil
}

func defaultInjector[T any](meta *mapping.Metadata) func(map[string][]string, *T) error {
	return func(h map[string][]string, entity *T) error {
		for field, fragments := range h {
			if len(fragments) == 0 {
				continue
			}
			meta.SetField(entity, field, fragments[0])
		}
		return nil
	}
}

// Facets reads every facet of resp as a term -> count mapping. A facet of
// any other kind fails the whole call with domain.ErrFacetType.
func Facets(resp *engine.SearchResponse) (map[string]map[string]int64, error) {
	if resp == nil || len(resp.Facets) == 0 {
		return nil, nil
	}
	out := make(map[string]map[string]int64, len(resp.Facets))
	for _, f := range resp.Facets {
		if _, ok := termKinds[f.Kind]; !ok {
			return nil, fmt.Errorf("%w: %q has kind %q", domain.ErrFacetType, f.Name, f.Kind)
		}
		terms := make(map[string]int64, len(f.Terms))
		for _, t := range f.Terms {
			terms[t.Term] = t.Count
		}
		out[f.Name] = terms
	}
	return out, nil
}

// IDs collects hit ids in result order, skipping nil hits.
func IDs(resp *engine.SearchResponse) []string {
	if resp == nil {
		return nil
	}
	ids := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if hit == nil {
			continue
		}
		ids = append(ids, hit.ID)
	}
	return ids
}

// One decodes a get response. A missing document or blank source is
// reported as absent, not as an error.
func One[T any](a *Assembler, resp *engine.GetResponse) (T, bool, error) {
	var entity T
	if resp == nil || !resp.Found || isBlank(resp.Source) {
		return entity, false, nil
	}
	if err := a.codec.Unmarshal(resp.Source, &entity); err != nil {
		return entity, false, fmt.Errorf("document %s: %w", resp.ID, err)
	}
	return entity, true, nil
}

func isBlank(src []byte) bool {
	s := bytes.TrimSpace(src)
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}
