// Package translate turns query descriptors into backend requests.
package translate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/kailas-cloud/esrepo/internal/codec"
	"github.com/kailas-cloud/esrepo/internal/domain"
	"github.com/kailas-cloud/esrepo/internal/mapping"
	"github.com/kailas-cloud/esrepo/pkg/engine"
	"github.com/kailas-cloud/esrepo/pkg/query"
)

// Translator builds backend requests. It holds no per-call state.
type Translator struct {
	codec       codec.Codec
	facetFilter bool
}

// New creates a Translator. facetFilter scopes every facet by the search
// filter.
func New(c codec.Codec, facetFilter bool) *Translator {
	return &Translator{codec: c, facetFilter: facetFilter}
}

// Search translates a search descriptor.
func (t *Translator) Search(q *query.SearchQuery, meta *mapping.Metadata) (*engine.SearchRequest, error) {
	if q == nil {
		return nil, domain.NilArgument("search query")
	}
	body := engine.Body{
		"query":            clauseOrMatchAll(q.Query),
		"track_total_hits": true,
	}

	if p := q.Pageable; p != nil {
		body["from"] = p.Offset()
		body["size"] = p.PageSize
	}
	if len(q.Fields) > 0 {
		body["_source"] = q.Fields
	}
	if sorts := sortClauses(q.Pageable, q.Sorts); len(sorts) > 0 {
		body["sort"] = sorts
	}
	if q.Filter != nil {
		body["post_filter"] = map[string]any(q.Filter)
	}
	if len(q.Facets) > 0 {
		body["aggs"] = t.facetAggs(q.Facets, q.Filter)
	}
	if len(q.Highlight) > 0 {
		body["highlight"] = highlightBody(q.Highlight)
	}

	return &engine.SearchRequest{
		Indices: orDefault(q.Indices, meta.Index),
		Types:   orDefault(q.Types, meta.TypeName),
		Body:    body,
	}, nil
}

// SearchIDs translates a search that only needs hit ids.
func (t *Translator) SearchIDs(q *query.SearchQuery, meta *mapping.Metadata) (*engine.SearchRequest, error) {
	req, err := t.Search(q, meta)
	if err != nil {
		return nil, err
	}
	req.Body["_source"] = false
	delete(req.Body, "highlight")
	return req, nil
}

// Count translates the query part of a search descriptor.
func (t *Translator) Count(q *query.SearchQuery, meta *mapping.Metadata) *engine.CountRequest {
	var (
		clause  query.Clause
		indices []string
		types   []string
	)
	if q != nil {
		clause, indices, types = q.Query, q.Indices, q.Types
	}
	return &engine.CountRequest{
		Indices: orDefault(indices, meta.Index),
		Types:   orDefault(types, meta.TypeName),
		Body:    engine.Body{"query": clauseOrMatchAll(clause)},
	}
}

// MoreLikeThis translates a similarity search. Index, type and id are
// required after defaulting. The offset is CurrentPage*PageSize.
func (t *Translator) MoreLikeThis(q *query.MoreLikeThisQuery, meta *mapping.Metadata) (*engine.SearchRequest, error) {
	if q == nil {
		return nil, domain.NilArgument("more-like-this query")
	}
	index := firstNonBlank(q.Index, meta.Index)
	typ := firstNonBlank(q.Type, meta.TypeName)
	if index == "" || typ == "" || strings.TrimSpace(q.ID) == "" {
		return nil, domain.Configf("more-like-this needs index, type and id (got %q, %q, %q)", index, typ, q.ID)
	}

	mlt := map[string]any{
		"like": []map[string]any{{"_index": index, "_id": q.ID}},
	}
	if len(q.Fields) > 0 {
		mlt["fields"] = q.Fields
	}
	if q.PercentTermsToMatch != nil {
		mlt["minimum_should_match"] = percent(*q.PercentTermsToMatch)
	}
	setInt(mlt, "min_term_freq", q.MinTermFreq)
	setInt(mlt, "max_query_terms", q.MaxQueryTerms)
	if len(q.StopWords) > 0 {
		mlt["stop_words"] = q.StopWords
	}
	setInt(mlt, "min_doc_freq", q.MinDocFreq)
	setInt(mlt, "max_doc_freq", q.MaxDocFreq)
	setInt(mlt, "min_word_length", q.MinWordLen)
	setInt(mlt, "max_word_length", q.MaxWordLen)
	if q.BoostTerms != nil {
		mlt["boost_terms"] = *q.BoostTerms
	}

	body := engine.Body{
		"query":            map[string]any{"more_like_this": mlt},
		"track_total_hits": true,
	}
	if p := q.Pageable; p != nil {
		// Unlike Search, the page number is not decremented here.
		body["from"] = p.CurrentPage * p.PageSize
		body["size"] = p.PageSize
	}

	req := &engine.SearchRequest{
		Indices: orDefault(q.SearchIndices, index),
		Types:   orDefault(q.SearchTypes, typ),
		Body:    body,
	}
	if q.Routing != "" {
		req.Routing = []string{q.Routing}
	}
	return req, nil
}

// Suggest translates a suggest descriptor.
func (t *Translator) Suggest(q *query.SuggestQuery, meta *mapping.Metadata) (*engine.SuggestRequest, error) {
	if q == nil {
		return nil, domain.NilArgument("suggest query")
	}
	suggest := map[string]any{}
	if q.SuggestText != "" {
		suggest["text"] = q.SuggestText
	}
	for _, s := range q.Suggestions {
		if s.Name == "" {
			return nil, domain.Configf("suggestion without a name")
		}
		kind := s.Kind
		if kind == "" {
			kind = query.SuggestPhrase
		}
		spec := map[string]any{"field": s.Field}
		if s.Size > 0 {
			spec["size"] = s.Size
		}
		entry := map[string]any{string(kind): spec}
		if s.Text != "" {
			entry["text"] = s.Text
		}
		suggest[s.Name] = entry
	}

	return &engine.SuggestRequest{
		Indices:    orDefault(q.Indices, meta.Index),
		Preference: q.Preference,
		Routing:    q.Routing,
		Body:       engine.Body{"size": 0, "suggest": suggest},
	}, nil
}

// Get translates a get-by-id.
func (t *Translator) Get(q *query.GetQuery, meta *mapping.Metadata) (*engine.GetRequest, error) {
	if q == nil || strings.TrimSpace(q.ID) == "" {
		return nil, domain.NilArgument("id")
	}
	return &engine.GetRequest{
		Index: firstOr(q.Indices, meta.Index),
		Type:  firstOr(q.Types, meta.TypeName),
		ID:    q.ID,
	}, nil
}

// Index translates a single document write. The object is serialized with
// the translator's codec.
func (t *Translator) Index(q *query.IndexQuery, meta *mapping.Metadata) (*engine.IndexRequest, error) {
	if q == nil || q.Object == nil {
		return nil, domain.NilArgument("entity")
	}
	src, err := t.codec.Marshal(q.Object)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", q.ID, err)
	}
	req := &engine.IndexRequest{
		Index:  firstNonBlank(q.Index, meta.Index),
		Type:   firstNonBlank(q.Type, meta.TypeName),
		ID:     q.ID,
		Source: src,
	}
	if q.Version != nil {
		v := *q.Version
		req.Version = &v
		req.VersionType = engine.VersionExternal
	}
	return req, nil
}

// Update translates a partial-document update.
func (t *Translator) Update(q *query.UpdateQuery, meta *mapping.Metadata) (*engine.UpdateRequest, error) {
	if q == nil || q.Doc == nil {
		return nil, domain.NilArgument("update document")
	}
	index := firstNonBlank(q.Index, meta.Index)
	typ := firstNonBlank(q.Type, meta.TypeName)
	if index == "" || typ == "" || strings.TrimSpace(q.ID) == "" {
		return nil, domain.Configf("update needs index, type and id (got %q, %q, %q)", index, typ, q.ID)
	}
	raw, err := t.codec.Marshal(q.Doc)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", q.ID, err)
	}

	body := engine.Body{"doc": json.RawMessage(raw)}
	if q.DoUpsert {
		body["doc_as_upsert"] = true
	}
	return &engine.UpdateRequest{Index: index, Type: typ, ID: q.ID, Body: body}, nil
}

// Delete translates a delete-by-id.
func (t *Translator) Delete(index, typ, id string, meta *mapping.Metadata) (*engine.DeleteRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NilArgument("id")
	}
	return &engine.DeleteRequest{
		Index: firstNonBlank(index, meta.Index),
		Type:  firstNonBlank(typ, meta.TypeName),
		ID:    id,
	}, nil
}

// DeleteByQuery translates a delete descriptor.
func (t *Translator) DeleteByQuery(q *query.DeleteQuery, meta *mapping.Metadata) (*engine.DeleteByQueryRequest, error) {
	if q == nil {
		return nil, domain.NilArgument("delete query")
	}
	return &engine.DeleteByQueryRequest{
		Indices: orDefault(q.Indices, meta.Index),
		Types:   orDefault(q.Types, meta.TypeName),
		Body:    engine.Body{"query": clauseOrMatchAll(q.Query)},
	}, nil
}

func (t *Translator) facetAggs(facets []query.Facet, filter query.Clause) map[string]any {
	aggs := make(map[string]any, len(facets))
	for _, f := range facets {
		agg := f.Aggregation()
		if t.facetFilter && filter != nil {
			agg = map[string]any{
				"filter": map[string]any(filter),
				"aggs":   map[string]any{f.FacetName(): agg},
			}
		}
		aggs[f.FacetName()] = agg
	}
	return aggs
}

func sortClauses(p *query.Pageable, extra []query.Clause) []any {
	var out []any
	if p != nil {
		for _, o := range p.Sorts {
			out = append(out, map[string]any{o.Field: map[string]any{"order": sortOrder(o.Direction)}})
		}
	}
	for _, c := range extra {
		out = append(out, map[string]any(c))
	}
	return out
}

func sortOrder(d query.Direction) string {
	if strings.EqualFold("desc", string(d)) {
		return "desc"
	}
	return "asc"
}

func highlightBody(fields []query.HighlightField) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		spec := map[string]any{}
		if len(f.PreTags) > 0 {
			spec["pre_tags"] = f.PreTags
		}
		if len(f.PostTags) > 0 {
			spec["post_tags"] = f.PostTags
		}
		if f.FragmentSize > 0 {
			spec["fragment_size"] = f.FragmentSize
		}
		if f.NumberOfFragments > 0 {
			spec["number_of_fragments"] = f.NumberOfFragments
		}
		out[f.Name] = spec
	}
	return map[string]any{"fields": out}
}

func clauseOrMatchAll(c query.Clause) map[string]any {
	if c == nil {
		return query.MatchAll()
	}
	return c
}

// percent renders a 0..1 fraction as a minimum_should_match percentage.
func percent(f float64) string {
	return strconv.Itoa(int(math.Round(f*100))) + "%"
}

func setInt(m map[string]any, key string, v *int) {
	if v != nil {
		m[key] = *v
	}
}

func orDefault(vals []string, def string) []string {
	if len(vals) > 0 {
		return vals
	}
	if def == "" {
		return nil
	}
	return []string{def}
}

func firstOr(vals []string, def string) string {
	if len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
		return vals[0]
	}
	return def
}

func firstNonBlank(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
