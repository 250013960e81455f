// Package query holds the descriptors callers build to describe repository
// operations, plus the paged result types those operations return.
package query

// Target is shared by search-style descriptors. Empty Indices or Types
// default to the entity's resolved metadata.
type Target struct {
	Indices  []string
	Types    []string
	Fields   []string
	Pageable *Pageable
}

// AddIndices appends indices, skipping ones already present.
func (t *Target) AddIndices(indices ...string) {
	t.Indices = appendUnique(t.Indices, indices...)
}

// AddTypes appends types, skipping ones already present.
func (t *Target) AddTypes(types ...string) {
	t.Types = appendUnique(t.Types, types...)
}

// AddFields appends fields to retrieve.
func (t *Target) AddFields(fields ...string) {
	t.Fields = appendUnique(t.Fields, fields...)
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		dup := false
		for _, have := range dst {
			if have == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

// GetQuery fetches one document by id.
type GetQuery struct {
	Target
	ID string
}

// HighlightField requests fragments for one field.
type HighlightField struct {
	Name              string
	PreTags           []string
	PostTags          []string
	FragmentSize      int
	NumberOfFragments int
}

// SearchQuery is a structured search. A nil Query matches everything.
// Filter narrows hits after the query runs and, unless disabled on the
// client, scopes every facet too.
type SearchQuery struct {
	Target
	Query     Clause
	Filter    Clause
	Sorts     []Clause // applied after Pageable sorts
	Facets    []Facet
	Highlight []HighlightField
}

// DeleteQuery removes all documents matching Query.
type DeleteQuery struct {
	Target
	Query Clause
}

// IndexQuery writes one object. Version, when set, is applied with
// external versioning.
type IndexQuery struct {
	Index   string
	Type    string
	ID      string
	Object  any
	Version *int64
}

// UpdateQuery applies Doc as a partial document. DoUpsert creates the
// document from Doc when it does not exist.
type UpdateQuery struct {
	Index    string
	Type     string
	ID       string
	DoUpsert bool
	Doc      any
}

// MoreLikeThisQuery finds documents similar to the seed document at
// Index/Type/ID. Nil tuning parameters are not sent.
type MoreLikeThisQuery struct {
	Index string
	Type  string
	ID    string

	SearchIndices []string
	SearchTypes   []string
	Routing       string
	Fields        []string
	Pageable      *Pageable

	PercentTermsToMatch *float64
	MinTermFreq         *int
	MaxQueryTerms       *int
	StopWords           []string
	MinDocFreq          *int
	MaxDocFreq          *int
	MinWordLen          *int
	MaxWordLen          *int
	BoostTerms          *float64
}

// Int returns a pointer to v, for optional descriptor fields.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for optional descriptor fields.
func Float(v float64) *float64 { return &v }

// Int64 returns a pointer to v, for optional descriptor fields.
func Int64(v int64) *int64 { return &v }
