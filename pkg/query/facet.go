package query

// Facet is a named aggregation request.
type Facet interface {
	FacetName() string
	Aggregation() map[string]any
}

// TermFacet counts distinct values of Field.
type TermFacet struct {
	Name  string
	Field string
	Size  int // 0 keeps the backend default
}

// FacetName implements Facet.
func (f TermFacet) FacetName() string { return f.Name }

// Aggregation implements Facet.
func (f TermFacet) Aggregation() map[string]any {
	terms := map[string]any{"field": f.Field}
	if f.Size > 0 {
		terms["size"] = f.Size
	}
	return map[string]any{"terms": terms}
}

// RawFacet passes an arbitrary aggregation body through. Results are only
// readable as facets when the aggregation is a terms aggregation.
type RawFacet struct {
	Name string
	Agg  map[string]any
}

// FacetName implements Facet.
func (f RawFacet) FacetName() string { return f.Name }

// Aggregation implements Facet.
func (f RawFacet) Aggregation() map[string]any { return f.Agg }
