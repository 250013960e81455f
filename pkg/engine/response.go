package engine

import "encoding/json"

// GetResponse is the raw result of a get-by-id.
type GetResponse struct {
	Index  string
	ID     string
	Found  bool
	Source json.RawMessage
}

// Hit is one raw search hit.
type Hit struct {
	Index     string
	ID        string
	Score     float64
	Source    json.RawMessage
	Highlight map[string][]string
}

// Term is one bucket of a term facet.
type Term struct {
	Term  string
	Count int64
}

// Facet is one aggregation returned under a facet name. Kind is the
// backend-reported aggregation type (e.g. "sterms", "lterms", "histogram").
type Facet struct {
	Name  string
	Kind  string
	Terms []Term
}

// SearchResponse is the raw result of a search.
type SearchResponse struct {
	Total  int64
	Hits   []*Hit // entries may be nil
	Facets []Facet
}

// SuggestOption is one candidate produced for a suggestion entry.
type SuggestOption struct {
	Text  string
	Score float64
}

// SuggestEntry is the set of options offered for one piece of input text.
type SuggestEntry struct {
	Text    string
	Offset  int
	Length  int
	Options []SuggestOption
}

// Suggestion groups the entries returned for one named suggestion spec.
type Suggestion struct {
	Name    string
	Entries []SuggestEntry
}

// SuggestResponse holds suggestions in the order the backend returned them.
type SuggestResponse struct {
	Suggestions []Suggestion
}

// Suggestion returns the named suggestion, or false when absent.
func (r *SuggestResponse) Suggestion(name string) (Suggestion, bool) {
	for _, s := range r.Suggestions {
		if s.Name == name {
			return s, true
		}
	}
	return Suggestion{}, false
}

// BulkItemResult is the outcome of one bulk item.
type BulkItemResult struct {
	ID     string
	Status int
	Error  string // empty on success
}

// Failed reports whether the item was rejected.
func (r BulkItemResult) Failed() bool { return r.Error != "" }

// BulkResponse lists item outcomes in request order.
type BulkResponse struct {
	Items []BulkItemResult
}

// HasFailures reports whether any item failed.
func (r *BulkResponse) HasFailures() bool {
	for _, it := range r.Items {
		if it.Failed() {
			return true
		}
	}
	return false
}
