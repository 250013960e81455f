package query

// DefaultSuggestSize bounds flattened suggestions when no positive size
// is requested.
const DefaultSuggestSize = 5

// SuggestKind selects the suggester.
type SuggestKind string

// Suggester kinds.
const (
	SuggestPhrase     SuggestKind = "phrase"
	SuggestTerm       SuggestKind = "term"
	SuggestCompletion SuggestKind = "completion"
)

// Suggestion is one named suggestion spec.
type Suggestion struct {
	Name  string
	Kind  SuggestKind
	Field string
	Text  string // falls back to SuggestQuery.SuggestText when empty
	Size  int
}

// SuggestQuery requests suggestions. Empty Indices default to the entity's
// index.
type SuggestQuery struct {
	Indices     []string
	Preference  string
	SuggestText string
	Routing     []string
	Suggestions []Suggestion
}

// Add appends a suggestion spec.
func (q *SuggestQuery) Add(s Suggestion) *SuggestQuery {
	q.Suggestions = append(q.Suggestions, s)
	return q
}
