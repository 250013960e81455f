package query

// Clause is a query or filter clause in the backend's query DSL.
type Clause map[string]any

// MatchAll matches every document.
func MatchAll() Clause {
	return Clause{"match_all": map[string]any{}}
}

// Match is a full-text match on one field.
func Match(field, text string) Clause {
	return Clause{"match": map[string]any{field: text}}
}

// Term is an exact term match.
func Term(field string, value any) Clause {
	return Clause{"term": map[string]any{field: value}}
}

// Terms matches any of values.
func Terms(field string, values ...any) Clause {
	return Clause{"terms": map[string]any{field: values}}
}

// Prefix matches terms starting with prefix.
func Prefix(field, prefix string) Clause {
	return Clause{"prefix": map[string]any{field: prefix}}
}

// QueryString parses q with the backend's query-string syntax.
func QueryString(q string) Clause {
	return Clause{"query_string": map[string]any{"query": q}}
}

// IDs matches documents by id.
func IDs(ids ...string) Clause {
	return Clause{"ids": map[string]any{"values": ids}}
}

// Bool requires every clause in must.
func Bool(must ...Clause) Clause {
	return Clause{"bool": map[string]any{"must": must}}
}
