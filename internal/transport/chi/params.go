package chi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/esrepo/pkg/query"
)

// listParams are the query parameters of list-style endpoints.
type listParams struct {
	Q      *string
	Page   *int
	Size   *int
	Sort   *[]string
	Facet  *[]string
	Fields *[]string
}

func bindPathID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false})
	if err != nil {
		return "", fmt.Errorf("invalid format for parameter id: %w", err)
	}
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("parameter id is required")
	}
	return id, nil
}

func bindListParams(r *http.Request) (listParams, error) {
	var p listParams
	qv := r.URL.Query()
	binds := []struct {
		name    string
		explode bool
		dest    any
	}{
		{"q", true, &p.Q},
		{"page", true, &p.Page},
		{"size", true, &p.Size},
		{"sort", false, &p.Sort},
		{"facet", false, &p.Facet},
		{"fields", false, &p.Fields},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", b.explode, false, b.name, qv, b.dest); err != nil {
			return listParams{}, fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}
	return p, nil
}

// pageable builds the requested page, clamping size to maxSize. A sort key
// prefixed with "-" sorts descending.
func (p listParams) pageable(defaultSize, maxSize int) *query.Pageable {
	page, size := 1, defaultSize
	if p.Page != nil {
		page = *p.Page
	}
	if p.Size != nil {
		size = *p.Size
	}
	if size > maxSize {
		size = maxSize
	}
	pg := query.NewPageable(page, size)
	if p.Sort != nil {
		for _, key := range *p.Sort {
			key = strings.TrimSpace(key)
			switch {
			case key == "", key == "-":
				continue
			case strings.HasPrefix(key, "-"):
				pg.Sort(key[1:], query.Desc)
			default:
				pg.Sort(key, query.Asc)
			}
		}
	}
	return pg
}

// clause is a query_string clause for q, or nil to match everything.
func (p listParams) clause() query.Clause {
	if p.Q == nil || strings.TrimSpace(*p.Q) == "" {
		return nil
	}
	return query.QueryString(*p.Q)
}

func (p listParams) facets() []query.Facet {
	if p.Facet == nil {
		return nil
	}
	out := make([]query.Facet, 0, len(*p.Facet))
	for _, f := range *p.Facet {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, query.TermFacet{Name: f, Field: f})
		}
	}
	return out
}

func deref[T any](p *[]T) []T {
	if p == nil {
		return nil
	}
	return *p
}
