package esrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/esrepo/pkg/engine"
)

// memBackend is an in-memory engine.Backend. Get sees writes at once;
// Search and Count see an index only as of its last Refresh, like the real
// engine. Query support covers match_all, term, match and bool.must.
type memBackend struct {
	mu sync.Mutex

	docs     map[string]map[string][]byte // realtime, for Get
	visible  map[string]map[string][]byte // as of last refresh
	indices  map[string]*engine.IndexSettings
	reject   map[string]string // id -> bulk rejection reason
	searchFn  func(req *engine.SearchRequest) (*engine.SearchResponse, error)
	suggestFn func(req *engine.SuggestRequest) (*engine.SuggestResponse, error)

	refreshes  []string
	searches   int
	counts     int
	lastSearch map[string]any
}

func newMemBackend() *memBackend {
	return &memBackend{
		docs:    map[string]map[string][]byte{},
		visible: map[string]map[string][]byte{},
		indices: map[string]*engine.IndexSettings{},
		reject:  map[string]string{},
	}
}

func (m *memBackend) Ping(context.Context) error { return nil }

func (m *memBackend) WaitForReady(context.Context, time.Duration) error { return nil }

func (m *memBackend) Get(_ context.Context, req *engine.GetRequest) (*engine.GetResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.docs[req.Index][req.ID]
	return &engine.GetResponse{Index: req.Index, ID: req.ID, Found: ok, Source: src}, nil
}

func (m *memBackend) Search(_ context.Context, req *engine.SearchRequest) (*engine.SearchResponse, error) {
	m.mu.Lock()
	m.searches++
	m.lastSearch = normalize(req.Body)
	fn := m.searchFn
	m.mu.Unlock()
	if fn != nil {
		return fn(req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	body := m.lastSearch
	q, _ := body["query"].(map[string]any)
	post, _ := body["post_filter"].(map[string]any)

	var matched []docEntry
	for _, idx := range req.Indices {
		for _, d := range m.sorted(idx) {
			if matches(d.fields, q) && matches(d.fields, post) {
				matched = append(matched, d)
			}
		}
	}

	resp := &engine.SearchResponse{Total: int64(len(matched))}
	from, size := intOf(body["from"], 0), intOf(body["size"], len(matched))
	for i := from; i < len(matched) && i < from+size; i++ {
		d := matched[i]
		hit := &engine.Hit{Index: d.index, ID: d.id, Score: 1}
		if src, ok := body["_source"].(bool); !ok || src {
			hit.Source = d.raw
		}
		resp.Hits = append(resp.Hits, hit)
	}

	aggs, _ := body["aggs"].(map[string]any)
	for name, a := range aggs {
		resp.Facets = append(resp.Facets, m.facet(req.Indices, q, name, a.(map[string]any)))
	}
	sort.Slice(resp.Facets, func(i, j int) bool { return resp.Facets[i].Name < resp.Facets[j].Name })
	return resp, nil
}

func (m *memBackend) facet(indices []string, q map[string]any, name string, agg map[string]any) engine.Facet {
	filter := map[string]any(nil)
	if f, ok := agg["filter"].(map[string]any); ok {
		filter = f
		agg = agg["aggs"].(map[string]any)[name].(map[string]any)
	}
	field := agg["terms"].(map[string]any)["field"].(string)

	counts := map[string]int64{}
	for _, idx := range indices {
		for _, d := range m.sorted(idx) {
			if matches(d.fields, q) && matches(d.fields, filter) {
				if v, ok := d.fields[field]; ok {
					counts[fmt.Sprint(v)]++
				}
			}
		}
	}
	f := engine.Facet{Name: name, Kind: "sterms"}
	for term, n := range counts {
		f.Terms = append(f.Terms, engine.Term{Term: term, Count: n})
	}
	return f
}

func (m *memBackend) Suggest(_ context.Context, req *engine.SuggestRequest) (*engine.SuggestResponse, error) {
	if m.suggestFn != nil {
		return m.suggestFn(req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	body := normalize(req.Body)
	out := &engine.SuggestResponse{}
	for name, raw := range body["suggest"].(map[string]any) {
		spec := raw.(map[string]any)
		text, _ := spec["text"].(string)
		phrase := spec["phrase"].(map[string]any)
		field := phrase["field"].(string)
		size := intOf(phrase["size"], 5)

		entry := engine.SuggestEntry{Text: text, Length: len(text)}
		for _, idx := range req.Indices {
			for _, d := range m.sorted(idx) {
				v, _ := d.fields[field].(string)
				if strings.HasPrefix(v, text) && len(entry.Options) < size {
					entry.Options = append(entry.Options, engine.SuggestOption{Text: v, Score: 1})
				}
			}
		}
		out.Suggestions = append(out.Suggestions, engine.Suggestion{Name: name, Entries: []engine.SuggestEntry{entry}})
	}
	return out, nil
}

func (m *memBackend) Count(_ context.Context, req *engine.CountRequest) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts++
	q, _ := normalize(req.Body)["query"].(map[string]any)
	var n int64
	for _, idx := range req.Indices {
		for _, d := range m.sorted(idx) {
			if matches(d.fields, q) {
				n++
			}
		}
	}
	return n, nil
}

func (m *memBackend) Index(_ context.Context, req *engine.IndexRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(req), nil
}

func (m *memBackend) put(req *engine.IndexRequest) string {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	if m.docs[req.Index] == nil {
		m.docs[req.Index] = map[string][]byte{}
	}
	m.docs[req.Index][id] = append([]byte(nil), req.Source...)
	return id
}

func (m *memBackend) Update(_ context.Context, req *engine.UpdateRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	body := normalize(req.Body)
	doc := body["doc"].(map[string]any)

	cur, ok := m.docs[req.Index][req.ID]
	if !ok {
		if upsert, _ := body["doc_as_upsert"].(bool); !upsert {
			return &engine.Error{Op: engine.OpUpdate, Status: 404, Type: "document_missing_exception", Reason: req.ID}
		}
		cur = []byte("{}")
	}
	merged := map[string]any{}
	_ = json.Unmarshal(cur, &merged)
	for k, v := range doc {
		merged[k] = v
	}
	src, _ := json.Marshal(merged)
	m.put(&engine.IndexRequest{Index: req.Index, ID: req.ID, Source: src})
	return nil
}

func (m *memBackend) Delete(_ context.Context, req *engine.DeleteRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[req.Index], req.ID)
	return nil
}

func (m *memBackend) DeleteByQuery(_ context.Context, req *engine.DeleteByQueryRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, _ := normalize(req.Body)["query"].(map[string]any)
	for _, idx := range req.Indices {
		for _, d := range m.sorted(idx) {
			if matches(d.fields, q) {
				delete(m.docs[idx], d.id)
			}
		}
	}
	return nil
}

func (m *memBackend) Bulk(_ context.Context, req *engine.BulkRequest) (*engine.BulkResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &engine.BulkResponse{}
	for _, it := range req.Items {
		if reason, ok := m.reject[it.ID]; ok {
			out.Items = append(out.Items, engine.BulkItemResult{ID: it.ID, Status: 400, Error: reason})
			continue
		}
		id := m.put(it)
		out.Items = append(out.Items, engine.BulkItemResult{ID: id, Status: 201})
	}
	return out, nil
}

func (m *memBackend) CreateIndex(_ context.Context, index string, settings *engine.IndexSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indices[index]; ok {
		return &engine.Error{Op: engine.OpCreateIndex, Status: 400, Err: engine.ErrIndexExists}
	}
	m.indices[index] = settings
	return nil
}

func (m *memBackend) DeleteIndex(_ context.Context, index string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indices, index)
	delete(m.docs, index)
	delete(m.visible, index)
	return nil
}

func (m *memBackend) IndexExists(_ context.Context, index string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.indices[index]
	return ok, nil
}

func (m *memBackend) Refresh(_ context.Context, indices ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, idx := range indices {
		snap := make(map[string][]byte, len(m.docs[idx]))
		for id, src := range m.docs[idx] {
			snap[id] = src
		}
		m.visible[idx] = snap
		m.refreshes = append(m.refreshes, idx)
	}
	return nil
}

func (m *memBackend) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.refreshes)
}

type docEntry struct {
	index, id string
	raw       []byte
	fields    map[string]any
}

// sorted returns the visible documents of index ordered by id.
func (m *memBackend) sorted(index string) []docEntry {
	out := make([]docEntry, 0, len(m.visible[index]))
	for id, raw := range m.visible[index] {
		fields := map[string]any{}
		_ = json.Unmarshal(raw, &fields)
		out = append(out, docEntry{index: index, id: id, raw: raw, fields: fields})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// normalize turns a request body into plain JSON values.
func normalize(b engine.Body) map[string]any {
	out := map[string]any{}
	if b == nil {
		return out
	}
	raw, _ := json.Marshal(b)
	_ = json.Unmarshal(raw, &out)
	return out
}

func matches(fields, q map[string]any) bool {
	for kind, arg := range q {
		switch kind {
		case "match_all":
		case "term":
			for f, v := range arg.(map[string]any) {
				if fmt.Sprint(fields[f]) != fmt.Sprint(v) {
					return false
				}
			}
		case "match":
			for f, v := range arg.(map[string]any) {
				s, _ := fields[f].(string)
				if !strings.Contains(strings.ToLower(s), strings.ToLower(fmt.Sprint(v))) {
					return false
				}
			}
		case "bool":
			must, _ := arg.(map[string]any)["must"].([]any)
			for _, c := range must {
				if !matches(fields, c.(map[string]any)) {
					return false
				}
			}
		}
	}
	return true
}

func intOf(v any, def int) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return def
}
