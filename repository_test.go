package esrepo

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/kailas-cloud/esrepo/pkg/engine"
	"github.com/kailas-cloud/esrepo/pkg/query"
)

type testAddress struct {
	Province string `json:"province"`
	City     string `json:"city"`
}

type testUser struct {
	ID       string       `json:"id"`
	Username string       `json:"username"`
	Password string       `json:"password"`
	Role     string       `json:"role,omitempty"`
	Address  *testAddress `json:"address,omitempty"`
}

func (testUser) DocumentConfig() DocumentConfig {
	return DocumentConfig{Index: "user", Type: "user", Shards: 1}
}

// payload refuses to serialize the value "bad".
type payload string

func (p payload) MarshalJSON() ([]byte, error) {
	if p == "bad" {
		return nil, errors.New("payload is malformed")
	}
	return []byte(`"` + string(p) + `"`), nil
}

type testItem struct {
	Key     string  `esrepo:"id" json:"key"`
	Payload payload `json:"payload"`
}

func newTestRepo[T any](t *testing.T, opts ...Option) (*Repository[T], *memBackend) {
	t.Helper()
	mb := newMemBackend()
	c, err := New(append([]Option{WithBackend(mb)}, opts...)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	repo, err := NewRepository[T](context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return repo, mb
}

// --- construction ---

func TestNewRepository_CreatesIndexWithSettings(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)

	if repo.IndexName() != "user" || repo.TypeName() != "user" {
		t.Errorf("names = %q/%q, want user/user", repo.IndexName(), repo.TypeName())
	}
	settings, ok := mb.indices["user"]
	if !ok {
		t.Fatal("expected index to be created")
	}
	want := &engine.IndexSettings{Shards: 1, Replicas: 1, RefreshInterval: "1s", StoreType: "fs"}
	if !reflect.DeepEqual(settings, want) {
		t.Errorf("settings = %+v, want %+v", settings, want)
	}
}

func TestNewRepository_ExistingIndexLeftAlone(t *testing.T) {
	mb := newMemBackend()
	mb.indices["user"] = nil
	c, _ := New(WithBackend(mb))
	if _, err := NewRepository[testUser](context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mb.indices["user"] != nil {
		t.Error("existing index should not be recreated")
	}
}

func TestNewRepository_CreateIndexDisabled(t *testing.T) {
	_, mb := newTestRepo[testUser](t, WithCreateIndex(false))
	if len(mb.indices) != 0 {
		t.Errorf("expected no index, got %v", mb.indices)
	}
}

func TestNewRepository_MissingIDField(t *testing.T) {
	type noID struct {
		Name string `json:"name"`
	}
	c, _ := New(WithBackend(newMemBackend()))
	_, err := NewRepository[noID](context.Background(), c)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

// --- save / find ---

func TestSave_ReadYourWrites(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()

	u := &testUser{ID: "1", Username: "ann", Address: &testAddress{City: "Paris"}}
	id, err := repo.Save(ctx, u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "1" {
		t.Errorf("id = %q, want 1", id)
	}

	got, ok, err := repo.FindOne(ctx, "1")
	if err != nil || !ok {
		t.Fatalf("FindOne = %v, %v", ok, err)
	}
	if !reflect.DeepEqual(got, *u) {
		t.Errorf("got %+v, want %+v", got, *u)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("FindAll after save returned %d entities, want 1", len(all))
	}
}

func TestSave_TwiceSameIDOverwrites(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()

	if _, err := repo.Save(ctx, &testUser{ID: "1", Username: "ann"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Index(ctx, &testUser{ID: "1", Username: "anna"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	got, _, _ := repo.FindOne(ctx, "1")
	if got.Username != "anna" {
		t.Errorf("username = %q, want anna", got.Username)
	}
}

func TestSave_WithoutIDGetsBackendID(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	id, err := repo.Save(context.Background(), &testUser{Username: "anon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Error("expected a generated id")
	}
}

func TestSave_NilEntity(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	_, err := repo.Save(context.Background(), nil)
	if !errors.Is(err, ErrNilArgument) {
		t.Fatalf("expected ErrNilArgument, got %v", err)
	}
}

func TestSaveQuery_Version(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	var got *engine.IndexRequest
	spy := &indexSpy{memBackend: mb, fn: func(r *engine.IndexRequest) { got = r }}
	repo.client.backend = spy

	_, err := repo.SaveQuery(context.Background(), &query.IndexQuery{Version: query.Int64(4)}, &testUser{ID: "v"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Version == nil || *got.Version != 4 || got.VersionType != engine.VersionExternal {
		t.Errorf("index request = %+v, want external version 4", got)
	}
}

type indexSpy struct {
	*memBackend
	fn func(*engine.IndexRequest)
}

func (s *indexSpy) Index(ctx context.Context, req *engine.IndexRequest) (string, error) {
	s.fn(req)
	return s.memBackend.Index(ctx, req)
}

func TestFindOne_Missing(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	_, ok, err := repo.FindOne(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected absent result")
	}
}

func TestFindOne_BlankID(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	_, _, err := repo.FindOne(context.Background(), " ")
	if !errors.Is(err, ErrNilArgument) {
		t.Fatalf("expected ErrNilArgument, got %v", err)
	}
}

func TestFindAll_EmptyIndexSkipsSearch(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)

	all, err := repo.FindAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("expected empty non-nil result, got %v", all)
	}
	if mb.counts != 1 {
		t.Errorf("counts = %d, want 1", mb.counts)
	}
	if mb.searches != 0 {
		t.Errorf("searches = %d, want 0", mb.searches)
	}
}

func TestFindAll_PageSizedToCount(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := repo.Save(ctx, &testUser{ID: id}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d entities, want 3", len(all))
	}
	if mb.lastSearch["size"] != float64(3) || mb.lastSearch["from"] != float64(0) {
		t.Errorf("from/size = %v/%v, want 0/3", mb.lastSearch["from"], mb.lastSearch["size"])
	}
}

func TestFindAllPage(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, _ = repo.Save(ctx, &testUser{ID: id})
	}

	page, err := repo.FindAllPage(ctx, query.NewPageable(2, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 3 || page.CurrentPage != 2 || page.PageSize != 2 {
		t.Errorf("page = total %d, page %d, size %d", page.Total, page.CurrentPage, page.PageSize)
	}
	if len(page.Result) != 1 || page.Result[0].ID != "c" {
		t.Errorf("result = %+v, want [c]", page.Result)
	}
	if page.HasNext() {
		t.Error("second of two pages has no next")
	}
}

// --- refresh discipline ---

func TestMutations_RefreshBeforeReturning(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	ctx := context.Background()

	steps := []struct {
		name string
		run  func() error
	}{
		{"save", func() error { _, err := repo.Save(ctx, &testUser{ID: "1"}); return err }},
		{"save all", func() error { return repo.SaveAll(ctx, []*testUser{{ID: "2"}, {ID: "3"}}) }},
		{"delete", func() error { return repo.Delete(ctx, "1") }},
		{"delete entity", func() error { return repo.DeleteEntity(ctx, &testUser{ID: "2"}) }},
		{"delete all", func() error { return repo.DeleteAll(ctx) }},
	}
	for _, s := range steps {
		before := mb.refreshCount()
		if err := s.run(); err != nil {
			t.Fatalf("%s: unexpected error: %v", s.name, err)
		}
		if mb.refreshCount() != before+1 {
			t.Errorf("%s: expected exactly one refresh", s.name)
		}
	}

	n, _ := repo.Count(ctx)
	if n != 0 {
		t.Errorf("count after delete all = %d, want 0", n)
	}
}

func TestUpdate_DoesNotRefresh(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	ctx := context.Background()
	_, _ = repo.Save(ctx, &testUser{ID: "1", Username: "ann", Password: "x"})

	before := mb.refreshCount()
	if err := repo.Update(ctx, &testUser{ID: "1", Username: "bob"}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mb.refreshCount() != before {
		t.Error("update should not refresh")
	}

	got, _, _ := repo.FindOne(ctx, "1")
	if got.Username != "bob" {
		t.Errorf("username = %q, want bob", got.Username)
	}
}

func TestUpdate_Upsert(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()

	if err := repo.Update(ctx, &testUser{ID: "9", Username: "new"}, false); err == nil {
		t.Fatal("expected error updating a missing document without upsert")
	}
	if err := repo.Update(ctx, &testUser{ID: "9", Username: "new"}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, _ := repo.Exists(ctx, "9")
	if !ok {
		t.Error("expected upserted document to exist")
	}
}

func TestUpdate_NoID(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	err := repo.Update(context.Background(), &testUser{Username: "x"}, true)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

// --- bulk ---

func TestSaveAll_MalformedItemReported(t *testing.T) {
	repo, _ := newTestRepo[testItem](t)
	ctx := context.Background()

	err := repo.SaveAll(ctx, []*testItem{
		{Key: "k1", Payload: "ok"},
		{Key: "k2", Payload: "bad"},
		{Key: "k3", Payload: "ok"},
	})

	var bulkErr *BulkError
	if !errors.As(err, &bulkErr) {
		t.Fatalf("expected *BulkError, got %v", err)
	}
	if !errors.Is(err, ErrBulkFailure) {
		t.Error("expected errors.Is(err, ErrBulkFailure)")
	}
	if len(bulkErr.Failures) != 1 {
		t.Fatalf("failures = %v, want exactly k2", bulkErr.Failures)
	}
	if _, ok := bulkErr.Failures["k2"]; !ok {
		t.Errorf("failures = %v, want k2", bulkErr.Failures)
	}

	for _, id := range []string{"k1", "k3"} {
		if ok, _ := repo.Exists(ctx, id); !ok {
			t.Errorf("%s should be stored", id)
		}
	}
	n, _ := repo.Count(ctx)
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestSaveAll_BackendRejection(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	mb.reject["2"] = "mapper_parsing_exception: failed to parse [age]"

	err := repo.SaveAll(context.Background(), []*testUser{{ID: "1"}, {ID: "2"}})
	var bulkErr *BulkError
	if !errors.As(err, &bulkErr) {
		t.Fatalf("expected *BulkError, got %v", err)
	}
	if bulkErr.Failures["2"] != "mapper_parsing_exception: failed to parse [age]" {
		t.Errorf("failures = %v", bulkErr.Failures)
	}
}

func TestSaveAll_NilList(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	if err := repo.SaveAll(context.Background(), nil); !errors.Is(err, ErrNilArgument) {
		t.Fatalf("expected ErrNilArgument, got %v", err)
	}
}

// --- delete / exists ---

func TestExists_AfterDelete(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()
	_, _ = repo.Save(ctx, &testUser{ID: "1"})

	if ok, _ := repo.Exists(ctx, "1"); !ok {
		t.Fatal("expected entity to exist after save")
	}
	if err := repo.Delete(ctx, "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := repo.Exists(ctx, "1"); ok {
		t.Error("expected entity to be gone after delete")
	}
}

func TestDeleteEntities(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()
	_ = repo.SaveAll(ctx, []*testUser{{ID: "1"}, {ID: "2"}, {ID: "3"}})

	if err := repo.DeleteEntities(ctx, []*testUser{{ID: "1"}, {ID: "3"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, _ := repo.FindAll(ctx)
	if len(all) != 1 || all[0].ID != "2" {
		t.Errorf("remaining = %+v, want [2]", all)
	}
}

func TestDeleteQuery(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()
	_ = repo.SaveAll(ctx, []*testUser{{ID: "1", Role: "admin"}, {ID: "2", Role: "dev"}})

	if err := repo.DeleteQuery(ctx, &query.DeleteQuery{Query: query.Term("role", "admin")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, _ := repo.Count(ctx)
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	if err := repo.DeleteQuery(ctx, nil); !errors.Is(err, ErrNilArgument) {
		t.Errorf("expected ErrNilArgument for nil query, got %v", err)
	}
}

func TestDelete_BlankID(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	if err := repo.Delete(context.Background(), ""); !errors.Is(err, ErrNilArgument) {
		t.Fatalf("expected ErrNilArgument, got %v", err)
	}
}

// --- search ---

func TestSearch_CountsThenSizesPage(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	ctx := context.Background()

	none, err := repo.Search(ctx, query.Term("role", "admin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 || mb.searches != 0 {
		t.Errorf("zero matches should not search: %v, searches %d", none, mb.searches)
	}

	_ = repo.SaveAll(ctx, []*testUser{{ID: "1", Role: "admin"}, {ID: "2", Role: "dev"}, {ID: "3", Role: "admin"}})
	got, err := repo.Search(ctx, query.Term("role", "admin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d, want 2", len(got))
	}
	if mb.lastSearch["size"] != float64(2) {
		t.Errorf("size = %v, want 2", mb.lastSearch["size"])
	}
}

func TestSearchQuery_Facets(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()
	_ = repo.SaveAll(ctx, []*testUser{{ID: "1", Username: "u"}, {ID: "2", Username: "u"}, {ID: "3", Username: "v"}})

	page, err := repo.SearchQuery(ctx, &query.SearchQuery{
		Facets: []query.Facet{query.TermFacet{Name: "names", Field: "username"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]int64{"u": 2, "v": 1}
	if !reflect.DeepEqual(page.Facets["names"], want) {
		t.Errorf("facet = %v, want %v", page.Facets["names"], want)
	}
}

func TestSearchQuery_FacetFilter(t *testing.T) {
	ctx := context.Background()
	users := []*testUser{{ID: "1", Username: "u", Role: "a"}, {ID: "2", Username: "u", Role: "b"}, {ID: "3", Username: "v", Role: "a"}}
	q := &query.SearchQuery{
		Filter: query.Term("role", "a"),
		Facets: []query.Facet{query.TermFacet{Name: "names", Field: "username"}},
	}

	filtered, _ := newTestRepo[testUser](t)
	_ = filtered.SaveAll(ctx, users)
	page, err := filtered.SearchQuery(ctx, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("total = %d, want 2", page.Total)
	}
	if !reflect.DeepEqual(page.Facets["names"], map[string]int64{"u": 1, "v": 1}) {
		t.Errorf("filtered facet = %v", page.Facets["names"])
	}

	unfiltered, _ := newTestRepo[testUser](t, WithFacetFilter(false))
	_ = unfiltered.SaveAll(ctx, users)
	page, err = unfiltered.SearchQuery(ctx, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(page.Facets["names"], map[string]int64{"u": 2, "v": 1}) {
		t.Errorf("unfiltered facet = %v", page.Facets["names"])
	}
}

func TestSearchQuery_FilterFacetFails(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	mb.searchFn = func(*engine.SearchRequest) (*engine.SearchResponse, error) {
		return &engine.SearchResponse{Facets: []engine.Facet{{Name: "active", Kind: "filter"}}}, nil
	}
	_, err := repo.SearchQuery(context.Background(), &query.SearchQuery{})
	if !errors.Is(err, ErrFacetType) {
		t.Fatalf("expected ErrFacetType, got %v", err)
	}
}

func TestSearchQuery_NonTermFacetFails(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	mb.searchFn = func(*engine.SearchRequest) (*engine.SearchResponse, error) {
		return &engine.SearchResponse{Facets: []engine.Facet{{Name: "age", Kind: "avg"}}}, nil
	}
	_, err := repo.SearchQuery(context.Background(), &query.SearchQuery{})
	if !errors.Is(err, ErrFacetType) {
		t.Fatalf("expected ErrFacetType, got %v", err)
	}
}

func highlightResponse(*engine.SearchRequest) (*engine.SearchResponse, error) {
	return &engine.SearchResponse{
		Total: 1,
		Hits: []*engine.Hit{{
			ID:        "1",
			Source:    []byte(`{"id":"1","username":"abc","address":{"city":"Paris"}}`),
			Highlight: map[string][]string{"username": {"<b>abc</b>"}, "address.city": {"<b>Paris</b>"}},
		}},
	}, nil
}

func TestSearchQuery_DefaultHighlightInjection(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	mb.searchFn = highlightResponse

	page, err := repo.SearchQuery(context.Background(), &query.SearchQuery{
		Query:     query.Match("username", "abc"),
		Highlight: []query.HighlightField{{Name: "username"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Result) != 1 {
		t.Fatalf("got %d results", len(page.Result))
	}
	u := page.Result[0]
	if u.Username != "<b>abc</b>" {
		t.Errorf("username = %q, want highlighted fragment", u.Username)
	}
	if u.Address.City != "<b>Paris</b>" {
		t.Errorf("city = %q, want highlighted fragment", u.Address.City)
	}
}

func TestSearchWith_Parsers(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	mb.searchFn = highlightResponse
	ctx := context.Background()

	hl := query.HighlightParser[testUser](func(h map[string][]string, u *testUser) error {
		u.Password = h["username"][0]
		return nil
	})
	page, err := repo.SearchWith(ctx, &query.SearchQuery{}, hl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u := page.Result[0]; u.Username != "abc" || u.Password != "<b>abc</b>" {
		t.Errorf("highlight parser result = %+v", u)
	}

	full := query.ResponseParser[testUser](func(resp *engine.SearchResponse, p *query.Page[testUser]) (*query.Page[testUser], error) {
		for _, h := range resp.Hits {
			p.Result = append(p.Result, testUser{ID: "parsed-" + h.ID})
		}
		return p, nil
	})
	page, err = repo.SearchWith(ctx, &query.SearchQuery{Target: query.Target{Pageable: query.NewPageable(1, 5)}}, full)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Result[0].ID != "parsed-1" || page.PageSize != 5 || page.Total != 1 {
		t.Errorf("response parser page = %+v", page)
	}
}

func TestQueryForIDs(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	ctx := context.Background()
	_ = repo.SaveAll(ctx, []*testUser{{ID: "1"}, {ID: "2"}})

	ids, err := repo.QueryForIDs(ctx, &query.SearchQuery{Query: query.MatchAll()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"1", "2"}) {
		t.Errorf("ids = %v", ids)
	}
	if mb.lastSearch["_source"] != false {
		t.Errorf("_source = %v, want false", mb.lastSearch["_source"])
	}
}

func TestFind_Builder(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	ctx := context.Background()
	_ = repo.SaveAll(ctx, []*testUser{
		{ID: "1", Username: "ann", Role: "admin"},
		{ID: "2", Username: "annette", Role: "dev"},
		{ID: "3", Username: "bob", Role: "admin"},
	})

	page, err := repo.Find().
		Match("username", "ann").
		Where("role", "admin").
		Facet("role", 10).
		Sort("username", query.Desc).
		Do(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Result) != 1 || page.Result[0].ID != "1" {
		t.Errorf("result = %+v, want [1]", page.Result)
	}
	if page.PageSize != query.DefaultPageSize {
		t.Errorf("page size = %d, want default", page.PageSize)
	}
	sorts, _ := mb.lastSearch["sort"].([]any)
	if len(sorts) != 1 {
		t.Errorf("sort = %v", mb.lastSearch["sort"])
	}
}

// --- similarity ---

func TestSearchSimilar_Validation(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()

	if _, err := repo.SearchSimilar(ctx, nil, &query.SearchQuery{Target: query.Target{Fields: []string{"username"}}}); !errors.Is(err, ErrNilArgument) {
		t.Errorf("nil entity: expected ErrNilArgument, got %v", err)
	}
	if _, err := repo.SearchSimilar(ctx, &testUser{ID: "1"}, &query.SearchQuery{}); !errors.Is(err, ErrNilArgument) {
		t.Errorf("no fields: expected ErrNilArgument, got %v", err)
	}
}

func TestSearchSimilar_DefaultPageOffset(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	mb.searchFn = func(*engine.SearchRequest) (*engine.SearchResponse, error) {
		return &engine.SearchResponse{}, nil
	}

	page, err := repo.SearchSimilar(context.Background(), &testUser{ID: "1"}, &query.SearchQuery{
		Target: query.Target{Fields: []string{"username"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// More-like-this offsets by currentPage*pageSize.
	if mb.lastSearch["from"] != float64(10) || mb.lastSearch["size"] != float64(10) {
		t.Errorf("from/size = %v/%v, want 10/10", mb.lastSearch["from"], mb.lastSearch["size"])
	}
	if page.CurrentPage != 1 || page.PageSize != 10 {
		t.Errorf("page echo = %d/%d", page.CurrentPage, page.PageSize)
	}
}

// --- suggest ---

func TestSuggestTerms(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()
	_ = repo.SaveAll(ctx, []*testUser{{ID: "1", Username: "u1"}, {ID: "2", Username: "u2"}, {ID: "3", Username: "u22"}, {ID: "4", Username: "x"}})

	got, err := repo.SuggestTerms(ctx, "username", "u2", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"u2", "u22"}) {
		t.Errorf("suggestions = %v", got)
	}

	got, _ = repo.SuggestTerms(ctx, "username", "u", 2)
	if len(got) != 2 {
		t.Errorf("expected size bound of 2, got %v", got)
	}
}

func TestSuggestTerms_BoundsAcrossEntries(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	mb.suggestFn = func(*engine.SuggestRequest) (*engine.SuggestResponse, error) {
		return &engine.SuggestResponse{Suggestions: []engine.Suggestion{{
			Name: repo.IndexName(),
			Entries: []engine.SuggestEntry{
				{Text: "u2", Options: []engine.SuggestOption{{Text: "a"}, {Text: "b"}}},
				{Text: "x", Options: []engine.SuggestOption{{Text: "c"}, {Text: "d"}}},
			},
		}}}, nil
	}

	got, err := repo.SuggestTerms(context.Background(), "username", "u2 x", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("suggestions = %v, want [a b c]", got)
	}
}

func TestSuggestTerms_NonPositiveSizeUsesDefault(t *testing.T) {
	repo, mb := newTestRepo[testUser](t)
	var sent map[string]any
	mb.suggestFn = func(req *engine.SuggestRequest) (*engine.SuggestResponse, error) {
		sent = normalize(req.Body)
		return &engine.SuggestResponse{}, nil
	}

	for _, size := range []int{0, -1} {
		got, err := repo.SuggestTerms(context.Background(), "username", "u", size)
		if err != nil {
			t.Fatalf("size %d: unexpected error: %v", size, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("size %d: suggestions = %v, want empty", size, got)
		}
		spec := sent["suggest"].(map[string]any)[repo.IndexName()].(map[string]any)
		if n := intOf(spec["phrase"].(map[string]any)["size"], 0); n != query.DefaultSuggestSize {
			t.Errorf("size %d: sent size %d, want %d", size, n, query.DefaultSuggestSize)
		}
	}
}

// --- admin ---

func TestIndexAdmin(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()

	ok, err := repo.IndexExists(ctx)
	if err != nil || !ok {
		t.Fatalf("IndexExists = %v, %v", ok, err)
	}
	if err := repo.CreateIndex(ctx); !errors.Is(err, engine.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
	if err := repo.DeleteIndex(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := repo.IndexExists(ctx); ok {
		t.Error("expected index to be gone")
	}
}

func TestClient_Elasticsearch_NilForForeignBackend(t *testing.T) {
	c, _ := New(WithBackend(newMemBackend()), WithInstrumentation())
	if c.Elasticsearch() != nil {
		t.Error("expected no raw client for an in-memory backend")
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRepository_ConcurrentUse(t *testing.T) {
	repo, _ := newTestRepo[testUser](t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i))
			if _, err := repo.Save(ctx, &testUser{ID: id}); err != nil {
				t.Errorf("save %s: %v", id, err)
			}
		}()
	}
	wg.Wait()

	n, _ := repo.Count(ctx)
	if n != 8 {
		t.Errorf("count = %d, want 8", n)
	}
}
