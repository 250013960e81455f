package elastic

import (
	"context"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/esrepo/pkg/engine"
)

// Search runs a search with typed keys so aggregation kinds survive the
// round trip.
func (b *Backend) Search(ctx context.Context, req *engine.SearchRequest) (*engine.SearchResponse, error) {
	r, err := encode(req.Body)
	if err != nil {
		return nil, &engine.Error{Op: engine.OpSearch, Err: err}
	}

	opts := []func(*esapi.SearchRequest){
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(req.Indices...),
		b.client.Search.WithBody(r),
		b.client.Search.WithTypedKeys(true),
	}
	if len(req.Routing) > 0 {
		opts = append(opts, b.client.Search.WithRouting(req.Routing...))
	}

	res, err := b.client.Search(opts...)
	body, err := b.result(engine.OpSearch, res, err)
	if err != nil {
		return nil, err
	}

	out, err := parseSearch(body)
	if err != nil {
		return nil, &engine.Error{Op: engine.OpSearch, Err: err}
	}
	return out, nil
}

// Count returns the number of documents matching the request body.
func (b *Backend) Count(ctx context.Context, req *engine.CountRequest) (int64, error) {
	opts := []func(*esapi.CountRequest){
		b.client.Count.WithContext(ctx),
		b.client.Count.WithIndex(req.Indices...),
	}
	if len(req.Body) > 0 {
		r, err := encode(req.Body)
		if err != nil {
			return 0, &engine.Error{Op: engine.OpCount, Err: err}
		}
		opts = append(opts, b.client.Count.WithBody(r))
	}

	res, err := b.client.Count(opts...)
	body, err := b.result(engine.OpCount, res, err)
	if err != nil {
		return 0, err
	}
	n, err := jsonparser.GetInt(body, "count")
	if err != nil {
		return 0, &engine.Error{Op: engine.OpCount, Err: fmt.Errorf("parse count: %w", err)}
	}
	return n, nil
}

// Suggest runs a suggest-only search.
func (b *Backend) Suggest(ctx context.Context, req *engine.SuggestRequest) (*engine.SuggestResponse, error) {
	r, err := encode(req.Body)
	if err != nil {
		return nil, &engine.Error{Op: engine.OpSuggest, Err: err}
	}

	opts := []func(*esapi.SearchRequest){
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(req.Indices...),
		b.client.Search.WithBody(r),
		b.client.Search.WithTypedKeys(true),
	}
	if req.Preference != "" {
		opts = append(opts, b.client.Search.WithPreference(req.Preference))
	}
	if len(req.Routing) > 0 {
		opts = append(opts, b.client.Search.WithRouting(req.Routing...))
	}

	res, err := b.client.Search(opts...)
	body, err := b.result(engine.OpSuggest, res, err)
	if err != nil {
		return nil, err
	}

	out, err := parseSuggest(body)
	if err != nil {
		return nil, &engine.Error{Op: engine.OpSuggest, Err: err}
	}
	return out, nil
}

func parseSearch(body []byte) (*engine.SearchResponse, error) {
	out := &engine.SearchResponse{}
	if total, err := jsonparser.GetInt(body, "hits", "total", "value"); err == nil {
		out.Total = total
	} else if total, err := jsonparser.GetInt(body, "hits", "total"); err == nil {
		out.Total = total
	}

	var parseErr error
	_, err := jsonparser.ArrayEach(body, func(value []byte, dt jsonparser.ValueType, _ int, _ error) {
		if parseErr != nil {
			return
		}
		if dt == jsonparser.Null {
			out.Hits = append(out.Hits, nil)
			return
		}
		hit, err := parseHit(value)
		if err != nil {
			parseErr = err
			return
		}
		out.Hits = append(out.Hits, hit)
	}, "hits", "hits")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, fmt.Errorf("parse hits: %w", err)
	}
	if parseErr != nil {
		return nil, parseErr
	}

	facets, err := parseAggregations(body)
	if err != nil {
		return nil, err
	}
	out.Facets = facets
	return out, nil
}

func parseHit(value []byte) (*engine.Hit, error) {
	hit := &engine.Hit{}
	hit.Index, _ = jsonparser.GetString(value, "_index")
	hit.ID, _ = jsonparser.GetString(value, "_id")
	hit.Score, _ = jsonparser.GetFloat(value, "_score")
	if src, dt, _, err := jsonparser.Get(value, "_source"); err == nil && dt == jsonparser.Object {
		hit.Source = append([]byte(nil), src...)
	}

	err := jsonparser.ObjectEach(value, func(key, frags []byte, dt jsonparser.ValueType, _ int) error {
		if dt != jsonparser.Array {
			return nil
		}
		if hit.Highlight == nil {
			hit.Highlight = make(map[string][]string)
		}
		field := string(key)
		var ferr error
		_, err := jsonparser.ArrayEach(frags, func(frag []byte, fdt jsonparser.ValueType, _ int, _ error) {
			if ferr != nil || fdt != jsonparser.String {
				return
			}
			s, err := jsonparser.ParseString(frag)
			if err != nil {
				ferr = err
				return
			}
			hit.Highlight[field] = append(hit.Highlight[field], s)
		})
		if err != nil {
			return err
		}
		return ferr
	}, "highlight")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, fmt.Errorf("parse highlight of %q: %w", hit.ID, err)
	}
	return hit, nil
}

// parseAggregations reads typed-key aggregations ("kind#name"). A filter
// wrapper is unwrapped to its same-named child; a filter without one is
// reported with kind "filter".
func parseAggregations(body []byte) ([]engine.Facet, error) {
	var facets []engine.Facet
	err := jsonparser.ObjectEach(body, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		if dt != jsonparser.Object {
			return nil
		}
		kind, name := splitTypedKey(string(key))
		if kind == "filter" {
			inner, innerKind, ok := filteredChild(value, name)
			if !ok {
				// A plain filter aggregation; it has no term buckets.
				facets = append(facets, engine.Facet{Name: name, Kind: kind})
				return nil
			}
			value, kind = inner, innerKind
		}
		terms, err := parseBuckets(value)
		if err != nil {
			return fmt.Errorf("parse aggregation %q: %w", name, err)
		}
		facets = append(facets, engine.Facet{Name: name, Kind: kind, Terms: terms})
		return nil
	}, "aggregations")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, err
	}
	return facets, nil
}

func filteredChild(value []byte, name string) ([]byte, string, bool) {
	var (
		child []byte
		kind  string
	)
	_ = jsonparser.ObjectEach(value, func(key, v []byte, dt jsonparser.ValueType, _ int) error {
		if dt != jsonparser.Object || child != nil {
			return nil
		}
		k, n := splitTypedKey(string(key))
		if n == name {
			child, kind = v, k
		}
		return nil
	})
	return child, kind, child != nil
}

func parseBuckets(value []byte) ([]engine.Term, error) {
	var (
		terms    []engine.Term
		innerErr error
	)
	_, err := jsonparser.ArrayEach(value, func(bucket []byte, _ jsonparser.ValueType, _ int, _ error) {
		if innerErr != nil {
			return
		}
		term, err := bucketKey(bucket)
		if err != nil {
			innerErr = err
			return
		}
		count, _ := jsonparser.GetInt(bucket, "doc_count")
		terms = append(terms, engine.Term{Term: term, Count: count})
	}, "buckets")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, err
	}
	return terms, innerErr
}

func bucketKey(bucket []byte) (string, error) {
	if s, err := jsonparser.GetString(bucket, "key_as_string"); err == nil {
		return s, nil
	}
	raw, dt, _, err := jsonparser.Get(bucket, "key")
	if err != nil {
		return "", fmt.Errorf("bucket without key: %w", err)
	}
	if dt == jsonparser.String {
		return jsonparser.ParseString(raw)
	}
	return string(raw), nil
}

func parseSuggest(body []byte) (*engine.SuggestResponse, error) {
	out := &engine.SuggestResponse{}
	err := jsonparser.ObjectEach(body, func(key, value []byte, _ jsonparser.ValueType, _ int) error {
		_, name := splitTypedKey(string(key))
		s := engine.Suggestion{Name: name}
		var innerErr error
		_, err := jsonparser.ArrayEach(value, func(entry []byte, _ jsonparser.ValueType, _ int, _ error) {
			if innerErr != nil {
				return
			}
			e, err := parseSuggestEntry(entry)
			if err != nil {
				innerErr = err
				return
			}
			s.Entries = append(s.Entries, e)
		})
		if err != nil {
			return err
		}
		if innerErr != nil {
			return innerErr
		}
		out.Suggestions = append(out.Suggestions, s)
		return nil
	}, "suggest")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, fmt.Errorf("parse suggest: %w", err)
	}
	return out, nil
}

func parseSuggestEntry(entry []byte) (engine.SuggestEntry, error) {
	var e engine.SuggestEntry
	e.Text, _ = jsonparser.GetString(entry, "text")
	offset, _ := jsonparser.GetInt(entry, "offset")
	length, _ := jsonparser.GetInt(entry, "length")
	e.Offset, e.Length = int(offset), int(length)

	_, err := jsonparser.ArrayEach(entry, func(opt []byte, _ jsonparser.ValueType, _ int, _ error) {
		text, _ := jsonparser.GetString(opt, "text")
		score, _ := jsonparser.GetFloat(opt, "score")
		e.Options = append(e.Options, engine.SuggestOption{Text: text, Score: score})
	}, "options")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return e, err
	}
	return e, nil
}

// splitTypedKey splits "sterms#tags" into ("sterms", "tags"). Keys without
// a prefix come back with an empty kind.
func splitTypedKey(key string) (kind, name string) {
	if i := strings.IndexByte(key, '#'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}
