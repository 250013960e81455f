package elastic

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/buger/jsonparser"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/pkg/engine"
)

// Get fetches one document. A missing document is reported with
// Found=false; a missing index is an error.
func (b *Backend) Get(ctx context.Context, req *engine.GetRequest) (*engine.GetResponse, error) {
	res, err := b.client.Get(req.Index, req.ID, b.client.Get.WithContext(ctx))
	body, err := b.result(engine.OpGet, res, err)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			if found, ferr := jsonparser.GetBoolean(body, "found"); ferr == nil && !found {
				return &engine.GetResponse{Index: req.Index, ID: req.ID}, nil
			}
		}
		return nil, err
	}

	out := &engine.GetResponse{Index: req.Index, ID: req.ID}
	out.Found, _ = jsonparser.GetBoolean(body, "found")
	if src, dt, _, serr := jsonparser.Get(body, "_source"); serr == nil && dt == jsonparser.Object {
		out.Source = append([]byte(nil), src...)
	}
	return out, nil
}

// Index writes one document and returns its id.
func (b *Backend) Index(ctx context.Context, req *engine.IndexRequest) (string, error) {
	opts := []func(*esapi.IndexRequest){b.client.Index.WithContext(ctx)}
	if req.ID != "" {
		opts = append(opts, b.client.Index.WithDocumentID(req.ID))
	}
	if req.Version != nil {
		// esapi takes the version as int, which is 32 bits wide on some platforms.
		if *req.Version > math.MaxInt || *req.Version < 0 {
			return "", &engine.Error{Op: engine.OpIndex, Err: fmt.Errorf("version %d out of range", *req.Version)}
		}
		opts = append(opts,
			b.client.Index.WithVersion(int(*req.Version)),
			b.client.Index.WithVersionType(req.VersionType),
		)
	}

	res, err := b.client.Index(req.Index, bytes.NewReader(req.Source), opts...)
	body, err := b.result(engine.OpIndex, res, err)
	if err != nil {
		return "", err
	}
	id, _ := jsonparser.GetString(body, "_id")
	b.logger.Debug("indexed document", zap.String("index", req.Index), zap.String("id", id))
	return id, nil
}

// Update applies a partial document.
func (b *Backend) Update(ctx context.Context, req *engine.UpdateRequest) error {
	r, err := encode(req.Body)
	if err != nil {
		return &engine.Error{Op: engine.OpUpdate, Err: err}
	}
	res, err := b.client.Update(req.Index, req.ID, r, b.client.Update.WithContext(ctx))
	if _, err := b.result(engine.OpUpdate, res, err); err != nil {
		return err
	}
	b.logger.Debug("updated document", zap.String("index", req.Index), zap.String("id", req.ID))
	return nil
}

// Delete removes one document. Deleting a missing document is not an error;
// a missing index is.
func (b *Backend) Delete(ctx context.Context, req *engine.DeleteRequest) error {
	res, err := b.client.Delete(req.Index, req.ID, b.client.Delete.WithContext(ctx))
	if body, err := b.result(engine.OpDelete, res, err); err != nil && !documentNotFound(err, body) {
		return err
	}
	b.logger.Debug("deleted document", zap.String("index", req.Index), zap.String("id", req.ID))
	return nil
}

// DeleteByQuery removes every matching document. Version conflicts with
// concurrent writes do not abort the operation.
func (b *Backend) DeleteByQuery(ctx context.Context, req *engine.DeleteByQueryRequest) error {
	r, err := encode(req.Body)
	if err != nil {
		return &engine.Error{Op: engine.OpDeleteByQuery, Err: err}
	}
	res, err := b.client.DeleteByQuery(req.Indices, r,
		b.client.DeleteByQuery.WithContext(ctx),
		b.client.DeleteByQuery.WithConflicts("proceed"),
	)
	body, err := b.result(engine.OpDeleteByQuery, res, err)
	if err != nil {
		return err
	}
	deleted, _ := jsonparser.GetInt(body, "deleted")
	b.logger.Debug("deleted by query", zap.Strings("indices", req.Indices), zap.Int64("deleted", deleted))
	return nil
}

// documentNotFound reports a 404 for a missing document, as opposed to a
// missing index.
func documentNotFound(err error, body []byte) bool {
	if !isStatus(err, http.StatusNotFound) {
		return false
	}
	result, _ := jsonparser.GetString(body, "result")
	return result == "not_found"
}
