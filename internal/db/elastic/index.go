package elastic

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/pkg/engine"
)

// CreateIndex creates an index with the given settings. Mappings are left
// to dynamic mapping.
func (b *Backend) CreateIndex(ctx context.Context, index string, settings *engine.IndexSettings) error {
	body := map[string]any{}
	if m := settings.Map(); len(m) > 0 {
		body["settings"] = m
	}
	r, err := encode(body)
	if err != nil {
		return &engine.Error{Op: engine.OpCreateIndex, Err: err}
	}

	res, err := b.client.Indices.Create(index,
		b.client.Indices.Create.WithContext(ctx),
		b.client.Indices.Create.WithBody(r),
	)
	if _, err := b.result(engine.OpCreateIndex, res, err); err != nil {
		return err
	}
	b.logger.Info("created index", zap.String("index", index))
	return nil
}

// DeleteIndex drops an index.
func (b *Backend) DeleteIndex(ctx context.Context, index string) error {
	res, err := b.client.Indices.Delete([]string{index}, b.client.Indices.Delete.WithContext(ctx))
	if _, err := b.result(engine.OpDeleteIndex, res, err); err != nil {
		return err
	}
	b.logger.Info("deleted index", zap.String("index", index))
	return nil
}

// IndexExists reports whether the index exists.
func (b *Backend) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := b.client.Indices.Exists([]string{index}, b.client.Indices.Exists.WithContext(ctx))
	if _, err := b.result(engine.OpIndexExists, res, err); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Refresh makes recent writes to the indices visible to search.
func (b *Backend) Refresh(ctx context.Context, indices ...string) error {
	res, err := b.client.Indices.Refresh(
		b.client.Indices.Refresh.WithContext(ctx),
		b.client.Indices.Refresh.WithIndex(indices...),
	)
	_, err = b.result(engine.OpRefresh, res, err)
	return err
}
