// Package instrumented decorates an engine.Backend with Prometheus metrics
// and structured logging.
package instrumented

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/internal/metrics"
	"github.com/kailas-cloud/esrepo/pkg/engine"
)

var _ engine.Backend = (*Backend)(nil)

// Backend records duration and outcome of every call to inner. Errors are
// returned unchanged.
type Backend struct {
	inner  engine.Backend
	logger *zap.Logger
}

// New wraps inner. Metrics are registered on first use.
func New(inner engine.Backend, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.RegisterBackendMetrics()
	return &Backend{inner: inner, logger: logger}
}

// Unwrap returns the decorated backend.
func (b *Backend) Unwrap() engine.Backend { return b.inner }

func (b *Backend) observe(op string, start time.Time, err error) {
	duration := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
		b.logger.Warn("Backend request failed",
			zap.String("op", op),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	}
	metrics.BackendRequestsTotal.WithLabelValues(op, status).Inc()
	metrics.BackendRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (b *Backend) Ping(ctx context.Context) error {
	start := time.Now()
	err := b.inner.Ping(ctx)
	b.observe(engine.OpPing, start, err)
	return err
}

// WaitForReady is not timed per attempt; the inner backend pings directly.
func (b *Backend) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return b.inner.WaitForReady(ctx, timeout) //nolint:wrapcheck // pass-through decorator
}

func (b *Backend) Get(ctx context.Context, req *engine.GetRequest) (*engine.GetResponse, error) {
	start := time.Now()
	resp, err := b.inner.Get(ctx, req)
	b.observe(engine.OpGet, start, err)
	return resp, err
}

func (b *Backend) Search(ctx context.Context, req *engine.SearchRequest) (*engine.SearchResponse, error) {
	start := time.Now()
	resp, err := b.inner.Search(ctx, req)
	b.observe(engine.OpSearch, start, err)
	if err == nil {
		b.logger.Debug("Search completed",
			zap.Strings("indices", req.Indices),
			zap.Int64("total", resp.Total),
			zap.Int("hits", len(resp.Hits)),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return resp, err
}

func (b *Backend) Suggest(ctx context.Context, req *engine.SuggestRequest) (*engine.SuggestResponse, error) {
	start := time.Now()
	resp, err := b.inner.Suggest(ctx, req)
	b.observe(engine.OpSuggest, start, err)
	return resp, err
}

func (b *Backend) Count(ctx context.Context, req *engine.CountRequest) (int64, error) {
	start := time.Now()
	n, err := b.inner.Count(ctx, req)
	b.observe(engine.OpCount, start, err)
	return n, err
}

func (b *Backend) Index(ctx context.Context, req *engine.IndexRequest) (string, error) {
	start := time.Now()
	id, err := b.inner.Index(ctx, req)
	b.observe(engine.OpIndex, start, err)
	return id, err
}

func (b *Backend) Update(ctx context.Context, req *engine.UpdateRequest) error {
	start := time.Now()
	err := b.inner.Update(ctx, req)
	b.observe(engine.OpUpdate, start, err)
	return err
}

func (b *Backend) Delete(ctx context.Context, req *engine.DeleteRequest) error {
	start := time.Now()
	err := b.inner.Delete(ctx, req)
	b.observe(engine.OpDelete, start, err)
	return err
}

func (b *Backend) DeleteByQuery(ctx context.Context, req *engine.DeleteByQueryRequest) error {
	start := time.Now()
	err := b.inner.DeleteByQuery(ctx, req)
	b.observe(engine.OpDeleteByQuery, start, err)
	return err
}

// Bulk additionally counts item outcomes.
func (b *Backend) Bulk(ctx context.Context, req *engine.BulkRequest) (*engine.BulkResponse, error) {
	start := time.Now()
	resp, err := b.inner.Bulk(ctx, req)
	b.observe(engine.OpBulk, start, err)
	if err != nil {
		return resp, err
	}

	var failed int
	for _, it := range resp.Items {
		if it.Failed() {
			failed++
		}
	}
	metrics.BulkItemsTotal.WithLabelValues("ok").Add(float64(len(resp.Items) - failed))
	metrics.BulkItemsTotal.WithLabelValues("failed").Add(float64(failed))
	return resp, nil
}

func (b *Backend) CreateIndex(ctx context.Context, index string, settings *engine.IndexSettings) error {
	start := time.Now()
	err := b.inner.CreateIndex(ctx, index, settings)
	b.observe(engine.OpCreateIndex, start, err)
	return err
}

func (b *Backend) DeleteIndex(ctx context.Context, index string) error {
	start := time.Now()
	err := b.inner.DeleteIndex(ctx, index)
	b.observe(engine.OpDeleteIndex, start, err)
	return err
}

func (b *Backend) IndexExists(ctx context.Context, index string) (bool, error) {
	start := time.Now()
	ok, err := b.inner.IndexExists(ctx, index)
	b.observe(engine.OpIndexExists, start, err)
	return ok, err
}

func (b *Backend) Refresh(ctx context.Context, indices ...string) error {
	start := time.Now()
	err := b.inner.Refresh(ctx, indices...)
	b.observe(engine.OpRefresh, start, err)
	return err
}
