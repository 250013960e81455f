// Package elastic implements engine.Backend on the official
// go-elasticsearch v8 client. Elasticsearch 8 has a single mapping type per
// index, so type names carried by requests are not sent.
package elastic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/pkg/engine"
)

// Compile-time check: Backend implements engine.Backend.
var _ engine.Backend = (*Backend)(nil)

// Config holds connection parameters for an Elasticsearch cluster.
type Config struct {
	Addresses  []string
	Username   string
	Password   string
	APIKey     string
	MaxRetries int
	Transport  http.RoundTripper // optional, mostly for tests
}

// Backend implements engine.Backend via go-elasticsearch.
type Backend struct {
	client *elasticsearch.Client
	logger *zap.Logger
}

// NewBackend creates an Elasticsearch backend. No request is sent.
func NewBackend(cfg Config, logger *zap.Logger) (*Backend, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("addresses is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.Addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		APIKey:     cfg.APIKey,
		MaxRetries: cfg.MaxRetries,
		Transport:  cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Backend{client: client, logger: logger}, nil
}

// Client exposes the raw client for operations this package does not wrap.
func (b *Backend) Client() *elasticsearch.Client {
	return b.client
}

// Ping checks connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	res, err := b.client.Ping(b.client.Ping.WithContext(ctx))
	_, err = b.result(engine.OpPing, res, err)
	return err
}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (b *Backend) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := b.Ping(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for elasticsearch: %w", ctx.Err())
		case <-ticker.C:
			if err := b.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// result drains and closes the response body. Non-2xx responses become
// *engine.Error; the body is still returned so callers can inspect it.
func (b *Backend) result(op string, res *esapi.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, &engine.Error{Op: op, Err: fmt.Errorf("%w: %w", engine.ErrUnavailable, err)}
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &engine.Error{Op: op, Status: res.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if res.IsError() {
		return body, responseError(op, res.StatusCode, body)
	}
	return body, nil
}

func encode(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(data), nil
}
