// Package esrepo is a typed repository layer over Elasticsearch. Entity
// types map onto documents by convention or through document.Config, and
// every mutating call refreshes the affected index before returning.
package esrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/internal/assemble"
	"github.com/kailas-cloud/esrepo/internal/codec"
	"github.com/kailas-cloud/esrepo/internal/db/elastic"
	"github.com/kailas-cloud/esrepo/internal/db/instrumented"
	"github.com/kailas-cloud/esrepo/internal/mapping"
	"github.com/kailas-cloud/esrepo/internal/translate"
	batchuc "github.com/kailas-cloud/esrepo/internal/usecase/batch"
	"github.com/kailas-cloud/esrepo/pkg/engine"
)

const defaultReadinessTimeout = 10 * time.Second

// Codec serializes entities to documents and back.
type Codec = codec.Codec

// MetadataCache holds resolved entity mappings. Share one between clients
// with WithMetadataCache.
type MetadataCache = mapping.Cache

// NewMetadataCache creates an empty metadata cache.
func NewMetadataCache() *MetadataCache { return mapping.NewCache() }

// Client owns the backend connection and the shared pipeline used by every
// Repository created from it.
type Client struct {
	backend    engine.Backend
	translator *translate.Translator
	assembler  *assemble.Assembler
	bulk       *batchuc.Service
	cache      *mapping.Cache
	logger     *zap.Logger

	createIndex bool
}

// New creates a Client. Unless WithBackend is given it connects to
// Elasticsearch and waits for the cluster to answer.
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	backend := cfg.backend
	if backend == nil {
		if len(cfg.addrs) == 0 {
			return nil, errors.New("esrepo: elasticsearch address required (use WithAddresses or WithBackend)")
		}
		es, err := elastic.NewBackend(elastic.Config{
			Addresses:  cfg.addrs,
			Username:   cfg.username,
			Password:   cfg.password,
			APIKey:     cfg.apiKey,
			MaxRetries: cfg.maxRetries,
			Transport:  cfg.transport,
		}, cfg.logger)
		if err != nil {
			return nil, fmt.Errorf("esrepo: create backend: %w", err)
		}
		if err := es.WaitForReady(context.Background(), cfg.readiness); err != nil {
			return nil, fmt.Errorf("esrepo: elasticsearch not ready: %w", err)
		}
		backend = es
	}

	return wireClient(backend, cfg), nil
}

func wireClient(backend engine.Backend, cfg *clientConfig) *Client {
	if cfg.instrument {
		backend = instrumented.New(backend, cfg.logger)
	}
	cache := cfg.cache
	if cache == nil {
		cache = mapping.NewCache()
	}
	translator := translate.New(cfg.codec, cfg.facetFilter)

	return &Client{
		backend:     backend,
		translator:  translator,
		assembler:   assemble.New(cfg.codec),
		bulk:        batchuc.New(backend, translator).WithLogger(cfg.logger),
		cache:       cache,
		logger:      cfg.logger,
		createIndex: cfg.createIndex,
	}
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.backend.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Backend returns the backend every repository of this client talks to.
func (c *Client) Backend() engine.Backend {
	return c.backend
}

// Elasticsearch returns the raw go-elasticsearch client for operations
// this package does not wrap. It is nil when the client was built
// WithBackend around something other than the Elasticsearch backend.
func (c *Client) Elasticsearch() *elasticsearch.Client {
	b := c.backend
	if ib, ok := b.(*instrumented.Backend); ok {
		b = ib.Unwrap()
	}
	if es, ok := b.(*elastic.Backend); ok {
		return es.Client()
	}
	return nil
}
