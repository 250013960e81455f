package esrepo

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/internal/codec"
	"github.com/kailas-cloud/esrepo/internal/mapping"
	"github.com/kailas-cloud/esrepo/pkg/engine"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs      []string
	username   string
	password   string
	apiKey     string
	maxRetries int
	transport  http.RoundTripper
	readiness  time.Duration

	backend engine.Backend

	codec       codec.Codec
	cache       *mapping.Cache
	facetFilter bool
	createIndex bool
	instrument  bool

	logger *zap.Logger
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		readiness:   defaultReadinessTimeout,
		codec:       codec.JSON{},
		facetFilter: true,
		createIndex: true,
		logger:      zap.NewNop(),
	}
}

// WithAddresses sets the Elasticsearch node URLs.
func WithAddresses(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = addrs
	})
}

// WithBasicAuth sets HTTP basic credentials.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithAPIKey authenticates with a base64-encoded API key instead of
// basic credentials.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithMaxRetries sets transport-level retries for the Elasticsearch client.
func WithMaxRetries(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRetries = n
	})
}

// WithTransport replaces the HTTP transport of the Elasticsearch client.
func WithTransport(rt http.RoundTripper) Option {
	return optionFunc(func(c *clientConfig) {
		c.transport = rt
	})
}

// WithReadinessTimeout bounds how long New waits for the cluster to answer.
// Non-positive values keep the default.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		if d > 0 {
			c.readiness = d
		}
	})
}

// WithBackend uses b instead of dialing Elasticsearch. Connection options
// are ignored.
func WithBackend(b engine.Backend) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = b
	})
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithCodec replaces the JSON document codec.
func WithCodec(cd codec.Codec) Option {
	return optionFunc(func(c *clientConfig) {
		if cd != nil {
			c.codec = cd
		}
	})
}

// WithMetadataCache shares a metadata cache between clients.
func WithMetadataCache(mc *mapping.Cache) Option {
	return optionFunc(func(c *clientConfig) {
		c.cache = mc
	})
}

// WithFacetFilter controls whether a search filter also scopes facets.
// Enabled by default.
func WithFacetFilter(enabled bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.facetFilter = enabled
	})
}

// WithCreateIndex controls whether NewRepository creates a missing index.
// Enabled by default.
func WithCreateIndex(enabled bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.createIndex = enabled
	})
}

// WithInstrumentation records Prometheus metrics for every backend call.
func WithInstrumentation() Option {
	return optionFunc(func(c *clientConfig) {
		c.instrument = true
	})
}
