package batch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/internal/domain"
	dombatch "github.com/kailas-cloud/esrepo/internal/domain/batch"
	"github.com/kailas-cloud/esrepo/internal/mapping"
	"github.com/kailas-cloud/esrepo/pkg/engine"
	"github.com/kailas-cloud/esrepo/pkg/query"
)

// Service coordinates bulk index writes with per-item failure reporting.
type Service struct {
	writer     BulkWriter
	translator IndexTranslator
	logger     *zap.Logger
}

// New creates a bulk write service.
func New(writer BulkWriter, translator IndexTranslator) *Service {
	return &Service{writer: writer, translator: translator, logger: zap.NewNop()}
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// Index writes every query in one bulk request and returns item results in
// input order. Items that cannot be serialized are reported as failed and
// left out of the request. If any item failed the error is a
// *domain.BulkError carrying the id -> message mapping. Refreshing is left
// to the caller.
func (s *Service) Index(
	ctx context.Context, queries []*query.IndexQuery, meta *mapping.Metadata,
) ([]dombatch.Result, error) {
	results := make([]dombatch.Result, len(queries))
	if len(queries) == 0 {
		return results, nil
	}

	items := make([]*engine.IndexRequest, 0, len(queries))
	sentIdx := make([]int, 0, len(queries))

	for i, q := range queries {
		req, err := s.translator.Index(q, meta)
		if err != nil {
			if errors.Is(err, domain.ErrNilArgument) {
				return nil, fmt.Errorf("bulk item %d: %w", i, err)
			}
			results[i] = dombatch.NewError(q.ID, err.Error())
			continue
		}
		items = append(items, req)
		sentIdx = append(sentIdx, i)
	}

	if len(items) > 0 {
		resp, err := s.writer.Bulk(ctx, &engine.BulkRequest{Items: items})
		if err != nil {
			return nil, fmt.Errorf("bulk: %w", err)
		}
		if len(resp.Items) != len(items) {
			return nil, fmt.Errorf("bulk: got %d item results for %d items", len(resp.Items), len(items))
		}
		for j, it := range resp.Items {
			i := sentIdx[j]
			id := it.ID
			if id == "" {
				id = queries[i].ID
			}
			if it.Failed() {
				results[i] = dombatch.NewError(id, it.Error)
			} else {
				results[i] = dombatch.NewOK(id)
			}
		}
	}

	if err := failures(results); err != nil {
		s.logger.Warn("bulk index has failures",
			zap.String("index", meta.Index),
			zap.Int("items", len(queries)),
			zap.Int("failed", len(err.Failures)),
		)
		return results, err
	}
	s.logger.Debug("bulk indexed", zap.String("index", meta.Index), zap.Int("items", len(queries)))
	return results, nil
}

func failures(results []dombatch.Result) *domain.BulkError {
	var (
		msgs  map[string]string
		order []string
	)
	for _, r := range results {
		if !r.Failed() {
			continue
		}
		if msgs == nil {
			msgs = make(map[string]string)
		}
		if _, dup := msgs[r.ID()]; !dup {
			order = append(order, r.ID())
		}
		msgs[r.ID()] = r.Message()
	}
	if msgs == nil {
		return nil
	}
	return domain.NewBulkError(msgs, order, len(results))
}
