package elastic

import (
	"bytes"
	"context"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/pkg/engine"
)

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkMeta struct {
	Index       string `json:"_index"`
	ID          string `json:"_id,omitempty"`
	Version     *int64 `json:"version,omitempty"`
	VersionType string `json:"version_type,omitempty"`
}

// Bulk sends every item in one NDJSON request. Item outcomes are returned
// in request order; per-item rejections are not an error.
func (b *Backend) Bulk(ctx context.Context, req *engine.BulkRequest) (*engine.BulkResponse, error) {
	if len(req.Items) == 0 {
		return &engine.BulkResponse{}, nil
	}

	payload, err := encodeBulk(req.Items)
	if err != nil {
		return nil, &engine.Error{Op: engine.OpBulk, Err: err}
	}

	res, err := b.client.Bulk(bytes.NewReader(payload), b.client.Bulk.WithContext(ctx))
	body, err := b.result(engine.OpBulk, res, err)
	if err != nil {
		return nil, err
	}

	out, err := parseBulk(body)
	if err != nil {
		return nil, &engine.Error{Op: engine.OpBulk, Err: err}
	}
	if out.HasFailures() {
		b.logger.Warn("bulk request has rejected items", zap.Int("items", len(out.Items)))
	}
	return out, nil
}

func encodeBulk(items []*engine.IndexRequest) ([]byte, error) {
	var buf bytes.Buffer
	for i, it := range items {
		action := bulkAction{Index: bulkMeta{Index: it.Index, ID: it.ID}}
		if it.Version != nil {
			action.Index.Version = it.Version
			action.Index.VersionType = it.VersionType
		}
		line, err := json.Marshal(action)
		if err != nil {
			return nil, fmt.Errorf("encode bulk action %d: %w", i, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')

		// NDJSON forbids newlines inside a document.
		if err := json.Compact(&buf, it.Source); err != nil {
			return nil, fmt.Errorf("encode bulk source %d: %w", i, err)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func parseBulk(body []byte) (*engine.BulkResponse, error) {
	out := &engine.BulkResponse{}
	_, err := jsonparser.ArrayEach(body, func(item []byte, _ jsonparser.ValueType, _ int, _ error) {
		// Each item is keyed by its action name.
		_ = jsonparser.ObjectEach(item, func(_, v []byte, _ jsonparser.ValueType, _ int) error {
			r := engine.BulkItemResult{}
			r.ID, _ = jsonparser.GetString(v, "_id")
			status, _ := jsonparser.GetInt(v, "status")
			r.Status = int(status)
			if typ, err := jsonparser.GetString(v, "error", "type"); err == nil {
				reason, _ := jsonparser.GetString(v, "error", "reason")
				r.Error = typ + ": " + reason
			}
			out.Items = append(out.Items, r)
			return nil
		})
	}, "items")
	if err != nil {
		return nil, fmt.Errorf("parse bulk items: %w", err)
	}
	return out, nil
}
