package elastic

import (
	"errors"
	"net/http"

	"github.com/buger/jsonparser"

	"github.com/kailas-cloud/esrepo/pkg/engine"
)

// responseError maps an Elasticsearch error document onto engine.Error.
func responseError(op string, status int, body []byte) error {
	e := &engine.Error{Op: op, Status: status}
	if typ, err := jsonparser.GetString(body, "error", "type"); err == nil {
		e.Type = typ
		e.Reason, _ = jsonparser.GetString(body, "error", "reason")
	}

	switch {
	case e.Type == "index_not_found_exception":
		e.Err = engine.ErrIndexNotFound
	case e.Type == "resource_already_exists_exception":
		e.Err = engine.ErrIndexExists
	case e.Type == "version_conflict_engine_exception" || status == http.StatusConflict:
		e.Err = engine.ErrConflict
	case status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests:
		e.Err = engine.ErrUnavailable
	}
	return e
}

func isStatus(err error, status int) bool {
	var e *engine.Error
	return errors.As(err, &e) && e.Status == status
}
