package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/internal/domain"
	"github.com/kailas-cloud/esrepo/internal/logger"
	"github.com/kailas-cloud/esrepo/pkg/engine"
)

const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnauthorized     = "unauthorized"
	codeNotFound         = "not_found"
	codeVersionConflict  = "version_conflict"
	codeBulkFailure      = "bulk_failure"
	codeUnavailable      = "backend_unavailable"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Failures map[string]string `json:"failures,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel
// error. The sentinel's own text is sent, never the wrapped chain.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func bulkFailureHandler(w http.ResponseWriter, err error) bool {
	var be *domain.BulkError
	if !errors.As(err, &be) {
		return false
	}
	writeJSON(w, http.StatusConflict, errorResponse{
		Code:     codeBulkFailure,
		Message:  be.Error(),
		Failures: be.Failures,
	})
	return true
}

func notFoundHandler(w http.ResponseWriter, err error) bool {
	if !isNotFound(err) {
		return false
	}
	writeError(w, http.StatusNotFound, codeNotFound, "not found")
	return true
}

func isNotFound(err error) bool {
	if errors.Is(err, engine.ErrIndexNotFound) {
		return true
	}
	var ee *engine.Error
	return errors.As(err, &ee) && ee.Status == http.StatusNotFound
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
