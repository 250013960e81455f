package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/internal/directory"
	"github.com/kailas-cloud/esrepo/internal/domain"
	healthuc "github.com/kailas-cloud/esrepo/internal/usecase/health"
	"github.com/kailas-cloud/esrepo/pkg/engine"
	"github.com/kailas-cloud/esrepo/pkg/query"
)

const maxBatchSize = 100

// UserRepository is the slice of esrepo.Repository[directory.User] the
// handlers use.
type UserRepository interface {
	FindOne(ctx context.Context, id string) (directory.User, bool, error)
	Save(ctx context.Context, u *directory.User) (string, error)
	SaveAll(ctx context.Context, users []*directory.User) error
	Update(ctx context.Context, u *directory.User, upsert bool) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	SearchQuery(ctx context.Context, q *query.SearchQuery) (*query.Page[directory.User], error)
	CountQuery(ctx context.Context, q *query.SearchQuery) (int64, error)
	SearchSimilar(ctx context.Context, u *directory.User, q *query.SearchQuery) (*query.Page[directory.User], error)
	SuggestTerms(ctx context.Context, field, keyword string, size int) ([]string, error)
}

// Server serves the user directory over HTTP.
type Server struct {
	users           UserRepository
	health          *healthuc.Service
	logger          *zap.Logger
	defaultPageSize int
	maxPageSize     int
	errorHandlers   []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(users UserRepository, health *healthuc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		users:           users,
		health:          health,
		logger:          logger,
		defaultPageSize: query.DefaultPageSize,
		maxPageSize:     100,
	}
	s.errorHandlers = []errorHandler{
		bulkFailureHandler,
		notFoundHandler,
		sentinelHandler(domain.ErrNilArgument, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrConfig, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrFacetType, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(engine.ErrConflict, http.StatusConflict, codeVersionConflict),
		sentinelHandler(engine.ErrUnavailable, http.StatusServiceUnavailable, codeUnavailable),
	}
	return s
}

// WithPagination overrides the default and maximum page sizes.
func (s *Server) WithPagination(defaultSize, maxSize int) *Server {
	if defaultSize > 0 {
		s.defaultPageSize = defaultSize
	}
	if maxSize > 0 {
		s.maxPageSize = maxSize
	}
	return s
}

// Routes mounts every handler on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.ListUsers)
		r.Post("/", s.CreateUser)
		r.Delete("/", s.DeleteAllUsers)
		r.Post("/_bulk", s.BulkUsers)
		r.Get("/_count", s.CountUsers)
		r.Get("/_suggest", s.SuggestUsers)
		r.Get("/{id}", s.GetUser)
		r.Put("/{id}", s.PutUser)
		r.Patch("/{id}", s.PatchUser)
		r.Delete("/{id}", s.DeleteUser)
		r.Get("/{id}/_similar", s.SimilarUsers)
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}
