package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esrepo/internal/directory"
	"github.com/kailas-cloud/esrepo/internal/logger"
	"github.com/kailas-cloud/esrepo/pkg/query"
)

const defaultSuggestSize = query.DefaultSuggestSize

type userPageResponse struct {
	Items      []directory.User            `json:"items"`
	Total      int64                       `json:"total"`
	Page       int                         `json:"page"`
	Size       int                         `json:"size"`
	TotalPages int                         `json:"total_pages"`
	HasMore    bool                        `json:"has_more"`
	Facets     map[string]map[string]int64 `json:"facets,omitempty"`
}

type bulkResponse struct {
	Indexed int      `json:"indexed"`
	IDs     []string `json:"ids"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

type suggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

func pageToResponse(p *query.Page[directory.User]) userPageResponse {
	items := make([]directory.User, len(p.Result))
	for i, u := range p.Result {
		items[i] = u.Public()
	}
	return userPageResponse{
		Items:      items,
		Total:      p.Total,
		Page:       p.CurrentPage,
		Size:       p.PageSize,
		TotalPages: p.TotalPages(),
		HasMore:    p.HasNext(),
		Facets:     p.Facets,
	}
}

func decodeUser(r *http.Request) (directory.User, error) {
	var u directory.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		return directory.User{}, fmt.Errorf("invalid request body: %w", err)
	}
	return u, nil
}

// GetUser handles GET /users/{id}.
func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := bindPathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	u, found, err := s.users.FindOne(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, codeNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u.Public())
}

// PutUser handles PUT /users/{id}. The path id wins over any id in the body.
func (s *Server) PutUser(w http.ResponseWriter, r *http.Request) {
	id, err := bindPathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	u, err := decodeUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	u.ID = id

	if _, err := s.users.Save(r.Context(), &u); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Public())
}

// CreateUser handles POST /users. A missing id is generated.
func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	u, err := decodeUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if u.Username == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "username is required")
		return
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	if _, err := s.users.Save(r.Context(), &u); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/users/"+u.ID)
	writeJSON(w, http.StatusCreated, u.Public())
}

// BulkUsers handles POST /users/_bulk.
func (s *Server) BulkUsers(w http.ResponseWriter, r *http.Request) {
	var req []directory.User
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req) == 0 || len(req) > maxBatchSize {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("users count must be between 1 and %d", maxBatchSize))
		return
	}

	users := make([]*directory.User, len(req))
	ids := make([]string, len(req))
	for i := range req {
		if req[i].ID == "" {
			req[i].ID = uuid.NewString()
		}
		users[i] = &req[i]
		ids[i] = req[i].ID
	}

	if err := s.users.SaveAll(r.Context(), users); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Debug("bulk indexed users", zap.Int("count", len(users)))
	writeJSON(w, http.StatusOK, bulkResponse{Indexed: len(users), IDs: ids})
}

// PatchUser handles PATCH /users/{id}?upsert=. Only fields present in the
// body are changed.
func (s *Server) PatchUser(w http.ResponseWriter, r *http.Request) {
	id, err := bindPathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	var upsert *bool
	if err := runtime.BindQueryParameter("form", true, false, "upsert", r.URL.Query(), &upsert); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid format for parameter upsert: "+err.Error())
		return
	}
	u, err := decodeUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	u.ID = id

	if err := s.users.Update(r.Context(), &u, upsert != nil && *upsert); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser handles DELETE /users/{id}. Deleting a missing user succeeds.
func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := bindPathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllUsers handles DELETE /users.
func (s *Server) DeleteAllUsers(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeleteAll(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers handles GET /users?q=&page=&size=&sort=&facet=.
func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, err := bindListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	q := &query.SearchQuery{
		Target: query.Target{Pageable: p.pageable(s.defaultPageSize, s.maxPageSize)},
		Query:  p.clause(),
		Facets: p.facets(),
	}
	page, err := s.users.SearchQuery(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(page))
}

// CountUsers handles GET /users/_count?q=.
func (s *Server) CountUsers(w http.ResponseWriter, r *http.Request) {
	p, err := bindListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	n, err := s.users.CountQuery(r.Context(), &query.SearchQuery{Query: p.clause()})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// SuggestUsers handles GET /users/_suggest?field=&text=&size=.
func (s *Server) SuggestUsers(w http.ResponseWriter, r *http.Request) {
	var (
		field = "username"
		text  string
		size  *int
	)
	qv := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "field", qv, &field); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid format for parameter field: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "text", qv, &text); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid format for parameter text: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "size", qv, &size); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid format for parameter size: "+err.Error())
		return
	}
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "text is required")
		return
	}
	n := defaultSuggestSize
	if size != nil && *size > 0 {
		n = *size
	}

	terms, err := s.users.SuggestTerms(r.Context(), field, text, n)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if terms == nil {
		terms = []string{}
	}
	writeJSON(w, http.StatusOK, suggestResponse{Suggestions: terms})
}

// SimilarUsers handles GET /users/{id}/_similar?fields=&page=&size=.
func (s *Server) SimilarUsers(w http.ResponseWriter, r *http.Request) {
	id, err := bindPathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	p, err := bindListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	fields := deref(p.Fields)
	if len(fields) == 0 {
		fields = []string{"username"}
	}

	q := &query.SearchQuery{
		Target: query.Target{Fields: fields, Pageable: p.pageable(s.defaultPageSize, s.maxPageSize)},
	}
	page, err := s.users.SearchSimilar(r.Context(), &directory.User{ID: id}, q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(page))
}
