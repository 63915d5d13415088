// Package api serves the issue tracker over a JSON REST API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joescharf/itrack/internal/auth"
	"github.com/joescharf/itrack/internal/contact"
	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/store"
	"github.com/joescharf/itrack/internal/tracker"
	"github.com/joescharf/itrack/internal/view"
	"github.com/joescharf/itrack/internal/workflow"
)

const maxPageSize = 100

// Server provides the REST API handlers.
type Server struct {
	tracker  *tracker.Service
	authn    auth.Authenticator
	relay    *contact.Relay
	logger   *slog.Logger
	pageSize int
}

// Options configures optional Server collaborators.
type Options struct {
	Authenticator auth.Authenticator // required
	Relay         *contact.Relay     // nil disables POST /api/v1/contact
	Logger        *slog.Logger
	PageSize      int
}

// NewServer creates a new API server.
func NewServer(svc *tracker.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = view.DefaultPageSize
	}
	return &Server{
		tracker:  svc,
		authn:    opts.Authenticator,
		relay:    opts.Relay,
		logger:   logger,
		pageSize: pageSize,
	}
}

// Router returns an http.Handler for the API routes. Every route except
// the contact form requires an authenticated user.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/me", s.me)

	mux.HandleFunc("GET /api/v1/projects", s.listProjects)
	mux.HandleFunc("POST /api/v1/projects", s.createProject)
	mux.HandleFunc("GET /api/v1/projects/{id}", s.getProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", s.deleteProject)
	mux.HandleFunc("PUT /api/v1/projects/{id}/status", s.setProjectStatus)

	mux.HandleFunc("GET /api/v1/projects/{id}/issues", s.listProjectIssues)
	mux.HandleFunc("POST /api/v1/projects/{id}/issues", s.createProjectIssue)

	mux.HandleFunc("GET /api/v1/issues", s.listIssues)
	mux.HandleFunc("POST /api/v1/issues", s.createIssue)
	mux.HandleFunc("GET /api/v1/issues/similar", s.similarIssues)
	mux.HandleFunc("GET /api/v1/issues/{id}", s.getIssue)
	mux.HandleFunc("DELETE /api/v1/issues/{id}", s.deleteIssue)
	mux.HandleFunc("PUT /api/v1/issues/{id}/status", s.setIssueStatus)

	mux.HandleFunc("GET /api/v1/stats", s.stats)

	mux.HandleFunc("POST /api/v1/contact", s.sendContact)

	authed := auth.Middleware{
		Logger:        s.logger,
		Authenticator: s.authn,
		SkipPrefixes:  []string{"/api/v1/contact"},
	}.Wrap(mux)

	return corsMiddleware(authed)
}

// Handler returns Router wrapped with request IDs, request logging and
// panic recovery.
func (s *Server) Handler() http.Handler {
	return Wrap(s.logger, s.Router())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps tracker, store and auth errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var te *workflow.TransitionError
	switch {
	case errors.Is(err, tracker.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &te):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed",
			"request_id", r.Header.Get(headerRequestID),
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, identity(r))
}

// --- Projects ---

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.tracker.ListProjects(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := identity(r)
	p, err := s.tracker.CreateProject(r.Context(), tracker.NewProject{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   id.Email,
		OwnerID:     id.Subject,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.tracker.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	detached, err := s.tracker.DeleteProject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "detachedIssues": detached})
}

func (s *Server) setProjectStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.tracker.ChangeProjectStatus(r.Context(), r.PathValue("id"), models.ProjectStatus(req.Status))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- Issues ---

type createIssueRequest struct {
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	AssignedTo  string `json:"assignedTo"`
}

func (req createIssueRequest) newIssue(r *http.Request) tracker.NewIssue {
	return tracker.NewIssue{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.IssuePriority(req.Priority),
		Status:      models.IssueStatus(req.Status),
		AssignedTo:  req.AssignedTo,
		CreatedBy:   identity(r).Email,
	}
}

type issuePage struct {
	Issues     []*models.Issue `json:"issues"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
	Total      int             `json:"total"`
	Start      int             `json:"start"`
	End        int             `json:"end"`
}

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := view.IssueFilter{Status: q.Get("status"), Priority: q.Get("priority")}
	if !view.ValidFilter(filter.Status, models.IssueStatuses) {
		writeError(w, http.StatusBadRequest, "unknown status filter "+strconv.Quote(filter.Status))
		return
	}
	if !view.ValidFilter(filter.Priority, models.IssuePriorities) {
		writeError(w, http.StatusBadRequest, "unknown priority filter "+strconv.Quote(filter.Priority))
		return
	}
	order, err := view.ParseSort(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	if size < 1 {
		size = s.pageSize
	}
	size = min(size, maxPageSize)

	issues, err := s.tracker.ListIssues(r.Context(), store.IssueListFilter{
		ProjectID: q.Get("project"),
		Oldest:    order == view.SortOldest,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	p := view.Paginate(view.FilterIssues(issues, filter), page, size)
	writeJSON(w, http.StatusOK, issuePage{
		Issues:     p.Items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		Total:      p.Total,
		Start:      p.Start,
		End:        p.End,
	})
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	issue, err := s.tracker.CreateIssue(r.Context(), req.newIssue(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

func (s *Server) listProjectIssues(w http.ResponseWriter, r *http.Request) {
	_, issues, err := s.tracker.ProjectIssues(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) createProjectIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	projectID := r.PathValue("id")
	if _, err := s.tracker.GetProject(r.Context(), projectID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	req.ProjectID = projectID
	issue, err := s.tracker.CreateIssue(r.Context(), req.newIssue(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

func (s *Server) similarIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := s.tracker.SimilarIssues(r.Context(), r.URL.Query().Get("title"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) getIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := s.tracker.GetIssue(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) deleteIssue(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteIssue(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) setIssueStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	issue, err := s.tracker.ChangeIssueStatus(r.Context(), r.PathValue("id"), models.IssueStatus(req.Status))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// --- Dashboard ---

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	issues, err := s.tracker.ListIssues(r.Context(), store.IssueListFilter{ProjectID: r.URL.Query().Get("project")})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.ComputeStats(issues, identity(r).Email))
}

// --- Contact ---

func (s *Server) sendContact(w http.ResponseWriter, r *http.Request) {
	if s.relay == nil {
		writeError(w, http.StatusServiceUnavailable, contact.ErrNotConfigured.Error())
		return
	}
	var msg contact.Message
	if !decodeJSON(w, r, &msg) {
		return
	}

	err := s.relay.Send(r.Context(), msg)
	var se *contact.StatusError
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	case errors.Is(err, contact.ErrMissingField):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contact.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &se):
		s.logger.Warn("contact relay rejected", "status", se.StatusCode)
		writeError(w, http.StatusBadGateway, "message could not be delivered")
	default:
		s.logger.Warn("contact relay failed", "error", err.Error())
		writeError(w, http.StatusBadGateway, "message could not be delivered")
	}
}
