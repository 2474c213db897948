package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/cleanup"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/config"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/metrics"
)

const defaultRequestTimeout = 45 * time.Second

// Submitter queues scan requests.
type Submitter interface {
	Submit(ctx context.Context, req leads.ScanRequest) (leads.ScanRequest, error)
}

// Cleaner re-validates stored contact data.
type Cleaner interface {
	Run(ctx context.Context) (cleanup.Result, error)
}

// IDGenerator produces request ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Deps are the collaborators behind the HTTP handlers.
type Deps struct {
	Submitter  Submitter
	Results    leads.ResultStore
	Auditor    leads.Auditor
	Discoverer leads.Discoverer
	Cleaner    Cleaner
	IDs        IDGenerator
}

// Server wires HTTP handlers to the dispatcher and stores.
type Server struct {
	router  chi.Router
	deps    Deps
	results *ResultsHandler
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		deps:    deps,
		results: NewResultsHandler(deps.Results, cfg.Results.PoorThreshold, logger),
		cfg:     cfg,
		logger:  logger,
	}

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(deps.IDs))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/scan", s.submitScan)
		r.Route("/results", func(r chi.Router) {
			r.Get("/", s.results.List)
			r.Get("/summary", s.results.Summary)
		})
		r.Post("/cleanup/invalid-contacts", s.cleanupContacts)
		r.Post("/audit", s.auditSite)
		r.Get("/discover", s.discover)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Results == nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	if err := s.deps.Results.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type scanRequest struct {
	City    string   `json:"city"`
	Keyword string   `json:"keyword"`
	URLs    []string `json:"urls"`
}

type scanResponse struct {
	Status   string `json:"status"`
	City     string `json:"city"`
	Keyword  string `json:"keyword"`
	URLCount int    `json:"urlCount"`
	Mode     string `json:"mode"`
}

func (s *Server) submitScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.City) == "" || strings.TrimSpace(req.Keyword) == "" {
		writeError(w, http.StatusBadRequest, "city and keyword are required")
		return
	}
	queued, err := s.deps.Submitter.Submit(r.Context(), leads.ScanRequest{
		City:    req.City,
		Keyword: req.Keyword,
		URLs:    req.URLs,
	})
	if err != nil {
		s.writeFailure(w, "submit scan", err)
		return
	}

	location := url.Values{}
	location.Set("city", queued.City)
	location.Set("keyword", queued.Keyword)
	w.Header().Set("Location", "/results?"+location.Encode())
	writeJSON(w, http.StatusAccepted, scanResponse{
		Status:   "queued",
		City:     queued.City,
		Keyword:  queued.Keyword,
		URLCount: len(queued.URLs),
		Mode:     queued.Mode(),
	})
}

func (s *Server) cleanupContacts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cleaner == nil {
		writeError(w, http.StatusServiceUnavailable, "cleanup unavailable")
		return
	}
	res, err := s.deps.Cleaner.Run(r.Context())
	if err != nil {
		s.writeFailure(w, "cleanup contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type auditRequest struct {
	URL string `json:"url"`
}

func (s *Server) auditSite(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, err := s.deps.Auditor.Audit(r.Context(), req.URL)
	if err != nil {
		s.writeFailure(w, "audit site", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type discoverResponse struct {
	City       string                     `json:"city"`
	Keyword    string                     `json:"keyword"`
	Count      int                        `json:"count"`
	Candidates []leads.DiscoveryCandidate `json:"candidates"`
}

func (s *Server) discover(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if city == "" || keyword == "" {
		writeError(w, http.StatusBadRequest, "city and keyword are required")
		return
	}
	candidates, err := s.deps.Discoverer.Discover(r.Context(), city, keyword)
	if err != nil {
		s.writeFailure(w, "discover", err)
		return
	}
	if candidates == nil {
		candidates = []leads.DiscoveryCandidate{}
	}
	writeJSON(w, http.StatusOK, discoverResponse{
		City:       city,
		Keyword:    keyword,
		Count:      len(candidates),
		Candidates: candidates,
	})
}

// writeFailure maps domain errors onto HTTP statuses.
func (s *Server) writeFailure(w http.ResponseWriter, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	}
	writeError(w, status, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, leads.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, leads.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, leads.ErrQueueClosed):
		return http.StatusServiceUnavailable, "queue closed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
