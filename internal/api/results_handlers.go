package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

const (
	defaultPageSize      = 50
	maxPageSize          = 200
	defaultPoorThreshold = 20
	resultsTimeout       = 5 * time.Second
)

// ResultsHandler exposes the read-only results endpoints.
type ResultsHandler struct {
	repo          leads.ResultStore
	poorThreshold int
	timeout       time.Duration
	logger        *zap.Logger
}

// NewResultsHandler wires the store. poorThreshold is the default used when
// requests omit one; non-positive values fall back to 20.
func NewResultsHandler(repo leads.ResultStore, poorThreshold int, logger *zap.Logger) *ResultsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poorThreshold <= 0 {
		poorThreshold = defaultPoorThreshold
	}
	return &ResultsHandler{
		repo:          repo,
		poorThreshold: poorThreshold,
		timeout:       resultsTimeout,
		logger:        logger,
	}
}

// List handles GET /results?page=&pageSize=&poorThreshold=&city=&keyword=.
// page is raised to 1 and pageSize clamped to 1..200; non-numeric values are
// rejected with 400.
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "result store unavailable")
		return
	}
	query, err := h.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.repo.ListResults(ctx, query)
	if err != nil {
		h.logger.Error("list results failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}
	if page.Items == nil {
		page.Items = []leads.ResultRow{}
	}
	writeJSON(w, http.StatusOK, page)
}

// Summary handles GET /results/summary?poorThreshold=.
func (h *ResultsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "result store unavailable")
		return
	}
	threshold, err := intParam(r, "poorThreshold", h.poorThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.repo.Summarize(ctx, threshold)
	if err != nil {
		h.logger.Error("summarize results failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to summarize results")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *ResultsHandler) parseQuery(r *http.Request) (leads.ResultQuery, error) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		return leads.ResultQuery{}, err
	}
	pageSize, err := intParam(r, "pageSize", defaultPageSize)
	if err != nil {
		return leads.ResultQuery{}, err
	}
	threshold, err := intParam(r, "poorThreshold", h.poorThreshold)
	if err != nil {
		return leads.ResultQuery{}, err
	}
	return leads.ResultQuery{
		Page:          max(page, 1),
		PageSize:      min(max(pageSize, 1), maxPageSize),
		PoorThreshold: threshold,
		City:          strings.TrimSpace(r.URL.Query().Get("city")),
		Keyword:       strings.TrimSpace(r.URL.Query().Get("keyword")),
	}, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return val, nil
}
