package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/cleanup"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/config"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/dispatcher"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
	queuemem "github.com/CengizhanKARAGOZ/lead-finder/internal/queue/memory"
	storemem "github.com/CengizhanKARAGOZ/lead-finder/internal/storage/memory"
)

type testEnv struct {
	queue  *queuemem.Queue
	store  *storemem.LeadStore
	server *Server
}

func newTestEnv(t *testing.T, mutate func(*config.Config, *Deps)) *testEnv {
	t.Helper()
	env := &testEnv{queue: queuemem.NewQueue(), store: storemem.NewLeadStore()}
	cfg := config.Config{
		Server:  config.ServerConfig{RequestTimeout: 5 * time.Second},
		Results: config.ResultsConfig{PoorThreshold: 20},
	}
	deps := Deps{
		Submitter:  dispatcher.New(env.queue, nil, nil),
		Results:    env.store,
		Auditor:    &fakeAuditor{},
		Discoverer: &fakeDiscoverer{},
		Cleaner:    cleanup.NewService(env.store, nil),
		IDs:        &fakeIDGen{ids: []string{"req-1", "req-2", "req-3"}},
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	env.server = NewServer(deps, cfg, zap.NewNop())
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(t *testing.T, name, domain string, scores ...int) leads.Website {
	t.Helper()
	ctx := context.Background()
	b := leads.Business{Name: name, City: "Ankara", Keyword: "parke"}
	require.NoError(t, e.store.CreateBusiness(ctx, &b))
	w := leads.Website{BusinessID: b.ID, Domain: domain, HomepageURL: "https://" + domain}
	require.NoError(t, e.store.CreateWebsite(ctx, &w))
	at := time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)
	for i, score := range scores {
		s := leads.LeadScore{BusinessID: b.ID, WebsiteID: w.ID, Score: score, ReasonsJSON: "[]",
			ComputedAt: at.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, e.store.AddLeadScore(ctx, &s))
	}
	return w
}

func TestServer_SubmitScan(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/scan", `{"city":"İzmir","keyword":"parke"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "/results?city=%C4%B0zmir&keyword=parke", rec.Header().Get("Location"))
	require.JSONEq(t, `{"status":"queued","city":"İzmir","keyword":"parke","urlCount":0,"mode":"discovery"}`, rec.Body.String())

	queued, err := env.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "İzmir", queued.City)
	require.Empty(t, queued.URLs)
}

func TestServer_SubmitScan_DirectMode(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/scan", `{"city":"Ankara","keyword":"parke","urls":["https://a.com","https://b.com"]}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body scanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.URLCount)
	require.Equal(t, "direct", body.Mode)
}

func TestServer_SubmitScan_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/scan", `{"city":"","keyword":"parke"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "city and keyword are required")

	rec = env.do(t, http.MethodPost, "/scan", `{invalid`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, env.queue.Len())
}

func TestServer_SubmitScan_QueueClosed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.queue.Close()

	rec := env.do(t, http.MethodPost, "/scan", `{"city":"Ankara","keyword":"parke"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_ListResults(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.seed(t, "Acme", "acme.com", 50, 10)
	env.seed(t, "Beta", "beta.com", 40)
	env.seed(t, "Gamma", "gamma.com")

	rec := env.do(t, http.MethodGet, "/results?pageSize=500&page=0", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page leads.ResultPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 3, page.Total)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 200, page.PageSize)
	require.Len(t, page.Items, 3)

	require.Equal(t, "gamma.com", page.Items[0].Domain)
	require.Equal(t, leads.QualityUnknown, page.Items[0].Quality)
	require.Nil(t, page.Items[0].Score)

	require.Equal(t, "beta.com", page.Items[1].Domain)
	require.Equal(t, leads.QualityOK, page.Items[1].Quality)

	require.Equal(t, "acme.com", page.Items[2].Domain)
	require.Equal(t, 10, *page.Items[2].Score)
	require.Equal(t, leads.QualityPoor, page.Items[2].Quality)
}

func TestServer_ListResults_ThresholdAndPaging(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.seed(t, "Acme", "acme.com", 30)
	env.seed(t, "Beta", "beta.com", 40)

	rec := env.do(t, http.MethodGet, "/results?pageSize=1&page=2&poorThreshold=35", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page leads.ResultPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	require.Equal(t, "acme.com", page.Items[0].Domain)
	require.Equal(t, leads.QualityPoor, page.Items[0].Quality)

	rec = env.do(t, http.MethodGet, "/results?page=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid page")

	rec = env.do(t, http.MethodGet, "/results?city=izmir", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"total":0,"page":1,"pageSize":50,"items":[]}`, rec.Body.String())
}

func TestServer_Summary(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.seed(t, "Acme", "acme.com", 10)
	env.seed(t, "Beta", "beta.com", 40)
	env.seed(t, "Gamma", "gamma.com")

	rec := env.do(t, http.MethodGet, "/results/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t,
		`{"totalWebsites":3,"withScore":2,"ok":1,"poor":1,"unknown":1,"poorThreshold":20}`,
		rec.Body.String())

	rec = env.do(t, http.MethodGet, "/results/summary?poorThreshold=50", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"poor":2`)
}

func TestServer_ResultsStoreFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(_ *config.Config, d *Deps) {
		d.Results = &failingResults{err: errors.New("db down")}
	})
	require.Equal(t, http.StatusInternalServerError, env.do(t, http.MethodGet, "/results", "").Code)
	require.Equal(t, http.StatusInternalServerError, env.do(t, http.MethodGet, "/results/summary", "").Code)
	require.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestServer_CleanupContacts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	w := env.seed(t, "Acme", "acme.com")
	w.EmailsCSV = "info@acme.com,logo@x.png"
	require.NoError(t, env.store.UpdateWebsite(context.Background(), w))

	rec := env.do(t, http.MethodPost, "/cleanup/invalid-contacts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res cleanup.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 1, res.TotalWebsites)
	require.Equal(t, 1, res.CleanedWebsites)
}

func TestServer_Audit(t *testing.T) {
	t.Parallel()

	auditor := &fakeAuditor{result: leads.SiteAuditResult{InputURL: "acme.com", Host: "acme.com", Score: 35}}
	env := newTestEnv(t, func(_ *config.Config, d *Deps) { d.Auditor = auditor })

	rec := env.do(t, http.MethodPost, "/audit", `{"url":"acme.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"score":35`)

	auditor.err = leads.ErrInvalidInput
	rec = env.do(t, http.MethodPost, "/audit", `{"url":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Discover(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscoverer{candidates: []leads.DiscoveryCandidate{{Name: "Acme", Domain: "acme.com"}}}
	env := newTestEnv(t, func(_ *config.Config, d *Deps) { d.Discoverer = disc })

	rec := env.do(t, http.MethodGet, "/discover?city=Ankara&keyword=parke", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body discoverResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	require.Equal(t, "acme.com", body.Candidates[0].Domain)

	rec = env.do(t, http.MethodGet, "/discover?city=Ankara", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_HealthAndReady(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/readyz", "").Code)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_APIKeyMiddleware(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(c *config.Config, _ *Deps) {
		c.Auth = config.AuthConfig{Enabled: true, APIKey: "secret"}
	})

	require.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/results", "").Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/results?api_key=secret", "").Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/results/summary", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, "req-1", rec.Header().Get(requestIDHeader))

	const incoming = "0192d4a8-6f3c-7b2e-9a1d-3c4b5a6d7e8f"
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, incoming)
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, incoming, rec.Header().Get(requestIDHeader))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(_ *config.Config, d *Deps) { d.Auditor = panickingAuditor{} })
	rec := env.do(t, http.MethodPost, "/audit", `{"url":"acme.com"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	code, _ := statusFor(leads.ErrNotFound)
	require.Equal(t, http.StatusNotFound, code)
	code, _ = statusFor(context.DeadlineExceeded)
	require.Equal(t, http.StatusGatewayTimeout, code)
	code, msg := statusFor(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "internal error", msg)
}

// --- fakes ---

type fakeIDGen struct {
	ids []string
	idx int
}

func (f *fakeIDGen) NewID() (string, error) {
	if f.idx >= len(f.ids) {
		return "", errors.New("no ids left")
	}
	id := f.ids[f.idx]
	f.idx++
	return id, nil
}

type fakeAuditor struct {
	result leads.SiteAuditResult
	err    error
}

func (a *fakeAuditor) Audit(context.Context, string) (leads.SiteAuditResult, error) {
	return a.result, a.err
}

type panickingAuditor struct{}

func (panickingAuditor) Audit(context.Context, string) (leads.SiteAuditResult, error) {
	panic("audit exploded")
}

type fakeDiscoverer struct {
	candidates []leads.DiscoveryCandidate
}

func (d *fakeDiscoverer) Discover(context.Context, string, string) ([]leads.DiscoveryCandidate, error) {
	return d.candidates, nil
}

type failingResults struct {
	err error
}

func (f *failingResults) ListResults(context.Context, leads.ResultQuery) (leads.ResultPage, error) {
	return leads.ResultPage{}, f.err
}

func (f *failingResults) Summarize(context.Context, int) (leads.Summary, error) {
	return leads.Summary{}, f.err
}

func (f *failingResults) ListWebsites(context.Context) ([]leads.Website, error) {
	return nil, f.err
}

func (f *failingResults) UpdateWebsite(context.Context, leads.Website) error {
	return f.err
}

func (f *failingResults) Ping(context.Context) error {
	return f.err
}
