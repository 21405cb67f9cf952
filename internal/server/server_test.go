package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/pathfinder/engine"
	"github.com/mohammad-safakhou/pathfinder/internal/catalog"
	"github.com/mohammad-safakhou/pathfinder/models"
)

type fakeRunner struct {
	mu        sync.Mutex
	crawled   []string
	discover  int
	extract   int
	runs      int
	extStatus string
}

func (f *fakeRunner) RunDiscovery(context.Context) engine.DiscoverySummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discover++
	return engine.DiscoverySummary{RunID: "d1", Status: models.StatusSuccess, Queries: 8}
}

func (f *fakeRunner) CrawlURLs(_ context.Context, urls []string) engine.DiscoverySummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crawled = append(f.crawled, urls...)
	return engine.DiscoverySummary{RunID: "c1", Status: models.StatusSuccess, PagesCrawled: len(urls)}
}

func (f *fakeRunner) RunExtraction(context.Context) engine.ExtractionSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extract++
	status := f.extStatus
	if status == "" {
		status = models.StatusSuccess
	}
	return engine.ExtractionSummary{RunID: "e1", Status: status}
}

func (f *fakeRunner) Run(context.Context) engine.RunSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return engine.RunSummary{Status: models.StatusSuccess}
}

type memCatalog struct{ records []models.EventRecord }

func (m *memCatalog) Load(context.Context) ([]models.EventRecord, error) {
	return append([]models.EventRecord(nil), m.records...), nil
}
func (m *memCatalog) MergeAndPersist(context.Context, []models.EventRecord) (catalog.MergeStats, error) {
	return catalog.MergeStats{}, nil
}
func (m *memCatalog) Close() error { return nil }

func sampleCatalog() *memCatalog {
	at := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
	return &memCatalog{records: []models.EventRecord{
		models.EventRecord{Title: "Old Hack", EventType: "hackathon", Mode: "online", SourceURL: "https://a.example", ProcessedAt: at(1)}.Normalize(),
		models.EventRecord{Title: "KubeConf", Description: "kubernetes talks", EventType: "conference", Mode: "offline", SourceURL: "https://b.example", ProcessedAt: at(3)}.Normalize(),
		models.EventRecord{Title: "New Hack", EventType: "hackathon", Mode: "online", SourceURL: "https://c.example", ProcessedAt: at(2)}.Normalize(),
	}}
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCrawlerRoutes(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	e := New(Options{Runner: runner, Catalog: sampleCatalog()})

	rec := do(t, e, http.MethodPost, "/api/crawler/discover", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum engine.DiscoverySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, "d1", sum.RunID)
	assert.Equal(t, 1, runner.discover)

	rec = do(t, e, http.MethodPost, "/api/crawler/discover", `{"urls":["https://x.example/hack"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"https://x.example/hack"}, runner.crawled)

	rec = do(t, e, http.MethodPost, "/api/crawler/discover", `{"urls":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/crawler/extract", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.extract)

	runner.extStatus = models.StatusError
	rec = do(t, e, http.MethodPost, "/api/crawler/extract", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestCrawlerRoutesRequireToken(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	e := New(Options{Runner: runner, Catalog: sampleCatalog(), JWTSecret: "s3cret"})

	rec := do(t, e, http.MethodPost, "/api/crawler/extract", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bad, err := SignJWT("ops", []byte("other"), time.Hour, ScopeCrawler)
	require.NoError(t, err)
	rec = do(t, e, http.MethodPost, "/api/crawler/extract", "", map[string]string{"Authorization": "Bearer " + bad})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	noScope, err := SignJWT("ops", []byte("s3cret"), time.Hour)
	require.NoError(t, err)
	rec = do(t, e, http.MethodPost, "/api/crawler/extract", "", map[string]string{"Authorization": "Bearer " + noScope})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	expired, err := SignJWT("ops", []byte("s3cret"), -time.Minute, ScopeCrawler)
	require.NoError(t, err)
	rec = do(t, e, http.MethodPost, "/api/crawler/extract", "", map[string]string{"Authorization": "Bearer " + expired})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	good, err := SignJWT("ops", []byte("s3cret"), time.Hour, ScopeCrawler)
	require.NoError(t, err)
	rec = do(t, e, http.MethodPost, "/api/crawler/extract", "", map[string]string{"Authorization": "Bearer " + good})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.extract)

	rec = do(t, e, http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignJWTRequiresSecret(t *testing.T) {
	t.Parallel()
	_, err := SignJWT("ops", nil, time.Hour)
	assert.Error(t, err)
}

func TestListEvents(t *testing.T) {
	t.Parallel()
	e := New(Options{Runner: &fakeRunner{}, Catalog: sampleCatalog()})

	rec := do(t, e, http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp EventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Events, 3)
	assert.Equal(t, "KubeConf", resp.Events[0].Title)
	assert.Equal(t, "New Hack", resp.Events[1].Title)

	rec = do(t, e, http.MethodGet, "/api/events?event_type=Hackathon&limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = EventsResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "New Hack", resp.Events[0].Title)

	rec = do(t, e, http.MethodGet, "/api/events?q=kubernetes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = EventsResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "https://b.example", resp.Events[0].SourceURL)

	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodGet, "/api/events?limit=0", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodGet, "/api/events?limit=101", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodGet, "/api/events?event_type=party", "", nil).Code)
}

func TestEventStats(t *testing.T) {
	t.Parallel()
	e := New(Options{Runner: &fakeRunner{}, Catalog: sampleCatalog()})

	rec := do(t, e, http.MethodGet, "/api/events/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalEvents)
	assert.Equal(t, 2, resp.ByType["hackathon"])
	assert.Equal(t, 1, resp.ByType["conference"])
	assert.Equal(t, 2, resp.ByMode["online"])
	require.NotNil(t, resp.LatestProcessedAt)
	assert.Equal(t, 3, resp.LatestProcessedAt.Day())
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "pathfinder_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	e := New(Options{Runner: &fakeRunner{}, Catalog: sampleCatalog(), Gatherer: reg})
	rec := do(t, e, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, e, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pathfinder_test_total 1")

	noMetrics := New(Options{Runner: &fakeRunner{}, Catalog: sampleCatalog()})
	assert.Equal(t, http.StatusNotFound, do(t, noMetrics, http.MethodGet, "/metrics", "", nil).Code)
}
