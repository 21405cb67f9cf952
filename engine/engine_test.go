package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/pathfinder/config"
	"github.com/mohammad-safakhou/pathfinder/internal/catalog"
	"github.com/mohammad-safakhou/pathfinder/models"
	"github.com/mohammad-safakhou/pathfinder/repository/inmemory_repository"
)

type fakeSearcher struct {
	urls  []string
	err   error
	mu    sync.Mutex
	calls int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.urls, f.err
}

type fakeFetcher struct {
	pages map[string]string
	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[url]++
	html, ok := f.pages[url]
	if !ok {
		return "", errors.New("status 503")
	}
	return html, nil
}

// fakeLLM answers by stage, recognized from the system prompt.
type fakeLLM struct {
	mu        sync.Mutex
	extracted []string
}

func (f *fakeLLM) Complete(_ context.Context, system, user string) (string, error) {
	switch {
	case strings.Contains(system, "classify"):
		if strings.Contains(user, "Lunch specials") {
			return `{"has_event": false, "relevance_score": 1}`, nil
		}
		return `Sure: {"has_event": true, "event_type": "hackathon", "relevance_score": 8, "key_points": []}`, nil
	case strings.Contains(system, "extracting"):
		f.mu.Lock()
		f.extracted = append(f.extracted, user)
		f.mu.Unlock()
		if strings.Contains(user, "AI Hack 2025") {
			return `Here you go: [{"title": "AI Hack 2025", "organizer": "Acme", "date": "2025-03-01", "event_type": "Hackathon", "mode": "online"}] Thanks!`, nil
		}
		return `I could not find any events on this page, sorry.`, nil
	default:
		return "", errors.New("dedup backend down")
	}
}

const (
	hackPage  = `<html><head><title>AI Hack</title></head><body><main><h1>AI Hack 2025</h1><p>Register your team by 2025-02-20. Prize pool $5,000.</p></main></body></html>`
	menuPage  = `<html><head><title>Trattoria</title></head><body><main><p>Soup of the day: minestrone</p></main></body></html>`
	prosePage = `<html><body><main><p>Team registration opens soon for something.</p></main></body></html>`
	lunchPage = `<html><body><main><p>Lunch specials for our team, register at the counter.</p></main></body></html>`
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		CrawlPolicy: config.DefaultCrawlPolicy(),
		Search:      config.SearchConfig{MaxResults: 8},
		Fetch:       config.FetchConfig{Timeout: 5 * time.Second, MaxConcurrency: 4},
		Pipeline:    config.PipelineConfig{ChunkThreshold: 4000, RelevanceThreshold: 5, SampleSize: 3},
		Dedup:       config.DedupConfig{MergePolicy: "conservative"},
		Storage:     config.StorageConfig{DataDir: t.TempDir(), SeenTTL: time.Hour},
	}
	cfg.Storage = cfg.Storage.Normalize()
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config, search *fakeSearcher, fetch *fakeFetcher, opts ...Option) *Engine {
	t.Helper()
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	all := append([]Option{
		WithSearcher(search),
		WithProvider(&fakeLLM{}),
		WithFetchers(fetch, fetch),
		WithClock(func() time.Time { return now }),
	}, opts...)
	e, err := New(context.Background(), cfg, all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNewRejectsMissingCredentials(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.api_key")

	_, err = New(context.Background(), cfg, WithProvider(&fakeLLM{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search")

	_, err = New(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewRejectsUnusableDataDir(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.Storage.HTMLDir = filepath.Join(blocker, "html")

	_, err := New(context.Background(), cfg, WithSearcher(&fakeSearcher{}), WithProvider(&fakeLLM{}))
	assert.Error(t, err)
}

func TestRunDiscoveryGatesAndCounts(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	search := &fakeSearcher{urls: []string{
		"https://hack.example.com/ai",
		"https://food.example.com/menu",
		"https://down.example.com/x",
		"https://github.com/acme/hack",
		"https://hack.example.com/ai",
	}}
	fetch := &fakeFetcher{pages: map[string]string{
		"https://hack.example.com/ai":   hackPage,
		"https://food.example.com/menu": menuPage,
	}}
	e := newTestEngine(t, cfg, search, fetch)

	sum := e.RunDiscovery(context.Background())
	assert.Equal(t, models.StatusSuccess, sum.Status)
	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 8, sum.Queries)
	assert.Equal(t, 8, search.calls)
	assert.Equal(t, 3, sum.Candidates)
	assert.Equal(t, 1, sum.PagesCrawled)
	assert.Equal(t, 1, sum.Gated)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, fetch.calls["https://hack.example.com/ai"])
	assert.Zero(t, fetch.calls["https://github.com/acme/hack"])

	require.Len(t, sum.Documents, 1)
	assert.Equal(t, "AI Hack", sum.Documents[0].Title)

	stored, err := e.pages.Documents()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "https://hack.example.com/ai", stored[0].URL)
	assert.NotContains(t, stored[0].HTML, "minestrone")
}

func TestRunDiscoverySkipsSeenURLs(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	search := &fakeSearcher{urls: []string{"https://hack.example.com/ai"}}
	fetch := &fakeFetcher{pages: map[string]string{"https://hack.example.com/ai": hackPage}}
	e := newTestEngine(t, cfg, search, fetch, WithSeenStore(inmemory_repository.NewSeenRepository()))

	first := e.RunDiscovery(context.Background())
	assert.Equal(t, 1, first.PagesCrawled)

	second := e.RunDiscovery(context.Background())
	assert.Equal(t, 0, second.PagesCrawled)
	assert.Equal(t, 1, second.SkippedSeen)
	assert.Equal(t, 1, fetch.calls["https://hack.example.com/ai"])
}

func TestRunDiscoveryCancelled(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Fetch.InterQueryDelay = time.Hour
	e := newTestEngine(t, cfg, &fakeSearcher{}, &fakeFetcher{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sum := e.RunDiscovery(ctx)
	assert.Equal(t, models.StatusError, sum.Status)
	assert.NotEmpty(t, sum.Error)
}

func TestCrawlURLs(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	fetch := &fakeFetcher{pages: map[string]string{"https://hack.example.com/ai": hackPage}}
	e := newTestEngine(t, cfg, &fakeSearcher{}, fetch)

	sum := e.CrawlURLs(context.Background(), []string{"https://hack.example.com/ai", " ", "https://hack.example.com/ai"})
	assert.Equal(t, models.StatusSuccess, sum.Status)
	assert.Equal(t, 1, sum.PagesCrawled)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Contexts[ManualContext])
}

func TestRunExtractionEndToEnd(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	fetch := &fakeFetcher{pages: map[string]string{
		"https://hack.example.com/ai":    hackPage,
		"https://mirror.example.com/ai":  hackPage,
		"https://prose.example.com/page": prosePage,
		"https://lunch.example.com/menu": lunchPage,
	}}
	llm := &fakeLLM{}
	e := newTestEngine(t, cfg, &fakeSearcher{}, fetch, WithProvider(llm))

	crawl := e.CrawlURLs(context.Background(), []string{
		"https://hack.example.com/ai",
		"https://mirror.example.com/ai",
		"https://prose.example.com/page",
		"https://lunch.example.com/menu",
	})
	require.Equal(t, 4, crawl.PagesCrawled)

	sum := e.RunExtraction(context.Background())
	assert.Equal(t, models.StatusSuccess, sum.Status)
	assert.Equal(t, 4, sum.Documents)
	assert.Equal(t, 3, sum.Processed)
	assert.Equal(t, 1, sum.Irrelevant)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.Extracted)
	assert.Equal(t, 1, sum.Unique)
	assert.Equal(t, 1, sum.Added)
	assert.Equal(t, 1, sum.Total)
	require.Len(t, sum.Samples, 1)
	assert.Equal(t, "AI Hack 2025", sum.Samples[0].Title)
	assert.Equal(t, models.EventHackathon, sum.Samples[0].EventType)
	assert.Len(t, llm.extracted, 3)

	loaded, err := e.Catalog().Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	// cataloged, irrelevant and merged-away pages are not sent to the model again
	again := e.RunExtraction(context.Background())
	assert.Equal(t, models.StatusSuccess, again.Status)
	assert.Equal(t, 3, again.Skipped)
	assert.Equal(t, 1, again.Failed)
	assert.Equal(t, 0, again.Processed)
	assert.Equal(t, 0, again.Extracted)
	assert.Equal(t, 0, again.Added)
	assert.Equal(t, 1, again.Total)
	assert.Len(t, llm.extracted, 4, "only the failed page is retried")

	index, err := e.pages.Index()
	require.NoError(t, err)
	stamped := map[string]bool{}
	for _, d := range index {
		stamped[d.URL] = d.ProcessedAt != nil
	}
	assert.Equal(t, map[string]bool{
		"https://hack.example.com/ai":    true,
		"https://mirror.example.com/ai":  true,
		"https://prose.example.com/page": false,
		"https://lunch.example.com/menu": true,
	}, stamped)

	// a recrawl clears the stamp; the mirror's event is already cataloged
	_, err = e.pages.Save(models.FetchedDocument{
		URL: "https://mirror.example.com/ai", HTML: hackPage,
		CrawledAt: time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	third := e.RunExtraction(context.Background())
	assert.Equal(t, models.StatusSuccess, third.Status)
	assert.Equal(t, 5, third.Documents)
	assert.Equal(t, 3, third.Skipped)
	assert.Equal(t, 1, third.Processed)
	assert.Equal(t, 1, third.Extracted)
	assert.Equal(t, 1, third.Duplicates)
	assert.Equal(t, 0, third.Added)
	assert.Equal(t, 1, third.Total)
}

type brokenCatalog struct{}

func (brokenCatalog) Load(context.Context) ([]models.EventRecord, error) { return nil, nil }
func (brokenCatalog) MergeAndPersist(context.Context, []models.EventRecord) (catalog.MergeStats, error) {
	return catalog.MergeStats{}, errors.New("disk full")
}
func (brokenCatalog) Close() error { return nil }

func TestRunExtractionPersistFailureIsReported(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	fetch := &fakeFetcher{pages: map[string]string{"https://hack.example.com/ai": hackPage}}
	e := newTestEngine(t, cfg, &fakeSearcher{}, fetch, WithCatalog(brokenCatalog{}))
	e.CrawlURLs(context.Background(), []string{"https://hack.example.com/ai"})

	sum := e.RunExtraction(context.Background())
	assert.Equal(t, models.StatusError, sum.Status)
	assert.Contains(t, sum.Error, "disk full")
}

func TestRunCombinesBothOperations(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	search := &fakeSearcher{urls: []string{"https://hack.example.com/ai"}}
	fetch := &fakeFetcher{pages: map[string]string{"https://hack.example.com/ai": hackPage}}
	e := newTestEngine(t, cfg, search, fetch)

	sum := e.Run(context.Background())
	assert.Equal(t, models.StatusSuccess, sum.Status)
	assert.Equal(t, 1, sum.Discovery.PagesCrawled)
	assert.Equal(t, 1, sum.Extraction.Added)
}
