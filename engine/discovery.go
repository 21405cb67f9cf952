package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
	"github.com/mohammad-safakhou/pathfinder/internal/planner"
	"github.com/mohammad-safakhou/pathfinder/models"
	"github.com/mohammad-safakhou/pathfinder/tools/web_fetch"
)

// ManualContext labels pages crawled from caller-supplied URLs.
const ManualContext = "manual"

// DiscoverySummary reports one discovery run. Per-page failures are counted,
// never returned as errors.
type DiscoverySummary struct {
	RunID        string                   `json:"run_id"`
	Status       string                   `json:"status"`
	Error        string                   `json:"error,omitempty"`
	Queries      int                      `json:"queries"`
	Candidates   int                      `json:"candidates"`
	PagesCrawled int                      `json:"pages_crawled"`
	Gated        int                      `json:"gated"`
	Failed       int                      `json:"failed"`
	SkippedSeen  int                      `json:"skipped_seen"`
	Contexts     map[string]int           `json:"contexts"`
	Documents    []models.FetchedDocument `json:"documents,omitempty"`
}

type fetchResult struct {
	doc *models.FetchedDocument
	err error
}

// RunDiscovery plans the queries for today, searches each one and fetches the
// candidates of a query concurrently, pausing between query batches.
func (e *Engine) RunDiscovery(ctx context.Context) DiscoverySummary {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	start := time.Now()
	sum := newDiscoverySummary()
	log := e.logger.With(zap.String("run_id", sum.RunID), zap.String("operation", "discover"))

	queries := planner.Queries(e.now())
	sum.Queries = len(queries)
	log.Info("discovery started", zap.Int("queries", len(queries)))

	visited := make(map[string]struct{})
	for i, q := range queries {
		if i > 0 {
			if err := sleep(ctx, e.cfg.Fetch.InterQueryDelay); err != nil {
				sum.fail(err)
				break
			}
		}
		candidates := e.discovery.Discover(ctx, q)
		batch := e.unvisited(ctx, candidates, visited, &sum)
		sum.Candidates += len(batch)
		e.fetchBatch(ctx, batch, &sum)
		log.Debug("query done", zap.String("context", q.Context), zap.Int("candidates", len(batch)))
	}
	if sum.Status == models.StatusSuccess {
		if err := ctx.Err(); err != nil {
			sum.fail(err)
		}
	}

	e.metrics.Run("discover", sum.Status, time.Since(start))
	log.Info("discovery finished", zap.String("status", sum.Status), zap.Int("candidates", sum.Candidates),
		zap.Int("pages", sum.PagesCrawled), zap.Int("gated", sum.Gated), zap.Int("failed", sum.Failed))
	return sum
}

// CrawlURLs fetches caller-supplied URLs without searching. Invalid URLs are
// counted as failed.
func (e *Engine) CrawlURLs(ctx context.Context, urls []string) DiscoverySummary {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	start := time.Now()
	sum := newDiscoverySummary()
	log := e.logger.With(zap.String("run_id", sum.RunID), zap.String("operation", "crawl"))

	var candidates []models.CandidateURL
	for _, u := range urls {
		if _, err := helpers.CanonicalURL(u); err != nil {
			log.Warn("invalid url", zap.String("url", u), zap.Error(err))
			sum.Failed++
			continue
		}
		candidates = append(candidates, models.CandidateURL{URL: u, Context: ManualContext})
	}
	batch := e.unvisited(ctx, candidates, map[string]struct{}{}, &sum)
	sum.Candidates = len(batch)
	e.fetchBatch(ctx, batch, &sum)
	if err := ctx.Err(); err != nil {
		sum.fail(err)
	}

	e.metrics.Run("crawl", sum.Status, time.Since(start))
	log.Info("crawl finished", zap.String("status", sum.Status), zap.Int("pages", sum.PagesCrawled))
	return sum
}

func newDiscoverySummary() DiscoverySummary {
	return DiscoverySummary{
		RunID:    uuid.NewString(),
		Status:   models.StatusSuccess,
		Contexts: map[string]int{},
	}
}

func (s *DiscoverySummary) fail(err error) {
	s.Status = models.StatusError
	s.Error = err.Error()
}

// unvisited drops candidates already handled in this run and, when a seen
// store is configured, those fetched within its TTL.
func (e *Engine) unvisited(ctx context.Context, in []models.CandidateURL, visited map[string]struct{}, sum *DiscoverySummary) []models.CandidateURL {
	out := make([]models.CandidateURL, 0, len(in))
	for _, c := range in {
		if _, ok := visited[c.URL]; ok {
			continue
		}
		visited[c.URL] = struct{}{}
		if e.seen != nil {
			seen, err := e.seen.Seen(ctx, c.URL)
			if err != nil {
				e.logger.Warn("seen lookup failed", zap.String("url", c.URL), zap.Error(err))
			} else if seen {
				sum.SkippedSeen++
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// fetchBatch fetches batch with at most fetch.max_concurrency pages in flight.
func (e *Engine) fetchBatch(ctx context.Context, batch []models.CandidateURL, sum *DiscoverySummary) {
	if len(batch) == 0 {
		return
	}
	results := make([]fetchResult, len(batch))
	var g errgroup.Group
	g.SetLimit(e.concurrency())
	for i, c := range batch {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, e.fetchTimeout())
			defer cancel()
			doc, err := e.dispatcher.Fetch(fctx, c.URL, c.Context)
			results[i] = fetchResult{doc: doc, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range results {
		c := batch[i]
		switch {
		case r.doc != nil:
			sum.PagesCrawled++
			sum.Contexts[c.Context]++
			sum.Documents = append(sum.Documents, *r.doc)
			e.markSeen(ctx, c.URL)
		case errors.Is(r.err, web_fetch.ErrNoDocument):
			sum.Gated++
			e.markSeen(ctx, c.URL)
			e.logger.Debug("no document", zap.String("url", c.URL), zap.Error(r.err))
		default:
			sum.Failed++
			e.logger.Warn("fetch failed", zap.String("url", c.URL), zap.Error(r.err))
		}
	}
}

func (e *Engine) markSeen(ctx context.Context, url string) {
	if e.seen == nil {
		return
	}
	if err := e.seen.Mark(ctx, url, e.cfg.Storage.SeenTTL); err != nil {
		e.logger.Warn("seen mark failed", zap.String("url", url), zap.Error(err))
	}
}

func (e *Engine) concurrency() int {
	if n := e.cfg.Fetch.MaxConcurrency; n > 0 {
		return n
	}
	return 8
}

func (e *Engine) fetchTimeout() time.Duration {
	if d := e.cfg.Fetch.Timeout; d > 0 {
		return d
	}
	return 30 * time.Second
}
