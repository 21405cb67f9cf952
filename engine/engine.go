// Package engine composes the pipeline stages into the two externally
// triggered operations: discovery (search, fetch, store pages) and extraction
// (stored pages to catalog records).
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/config"
	"github.com/mohammad-safakhou/pathfinder/internal/catalog"
	"github.com/mohammad-safakhou/pathfinder/internal/contentstore"
	"github.com/mohammad-safakhou/pathfinder/internal/dedup"
	"github.com/mohammad-safakhou/pathfinder/internal/extraction"
	"github.com/mohammad-safakhou/pathfinder/internal/logging"
	"github.com/mohammad-safakhou/pathfinder/internal/relevance"
	"github.com/mohammad-safakhou/pathfinder/internal/telemetry"
	"github.com/mohammad-safakhou/pathfinder/provider"
	"github.com/mohammad-safakhou/pathfinder/repository"
	"github.com/mohammad-safakhou/pathfinder/tools/web_fetch"
	"github.com/mohammad-safakhou/pathfinder/tools/web_search"
)

// Engine owns the pipeline components for one configuration. Runs are
// serialized so the content store and catalog see a single writer.
type Engine struct {
	cfg *config.Config

	discovery  *web_search.Discovery
	dispatcher *web_fetch.Dispatcher
	pages      *contentstore.Store
	relevance  *relevance.Filter
	extractor  *extraction.Engine
	dedup      *dedup.Deduplicator
	catalog    catalog.Store
	seen       repository.SeenStore

	logger  *zap.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
	closers []func() error
	runMu   sync.Mutex
}

type options struct {
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	searcher web_search.Searcher
	llm      provider.Provider
	static   web_fetch.PageFetcher
	rendered web_fetch.PageFetcher
	catalog  catalog.Store
	seen     repository.SeenStore
	now      func() time.Time
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

func WithMetrics(m *telemetry.Metrics) Option { return func(o *options) { o.metrics = m } }

// WithSearcher replaces the configured search backend.
func WithSearcher(s web_search.Searcher) Option { return func(o *options) { o.searcher = s } }

// WithProvider replaces the configured language model backend.
func WithProvider(p provider.Provider) Option { return func(o *options) { o.llm = p } }

// WithFetchers replaces the static and rendered page fetchers.
func WithFetchers(static, rendered web_fetch.PageFetcher) Option {
	return func(o *options) { o.static, o.rendered = static, rendered }
}

func WithCatalog(s catalog.Store) Option { return func(o *options) { o.catalog = s } }

func WithSeenStore(s repository.SeenStore) Option { return func(o *options) { o.seen = s } }

func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// New validates cfg and builds every component. Missing credentials and
// unusable storage are reported here, before any stage runs.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrNop(o.logger)

	if err := validate(cfg, o); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Engine{cfg: cfg, logger: logger.Named("engine"), metrics: o.metrics, now: o.now, seen: o.seen}

	searcher := o.searcher
	if searcher == nil {
		s, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search.APIKey(), cfg.Search.Timeout)
		if err != nil {
			return nil, fmt.Errorf("search backend: %w", err)
		}
		searcher = s
	}
	llm := o.llm
	if llm == nil {
		p, err := provider.NewProvider(provider.OpenAI, cfg.LLM, logger)
		if err != nil {
			return nil, fmt.Errorf("llm backend: %w", err)
		}
		llm = p
	}

	pages, err := contentstore.New(cfg.Storage.HTMLDir, contentstore.WithLogger(logger), contentstore.WithClock(o.now))
	if err != nil {
		return nil, err
	}
	e.pages = pages

	e.catalog = o.catalog
	if e.catalog == nil {
		store, err := openCatalog(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		e.catalog = store
		e.closers = append(e.closers, store.Close)
	}

	if e.seen == nil {
		seen, closeSeen, err := repository.NewSeenStore(ctx, cfg.Storage, logger)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("seen store: %w", err)
		}
		e.seen = seen
		e.closers = append(e.closers, closeSeen)
	}

	e.discovery = web_search.NewDiscovery(searcher, cfg.CrawlPolicy, cfg.Search.MaxResults,
		web_search.WithLogger(logger), web_search.WithMetrics(o.metrics))

	fetchOpts := []web_fetch.Option{web_fetch.WithLogger(logger), web_fetch.WithMetrics(o.metrics), web_fetch.WithClock(o.now)}
	if o.static != nil || o.rendered != nil {
		e.dispatcher = web_fetch.NewDispatcher(o.static, o.rendered, cfg.CrawlPolicy, pages, fetchOpts...)
	} else {
		e.dispatcher = web_fetch.NewDefaultDispatcher(cfg.Fetch, cfg.CrawlPolicy, pages, fetchOpts...)
	}

	e.relevance = relevance.New(llm, cfg.Pipeline.RelevanceThreshold,
		relevance.WithLogger(logger), relevance.WithMetrics(o.metrics))
	e.extractor = extraction.New(llm,
		extraction.WithLogger(logger), extraction.WithMetrics(o.metrics), extraction.WithClock(o.now))
	e.dedup = dedup.New(llm, dedup.Policy(cfg.Dedup.MergePolicy),
		dedup.WithLogger(logger), dedup.WithMetrics(o.metrics))
	return e, nil
}

// Close releases the catalog and seen-store connections the engine opened.
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Catalog exposes the catalog backend for read-side callers.
func (e *Engine) Catalog() catalog.Store { return e.catalog }

func validate(cfg *config.Config, o options) error {
	if o.llm == nil {
		if err := cfg.LLM.Validate(); err != nil {
			return err
		}
	}
	if o.searcher == nil {
		if err := cfg.Search.Validate(); err != nil {
			return err
		}
	}
	if err := cfg.CrawlPolicy.Validate(); err != nil {
		return err
	}
	if err := cfg.Dedup.Validate(); err != nil {
		return err
	}
	if o.catalog != nil {
		return nil
	}
	return cfg.Storage.Validate()
}

func openCatalog(ctx context.Context, cfg config.StorageConfig) (catalog.Store, error) {
	switch cfg.CatalogBackend {
	case "postgres":
		s, err := catalog.NewPostgresStore(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("postgres catalog: %w", err)
		}
		return s, nil
	default:
		return catalog.NewFileStore(cfg.CatalogFile)
	}
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
