package web_fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/config"
	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
	"github.com/mohammad-safakhou/pathfinder/internal/logging"
	"github.com/mohammad-safakhou/pathfinder/internal/telemetry"
	"github.com/mohammad-safakhou/pathfinder/models"
	"github.com/mohammad-safakhou/pathfinder/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/pathfinder/tools/web_fetch/static"
)

// PageFetcher retrieves the raw markup of one page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// DocumentSaver persists a gated document and returns it with FilePath set.
type DocumentSaver interface {
	Save(doc models.FetchedDocument) (models.FetchedDocument, error)
}

// Dispatcher picks a render mode per URL, applies the keyword gate and
// persists what passes.
type Dispatcher struct {
	static   PageFetcher
	rendered PageFetcher
	policy   config.CrawlPolicyConfig
	store    DocumentSaver
	now      func() time.Time
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

type Option func(*Dispatcher)

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = logging.OrNop(l).Named("fetch") }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(staticFetcher, renderedFetcher PageFetcher, policy config.CrawlPolicyConfig, store DocumentSaver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		static:   staticFetcher,
		rendered: renderedFetcher,
		policy:   policy.Normalize(),
		store:    store,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewDefaultDispatcher wires the net/http and chromedp fetchers from config.
func NewDefaultDispatcher(cfg config.FetchConfig, policy config.CrawlPolicyConfig, store DocumentSaver, opts ...Option) *Dispatcher {
	st := static.Fetch{UserAgent: cfg.UserAgent, Timeout: cfg.Timeout, MaxBytes: cfg.MaxBodyBytes}
	rd := chromedp.Fetch{Timeout: cfg.Timeout, SettleDelay: cfg.SettleDelay, UserAgent: cfg.UserAgent}
	return NewDispatcher(st, rd, policy, store, opts...)
}

// Mode reports the render mode the dispatcher would use for rawURL.
func (d *Dispatcher) Mode(rawURL string) models.RenderMode {
	if d.policy.RequiresRendering(helpers.HostOf(rawURL)) {
		return models.RenderScripted
	}
	return models.RenderStatic
}

// Fetch returns the gated document for rawURL. A nil document means the page
// yielded nothing; the error says why (errors.Is ErrNoDocument for the gate
// and missing content, transport or storage errors otherwise).
func (d *Dispatcher) Fetch(ctx context.Context, rawURL, queryContext string) (*models.FetchedDocument, error) {
	mode := d.Mode(rawURL)
	fetcher := d.static
	if mode == models.RenderScripted {
		fetcher = d.rendered
	}
	if fetcher == nil {
		d.metrics.Fetch(string(mode), "error")
		return nil, fmt.Errorf("no %s fetcher configured", mode)
	}

	raw, err := fetcher.Fetch(ctx, rawURL)
	if err != nil {
		d.metrics.Fetch(string(mode), "error")
		return nil, fmt.Errorf("%s fetch %s: %w", mode, rawURL, err)
	}

	pg, err := ParsePage(raw, rawURL, d.policy.Keywords)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrGated) {
			outcome = "gated"
		} else if errors.Is(err, ErrNoDocument) {
			outcome = "empty"
		}
		d.metrics.Fetch(string(mode), outcome)
		return nil, err
	}

	doc := models.FetchedDocument{
		URL:        rawURL,
		Context:    queryContext,
		Title:      pg.Title,
		HTML:       pg.MainHTML,
		DatesFound: pg.Dates,
		CrawledAt:  d.now(),
		RenderMode: mode,
	}
	if d.store != nil {
		saved, err := d.store.Save(doc)
		if err != nil {
			d.metrics.Fetch(string(mode), "error")
			return nil, fmt.Errorf("persist %s: %w", rawURL, err)
		}
		doc = saved
	}
	d.metrics.Fetch(string(mode), "ok")
	d.logger.Debug("fetched", zap.String("url", rawURL), zap.String("mode", string(mode)),
		zap.Int("dates", len(doc.DatesFound)))
	return &doc, nil
}
