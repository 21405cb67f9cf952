package web_search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/config"
	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
	"github.com/mohammad-safakhou/pathfinder/internal/logging"
	"github.com/mohammad-safakhou/pathfinder/internal/telemetry"
	"github.com/mohammad-safakhou/pathfinder/models"
)

const DefaultLimit = 8

// Discovery turns planned queries into candidate URLs.
type Discovery struct {
	searcher      Searcher
	limit         int
	negativeTerms []string
	denyTerms     []string
	logger        *zap.Logger
	metrics       *telemetry.Metrics
}

type DiscoveryOption func(*Discovery)

func WithLogger(l *zap.Logger) DiscoveryOption {
	return func(d *Discovery) { d.logger = logging.OrNop(l).Named("discovery") }
}

func WithMetrics(m *telemetry.Metrics) DiscoveryOption {
	return func(d *Discovery) { d.metrics = m }
}

func NewDiscovery(s Searcher, policy config.CrawlPolicyConfig, limit int, opts ...DiscoveryOption) *Discovery {
	if limit <= 0 {
		limit = DefaultLimit
	}
	policy = policy.Normalize()
	d := &Discovery{
		searcher:      s,
		limit:         limit,
		negativeTerms: policy.NegativeTerms,
		denyTerms:     policy.DenyURLTerms,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover runs one query. A failing search is logged and yields no
// candidates; it never aborts the run.
func (d *Discovery) Discover(ctx context.Context, q models.SearchQuery) []models.CandidateURL {
	text := q.Text
	if len(d.negativeTerms) > 0 {
		text += " " + strings.Join(d.negativeTerms, " ")
	}
	urls, err := d.searcher.Search(ctx, text, d.limit)
	if err != nil {
		d.metrics.SearchCall("error")
		d.logger.Warn("search failed", zap.String("context", q.Context), zap.Error(err))
		return nil
	}
	d.metrics.SearchCall("ok")

	out := make([]models.CandidateURL, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || d.denied(u) {
			continue
		}
		if _, err := helpers.CanonicalURL(u); err != nil {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, models.CandidateURL{URL: u, Context: q.Context})
	}
	d.logger.Debug("discovered candidates",
		zap.String("context", q.Context), zap.Int("returned", len(urls)), zap.Int("kept", len(out)))
	return out
}

func (d *Discovery) denied(u string) bool {
	lower := strings.ToLower(u)
	for _, term := range d.denyTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
