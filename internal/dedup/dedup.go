// Package dedup removes duplicate event records: an exact composite-key pass,
// a model-assisted semantic merge, and a final collapse per source URL.
package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/internal/logging"
	"github.com/mohammad-safakhou/pathfinder/internal/telemetry"
	"github.com/mohammad-safakhou/pathfinder/models"
	"github.com/mohammad-safakhou/pathfinder/provider"
)

// Policy controls what the semantic pass may merge.
type Policy string

const (
	PolicyOff          Policy = "off"
	PolicyConservative Policy = "conservative"
	PolicyAggressive   Policy = "aggressive"
)

const stage = "dedup"

var ErrInvalidMerge = errors.New("semantic merge output rejected")

// Key is the exact-pass composite key.
func Key(r models.EventRecord) string {
	return strings.Join([]string{
		strings.ToLower(r.Title),
		r.Date.Start,
		strings.ToLower(r.Organizer),
		strings.ToLower(string(r.EventType)),
	}, "|")
}

// ExactKey keeps the first record for each Key, in input order.
func ExactKey(records []models.EventRecord) []models.EventRecord {
	out := make([]models.EventRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		k := Key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// MergeBySource collapses records that share a source URL into the first one
// seen, filling its unknown fields from the others. Records without a source
// URL are kept as they are.
func MergeBySource(records []models.EventRecord) []models.EventRecord {
	out := make([]models.EventRecord, 0, len(records))
	pos := make(map[string]int, len(records))
	for _, r := range records {
		if r.SourceURL == "" {
			out = append(out, r)
			continue
		}
		if i, ok := pos[r.SourceURL]; ok {
			out[i] = out[i].Merge(r)
			continue
		}
		pos[r.SourceURL] = len(out)
		out = append(out, r)
	}
	return out
}

// Deduplicator runs the three passes.
type Deduplicator struct {
	llm     provider.Provider
	policy  Policy
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

type Option func(*Deduplicator)

func WithLogger(l *zap.Logger) Option {
	return func(d *Deduplicator) { d.logger = logging.OrNop(l).Named(stage) }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *Deduplicator) { d.metrics = m }
}

func New(llm provider.Provider, policy Policy, opts ...Option) *Deduplicator {
	if policy == "" {
		policy = PolicyConservative
	}
	d := &Deduplicator{llm: llm, policy: policy, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run is ExactKey, then Semantic, then MergeBySource.
func (d *Deduplicator) Run(ctx context.Context, records []models.EventRecord) []models.EventRecord {
	exact := ExactKey(records)
	d.metrics.Records("exact_unique", len(exact))
	merged := d.Semantic(ctx, exact)
	out := MergeBySource(merged)
	d.metrics.Records("unique", len(out))
	return out
}

// Semantic asks the model to merge near-duplicates. Whenever the call fails
// or its output does not validate, records is returned unchanged.
func (d *Deduplicator) Semantic(ctx context.Context, records []models.EventRecord) []models.EventRecord {
	if d.policy == PolicyOff || d.llm == nil || len(records) < 2 {
		return records
	}
	payload, err := json.Marshal(records)
	if err != nil {
		d.logger.Warn("encode records", zap.Error(err))
		return records
	}

	start := time.Now()
	raw, err := d.llm.Complete(ctx, systemPrompt, prompt(d.policy)+string(payload))
	if err != nil {
		d.metrics.LLMCall(stage, "error", time.Since(start))
		d.logger.Warn("semantic merge call failed, keeping exact-key set", zap.Error(err))
		return records
	}
	merged, err := validate(raw, records)
	if err != nil {
		d.metrics.LLMCall(stage, "parse_error", time.Since(start))
		d.logger.Warn("semantic merge output rejected, keeping exact-key set", zap.Error(err))
		return records
	}
	d.metrics.LLMCall(stage, "ok", time.Since(start))

	if d.policy == PolicyConservative {
		merged = restoreUnjustified(merged, records)
	}
	d.logger.Info("semantic merge", zap.Int("in", len(records)), zap.Int("out", len(merged)))
	return merged
}

// validate parses the model output and checks it is non-empty, no larger
// than the input and only names known source URLs. Each surviving record is
// completed from the input record with the same source URL.
func validate(raw string, input []models.EventRecord) ([]models.EventRecord, error) {
	out, err := parseRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMerge, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty result", ErrInvalidMerge)
	}
	if len(out) > len(input) {
		return nil, fmt.Errorf("%w: %d records from %d", ErrInvalidMerge, len(out), len(input))
	}
	bySource := make(map[string]models.EventRecord, len(input))
	for _, r := range input {
		if _, ok := bySource[r.SourceURL]; !ok {
			bySource[r.SourceURL] = r
		}
	}
	for i, r := range out {
		orig, ok := bySource[strings.TrimSpace(r.SourceURL)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown source_url %q", ErrInvalidMerge, r.SourceURL)
		}
		out[i] = r.Normalize().Merge(orig)
	}
	return out, nil
}

// restoreUnjustified puts back every input record whose source URL vanished
// from merged without agreeing on title, start date and organizer with a
// surviving record.
func restoreUnjustified(merged, input []models.EventRecord) []models.EventRecord {
	present := make(map[string]struct{}, len(merged))
	for _, r := range merged {
		present[r.SourceURL] = struct{}{}
	}
	for _, r := range input {
		if _, ok := present[r.SourceURL]; ok {
			continue
		}
		justified := false
		for _, m := range merged {
			if sameEvent(r, m) {
				justified = true
				break
			}
		}
		if !justified {
			merged = append(merged, r)
			present[r.SourceURL] = struct{}{}
		}
	}
	return merged
}

func sameEvent(a, b models.EventRecord) bool {
	if a.Title == models.Unknown || a.Date.Start == models.Unknown || a.Organizer == models.Unknown {
		return false
	}
	return strings.EqualFold(a.Title, b.Title) &&
		a.Date.Start == b.Date.Start &&
		strings.EqualFold(a.Organizer, b.Organizer)
}
