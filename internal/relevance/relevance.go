// Package relevance scores content chunks with a cheap language model call
// before the expensive extraction step.
package relevance

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
	"github.com/mohammad-safakhou/pathfinder/internal/logging"
	"github.com/mohammad-safakhou/pathfinder/internal/telemetry"
	"github.com/mohammad-safakhou/pathfinder/models"
	"github.com/mohammad-safakhou/pathfinder/provider"
)

const (
	DefaultThreshold = 5.0
	stage            = "relevance"
)

const systemPrompt = `You classify web page excerpts for a tech event catalog. Return only valid JSON.`

const userPrompt = `Does the following text describe a specific tech event (hackathon, conference, meetup, expo or workshop) that someone could attend or register for?

Return ONLY a JSON object of this shape, with no other text:
{"has_event": true, "event_type": "hackathon", "relevance_score": 0, "key_points": []}

relevance_score is 0 to 10, where 10 means the text clearly announces an upcoming event with dates or registration details.

Text:
`

// Filter runs the per-chunk relevance call.
type Filter struct {
	llm       provider.Provider
	threshold float64
	logger    *zap.Logger
	metrics   *telemetry.Metrics
}

type Option func(*Filter)

func WithLogger(l *zap.Logger) Option {
	return func(f *Filter) { f.logger = logging.OrNop(l).Named(stage) }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(f *Filter) { f.metrics = m }
}

func New(llm provider.Provider, threshold float64, opts ...Option) *Filter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	f := &Filter{llm: llm, threshold: threshold, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Score asks the model about one chunk. Any call or parse failure yields the
// zero verdict (no event, score 0).
func (f *Filter) Score(ctx context.Context, chunk models.ContentChunk) models.Relevance {
	start := time.Now()
	raw, err := f.llm.Complete(ctx, systemPrompt, userPrompt+chunk.Text)
	if err != nil {
		f.metrics.LLMCall(stage, "error", time.Since(start))
		f.logger.Warn("relevance call failed", zap.String("url", chunk.SourceURL), zap.Int("chunk", chunk.Index), zap.Error(err))
		return models.Relevance{}
	}
	rel, err := Parse(raw)
	if err != nil {
		f.metrics.LLMCall(stage, "parse_error", time.Since(start))
		f.logger.Warn("relevance response unparseable", zap.String("url", chunk.SourceURL), zap.Int("chunk", chunk.Index), zap.Error(err))
		return models.Relevance{}
	}
	f.metrics.LLMCall(stage, "ok", time.Since(start))
	return rel
}

// Relevant keeps, in order, the chunks whose verdict has an event and a score
// above the threshold.
func (f *Filter) Relevant(ctx context.Context, chunks []models.ContentChunk) []models.ContentChunk {
	var out []models.ContentChunk
	for _, c := range chunks {
		if ctx.Err() != nil {
			break
		}
		rel := f.Score(ctx, c)
		if rel.HasEvent && rel.RelevanceScore > f.threshold {
			out = append(out, c)
		}
	}
	return out
}

// Parse recovers the first balanced JSON object from a model reply. Scores
// are clamped to 0..10.
func Parse(raw string) (models.Relevance, error) {
	obj, err := helpers.ExtractBalanced(raw, '{')
	if err != nil {
		return models.Relevance{}, err
	}
	var aux struct {
		HasEvent       bool            `json:"has_event"`
		EventType      string          `json:"event_type"`
		RelevanceScore json.Number     `json:"relevance_score"`
		KeyPoints      json.RawMessage `json:"key_points"`
	}
	if err := json.Unmarshal([]byte(obj), &aux); err != nil {
		return models.Relevance{}, err
	}
	score, _ := aux.RelevanceScore.Float64()
	if score < 0 {
		score = 0
	} else if score > 10 {
		score = 10
	}
	var points []string
	_ = json.Unmarshal(aux.KeyPoints, &points)
	return models.Relevance{
		HasEvent:       aux.HasEvent,
		EventTypeGuess: aux.EventType,
		RelevanceScore: score,
		KeyPoints:      points,
	}, nil
}
