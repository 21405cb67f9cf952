// Package extraction turns the relevant chunks of one page into structured
// event records.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
	"github.com/mohammad-safakhou/pathfinder/internal/logging"
	"github.com/mohammad-safakhou/pathfinder/internal/telemetry"
	"github.com/mohammad-safakhou/pathfinder/models"
	"github.com/mohammad-safakhou/pathfinder/provider"
	"github.com/mohammad-safakhou/pathfinder/tools/web_ingest"
)

// ChunkSeparator joins the chunks of one document in the prompt.
const ChunkSeparator = "\n\n---\n\n"

const stage = "extract"

var (
	ErrNoChunks  = errors.New("no chunks to extract from")
	ErrNoRecords = errors.New("response holds no event records")
)

const systemPrompt = `You are an expert at extracting tech event information from web pages. Return only valid JSON.`

const userPrompt = `Extract every hackathon or tech event described in the content below.

Return ONLY a JSON array. Each element must have exactly these fields (use "unknown" when the content does not say):
[{
  "title": "",
  "description": "",
  "date": {"start": "", "end": ""},
  "registration": {"status": "", "url": ""},
  "prizes": {"total_pool": "", "details": ""},
  "event_type": "hackathon | conference | meetup | expo | workshop | unknown",
  "mode": "online | offline | hybrid | unknown",
  "tech_stack": [],
  "eligibility": "",
  "organizer": ""
}]
Return [] when there is no event. Do not include any other text.

Content:
`

// Engine runs one extraction call per document.
type Engine struct {
	llm     provider.Provider
	now     func() time.Time
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l).Named(stage) }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(llm provider.Provider, opts ...Option) *Engine {
	e := &Engine{llm: llm, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract sends the joined chunks of sourceURL to the model and returns the
// normalized, sanitized records stamped with sourceURL and the processing
// time. On any failure it returns no records and the reason; the caller
// counts the document as failed and carries on.
func (e *Engine) Extract(ctx context.Context, chunks []models.ContentChunk, sourceURL string) ([]models.EventRecord, error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	start := time.Now()
	raw, err := e.llm.Complete(ctx, systemPrompt, userPrompt+strings.Join(web_ingest.Texts(chunks), ChunkSeparator))
	if err != nil {
		e.metrics.LLMCall(stage, "error", time.Since(start))
		return nil, fmt.Errorf("extraction call for %s: %w", sourceURL, err)
	}
	records, err := Parse(raw)
	if err != nil {
		e.metrics.LLMCall(stage, "parse_error", time.Since(start))
		e.logger.Warn("extraction response unparseable", zap.String("url", sourceURL), zap.Error(err))
		return nil, fmt.Errorf("extraction response for %s: %w", sourceURL, err)
	}
	e.metrics.LLMCall(stage, "ok", time.Since(start))

	now := e.now().UTC()
	out := make([]models.EventRecord, 0, len(records))
	for _, r := range records {
		r = Sanitize(r)
		r.SourceURL = sourceURL
		r.ProcessedAt = now
		r = r.Normalize()
		if r.Known() == 0 {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Parse decodes the first JSON array of records in raw, or a single record
// object when that comes first. An object wrapping an "events" array is
// unwrapped. Candidates that are not records are skipped.
func Parse(raw string) ([]models.EventRecord, error) {
	for _, cand := range helpers.JSONCandidates(raw) {
		if cand[0] == '[' {
			var recs []models.EventRecord
			if err := json.Unmarshal([]byte(cand), &recs); err == nil {
				return recs, nil
			}
			continue
		}
		var wrapper struct {
			Events []models.EventRecord `json:"events"`
		}
		if err := json.Unmarshal([]byte(cand), &wrapper); err == nil && len(wrapper.Events) > 0 {
			return wrapper.Events, nil
		}
		var rec models.EventRecord
		if err := json.Unmarshal([]byte(cand), &rec); err == nil {
			return []models.EventRecord{rec}, nil
		}
	}
	return nil, ErrNoRecords
}

// Sanitize strips markup from every free-text field.
func Sanitize(r models.EventRecord) models.EventRecord {
	s := helpers.SanitizeHTMLStrict
	r.Title = s(r.Title)
	r.Description = s(r.Description)
	r.Date.Start = s(r.Date.Start)
	r.Date.End = s(r.Date.End)
	r.Registration.Status = s(r.Registration.Status)
	r.Registration.URL = s(r.Registration.URL)
	r.Prizes.TotalPool = s(r.Prizes.TotalPool)
	r.Prizes.Details = s(r.Prizes.Details)
	r.Eligibility = s(r.Eligibility)
	r.Organizer = s(r.Organizer)
	for i := range r.TechStack {
		r.TechStack[i] = s(r.TechStack[i])
	}
	return r
}
