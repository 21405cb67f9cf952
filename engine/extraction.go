package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/internal/catalog"
	"github.com/mohammad-safakhou/pathfinder/internal/dedup"
	"github.com/mohammad-safakhou/pathfinder/models"
	"github.com/mohammad-safakhou/pathfinder/tools/web_ingest"
)

// ExtractionSummary reports one extraction run over the content store.
type ExtractionSummary struct {
	RunID      string               `json:"run_id"`
	Status     string               `json:"status"`
	Error      string               `json:"error,omitempty"`
	Documents  int                  `json:"documents"`
	Processed  int                  `json:"processed"`
	Skipped    int                  `json:"skipped"`
	Irrelevant int                  `json:"irrelevant"`
	Failed     int                  `json:"failed"`
	Extracted  int                  `json:"extracted"`
	Duplicates int                  `json:"duplicates"`
	Unique     int                  `json:"unique"`
	Added      int                  `json:"added"`
	Total      int                  `json:"total"`
	Samples    []models.EventRecord `json:"samples,omitempty"`
}

func (s *ExtractionSummary) fail(err error) {
	s.Status = models.StatusError
	s.Error = err.Error()
}

// RunExtraction turns every stored page whose URL is not yet cataloged into
// event records, deduplicates them and merges them into the catalog. Pages
// handled by an earlier run (irrelevant, no events, duplicate of a cataloged
// event) are skipped until they are crawled again; failed pages are retried.
func (e *Engine) RunExtraction(ctx context.Context) ExtractionSummary {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	start := time.Now()
	sum := ExtractionSummary{RunID: uuid.NewString(), Status: models.StatusSuccess}
	log := e.logger.With(zap.String("run_id", sum.RunID), zap.String("operation", "extract"))
	defer func() {
		e.metrics.Run("extract", sum.Status, time.Since(start))
	}()

	docs, err := e.pages.Documents()
	if err != nil {
		sum.fail(fmt.Errorf("read content store: %w", err))
		return sum
	}
	sum.Documents = len(docs)

	existing, err := e.catalog.Load(ctx)
	if err != nil {
		sum.fail(fmt.Errorf("load catalog: %w", err))
		return sum
	}
	known := catalog.SourceURLs(existing)
	log.Info("extraction started", zap.Int("documents", len(docs)), zap.Int("cataloged", len(existing)))

	var (
		records []models.EventRecord
		handled []string
	)
	for _, doc := range latestPerURL(docs, &sum) {
		if err := ctx.Err(); err != nil {
			sum.fail(err)
			return sum
		}
		if _, ok := known[doc.URL]; ok || doc.ProcessedAt != nil {
			sum.Skipped++
			continue
		}
		recs, err := e.extractDocument(ctx, doc)
		switch {
		case errors.Is(err, errIrrelevant):
			sum.Processed++
			sum.Irrelevant++
			handled = append(handled, doc.URL)
		case err != nil:
			sum.Failed++
			log.Warn("document failed", zap.String("url", doc.URL), zap.Error(err))
		default:
			sum.Processed++
			records = append(records, recs...)
			handled = append(handled, doc.URL)
		}
	}
	sum.Extracted = len(records)
	e.metrics.Records("extracted", len(records))

	unique := e.dedup.Run(ctx, records)
	unique = dropCataloged(unique, existing, &sum)
	sum.Unique = len(unique)
	e.metrics.Records("unique", len(unique))

	stats, err := e.catalog.MergeAndPersist(ctx, unique)
	if err != nil {
		sum.fail(fmt.Errorf("persist catalog: %w", err))
		return sum
	}
	sum.Added, sum.Total = stats.Added, stats.Total
	if err := e.pages.MarkProcessed(handled, e.now()); err != nil {
		log.Warn("mark processed pages", zap.Error(err))
	}
	e.metrics.Records("added", stats.Added)
	e.metrics.CatalogSize(stats.Total)

	n := e.cfg.Pipeline.SampleSize
	if n > len(unique) {
		n = len(unique)
	}
	if n > 0 {
		sum.Samples = append([]models.EventRecord(nil), unique[:n]...)
	}

	log.Info("extraction finished", zap.String("status", sum.Status), zap.Int("processed", sum.Processed),
		zap.Int("failed", sum.Failed), zap.Int("unique", sum.Unique), zap.Int("added", sum.Added))
	return sum
}

var errIrrelevant = errors.New("no relevant chunks")

func (e *Engine) extractDocument(ctx context.Context, doc models.FetchedDocument) ([]models.EventRecord, error) {
	threshold := e.cfg.Pipeline.ChunkThreshold
	if threshold <= 0 {
		threshold = web_ingest.DefaultChunkThreshold
	}
	text := web_ingest.Normalize(doc.HTML)
	chunks := web_ingest.Chunk(doc.URL, text, threshold)
	relevant := e.relevance.Relevant(ctx, chunks)
	if len(relevant) == 0 {
		return nil, errIrrelevant
	}
	return e.extractor.Extract(ctx, relevant, doc.URL)
}

// dropCataloged removes records whose exact key matches an event already in
// the catalog under another source URL.
func dropCataloged(records, existing []models.EventRecord, sum *ExtractionSummary) []models.EventRecord {
	if len(existing) == 0 {
		return records
	}
	keys := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		keys[dedup.Key(r)] = struct{}{}
	}
	out := records[:0:0]
	for _, r := range records {
		if _, ok := keys[dedup.Key(r)]; ok {
			sum.Duplicates++
			continue
		}
		out = append(out, r)
	}
	return out
}

// latestPerURL keeps the newest stored file of each URL. Documents come
// oldest first, so later entries win; older copies count as skipped.
func latestPerURL(docs []models.FetchedDocument, sum *ExtractionSummary) []models.FetchedDocument {
	last := make(map[string]int, len(docs))
	for i, d := range docs {
		last[d.URL] = i
	}
	out := make([]models.FetchedDocument, 0, len(last))
	for i, d := range docs {
		if last[d.URL] != i {
			sum.Skipped++
			continue
		}
		out = append(out, d)
	}
	return out
}
