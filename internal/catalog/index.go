package catalog

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/pathfinder/models"
)

// indexedEvent is the flattened view of a record that bleve indexes.
type indexedEvent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	EventType   string `json:"event_type"`
	Mode        string `json:"mode"`
	Organizer   string `json:"organizer"`
	TechStack   string `json:"tech_stack"`
	Eligibility string `json:"eligibility"`
}

// Index is an in-memory full-text index over catalog records, keyed by
// source URL.
type Index struct {
	idx bleve.Index
}

func NewIndex(records []models.EventRecord) (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("bleve index: %w", err)
	}
	batch := idx.NewBatch()
	for _, r := range records {
		if r.SourceURL == "" {
			continue
		}
		if err := batch.Index(r.SourceURL, toIndexed(r)); err != nil {
			_ = idx.Close()
			return nil, err
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("bleve batch: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Search runs a query-string query and returns matching source URLs by score.
func (i *Index) Search(q string, limit int) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(q), limit, 0, false)
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, hit.ID)
	}
	return out, nil
}

func (i *Index) Close() error { return i.idx.Close() }

func toIndexed(r models.EventRecord) indexedEvent {
	known := func(s string) string {
		if s == models.Unknown {
			return ""
		}
		return s
	}
	return indexedEvent{
		Title:       known(r.Title),
		Description: known(r.Description),
		EventType:   known(string(r.EventType)),
		Mode:        known(string(r.Mode)),
		Organizer:   known(r.Organizer),
		TechStack:   strings.Join(r.TechStack, " "),
		Eligibility: known(r.Eligibility),
	}
}
