// Package catalog persists the deduplicated event records. Every backend
// keeps at most one record per source URL and never rewrites a stored one.
package catalog

import (
	"context"

	"github.com/mohammad-safakhou/pathfinder/models"
)

// MergeStats reports one MergeAndPersist call.
type MergeStats struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// Store is the durable event catalog.
type Store interface {
	// Load returns the catalog in insertion order.
	Load(ctx context.Context) ([]models.EventRecord, error)
	// MergeAndPersist appends the records whose source URL is not yet stored.
	MergeAndPersist(ctx context.Context, records []models.EventRecord) (MergeStats, error)
	Close() error
}

// SourceURLs returns the set of source URLs in records.
func SourceURLs(records []models.EventRecord) map[string]struct{} {
	out := make(map[string]struct{}, len(records))
	for _, r := range records {
		out[r.SourceURL] = struct{}{}
	}
	return out
}

// newOnly filters records to those with a source URL absent from known,
// keeping the first of each URL within the batch. known is updated.
func newOnly(records []models.EventRecord, known map[string]struct{}) (fresh []models.EventRecord, skipped int) {
	for _, r := range records {
		if r.SourceURL == "" {
			skipped++
			continue
		}
		if _, ok := known[r.SourceURL]; ok {
			skipped++
			continue
		}
		known[r.SourceURL] = struct{}{}
		fresh = append(fresh, r)
	}
	return fresh, skipped
}
