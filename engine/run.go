package engine

import (
	"context"

	"github.com/mohammad-safakhou/pathfinder/models"
)

// RunSummary is a discovery run followed by an extraction run.
type RunSummary struct {
	Status     string            `json:"status"`
	Discovery  DiscoverySummary  `json:"discovery"`
	Extraction ExtractionSummary `json:"extraction"`
}

// Run discovers new pages and then extracts from the whole content store.
// Extraction still runs when discovery failed part way.
func (e *Engine) Run(ctx context.Context) RunSummary {
	out := RunSummary{Status: models.StatusSuccess}
	out.Discovery = e.RunDiscovery(ctx)
	out.Extraction = e.RunExtraction(ctx)
	if out.Discovery.Status != models.StatusSuccess || out.Extraction.Status != models.StatusSuccess {
		out.Status = models.StatusError
	}
	return out
}
