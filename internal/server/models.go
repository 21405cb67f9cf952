package server

import (
	"time"

	"github.com/mohammad-safakhou/pathfinder/models"
)

// DiscoverRequest optionally names the URLs to crawl instead of searching.
type DiscoverRequest struct {
	URLs []string `json:"urls"`
}

type EventsResponse struct {
	Total  int                  `json:"total"`
	Events []models.EventRecord `json:"events"`
}

type StatsResponse struct {
	TotalEvents       int            `json:"total_events"`
	ByType            map[string]int `json:"by_type"`
	ByMode            map[string]int `json:"by_mode"`
	LatestProcessedAt *time.Time     `json:"latest_processed_at"`
}

type HTTPError struct {
	Error string `json:"error"`
}
