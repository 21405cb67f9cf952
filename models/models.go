package models

import "time"

// SearchQuery is one web search issued during a discovery run.
type SearchQuery struct {
	Text    string `json:"query"`
	Context string `json:"context"` // groups results for reporting only
}

// CandidateURL is a search hit that has not been fetched yet.
type CandidateURL struct {
	URL     string `json:"url"`
	Context string `json:"context"`
}

// RenderMode records how a page was retrieved.
type RenderMode string

const (
	RenderStatic   RenderMode = "static"
	RenderScripted RenderMode = "rendered"
)

// FetchedDocument is the main-content markup of a page that passed the keyword gate.
type FetchedDocument struct {
	URL         string     `json:"url"`
	Context     string     `json:"context"`
	Title       string     `json:"title"`
	HTML        string     `json:"-"`
	FilePath    string     `json:"file_path"`
	DatesFound  []string   `json:"dates_found"`
	CrawledAt   time.Time  `json:"crawled_at"`
	RenderMode  RenderMode `json:"render_mode"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"` // extraction handled this crawl
}

// ContentChunk is a bounded slice of normalized page text.
type ContentChunk struct {
	SourceURL string `json:"source_url"`
	Index     int    `json:"index"`
	Text      string `json:"text"`
}

// Relevance is the verdict of the per-chunk relevance call.
type Relevance struct {
	HasEvent       bool     `json:"has_event"`
	EventTypeGuess string   `json:"event_type"`
	RelevanceScore float64  `json:"relevance_score"`
	KeyPoints      []string `json:"key_points"`
}

// Run status values reported by the pipeline operations.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
