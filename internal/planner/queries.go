// Package planner generates the search queries for one discovery run.
package planner

import (
	"fmt"
	"time"

	"github.com/mohammad-safakhou/pathfinder/models"
)

// Query contexts, in the order Queries emits them.
const (
	ContextUpcoming      = "upcoming"
	ContextNew           = "new"
	ContextFuture        = "future"
	ContextStudent       = "student"
	ContextUniversity    = "university"
	ContextInternational = "international"
	ContextAIML          = "ai_ml"
	ContextBlockchain    = "blockchain"
)

var templates = []struct {
	context string
	format  string // %[1]d year, %[2]d next year, %[3]s recency filter
}{
	{ContextUpcoming, "upcoming web3, ai, blockchain hackathon %[1]d, %[2]d registration open %[3]s"},
	{ContextNew, "new hackathon announcement %[1]d, %[2]d prize %[3]s"},
	{ContextFuture, "hackathon %[1]d, %[2]d registration open %[3]s"},
	{ContextStudent, "student hackathon %[1]d, %[2]d registration %[3]s"},
	{ContextUniversity, "university hackathon competition %[1]d, %[2]d apply %[3]s"},
	{ContextInternational, "international hackathon %[1]d, %[2]d web3, ai, blockchain %[3]s"},
	{ContextAIML, "AI ML hackathon %[1]d, %[2]d registration %[3]s"},
	{ContextBlockchain, "blockchain web3 hackathon %[1]d, %[2]d apply %[3]s"},
}

// RecencyFilter returns the search operator that disfavors pages older than now.
func RecencyFilter(now time.Time) string {
	return "after:" + now.Format("January 02")
}

// Queries returns the fixed query set for now. The output depends only on
// the calendar date of now.
func Queries(now time.Time) []models.SearchQuery {
	year := now.Year()
	filter := RecencyFilter(now)
	out := make([]models.SearchQuery, 0, len(templates))
	for _, t := range templates {
		out = append(out, models.SearchQuery{
			Text:    fmt.Sprintf(t.format, year, year+1, filter),
			Context: t.context,
		})
	}
	return out
}
