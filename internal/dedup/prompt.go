package dedup

import (
	"encoding/json"

	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
	"github.com/mohammad-safakhou/pathfinder/models"
)

const systemPrompt = `You deduplicate tech event records. Return only valid JSON.`

const conservativeCriteria = `Two records describe the same event ONLY when their title, start date and organizer all agree (ignoring letter case). Do not merge anything else, even if it looks similar.`

const aggressiveCriteria = `Two records describe the same event when they have similar titles (rephrasings, abbreviations, typos), overlapping or nearly identical dates, and a shared organizer or tech stack.`

func prompt(p Policy) string {
	criteria := conservativeCriteria
	if p == PolicyAggressive {
		criteria = aggressiveCriteria
	}
	return `The JSON array below holds event records extracted from different web pages.

` + criteria + `

Merge every group of records describing the same event into ONE record that keeps the most complete value for each field. A merged record must keep the source_url of one of the records it was built from. Leave records that match nothing unchanged.

Return ONLY the resulting JSON array, same field names, no other text.

Records:
`
}

// parseRecords decodes the first JSON array of records in raw.
func parseRecords(raw string) ([]models.EventRecord, error) {
	for _, cand := range helpers.JSONCandidates(raw) {
		if cand[0] != '[' {
			continue
		}
		var out []models.EventRecord
		if err := json.Unmarshal([]byte(cand), &out); err == nil {
			return out, nil
		}
	}
	return nil, helpers.ErrNoJSON
}
