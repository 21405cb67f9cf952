package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/pathfinder/models"
)

func TestIndexSearch(t *testing.T) {
	t.Parallel()
	records := []models.EventRecord{
		models.EventRecord{
			Title:     "Rust Systems Hackathon",
			Organizer: "Ferris Club",
			TechStack: []string{"Rust", "WebAssembly"},
			SourceURL: "https://rust.example",
		}.Normalize(),
		models.EventRecord{
			Title:       "Cloud Native Conference",
			Description: "Talks on Kubernetes operators",
			SourceURL:   "https://cloud.example",
		}.Normalize(),
		models.EventRecord{Title: "No source"}.Normalize(),
	}
	idx, err := NewIndex(records)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	hits, err := idx.Search("kubernetes", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cloud.example"}, hits)

	hits, err = idx.Search("webassembly", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rust.example"}, hits)

	hits, err = idx.Search("  ", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search("unknown", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
