package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/pathfinder/models"
)

type cannedLLM struct {
	reply string
	err   error
	user  string
}

func (c *cannedLLM) Complete(_ context.Context, _, user string) (string, error) {
	c.user = user
	return c.reply, c.err
}

var fixed = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func newEngine(llm *cannedLLM) *Engine {
	return New(llm, WithClock(func() time.Time { return fixed }))
}

func TestExtractArrayInProse(t *testing.T) {
	llm := &cannedLLM{reply: `Here is the result:
[{"title": "<b>AI Hack 2025</b>", "date": {"start": "2025-03-01"}, "event_type": "Hackathon",
  "organizer": "Acme", "tech_stack": ["Python", "python"], "source_url": "https://elsewhere.example"},
 {"title": "DevConf", "event_type": "summit", "mode": "in-person"}]
Thanks!`}
	chunks := []models.ContentChunk{{Text: "part one"}, {Text: "part two"}}

	recs, err := newEngine(llm).Extract(context.Background(), chunks, "https://a.example/hack")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, strings.HasSuffix(llm.user, "part one"+ChunkSeparator+"part two"))

	r := recs[0]
	assert.Equal(t, "AI Hack 2025", r.Title)
	assert.Equal(t, models.EventHackathon, r.EventType)
	assert.Equal(t, []string{"Python"}, r.TechStack)
	assert.Equal(t, "https://a.example/hack", r.SourceURL)
	assert.Equal(t, fixed, r.ProcessedAt)
	assert.Equal(t, models.Unknown, r.Description)

	assert.Equal(t, models.EventConference, recs[1].EventType)
	assert.Equal(t, models.ModeOffline, recs[1].Mode)
	assert.Equal(t, "https://a.example/hack", recs[1].SourceURL)
}

func TestExtractSingleObjectIsCoerced(t *testing.T) {
	llm := &cannedLLM{reply: "```json\n{\"title\": \"Rust Meetup\", \"event_type\": \"meetup\", \"date\": \"May 3, 2025\"}\n```"}
	recs, err := newEngine(llm).Extract(context.Background(), []models.ContentChunk{{Text: "x"}}, "https://m.example")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Rust Meetup", recs[0].Title)
	assert.Equal(t, "May 3, 2025", recs[0].Date.Start)
}

func TestExtractProseOnlyFails(t *testing.T) {
	llm := &cannedLLM{reply: "I could not find any events on this page, sorry."}
	recs, err := newEngine(llm).Extract(context.Background(), []models.ContentChunk{{Text: "x"}}, "https://a.example")
	assert.Empty(t, recs)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestExtractCallFailure(t *testing.T) {
	llm := &cannedLLM{err: errors.New("503")}
	recs, err := newEngine(llm).Extract(context.Background(), []models.ContentChunk{{Text: "x"}}, "https://a.example")
	assert.Empty(t, recs)
	assert.Error(t, err)

	_, err = newEngine(llm).Extract(context.Background(), nil, "https://a.example")
	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestExtractEmptyArrayIsNotAFailure(t *testing.T) {
	llm := &cannedLLM{reply: "[]"}
	recs, err := newEngine(llm).Extract(context.Background(), []models.ContentChunk{{Text: "x"}}, "https://a.example")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseSkipsNonRecordArrays(t *testing.T) {
	recs, err := Parse(`Found [2] events: {"events": [{"title": "A"}, {"title": "B"}]}`)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "B", recs[1].Title)
}
