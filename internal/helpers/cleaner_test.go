package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBalancedObjectFromProse(t *testing.T) {
	t.Parallel()
	raw := `Here is the result: {"has_event": true, "relevance_score": 8, "key_points": ["prize {big}"]} Thanks!`
	got, err := ExtractBalanced(raw, '{')
	require.NoError(t, err)
	assert.Equal(t, `{"has_event": true, "relevance_score": 8, "key_points": ["prize {big}"]}`, got)
}

func TestExtractBalancedArrayFromProse(t *testing.T) {
	t.Parallel()
	raw := "Sure [see below] here you go:\n[{\"title\": \"A ] tricky \\\" title\"}, {\"title\": \"B\"}]\nThanks!"
	got, err := ExtractBalanced(raw, '[')
	require.NoError(t, err)
	assert.Equal(t, `[{"title": "A ] tricky \" title"}, {"title": "B"}]`, got)
}

func TestExtractBalancedFencedBlock(t *testing.T) {
	t.Parallel()
	raw := "```json\n[{\"title\": \"X\"}]\n```"
	got, err := ExtractBalanced(raw, '[')
	require.NoError(t, err)
	assert.Equal(t, `[{"title": "X"}]`, got)
}

func TestExtractBalancedNoJSON(t *testing.T) {
	t.Parallel()
	_, err := ExtractBalanced("I could not find any events on this page.", '[')
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ExtractBalanced(`{"unterminated": [1, 2}`, '{')
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ExtractBalanced(`{}`, '(')
	assert.Error(t, err)
}

func TestJSONCandidates(t *testing.T) {
	got := JSONCandidates(`See [1] and {"a": [2, 3]} then [broken and [{"b": 1}]`)
	assert.Equal(t, []string{`[1]`, `{"a": [2, 3]}`, `[{"b": 1}]`}, got)
	assert.Empty(t, JSONCandidates("plain prose"))
}

func TestJSONAfterLeadingNonJSONFence(t *testing.T) {
	t.Parallel()
	raw := "```\nnote: two events found\n```\n[{\"title\": \"AI Hack\"}, {\"title\": \"DevConf\"}]"
	got, err := ExtractBalanced(raw, '[')
	require.NoError(t, err)
	assert.Equal(t, `[{"title": "AI Hack"}, {"title": "DevConf"}]`, got)
	assert.Equal(t, []string{`[{"title": "AI Hack"}, {"title": "DevConf"}]`}, JSONCandidates(raw))

	obj, err := ExtractBalanced("~~~text\nscore below\n~~~ {\"has_event\": true}", '{')
	require.NoError(t, err)
	assert.Equal(t, `{"has_event": true}`, obj)
}

func TestFencedJSONWinsOverLaterValues(t *testing.T) {
	t.Parallel()
	raw := "```json\n{\"title\": \"Inside\"}\n```\nalso {\"title\": \"Outside\"}"
	assert.Equal(t, []string{`{"title": "Inside"}`}, JSONCandidates(raw))
}
