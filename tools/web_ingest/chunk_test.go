package web_ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkShortTextIsOneChunk(t *testing.T) {
	chunks := Chunk("https://a.example", "one\ntwo", 4000)
	require.Len(t, chunks, 1)
	assert.Equal(t, "one\ntwo", chunks[0].Text)
	assert.Equal(t, "https://a.example", chunks[0].SourceURL)
	assert.Empty(t, Chunk("https://a.example", "  ", 4000))
}

func TestChunkReconstructsText(t *testing.T) {
	var paras []string
	for i := 0; i < 60; i++ {
		paras = append(paras, strings.Repeat(string(rune('a'+i%26)), 50+i*7))
	}
	paras = append(paras, strings.Repeat("z", 500))
	text := strings.Join(paras, "\n")
	require.Greater(t, len(text), 400)

	chunks := Chunk("u", text, 400)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, text, strings.Join(Texts(chunks), "\n"))

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.Text)
		if !strings.Contains(c.Text, "\n") {
			continue // a lone oversized paragraph may exceed the threshold
		}
		assert.LessOrEqual(t, len(c.Text), 400)
	}
}

func TestChunkOversizedParagraphStandsAlone(t *testing.T) {
	big := strings.Repeat("x", 50)
	text := "aa\n" + big + "\nbb"
	chunks := Chunk("u", text, 20)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"aa", big, "bb"}, Texts(chunks))
}

func TestChunkThresholdCountsCharacters(t *testing.T) {
	text := strings.Repeat("é", 30) + "\n" + strings.Repeat("ü", 30)
	require.Equal(t, 122, len(text))

	chunks := Chunk("u", text, 61)
	require.Len(t, chunks, 1, "61 characters fit a 61 character threshold")
	assert.Equal(t, text, chunks[0].Text)

	chunks = Chunk("u", text+"\n"+strings.Repeat("ß", 10), 45)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("é", 30), chunks[0].Text)
	assert.Equal(t, strings.Repeat("ü", 30)+"\n"+strings.Repeat("ß", 10), chunks[1].Text)
}
