package web_ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/mohammad-safakhou/pathfinder/models"
)

const DefaultChunkThreshold = 4000

// Chunk splits normalized text into chunks of at most threshold characters
// (runes, not bytes) on line (paragraph) boundaries. Paragraphs are packed greedily; one longer
// than threshold becomes a chunk of its own. Joining the chunk texts with
// "\n" gives back text.
func Chunk(sourceURL, text string, threshold int) []models.ContentChunk {
	if threshold <= 0 {
		threshold = DefaultChunkThreshold
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= threshold {
		return []models.ContentChunk{{SourceURL: sourceURL, Index: 0, Text: text}}
	}

	var (
		out   []models.ContentChunk
		cur   strings.Builder
		runes int
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		out = append(out, models.ContentChunk{SourceURL: sourceURL, Index: len(out), Text: cur.String()})
		cur.Reset()
		runes = 0
	}
	for _, para := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(para)
		if cur.Len() > 0 && runes+1+n > threshold {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
			runes++
		}
		cur.WriteString(para)
		runes += n
	}
	flush()
	return out
}

// Texts returns the chunk texts in order.
func Texts(chunks []models.ContentChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
