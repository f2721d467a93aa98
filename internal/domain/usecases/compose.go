// Package usecases - compose.go builds context blocks and fallback answers.
package usecases

import (
	"fmt"
	"strings"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

const noContextAnswer = "I couldn't find relevant information in the transcripts to answer your question."

const fallbackPreviewRunes = 200

// buildContext concatenates retrieved chunk texts in ranked order, each tagged
// with its source for attribution. When the block would exceed maxRunes the
// lowest-ranked chunks are dropped whole, never cut mid-chunk. The top-ranked
// chunk is always kept.
func buildContext(results []entities.QueryResult, maxRunes int) string {
	var parts []string
	total := 0
	for i, r := range results {
		part := fmt.Sprintf("[Source: %s, Chunk %d]\n%s", r.Chunk.SourceID, r.Chunk.Index, r.Chunk.Text)
		size := len([]rune(part))
		if i > 0 && total+size > maxRunes {
			break
		}
		parts = append(parts, part)
		total += size
	}
	return strings.Join(parts, "\n\n")
}

// fallbackAnswer formats ranked chunks deterministically: the best match in
// full, the rest as short previews. Used when no generation backend is
// configured or the external call failed.
func fallbackAnswer(results []entities.QueryResult) string {
	var sb strings.Builder
	sb.WriteString("Based on the transcripts, here's what I found:\n\n")
	sb.WriteString(results[0].Chunk.Text)
	if len(results) > 1 {
		sb.WriteString("\n\nAdditional context:\n")
		for _, r := range results[1:] {
			sb.WriteString("\n- ")
			sb.WriteString(preview(r.Chunk.Text, fallbackPreviewRunes))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func preview(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}

