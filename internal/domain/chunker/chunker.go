// Package chunker splits transcript text into overlapping fixed-size windows.
// Pure business logic - no external dependencies.
package chunker

import (
	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

const (
	// DefaultWindowSize is the chunk window in runes.
	DefaultWindowSize = 500
	// DefaultOverlap is how many runes consecutive chunks share.
	DefaultOverlap = 50
)

// Chunker produces deterministic overlapping chunks from text.
// Sizes are counted in runes so multi-byte transcripts chunk the same way
// regardless of encoding width.
type Chunker struct {
	windowSize int
	overlap    int
}

// New validates the window parameters and returns a Chunker.
// windowSize and overlap must be positive with overlap < windowSize.
func New(windowSize, overlap int) (*Chunker, error) {
	if windowSize <= 0 {
		return nil, entities.NewError(entities.KindConfiguration, "window size must be positive, got %d", windowSize)
	}
	if overlap <= 0 {
		return nil, entities.NewError(entities.KindConfiguration, "overlap must be positive, got %d", overlap)
	}
	if overlap >= windowSize {
		return nil, entities.NewError(entities.KindConfiguration, "overlap %d must be smaller than window size %d", overlap, windowSize)
	}
	return &Chunker{windowSize: windowSize, overlap: overlap}, nil
}

// Chunk walks the text with a sliding window, advancing by windowSize-overlap
// each step. The final chunk may be shorter than the window and always covers
// the tail of the text exactly once. Empty text yields no chunks; text shorter
// than the window yields one chunk equal to the whole text. SourceID is left
// unset on the returned chunks.
func (c *Chunker) Chunk(text string) []entities.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.windowSize - c.overlap
	var chunks []entities.Chunk
	for start := 0; ; start += step {
		end := start + c.windowSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, entities.Chunk{
			Index:     len(chunks),
			Text:      string(runes[start:end]),
			CharStart: start,
			CharEnd:   end,
		})
		if end == len(runes) {
			return chunks
		}
	}
}

// WindowSize returns the configured window size in runes.
func (c *Chunker) WindowSize() int { return c.windowSize }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }
