// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"strings"
	"time"
)

// Source represents one ingested transcript, identified by a stable external ID.
// This is a core entity - no knowledge of storage or external systems.
type Source struct {
	ID          string
	Metadata    map[string]string
	ContentHash string // SHA-256 of the raw text, used to detect unchanged re-ingests
	CreatedAt   time.Time
}

// Chunk represents a contiguous piece of a source's text for embedding.
// CharStart/CharEnd are rune offsets into the original text, so overlapping
// chunks can be stitched back into the exact transcript.
type Chunk struct {
	SourceID  string
	Index     int // Position among the source's chunks, defines reading order
	Text      string
	CharStart int
	CharEnd   int
	Embedding []float32 // Vector representation (populated by adapter)
}

// QueryResult represents a retrieved chunk with its similarity score.
type QueryResult struct {
	Chunk Chunk
	Score float64 // Cosine similarity, higher is more similar
}

// GenerationBackend selects how an Answer's text is produced.
type GenerationBackend string

const (
	// BackendNone formats the retrieved chunks deterministically, no model call.
	BackendNone GenerationBackend = "none"
	// BackendExternal asks a text-generation service, falling back to
	// BackendNone formatting when the call fails.
	BackendExternal GenerationBackend = "external"
)

// QueryRequest is a retrieval question with its options.
type QueryRequest struct {
	Query   string
	K       int               // Number of chunks to retrieve; <= 0 means the configured default
	Scope   string            // Optional source ID restricting the search
	Backend GenerationBackend // Defaults to BackendExternal when empty
}

// Answer is the response to a query: generated (or formatted) text plus the
// retrieval results it was derived from, for attribution.
type Answer struct {
	Text    string
	Results []QueryResult
	Sources []string // Unique source IDs in ranked order
	Warning string   // Non-empty when generation failed and the fallback text was used
}

// IngestStatus reports what an ingest call did.
type IngestStatus string

const (
	IngestStored    IngestStatus = "stored"
	IngestUnchanged IngestStatus = "already_exists_with_same_content"
)

// IngestResult summarizes a completed ingest.
type IngestResult struct {
	SourceID   string
	Status     IngestStatus
	ChunkCount int
}

// ReassembleText reconstructs the original transcript from a source's chunks.
// Chunks must be ordered by Index. Overlapping prefixes are skipped using the
// rune offsets, so the result is exactly the ingested text.
func ReassembleText(chunks []Chunk) string {
	var sb strings.Builder
	covered := 0
	for _, c := range chunks {
		if c.CharEnd <= covered {
			continue
		}
		runes := []rune(c.Text)
		skip := covered - c.CharStart
		if skip < 0 {
			skip = 0
		}
		sb.WriteString(string(runes[skip:]))
		covered = c.CharEnd
	}
	return sb.String()
}

// SourceIDs returns the unique source IDs of the results, first appearance order.
func SourceIDs(results []QueryResult) []string {
	seen := make(map[string]struct{}, len(results))
	var ids []string
	for _, r := range results {
		if _, ok := seen[r.Chunk.SourceID]; ok {
			continue
		}
		seen[r.Chunk.SourceID] = struct{}{}
		ids = append(ids, r.Chunk.SourceID)
	}
	return ids
}
