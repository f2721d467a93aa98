// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

// EmbeddingService maps text into a fixed-dimensionality vector space.
// The underlying model is loaded lazily, at most once per process, and
// reused for every call. The same text always maps to the same vector.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text. Empty text
	// yields a valid zero vector of the model's dimension, not an error.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently,
	// one vector per input, order-preserving.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the model's vector dimensionality, loading the
	// model on first use.
	Dimension(ctx context.Context) (int, error)
}

// GenerationService produces answer text from a query and a context block.
// Credentials and endpoints are the adapter's concern.
type GenerationService interface {
	// Generate returns answer text for the query given the retrieved context.
	Generate(ctx context.Context, query, contextBlock string) (string, error)

	// Model identifies the configured model, for logging and attribution.
	Model() string
}

// VectorStore is a durable collection of chunks with embeddings, keyed by
// source. All mutation is per-source and all-or-nothing.
type VectorStore interface {
	// UpsertSource atomically replaces all chunks of src.ID with chunks.
	// Unknown source IDs are fresh inserts.
	UpsertSource(ctx context.Context, src entities.Source, chunks []entities.Chunk) error

	// FindSource returns the source record without its chunks.
	// Missing sources report a not-found error.
	FindSource(ctx context.Context, sourceID string) (*entities.Source, error)

	// ListSources enumerates sources in insertion order.
	ListSources(ctx context.Context) ([]entities.Source, error)

	// GetSource returns the source and its chunks ordered by Index.
	GetSource(ctx context.Context, sourceID string) (*entities.Source, []entities.Chunk, error)

	// DeleteSource removes a source and all its chunks.
	DeleteSource(ctx context.Context, sourceID string) error

	// Search ranks stored chunks by cosine similarity to the embedding
	// and returns the k best. Empty scope searches the whole corpus,
	// otherwise only that source's chunks. Ties break on lower chunk
	// Index, then insertion order. k <= 0 is a configuration error.
	Search(ctx context.Context, embedding []float32, k int, scope string) ([]entities.QueryResult, error)
}

// CaptionParser flattens a captions payload (SRT, WebVTT, JSON segments or
// plain text) into transcript text.
type CaptionParser interface {
	// Parse extracts transcript text from raw caption bytes.
	Parse(data []byte, filename string) (string, error)

	// SupportedExtensions returns file extensions this parser handles.
	SupportedExtensions() []string
}

// FileWatcher monitors a transcript drop directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
