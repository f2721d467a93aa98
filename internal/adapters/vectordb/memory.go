// Package vectordb provides vector store adapters.
// The in-memory store mirrors the SQLite store's semantics without
// persistence, for tests and throwaway corpora.
package vectordb

import (
	"context"
	"sort"
	"sync"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

// InMemoryStore is a non-durable ports.VectorStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	sources map[string]entities.Source
	chunks  map[string][]entities.Chunk
	order   []string // source IDs in insertion order
	dim     int
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sources: make(map[string]entities.Source),
		chunks:  make(map[string][]entities.Chunk),
	}
}

// UpsertSource replaces all chunks for src.ID with the new set.
func (s *InMemoryStore) UpsertSource(ctx context.Context, src entities.Source, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if s.dim != 0 && len(c.Embedding) != s.dim {
			return entities.NewError(entities.KindConfiguration,
				"embedding dimension %d does not match stored dimension %d", len(c.Embedding), s.dim)
		}
	}

	if _, ok := s.sources[src.ID]; !ok {
		s.order = append(s.order, src.ID)
	}
	s.sources[src.ID] = src
	s.chunks[src.ID] = append([]entities.Chunk(nil), chunks...)
	if s.dim == 0 && len(chunks) > 0 {
		s.dim = len(chunks[0].Embedding)
	}
	return nil
}

// FindSource returns the source record without its chunks.
func (s *InMemoryStore) FindSource(ctx context.Context, sourceID string) (*entities.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[sourceID]
	if !ok {
		return nil, entities.NewError(entities.KindNotFound, "source %s not found", sourceID)
	}
	return &src, nil
}

// ListSources enumerates sources in insertion order.
func (s *InMemoryStore) ListSources(ctx context.Context) ([]entities.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Source, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sources[id])
	}
	return out, nil
}

// GetSource returns the source and its chunks ordered by sequence index.
func (s *InMemoryStore) GetSource(ctx context.Context, sourceID string) (*entities.Source, []entities.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[sourceID]
	if !ok {
		return nil, nil, entities.NewError(entities.KindNotFound, "source %s not found", sourceID)
	}
	return &src, append([]entities.Chunk(nil), s.chunks[sourceID]...), nil
}

// DeleteSource removes a source and all its chunks.
func (s *InMemoryStore) DeleteSource(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sources[sourceID]; !ok {
		return entities.NewError(entities.KindNotFound, "source %s not found", sourceID)
	}
	delete(s.sources, sourceID)
	delete(s.chunks, sourceID)
	for i, id := range s.order {
		if id == sourceID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Search ranks chunks by cosine similarity, same tie-break as the SQLite store.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, k int, scope string) ([]entities.QueryResult, error) {
	if k <= 0 {
		return nil, entities.NewError(entities.KindConfiguration, "k must be positive, got %d", k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dim != 0 && len(embedding) != s.dim {
		return nil, entities.NewError(entities.KindConfiguration,
			"query embedding dimension %d does not match stored dimension %d", len(embedding), s.dim)
	}

	ids := s.order
	if scope != "" {
		if _, ok := s.sources[scope]; !ok {
			return nil, entities.NewError(entities.KindNotFound, "source %s not found", scope)
		}
		ids = []string{scope}
	}

	var results []entities.QueryResult
	for _, id := range ids {
		for _, chunk := range s.chunks[id] {
			results = append(results, entities.QueryResult{
				Chunk: chunk,
				Score: cosineSimilarity(embedding, chunk.Embedding),
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
