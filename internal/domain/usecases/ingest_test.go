package usecases

import (
	"context"
	"strings"
	"testing"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

// mockEmbedder implements ports.EmbeddingService for testing
type mockEmbedder struct {
	embedFn func(text string) ([]float32, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		emb, err := m.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		result[i] = emb
	}
	return result, nil
}

func (m *mockEmbedder) Dimension(ctx context.Context) (int, error) {
	return 3, nil
}

// mockVectorStore implements ports.VectorStore for testing
type mockVectorStore struct {
	sources map[string]entities.Source
	chunks  map[string][]entities.Chunk
	order   []string
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{
		sources: make(map[string]entities.Source),
		chunks:  make(map[string][]entities.Chunk),
	}
}

func (m *mockVectorStore) UpsertSource(ctx context.Context, src entities.Source, chunks []entities.Chunk) error {
	if _, ok := m.sources[src.ID]; !ok {
		m.order = append(m.order, src.ID)
	}
	m.sources[src.ID] = src
	m.chunks[src.ID] = chunks
	return nil
}

func (m *mockVectorStore) FindSource(ctx context.Context, sourceID string) (*entities.Source, error) {
	src, ok := m.sources[sourceID]
	if !ok {
		return nil, entities.NewError(entities.KindNotFound, "source %s not found", sourceID)
	}
	return &src, nil
}

func (m *mockVectorStore) ListSources(ctx context.Context) ([]entities.Source, error) {
	out := make([]entities.Source, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sources[id])
	}
	return out, nil
}

func (m *mockVectorStore) GetSource(ctx context.Context, sourceID string) (*entities.Source, []entities.Chunk, error) {
	src, err := m.FindSource(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}
	return src, m.chunks[sourceID], nil
}

func (m *mockVectorStore) DeleteSource(ctx context.Context, sourceID string) error {
	if _, ok := m.sources[sourceID]; !ok {
		return entities.NewError(entities.KindNotFound, "source %s not found", sourceID)
	}
	delete(m.sources, sourceID)
	delete(m.chunks, sourceID)
	return nil
}

func (m *mockVectorStore) Search(ctx context.Context, embedding []float32, k int, scope string) ([]entities.QueryResult, error) {
	if k <= 0 {
		return nil, entities.NewError(entities.KindConfiguration, "k must be positive, got %d", k)
	}
	var results []entities.QueryResult
	for _, id := range m.order {
		if scope != "" && id != scope {
			continue
		}
		for _, c := range m.chunks[id] {
			if len(results) >= k {
				break
			}
			results = append(results, entities.QueryResult{Chunk: c, Score: 0.9})
		}
	}
	return results, nil
}

func TestIngestUseCase_ChunksAndStores(t *testing.T) {
	embedder := &mockEmbedder{}
	store := newMockVectorStore()
	uc, err := NewIngestUseCase(embedder, store, 100, 20)
	if err != nil {
		t.Fatalf("new usecase: %v", err)
	}

	res, err := uc.Ingest(context.Background(), "v1", strings.Repeat("transcript text ", 20), map[string]string{"title": "talk"})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if res.Status != entities.IngestStored {
		t.Errorf("status = %s, want stored", res.Status)
	}
	if res.ChunkCount == 0 || len(store.chunks["v1"]) != res.ChunkCount {
		t.Errorf("chunk count mismatch: result %d, stored %d", res.ChunkCount, len(store.chunks["v1"]))
	}
	for i, c := range store.chunks["v1"] {
		if c.SourceID != "v1" {
			t.Errorf("chunk %d missing source id", i)
		}
		if len(c.Embedding) == 0 {
			t.Errorf("chunk %d missing embedding", i)
		}
		if c.Index != i {
			t.Errorf("chunk %d has index %d, sequence must be contiguous", i, c.Index)
		}
	}
}

func TestIngestUseCase_EmptySourceID(t *testing.T) {
	uc, _ := NewIngestUseCase(&mockEmbedder{}, newMockVectorStore(), 0, 0)

	_, err := uc.Ingest(context.Background(), "  ", "text", nil)
	if !entities.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestIngestUseCase_InvalidWindow(t *testing.T) {
	_, err := NewIngestUseCase(&mockEmbedder{}, newMockVectorStore(), 100, 100)
	if !entities.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestIngestUseCase_EmptyText(t *testing.T) {
	store := newMockVectorStore()
	uc, _ := NewIngestUseCase(&mockEmbedder{}, store, 0, 0)

	res, err := uc.Ingest(context.Background(), "empty", "", nil)
	if err != nil {
		t.Fatalf("empty text should not error: %v", err)
	}
	if res.ChunkCount != 0 {
		t.Errorf("empty text should produce no chunks, got %d", res.ChunkCount)
	}
	// The source itself is still recorded for listing.
	if _, ok := store.sources["empty"]; !ok {
		t.Error("source should be recorded even with zero chunks")
	}
}

func TestIngestUseCase_IdempotentReingest(t *testing.T) {
	embedder := &mockEmbedder{}
	store := newMockVectorStore()
	uc, _ := NewIngestUseCase(embedder, store, 100, 20)

	text := strings.Repeat("same content ", 30)
	first, err := uc.Ingest(context.Background(), "v1", text, nil)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	callsAfterFirst := embedder.calls

	second, err := uc.Ingest(context.Background(), "v1", text, nil)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if second.Status != entities.IngestUnchanged {
		t.Errorf("status = %s, want %s", second.Status, entities.IngestUnchanged)
	}
	if embedder.calls != callsAfterFirst {
		t.Error("unchanged re-ingest must not re-embed")
	}
	if len(store.chunks["v1"]) != first.ChunkCount {
		t.Errorf("chunk set changed: %d vs %d", len(store.chunks["v1"]), first.ChunkCount)
	}
}

func TestIngestUseCase_ReplaceOnChangedContent(t *testing.T) {
	store := newMockVectorStore()
	uc, _ := NewIngestUseCase(&mockEmbedder{}, store, 100, 20)

	uc.Ingest(context.Background(), "v1", strings.Repeat("old ", 100), nil)
	res, err := uc.Ingest(context.Background(), "v1", "new short text", nil)
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}

	if res.Status != entities.IngestStored {
		t.Errorf("changed content should be stored, got %s", res.Status)
	}
	if len(store.chunks["v1"]) != 1 {
		t.Errorf("old chunks must be replaced, have %d", len(store.chunks["v1"]))
	}
	if store.chunks["v1"][0].Text != "new short text" {
		t.Errorf("unexpected chunk text %q", store.chunks["v1"][0].Text)
	}
}

func TestIngestUseCase_DeleteAndTranscript(t *testing.T) {
	store := newMockVectorStore()
	uc, _ := NewIngestUseCase(&mockEmbedder{}, store, 100, 20)

	text := strings.Repeat("watch this part carefully ", 15)
	uc.Ingest(context.Background(), "v1", text, nil)

	_, got, err := uc.GetTranscript(context.Background(), "v1")
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	if got != text {
		t.Error("reassembled transcript differs from ingested text")
	}

	if err := uc.Delete(context.Background(), "v1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := uc.GetTranscript(context.Background(), "v1"); !entities.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}
