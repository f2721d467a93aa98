// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/goodanalysis/transcriptrag/internal/domain/chunker"
	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
	"github.com/goodanalysis/transcriptrag/internal/domain/ports"
)

// IngestUseCase turns raw transcript text into stored, embedded chunks.
// Single Responsibility: Only ingestion logic.
type IngestUseCase struct {
	embedder ports.EmbeddingService
	store    ports.VectorStore
	chunks   *chunker.Chunker
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
// Invalid window parameters are rejected here, before any chunking occurs.
func NewIngestUseCase(
	embedder ports.EmbeddingService,
	store ports.VectorStore,
	windowSize, overlap int,
) (*IngestUseCase, error) {
	if windowSize == 0 {
		windowSize = chunker.DefaultWindowSize
	}
	if overlap == 0 {
		overlap = chunker.DefaultOverlap
	}
	ck, err := chunker.New(windowSize, overlap)
	if err != nil {
		return nil, err
	}
	return &IngestUseCase{
		embedder: embedder,
		store:    store,
		chunks:   ck,
	}, nil
}

// Ingest chunks the text, embeds the chunks and replaces the source's stored
// set. Re-ingesting identical text is detected by content hash and skipped.
func (uc *IngestUseCase) Ingest(ctx context.Context, sourceID, text string, metadata map[string]string) (*entities.IngestResult, error) {
	if strings.TrimSpace(sourceID) == "" {
		return nil, entities.NewError(entities.KindConfiguration, "source id must not be empty")
	}

	hash := hashContent(text)
	existing, err := uc.store.FindSource(ctx, sourceID)
	if err != nil && !entities.IsNotFound(err) {
		return nil, err
	}
	if existing != nil && existing.ContentHash == hash {
		return &entities.IngestResult{
			SourceID: sourceID,
			Status:   entities.IngestUnchanged,
		}, nil
	}

	chunks := uc.chunks.Chunk(text)
	for i := range chunks {
		chunks[i].SourceID = sourceID
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
		}
	}

	src := entities.Source{
		ID:          sourceID,
		Metadata:    metadata,
		ContentHash: hash,
		CreatedAt:   time.Now(),
	}
	if err := uc.store.UpsertSource(ctx, src, chunks); err != nil {
		return nil, err
	}

	return &entities.IngestResult{
		SourceID:   sourceID,
		Status:     entities.IngestStored,
		ChunkCount: len(chunks),
	}, nil
}

// Delete removes a source and all its chunks from the store.
func (uc *IngestUseCase) Delete(ctx context.Context, sourceID string) error {
	return uc.store.DeleteSource(ctx, sourceID)
}

// ListSources enumerates stored sources in insertion order.
func (uc *IngestUseCase) ListSources(ctx context.Context) ([]entities.Source, error) {
	return uc.store.ListSources(ctx)
}

// GetTranscript reassembles the full original text of a source from its chunks.
func (uc *IngestUseCase) GetTranscript(ctx context.Context, sourceID string) (*entities.Source, string, error) {
	src, chunks, err := uc.store.GetSource(ctx, sourceID)
	if err != nil {
		return nil, "", err
	}
	return src, entities.ReassembleText(chunks), nil
}

func hashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
