// Package usecases - query.go handles retrieval and answer composition.
package usecases

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
	"github.com/goodanalysis/transcriptrag/internal/domain/ports"
)

const (
	// DefaultTopK is how many chunks a query retrieves when unspecified.
	DefaultTopK = 5
	// DefaultMaxContextRunes bounds the assembled context block.
	DefaultMaxContextRunes = 4000
	// DefaultGenerationTimeout bounds the external generation call.
	DefaultGenerationTimeout = 60 * time.Second
)

// QueryUseCase embeds a question, ranks stored chunks against it and
// composes an answer from the winners.
type QueryUseCase struct {
	embedder        ports.EmbeddingService
	store           ports.VectorStore
	generator       ports.GenerationService // nil when no backend is configured
	topK            int
	maxContextRunes int
	genTimeout      time.Duration
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
// generator may be nil; queries then always take the none-backend path.
func NewQueryUseCase(
	embedder ports.EmbeddingService,
	store ports.VectorStore,
	generator ports.GenerationService,
	topK int,
) *QueryUseCase {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &QueryUseCase{
		embedder:        embedder,
		store:           store,
		generator:       generator,
		topK:            topK,
		maxContextRunes: DefaultMaxContextRunes,
		genTimeout:      DefaultGenerationTimeout,
	}
}

// WithContextLimit overrides the maximum context block size in runes.
func (uc *QueryUseCase) WithContextLimit(runes int) *QueryUseCase {
	if runes > 0 {
		uc.maxContextRunes = runes
	}
	return uc
}

// WithGenerationTimeout overrides the external generation call timeout.
func (uc *QueryUseCase) WithGenerationTimeout(d time.Duration) *QueryUseCase {
	if d > 0 {
		uc.genTimeout = d
	}
	return uc
}

// Retrieve embeds the query and returns the k most similar stored chunks.
// An empty store or empty scope yields an empty result, not an error.
func (uc *QueryUseCase) Retrieve(ctx context.Context, query string, k int, scope string) ([]entities.QueryResult, error) {
	if k <= 0 {
		k = uc.topK
	}
	embedding, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return uc.store.Search(ctx, embedding, k, scope)
}

// Query retrieves context for the request and composes an Answer.
// Generation failures never surface as errors: the answer falls back to the
// deterministic formatting with the failure reason attached as a warning.
func (uc *QueryUseCase) Query(ctx context.Context, req entities.QueryRequest) (*entities.Answer, error) {
	results, err := uc.Retrieve(ctx, req.Query, req.K, req.Scope)
	if err != nil {
		return nil, err
	}

	ans := &entities.Answer{
		Results: results,
		Sources: entities.SourceIDs(results),
	}
	if len(results) == 0 {
		ans.Text = noContextAnswer
		return ans, nil
	}

	backend := req.Backend
	if backend == "" {
		backend = entities.BackendExternal
	}
	if backend == entities.BackendNone {
		ans.Text = fallbackAnswer(results)
		return ans, nil
	}

	if uc.generator == nil {
		ans.Text = fallbackAnswer(results)
		ans.Warning = "no generation backend configured"
		return ans, nil
	}

	contextBlock := buildContext(results, uc.maxContextRunes)
	genCtx, cancel := context.WithTimeout(ctx, uc.genTimeout)
	defer cancel()

	text, err := uc.generator.Generate(genCtx, req.Query, contextBlock)
	if err != nil {
		log.Printf("[ERROR] Generation failed, using retrieval fallback: %v", err)
		ans.Text = fallbackAnswer(results)
		ans.Warning = entities.WrapError(entities.KindGenerationBackend, err, "generation with model %s failed", uc.generator.Model()).Error()
		return ans, nil
	}

	ans.Text = text
	return ans, nil
}
