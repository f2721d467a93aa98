// Package embedding provides embedding adapters.
// Clean Architecture: Adapters implementing ports.EmbeddingService.
// They know about model-server specifics but the domain layer doesn't.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

// OllamaAdapter implements ports.EmbeddingService using the Ollama API.
// Ollama loads the model server-side on first use; warmUp runs exactly once
// to trigger that load and record the vector dimension.
type OllamaAdapter struct {
	baseURL string
	model   string
	client  *http.Client

	once    sync.Once
	dim     int
	loadErr error
}

// NewOllamaAdapter creates a new Ollama embedding adapter.
func NewOllamaAdapter(baseURL, model string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ollamaEmbedRequest is the Ollama API request format.
type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaEmbedResponse is the Ollama API response format.
type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Dimension loads the model on first call and returns its vector size.
func (a *OllamaAdapter) Dimension(ctx context.Context) (int, error) {
	a.once.Do(func() {
		log.Printf("[INFO] Loading embedding model %s", a.model)
		vec, err := a.embedOne(ctx, "dimension probe")
		if err != nil {
			a.loadErr = entities.WrapError(entities.KindEmbeddingUnavailable, err, "loading model %s", a.model)
			return
		}
		a.dim = len(vec)
		log.Printf("[INFO] Embedding model %s ready, %d dimensions", a.model, a.dim)
	})
	return a.dim, a.loadErr
}

// Embed generates an embedding for a single text. Empty input returns a zero
// vector of the model's dimension so trailing empty chunks never fail.
func (a *OllamaAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		dim, err := a.Dimension(ctx)
		if err != nil {
			return nil, err
		}
		return make([]float32, dim), nil
	}

	if _, err := a.Dimension(ctx); err != nil {
		return nil, err
	}
	return a.embedOne(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts, order-preserving.
// The Ollama embeddings endpoint takes one prompt per call.
func (a *OllamaAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := a.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (a *OllamaAdapter) embedOne(ctx context.Context, text string) ([]float32, error) {
	reqBody := ollamaEmbedRequest{
		Model:  a.model,
		Prompt: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/api/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return embedResp.Embedding, nil
}
