package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

const defaultOpenAIBatchSize = 32

// OpenAIAdapter implements ports.EmbeddingService against an OpenAI-compatible
// embeddings endpoint. The endpoint accepts input arrays, so EmbedBatch sends
// real batches instead of one request per chunk.
type OpenAIAdapter struct {
	baseURL   string
	apiKey    string
	model     string
	batchSize int
	client    *http.Client

	once    sync.Once
	dim     int
	loadErr error
}

// OpenAIConfig configures the OpenAI-compatible embeddings client.
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// NewOpenAIAdapter creates a new OpenAI embedding adapter.
func NewOpenAIAdapter(cfg OpenAIConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, entities.NewError(entities.KindConfiguration, "missing API key for OpenAI embeddings")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultOpenAIBatchSize
	}
	return &OpenAIAdapter{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type openaiEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Dimension probes the endpoint once and returns the model's vector size.
func (a *OpenAIAdapter) Dimension(ctx context.Context) (int, error) {
	a.once.Do(func() {
		vecs, err := a.embedBatch(ctx, []string{"dimension probe"})
		if err != nil {
			a.loadErr = entities.WrapError(entities.KindEmbeddingUnavailable, err, "probing model %s", a.model)
			return
		}
		a.dim = len(vecs[0])
	})
	return a.dim, a.loadErr
}

// Embed generates an embedding for a single text.
func (a *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in batches, one vector per input, order-preserving.
// Empty inputs become zero vectors; the API rejects empty strings.
func (a *OpenAIAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var nonEmpty []string
	var positions []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		nonEmpty = append(nonEmpty, t)
		positions = append(positions, i)
	}

	dim := 0
	for start := 0; start < len(nonEmpty); start += a.batchSize {
		end := start + a.batchSize
		if end > len(nonEmpty) {
			end = len(nonEmpty)
		}
		vecs, err := a.embedBatch(ctx, nonEmpty[start:end])
		if err != nil {
			return nil, err
		}
		for i, v := range vecs {
			out[positions[start+i]] = v
			dim = len(v)
		}
	}

	// Backfill empty inputs with zero vectors of the model's dimension.
	// a.dim is owned by the once-guarded probe; never write it here.
	for i := range out {
		if out[i] == nil {
			if dim == 0 {
				d, err := a.Dimension(ctx)
				if err != nil {
					return nil, err
				}
				dim = d
			}
			out[i] = make([]float32, dim)
		}
	}
	return out, nil
}

func (a *OpenAIAdapter) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	jsonData, err := json.Marshal(openaiEmbedRequest{Input: texts, Model: a.model})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embeddings endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings endpoint returned status %d", resp.StatusCode)
	}

	var embedResp openaiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(embedResp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range embedResp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}
