// Package llm provides text-generation adapters.
// Clean Architecture: Adapters implementing ports.GenerationService.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

// OllamaAdapter implements ports.GenerationService using the Ollama API.
type OllamaAdapter struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaAdapter creates a new Ollama generation adapter.
func NewOllamaAdapter(baseURL, model string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

// Model identifies the configured model.
func (a *OllamaAdapter) Model() string { return a.model }

// ollamaGenerateRequest is the Ollama generate API request.
type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ollamaGenerateResponse is the Ollama generate API response.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate produces answer text for the query given the retrieved context.
func (a *OllamaAdapter) Generate(ctx context.Context, query, contextBlock string) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  a.model,
		Prompt: answerPrompt(query, contextBlock),
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", entities.WrapError(entities.KindGenerationBackend, err, "calling Ollama")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", entities.NewError(entities.KindGenerationBackend, "Ollama returned status %d", resp.StatusCode)
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", entities.WrapError(entities.KindGenerationBackend, err, "decoding response")
	}

	return genResp.Response, nil
}

// answerPrompt frames the question and retrieved transcript context.
func answerPrompt(query, contextBlock string) string {
	var sb strings.Builder
	sb.WriteString("Based on the following transcript excerpts, answer the question.\n\n")
	sb.WriteString("Context from transcripts:\n")
	sb.WriteString(contextBlock)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\n\nProvide a clear, concise answer based only on the information in the transcripts. ")
	sb.WriteString("If the transcripts don't contain enough information to answer the question, say so.")
	return sb.String()
}
