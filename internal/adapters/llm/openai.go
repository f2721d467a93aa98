package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

const openaiSystemPrompt = "You are a helpful assistant that answers questions based on provided transcript excerpts. " +
	"Provide clear, concise answers based only on the information in the transcripts."

// OpenAIAdapter implements ports.GenerationService against an OpenAI-compatible
// chat completions endpoint.
type OpenAIAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIAdapter creates a new OpenAI generation adapter.
func NewOpenAIAdapter(baseURL, apiKey, model string, timeout time.Duration) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, entities.NewError(entities.KindConfiguration, "missing API key for OpenAI generation")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Model identifies the configured model.
func (a *OpenAIAdapter) Model() string { return a.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate asks the chat model for an answer grounded in the context block.
func (a *OpenAIAdapter) Generate(ctx context.Context, query, contextBlock string) (string, error) {
	reqBody := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: openaiSystemPrompt},
			{Role: "user", Content: answerPrompt(query, contextBlock)},
		},
		Temperature: 0.7,
		MaxTokens:   1000,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", entities.WrapError(entities.KindGenerationBackend, err, "calling chat completions")
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", entities.WrapError(entities.KindGenerationBackend, err, "decoding response")
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if chatResp.Error != nil {
			msg = chatResp.Error.Message
		}
		return "", entities.NewError(entities.KindGenerationBackend, "chat completions failed: %s", msg)
	}
	if len(chatResp.Choices) == 0 {
		return "", entities.NewError(entities.KindGenerationBackend, "chat completions returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}
