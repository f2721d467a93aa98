package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodanalysis/transcriptrag/internal/adapters/vectordb"
	"github.com/goodanalysis/transcriptrag/internal/domain/usecases"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := []float32{0, 0, 0}
	for i, r := range []rune(text) {
		v[i%3] += float32(r % 13)
	}
	return v, nil
}

func (e stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (stubEmbedder) Dimension(ctx context.Context) (int, error) { return 3, nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := vectordb.NewInMemoryStore()
	ingest, err := usecases.NewIngestUseCase(stubEmbedder{}, store, 0, 0)
	require.NoError(t, err)
	query := usecases.NewQueryUseCase(stubEmbedder{}, store, nil, 0)
	return NewServer(ingest, query, ":0")
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(t).Handler(), http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestIngestAndList(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/sources", map[string]any{
		"source_id": "ep1",
		"text":      strings.Repeat("alpha ", 50),
		"metadata":  map[string]string{"title": "Episode 1"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Status     string `json:"status"`
		ChunkCount int    `json:"chunk_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "stored", created.Status)
	assert.Positive(t, created.ChunkCount)

	rec = doJSON(t, h, http.MethodGet, "/api/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count   int `json:"count"`
		Sources []struct {
			SourceID string            `json:"source_id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "ep1", list.Sources[0].SourceID)
	assert.Equal(t, "Episode 1", list.Sources[0].Metadata["title"])
}

func TestReingestUnchangedReturns200(t *testing.T) {
	h := newTestServer(t).Handler()
	body := map[string]any{"source_id": "ep1", "text": "same text"}

	rec := doJSON(t, h, http.MethodPost, "/api/sources", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/sources", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already_exists_with_same_content")
}

func TestGetSourceTranscript(t *testing.T) {
	h := newTestServer(t).Handler()
	text := strings.Repeat("the quick brown fox ", 40)

	rec := doJSON(t, h, http.MethodPost, "/api/sources", map[string]any{"source_id": "ep1", "text": text})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sources/ep1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Transcript string `json:"transcript"`
		CharCount  int    `json:"char_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, text, got.Transcript)
	assert.Equal(t, len([]rune(text)), got.CharCount)
}

func TestGetSourceNotFound(t *testing.T) {
	rec := doJSON(t, newTestServer(t).Handler(), http.MethodGet, "/api/sources/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSource(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/sources", map[string]any{"source_id": "ep1", "text": "short text"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/sources/ep1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/sources/ep1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryEmptyStore(t *testing.T) {
	rec := doJSON(t, newTestServer(t).Handler(), http.MethodPost, "/api/query", map[string]any{"query": "anything"})
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Answer  string   `json:"answer"`
		Sources []string `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got.Answer, "couldn't find relevant information")
	assert.Empty(t, got.Sources)
}

func TestQueryReturnsResults(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/sources", map[string]any{"source_id": "ep1", "text": "kubernetes networking deep dive"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/query", map[string]any{"query": "kubernetes networking", "k": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Answer  string   `json:"answer"`
		Sources []string `json:"sources"`
		Results []struct {
			SourceID string  `json:"source_id"`
			Score    float64 `json:"score"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotEmpty(t, got.Results)
	assert.Equal(t, "ep1", got.Results[0].SourceID)
	assert.Equal(t, []string{"ep1"}, got.Sources)
	assert.NotEmpty(t, got.Answer)
}

func TestQueryRequiresQuery(t *testing.T) {
	rec := doJSON(t, newTestServer(t).Handler(), http.MethodPost, "/api/query", map[string]any{"k": 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	h := newTestServer(t).Handler()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t).Handler()
	req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
