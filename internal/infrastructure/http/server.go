// Package http provides the REST API server.
// Clean Architecture: Framework/driver layer - outermost circle. The browser
// frontend consuming this API lives outside the repository.
package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
	"github.com/goodanalysis/transcriptrag/internal/domain/usecases"
)

// Server is the HTTP server for the transcript RAG API.
type Server struct {
	ingest *usecases.IngestUseCase
	query  *usecases.QueryUseCase
	addr   string
}

// NewServer creates a new HTTP server.
func NewServer(ingest *usecases.IngestUseCase, query *usecases.QueryUseCase, addr string) *Server {
	return &Server{
		ingest: ingest,
		query:  query,
		addr:   addr,
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/sources", s.handleListSources)
	mux.HandleFunc("POST /api/sources", s.handleIngest)
	mux.HandleFunc("GET /api/sources/{id}", s.handleGetSource)
	mux.HandleFunc("DELETE /api/sources/{id}", s.handleDeleteSource)
	mux.HandleFunc("POST /api/query", s.handleQuery)

	server := &http.Server{
		Addr:         s.addr,
		Handler:      corsMiddleware(loggingMiddleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	log.Printf("[INFO] transcriptrag API starting on %s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/sources", s.handleListSources)
	mux.HandleFunc("POST /api/sources", s.handleIngest)
	mux.HandleFunc("GET /api/sources/{id}", s.handleGetSource)
	mux.HandleFunc("DELETE /api/sources/{id}", s.handleDeleteSource)
	mux.HandleFunc("POST /api/query", s.handleQuery)
	return corsMiddleware(mux)
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ingestRequest struct {
	SourceID string            `json:"source_id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// handleIngest stores a transcript delivered by the acquisition collaborator.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.ingest.Ingest(r.Context(), req.SourceID, req.Text, req.Metadata)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Status == entities.IngestUnchanged {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"source_id":   res.SourceID,
		"status":      res.Status,
		"chunk_count": res.ChunkCount,
	})
}

// handleListSources enumerates sources in insertion order.
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.ingest.ListSources(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(sources))
	for _, src := range sources {
		out = append(out, map[string]any{
			"source_id": src.ID,
			"metadata":  src.Metadata,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": out, "count": len(out)})
}

// handleGetSource returns a source with its reassembled transcript.
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, text, err := s.ingest.GetTranscript(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source_id":  src.ID,
		"metadata":   src.Metadata,
		"transcript": text,
		"char_count": len([]rune(text)),
	})
}

// handleDeleteSource removes a source and all its chunks.
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type queryRequest struct {
	Query   string `json:"query"`
	K       int    `json:"k,omitempty"`
	Scope   string `json:"scope,omitempty"`
	Backend string `json:"backend,omitempty"`
}

// handleQuery retrieves context for a question and returns the answer.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	ans, err := s.query.Query(r.Context(), entities.QueryRequest{
		Query:   req.Query,
		K:       req.K,
		Scope:   req.Scope,
		Backend: entities.GenerationBackend(req.Backend),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	results := make([]map[string]any, 0, len(ans.Results))
	for _, res := range ans.Results {
		results = append(results, map[string]any{
			"source_id": res.Chunk.SourceID,
			"chunk":     res.Chunk.Index,
			"text":      res.Chunk.Text,
			"score":     res.Score,
		})
	}
	body := map[string]any{
		"answer":  ans.Text,
		"sources": ans.Sources,
		"results": results,
	}
	if ans.Warning != "" {
		body["warning"] = ans.Warning
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps structured error kinds to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch entities.KindOf(err) {
	case entities.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case entities.KindConfiguration:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()[:8]
		next.ServeHTTP(w, r)
		log.Printf("[INFO] %s %s %s %v", reqID, r.Method, r.URL.Path, time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
