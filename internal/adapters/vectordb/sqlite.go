// Package vectordb provides vector store adapters.
// Clean Architecture: Adapter implementing ports.VectorStore.
package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements ports.VectorStore with SQLite-based persistence.
// Embeddings are stored as JSON BLOBs and searched brute-force with cosine
// similarity, which is plenty for a personal transcript corpus.
type SQLiteStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	dim int // embedding dimension learned from the first stored chunk
}

// NewSQLiteStore opens (or creates) a persistent vector store under dataPath.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "transcripts.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	if err := store.loadDimension(); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading stored dimension: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		metadata TEXT NOT NULL DEFAULT '{}',
		content_hash TEXT NOT NULL,
		position INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS chunks (
		source_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		text TEXT NOT NULL,
		char_start INTEGER NOT NULL,
		char_end INTEGER NOT NULL,
		embedding BLOB NOT NULL,
		PRIMARY KEY (source_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// loadDimension recovers the process-wide embedding dimension from any stored
// chunk, so dimension checks survive restarts.
func (s *SQLiteStore) loadDimension() error {
	var blob []byte
	err := s.db.QueryRow("SELECT embedding FROM chunks LIMIT 1").Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	var vec []float32
	if err := json.Unmarshal(blob, &vec); err != nil {
		return err
	}
	s.dim = len(vec)
	return nil
}

// UpsertSource atomically replaces all chunks of src.ID with the new set.
// A single transaction keeps old and new chunks from ever being visible
// together. The source keeps its original list position on replace.
func (s *SQLiteStore) UpsertSource(ctx context.Context, src entities.Source, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if s.dim != 0 && len(c.Embedding) != s.dim {
			return entities.NewError(entities.KindConfiguration,
				"embedding dimension %d does not match stored dimension %d", len(c.Embedding), s.dim)
		}
	}
	if s.dim == 0 && len(chunks) > 0 {
		for _, c := range chunks[1:] {
			if len(c.Embedding) != len(chunks[0].Embedding) {
				return entities.NewError(entities.KindConfiguration,
					"chunks carry embeddings of mixed dimensions %d and %d", len(chunks[0].Embedding), len(c.Embedding))
			}
		}
	}

	metaJSON, err := json.Marshal(metadataOrEmpty(src.Metadata))
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var position int64
	err = tx.QueryRowContext(ctx, "SELECT position FROM sources WHERE id = ?", src.ID).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), 0) + 1 FROM sources").Scan(&position); err != nil {
			return fmt.Errorf("allocating position: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("looking up source: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO sources (id, metadata, content_hash, position)
		VALUES (?, ?, ?, ?)
	`, src.ID, string(metaJSON), src.ContentHash, position)
	if err != nil {
		return fmt.Errorf("upserting source: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source_id = ?", src.ID); err != nil {
		return fmt.Errorf("clearing old chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (source_id, seq, text, char_start, char_end, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}
		_, err = stmt.ExecContext(ctx, src.ID, chunk.Index, chunk.Text, chunk.CharStart, chunk.CharEnd, embeddingJSON)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	if s.dim == 0 && len(chunks) > 0 {
		s.dim = len(chunks[0].Embedding)
	}
	return nil
}

// FindSource returns the source record without loading its chunks.
func (s *SQLiteStore) FindSource(ctx context.Context, sourceID string) (*entities.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findSource(ctx, sourceID)
}

func (s *SQLiteStore) findSource(ctx context.Context, sourceID string) (*entities.Source, error) {
	var src entities.Source
	var metaJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, metadata, content_hash, created_at FROM sources WHERE id = ?
	`, sourceID).Scan(&src.ID, &metaJSON, &src.ContentHash, &src.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entities.NewError(entities.KindNotFound, "source %s not found", sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying source: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &src.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return &src, nil
}

// ListSources enumerates sources in insertion order.
func (s *SQLiteStore) ListSources(ctx context.Context) ([]entities.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, metadata, content_hash, created_at FROM sources ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []entities.Source
	for rows.Next() {
		var src entities.Source
		var metaJSON string
		if err := rows.Scan(&src.ID, &metaJSON, &src.ContentHash, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &src.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// GetSource returns the source and its chunks ordered by sequence index.
func (s *SQLiteStore) GetSource(ctx context.Context, sourceID string) (*entities.Source, []entities.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, err := s.findSource(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, seq, text, char_start, char_end, embedding
		FROM chunks WHERE source_id = ? ORDER BY seq
	`, sourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []entities.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, chunk)
	}
	return src, chunks, rows.Err()
}

// DeleteSource removes a source and all its chunks.
func (s *SQLiteStore) DeleteSource(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.NewError(entities.KindNotFound, "source %s not found", sourceID)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return tx.Commit()
}

// Search ranks stored chunks by cosine similarity against the query embedding.
// Rows are read in insertion order (source position, then sequence index) so a
// stable sort gives the documented tie-break for free.
func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, k int, scope string) ([]entities.QueryResult, error) {
	if k <= 0 {
		return nil, entities.NewError(entities.KindConfiguration, "k must be positive, got %d", k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dim != 0 && len(embedding) != s.dim {
		return nil, entities.NewError(entities.KindConfiguration,
			"query embedding dimension %d does not match stored dimension %d", len(embedding), s.dim)
	}

	query := `
		SELECT c.source_id, c.seq, c.text, c.char_start, c.char_end, c.embedding
		FROM chunks c JOIN sources s ON s.id = c.source_id
	`
	args := []any{}
	if scope != "" {
		if _, err := s.findSource(ctx, scope); err != nil {
			return nil, err
		}
		query += " WHERE c.source_id = ?"
		args = append(args, scope)
	}
	query += " ORDER BY s.position, c.seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []entities.QueryResult
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entities.QueryResult{
			Chunk: chunk,
			Score: cosineSimilarity(embedding, chunk.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Score descending, ties on lower sequence index; the stable sort keeps
	// insertion order for anything still equal.
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

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ChunkCount returns the number of stored chunks.
func (s *SQLiteStore) ChunkCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	return count, err
}

func scanChunk(rows *sql.Rows) (entities.Chunk, error) {
	var chunk entities.Chunk
	var embeddingJSON []byte
	if err := rows.Scan(&chunk.SourceID, &chunk.Index, &chunk.Text, &chunk.CharStart, &chunk.CharEnd, &embeddingJSON); err != nil {
		return chunk, fmt.Errorf("scanning chunk: %w", err)
	}
	if err := json.Unmarshal(embeddingJSON, &chunk.Embedding); err != nil {
		return chunk, fmt.Errorf("decoding embedding: %w", err)
	}
	return chunk, nil
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
