package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PgVectorStore is a Store backed by PostgreSQL with the pgvector
// extension.
//
// Embeddings are stored in a vector(1536) column matching OpenAI's
// text-embedding-3-small dimension. Similarity search uses the cosine
// distance operator with an ivfflat index.
type PgVectorStore struct {
	db *sql.DB
}

// NewPgVectorStore creates a pgvector-backed memory store.
//
// The store verifies connectivity and auto-migrates its schema,
// including the vector extension. A failed connection returns an error
// so callers can fall back to InMemoryStore.
func NewPgVectorStore(dsn string) (*PgVectorStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	store := &PgVectorStore{db: db}
	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

func (s *PgVectorStore) createTables(ctx context.Context) error {
	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS memory_vectors (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(1536),
			metadata JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		"CREATE INDEX IF NOT EXISTS memory_vectors_user_idx ON memory_vectors(user_id)",
		`CREATE INDEX IF NOT EXISTS memory_vectors_embedding_idx ON memory_vectors
			USING ivfflat (embedding vector_cosine_ops)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Save stores a memory with its embedding.
func (s *PgVectorStore) Save(ctx context.Context, userID, content string, embedding []float64, metadata map[string]interface{}) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO memory_vectors (user_id, content, embedding, metadata)
		VALUES ($1, $2, $3::vector, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, userID, content, vectorLiteral(embedding), metaJSON); err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// Search returns the user's memories ranked by cosine similarity.
func (s *PgVectorStore) Search(ctx context.Context, userID string, embedding []float64, limit int) ([]Record, error) {
	query := `
		SELECT content, metadata, 1 - (embedding <=> $1::vector) AS score
		FROM memory_vectors
		WHERE user_id = $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, vectorLiteral(embedding), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows, true)
}

// Recent returns the user's memories newest first.
func (s *PgVectorStore) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	query := `
		SELECT content, metadata
		FROM memory_vectors
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent memories: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows, false)
}

// Close closes the database connection.
func (s *PgVectorStore) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows, withScore bool) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var metaJSON []byte

		if withScore {
			if err := rows.Scan(&rec.Content, &metaJSON, &rec.Score); err != nil {
				return nil, fmt.Errorf("failed to scan memory row: %w", err)
			}
		} else {
			if err := rows.Scan(&rec.Content, &metaJSON); err != nil {
				return nil, fmt.Errorf("failed to scan memory row: %w", err)
			}
		}

		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// vectorLiteral formats an embedding as a pgvector input literal,
// e.g. "[0.1,0.2,0.3]".
func vectorLiteral(embedding []float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	sb.WriteByte(']')
	return sb.String()
}
