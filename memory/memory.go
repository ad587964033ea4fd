// Package memory provides long-term episodic memory for research users.
//
// Completed research runs are embedded and stored per user; later runs
// retrieve the most similar past interactions to give the planning
// stage conversational continuity.
package memory

import (
	"context"
	"fmt"
	"time"
)

// Record is one stored memory with its retrieval score.
type Record struct {
	// Content is the stored memory text.
	Content string `json:"content"`

	// Metadata carries the thread ID, original query, timestamp, and
	// source count of the interaction.
	Metadata map[string]interface{} `json:"metadata"`

	// Score is the cosine similarity to the retrieval query, 0 for
	// recency-ordered listings.
	Score float64 `json:"score"`
}

// Store persists embedded memories per user.
//
// Implementations:
//   - InMemoryStore: development and degraded fallback
//   - PgVectorStore: PostgreSQL with the pgvector extension
type Store interface {
	// Save stores a memory with its embedding for later retrieval.
	Save(ctx context.Context, userID, content string, embedding []float64, metadata map[string]interface{}) error

	// Search returns up to limit memories most similar to the embedding,
	// best first, scoped to the user.
	Search(ctx context.Context, userID string, embedding []float64, limit int) ([]Record, error)

	// Recent returns up to limit memories ordered newest first, scoped
	// to the user.
	Recent(ctx context.Context, userID string, limit int) ([]Record, error)
}

// Manager combines an embedder and a store into the memory operations
// the workflow uses.
type Manager struct {
	store    Store
	embedder Embedder
}

// NewManager creates a memory manager.
func NewManager(store Store, embedder Embedder) *Manager {
	return &Manager{store: store, embedder: embedder}
}

// SaveInteraction stores a completed research run in long-term memory.
//
// The memory text records the query, the answer, and how many sources
// backed it.
func (m *Manager) SaveInteraction(ctx context.Context, userID, threadID, query, answer string, sourceCount int) error {
	content := fmt.Sprintf("Query: %s\n\nAnswer: %s\n\nSources: %d sources", query, answer, sourceCount)

	embedding, err := m.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to embed interaction: %w", err)
	}

	metadata := map[string]interface{}{
		"thread_id":    threadID,
		"query":        query,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"source_count": sourceCount,
	}

	if err := m.store.Save(ctx, userID, content, embedding, metadata); err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}
	return nil
}

// RetrieveRelevant returns the user's past interactions most similar to
// the query, best first.
func (m *Manager) RetrieveRelevant(ctx context.Context, userID, query string, limit int) ([]Record, error) {
	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	records, err := m.store.Search(ctx, userID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	return records, nil
}

// Recent returns the user's most recent interactions, newest first.
func (m *Manager) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	records, err := m.store.Recent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent memories: %w", err)
	}
	return records, nil
}
