package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is a Store backed by process memory.
//
// Used for development and as the degraded fallback when Postgres is
// unreachable. Search uses cosine similarity over all of the user's
// memories; fine for the volumes a single process sees.
type InMemoryStore struct {
	mu       sync.RWMutex
	memories []storedMemory
}

type storedMemory struct {
	userID    string
	content   string
	embedding []float64
	metadata  map[string]interface{}
	createdAt time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Save stores a memory.
func (s *InMemoryStore) Save(_ context.Context, userID, content string, embedding []float64, metadata map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memories = append(s.memories, storedMemory{
		userID:    userID,
		content:   content,
		embedding: embedding,
		metadata:  metadata,
		createdAt: time.Now(),
	})
	return nil
}

// Search returns the user's memories ranked by cosine similarity.
func (s *InMemoryStore) Search(_ context.Context, userID string, embedding []float64, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []Record
	for _, m := range s.memories {
		if m.userID != userID {
			continue
		}
		scored = append(scored, Record{
			Content:  m.content,
			Metadata: m.metadata,
			Score:    cosineSimilarity(embedding, m.embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Recent returns the user's memories newest first.
func (s *InMemoryStore) Recent(_ context.Context, userID string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type aged struct {
		rec Record
		at  time.Time
	}
	var out []aged
	for _, m := range s.memories {
		if m.userID != userID {
			continue
		}
		out = append(out, aged{
			rec: Record{Content: m.content, Metadata: m.metadata},
			at:  m.createdAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].at.After(out[j].at)
	})

	records := make([]Record, 0, len(out))
	for i, a := range out {
		if i >= limit {
			break
		}
		records = append(records, a.rec)
	}
	return records, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-length vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
