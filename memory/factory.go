package memory

import (
	"fmt"

	"github.com/dshills/deepresearch/graph/emit"
)

// Config selects and configures the memory backend.
type Config struct {
	// Backend is "pgvector" or "inmemory".
	Backend string

	// PostgresDSN is the connection string for the pgvector backend.
	PostgresDSN string

	// OpenAIKey authenticates the embedder. Empty selects the mock
	// embedder (development only).
	OpenAIKey string
}

// Opened is the result of Open: the live manager plus how it was opened.
type Opened struct {
	Manager  *Manager
	Backend  string
	Degraded bool
}

// Open creates the memory manager selected by cfg.
//
// Like the workflow store, an unreachable Postgres does not abort
// startup: Open falls back to the in-memory store, emits a "memory
// degraded" event, and marks the result Degraded.
func Open(cfg Config, emitter emit.Emitter) (*Opened, error) {
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}

	var embedder Embedder
	if cfg.OpenAIKey != "" {
		e, err := NewOpenAIEmbedder(cfg.OpenAIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		embedder = e
	} else {
		embedder = &MockEmbedder{Dim: 1536}
	}

	switch cfg.Backend {
	case "", "inmemory":
		return &Opened{
			Manager: NewManager(NewInMemoryStore(), embedder),
			Backend: "inmemory",
		}, nil

	case "pgvector":
		store, err := NewPgVectorStore(cfg.PostgresDSN)
		if err != nil {
			emitter.Emit(emit.Event{
				Msg: "memory degraded",
				Meta: map[string]interface{}{
					"wanted_backend": cfg.Backend,
					"error":          err.Error(),
				},
			})
			return &Opened{
				Manager:  NewManager(NewInMemoryStore(), embedder),
				Backend:  "inmemory",
				Degraded: true,
			}, nil
		}
		return &Opened{
			Manager: NewManager(store, embedder),
			Backend: "pgvector",
		}, nil

	default:
		return nil, fmt.Errorf("unknown memory backend: %q", cfg.Backend)
	}
}
