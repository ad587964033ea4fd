package store

import (
	"fmt"
	"time"

	"github.com/dshills/deepresearch/graph/emit"
)

// Config selects and configures a persistence backend.
type Config struct {
	// Backend is one of "memory", "sqlite", "postgres", "redis".
	Backend string

	// SQLitePath is the database file path for the sqlite backend.
	SQLitePath string

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string

	// RedisAddr is host:port for the redis backend.
	RedisAddr string

	// RedisPassword is the redis auth password (empty for none).
	RedisPassword string

	// RedisDB is the redis database number.
	RedisDB int

	// RedisTTL bounds record lifetime for the redis backend (0 = no expiry).
	RedisTTL time.Duration
}

// Opened is the result of Open: the live store plus how it was opened.
//
// Degraded is true when the configured database backend was unreachable
// and the store silently fell back to in-memory persistence. Callers
// should surface this in health checks so operators know that
// checkpoint durability is gone.
type Opened[S any] struct {
	Store    Store[S]
	Backend  string
	Degraded bool
}

// Open creates the store selected by cfg.Backend.
//
// Database backends that fail to connect do not abort startup. Instead
// Open falls back to an in-memory store, emits a "store degraded" event
// on the provided emitter, and marks the result Degraded. Research runs
// still work; they just lose durability.
//
// An unknown backend name is a configuration mistake and returns an
// error rather than falling back.
func Open[S any](cfg Config, emitter emit.Emitter) (*Opened[S], error) {
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}

	switch cfg.Backend {
	case "", "memory":
		return &Opened[S]{Store: NewMemStore[S](), Backend: "memory"}, nil

	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "./research.db"
		}
		s, err := NewSQLiteStore[S](path)
		if err != nil {
			return fallback[S](cfg.Backend, err, emitter), nil
		}
		return &Opened[S]{Store: s, Backend: "sqlite"}, nil

	case "postgres":
		s, err := NewPostgresStore[S](cfg.PostgresDSN)
		if err != nil {
			return fallback[S](cfg.Backend, err, emitter), nil
		}
		return &Opened[S]{Store: s, Backend: "postgres"}, nil

	case "redis":
		s, err := NewRedisStore[S](cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			return fallback[S](cfg.Backend, err, emitter), nil
		}
		return &Opened[S]{Store: s, Backend: "redis"}, nil

	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}

// fallback builds a degraded in-memory result and announces it.
func fallback[S any](wanted string, cause error, emitter emit.Emitter) *Opened[S] {
	emitter.Emit(emit.Event{
		Msg: "store degraded",
		Meta: map[string]interface{}{
			"wanted_backend": wanted,
			"error":          cause.Error(),
		},
	})

	return &Opened[S]{
		Store:    NewMemStore[S](),
		Backend:  "memory",
		Degraded: true,
	}
}
