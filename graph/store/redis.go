package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of Store[S].
//
// Designed for production deployments that need low-latency persistence
// shared across processes. All records are stored as JSON strings.
//
// Key layout:
//   - research:run:{runID}:step:{n}  -> redisStepRecord JSON
//   - research:run:{runID}:latest    -> latest step number
//   - research:checkpoint:{cpID}     -> redisCheckpoint JSON
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type RedisStore[S any] struct {
	client *redis.Client
	ttl    time.Duration
}

type redisStepRecord[S any] struct {
	Step   int    `json:"step"`
	NodeID string `json:"node_id"`
	State  S      `json:"state"`
}

type redisCheckpoint[S any] struct {
	State S   `json:"state"`
	Step  int `json:"step"`
}

// NewRedisStore creates a new Redis-backed store.
//
// The addr parameter is host:port (e.g. "localhost:6379"). A ttl of zero
// means records never expire; non-zero ttl bounds memory usage for
// abandoned runs.
//
// The store verifies connectivity with a ping so callers can fall back
// to an in-memory store when Redis is unreachable.
func NewRedisStore[S any](addr, password string, db int, ttl time.Duration) (*RedisStore[S], error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisStore[S]{client: client, ttl: ttl}, nil
}

// NewRedisStoreFromClient wraps an existing Redis client.
//
// Useful for tests that inject a miniredis-backed client.
func NewRedisStoreFromClient[S any](client *redis.Client, ttl time.Duration) *RedisStore[S] {
	return &RedisStore[S]{client: client, ttl: ttl}
}

func stepKey(runID string, step int) string {
	return fmt.Sprintf("research:run:%s:step:%d", runID, step)
}

func latestKey(runID string) string {
	return fmt.Sprintf("research:run:%s:latest", runID)
}

func checkpointKey(cpID string) string {
	return fmt.Sprintf("research:checkpoint:%s", cpID)
}

// SaveStep persists a workflow execution step (implements Store interface).
//
// The step record and the latest-step pointer are written in a pipeline
// so readers never observe a pointer to a missing record.
func (r *RedisStore[S]) SaveStep(ctx context.Context, runID string, step int, nodeID string, state S) error {
	record := redisStepRecord[S]{
		Step:   step,
		NodeID: nodeID,
		State:  state,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal step record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, stepKey(runID, step), data, r.ttl)
	pipe.Set(ctx, latestKey(runID), step, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}

	return nil
}

// LoadLatest retrieves the most recent step for a run (implements Store interface).
//
// Returns ErrNotFound if no steps exist for the runID.
func (r *RedisStore[S]) LoadLatest(ctx context.Context, runID string) (state S, step int, nodeID string, err error) {
	var zero S

	step, err = r.client.Get(ctx, latestKey(runID)).Int()
	if errors.Is(err, redis.Nil) {
		return zero, 0, "", ErrNotFound
	}
	if err != nil {
		return zero, 0, "", fmt.Errorf("failed to load latest step number: %w", err)
	}

	data, err := r.client.Get(ctx, stepKey(runID, step)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, 0, "", ErrNotFound
	}
	if err != nil {
		return zero, 0, "", fmt.Errorf("failed to load step record: %w", err)
	}

	var record redisStepRecord[S]
	if err := json.Unmarshal(data, &record); err != nil {
		return zero, 0, "", fmt.Errorf("failed to unmarshal step record: %w", err)
	}

	return record.State, record.Step, record.NodeID, nil
}

// SaveCheckpoint creates a named checkpoint (implements Store interface).
//
// If a checkpoint with the same ID exists, it is overwritten.
func (r *RedisStore[S]) SaveCheckpoint(ctx context.Context, cpID string, state S, step int) error {
	data, err := json.Marshal(redisCheckpoint[S]{State: state, Step: step})
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := r.client.Set(ctx, checkpointKey(cpID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// LoadCheckpoint retrieves a named checkpoint (implements Store interface).
//
// Returns ErrNotFound if the checkpoint ID doesn't exist.
func (r *RedisStore[S]) LoadCheckpoint(ctx context.Context, cpID string) (state S, step int, err error) {
	var zero S

	data, err := r.client.Get(ctx, checkpointKey(cpID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, 0, ErrNotFound
	}
	if err != nil {
		return zero, 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var cp redisCheckpoint[S]
	if err := json.Unmarshal(data, &cp); err != nil {
		return zero, 0, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	return cp.State, cp.Step, nil
}

// Close closes the Redis client.
func (r *RedisStore[S]) Close() error {
	return r.client.Close()
}
