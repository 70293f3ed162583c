package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no snapshot exists for a run ID.
var ErrNotFound = errors.New("run not found")

// ErrNotAwaiting is returned when a resume targets a run that is not paused.
var ErrNotAwaiting = errors.New("run is not awaiting human input")

// Store persists run snapshots. Every state transition writes the whole
// snapshot; reads always return the latest one.
type Store interface {
	Save(ctx context.Context, state *RunState) error
	Load(ctx context.Context, id string) (*RunState, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps each run as one JSON blob under "run:<id>".
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func runKey(id string) string { return "run:" + id }

func (s *RedisStore) Save(ctx context.Context, state *RunState) error {
	state.UpdatedAt = time.Now().UTC()
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", state.ID, err)
	}
	if err := s.client.Set(ctx, runKey(state.ID), blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("save run %s: %w", state.ID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*RunState, error) {
	blob, err := s.client.Get(ctx, runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	var state RunState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &state, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, runKey(id)).Err()
}

// Close releases the redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }

// MemoryStore is the in-process Store used by tests and the one-shot CLI.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, state *RunState) error {
	state.UpdatedAt = time.Now().UTC()
	blob, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[state.ID] = blob
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*RunState, error) {
	s.mu.RLock()
	blob, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var state RunState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}
