package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a session has no stored state.
var ErrNotFound = errors.New("session state not found")

// State is the conversational context carried between commands of one
// session.
type State struct {
	// PatientID is the most recently resolved patient identifier.
	PatientID string `json:"patient_id,omitempty"`
	// PatientName is the display name of the resolved patient.
	PatientName string `json:"patient_name,omitempty"`
	// UpdatedAt is when the state last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists session state across commands.
type Store interface {
	Get(ctx context.Context, sessionID string) (State, error)
	Put(ctx context.Context, sessionID string, state State) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// Config holds session store settings.
type Config struct {
	// Addr is the Redis address. Empty selects the in-memory store.
	Addr string `yaml:"addr"`
	// Password authenticates against Redis when set.
	Password string `yaml:"password"`
	// DB is the Redis database number.
	DB int `yaml:"db"`
	// TTL bounds how long idle session state is retained.
	TTL time.Duration `yaml:"ttl"`
}

// DefaultConfig returns the default session store settings.
func DefaultConfig() Config {
	return Config{TTL: 30 * time.Minute}
}

// NewStore creates a Redis-backed store when config.Addr is set and an
// in-memory store otherwise.
func NewStore(config Config, logger *zap.Logger) (Store, error) {
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Addr == "" {
		logger.Info("session store running in memory")
		return NewMemoryStore(config.TTL), nil
	}
	return newRedisStore(config, logger)
}

// redisStore keeps session state in Redis with a sliding TTL.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func newRedisStore(config Config, logger *zap.Logger) (*redisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("session store connected",
		zap.String("addr", config.Addr),
		zap.Duration("ttl", config.TTL),
	)
	return &redisStore{
		client: client,
		ttl:    config.TTL,
		logger: logger.With(zap.String("component", "session_store")),
	}, nil
}

func sessionKey(sessionID string) string {
	return "voxflow:session:" + sessionID
}

func (s *redisStore) Get(ctx context.Context, sessionID string) (State, error) {
	val, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return State{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error("session get failed", zap.String("session_id", sessionID), zap.Error(err))
		return State{}, fmt.Errorf("session get failed: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return State{}, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return state, nil
}

func (s *redisStore) Put(ctx context.Context, sessionID string, state State) error {
	state.UpdatedAt = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		s.logger.Error("session put failed", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("session put failed: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session delete failed: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

// MemoryStore is the in-process fallback used when no Redis address is
// configured. Expiry is enforced lazily on read.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (State, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok {
		return State{}, ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return State{}, ErrNotFound
	}
	return entry.state, nil
}

func (s *MemoryStore) Put(ctx context.Context, sessionID string, state State) error {
	state.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{
		state:     state,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
