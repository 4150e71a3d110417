package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/safarides/safar-backend/pkg/logger"
	redisclient "github.com/safarides/safar-backend/pkg/redis"
	"go.uber.org/zap"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache: key not found")

// Store is the ephemeral KV used for OTP codes and quote caching: string
// values with a per-key TTL. No transactions, no persistence guarantees.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GetJSON reads a key and unmarshals its value into out.
func GetJSON(ctx context.Context, s Store, key string, out interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

// SetJSON marshals value and stores it under key with the given TTL.
func SetJSON(ctx context.Context, s Store, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return s.Set(ctx, key, string(raw), ttl)
}

// RedisStore backs Store with Redis.
type RedisStore struct {
	client *redisclient.Client
}

// NewRedisStore wraps a Redis client as a Store.
func NewRedisStore(client *redisclient.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.GetString(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.SetWithExpiration(ctx, key, value, ttl)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Delete(ctx, key)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store with TTL support. Used directly in tests
// and as the degraded mode when Redis is unreachable.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	done    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its expiry janitor.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, e := range s.entries {
				if !e.expiresAt.IsZero() && e.expiresAt.Before(now) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", ErrMiss
	}
	if !entry.expiresAt.IsZero() && entry.expiresAt.Before(time.Now()) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", ErrMiss
	}
	return entry.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

// FallbackStore wraps a primary Store and degrades to an in-memory one when
// the primary errors. A restart in degraded mode loses OTPs and the quote
// selection fast-path, which the product accepts.
type FallbackStore struct {
	primary  Store
	fallback *MemoryStore
	degraded sync.Once
}

// NewFallbackStore wraps primary with in-memory degradation.
func NewFallbackStore(primary Store) *FallbackStore {
	return &FallbackStore{
		primary:  primary,
		fallback: NewMemoryStore(),
	}
}

func (s *FallbackStore) warnOnce(err error) {
	s.degraded.Do(func() {
		logger.Warn("cache unreachable, degrading to in-memory store", zap.Error(err))
	})
}

func (s *FallbackStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.primary.Get(ctx, key)
	if err == nil || errors.Is(err, ErrMiss) {
		return val, err
	}
	s.warnOnce(err)
	return s.fallback.Get(ctx, key)
}

func (s *FallbackStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.primary.Set(ctx, key, value, ttl); err != nil {
		s.warnOnce(err)
		return s.fallback.Set(ctx, key, value, ttl)
	}
	return nil
}

func (s *FallbackStore) Delete(ctx context.Context, key string) error {
	if err := s.primary.Delete(ctx, key); err != nil {
		s.warnOnce(err)
		return s.fallback.Delete(ctx, key)
	}
	return nil
}
