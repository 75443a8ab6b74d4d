package devbackend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockoutMaxFailures = 5
	lockoutDuration    = 15 * time.Minute
	failureWindow      = 15 * time.Minute
)

// LockoutStore tracks password failures per identifier and locks an
// account after too many in a row.
type LockoutStore interface {
	// RecordFailure increments the failure count and reports the new
	// total.
	RecordFailure(ctx context.Context, identifier string) (int, error)
	// ClearFailures resets the count, called on successful login.
	ClearFailures(ctx context.Context, identifier string) error
	// Lock locks the identifier for the given duration.
	Lock(ctx context.Context, identifier string, d time.Duration) error
	// IsLocked reports whether the identifier is currently locked.
	IsLocked(ctx context.Context, identifier string) (bool, error)
}

// MemoryLockoutStore is the single-process default.
type MemoryLockoutStore struct {
	mu       sync.Mutex
	failures map[string]*failureRecord
	locks    map[string]time.Time
}

type failureRecord struct {
	count     int
	expiresAt time.Time
}

func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{
		failures: make(map[string]*failureRecord),
		locks:    make(map[string]time.Time),
	}
}

func (s *MemoryLockoutStore) RecordFailure(ctx context.Context, identifier string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.failures[identifier]
	if rec == nil || time.Now().After(rec.expiresAt) {
		rec = &failureRecord{expiresAt: time.Now().Add(failureWindow)}
		s.failures[identifier] = rec
	}
	rec.count++
	return rec.count, nil
}

func (s *MemoryLockoutStore) ClearFailures(ctx context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, identifier)
	return nil
}

func (s *MemoryLockoutStore) Lock(ctx context.Context, identifier string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[identifier] = time.Now().Add(d)
	delete(s.failures, identifier)
	return nil
}

func (s *MemoryLockoutStore) IsLocked(ctx context.Context, identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.locks[identifier]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(s.locks, identifier)
		return false, nil
	}
	return true, nil
}

// RedisLockoutStore shares lockout state across dev backend instances.
type RedisLockoutStore struct {
	client *redis.Client
	prefix string
}

func NewRedisLockoutStore(client *redis.Client) *RedisLockoutStore {
	return &RedisLockoutStore{client: client, prefix: "authgate:lockout:"}
}

func (s *RedisLockoutStore) failureKey(identifier string) string {
	return s.prefix + "failures:" + identifier
}

func (s *RedisLockoutStore) lockKey(identifier string) string {
	return s.prefix + "locked:" + identifier
}

func (s *RedisLockoutStore) RecordFailure(ctx context.Context, identifier string) (int, error) {
	key := s.failureKey(identifier)

	// Atomic increment + expire on first failure.
	script := redis.NewScript(`
		local count = redis.call('INCR', KEYS[1])
		if count == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		return count
	`)
	result, err := script.Run(ctx, s.client, []string{key}, failureWindow.Milliseconds()).Result()
	if err != nil {
		return 0, fmt.Errorf("lockout: record failure: %w", err)
	}
	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("lockout: unexpected result type %T", result)
	}
	return int(count), nil
}

func (s *RedisLockoutStore) ClearFailures(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, s.failureKey(identifier)).Err(); err != nil {
		return fmt.Errorf("lockout: clear failures: %w", err)
	}
	return nil
}

func (s *RedisLockoutStore) Lock(ctx context.Context, identifier string, d time.Duration) error {
	if err := s.client.Set(ctx, s.lockKey(identifier), time.Now().Add(d).Unix(), d).Err(); err != nil {
		return fmt.Errorf("lockout: lock: %w", err)
	}
	return s.ClearFailures(ctx, identifier)
}

func (s *RedisLockoutStore) IsLocked(ctx context.Context, identifier string) (bool, error) {
	n, err := s.client.Exists(ctx, s.lockKey(identifier)).Result()
	if err != nil {
		return false, fmt.Errorf("lockout: check: %w", err)
	}
	return n > 0, nil
}
