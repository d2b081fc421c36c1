package chatbot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// AttemptTracker counts unresolved turns per chat session.
type AttemptTracker interface {
	// RecordFailedAttempt increments the session's counter and returns the new value.
	RecordFailedAttempt(ctx context.Context, sessionID string) (int, error)
	// Reset clears the session's counter.
	Reset(ctx context.Context, sessionID string) error
}

const attemptShards = 32

type attemptShard struct {
	mu     sync.Mutex
	counts map[string]int
}

// MemoryAttemptTracker keeps counters for the life of the process. Keys are
// spread over shards so concurrent sessions rarely contend on one lock.
type MemoryAttemptTracker struct {
	shards [attemptShards]attemptShard
}

// NewMemoryAttemptTracker creates an empty tracker.
func NewMemoryAttemptTracker() *MemoryAttemptTracker {
	t := &MemoryAttemptTracker{}
	for i := range t.shards {
		t.shards[i].counts = make(map[string]int)
	}
	return t
}

func (t *MemoryAttemptTracker) shard(sessionID string) *attemptShard {
	return &t.shards[xxhash.Sum64String(sessionID)%attemptShards]
}

// RecordFailedAttempt implements AttemptTracker.
func (t *MemoryAttemptTracker) RecordFailedAttempt(_ context.Context, sessionID string) (int, error) {
	s := t.shard(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[sessionID]++
	return s.counts[sessionID], nil
}

// Reset implements AttemptTracker.
func (t *MemoryAttemptTracker) Reset(_ context.Context, sessionID string) error {
	s := t.shard(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, sessionID)
	return nil
}

// Count returns the current counter for sessionID.
func (t *MemoryAttemptTracker) Count(sessionID string) int {
	s := t.shard(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[sessionID]
}

// RedisAttemptTracker shares counters between server instances. Each key
// expires ttl after its last increment.
type RedisAttemptTracker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisAttemptTracker creates a tracker storing keys under prefix.
func NewRedisAttemptTracker(client *redis.Client, prefix string, ttl time.Duration) *RedisAttemptTracker {
	if prefix == "" {
		prefix = "chatbot:failed_attempts:"
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisAttemptTracker{client: client, prefix: prefix, ttl: ttl}
}

func (t *RedisAttemptTracker) key(sessionID string) string {
	return t.prefix + sessionID
}

// RecordFailedAttempt implements AttemptTracker.
func (t *RedisAttemptTracker) RecordFailedAttempt(ctx context.Context, sessionID string) (int, error) {
	key := t.key(sessionID)

	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to record attempt for %s: %w", sessionID, err)
	}

	return int(incr.Val()), nil
}

// Reset implements AttemptTracker.
func (t *RedisAttemptTracker) Reset(ctx context.Context, sessionID string) error {
	if err := t.client.Del(ctx, t.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to reset attempts for %s: %w", sessionID, err)
	}
	return nil
}
