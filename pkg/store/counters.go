package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Counters tracks per-user unread message counts per room. The count is
// advisory (the read flag on each message is authoritative); resetting it is
// how a drained room view reports "caught up".
type Counters interface {
	Incr(ctx context.Context, email, roomID string) error
	Reset(ctx context.Context, email, roomID string) error
	Get(ctx context.Context, email, roomID string) (int64, error)
}

// RedisCounters keeps unread counts in Redis so the api and gateway services
// share them.
type RedisCounters struct {
	cli *redis.Client
}

func NewRedisCounters(cli *redis.Client) *RedisCounters {
	return &RedisCounters{cli: cli}
}

func unreadKey(email, roomID string) string {
	return "unread:" + email + ":" + roomID
}

func (c *RedisCounters) Incr(ctx context.Context, email, roomID string) error {
	if err := c.cli.Incr(ctx, unreadKey(email, roomID)).Err(); err != nil {
		return fmt.Errorf("incr unread: %w", err)
	}
	return nil
}

func (c *RedisCounters) Reset(ctx context.Context, email, roomID string) error {
	if err := c.cli.Del(ctx, unreadKey(email, roomID)).Err(); err != nil {
		return fmt.Errorf("reset unread: %w", err)
	}
	return nil
}

func (c *RedisCounters) Get(ctx context.Context, email, roomID string) (int64, error) {
	n, err := c.cli.Get(ctx, unreadKey(email, roomID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get unread: %w", err)
	}
	return n, nil
}

// MemoryCounters is the in-process Counters used by tests.
type MemoryCounters struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{counts: make(map[string]int64)}
}

func (c *MemoryCounters) Incr(_ context.Context, email, roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[unreadKey(email, roomID)]++
	return nil
}

func (c *MemoryCounters) Reset(_ context.Context, email, roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, unreadKey(email, roomID))
	return nil
}

func (c *MemoryCounters) Get(_ context.Context, email, roomID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[unreadKey(email, roomID)], nil
}
