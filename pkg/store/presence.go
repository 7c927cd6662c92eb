package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Presence tracks which users currently have a room view open. The gateway
// writes it; the api exposes it.
type Presence interface {
	Add(ctx context.Context, roomID, email string) error
	Remove(ctx context.Context, roomID, email string) error
	List(ctx context.Context, roomID string) ([]string, error)
}

type RedisPresence struct {
	cli *redis.Client
}

func NewRedisPresence(cli *redis.Client) *RedisPresence {
	return &RedisPresence{cli: cli}
}

func viewersKey(roomID string) string {
	return "room:" + roomID + ":viewers"
}

func (p *RedisPresence) Add(ctx context.Context, roomID, email string) error {
	if err := p.cli.SAdd(ctx, viewersKey(roomID), email).Err(); err != nil {
		return fmt.Errorf("add viewer: %w", err)
	}
	return nil
}

func (p *RedisPresence) Remove(ctx context.Context, roomID, email string) error {
	if err := p.cli.SRem(ctx, viewersKey(roomID), email).Err(); err != nil {
		return fmt.Errorf("remove viewer: %w", err)
	}
	return nil
}

func (p *RedisPresence) List(ctx context.Context, roomID string) ([]string, error) {
	members, err := p.cli.SMembers(ctx, viewersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list viewers: %w", err)
	}
	return members, nil
}

// MemoryPresence is the in-process Presence used by tests.
type MemoryPresence struct {
	mu    sync.Mutex
	rooms map[string]map[string]bool
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{rooms: make(map[string]map[string]bool)}
}

func (p *MemoryPresence) Add(_ context.Context, roomID, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rooms[roomID] == nil {
		p.rooms[roomID] = make(map[string]bool)
	}
	p.rooms[roomID][email] = true
	return nil
}

func (p *MemoryPresence) Remove(_ context.Context, roomID, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rooms[roomID], email)
	return nil
}

func (p *MemoryPresence) List(_ context.Context, roomID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.rooms[roomID]))
	for email := range p.rooms[roomID] {
		out = append(out, email)
	}
	sort.Strings(out)
	return out, nil
}
