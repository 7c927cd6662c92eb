package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rizkyap/ngobrol/pkg/model"
)

// Memory is an in-process Store used by tests and by the embedded client
// core. It mirrors the Scylla implementation's semantics, including the
// idempotent room upsert.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]model.User
	rooms    map[string]model.Room
	messages map[string][]model.Message
	activity map[string]map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]model.User),
		rooms:    make(map[string]model.Room),
		messages: make(map[string][]model.Message),
		activity: make(map[string]map[string]time.Time),
	}
}

func (m *Memory) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return fmt.Errorf("user %s: %w", user.Email, ErrExists)
	}
	m.users[user.Email] = *user
	return nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return &u, nil
}

func (m *Memory) UpdateProfile(_ context.Context, email, name, image string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	u.Name = name
	u.Image = image
	m.users[email] = u
	return nil
}

func (m *Memory) UpsertRoom(_ context.Context, room model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rooms[room.ID]; ok {
		// Keep the first creation time; membership is immutable anyway.
		room.CreatedAt = existing.CreatedAt
	}
	m.rooms[room.ID] = room
	return nil
}

func (m *Memory) GetRoom(_ context.Context, id string) (*model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	return &r, nil
}

func (m *Memory) RoomsFor(_ context.Context, email string) ([]model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rooms []model.Room
	for _, r := range m.rooms {
		if r.Has(email) {
			rooms = append(rooms, r)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (m *Memory) InsertMessage(_ context.Context, msg model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.Reply != nil {
		// Store a copy so the caller cannot mutate the snapshot afterwards.
		reply := *msg.Reply
		msg.Reply = &reply
	}
	m.messages[msg.RoomID] = append(m.messages[msg.RoomID], msg)
	return nil
}

func (m *Memory) Messages(_ context.Context, roomID string, limit int) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[roomID]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkRead(_ context.Context, roomID string, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[roomID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("message %d in room %s: %w", messageID, roomID, ErrNotFound)
}

func (m *Memory) TouchActivity(_ context.Context, email, roomID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activity[email] == nil {
		m.activity[email] = make(map[string]time.Time)
	}
	m.activity[email][roomID] = at
	return nil
}

func (m *Memory) LastActivity(_ context.Context, email string) (map[string]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]time.Time, len(m.activity[email]))
	for roomID, at := range m.activity[email] {
		out[roomID] = at
	}
	return out, nil
}
