package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/rizkyap/ngobrol/pkg/model"
)

func TestMemoryUsers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	user := &model.User{Email: "alice@x.com", Name: "Alice", PasswordHash: "hash"}
	if err := m.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateUser(ctx, user); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate create error = %v, want ErrExists", err)
	}

	got, err := m.GetUserByEmail(ctx, "alice@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(user, got); diff != "" {
		t.Errorf("user mismatch (-want +got):\n%s", diff)
	}

	if _, err := m.GetUserByEmail(ctx, "ghost@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}

	if err := m.UpdateProfile(ctx, "alice@x.com", "Alicia", "https://cdn/a.jpg"); err != nil {
		t.Fatal(err)
	}
	got, _ = m.GetUserByEmail(ctx, "alice@x.com")
	if got.Name != "Alicia" || got.Image != "https://cdn/a.jpg" {
		t.Errorf("profile after update = %+v", got)
	}
}

func TestMemoryUpsertRoomIsIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	room := model.Room{
		ID:           "room:alice@x.com:bob@x.com",
		Participants: [2]string{"alice@x.com", "bob@x.com"},
		CreatedAt:    base,
	}
	if err := m.UpsertRoom(ctx, room); err != nil {
		t.Fatal(err)
	}

	// A concurrent resolution lands on the same id with a later clock.
	later := room
	later.CreatedAt = base.Add(time.Hour)
	if err := m.UpsertRoom(ctx, later); err != nil {
		t.Fatal(err)
	}

	got, err := m.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want first creation time kept", got.CreatedAt)
	}

	rooms, err := m.RoomsFor(ctx, "bob@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 1 {
		t.Errorf("room count = %d, want 1", len(rooms))
	}
}

func TestMemoryMessages(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	reply := &model.ReplyRef{MessageID: 1, Sender: "alice@x.com", Text: "original"}
	msgs := []model.Message{
		{ID: 2, RoomID: "r", Sender: "bob@x.com", Text: "second", Timestamp: base.Add(time.Minute), Reply: reply},
		{ID: 1, RoomID: "r", Sender: "alice@x.com", Text: "first", Timestamp: base},
	}
	for _, msg := range msgs {
		if err := m.InsertMessage(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	// The stored reply is a copy; mutating the caller's value changes nothing.
	reply.Text = "mutated"

	got, err := m.Messages(ctx, "r", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("messages = %+v", got)
	}
	if got[1].Reply.Text != "original" {
		t.Errorf("reply text = %q, want stored copy untouched", got[1].Reply.Text)
	}

	limited, err := m.Messages(ctx, "r", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limited count = %d, want 1", len(limited))
	}
}

func TestMemoryMarkRead(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.InsertMessage(ctx, model.Message{ID: 1, RoomID: "r", Sender: "a@x.com", Text: "hi", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}

	if err := m.MarkRead(ctx, "r", 1); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Messages(ctx, "r", 0)
	if !got[0].Read {
		t.Error("message not read after MarkRead")
	}

	if err := m.MarkRead(ctx, "r", 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown message error = %v, want ErrNotFound", err)
	}
}

func TestMemoryActivity(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	if err := m.TouchActivity(ctx, "alice@x.com", "r1", base); err != nil {
		t.Fatal(err)
	}
	if err := m.TouchActivity(ctx, "alice@x.com", "r1", base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := m.LastActivity(ctx, "alice@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if !got["r1"].Equal(base.Add(time.Hour)) {
		t.Errorf("activity = %v, want latest touch", got["r1"])
	}
}

func TestMemoryCounters(t *testing.T) {
	c := NewMemoryCounters()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := c.Incr(ctx, "alice@x.com", "r1"); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := c.Get(ctx, "alice@x.com", "r1"); n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	// Another user's counter is independent.
	if n, _ := c.Get(ctx, "bob@x.com", "r1"); n != 0 {
		t.Errorf("other user's count = %d, want 0", n)
	}

	if err := c.Reset(ctx, "alice@x.com", "r1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Get(ctx, "alice@x.com", "r1"); n != 0 {
		t.Errorf("count after reset = %d, want 0", n)
	}
}

func TestMemoryPresence(t *testing.T) {
	p := NewMemoryPresence()
	ctx := context.Background()

	if err := p.Add(ctx, "r1", "alice@x.com"); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(ctx, "r1", "bob@x.com"); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(ctx, "r1", "alice@x.com"); err != nil {
		t.Fatal(err)
	}

	viewers, err := p.List(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(viewers) != 2 {
		t.Errorf("viewers = %v, want set semantics", viewers)
	}

	if err := p.Remove(ctx, "r1", "alice@x.com"); err != nil {
		t.Fatal(err)
	}
	viewers, _ = p.List(ctx, "r1")
	if len(viewers) != 1 || viewers[0] != "bob@x.com" {
		t.Errorf("viewers after remove = %v", viewers)
	}
}
