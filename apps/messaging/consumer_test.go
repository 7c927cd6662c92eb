package main

import (
	"context"
	"testing"
	"time"

	"github.com/neilotoole/slogt"

	"github.com/rizkyap/ngobrol/pkg/model"
	"github.com/rizkyap/ngobrol/pkg/store"
)

func newTestConsumer(t *testing.T) (*Consumer, *store.Memory, *store.MemoryCounters) {
	t.Helper()
	st := store.NewMemory()
	counters := store.NewMemoryCounters()
	c := &Consumer{store: st, counters: counters, log: slogt.New(t)}
	return c, st, counters
}

func seedRoom(t *testing.T, st store.Store) string {
	t.Helper()
	roomID := "room:alice@x.com:bob@x.com"
	err := st.UpsertRoom(context.Background(), model.Room{
		ID:           roomID,
		Participants: [2]string{"alice@x.com", "bob@x.com"},
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return roomID
}

func TestHandleMessageEvent(t *testing.T) {
	c, st, counters := newTestConsumer(t)
	ctx := context.Background()
	roomID := seedRoom(t, st)
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	msg := model.Message{ID: 1, RoomID: roomID, Sender: "alice@x.com", Text: "hello", Timestamp: at}
	c.handle(ctx, model.Event{Type: model.EventMessage, RoomID: roomID, Message: &msg})

	msgs, err := st.Messages(ctx, roomID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Text != "hello" {
		t.Fatalf("stored messages = %+v", msgs)
	}

	// Activity moves for both participants.
	for _, email := range []string{"alice@x.com", "bob@x.com"} {
		activity, err := st.LastActivity(ctx, email)
		if err != nil {
			t.Fatal(err)
		}
		if !activity[roomID].Equal(at) {
			t.Errorf("activity for %s = %v, want message timestamp", email, activity[roomID])
		}
	}

	// Only the recipient's unread counter moves.
	if n, _ := counters.Get(ctx, "bob@x.com", roomID); n != 1 {
		t.Errorf("recipient unread = %d, want 1", n)
	}
	if n, _ := counters.Get(ctx, "alice@x.com", roomID); n != 0 {
		t.Errorf("sender unread = %d, want 0", n)
	}
}

func TestHandleReadEvent(t *testing.T) {
	c, st, _ := newTestConsumer(t)
	ctx := context.Background()
	roomID := seedRoom(t, st)

	msg := model.Message{ID: 1, RoomID: roomID, Sender: "alice@x.com", Text: "hello", Timestamp: time.Now()}
	if err := st.InsertMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}

	c.handle(ctx, model.Event{Type: model.EventRead, RoomID: roomID, MessageID: 1})

	msgs, _ := st.Messages(ctx, roomID, 0)
	if !msgs[0].Read {
		t.Error("message not marked read")
	}
}

func TestHandleTypingEventIsEphemeral(t *testing.T) {
	c, st, _ := newTestConsumer(t)
	ctx := context.Background()
	roomID := seedRoom(t, st)

	c.handle(ctx, model.Event{Type: model.EventTyping, RoomID: roomID, Reader: "alice@x.com"})

	msgs, _ := st.Messages(ctx, roomID, 0)
	if len(msgs) != 0 {
		t.Errorf("typing event persisted: %+v", msgs)
	}
}
