package stream

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"

	"github.com/rizkyap/ngobrol/pkg/model"
)

func drain(t *testing.T, sub *Subscription) []model.Message {
	t.Helper()
	var last []model.Message
	for {
		select {
		case snap, ok := <-sub.C:
			if !ok {
				return last
			}
			last = snap
		case <-time.After(100 * time.Millisecond):
			if last == nil {
				t.Fatal("no snapshot delivered")
			}
			return last
		}
	}
}

func stamped(id int64, room, sender, text string, at time.Time) model.Message {
	return model.Message{ID: id, RoomID: room, Sender: sender, Text: text, Timestamp: at}
}

func TestSubscribeDeliversCurrentSnapshot(t *testing.T) {
	b := NewBroker(slogt.New(t))
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	b.Seed("room:a:b", []model.Message{
		stamped(2, "room:a:b", "b@x.com", "second", base.Add(time.Minute)),
		stamped(1, "room:a:b", "a@x.com", "first", base),
	})

	sub := b.Subscribe("room:a:b")
	defer sub.Unsubscribe()

	snap := drain(t, sub)
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d messages, want 2", len(snap))
	}
	if snap[0].ID != 1 || snap[1].ID != 2 {
		t.Errorf("snapshot order = [%d %d], want [1 2]", snap[0].ID, snap[1].ID)
	}
}

func TestPublishKeepsTimestampOrder(t *testing.T) {
	b := NewBroker(slogt.New(t))
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	sub := b.Subscribe("room:a:b")
	defer sub.Unsubscribe()

	// Arrival order deliberately scrambled.
	b.Publish(stamped(3, "room:a:b", "a@x.com", "three", base.Add(2*time.Minute)))
	b.Publish(stamped(1, "room:a:b", "b@x.com", "one", base))
	b.Publish(stamped(2, "room:a:b", "a@x.com", "two", base.Add(time.Minute)))

	snap := drain(t, sub)
	for i := 1; i < len(snap); i++ {
		if snap[i].Timestamp.Before(snap[i-1].Timestamp) {
			t.Errorf("snapshot[%d] older than snapshot[%d]", i, i-1)
		}
	}
	if got := []int64{snap[0].ID, snap[1].ID, snap[2].ID}; !cmp.Equal(got, []int64{1, 2, 3}) {
		t.Errorf("order = %v, want [1 2 3]", got)
	}
}

func TestPendingSortsAfterStamped(t *testing.T) {
	b := NewBroker(slogt.New(t))
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	sub := b.Subscribe("room:a:b")
	defer sub.Unsubscribe()

	b.Publish(model.Message{RoomID: "room:a:b", Sender: "a@x.com", Text: "pending-2", LocalSeq: 2})
	b.Publish(model.Message{RoomID: "room:a:b", Sender: "a@x.com", Text: "pending-1", LocalSeq: 1})
	b.Publish(stamped(9, "room:a:b", "b@x.com", "stamped", base))

	snap := drain(t, sub)
	if len(snap) != 3 {
		t.Fatalf("snapshot has %d messages, want 3", len(snap))
	}
	if snap[0].ID != 9 {
		t.Errorf("stamped message not first, got %q", snap[0].Text)
	}
	if snap[1].Text != "pending-1" || snap[2].Text != "pending-2" {
		t.Errorf("pending order = [%q %q], want local send order", snap[1].Text, snap[2].Text)
	}
}

func TestStampReplacesPendingCopy(t *testing.T) {
	b := NewBroker(slogt.New(t))
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	b.Publish(stamped(5, "room:a:b", "b@x.com", "earlier", base.Add(time.Hour)))
	b.Publish(model.Message{RoomID: "room:a:b", Sender: "a@x.com", Text: "mine", LocalSeq: 1})

	// Server echo: same LocalSeq, now stamped before the other message.
	echo := stamped(6, "room:a:b", "a@x.com", "mine", base)
	echo.LocalSeq = 1
	b.Publish(echo)

	sub := b.Subscribe("room:a:b")
	defer sub.Unsubscribe()
	snap := drain(t, sub)

	if len(snap) != 2 {
		t.Fatalf("snapshot has %d messages, want 2 (pending copy must be replaced)", len(snap))
	}
	if snap[0].ID != 6 || snap[1].ID != 5 {
		t.Errorf("order = [%d %d], want resolved stamp to move the message first", snap[0].ID, snap[1].ID)
	}
}

func TestPublishSameIDIsIdempotent(t *testing.T) {
	b := NewBroker(slogt.New(t))
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	msg := stamped(7, "room:a:b", "a@x.com", "hello", base)
	b.Publish(msg)
	b.Publish(msg)

	sub := b.Subscribe("room:a:b")
	defer sub.Unsubscribe()
	if snap := drain(t, sub); len(snap) != 1 {
		t.Errorf("snapshot has %d messages, want 1", len(snap))
	}
}

func TestMarkRead(t *testing.T) {
	b := NewBroker(slogt.New(t))
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	b.Publish(stamped(1, "room:a:b", "b@x.com", "hi", base))

	sub := b.Subscribe("room:a:b")
	defer sub.Unsubscribe()
	drain(t, sub)

	b.MarkRead("room:a:b", 1)
	snap := drain(t, sub)
	if !snap[0].Read {
		t.Error("message not marked read")
	}

	// Re-marking must not emit again.
	b.MarkRead("room:a:b", 1)
	select {
	case <-sub.C:
		t.Error("re-marking an already read message emitted a snapshot")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeReleasesListener(t *testing.T) {
	b := NewBroker(slogt.New(t))

	sub1 := b.Subscribe("room:a:b")
	sub2 := b.Subscribe("room:a:b")
	if got := b.Listeners("room:a:b"); got != 2 {
		t.Fatalf("Listeners = %d, want 2", got)
	}

	sub1.Unsubscribe()
	sub1.Unsubscribe() // second call is a no-op
	if got := b.Listeners("room:a:b"); got != 1 {
		t.Errorf("Listeners after unsubscribe = %d, want 1", got)
	}
	sub2.Unsubscribe()
	if got := b.Listeners("room:a:b"); got != 0 {
		t.Errorf("Listeners after teardown = %d, want 0", got)
	}
}

func TestSlowSubscriberKeepsLatestSnapshot(t *testing.T) {
	b := NewBroker(slogt.New(t))
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	sub := b.Subscribe("room:a:b")
	defer sub.Unsubscribe()

	// Overrun the channel buffer without reading.
	for i := 1; i <= subBuffer*3; i++ {
		b.Publish(stamped(int64(i), "room:a:b", "b@x.com", "m", base.Add(time.Duration(i)*time.Second)))
	}

	snap := drain(t, sub)
	if len(snap) != subBuffer*3 {
		t.Errorf("latest snapshot has %d messages, want %d", len(snap), subBuffer*3)
	}
}

func TestLast(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		msgs   []model.Message
		wantID int64
		wantOK bool
	}{
		{name: "empty", msgs: nil, wantOK: false},
		{
			name:   "only pending",
			msgs:   []model.Message{{Sender: "a@x.com", Text: "draft", LocalSeq: 1}},
			wantOK: false,
		},
		{
			name: "newest stamped wins",
			msgs: []model.Message{
				stamped(1, "r", "a@x.com", "old", base),
				stamped(2, "r", "b@x.com", "new", base.Add(time.Minute)),
				{Sender: "a@x.com", Text: "draft", LocalSeq: 1},
			},
			wantID: 2,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Last(tt.msgs)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("Last().ID = %d, want %d", got.ID, tt.wantID)
			}
		})
	}
}
