// Package stream holds the live, ordered per-room message feeds. A Broker
// keeps the current message sequence for each room and re-emits the full
// ordered snapshot to every subscriber on each change, which is how room
// views, the read-state reconciler and the directory all observe the room.
package stream

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/rizkyap/ngobrol/pkg/model"
)

// subBuffer bounds each subscription channel. When a subscriber lags, older
// snapshots are dropped; only the latest state matters.
const subBuffer = 16

type Broker struct {
	mu    sync.Mutex
	rooms map[string]*roomState
	log   *slog.Logger
}

type roomState struct {
	msgs []model.Message
	subs map[*Subscription]bool
}

func NewBroker(log *slog.Logger) *Broker {
	return &Broker{
		rooms: make(map[string]*roomState),
		log:   log,
	}
}

// Subscription is a cancellable live feed of one room's ordered message
// snapshots. Every view that opens one must call Unsubscribe on teardown or
// it leaks a permanent listener.
type Subscription struct {
	C      <-chan []model.Message
	c      chan []model.Message
	broker *Broker
	roomID string
	once   sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()
		if room, ok := s.broker.rooms[s.roomID]; ok {
			delete(room.subs, s)
		}
		close(s.c)
	})
}

// Subscribe opens a feed for roomID. The current snapshot is delivered
// immediately, then one snapshot per change.
func (b *Broker) Subscribe(roomID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.room(roomID)
	sub := &Subscription{
		c:      make(chan []model.Message, subBuffer),
		broker: b,
		roomID: roomID,
	}
	sub.C = sub.c
	room.subs[sub] = true
	b.log.Debug("subscriber attached", "room", roomID, "listeners", len(room.subs))
	deliver(sub, snapshot(room.msgs))
	return sub
}

// Listeners reports how many subscriptions a room currently has. Teardown
// tests use it to catch leaked subscriptions.
func (b *Broker) Listeners(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room, ok := b.rooms[roomID]; ok {
		return len(room.subs)
	}
	return 0
}

// Seed replaces a room's sequence with history loaded from the store. Used
// once when the first view of a room opens.
func (b *Broker) Seed(roomID string, msgs []model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.room(roomID)
	room.msgs = make([]model.Message, len(msgs))
	copy(room.msgs, msgs)
	b.emit(room)
}

// Seeded reports whether the room already holds any state.
func (b *Broker) Seeded(roomID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	room, ok := b.rooms[roomID]
	return ok && len(room.msgs) > 0
}

// Publish applies an inserted message and re-emits. A stamped message
// replaces the sender's pending copy with the same LocalSeq, so the optimistic
// entry corrects its position once the server echo arrives. Re-publishing an
// id already present is a no-op apart from the re-emission.
func (b *Broker) Publish(msg model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.room(msg.RoomID)
	if msg.ID != 0 {
		for i := range room.msgs {
			same := room.msgs[i].ID == msg.ID ||
				(room.msgs[i].Pending() && room.msgs[i].Sender == msg.Sender && room.msgs[i].LocalSeq == msg.LocalSeq && msg.LocalSeq != 0)
			if same {
				room.msgs[i] = msg
				b.emit(room)
				return
			}
		}
	}
	room.msgs = append(room.msgs, msg)
	b.emit(room)
}

// MarkRead flips the read flag on one message and re-emits.
func (b *Broker) MarkRead(roomID string, messageID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.room(roomID)
	for i := range room.msgs {
		if room.msgs[i].ID == messageID {
			if room.msgs[i].Read {
				return
			}
			room.msgs[i].Read = true
			b.emit(room)
			return
		}
	}
}

func (b *Broker) room(roomID string) *roomState {
	room, ok := b.rooms[roomID]
	if !ok {
		room = &roomState{subs: make(map[*Subscription]bool)}
		b.rooms[roomID] = room
	}
	return room
}

// emit sorts the sequence and fans the snapshot out. Caller holds b.mu.
func (b *Broker) emit(room *roomState) {
	sortMessages(room.msgs)
	snap := snapshot(room.msgs)
	for sub := range room.subs {
		deliver(sub, snap)
	}
}

func deliver(sub *Subscription, snap []model.Message) {
	for {
		select {
		case sub.c <- snap:
			return
		default:
			// Drop the oldest queued snapshot to make room.
			select {
			case <-sub.c:
			default:
			}
		}
	}
}

func snapshot(msgs []model.Message) []model.Message {
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out
}

// sortMessages orders by server timestamp ascending. Pending messages (no
// server timestamp yet) sort after every stamped message, in local send
// order; they move to their final position when the stamp resolves.
func sortMessages(msgs []model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		switch {
		case a.Pending() && b.Pending():
			return a.LocalSeq < b.LocalSeq
		case a.Pending():
			return false
		case b.Pending():
			return true
		case !a.Timestamp.Equal(b.Timestamp):
			return a.Timestamp.Before(b.Timestamp)
		default:
			return a.ID < b.ID
		}
	})
}

// Last returns the newest stamped message in the snapshot, if any. Directory
// rows use it for previews.
func Last(msgs []model.Message) (model.Message, bool) {
	var (
		best  model.Message
		found bool
	)
	for _, m := range msgs {
		if m.Pending() {
			continue
		}
		if !found || m.Timestamp.After(best.Timestamp) {
			best = m
			found = true
		}
	}
	return best, found
}
