// Package reconcile marks incoming messages as read while a room view is
// active, and raises the unread notification for each one.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/rizkyap/ngobrol/pkg/model"
	"github.com/rizkyap/ngobrol/pkg/notify"
	"github.com/rizkyap/ngobrol/pkg/store"
	"github.com/rizkyap/ngobrol/pkg/stream"
)

// Reconciler watches one room on behalf of one user. For every observed
// message from the other participant that is still unread it issues exactly
// one mark-read, and raises exactly one notification. The user's own
// messages are never touched.
type Reconciler struct {
	store    store.Store
	broker   *stream.Broker
	notifier notify.Notifier
	log      *slog.Logger

	roomID      string
	currentUser string

	marked   map[int64]bool
	notified map[int64]bool
}

func New(st store.Store, broker *stream.Broker, notifier notify.Notifier, log *slog.Logger, roomID, currentUser string) *Reconciler {
	return &Reconciler{
		store:       st,
		broker:      broker,
		notifier:    notifier,
		log:         log,
		roomID:      roomID,
		currentUser: currentUser,
		marked:      make(map[int64]bool),
		notified:    make(map[int64]bool),
	}
}

// Run subscribes to the room and reconciles every snapshot until ctx is
// cancelled. The subscription is released on return.
func (r *Reconciler) Run(ctx context.Context) {
	sub := r.broker.Subscribe(r.roomID)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			r.Apply(ctx, snap)
		}
	}
}

// Apply reconciles one snapshot. Split out from Run so the gateway can drive
// it synchronously and tests can avoid goroutines.
func (r *Reconciler) Apply(ctx context.Context, msgs []model.Message) {
	for _, m := range msgs {
		if m.ID == 0 || m.Sender == r.currentUser || m.Read {
			continue
		}

		if !r.notified[m.ID] {
			r.notified[m.ID] = true
			n := notify.Notification{
				Title:     "New message from " + m.Sender,
				Body:      m.Preview(),
				RoomID:    r.roomID,
				MessageID: m.ID,
			}
			if err := r.notifier.Schedule(ctx, n); err != nil {
				r.log.Error("notification failed", "room", r.roomID, "message_id", m.ID, "error", err)
			}
		}

		if r.marked[m.ID] {
			continue
		}
		if err := r.store.MarkRead(ctx, r.roomID, m.ID); err != nil {
			// Terminal for this pass; the next snapshot retries because
			// the message still reads as unread.
			r.log.Error("mark read failed", "room", r.roomID, "message_id", m.ID, "error", err)
			continue
		}
		r.marked[m.ID] = true
		r.broker.MarkRead(r.roomID, m.ID)
	}
}
