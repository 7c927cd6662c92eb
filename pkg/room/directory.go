package room

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rizkyap/ngobrol/pkg/store"
	"github.com/rizkyap/ngobrol/pkg/stream"
)

// Summary is one row in a user's room list.
type Summary struct {
	RoomID       string    `json:"room_id"`
	Friend       string    `json:"friend"`
	FriendName   string    `json:"friend_name,omitempty"`
	FriendImage  string    `json:"friend_image,omitempty"`
	LastPreview  string    `json:"last_preview,omitempty"`
	LastSender   string    `json:"last_sender,omitempty"`
	LastRead     bool      `json:"last_read"`
	Unread       int64     `json:"unread"`
	LastActivity time.Time `json:"last_activity"`
}

// Directory lists and watches the set of rooms a user participates in.
type Directory struct {
	store    store.Store
	counters store.Counters
	broker   *stream.Broker
	log      *slog.Logger

	// rescan bounds how long a room created after a watch started can go
	// without a live feed.
	rescan time.Duration
}

func NewDirectory(st store.Store, counters store.Counters, broker *stream.Broker, log *slog.Logger) *Directory {
	return &Directory{store: st, counters: counters, broker: broker, log: log, rescan: 3 * time.Second}
}

// Snapshot builds the user's current room list, newest activity first.
func (d *Directory) Snapshot(ctx context.Context, email string) ([]Summary, error) {
	rooms, err := d.store.RoomsFor(ctx, email)
	if err != nil {
		return nil, err
	}
	activity, err := d.store.LastActivity(ctx, email)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		friendEmail := r.FriendOf(email)
		s := Summary{
			RoomID:       r.ID,
			Friend:       friendEmail,
			LastActivity: activity[r.ID],
		}
		if s.LastActivity.IsZero() {
			s.LastActivity = r.CreatedAt
		}

		if friend, err := d.store.GetUserByEmail(ctx, friendEmail); err == nil {
			s.FriendName = friend.Name
			s.FriendImage = friend.Image
		}

		msgs, err := d.store.Messages(ctx, r.ID, 0)
		if err != nil {
			return nil, err
		}
		if last, ok := stream.Last(msgs); ok {
			s.LastPreview = last.Preview()
			s.LastSender = last.Sender
			s.LastRead = last.Read
			if last.Timestamp.After(s.LastActivity) {
				s.LastActivity = last.Timestamp
			}
		}

		if d.counters != nil {
			if n, err := d.counters.Get(ctx, email, r.ID); err == nil {
				s.Unread = n
			}
		}

		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries, nil
}

// Watch emits a fresh Snapshot whenever any of the user's rooms changes,
// starting with the current one. Rooms that come into existence while the
// watch runs are picked up on the next rescan, so a friend opening a new
// conversation reaches the list without any pre-existing room changing. The
// returned cancel func tears down every underlying room subscription; callers
// must invoke it when the list view goes away.
func (d *Directory) Watch(ctx context.Context, email string) (<-chan []Summary, func(), error) {
	out := make(chan []Summary, 1)
	changed := make(chan struct{}, 1)

	watchCtx, cancel := context.WithCancel(ctx)

	var mu sync.Mutex
	subs := make(map[string]*stream.Subscription)

	// attach subscribes to any of the user's rooms that have no feed yet.
	// A fresh subscription delivers its current snapshot immediately, which
	// signals changed and re-snapshots the list.
	attach := func() error {
		rooms, err := d.store.RoomsFor(watchCtx, email)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		if watchCtx.Err() != nil {
			return nil
		}
		for _, r := range rooms {
			if _, ok := subs[r.ID]; ok {
				continue
			}
			sub := d.broker.Subscribe(r.ID)
			subs[r.ID] = sub
			go func(sub *stream.Subscription) {
				for range sub.C {
					select {
					case changed <- struct{}{}:
					default:
					}
				}
			}(sub)
		}
		return nil
	}
	if err := attach(); err != nil {
		cancel()
		return nil, nil, err
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			mu.Lock()
			for _, sub := range subs {
				sub.Unsubscribe()
			}
			mu.Unlock()
		})
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(d.rescan)
		defer ticker.Stop()
		for {
			snap, err := d.Snapshot(watchCtx, email)
			if err != nil {
				if watchCtx.Err() == nil {
					d.log.Error("directory snapshot failed", "email", email, "error", err)
				}
				return
			}
			select {
			case out <- snap:
			case <-watchCtx.Done():
				return
			}

		wait:
			for {
				select {
				case <-changed:
					break wait
				case <-ticker.C:
					if err := attach(); err != nil && watchCtx.Err() == nil {
						d.log.Error("directory rescan failed", "email", email, "error", err)
					}
				case <-watchCtx.Done():
					return
				}
			}
		}
	}()

	return out, stop, nil
}
