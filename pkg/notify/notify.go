// Package notify defines the local-notification contract used when an unread
// incoming message is observed.
package notify

import (
	"context"
	"log/slog"
)

type Notification struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	RoomID    string `json:"room_id"`
	MessageID int64  `json:"message_id"`
}

type Notifier interface {
	RequestPermission(ctx context.Context) error
	Schedule(ctx context.Context, n Notification) error
}

// Logger is the server-side Notifier: it records the notification in the
// structured log. Client frontends substitute a platform implementation.
type Logger struct {
	Log *slog.Logger
}

func (l *Logger) RequestPermission(context.Context) error { return nil }

func (l *Logger) Schedule(_ context.Context, n Notification) error {
	l.Log.Info("notification",
		"title", n.Title,
		"body", n.Body,
		"room", n.RoomID,
		"message_id", n.MessageID,
	)
	return nil
}
