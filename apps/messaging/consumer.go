package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rizkyap/ngobrol/pkg/model"
	"github.com/rizkyap/ngobrol/pkg/store"
)

// Consumer drains the room-event bus and makes each event durable: messages
// land in the store, activity markers and unread counters move with them,
// read receipts flip the persisted read flag.
type Consumer struct {
	reader   *kafka.Reader
	store    store.Store
	counters store.Counters
	log      *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, st store.Store, counters store.Counters, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: r, store: st, counters: counters, log: logger}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("read from bus failed, retrying", "error", err)
			time.Sleep(1 * time.Second)
			continue
		}

		var ev model.Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.log.Error("bad event on bus", "error", err)
			continue
		}

		evCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		c.handle(evCtx, ev)
		cancel()
	}
}

func (c *Consumer) handle(ctx context.Context, ev model.Event) {
	switch ev.Type {
	case model.EventMessage:
		if ev.Message == nil {
			return
		}
		c.persistMessage(ctx, *ev.Message)
	case model.EventRead:
		if err := c.store.MarkRead(ctx, ev.RoomID, ev.MessageID); err != nil {
			c.log.Error("persist read receipt failed", "room", ev.RoomID, "message", ev.MessageID, "error", err)
		}
	case model.EventTyping:
		// Ephemeral, never persisted.
	}
}

func (c *Consumer) persistMessage(ctx context.Context, msg model.Message) {
	if err := c.store.InsertMessage(ctx, msg); err != nil {
		c.log.Error("persist message failed", "room", msg.RoomID, "message", msg.ID, "error", err)
		return
	}

	room, err := c.store.GetRoom(ctx, msg.RoomID)
	if err != nil {
		c.log.Error("load room for activity failed", "room", msg.RoomID, "error", err)
		return
	}

	// Both participants see the room jump to the top of their directory.
	for _, email := range room.Participants {
		if err := c.store.TouchActivity(ctx, email, msg.RoomID, msg.Timestamp); err != nil {
			c.log.Error("touch activity failed", "email", email, "room", msg.RoomID, "error", err)
		}
	}

	// The sender obviously read their own message; only the recipient's
	// unread count moves.
	recipient := room.FriendOf(msg.Sender)
	if err := c.counters.Incr(ctx, recipient, msg.RoomID); err != nil {
		c.log.Error("incr unread failed", "email", recipient, "room", msg.RoomID, "error", err)
	}

	c.log.Info("message persisted", "room", msg.RoomID, "message", msg.ID)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
