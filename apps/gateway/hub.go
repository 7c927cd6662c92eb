package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rizkyap/ngobrol/pkg/auth"
	"github.com/rizkyap/ngobrol/pkg/model"
	"github.com/rizkyap/ngobrol/pkg/notify"
	"github.com/rizkyap/ngobrol/pkg/reconcile"
	"github.com/rizkyap/ngobrol/pkg/snowflake"
	"github.com/rizkyap/ngobrol/pkg/store"
	"github.com/rizkyap/ngobrol/pkg/stream"
)

// Hub owns the gateway's shared state: the live room feeds, the Kafka
// producer, and the fan-out consumer that applies cluster-wide events to the
// local broker. Each connected room view gets its own subscription and its
// own read-state reconciler.
type Hub struct {
	log      *slog.Logger
	store    store.Store
	broker   *stream.Broker
	counters store.Counters
	presence store.Presence
	notifier notify.Notifier
	producer *kafka.Writer
	node     *snowflake.Node
	tokens   *auth.Tokens

	register   chan *Client
	unregister chan *Client
}

func NewHub(logger *slog.Logger, st store.Store, counters store.Counters, presence store.Presence, tokens *auth.Tokens, kafkaBrokers []string, topic string, nodeID int64) (*Hub, error) {
	producer := &kafka.Writer{
		Addr:     kafka.TCP(kafkaBrokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	// Unique group id per gateway instance: every instance sees every
	// event, which is what fan-out needs.
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkaBrokers,
		Topic:       topic,
		GroupID:     "gateway-" + time.Now().Format("20060102150405.000000000"),
		StartOffset: kafka.LastOffset,
		MinBytes:    10e3,
		MaxBytes:    10e6,
	})

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}

	h := &Hub{
		log:        logger,
		store:      st,
		broker:     stream.NewBroker(logger),
		counters:   counters,
		presence:   presence,
		notifier:   &notify.Logger{Log: logger},
		producer:   producer,
		node:       node,
		tokens:     tokens,
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	go func() {
		defer consumer.Close()
		for {
			m, err := consumer.ReadMessage(context.Background())
			if err != nil {
				h.log.Error("fanout consumer stopped", "error", err)
				return
			}

			var ev model.Event
			if err := json.Unmarshal(m.Value, &ev); err != nil {
				h.log.Error("bad event on bus", "error", err)
				continue
			}
			h.apply(ev)
		}
	}()

	return h, nil
}

// apply routes one bus event into the local broker.
func (h *Hub) apply(ev model.Event) {
	switch ev.Type {
	case model.EventMessage:
		if ev.Message == nil {
			return
		}
		h.seedRoom(ev.Message.RoomID)
		h.broker.Publish(*ev.Message)
	case model.EventRead:
		h.broker.MarkRead(ev.RoomID, ev.MessageID)
	case model.EventTyping:
		// Ephemeral, nothing to store or re-order.
	}
}

// seedRoom loads a room's history into the broker the first time anything
// touches it on this instance.
func (h *Hub) seedRoom(roomID string) {
	if h.broker.Seeded(roomID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msgs, err := h.store.Messages(ctx, roomID, 0)
	if err != nil {
		h.log.Error("seed room failed", "room", roomID, "error", err)
		return
	}
	h.broker.Seed(roomID, msgs)
}

func (h *Hub) Run() {
	defer h.producer.Close()

	for {
		select {
		case client := <-h.register:
			h.seedRoom(client.roomID)

			ctx, cancel := context.WithCancel(context.Background())
			client.cancel = cancel

			if err := h.presence.Add(ctx, client.roomID, client.email); err != nil {
				h.log.Error("presence add failed", "email", client.email, "error", err)
			}
			// Opening the room view catches the viewer up, so the unread
			// counter restarts from zero.
			if err := h.counters.Reset(ctx, client.email, client.roomID); err != nil {
				h.log.Error("unread reset failed", "email", client.email, "error", err)
			}

			// Live feed pump: every room change reaches the socket as a
			// full ordered snapshot.
			sub := h.broker.Subscribe(client.roomID)
			client.sub = sub
			go client.pumpSnapshots(sub)

			// The reconciler marks this viewer's incoming messages read
			// for as long as the view stays open.
			rec := reconcile.New(&readFanout{hub: h}, h.broker, h.notifier, h.log, client.roomID, client.email)
			go rec.Run(ctx)

			h.log.Info("client joined", "email", client.email, "room", client.roomID)

		case client := <-h.unregister:
			if client.cancel != nil {
				client.cancel()
			}
			if client.sub != nil {
				// Closing the feed lets pumpSnapshots drain whatever is
				// still buffered and close client.send itself; closing it
				// here would race with those deliveries.
				client.sub.Unsubscribe()
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := h.presence.Remove(ctx, client.roomID, client.email); err != nil {
				h.log.Error("presence remove failed", "email", client.email, "error", err)
			}
			cancel()
			h.log.Info("client left", "email", client.email, "room", client.roomID)
		}
	}
}

// publish writes one event to the bus.
func (h *Hub) publish(ctx context.Context, ev model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.RoomID),
		Value: payload,
		Time:  time.Now(),
	})
}

// KafkaOutbox stamps a draft with its server id and timestamp and puts it on
// the bus. The messaging service persists it; every gateway instance fans it
// out from the bus, including this one.
type KafkaOutbox struct {
	hub *Hub
}

func (o *KafkaOutbox) Send(ctx context.Context, msg model.Message) (model.Message, error) {
	msg.ID = o.hub.node.Generate()
	msg.Timestamp = time.Now()
	msg.Read = false

	ev := model.Event{Type: model.EventMessage, RoomID: msg.RoomID, Message: &msg}
	if err := o.hub.publish(ctx, ev); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// readFanout is the store handed to gateway reconcilers: a mark-read lands
// on the bus so the messaging service persists it and other instances see
// it. Everything else is unreachable from the reconciler.
type readFanout struct {
	store.Store
	hub *Hub
}

func (r *readFanout) MarkRead(ctx context.Context, roomID string, messageID int64) error {
	return r.hub.publish(ctx, model.Event{
		Type:      model.EventRead,
		RoomID:    roomID,
		MessageID: messageID,
	})
}
