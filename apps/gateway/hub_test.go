package main

import (
	"testing"
	"time"

	"github.com/neilotoole/slogt"

	"github.com/rizkyap/ngobrol/pkg/model"
	"github.com/rizkyap/ngobrol/pkg/stream"
)

func TestDisconnectWithBufferedSnapshots(t *testing.T) {
	broker := stream.NewBroker(slogt.New(t))
	client := &Client{
		hub:    &Hub{log: slogt.New(t), broker: broker},
		send:   make(chan []byte, 256),
		email:  "a@x.com",
		roomID: "room:a@x.com:b@x.com",
	}
	sub := broker.Subscribe(client.roomID)
	client.sub = sub

	// Snapshots queue up on the subscription while nothing pumps them.
	for i := int64(1); i <= 4; i++ {
		broker.Publish(model.Message{
			ID: i, RoomID: client.roomID, Sender: "b@x.com", Text: "hi", Timestamp: time.Now(),
		})
	}

	// Teardown order as the hub's unregister path runs it: the feed closes
	// first, with deliveries still in flight.
	sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.pumpSnapshots(sub)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pumpSnapshots did not finish after the feed closed")
	}

	// The pump drained the queued frames and closed send itself, so
	// writePump sees a clean close instead of a send on a closed channel.
	frames := 0
	for {
		frame, ok := <-client.send
		if !ok {
			break
		}
		if len(frame) == 0 {
			t.Error("empty frame forwarded")
		}
		frames++
	}
	if frames == 0 {
		t.Error("buffered snapshots were dropped instead of drained")
	}
}
