package compose

import (
	"context"
	"time"

	"github.com/rizkyap/ngobrol/pkg/model"
	"github.com/rizkyap/ngobrol/pkg/snowflake"
	"github.com/rizkyap/ngobrol/pkg/store"
	"github.com/rizkyap/ngobrol/pkg/stream"
)

// LocalOutbox stamps, persists and publishes a draft in-process: id and
// timestamp are assigned here, the message is written to the store, and the
// room's live feed re-emits. The gateway swaps in a Kafka-backed outbox for
// the distributed path.
type LocalOutbox struct {
	Store  store.Store
	Broker *stream.Broker
	Node   *snowflake.Node
}

func (o *LocalOutbox) Send(ctx context.Context, msg model.Message) (model.Message, error) {
	msg.ID = o.Node.Generate()
	msg.Timestamp = time.Now()
	msg.Read = false

	if err := o.Store.InsertMessage(ctx, msg); err != nil {
		return model.Message{}, err
	}
	if o.Broker != nil {
		o.Broker.Publish(msg)
	}
	return msg, nil
}
