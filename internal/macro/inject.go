package macro

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is the bus interface the injector needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// BusInjector emits replayed events onto the message bus. The daemon
// runs headless and cannot reach the user's input session directly; a
// session agent subscribes to the inject topic and performs the
// OS-level synthesis with the event's code and value.
type BusInjector struct {
	publisher Publisher
	topic     string
	qos       byte
}

// NewBusInjector creates an injector publishing to the given topic.
func NewBusInjector(publisher Publisher, topic string, qos byte) *BusInjector {
	return &BusInjector{
		publisher: publisher,
		topic:     topic,
		qos:       qos,
	}
}

// Inject publishes one event. The context is checked before publishing
// so a cancelled replay stops immediately.
func (b *BusInjector) Inject(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInjection, err)
	}
	if err := b.publisher.Publish(b.topic, payload, b.qos, false); err != nil {
		return fmt.Errorf("%w: %v", ErrInjection, err)
	}
	return nil
}
