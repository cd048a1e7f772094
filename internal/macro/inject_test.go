package macro

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type capturePublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (p *capturePublisher) Publish(topic string, payload []byte, _ byte, _ bool) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestBusInjectorPublishesEvent(t *testing.T) {
	pub := &capturePublisher{}
	inj := NewBusInjector(pub, "slate/macro/inject", 1)

	event := Event{Kind: KeyDown, Code: 30, Value: 1, DelayMs: 12}
	if err := inj.Inject(context.Background(), event); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}

	if len(pub.topics) != 1 || pub.topics[0] != "slate/macro/inject" {
		t.Fatalf("topics = %v", pub.topics)
	}

	var got Event
	if err := json.Unmarshal(pub.payloads[0], &got); err != nil {
		t.Fatalf("unmarshalling payload: %v", err)
	}
	if got != event {
		t.Errorf("payload = %+v, want %+v", got, event)
	}
}

func TestBusInjectorPublishFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker gone")}
	inj := NewBusInjector(pub, "slate/macro/inject", 1)

	err := inj.Inject(context.Background(), Event{Kind: KeyDown, Code: 30})
	if !errors.Is(err, ErrInjection) {
		t.Errorf("Inject() error = %v, want ErrInjection", err)
	}
}

func TestBusInjectorCancelledContext(t *testing.T) {
	pub := &capturePublisher{}
	inj := NewBusInjector(pub, "slate/macro/inject", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := inj.Inject(ctx, Event{Kind: KeyDown}); !errors.Is(err, context.Canceled) {
		t.Errorf("Inject() error = %v, want context.Canceled", err)
	}
	if len(pub.topics) != 0 {
		t.Errorf("published %v after cancellation, want none", pub.topics)
	}
}
