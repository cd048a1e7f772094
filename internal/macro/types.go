package macro

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the type of a captured input event.
type EventKind string

const (
	KeyDown     EventKind = "key_down"
	KeyUp       EventKind = "key_up"
	ButtonDown  EventKind = "button_down"
	ButtonUp    EventKind = "button_up"
	PointerMove EventKind = "pointer_move"
)

// Event is one captured input event with its replay timing.
//
// DelayMs is the gap between this event and the previous one in the
// sequence. The first event always carries a zero delay and replays
// immediately.
type Event struct {
	Kind    EventKind `json:"kind"`
	Code    int       `json:"code"`
	Value   int       `json:"value,omitempty"`
	DelayMs int64     `json:"delay_ms"`
}

// Sequence is an ordered recording of input events.
type Sequence struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Events    []Event   `json:"events"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSequence builds a sequence from pre-assembled events, assigning a
// fresh ID and timestamps.
func NewSequence(name string, events []Event) Sequence {
	now := time.Now().UTC()
	return Sequence{
		ID:        uuid.NewString(),
		Name:      name,
		Events:    events,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Duration returns the total replay time of the sequence, the sum of
// all event delays.
func (s Sequence) Duration() time.Duration {
	var total int64
	for _, e := range s.Events {
		total += e.DelayMs
	}
	return time.Duration(total) * time.Millisecond
}

// DeepCopy returns an independent copy of the sequence.
func (s Sequence) DeepCopy() Sequence {
	out := s
	out.Events = make([]Event, len(s.Events))
	copy(out.Events, s.Events)
	return out
}
