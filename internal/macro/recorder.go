package macro

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock supplies timestamps for delay computation. Injectable so tests
// control timing exactly. The default uses time.Now, whose monotonic
// reading makes delays immune to wall-clock adjustments.
type Clock func() time.Time

// Recorder captures input events into a Sequence, timestamping each
// capture to derive inter-event delays.
//
// Thread Safety: all methods are safe for concurrent use, though
// captures from one input stream are naturally ordered.
type Recorder struct {
	clock Clock

	mu        sync.Mutex
	recording bool
	name      string
	events    []Event
	lastAt    time.Time
}

// NewRecorder creates an idle recorder. A nil clock uses time.Now.
func NewRecorder(clock Clock) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{clock: clock}
}

// Start begins a new recording under the given name.
func (r *Recorder) Start(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}

	r.recording = true
	r.name = name
	r.events = nil
	r.lastAt = time.Time{}
	return nil
}

// Capture appends one input event to the active recording. The delay
// stored on the event is the time elapsed since the previous capture;
// the first capture stores zero.
func (r *Recorder) Capture(kind EventKind, code, value int) error {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return ErrNotRecording
	}

	var delay int64
	if !r.lastAt.IsZero() {
		delay = now.Sub(r.lastAt).Milliseconds()
		if delay < 0 {
			delay = 0
		}
	}
	r.lastAt = now

	r.events = append(r.events, Event{
		Kind:    kind,
		Code:    code,
		Value:   value,
		DelayMs: delay,
	})
	return nil
}

// Recording reports whether a recording is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Stop ends the recording and returns the captured sequence.
func (r *Recorder) Stop() (Sequence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return Sequence{}, ErrNotRecording
	}

	now := r.clock().UTC()
	seq := Sequence{
		ID:        uuid.NewString(),
		Name:      r.name,
		Events:    r.events,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.recording = false
	r.name = ""
	r.events = nil
	return seq, nil
}
