// Package ring provides the bounded, ordered diagnostic event log shared by
// every sensor on a page. Appends never fail and never block; once capacity
// is exceeded the oldest entry is dropped so chronological order is
// preserved under pressure.
package ring

import (
	"sync"
	"time"

	"github.com/okian/pagepulse/internal/domain/model"
)

// Default buffer configuration constants.
const (
	defaultCapacity = 60
)

// Buffer is a mutex-guarded drop-oldest event log.
type Buffer struct {
	mu       sync.Mutex
	events   []model.Event
	capacity int
	clock    func() time.Time
}

// New creates a buffer with configuration options.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		capacity: defaultCapacity,
		clock:    time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.events = make([]model.Event, 0, b.capacity)
	return b
}

// Append stamps and stores an event, evicting the oldest entry when the
// buffer is full. The stored event is returned for logging convenience.
func (b *Buffer) Append(eventType string, fields map[string]any) model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := model.Event{
		Type:      eventType,
		Timestamp: b.clock().UnixMilli(),
		Fields:    fields,
	}

	b.events = append(b.events, e)
	if len(b.events) > b.capacity {
		// drop-oldest, keeping relative order
		copy(b.events, b.events[1:])
		b.events = b.events[:len(b.events)-1]
	}
	return e
}

// Len returns the current number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Snapshot returns a chronological copy of the buffer.
func (b *Buffer) Snapshot() []model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Last returns a copy of the most recent n events in chronological order.
func (b *Buffer) Last(n int) []model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > len(b.events) {
		n = len(b.events)
	}
	out := make([]model.Event, n)
	copy(out, b.events[len(b.events)-n:])
	return out
}

// LastOfType returns the most recent n events of the given type, oldest
// first.
func (b *Buffer) LastOfType(eventType string, n int) []model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	matched := make([]model.Event, 0, n)
	for _, e := range b.events {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	if len(matched) > n {
		matched = matched[len(matched)-n:]
	}
	return matched
}

// FirstOfTypeAfter scans forward for the first event of the given type with
// a timestamp strictly after the given unix-millisecond instant.
func (b *Buffer) FirstOfTypeAfter(eventType string, afterMs int64) (model.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.events {
		if e.Type == eventType && e.Timestamp > afterMs {
			return e, true
		}
	}
	return model.Event{}, false
}
