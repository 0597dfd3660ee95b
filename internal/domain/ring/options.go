package ring

import "time"

// Option applies a configuration option to the Buffer.
type Option func(*Buffer)

// WithCapacity sets the maximum number of retained events.
func WithCapacity(capacity int) Option {
	return func(b *Buffer) {
		if capacity > 0 {
			b.capacity = capacity
		}
	}
}

// WithClock sets the time source used to stamp events.
func WithClock(clock func() time.Time) Option {
	return func(b *Buffer) {
		if clock != nil {
			b.clock = clock
		}
	}
}
