package tracker

import (
	"time"

	"github.com/okian/pagepulse/internal/domain/sensor"
	"github.com/okian/pagepulse/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithClock sets the engine's time source.
func WithClock(clock Clock) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// WithThresholds overrides the behavioral detection thresholds.
func WithThresholds(th sensor.Thresholds) Option {
	return func(t *Tracker) {
		t.thresholds = th
	}
}

// WithDeliverer sets the delivery pipeline the engine feeds.
func WithDeliverer(d Deliverer) Option {
	return func(t *Tracker) {
		if d != nil {
			t.delivery = d
		}
	}
}

// WithRingCapacity bounds the diagnostic event ring.
func WithRingCapacity(capacity int) Option {
	return func(t *Tracker) {
		if capacity > 0 {
			t.ringCap = capacity
		}
	}
}

// WithScrollDebounce sets the scroll sampling debounce. Zero disables
// debouncing entirely and applies each sample synchronously.
func WithScrollDebounce(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.debounce = d
		}
	}
}

// ServiceOption applies a configuration option to the session registry.
type ServiceOption func(*Service)

// WithWebhookURL sets the collector endpoint new sessions deliver to.
func WithWebhookURL(url string) ServiceOption {
	return func(s *Service) {
		if url != "" {
			s.webhookURL = url
		}
	}
}

// WithSessionTTL sets how long a silent session survives before eviction.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithJanitorInterval sets the eviction sweep cadence.
func WithJanitorInterval(interval time.Duration) ServiceOption {
	return func(s *Service) {
		if interval > 0 {
			s.janitorInterval = interval
		}
	}
}

// WithFlushInterval sets the delivery batch cadence for new sessions.
func WithFlushInterval(interval time.Duration) ServiceOption {
	return func(s *Service) {
		if interval > 0 {
			s.flushInterval = interval
		}
	}
}

// WithBufferCap bounds each session's payload buffer.
func WithBufferCap(capacity int) ServiceOption {
	return func(s *Service) {
		if capacity > 0 {
			s.bufferCap = capacity
		}
	}
}

// WithRetryKeep bounds how many payloads of a failed batch are re-buffered.
func WithRetryKeep(keep int) ServiceOption {
	return func(s *Service) {
		if keep > 0 {
			s.retryKeep = keep
		}
	}
}

// WithBeaconQueueSize sets the per-session beacon queue capacity.
func WithBeaconQueueSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.beaconQueueSize = size
		}
	}
}

// WithSendTimeout bounds each webhook send attempt.
func WithSendTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.sendTimeout = timeout
		}
	}
}

// WithServiceScrollDebounce sets the scroll debounce for new sessions.
func WithServiceScrollDebounce(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d >= 0 {
			s.scrollDebounce = d
		}
	}
}

// WithServiceRingCapacity bounds each session's diagnostic ring.
func WithServiceRingCapacity(capacity int) ServiceOption {
	return func(s *Service) {
		if capacity > 0 {
			s.ringCap = capacity
		}
	}
}

// WithServiceThresholds overrides detection thresholds for new sessions.
func WithServiceThresholds(th sensor.Thresholds) ServiceOption {
	return func(s *Service) {
		s.thresholds = th
	}
}

// WithAssigner sets the experiment exposure assigner.
func WithAssigner(a Assigner) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.assigner = a
		}
	}
}

// WithTrackerFactory overrides session construction, primarily for tests.
func WithTrackerFactory(f TrackerFactory) ServiceOption {
	return func(s *Service) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithServiceClock sets the registry's time source.
func WithServiceClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithServiceLogger sets a custom logger for the registry.
func WithServiceLogger(log logger.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}
