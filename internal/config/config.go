// Package config defines agent configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and environment on top.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// WebhookURL is the collector endpoint payload batches are posted to.
	WebhookURL string `koanf:"webhook_url"`

	// FlushIntervalMS is the timed batch delivery cadence.
	FlushIntervalMS int `koanf:"flush_interval_ms"`

	// PayloadBufferCap bounds each session's pending payload buffer.
	PayloadBufferCap int `koanf:"payload_buffer_cap"`

	// RetryKeep bounds how many payloads of a failed batch are re-buffered.
	RetryKeep int `koanf:"retry_keep"`

	// BeaconQueueSize bounds each session's exit beacon queue.
	BeaconQueueSize int `koanf:"beacon_queue_size"`

	// SendTimeoutMS bounds each webhook send attempt.
	SendTimeoutMS int `koanf:"send_timeout_ms"`

	// EventRingCapacity bounds each session's diagnostic event ring.
	EventRingCapacity int `koanf:"event_ring_capacity"`

	// SessionTTLSeconds evicts sessions silent for longer than this.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// JanitorIntervalSeconds is the eviction sweep cadence.
	JanitorIntervalSeconds int `koanf:"janitor_interval_seconds"`

	// ScrollDebounceMS settles bursty scroll samples before processing.
	ScrollDebounceMS int `koanf:"scroll_debounce_ms"`

	// Behavioral detection thresholds.
	RageClickThreshold int     `koanf:"rage_click_threshold"`
	RageClickWindowMS  int     `koanf:"rage_click_window_ms"`
	FlybyVelocity      float64 `koanf:"flyby_velocity"`
	IdleThresholdMS    int     `koanf:"idle_threshold_ms"`
	FastScrollMS       int     `koanf:"fast_scroll_ms"`
	HoverHesitationMS  int     `koanf:"hover_hesitation_ms"`

	// Experiment bucket weights.
	CopyWeightA  float64 `koanf:"copy_weight_a"`
	CopyWeightB  float64 `koanf:"copy_weight_b"`
	StyleWeightA float64 `koanf:"style_weight_a"`
	StyleWeightB float64 `koanf:"style_weight_b"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		WebhookURL:             "http://localhost:9090/collect",
		FlushIntervalMS:        30_000,
		PayloadBufferCap:       50,
		RetryKeep:              10,
		BeaconQueueSize:        64,
		SendTimeoutMS:          5_000,
		EventRingCapacity:      60,
		SessionTTLSeconds:      300,
		JanitorIntervalSeconds: 30,
		ScrollDebounceMS:       100,
		RageClickThreshold:     3,
		RageClickWindowMS:      1_000,
		FlybyVelocity:          1_800,
		IdleThresholdMS:        1_200,
		FastScrollMS:           1_500,
		HoverHesitationMS:      2_000,
		CopyWeightA:            50,
		CopyWeightB:            50,
		StyleWeightA:           50,
		StyleWeightB:           50,
	}
}
