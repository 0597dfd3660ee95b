// Package metrics provides Prometheus metrics for the PagePulse agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every instrument the agent records.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	// engine
	eventsLogged           *prometheus.CounterVec
	sensorsRegistered      prometheus.Counter
	duplicateRegistrations prometheus.Counter
	rageClicks             prometheus.Counter
	scrollFlybys           prometheus.Counter
	buttonHesitations      prometheus.Counter
	conversions            prometheus.Counter

	// delivery
	payloadsBuffered prometheus.Counter
	payloadsDropped  prometheus.Counter
	payloadsRequeued prometheus.Counter
	batchesSent      prometheus.Counter
	sendErrors       prometheus.Counter
	immediateSends   prometheus.Counter
	exitFlushes      prometheus.Counter
	bufferSize       prometheus.Gauge

	// sessions
	activeSessions  prometheus.Gauge
	sessionsStarted prometheus.Counter
	sessionsEvicted prometheus.Counter

	// http
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager()
}

// NewManager creates a metrics manager with configuration options and
// registers every instrument on its registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "pagepulse",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.eventsLogged = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_logged_total",
		Help:      "Diagnostic events appended to session ring buffers.",
	}, []string{"type"})
	m.sensorsRegistered = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "sensors_registered_total",
		Help:      "Section sensors created.",
	})
	m.duplicateRegistrations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "duplicate_registrations_total",
		Help:      "Section registrations ignored as duplicates.",
	})
	m.rageClicks = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rage_clicks_total",
		Help:      "Rage-click bursts detected.",
	})
	m.scrollFlybys = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "scroll_flybys_total",
		Help:      "Sections scrolled past above the flyby velocity.",
	})
	m.buttonHesitations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "button_hesitations_total",
		Help:      "Goal-button hovers that ended without a click.",
	})
	m.conversions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "conversions_total",
		Help:      "Sections marked converted.",
	})

	m.payloadsBuffered = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "payloads_buffered_total",
		Help:      "Payloads enqueued into the delivery buffer.",
	})
	m.payloadsDropped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "payloads_dropped_total",
		Help:      "Payloads evicted from a full delivery buffer.",
	})
	m.payloadsRequeued = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "payloads_requeued_total",
		Help:      "Payloads re-buffered after a failed batch send.",
	})
	m.batchesSent = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "batches_sent_total",
		Help:      "Batch posts dispatched to the webhook.",
	})
	m.sendErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "send_errors_total",
		Help:      "Failed webhook sends, batch or immediate.",
	})
	m.immediateSends = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "immediate_sends_total",
		Help:      "Conversion payloads sent outside the batch path.",
	})
	m.exitFlushes = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "exit_flushes_total",
		Help:      "Page-exit flushes performed.",
	})
	m.bufferSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "delivery_buffer_size",
		Help:      "Payloads currently buffered for delivery.",
	})

	m.activeSessions = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "active_sessions",
		Help:      "Page sessions currently tracked.",
	})
	m.sessionsStarted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "sessions_started_total",
		Help:      "Page sessions started.",
	})
	m.sessionsEvicted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "sessions_evicted_total",
		Help:      "Idle page sessions flushed and evicted.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "Ingest API requests by endpoint and status.",
	}, []string{"endpoint", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Ingest API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	return m
}

// Handler exposes the manager's registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(globalManager.registry, promhttp.HandlerOpts{})
}

// Package-level recording helpers, all routed through the global manager.

func RecordEventLogged(eventType string) {
	globalManager.eventsLogged.WithLabelValues(eventType).Inc()
}

func RecordSensorRegistered()      { globalManager.sensorsRegistered.Inc() }
func RecordDuplicateRegistration() { globalManager.duplicateRegistrations.Inc() }
func RecordRageClick()             { globalManager.rageClicks.Inc() }
func RecordScrollFlyby()           { globalManager.scrollFlybys.Inc() }
func RecordButtonHesitation()      { globalManager.buttonHesitations.Inc() }
func RecordConversion()            { globalManager.conversions.Inc() }

func RecordPayloadBuffered()       { globalManager.payloadsBuffered.Inc() }
func RecordPayloadDropped()        { globalManager.payloadsDropped.Inc() }
func RecordPayloadsRequeued(n int) { globalManager.payloadsRequeued.Add(float64(n)) }
func RecordBatchSent()             { globalManager.batchesSent.Inc() }
func RecordSendError()             { globalManager.sendErrors.Inc() }
func RecordImmediateSend()         { globalManager.immediateSends.Inc() }
func RecordExitFlush()             { globalManager.exitFlushes.Inc() }
func UpdateBufferSize(n int)       { globalManager.bufferSize.Set(float64(n)) }

func UpdateActiveSessions(n int) { globalManager.activeSessions.Set(float64(n)) }
func RecordSessionStarted()      { globalManager.sessionsStarted.Inc() }
func RecordSessionEvicted()      { globalManager.sessionsEvicted.Inc() }

func RecordHTTPRequest(endpoint, status string, seconds float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, status).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}
