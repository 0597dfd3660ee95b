// Package tracker implements the per-page telemetry engine: section sensor
// registry, visibility and scroll dispatch, payload assembly, and the hooks
// the delivery pipeline and ingest glue attach to.
//
// One Tracker exists per page session. The ingest layer owns a registry of
// them, so nothing here is process global.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/mssola/useragent"

	"github.com/okian/pagepulse/internal/domain/model"
	"github.com/okian/pagepulse/internal/domain/ring"
	"github.com/okian/pagepulse/internal/domain/sensor"
	"github.com/okian/pagepulse/pkg/logger"
	"github.com/okian/pagepulse/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultScrollDebounce = 100 * time.Millisecond
)

// Clock is the engine's time source, injectable for tests.
type Clock func() time.Time

// Deliverer is the slice of the delivery pipeline the engine drives.
type Deliverer interface {
	Start(ctx context.Context)
	Enqueue(payload model.Payload)
	SendNow(ctx context.Context, payload model.Payload)
	ExitFlush(ctx context.Context, forced []model.Payload)
}

// Tracker holds one page session's telemetry state. All exported methods
// are safe for concurrent use; per-sensor state is only reachable through
// them.
type Tracker struct {
	mu sync.Mutex

	clock      Clock
	log        logger.Logger
	thresholds sensor.Thresholds
	ringCap    int
	debounce   time.Duration

	events   *ring.Buffer
	sensors  map[string]*sensor.Sensor
	order    []string
	delivery Deliverer

	page        model.PageContext
	touch       bool
	deviceGuess string
	weather     *model.WeatherSnapshot

	lastScrollY    float64
	pendingScrollY float64
	scrollTimer    *time.Timer

	started bool
	hidden  bool
}

// New constructs a Tracker with default configuration.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		clock:      time.Now,
		thresholds: sensor.DefaultThresholds(),
		debounce:   defaultScrollDebounce,
		sensors:    map[string]*sensor.Sensor{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = logger.Get().Named("tracker")
	}
	t.events = ring.New(
		ring.WithCapacity(t.ringCap),
		ring.WithClock(t.clock),
	)
	return t
}

// Start captures the immutable page context and begins delivering. It is
// not idempotent by design: a second call is a caller bug and fails loudly
// instead of double-registering timers.
func (t *Tracker) Start(ctx context.Context, sessionID string, info model.PageInfo) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}
	if t.delivery == nil {
		return ErrNoDeliverer
	}

	t.page = model.NewPageContext(sessionID, info, t.clock())
	t.touch = info.TouchCapable
	t.deviceGuess = guessDevice(info)
	t.started = true

	t.delivery.Start(ctx)
	t.log.Info(ctx, "tracker started",
		logger.String("sessionId", sessionID),
		logger.String("pageType", t.page.PageType),
		logger.String("deviceGuess", t.deviceGuess),
	)
	return nil
}

// guessDevice classifies the client: touch capability wins, then the user
// agent decides.
func guessDevice(info model.PageInfo) string {
	if info.TouchCapable {
		return "mobile"
	}
	if ua := useragent.New(info.UserAgent); ua.Mobile() {
		return "mobile"
	}
	return "desktop"
}

// RegisterSection creates a sensor for a content region. Registration is
// idempotent per id: duplicates warn and do nothing, and a missing id is a
// configuration error that must never break the page.
func (t *Tracker) RegisterSection(sectionID string, bounds model.Rect, config map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sectionID == "" {
		t.log.Warn(context.Background(), "section registered without id; ignoring")
		return
	}
	if _, exists := t.sensors[sectionID]; exists {
		t.log.Warn(context.Background(), "duplicate section registration; ignoring",
			logger.String("sectionId", sectionID),
		)
		metrics.RecordDuplicateRegistration()
		return
	}

	t.sensors[sectionID] = sensor.New(sectionID, bounds, config, t.thresholds, t.lastScrollY, t.clock())
	t.order = append(t.order, sectionID)
	metrics.RecordSensorRegistered()
}

// SectionCount returns the number of registered sensors.
func (t *Tracker) SectionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sensors)
}

// SectionStatus returns the conversion state of a registered section.
func (t *Tracker) SectionStatus(sectionID string) (model.Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sensors[sectionID]
	if !ok {
		return "", false
	}
	return s.Status(), true
}

// SetWeatherData attaches the process-wide weather snapshot.
func (t *Tracker) SetWeatherData(ws model.WeatherSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.weather = &ws
	t.logEvent("weather_ok", map[string]any{"mode": ws.Derived.Mode})
}

// SetExposure attaches an experiment exposure to a section. Safe to call
// any time after registration; unknown sections are ignored.
func (t *Tracker) SetExposure(sectionID string, exposure model.Exposure) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sensors[sectionID]
	if !ok {
		return
	}
	s.SetExposure(exposure)
	t.logEvent("copy_exposed", map[string]any{
		"sectionId": sectionID,
		"cell":      exposure.Cell,
	})
}

// LogEvent appends a diagnostic event to the ring. Collaborators (weather,
// router) use this for status and error breadcrumbs.
func (t *Tracker) LogEvent(eventType string, fields map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logEvent(eventType, fields)
}

// ReportError records an upstream page error. The engine is an error sink:
// the last few of these ride along in every payload's trailer.
func (t *Tracker) ReportError(message, source string, line, col int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logEvent("error", map[string]any{
		"message":  message,
		"filename": source,
		"lineno":   line,
		"colno":    col,
	})
}

// ReportRejection records an unhandled promise rejection from the page.
func (t *Tracker) ReportRejection(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logEvent("unhandled_rejection", map[string]any{"reason": reason})
}

// MarkConverted advances a section to converted and ships its payload
// immediately, bypassing the batch buffer. Unknown ids are a no-op.
func (t *Tracker) MarkConverted(ctx context.Context, sectionID string) {
	t.mu.Lock()

	s, ok := t.sensors[sectionID]
	if !ok {
		t.log.Warn(ctx, "markConverted for unknown section",
			logger.String("sectionId", sectionID),
		)
		t.mu.Unlock()
		return
	}

	s.Convert()
	t.logEvent("converted", map[string]any{"sectionId": sectionID})
	metrics.RecordConversion()
	payload := t.assemble(s)
	t.mu.Unlock()

	t.delivery.SendNow(ctx, payload)
}

// PageHidden runs the exit flush: every sensor that is still visible or
// has accumulated time represents an in-progress measurement that would
// otherwise be lost, so it is force-buffered before the beacon ships the
// whole buffer. Idempotent; the browser fires both pagehide and
// visibilitychange on the same teardown.
func (t *Tracker) PageHidden(ctx context.Context) {
	t.mu.Lock()
	if t.hidden {
		t.mu.Unlock()
		return
	}
	t.hidden = true

	if t.scrollTimer != nil {
		t.scrollTimer.Stop()
	}

	var forced []model.Payload
	for _, id := range t.order {
		s := t.sensors[id]
		if s.Visible() || s.TimeOnSection() > 0 {
			forced = append(forced, t.assemble(s))
		}
	}
	t.mu.Unlock()

	t.log.Info(ctx, "page hidden; exit flush",
		logger.Int("forcedPayloads", len(forced)),
	)
	t.delivery.ExitFlush(ctx, forced)
}

// logEvent appends to the ring. Callers hold t.mu.
func (t *Tracker) logEvent(eventType string, fields map[string]any) {
	t.events.Append(eventType, fields)
	metrics.RecordEventLogged(eventType)
}
