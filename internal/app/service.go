package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pagepulse/internal/adapters/delivery"
	"github.com/okian/pagepulse/internal/domain/model"
	"github.com/okian/pagepulse/internal/domain/sensor"
	"github.com/okian/pagepulse/pkg/logger"
	"github.com/okian/pagepulse/pkg/metrics"
)

// Default registry configuration constants.
const (
	defaultSessionTTL      = 5 * time.Minute
	defaultJanitorInterval = 30 * time.Second
)

// Assigner hands out sticky experiment exposures. Implemented by the
// experiments package; injected so the registry stays decoupled from
// bucketing policy.
type Assigner interface {
	ExposureFor(ctx context.Context, visitorID, sessionID string) model.Exposure
}

// TrackerFactory builds the engine and its deliverer for one session.
// The default factory wires an HTTP batch transport and a beacon against
// the configured webhook; tests swap it for fakes.
type TrackerFactory func(sessionID string) (*Tracker, func(ctx context.Context))

// session pairs a tracker with its liveness bookkeeping.
type session struct {
	tracker  *Tracker
	teardown func(ctx context.Context)
	lastSeen time.Time
}

// Service is the session registry: it owns one Tracker per active page
// session, routes raw browser events to them, and evicts sessions that go
// quiet without a page-hide.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session

	webhookURL      string
	sessionTTL      time.Duration
	janitorInterval time.Duration
	flushInterval   time.Duration
	bufferCap       int
	retryKeep       int
	beaconQueueSize int
	sendTimeout     time.Duration
	scrollDebounce  time.Duration
	ringCap         int
	thresholds      sensor.Thresholds

	factory  TrackerFactory
	assigner Assigner
	clock    Clock
	log      logger.Logger

	started bool
	stopCh  chan struct{}
}

// NewService constructs a registry with default configuration.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		sessions:        map[string]*session{},
		sessionTTL:      defaultSessionTTL,
		janitorInterval: defaultJanitorInterval,
		thresholds:      sensor.DefaultThresholds(),
		scrollDebounce:  defaultScrollDebounce,
		clock:           time.Now,
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("sessions")
	}
	if s.factory == nil {
		s.factory = s.defaultFactory
	}
	return s
}

// defaultFactory wires a tracker to the webhook through a fresh pipeline.
// Each session gets its own beacon so exit drains are isolated.
func (s *Service) defaultFactory(sessionID string) (*Tracker, func(ctx context.Context)) {
	var beaconOpts []delivery.BeaconOption
	if s.beaconQueueSize > 0 {
		beaconOpts = append(beaconOpts, delivery.WithBeaconQueueSize(s.beaconQueueSize))
	}
	if s.sendTimeout > 0 {
		beaconOpts = append(beaconOpts, delivery.WithBeaconTimeout(s.sendTimeout))
	}
	beacon := delivery.NewBeacon(s.webhookURL, beaconOpts...)

	var httpOpts []delivery.HTTPOption
	if s.sendTimeout > 0 {
		httpOpts = append(httpOpts, delivery.WithHTTPTimeout(s.sendTimeout))
	}

	t := New(
		WithClock(s.clock),
		WithThresholds(s.thresholds),
		WithScrollDebounce(s.scrollDebounce),
		WithRingCapacity(s.ringCap),
		WithLogger(s.log.Named(sessionID[:8])),
	)

	pipeOpts := []delivery.PipelineOption{
		delivery.WithBatchTransport(delivery.NewHTTPTransport(s.webhookURL, httpOpts...)),
		delivery.WithBeaconTransport(beacon),
		delivery.WithDiagnostic(t.LogEvent),
	}
	if s.flushInterval > 0 {
		pipeOpts = append(pipeOpts, delivery.WithFlushInterval(s.flushInterval))
	}
	if s.bufferCap > 0 {
		pipeOpts = append(pipeOpts, delivery.WithBufferCap(s.bufferCap))
	}
	if s.retryKeep > 0 {
		pipeOpts = append(pipeOpts, delivery.WithRetryKeep(s.retryKeep))
	}
	t.delivery = delivery.NewPipeline(pipeOpts...)

	teardown := func(ctx context.Context) {
		if err := beacon.Close(ctx); err != nil {
			s.log.Warn(ctx, "beacon close", logger.Error(err))
		}
	}
	return t, teardown
}

// Start launches the eviction janitor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true

	go s.janitor(ctx)
	s.log.Info(ctx, "session registry started",
		logger.Duration("sessionTTL", s.sessionTTL),
		logger.String("webhook", s.webhookURL),
	)
	return nil
}

// Stop shuts down the janitor and exit-flushes every live session.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)

	live := make(map[string]*session, len(s.sessions))
	for id, sess := range s.sessions {
		live[id] = sess
	}
	s.sessions = map[string]*session{}
	s.mu.Unlock()

	for _, sess := range live {
		sess.tracker.PageHidden(ctx)
		sess.teardown(ctx)
	}
	metrics.UpdateActiveSessions(0)
	s.log.Info(ctx, "session registry stopped",
		logger.Int("flushedSessions", len(live)),
	)
}

// StartSession creates a tracker for one page load and returns its id.
func (s *Service) StartSession(ctx context.Context, info model.PageInfo) (string, error) {
	sessionID := uuid.NewString()

	t, teardown := s.factory(sessionID)
	if err := t.Start(ctx, sessionID, info); err != nil {
		teardown(ctx)
		return "", err
	}

	s.mu.Lock()
	s.sessions[sessionID] = &session{
		tracker:  t,
		teardown: teardown,
		lastSeen: s.clock(),
	}
	count := len(s.sessions)
	s.mu.Unlock()

	metrics.RecordSessionStarted()
	metrics.UpdateActiveSessions(count)
	return sessionID, nil
}

// Dispatch routes a batch of raw browser events to the session's tracker.
// Unknown event types land in the diagnostic ring rather than failing the
// batch; the page script must never see an error for a shape the engine
// has not learned yet.
func (s *Service) Dispatch(ctx context.Context, sessionID string, events []model.BrowserEvent) error {
	sess, ok := s.lookup(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	t := sess.tracker
	for _, e := range events {
		switch e.Type {
		case "register_section":
			bounds := model.Rect{}
			if e.Bounds != nil {
				bounds = *e.Bounds
			}
			t.RegisterSection(e.SectionID, bounds, e.Config)

		case "intersection":
			t.ObserveIntersection([]model.Intersection{{
				SectionID:    e.SectionID,
				Ratio:        e.Ratio,
				Intersecting: e.Intersecting,
			}})

		case "click":
			t.Click(e.SectionID, e.X, e.Y, e.Target, e.Goal)

		case "pointer_move":
			t.PointerMove(e.SectionID, e.X, e.Y)

		case "field_focus":
			t.FieldFocus(e.SectionID, e.Field)

		case "field_blur":
			t.FieldBlur(e.SectionID, e.Field, e.ValueLength)

		case "field_input":
			t.FieldInput(e.SectionID, e.FieldType, e.Value)

		case "hover_start":
			t.HoverStart(e.SectionID, e.Goal)

		case "hover_end":
			t.HoverEnd(ctx, e.SectionID, e.Goal)

		case "scroll":
			t.Scroll(e.ScrollY)

		case "converted":
			t.MarkConverted(ctx, e.SectionID)

		case "weather":
			if e.Weather != nil {
				t.SetWeatherData(*e.Weather)
			} else {
				t.LogEvent("weather_failed", map[string]any{"message": e.Message})
			}

		case "exposure":
			if e.Exposure != nil {
				t.SetExposure(e.SectionID, *e.Exposure)
			}

		case "error":
			t.ReportError(e.Message, e.Source, e.Line, e.Col)

		case "unhandled_rejection":
			t.ReportRejection(e.Reason)

		case "page_hidden":
			t.PageHidden(ctx)
			s.removeSession(ctx, sessionID)

		default:
			t.LogEvent(e.Type, e.Fields)
		}
	}
	return nil
}

// Assign applies a sticky experiment exposure to a section and returns it.
func (s *Service) Assign(ctx context.Context, sessionID, visitorID, sectionID string) (model.Exposure, error) {
	if s.assigner == nil {
		return model.Exposure{}, ErrNoAssigner
	}
	sess, ok := s.lookup(sessionID)
	if !ok {
		return model.Exposure{}, ErrSessionNotFound
	}

	exposure := s.assigner.ExposureFor(ctx, visitorID, sessionID)
	sess.tracker.SetExposure(sectionID, exposure)
	return exposure, nil
}

// removeSession drops a session whose page has gone away and releases its
// delivery resources. The tracker's exit flush must already have run; after
// removal no event can reach it again.
func (s *Service) removeSession(ctx context.Context, sessionID string) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return
	}
	sess.teardown(ctx)
	metrics.UpdateActiveSessions(count)
	s.log.Info(ctx, "session ended",
		logger.String("sessionId", sessionID),
	)
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// GetStats returns registry statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"activeSessions": len(s.sessions),
		"sessionTTL":     s.sessionTTL.String(),
	}

	sections := 0
	for _, sess := range s.sessions {
		sections += sess.tracker.SectionCount()
	}
	stats["trackedSections"] = sections
	return stats
}

// lookup fetches a session and refreshes its liveness stamp.
func (s *Service) lookup(sessionID string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if ok {
		sess.lastSeen = s.clock()
	}
	return sess, ok
}

// janitor periodically evicts sessions that went silent past the TTL.
// Browsers kill pages without ceremony; the TTL path is the exit flush of
// last resort.
func (s *Service) janitor(ctx context.Context) {
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.evictStale(ctx)
		}
	}
}

func (s *Service) evictStale(ctx context.Context) {
	now := s.clock()

	s.mu.Lock()
	var stale []*session
	var staleIDs []string
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.sessionTTL {
			stale = append(stale, sess)
			staleIDs = append(staleIDs, id)
		}
	}
	for _, id := range staleIDs {
		delete(s.sessions, id)
	}
	count := len(s.sessions)
	s.mu.Unlock()

	for i, sess := range stale {
		s.log.Info(ctx, "evicting stale session",
			logger.String("sessionId", staleIDs[i]),
		)
		sess.tracker.PageHidden(ctx)
		sess.teardown(ctx)
		metrics.RecordSessionEvicted()
	}
	if len(stale) > 0 {
		metrics.UpdateActiveSessions(count)
	}
}
