// Package sensor implements the per-section behavioral state machine:
// visibility timing, scroll velocity, click and rage-click detection, field
// dwell sequencing, pointer distance, and the conversion journey.
//
// A Sensor is a pure state machine: every method takes an explicit instant,
// mutates local state, and returns a signal for the caller to act on
// (log an event, buffer a payload). Sensors never touch the network or the
// ring buffer themselves.
package sensor

import (
	"math"
	"strings"
	"time"

	"github.com/okian/pagepulse/internal/domain/model"
)

// Transition reports the visibility change produced by an observation.
type Transition int

// Visibility transitions.
const (
	TransitionNone Transition = iota
	TransitionEntered
	TransitionExited
)

type hoverState struct {
	start   time.Time
	clicked bool
}

// Sensor holds one tracked section's accumulated state. Not safe for
// concurrent use; the owning tracker serializes access.
type Sensor struct {
	id     string
	bounds model.Rect
	config map[string]any
	th     Thresholds

	// visibility
	visible            bool
	enterTime          time.Time
	exitTime           time.Time
	timeOnSection      time.Duration
	maxVisibilityRatio float64
	scrolledPastFast   bool

	// scroll
	lastScrollY       float64
	lastScrollTime    time.Time
	velocities        []float64
	maxScrollVelocity float64

	// first action timing, each first-write-wins
	firstActionDelay time.Duration
	firstActionSet   bool
	firstClickTime   time.Time
	firstInputTime   time.Time

	// conversion journey
	status        model.Status
	capturedEmail string
	fieldSequence []model.FieldEvent

	// interaction
	clickCount     int
	clickMap       []model.ClickPoint
	clicksInWindow []time.Time
	rageClickCount int
	lastClickTime  time.Time

	pointerDistance float64
	lastPointerX    float64
	lastPointerY    float64
	pointerSeen     bool

	// read-time proxy
	enterToScrollDelay  time.Duration
	enterToScrollSet    bool
	idleWhileVisible    time.Duration
	lastPointerMoveTime time.Time

	// pending goal-button hovers, keyed by goal
	hovers map[string]hoverState

	exposure *model.Exposure
}

// New creates a sensor for a registered section. scrollY seeds the scroll
// baseline with the page position at registration time.
func New(id string, bounds model.Rect, config map[string]any, th Thresholds, scrollY float64, now time.Time) *Sensor {
	return &Sensor{
		id:                  id,
		bounds:              bounds,
		config:              config,
		th:                  th,
		status:              model.StatusViewed,
		lastScrollY:         scrollY,
		lastScrollTime:      now,
		lastPointerMoveTime: now,
		hovers:              map[string]hoverState{},
	}
}

// ID returns the section identifier.
func (s *Sensor) ID() string { return s.id }

// Visible reports whether the section currently intersects the viewport.
func (s *Sensor) Visible() bool { return s.visible }

// Status returns the current conversion state.
func (s *Sensor) Status() model.Status { return s.status }

// TimeOnSection returns the accumulated completed visibility time.
func (s *Sensor) TimeOnSection() time.Duration { return s.timeOnSection }

// MaxVisibilityRatio returns the running maximum intersection ratio.
func (s *Sensor) MaxVisibilityRatio() float64 { return s.maxVisibilityRatio }

// ClickCount returns the total number of clicks observed.
func (s *Sensor) ClickCount() int { return s.clickCount }

// RageClickCount returns the number of rage bursts observed.
func (s *Sensor) RageClickCount() int { return s.rageClickCount }

// Exposure returns the attached experiment exposure, if any.
func (s *Sensor) Exposure() *model.Exposure { return s.exposure }

// SetExposure attaches the experiment exposure record.
func (s *Sensor) SetExposure(e model.Exposure) { s.exposure = &e }

// Observe applies one intersection observation. Time on section only
// advances on exit transitions, accumulated from the matching enter, so
// repeated enter/exit cycles sum correctly.
func (s *Sensor) Observe(ratio float64, intersecting bool, now time.Time) Transition {
	wasVisible := s.visible
	s.visible = intersecting
	if ratio > s.maxVisibilityRatio {
		s.maxVisibilityRatio = ratio
	}

	switch {
	case !wasVisible && intersecting:
		s.enterTime = now
		if now.Sub(s.lastScrollTime) < s.th.FastScrollArrival {
			s.scrolledPastFast = true
		}
		return TransitionEntered

	case wasVisible && !intersecting:
		s.exitTime = now
		if !s.enterTime.IsZero() {
			s.timeOnSection += s.exitTime.Sub(s.enterTime)
		}
		return TransitionExited
	}
	return TransitionNone
}

// Click records one click at viewport coordinates. Returns whether this
// click completed or extended a rage burst, plus the current window size
// for diagnostics.
func (s *Sensor) Click(x, y float64, target, goal string, now time.Time) (rage bool, windowSize int) {
	if s.firstClickTime.IsZero() {
		s.firstClickTime = now
		s.recordFirstAction(now)
	}

	s.clickCount++
	s.clickMap = append(s.clickMap, model.ClickPoint{
		X:         x - s.bounds.Left,
		Y:         y - s.bounds.Top,
		Target:    target,
		Goal:      goal,
		Timestamp: now.UnixMilli(),
	})

	// sliding window: drop samples older than the rage window, then count
	kept := s.clicksInWindow[:0]
	for _, t := range s.clicksInWindow {
		if now.Sub(t) < s.th.RageClickWindow {
			kept = append(kept, t)
		}
	}
	s.clicksInWindow = append(kept, now)

	if len(s.clicksInWindow) >= s.th.RageClickCount {
		s.rageClickCount++
		rage = true
	}

	// a click on a goal button cancels its pending hesitation check
	if goal != "" {
		if h, ok := s.hovers[goal]; ok {
			h.clicked = true
			s.hovers[goal] = h
		}
	}

	s.lastClickTime = now
	return rage, len(s.clicksInWindow)
}

// PointerMove accumulates Euclidean distance between consecutive positions
// and refreshes the idle baseline. The first move only anchors the pointer.
func (s *Sensor) PointerMove(x, y float64, now time.Time) {
	s.lastPointerMoveTime = now
	if s.pointerSeen {
		s.pointerDistance += math.Hypot(x-s.lastPointerX, y-s.lastPointerY)
	}
	s.lastPointerX, s.lastPointerY = x, y
	s.pointerSeen = true
}

// FieldFocus records a focus entry in the field sequence. Returns whether
// this focus advanced the journey from viewed to engaged.
func (s *Sensor) FieldFocus(field string, now time.Time) (engaged bool) {
	if s.firstInputTime.IsZero() {
		s.firstInputTime = now
		s.recordFirstAction(now)
	}

	if s.status == model.StatusViewed {
		s.status = model.StatusEngaged
		engaged = true
	}

	s.fieldSequence = append(s.fieldSequence, model.FieldEvent{
		Field:     field,
		Action:    model.FieldActionFocus,
		Timestamp: now.UnixMilli(),
	})
	s.trimFieldSequence()
	return engaged
}

// FieldBlur closes out the most recent matching focus, recording dwell time
// and the field's final value length. The value itself is never stored.
func (s *Sensor) FieldBlur(field string, valueLength int, now time.Time) {
	var dwell int64
	for i := len(s.fieldSequence) - 1; i >= 0; i-- {
		fe := s.fieldSequence[i]
		if fe.Field == field && fe.Action == model.FieldActionFocus {
			dwell = now.UnixMilli() - fe.Timestamp
			break
		}
	}

	s.fieldSequence = append(s.fieldSequence, model.FieldEvent{
		Field:       field,
		Action:      model.FieldActionBlur,
		Timestamp:   now.UnixMilli(),
		DwellTime:   dwell,
		ValueLength: valueLength,
	})
	s.trimFieldSequence()
}

// FieldInput captures the raw value of email fields once it looks like an
// address. Last write wins. This is the single place user-entered content
// is retained.
func (s *Sensor) FieldInput(fieldType, value string) {
	if fieldType == "email" && strings.Contains(value, "@") {
		s.capturedEmail = value
	}
}

// HoverStart begins a hesitation timer for a goal button.
func (s *Sensor) HoverStart(goal string, now time.Time) {
	s.hovers[goal] = hoverState{start: now}
}

// HoverEnd closes a pending hover. It reports a hesitation duration when
// the pointer left without a click after at least the hesitation threshold.
func (s *Sensor) HoverEnd(goal string, now time.Time) (time.Duration, bool) {
	h, ok := s.hovers[goal]
	if !ok {
		return 0, false
	}
	delete(s.hovers, goal)

	if h.clicked {
		return 0, false
	}
	if d := now.Sub(h.start); d >= s.th.HoverHesitation {
		return d, true
	}
	return 0, false
}

// ScrollTick applies one debounced scroll sample. Only called while the
// section is visible; velocity is meaningless off-screen. Returns the
// computed velocity and whether it crossed the flyby threshold.
func (s *Sensor) ScrollTick(scrollY float64, now time.Time) (velocity float64, flyby bool) {
	deltaY := math.Abs(scrollY - s.lastScrollY)
	deltaT := now.Sub(s.lastScrollTime)

	if deltaT > 0 {
		velocity = deltaY / deltaT.Seconds()
		s.velocities = append(s.velocities, velocity)
		if velocity > s.maxScrollVelocity {
			s.maxScrollVelocity = velocity
		}
		flyby = velocity > s.th.FlybyVelocity
	}

	s.lastScrollY = scrollY
	s.lastScrollTime = now
	return velocity, flyby
}

// Convert advances the journey to converted. Returns false when the sensor
// was already converted. The transition is one-way; later focus events
// cannot regress it.
func (s *Sensor) Convert() bool {
	if s.status == model.StatusConverted {
		return false
	}
	s.status = model.StatusConverted
	return true
}

func (s *Sensor) recordFirstAction(now time.Time) {
	if s.firstActionSet || s.enterTime.IsZero() {
		return
	}
	s.firstActionDelay = now.Sub(s.enterTime)
	s.firstActionSet = true
}

func (s *Sensor) trimFieldSequence() {
	if over := len(s.fieldSequence) - s.th.FieldSequenceCap; over > 0 {
		s.fieldSequence = append(s.fieldSequence[:0], s.fieldSequence[over:]...)
	}
}
