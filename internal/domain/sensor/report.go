package sensor

import (
	"math"
	"time"

	"github.com/okian/pagepulse/internal/domain/model"
)

// Report is the stable view of a sensor used to assemble one payload.
// Building it has two deliberate side effects on the sensor, each computed
// once and cached: idle-while-visible accrual and the enter-to-first-scroll
// delay resolved through the caller's ring scan.
type Report struct {
	SectionID string

	TimeOnSectionMs    int64
	MaxVisibilityRatio float64
	ScrolledPastFast   bool

	MaxScrollVelocity float64
	AvgScrollVelocity float64

	FirstActionDelayMs *int64
	FirstClickDelayMs  *int64
	FirstInputDelayMs  *int64

	Status        model.Status
	CapturedEmail *string
	FieldSequence []model.FieldEvent

	ClickCount      int
	RageClickCount  int
	ClickMap        []model.ClickPoint
	PointerDistance int64

	EnterToScrollDelayMs *int64
	IdleWhileVisibleMs   int64

	Exposure *model.Exposure
}

// ScrollScan resolves the first scroll instant strictly after the given
// time, typically by scanning the page's ring buffer.
type ScrollScan func(after time.Time) (time.Time, bool)

// Report snapshots the sensor for payload assembly.
func (s *Sensor) Report(now time.Time, firstScrollAfter ScrollScan) Report {
	s.accrueIdle(now)
	s.resolveEnterToScroll(firstScrollAfter)

	// an open visit counts as if it ended now; forced flushes must not
	// report zero for a section the visitor is still looking at
	timeOn := s.timeOnSection
	if s.visible && !s.enterTime.IsZero() {
		timeOn += now.Sub(s.enterTime)
	}

	r := Report{
		SectionID:          s.id,
		TimeOnSectionMs:    timeOn.Milliseconds(),
		MaxVisibilityRatio: s.maxVisibilityRatio,
		ScrolledPastFast:   s.scrolledPastFast,
		MaxScrollVelocity:  s.maxScrollVelocity,
		AvgScrollVelocity:  mean(s.velocities),
		Status:             s.status,
		ClickCount:         s.clickCount,
		RageClickCount:     s.rageClickCount,
		PointerDistance:    int64(math.Round(s.pointerDistance)),
		IdleWhileVisibleMs: s.idleWhileVisible.Milliseconds(),
		Exposure:           s.exposure,
	}

	if s.firstActionSet {
		r.FirstActionDelayMs = ptr(s.firstActionDelay.Milliseconds())
	}
	if !s.firstClickTime.IsZero() && !s.enterTime.IsZero() {
		r.FirstClickDelayMs = ptr(s.firstClickTime.Sub(s.enterTime).Milliseconds())
	}
	if !s.firstInputTime.IsZero() && !s.enterTime.IsZero() {
		r.FirstInputDelayMs = ptr(s.firstInputTime.Sub(s.enterTime).Milliseconds())
	}
	if s.capturedEmail != "" {
		email := s.capturedEmail
		r.CapturedEmail = &email
	}
	if s.enterToScrollSet {
		r.EnterToScrollDelayMs = ptr(s.enterToScrollDelay.Milliseconds())
	}

	r.FieldSequence = make([]model.FieldEvent, len(s.fieldSequence))
	copy(r.FieldSequence, s.fieldSequence)

	// the click map is capped at transmission time, not at capture time
	clicks := s.clickMap
	if len(clicks) > s.th.ClickMapSendCap {
		clicks = clicks[len(clicks)-s.th.ClickMapSendCap:]
	}
	r.ClickMap = make([]model.ClickPoint, len(clicks))
	copy(r.ClickMap, clicks)

	return r
}

// accrueIdle adds the current pointer-silence gap while the section is
// visible, once it exceeds the idle threshold.
func (s *Sensor) accrueIdle(now time.Time) {
	if !s.visible {
		return
	}
	if gap := now.Sub(s.lastPointerMoveTime); gap > s.th.Idle {
		s.idleWhileVisible += gap
	}
}

// resolveEnterToScroll memoizes the delay from zone entry to the first
// scroll sample after it.
func (s *Sensor) resolveEnterToScroll(firstScrollAfter ScrollScan) {
	if s.enterToScrollSet || s.enterTime.IsZero() || firstScrollAfter == nil {
		return
	}
	if at, ok := firstScrollAfter(s.enterTime); ok {
		s.enterToScrollDelay = at.Sub(s.enterTime)
		s.enterToScrollSet = true
	}
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func ptr(v int64) *int64 { return &v }
