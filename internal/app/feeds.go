package tracker

import (
	"context"
	"time"

	"github.com/okian/pagepulse/internal/domain/model"
	"github.com/okian/pagepulse/internal/domain/sensor"
	"github.com/okian/pagepulse/pkg/logger"
	"github.com/okian/pagepulse/pkg/metrics"
)

// ObserveIntersection applies a batch of visibility observations. Zone
// entries and exits are logged to the ring; an exit closes out the visit and
// buffers a payload for the section. After a page hide the exit flush has
// already shipped everything, so late observations are dropped; a payload
// buffered now would never leave the pipeline.
func (t *Tracker) ObserveIntersection(entries []model.Intersection) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hidden {
		return
	}
	now := t.clock()
	for _, entry := range entries {
		s, ok := t.sensors[entry.SectionID]
		if !ok {
			continue
		}

		switch s.Observe(entry.Ratio, entry.Intersecting, now) {
		case sensor.TransitionEntered:
			t.logEvent("enter_zone", map[string]any{
				"sectionId": entry.SectionID,
				"ratio":     entry.Ratio,
			})
		case sensor.TransitionExited:
			t.logEvent("exit_zone", map[string]any{
				"sectionId":     entry.SectionID,
				"timeOnSection": s.TimeOnSection().Milliseconds(),
			})
			t.delivery.Enqueue(t.assemble(s))
		}
	}
}

// Click routes one click to a section's sensor and logs rage bursts.
func (t *Tracker) Click(sectionID string, x, y float64, target, goal string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sensors[sectionID]
	if !ok || t.hidden {
		return
	}

	now := t.clock()
	t.logEvent("click", map[string]any{
		"sectionId": sectionID,
		"target":    target,
	})
	if rage, window := s.Click(x, y, target, goal, now); rage {
		t.logEvent("rage_click", map[string]any{
			"sectionId": sectionID,
			"clicks":    window,
		})
		metrics.RecordRageClick()
	}
}

// PointerMove routes pointer motion to a section's sensor.
func (t *Tracker) PointerMove(sectionID string, x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sensors[sectionID]; ok && !t.hidden {
		s.PointerMove(x, y, t.clock())
	}
}

// FieldFocus records a form field focus. The first focus on a section
// advances its journey to engaged.
func (t *Tracker) FieldFocus(sectionID, field string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sensors[sectionID]
	if !ok || t.hidden {
		return
	}

	if s.FieldFocus(field, t.clock()) {
		t.logEvent("form_engaged", map[string]any{
			"sectionId": sectionID,
			"field":     field,
		})
	}
}

// FieldBlur records a form field blur with the field's final value length.
func (t *Tracker) FieldBlur(sectionID, field string, valueLength int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sensors[sectionID]; ok && !t.hidden {
		s.FieldBlur(field, valueLength, t.clock())
	}
}

// FieldInput routes a field input sample to a section's sensor.
func (t *Tracker) FieldInput(sectionID, fieldType, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sensors[sectionID]; ok && !t.hidden {
		s.FieldInput(fieldType, value)
	}
}

// HoverStart begins a hesitation timer on a goal button.
func (t *Tracker) HoverStart(sectionID, goal string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sensors[sectionID]; ok && !t.hidden {
		s.HoverStart(goal, t.clock())
	}
}

// HoverEnd closes a goal button hover and logs a hesitation when the
// pointer lingered past the threshold without clicking.
func (t *Tracker) HoverEnd(ctx context.Context, sectionID, goal string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sensors[sectionID]
	if !ok || t.hidden {
		return
	}

	if d, hesitated := s.HoverEnd(goal, t.clock()); hesitated {
		t.logEvent("button_hesitation", map[string]any{
			"sectionId":  sectionID,
			"goal":       goal,
			"durationMs": d.Milliseconds(),
		})
		metrics.RecordButtonHesitation()
		t.log.Debug(ctx, "button hesitation",
			logger.String("sectionId", sectionID),
			logger.String("goal", goal),
			logger.Duration("duration", d),
		)
	}
}

// Scroll records a page scroll position. Samples are debounced; each
// settled sample is logged to the ring and fanned out to every visible
// sensor for velocity tracking. A zero debounce applies samples
// synchronously.
func (t *Tracker) Scroll(scrollY float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hidden {
		return
	}
	t.pendingScrollY = scrollY

	if t.debounce <= 0 {
		t.scrollTick()
		return
	}
	if t.scrollTimer == nil {
		t.scrollTimer = time.AfterFunc(t.debounce, func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.hidden {
				return
			}
			t.scrollTick()
		})
		return
	}
	t.scrollTimer.Reset(t.debounce)
}

// scrollTick applies the settled scroll sample. Callers hold t.mu.
func (t *Tracker) scrollTick() {
	now := t.clock()
	scrollY := t.pendingScrollY
	t.lastScrollY = scrollY

	t.logEvent("scroll", map[string]any{"scrollY": scrollY})

	for _, id := range t.order {
		s := t.sensors[id]
		if !s.Visible() {
			continue
		}
		if velocity, flyby := s.ScrollTick(scrollY, now); flyby {
			t.logEvent("scroll_flyby", map[string]any{
				"sectionId": id,
				"velocity":  velocity,
			})
			metrics.RecordScrollFlyby()
		}
	}
}
