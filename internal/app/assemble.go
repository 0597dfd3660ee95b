package tracker

import (
	"time"

	"github.com/okian/pagepulse/internal/domain/model"
	"github.com/okian/pagepulse/internal/domain/sensor"
)

// Trailer sizes carried in every payload.
const (
	errorTrailerSize = 5
	eventTrailerSize = 60
)

// assemble builds one payload from a sensor's report plus the shared page
// state. Callers hold t.mu.
func (t *Tracker) assemble(s *sensor.Sensor) model.Payload {
	now := t.clock()

	scan := func(after time.Time) (time.Time, bool) {
		e, ok := t.events.FirstOfTypeAfter("scroll", after.UnixMilli())
		if !ok {
			return time.Time{}, false
		}
		return time.UnixMilli(e.Timestamp), true
	}
	r := s.Report(now, scan)

	weatherStatus := "failed"
	if t.weather != nil {
		weatherStatus = "success"
	}

	return model.Payload{
		PageContext: t.page,
		ComponentID: r.SectionID,

		Exposure: r.Exposure,
		Weather:  t.weather,

		TimeOnSectionMs:    r.TimeOnSectionMs,
		MaxVisibilityRatio: r.MaxVisibilityRatio,
		ScrolledPastFast:   r.ScrolledPastFast,

		MaxScrollVelocity: r.MaxScrollVelocity,
		AvgScrollVelocity: r.AvgScrollVelocity,

		FirstActionDelayMs: r.FirstActionDelayMs,
		FirstClickDelayMs:  r.FirstClickDelayMs,
		FirstInputDelayMs:  r.FirstInputDelayMs,

		Status:        r.Status,
		CapturedEmail: r.CapturedEmail,
		FieldSequence: r.FieldSequence,

		ClickCount:      r.ClickCount,
		RageClickCount:  r.RageClickCount,
		ClickMap:        r.ClickMap,
		PointerDistance: r.PointerDistance,
		DeviceGuess:     t.deviceGuess,

		EnterToScrollDelay: r.EnterToScrollDelayMs,
		IdleWhileVisibleMs: r.IdleWhileVisibleMs,

		JSErrors:           t.events.LastOfType("error", errorTrailerSize),
		WeatherFetchStatus: weatherStatus,

		EventStream: t.events.Last(eventTrailerSize),
	}
}
