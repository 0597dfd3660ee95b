package sensor

import "time"

// Default detection thresholds. The values mirror what the site has been
// tuned to; config can override any of them.
const (
	defaultRageClickCount    = 3
	defaultRageClickWindow   = 1000 * time.Millisecond
	defaultFlybyVelocity     = 1800.0 // px/s
	defaultIdleThreshold     = 1200 * time.Millisecond
	defaultFastScrollArrival = 1500 * time.Millisecond
	defaultHoverHesitation   = 2000 * time.Millisecond
	defaultFieldSequenceCap  = 50
	defaultClickMapSendCap   = 20
)

// Thresholds bundles every tunable detection constant a sensor uses.
type Thresholds struct {
	// RageClickCount clicks within RageClickWindow count as one rage burst.
	RageClickCount  int
	RageClickWindow time.Duration

	// FlybyVelocity is the scroll speed, in px/s, past which a visible
	// section is considered not read.
	FlybyVelocity float64

	// Idle is the pointer-silence gap after which visible time counts as
	// idle.
	Idle time.Duration

	// FastScrollArrival marks a section as scrolled-past-fast when it is
	// entered within this window of the last scroll sample.
	FastScrollArrival time.Duration

	// HoverHesitation is the minimum goal-button hover, without a click,
	// reported as hesitation.
	HoverHesitation time.Duration

	// FieldSequenceCap bounds the focus/blur journey, drop-oldest.
	FieldSequenceCap int

	// ClickMapSendCap bounds the click map at transmission time only;
	// capture is unbounded within the page's lifetime.
	ClickMapSendCap int
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RageClickCount:    defaultRageClickCount,
		RageClickWindow:   defaultRageClickWindow,
		FlybyVelocity:     defaultFlybyVelocity,
		Idle:              defaultIdleThreshold,
		FastScrollArrival: defaultFastScrollArrival,
		HoverHesitation:   defaultHoverHesitation,
		FieldSequenceCap:  defaultFieldSequenceCap,
		ClickMapSendCap:   defaultClickMapSendCap,
	}
}
