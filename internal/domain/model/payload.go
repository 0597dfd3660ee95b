package model

// Payload is the immutable record the assembler produces for one section.
// Once built it is only queued, sent, or partially re-queued on failure,
// never mutated. All fields are always serialized; nullable ones serialize
// as null.
type Payload struct {
	PageContext

	ComponentID string `json:"componentId"`

	Exposure *Exposure        `json:"exposure"`
	Weather  *WeatherSnapshot `json:"weather"`

	// visibility and time
	TimeOnSectionMs    int64   `json:"timeOnSectionMs"`
	MaxVisibilityRatio float64 `json:"maxVisibilityRatio"`
	ScrolledPastFast   bool    `json:"scrolledPastFast"`

	// scroll behavior
	MaxScrollVelocity float64 `json:"maxScrollVelocity"`
	AvgScrollVelocity float64 `json:"avgScrollVelocity"`

	// first action timing
	FirstActionDelayMs *int64 `json:"firstActionDelayMs"`
	FirstClickDelayMs  *int64 `json:"firstClickDelayMs"`
	FirstInputDelayMs  *int64 `json:"firstInputDelayMs"`

	// conversion journey
	Status        Status       `json:"status"`
	CapturedEmail *string      `json:"capturedEmail"`
	FieldSequence []FieldEvent `json:"fieldSequence"`

	// interaction mapping
	ClickCount      int          `json:"clickCount"`
	RageClickCount  int          `json:"rageClickCount"`
	ClickMap        []ClickPoint `json:"clickMap"`
	PointerDistance int64        `json:"pointerDistance"`
	DeviceGuess     string       `json:"deviceGuess"`

	// read-time proxy
	EnterToScrollDelay *int64 `json:"enterToScrollDelay"`
	IdleWhileVisibleMs int64  `json:"idleWhileVisibleMs"`

	// diagnostics
	JSErrors           []Event `json:"jsErrors"`
	WeatherFetchStatus string  `json:"weatherFetchStatus"`

	// event stream trailer
	EventStream []Event `json:"eventStream"`
}

// Batch is the wire envelope for the timed and exit flush paths.
type Batch struct {
	Batch     []Payload `json:"batch"`
	BatchSize int       `json:"batchSize"`
}
