package model

import "encoding/json"

// Event is one ring-buffer entry: a type, a capture timestamp in unix
// milliseconds, and arbitrary typed fields. On the wire the fields are
// flattened next to type and timestamp, matching the collector's shape.
type Event struct {
	Type      string
	Timestamp int64
	Fields    map[string]any
}

// MarshalJSON flattens Fields alongside type and timestamp. A field named
// "type" or "timestamp" cannot shadow the envelope.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["type"] = e.Type
	out["timestamp"] = e.Timestamp
	return json.Marshal(out)
}

// UnmarshalJSON restores the flattened form.
func (e *Event) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if t, ok := raw["type"].(string); ok {
		e.Type = t
	}
	if ts, ok := raw["timestamp"].(float64); ok {
		e.Timestamp = int64(ts)
	}
	delete(raw, "type")
	delete(raw, "timestamp")
	if len(raw) > 0 {
		e.Fields = raw
	}
	return nil
}

// BrowserEvent is one raw signal relayed by the page script to the ingest
// endpoint. Only the fields relevant to a given type are populated; unknown
// types are appended to the diagnostic ring as-is.
type BrowserEvent struct {
	Type      string `json:"type"`
	SectionID string `json:"sectionId,omitempty"`

	// intersection
	Ratio        float64 `json:"ratio,omitempty"`
	Intersecting bool    `json:"intersecting,omitempty"`

	// click / pointer_move
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Target string  `json:"target,omitempty"`
	Goal   string  `json:"goal,omitempty"`

	// field_focus / field_blur / field_input
	Field       string `json:"field,omitempty"`
	FieldType   string `json:"fieldType,omitempty"`
	Value       string `json:"value,omitempty"`
	ValueLength int    `json:"valueLength,omitempty"`

	// scroll
	ScrollY float64 `json:"scrollY,omitempty"`

	// register_section
	Bounds *Rect          `json:"bounds,omitempty"`
	Config map[string]any `json:"config,omitempty"`

	// exposure / weather
	Exposure *Exposure        `json:"exposure,omitempty"`
	Weather  *WeatherSnapshot `json:"weather,omitempty"`

	// error / unhandled_rejection
	Message string `json:"message,omitempty"`
	Source  string `json:"source,omitempty"`
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
	Reason  string `json:"reason,omitempty"`

	// free-form diagnostics for unknown types
	Fields map[string]any `json:"fields,omitempty"`
}
