// Package model contains domain records passed between layers.
//
// JSON field names match the wire format the collector webhook already
// ingests, so renaming a Go field must never change its tag.
package model

import (
	"net/url"
	"strings"
	"time"
)

// Status tracks a section's conversion journey. Transitions are monotonic:
// viewed -> engaged -> converted, never backwards.
type Status string

// Conversion journey states.
const (
	StatusViewed    Status = "viewed"
	StatusEngaged   Status = "engaged"
	StatusConverted Status = "converted"
)

// FieldAction distinguishes entries in a sensor's field sequence.
type FieldAction string

// Field sequence actions.
const (
	FieldActionFocus FieldAction = "focus"
	FieldActionBlur  FieldAction = "blur"
)

// PageInfo is the raw page snapshot the page script reports when a session
// starts. PageContext is derived from it exactly once.
type PageInfo struct {
	URL            string `json:"url"`
	Referrer       string `json:"referrer"`
	UserAgent      string `json:"userAgent"`
	Timezone       string `json:"timezone"`
	ScreenWidth    int    `json:"screenWidth"`
	ScreenHeight   int    `json:"screenHeight"`
	ViewportWidth  int    `json:"viewportWidth"`
	ViewportHeight int    `json:"viewportHeight"`
	TouchCapable   bool   `json:"touchCapable"`
}

// PageContext is captured once per session and read-only thereafter.
type PageContext struct {
	SessionID      string  `json:"sessionId"`
	Timestamp      int64   `json:"timestamp"`
	Timezone       string  `json:"timezone"`
	PageURL        string  `json:"pageUrl"`
	PagePath       string  `json:"pagePath"`
	Referrer       *string `json:"referrer"`
	UTMSource      *string `json:"utmSource"`
	UTMMedium      *string `json:"utmMedium"`
	UTMCampaign    *string `json:"utmCampaign"`
	UTMContent     *string `json:"utmContent"`
	UTMTerm        *string `json:"utmTerm"`
	PageType       string  `json:"pageType"`
	UserAgent      string  `json:"userAgent"`
	ScreenWidth    int     `json:"screenWidth"`
	ScreenHeight   int     `json:"screenHeight"`
	ViewportWidth  int     `json:"viewportWidth"`
	ViewportHeight int     `json:"viewportHeight"`
}

// NewPageContext derives the immutable page context from the reported page
// info. UTM parameters come from the URL query; absent values stay null on
// the wire.
func NewPageContext(sessionID string, info PageInfo, now time.Time) PageContext {
	ctx := PageContext{
		SessionID:      sessionID,
		Timestamp:      now.UnixMilli(),
		Timezone:       info.Timezone,
		PageURL:        info.URL,
		Referrer:       optional(info.Referrer),
		PageType:       "other",
		UserAgent:      info.UserAgent,
		ScreenWidth:    info.ScreenWidth,
		ScreenHeight:   info.ScreenHeight,
		ViewportWidth:  info.ViewportWidth,
		ViewportHeight: info.ViewportHeight,
	}

	u, err := url.Parse(info.URL)
	if err != nil {
		return ctx
	}

	ctx.PagePath = u.Path
	ctx.PageType = classifyPage(u.Path)

	q := u.Query()
	ctx.UTMSource = optional(q.Get("utm_source"))
	ctx.UTMMedium = optional(q.Get("utm_medium"))
	ctx.UTMCampaign = optional(q.Get("utm_campaign"))
	ctx.UTMContent = optional(q.Get("utm_content"))
	ctx.UTMTerm = optional(q.Get("utm_term"))

	return ctx
}

// classifyPage maps a path onto the site's page taxonomy.
func classifyPage(path string) string {
	switch {
	case path == "/" || path == "/index.html":
		return "home"
	case strings.Contains(path, "/services/"):
		return "service"
	case strings.Contains(path, "/areas/"):
		return "local"
	default:
		return "other"
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Exposure records the experiment cell a visitor saw plus the copy that was
// actually rendered, attached to a sensor for downstream analysis.
type Exposure struct {
	SessionID   string            `json:"sessionId"`
	CopyBucket  string            `json:"copyBucket"`
	StyleBucket string            `json:"styleBucket"`
	Cell        string            `json:"cell"`
	AppliedCopy map[string]string `json:"appliedCopy"`
	Timestamp   int64             `json:"timestamp"`
}

// WeatherCurrent holds present conditions.
type WeatherCurrent struct {
	Temp int     `json:"temp"`
	Rain float64 `json:"rain"`
	Wind int     `json:"wind"`
}

// WeatherDay is one day of forecast.
type WeatherDay struct {
	Date      string  `json:"date"`
	PrecipSum float64 `json:"precipSum"`
	WindMax   int     `json:"windMax"`
	TempMin   int     `json:"tempMin"`
	TempMax   int     `json:"tempMax"`
}

// WeatherDerived carries the classification the content layer keys off.
type WeatherDerived struct {
	Mode              string   `json:"mode"`
	StormLikely24h    bool     `json:"stormLikely24h"`
	Triggers          []string `json:"triggers"`
	RainNext4DTotalMm float64  `json:"rainNext4dTotalMm"`
	MaxWindNext4DKmh  int      `json:"maxWindNext4dKmh"`
}

// WeatherSnapshot is supplied by the weather collaborator via
// SetWeatherData. The agent never fetches or classifies weather itself.
type WeatherSnapshot struct {
	FetchedAt int64          `json:"fetchedAt"`
	Current   WeatherCurrent `json:"current"`
	Forecast  []WeatherDay   `json:"forecast"`
	Derived   WeatherDerived `json:"derived"`
}

// FieldEvent is one entry in a sensor's focus/blur sequence. Dwell time and
// value length are only present on blur; the value itself is never stored.
type FieldEvent struct {
	Field       string      `json:"field"`
	Action      FieldAction `json:"action"`
	Timestamp   int64       `json:"timestamp"`
	DwellTime   int64       `json:"dwellTime,omitempty"`
	ValueLength int         `json:"valueLength,omitempty"`
}

// ClickPoint records one click with coordinates relative to the section's
// bounding box.
type ClickPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Target    string  `json:"target"`
	Goal      string  `json:"goal,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// Rect is a section's bounding box in viewport coordinates at registration
// time.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Intersection is one visibility observation for a registered section.
type Intersection struct {
	SectionID    string  `json:"sectionId"`
	Ratio        float64 `json:"ratio"`
	Intersecting bool    `json:"intersecting"`
}
