package simulate

import (
	"fmt"
	"math/rand"

	"github.com/okian/pagepulse/internal/domain/model"
)

// Section ids a marketing page typically carries.
var sectionIDs = []string{"hero", "services", "testimonials", "quote-form", "footer-cta"}

var pagePaths = []string{"/", "/services/roof-repair", "/services/gutter-cleaning", "/areas/springfield"}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148",
}

// randomPageInfo builds one plausible page bootstrap.
func randomPageInfo(rng *rand.Rand) model.PageInfo {
	path := pagePaths[rng.Intn(len(pagePaths))]
	ua := userAgents[rng.Intn(len(userAgents))]
	return model.PageInfo{
		URL:            "https://springfield-roofing.example" + path + "?utm_source=google&utm_medium=cpc",
		Referrer:       "https://www.google.com/",
		UserAgent:      ua,
		Timezone:       "America/Chicago",
		ScreenWidth:    1920,
		ScreenHeight:   1080,
		ViewportWidth:  1440,
		ViewportHeight: 900,
		TouchCapable:   rng.Float64() < 0.3,
	}
}

// journey scripts one visitor's event stream: section registration, a
// scroll-through with visibility transitions, some interaction, and an
// optional conversion before the page hides.
func journey(rng *rand.Rand, convert bool) []model.BrowserEvent {
	events := make([]model.BrowserEvent, 0, 64)

	for i, id := range sectionIDs {
		events = append(events, model.BrowserEvent{
			Type:      "register_section",
			SectionID: id,
			Bounds:    &model.Rect{Left: 0, Top: float64(i) * 800, Width: 1440, Height: 800},
		})
	}

	scrollY := 0.0
	for i, id := range sectionIDs {
		events = append(events,
			model.BrowserEvent{Type: "intersection", SectionID: id, Ratio: 0.6, Intersecting: true},
			model.BrowserEvent{Type: "scroll", ScrollY: scrollY},
		)

		// wander the pointer around the section
		for j := 0; j < 3+rng.Intn(5); j++ {
			events = append(events, model.BrowserEvent{
				Type:      "pointer_move",
				SectionID: id,
				X:         rng.Float64() * 1440,
				Y:         float64(i)*800 + rng.Float64()*800,
			})
		}

		if rng.Float64() < 0.5 {
			events = append(events, model.BrowserEvent{
				Type:      "click",
				SectionID: id,
				X:         rng.Float64() * 1440,
				Y:         float64(i)*800 + rng.Float64()*800,
				Target:    "div",
			})
		}

		if id == "quote-form" {
			events = append(events, formJourney(rng, id, convert)...)
		}

		events = append(events, model.BrowserEvent{
			Type: "intersection", SectionID: id, Ratio: 0, Intersecting: false,
		})
		scrollY += 800
	}

	events = append(events, model.BrowserEvent{Type: "page_hidden"})
	return events
}

// formJourney fills the quote form: focus, typing, blur, and a conversion
// when the visitor follows through.
func formJourney(rng *rand.Rand, sectionID string, convert bool) []model.BrowserEvent {
	events := []model.BrowserEvent{
		{Type: "field_focus", SectionID: sectionID, Field: "name"},
		{Type: "field_blur", SectionID: sectionID, Field: "name", ValueLength: 5 + rng.Intn(15)},
		{Type: "field_focus", SectionID: sectionID, Field: "email"},
		{
			Type: "field_input", SectionID: sectionID, FieldType: "email",
			Value: fmt.Sprintf("visitor%d@example.com", rng.Intn(10000)),
		},
		{Type: "field_blur", SectionID: sectionID, Field: "email", ValueLength: 20},
		{Type: "hover_start", SectionID: sectionID, Goal: "request-quote"},
	}

	if convert {
		events = append(events,
			model.BrowserEvent{
				Type: "click", SectionID: sectionID,
				X: 720, Y: 3000, Target: "button", Goal: "request-quote",
			},
			model.BrowserEvent{Type: "converted", SectionID: sectionID},
		)
	} else {
		// hovered the button, then walked away
		events = append(events, model.BrowserEvent{
			Type: "hover_end", SectionID: sectionID, Goal: "request-quote",
		})
	}
	return events
}
