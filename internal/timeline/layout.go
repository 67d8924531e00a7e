package timeline

import (
	"math"
	"sort"
	"time"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

const (
	stackBaseOffset = 40.0
	stackStep       = 30.0
	hoverGrowth     = 1.3
	glowPadding     = 4.0
)

var significanceRadius = map[entities.Significance]float64{
	entities.SignificanceCritical: 14,
	entities.SignificanceHigh:     11,
	entities.SignificanceMedium:   8,
	entities.SignificanceLow:      6,
}

var eventColors = map[entities.EventType]string{
	entities.EventTypeEncounter:    "#3b82f6",
	entities.EventTypeDiagnosis:    "#ef4444",
	entities.EventTypeLabResult:    "#10b981",
	entities.EventTypeMedication:   "#8b5cf6",
	entities.EventTypeProcedure:    "#f59e0b",
	entities.EventTypeImaging:      "#06b6d4",
	entities.EventTypeVitalSigns:   "#ec4899",
	entities.EventTypeImmunization: "#84cc16",
	entities.EventTypeNote:         "#6b7280",
}

var eventInitials = map[entities.EventType]string{
	entities.EventTypeEncounter:    "E",
	entities.EventTypeDiagnosis:    "D",
	entities.EventTypeLabResult:    "L",
	entities.EventTypeMedication:   "M",
	entities.EventTypeProcedure:    "P",
	entities.EventTypeImaging:      "I",
	entities.EventTypeVitalSigns:   "V",
	entities.EventTypeImmunization: "V",
	entities.EventTypeNote:         "N",
}

// Radius returns the marker radius for a significance level. Unknown
// levels get the medium radius.
func Radius(s entities.Significance) float64 {
	if r, ok := significanceRadius[s]; ok {
		return r
	}
	return significanceRadius[entities.SignificanceMedium]
}

// Color returns the display color for an event type
func Color(t entities.EventType) string {
	if c, ok := eventColors[t]; ok {
		return c
	}
	return eventColors[entities.EventTypeNote]
}

// Initial returns the single-letter glyph drawn inside large markers
func Initial(t entities.EventType) string {
	if s, ok := eventInitials[t]; ok {
		return s
	}
	return "?"
}

// Options configures a layout pass
type Options struct {
	Transform Transform
	Width     float64
	Height    float64
	// Domain is the extent of the full, unfiltered timeline. When nil the
	// extent of the events passed to Layout is used.
	Domain *Domain

	HoveredID  string
	SelectedID string
}

// Marker is the on-screen placement of one event in plot coordinates
type Marker struct {
	Event    entities.TimelineEvent `json:"event"`
	X        float64                `json:"x"`
	Y        float64                `json:"y"`
	Radius   float64                `json:"radius"`
	Visible  bool                   `json:"visible"`
	Opacity  float64                `json:"opacity"`
	Color    string                 `json:"color"`
	Initial  string                 `json:"initial,omitempty"`
	Glow     bool                   `json:"glow,omitempty"`
	Hovered  bool                   `json:"hovered,omitempty"`
	Selected bool                   `json:"selected,omitempty"`
}

// DisplayRadius is the drawn radius including hover growth
func (m Marker) DisplayRadius() float64 {
	if m.Hovered {
		return m.Radius * hoverGrowth
	}
	return m.Radius
}

// GlowRadius is the radius of the halo drawn behind critical markers
func (m Marker) GlowRadius() float64 {
	return m.Radius + glowPadding
}

// Extent returns the date extent of events. ok is false for no events.
func Extent(events []entities.TimelineEvent) (Domain, bool) {
	if len(events) == 0 {
		return Domain{}, false
	}
	d := Domain{Start: events[0].Date.Time, End: events[0].Date.Time}
	for _, ev := range events[1:] {
		if ev.Date.Before(d.Start) {
			d.Start = ev.Date.Time
		}
		if ev.Date.After(d.End) {
			d.End = ev.Date.Time
		}
	}
	return d, true
}

// sortedCopy returns events stably sorted by date without touching the input
func sortedCopy(events []entities.TimelineEvent) []entities.TimelineEvent {
	out := make([]entities.TimelineEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out
}

func stackOffset(i int) float64 {
	sign := 1.0
	if i%2 == 0 {
		sign = -1.0
	}
	return sign * (stackBaseOffset + float64(i/2)*stackStep)
}

func scaleFor(events []entities.TimelineEvent, opts Options) Scale {
	plotWidth, _ := PlotSize(opts.Width, opts.Height)
	var domain Domain
	if opts.Domain != nil {
		domain = *opts.Domain
	} else if d, ok := Extent(events); ok {
		domain = d
	}
	return Scale{Domain: domain, Width: plotWidth}
}

// Layout places events on the plot. It is a pure function of its inputs:
// markers are returned in date order, one per event, including events
// scrolled out of view (Visible false, Opacity 0).
func Layout(events []entities.TimelineEvent, opts Options) []Marker {
	if len(events) == 0 {
		return []Marker{}
	}

	tr := opts.Transform.Normalize()
	sorted := sortedCopy(events)
	scale := scaleFor(sorted, opts)
	_, plotHeight := PlotSize(opts.Width, opts.Height)
	centre := plotHeight / 2

	// Duplicate ids resolve to their first marker in date order, as in the controller
	hovered, selected := -1, -1
	markers := make([]Marker, len(sorted))
	for i, ev := range sorted {
		if hovered < 0 && opts.HoveredID != "" && ev.ID == opts.HoveredID {
			hovered = i
		}
		if selected < 0 && opts.SelectedID != "" && ev.ID == opts.SelectedID {
			selected = i
		}
		x := scale.Screen(ev.Date.Time, tr)
		visible := x >= 0 && x <= scale.Width && !math.IsNaN(x)
		opacity := 0.0
		if visible {
			opacity = 1
		}
		significance := ev.Significance()
		initial := ""
		if significance == entities.SignificanceCritical || significance == entities.SignificanceHigh {
			initial = Initial(ev.EventType)
		}
		markers[i] = Marker{
			Event:    ev,
			X:        x,
			Y:        centre + stackOffset(i),
			Radius:   Radius(significance),
			Visible:  visible,
			Opacity:  opacity,
			Color:    Color(ev.EventType),
			Initial:  initial,
			Glow:     significance == entities.SignificanceCritical,
			Hovered:  i == hovered,
			Selected: i == selected,
		}
	}
	return markers
}

// Frame is everything needed to draw one timeline view
type Frame struct {
	Width      float64                 `json:"width"`
	Height     float64                 `json:"height"`
	PlotWidth  float64                 `json:"plot_width"`
	PlotHeight float64                 `json:"plot_height"`
	Transform  Transform               `json:"transform"`
	Domain     Domain                  `json:"domain"`
	Markers    []Marker                `json:"markers"`
	Ticks      []Tick                  `json:"ticks"`
	YearLabels []YearLabel             `json:"year_labels"`
	Legend     []LegendEntry           `json:"legend"`
	Stats      map[string]int          `json:"stats"`
	Hovered    *Marker                 `json:"hovered,omitempty"`
	Selected   *entities.TimelineEvent `json:"selected,omitempty"`
}

// LegendEntry counts the events of one type
type LegendEntry struct {
	Type  entities.EventType `json:"type"`
	Color string             `json:"color"`
	Count int                `json:"count"`
}

// Legend counts events per known type in legend order, omitting types with
// no events. Unknown types are counted last in first-seen order.
func Legend(events []entities.TimelineEvent) []LegendEntry {
	counts := make(map[entities.EventType]int)
	var unknown []entities.EventType
	for _, ev := range events {
		if _, seen := counts[ev.EventType]; !seen && !ev.EventType.Known() {
			unknown = append(unknown, ev.EventType)
		}
		counts[ev.EventType]++
	}

	entries := []LegendEntry{}
	for _, t := range append(entities.EventTypes(), unknown...) {
		if counts[t] > 0 {
			entries = append(entries, LegendEntry{Type: t, Color: Color(t), Count: counts[t]})
		}
	}
	return entries
}

// BuildFrame runs Layout and derives the axis, labels and legend for the
// same inputs.
func BuildFrame(events []entities.TimelineEvent, opts Options) Frame {
	tr := opts.Transform.Normalize()
	opts.Transform = tr
	plotWidth, plotHeight := PlotSize(opts.Width, opts.Height)
	markers := Layout(events, opts)
	scale := scaleFor(events, opts)

	years := make([]int, 0, len(markers))
	stats := map[string]int{"total": len(markers), "visible": 0, "critical": 0}
	frame := Frame{
		Width:      opts.Width,
		Height:     opts.Height,
		PlotWidth:  plotWidth,
		PlotHeight: plotHeight,
		Transform:  tr,
		Domain:     scale.Domain,
		Markers:    markers,
		Legend:     Legend(events),
		Stats:      stats,
		YearLabels: []YearLabel{},
	}

	for i := range markers {
		m := &markers[i]
		years = append(years, m.Event.Date.Year())
		if m.Visible {
			stats["visible"]++
		}
		if m.Event.Significance() == entities.SignificanceCritical {
			stats["critical"]++
		}
		if m.Hovered {
			frame.Hovered = m
		}
		if m.Selected {
			ev := m.Event
			frame.Selected = &ev
		}
	}

	if len(markers) > 0 {
		frame.Ticks = scale.Ticks(tr)
		frame.YearLabels = scale.YearLabels(years, tr)
	}
	if frame.Ticks == nil {
		frame.Ticks = []Tick{}
	}
	return frame
}

// Span returns the duration covered by the domain
func (d Domain) Span() time.Duration {
	return d.End.Sub(d.Start)
}
