package timeline

import (
	"math"
	"time"
)

const (
	MarginTop    = 40.0
	MarginRight  = 40.0
	MarginBottom = 60.0
	MarginLeft   = 40.0

	MinScale = 0.5
	MaxScale = 10.0

	// ZoomInFactor and ZoomOutFactor are applied by the zoom buttons
	ZoomInFactor  = 1.5
	ZoomOutFactor = 0.67
)

// Transform is a zoom/pan transform applied after the base scale:
// screen x = X + K * base(date).
type Transform struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity is the untransformed view
func Identity() Transform {
	return Transform{K: 1}
}

// ClampScale limits k to [MinScale, MaxScale]
func ClampScale(k float64) float64 {
	if math.IsNaN(k) || k <= 0 {
		return MinScale
	}
	return math.Max(MinScale, math.Min(MaxScale, k))
}

// Normalize returns t with K clamped. A zero transform becomes Identity.
func (t Transform) Normalize() Transform {
	if t == (Transform{}) {
		return Identity()
	}
	t.K = ClampScale(t.K)
	return t
}

// ApplyX maps a base-scale coordinate to screen space
func (t Transform) ApplyX(x float64) float64 {
	return t.X + t.K*x
}

// InvertX maps a screen coordinate back to base-scale space
func (t Transform) InvertX(x float64) float64 {
	return (x - t.X) / t.K
}

// ScaleAbout zooms by factor keeping screen point anchorX fixed. The
// resulting K is clamped and the translation adjusted to the clamped K.
func (t Transform) ScaleAbout(factor, anchorX float64) Transform {
	t = t.Normalize()
	k := ClampScale(t.K * factor)
	base := t.InvertX(anchorX)
	return Transform{K: k, X: anchorX - k*base, Y: t.Y}
}

// Translate pans by dx, dy screen pixels
func (t Transform) Translate(dx, dy float64) Transform {
	t = t.Normalize()
	t.X += dx
	t.Y += dy
	return t
}

// Domain is the date extent mapped onto the plot width
type Domain struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PlotSize returns the plot area for a viewport of width x height
func PlotSize(width, height float64) (plotWidth, plotHeight float64) {
	return width - MarginLeft - MarginRight, height - MarginTop - MarginBottom
}

// Scale is the linear time scale from Domain onto [0, Width]
type Scale struct {
	Domain Domain
	Width  float64
}

// Base maps t onto [0, Width]. A zero-length domain maps every date to
// the middle of the range.
func (s Scale) Base(t time.Time) float64 {
	span := s.Domain.End.Sub(s.Domain.Start)
	if span <= 0 {
		return s.Width / 2
	}
	return float64(t.Sub(s.Domain.Start)) / float64(span) * s.Width
}

// Invert maps a base coordinate back to a time
func (s Scale) Invert(x float64) time.Time {
	span := s.Domain.End.Sub(s.Domain.Start)
	if span <= 0 || s.Width == 0 {
		return s.Domain.Start
	}
	return s.Domain.Start.Add(time.Duration(x / s.Width * float64(span)))
}

// Screen maps t through the base scale and then the transform
func (s Scale) Screen(t time.Time, tr Transform) float64 {
	return tr.ApplyX(s.Base(t))
}

// Tick is an axis tick in screen coordinates
type Tick struct {
	Time  time.Time `json:"time"`
	X     float64   `json:"x"`
	Label string    `json:"label"`
}

type tickInterval struct {
	approx time.Duration
	step   func(time.Time) time.Time
	floor  func(time.Time) time.Time
}

const day = 24 * time.Hour

func monthInterval(n int) tickInterval {
	return tickInterval{
		approx: time.Duration(n) * 30 * day,
		floor: func(t time.Time) time.Time {
			m := (int(t.Month()) - 1) / n * n
			return time.Date(t.Year(), time.Month(m+1), 1, 0, 0, 0, 0, time.UTC)
		},
		step: func(t time.Time) time.Time { return t.AddDate(0, n, 0) },
	}
}

func yearInterval(n int) tickInterval {
	return tickInterval{
		approx: time.Duration(n) * 365 * day,
		floor: func(t time.Time) time.Time {
			return time.Date(t.Year()/n*n, time.January, 1, 0, 0, 0, 0, time.UTC)
		},
		step: func(t time.Time) time.Time { return t.AddDate(n, 0, 0) },
	}
}

func dayInterval(n int) tickInterval {
	return tickInterval{
		approx: time.Duration(n) * day,
		floor: func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		},
		step: func(t time.Time) time.Time { return t.AddDate(0, 0, n) },
	}
}

var tickIntervals = []tickInterval{
	dayInterval(1),
	dayInterval(7),
	monthInterval(1),
	monthInterval(3),
	monthInterval(6),
	yearInterval(1),
	yearInterval(2),
	yearInterval(5),
	yearInterval(10),
	yearInterval(20),
	yearInterval(50),
}

// TickCount is the number of axis ticks targeted for a plot width
func TickCount(plotWidth float64) int {
	return max(int(math.Floor(plotWidth/100)), 4)
}

// Ticks returns calendar-aligned ticks covering the visible part of the
// transformed scale, labelled "Jan 2006".
func (s Scale) Ticks(tr Transform) []Tick {
	tr = tr.Normalize()
	if s.Width <= 0 {
		return nil
	}
	start := s.Invert(tr.InvertX(0))
	end := s.Invert(tr.InvertX(s.Width))
	if !end.After(start) {
		return nil
	}

	target := end.Sub(start) / time.Duration(TickCount(s.Width))
	interval := tickIntervals[len(tickIntervals)-1]
	for _, candidate := range tickIntervals {
		if candidate.approx >= target {
			interval = candidate
			break
		}
	}

	var ticks []Tick
	for t := interval.floor(start); !t.After(end); t = interval.step(t) {
		if t.Before(start) {
			continue
		}
		ticks = append(ticks, Tick{Time: t, X: s.Screen(t, tr), Label: t.Format("Jan 2006")})
	}
	return ticks
}

// YearLabel marks a calendar year at its midpoint (July 1st)
type YearLabel struct {
	Year int     `json:"year"`
	X    float64 `json:"x"`
}

// YearLabels places one label per distinct year in years, omitting labels
// that fall outside the plot.
func (s Scale) YearLabels(years []int, tr Transform) []YearLabel {
	tr = tr.Normalize()
	labels := []YearLabel{}
	seen := make(map[int]bool, len(years))
	for _, y := range years {
		if seen[y] {
			continue
		}
		seen[y] = true
		x := s.Screen(time.Date(y, time.July, 1, 0, 0, 0, 0, time.UTC), tr)
		if x >= 0 && x <= s.Width {
			labels = append(labels, YearLabel{Year: y, X: x})
		}
	}
	return labels
}
