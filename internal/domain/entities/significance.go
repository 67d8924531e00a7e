package entities

// Significance is the coarse clinical severity/urgency tier attached to an
// event or search result.
type Significance string

const (
	SignificanceCritical Significance = "critical"
	SignificanceHigh     Significance = "high"
	SignificanceMedium   Significance = "medium"
	SignificanceLow      Significance = "low"
)

// Rank orders significance tiers: critical(0) < high(1) < medium(2) < low(3).
// Empty and unknown values rank as low.
func (s Significance) Rank() int {
	switch s {
	case SignificanceCritical:
		return 0
	case SignificanceHigh:
		return 1
	case SignificanceMedium:
		return 2
	default:
		return 3
	}
}

// Valid reports whether s is one of the four known tiers.
func (s Significance) Valid() bool {
	switch s {
	case SignificanceCritical, SignificanceHigh, SignificanceMedium, SignificanceLow:
		return true
	}
	return false
}

// Significances lists the tiers from most to least significant.
func Significances() []Significance {
	return []Significance{SignificanceCritical, SignificanceHigh, SignificanceMedium, SignificanceLow}
}
