package entities

// Interpretation flags where a lab value falls relative to its reference range
type Interpretation string

const (
	InterpretationNormal       Interpretation = "normal"
	InterpretationLow          Interpretation = "low"
	InterpretationHigh         Interpretation = "high"
	InterpretationCriticalLow  Interpretation = "critical_low"
	InterpretationCriticalHigh Interpretation = "critical_high"
	InterpretationAbnormal     Interpretation = "abnormal"
)

// IsCritical reports whether the value is critically outside its range
func (i Interpretation) IsCritical() bool {
	return i == InterpretationCriticalLow || i == InterpretationCriticalHigh
}

// LabResult represents a single laboratory observation
type LabResult struct {
	ID                 string         `json:"id"`
	TestName           string         `json:"test_name"`
	Category           string         `json:"category"`
	LOINCCode          string         `json:"loinc_code,omitempty"`
	Value              float64        `json:"value"`
	Unit               string         `json:"unit,omitempty"`
	ReferenceRangeLow  *float64       `json:"reference_range_low,omitempty"`
	ReferenceRangeHigh *float64       `json:"reference_range_high,omitempty"`
	Interpretation     Interpretation `json:"interpretation"`
	TestDate           Date           `json:"test_date"`
}

// ReferenceRangeConsistent reports whether low <= high when both bounds exist
func (l *LabResult) ReferenceRangeConsistent() bool {
	if l.ReferenceRangeLow == nil || l.ReferenceRangeHigh == nil {
		return true
	}
	return *l.ReferenceRangeLow <= *l.ReferenceRangeHigh
}
