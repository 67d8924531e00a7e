package entities

import "time"

// ConditionStatus is the lifecycle status of a condition
type ConditionStatus string

const (
	ConditionStatusActive     ConditionStatus = "active"
	ConditionStatusResolved   ConditionStatus = "resolved"
	ConditionStatusInactive   ConditionStatus = "inactive"
	ConditionStatusRecurrence ConditionStatus = "recurrence"
)

// Severity grades a condition
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

// Condition represents a diagnosed problem with ICD-10 and SNOMED coding
type Condition struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	ICD10Code      string          `json:"icd10_code,omitempty"`
	SNOMEDCode     string          `json:"snomed_code,omitempty"`
	Status         ConditionStatus `json:"status"`
	Severity       Severity        `json:"severity,omitempty"`
	OnsetDate      *Date           `json:"onset_date,omitempty"`
	ResolutionDate *Date           `json:"resolution_date,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// DatesConsistent reports whether the resolution date, when both dates are
// present, is not before the onset date.
func (c *Condition) DatesConsistent() bool {
	if c.OnsetDate == nil || c.ResolutionDate == nil {
		return true
	}
	return !c.ResolutionDate.Before(c.OnsetDate.Time)
}

// Duration returns the time from onset to resolution. ok is false when
// either date is missing or the dates are inverted.
func (c *Condition) Duration() (time.Duration, bool) {
	if c.OnsetDate == nil || c.ResolutionDate == nil || !c.DatesConsistent() {
		return 0, false
	}
	return c.ResolutionDate.Sub(c.OnsetDate.Time), true
}

// ActiveAt reports whether the condition had begun and was not yet resolved
// at t. Conditions with inverted dates are never counted as active.
func (c *Condition) ActiveAt(t time.Time) bool {
	if c.OnsetDate == nil || c.OnsetDate.After(t) || !c.DatesConsistent() {
		return false
	}
	return c.ResolutionDate == nil || c.ResolutionDate.After(t)
}
