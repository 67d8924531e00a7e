package entities

// Priority of an action item
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ActionStatus tracks progress of an action item
type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusOngoing   ActionStatus = "ongoing"
	ActionStatusCompleted ActionStatus = "completed"
)

// ActionItem is a recommended follow-up for the patient or care team
type ActionItem struct {
	ID           string       `json:"id"`
	Priority     Priority     `json:"priority"`
	Category     string       `json:"category"`
	Status       ActionStatus `json:"status"`
	Item         string       `json:"item"`
	Rationale    string       `json:"rationale,omitempty"`
	Requirements []string     `json:"requirements,omitempty"`
	Timeline     string       `json:"timeline,omitempty"`
	Frequency    string       `json:"frequency,omitempty"`
}

// Importance of an unresolved question
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
)

// UnresolvedQuestion is an open clinical question surfaced by the analysis
type UnresolvedQuestion struct {
	ID             string     `json:"id"`
	Importance     Importance `json:"importance"`
	Category       string     `json:"category"`
	Question       string     `json:"question"`
	Details        string     `json:"details"`
	RequiredAction string     `json:"required_action,omitempty"`
	Impact         string     `json:"impact,omitempty"`
}

// Document is a source file that contributed to the dataset
type Document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Date        *Date  `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	Source      string `json:"source,omitempty"`
}
