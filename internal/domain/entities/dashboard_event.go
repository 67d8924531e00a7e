package entities

import (
	"time"

	"github.com/google/uuid"
)

// DashboardEventType represents the type of a state-change notification
type DashboardEventType string

const (
	DashboardEventDatasetLoaded    DashboardEventType = "dataset_loaded"
	DashboardEventSelectionChanged DashboardEventType = "selection_changed"
	DashboardEventTransformChanged DashboardEventType = "transform_changed"
)

// DashboardEvent notifies subscribers that a piece of dashboard state was
// replaced. Consumers treat it as last-write-wins per piece of state.
type DashboardEvent struct {
	ID        string                 `json:"id"`
	Type      DashboardEventType     `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// NewDashboardEvent creates a new dashboard event
func NewDashboardEvent(eventType DashboardEventType, sessionID string, payload map[string]interface{}) *DashboardEvent {
	return &DashboardEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
