package providers

import (
	"context"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to
// dashboard state-change notifications
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.DashboardEvent) error

	// Subscribe subscribes to events on a channel. The returned channel is
	// closed when ctx is done or the channel is unsubscribed.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.DashboardEvent, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelDataset carries dataset_loaded notifications
	EventChannelDataset = "dashboard:dataset"

	// EventChannelTimelineSessionPrefix prefixes per-session timeline channels
	EventChannelTimelineSessionPrefix = "timeline:session:"
)

// TimelineSessionChannel returns the channel name for one timeline session
func TimelineSessionChannel(sessionID string) string {
	return EventChannelTimelineSessionPrefix + sessionID
}
