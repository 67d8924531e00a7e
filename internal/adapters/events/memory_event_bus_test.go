package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
)

func receive(t *testing.T, ch <-chan *entities.DashboardEvent) *entities.DashboardEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestMemoryEventBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := providers.TimelineSessionChannel("s1")
	assert.Equal(t, "timeline:session:s1", channel)

	a, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	other, err := bus.Subscribe(ctx, providers.EventChannelDataset)
	require.NoError(t, err)

	ev := entities.NewDashboardEvent(entities.DashboardEventSelectionChanged, "s1", map[string]interface{}{"event_id": "t1"})
	require.NoError(t, bus.Publish(ctx, channel, ev))

	assert.Equal(t, ev.ID, receive(t, a).ID)
	assert.Equal(t, ev.ID, receive(t, b).ID)
	select {
	case <-other:
		t.Fatal("event leaked to another channel")
	default:
	}
}

func TestMemoryEventBus_ContextCancelClosesSubscriber(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, "c")
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscriber not closed")
	}
}

func TestMemoryEventBus_FullSubscriberDropsEvents(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, "c")
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer+10; i++ {
		require.NoError(t, bus.Publish(ctx, "c", entities.NewDashboardEvent(entities.DashboardEventTransformChanged, "", nil)))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestMemoryEventBus_Close(t *testing.T) {
	bus := NewMemoryEventBus()
	ch, err := bus.Subscribe(context.Background(), "c")
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	_, ok := <-ch
	assert.False(t, ok)

	assert.ErrorIs(t, bus.Publish(context.Background(), "c", &entities.DashboardEvent{}), ErrBusClosed)
	_, err = bus.Subscribe(context.Background(), "c")
	assert.ErrorIs(t, err, ErrBusClosed)
	assert.NoError(t, bus.Close())
}
