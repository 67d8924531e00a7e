package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/adapters/dataset"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
	"github.com/drnexus/medicaldashboard/backend/internal/timeline"
	"github.com/drnexus/medicaldashboard/backend/pkg/config"
	apperrors "github.com/drnexus/medicaldashboard/backend/pkg/errors"
)

type published struct {
	channel string
	event   *entities.DashboardEvent
}

// recordingBus captures published events synchronously
type recordingBus struct {
	mu           sync.Mutex
	events       []published
	unsubscribed []string
}

func (b *recordingBus) Publish(_ context.Context, channel string, event *entities.DashboardEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{channel: channel, event: event})
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string) (<-chan *entities.DashboardEvent, error) {
	return make(chan *entities.DashboardEvent), nil
}

func (b *recordingBus) Unsubscribe(_ context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribed = append(b.unsubscribed, channel)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) ofType(t entities.DashboardEventType) []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []published
	for _, p := range b.events {
		if p.event.Type == t {
			out = append(out, p)
		}
	}
	return out
}

func loadBundled(t *testing.T) *store.Store {
	t.Helper()
	ds, err := dataset.NewBundledSource().Load(context.Background())
	require.NoError(t, err)
	st := store.New()
	_, err = st.Load(ds)
	require.NoError(t, err)
	return st
}

func testTimelineConfig() config.TimelineConfig {
	return config.TimelineConfig{
		SessionTTL:    time.Minute,
		SweepInterval: time.Minute,
		DefaultWidth:  800,
		DefaultHeight: 400,
	}
}

func newTestTimelineService(t *testing.T) (*TimelineService, *store.Store, *recordingBus) {
	t.Helper()
	st := loadBundled(t)
	bus := &recordingBus{}
	return NewTimelineService(st, bus, nil, testTimelineConfig()), st, bus
}

func TestTimelineService_CreateSession(t *testing.T) {
	svc, _, _ := newTestTimelineService(t)
	ctx := context.Background()

	view, err := svc.CreateSession(ctx, 0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, timeline.ModeIdle, view.Mode)
	assert.Equal(t, 800.0, view.Frame.Width)
	assert.Equal(t, 400.0, view.Frame.Height)
	assert.Len(t, view.Frame.Markers, 19)
	assert.Equal(t, uint64(1), view.Version)
	assert.Equal(t, 1, svc.SessionCount())

	_, err = svc.CreateSession(ctx, 50, 400)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
	_, err = svc.CreateSession(ctx, 800, 1e6)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}

func TestTimelineService_ClickPublishesSelection(t *testing.T) {
	svc, _, bus := newTestTimelineService(t)
	ctx := context.Background()

	view, err := svc.CreateSession(ctx, 800, 400)
	require.NoError(t, err)
	target := view.Frame.Markers[3].Event.ID

	view, err = svc.Apply(ctx, view.ID, Gesture{Type: GestureClick, EventID: target})
	require.NoError(t, err)
	assert.Equal(t, timeline.ModeSelected, view.Mode)
	require.NotNil(t, view.Selected)
	assert.Equal(t, target, view.Selected.ID)

	selections := bus.ofType(entities.DashboardEventSelectionChanged)
	require.Len(t, selections, 1)
	assert.Equal(t, "timeline:session:"+view.ID, selections[0].channel)
	selected, ok := selections[0].event.Payload["selected"].(entities.TimelineEvent)
	require.True(t, ok)
	assert.Equal(t, target, selected.ID)

	// Re-selecting the same event is not a change.
	_, err = svc.Apply(ctx, view.ID, Gesture{Type: GestureClick, EventID: target})
	require.NoError(t, err)
	assert.Len(t, bus.ofType(entities.DashboardEventSelectionChanged), 1)

	view, err = svc.ClearSelection(ctx, view.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Selected)
	selections = bus.ofType(entities.DashboardEventSelectionChanged)
	require.Len(t, selections, 2)
	assert.Nil(t, selections[1].event.Payload["selected"])
}

func TestTimelineService_SelectionSurvivesPan(t *testing.T) {
	svc, _, bus := newTestTimelineService(t)
	ctx := context.Background()

	view, err := svc.CreateSession(ctx, 800, 400)
	require.NoError(t, err)
	id := view.ID
	target := view.Frame.Markers[0].Event.ID

	_, err = svc.Apply(ctx, id, Gesture{Type: GestureClick, EventID: target})
	require.NoError(t, err)

	_, err = svc.Apply(ctx, id, Gesture{Type: GesturePointerDown, X: 100, Y: 100})
	require.NoError(t, err)
	view, err = svc.Apply(ctx, id, Gesture{Type: GesturePointerMove, X: 150, Y: 110})
	require.NoError(t, err)
	assert.Equal(t, timeline.ModeDragging, view.Mode)
	view, err = svc.Apply(ctx, id, Gesture{Type: GesturePointerUp, X: 150, Y: 110})
	require.NoError(t, err)

	assert.Equal(t, timeline.ModeSelected, view.Mode)
	assert.Equal(t, timeline.Transform{K: 1, X: 50, Y: 10}, view.State.Transform)
	require.NotNil(t, view.Selected)
	assert.Equal(t, target, view.Selected.ID)

	transforms := bus.ofType(entities.DashboardEventTransformChanged)
	assert.Len(t, transforms, 1)
	assert.Len(t, bus.ofType(entities.DashboardEventSelectionChanged), 1)
}

func TestTimelineService_ZoomAndReset(t *testing.T) {
	svc, _, _ := newTestTimelineService(t)
	ctx := context.Background()

	view, err := svc.CreateSession(ctx, 800, 400)
	require.NoError(t, err)

	view, err = svc.Apply(ctx, view.ID, Gesture{Type: GestureZoomIn})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, view.State.Transform.K, 1e-9)

	view, err = svc.Apply(ctx, view.ID, Gesture{Type: GestureZoomBy, Factor: 100})
	require.NoError(t, err)
	assert.InDelta(t, timeline.MaxScale, view.State.Transform.K, 1e-9)

	view, err = svc.Apply(ctx, view.ID, Gesture{Type: GestureReset})
	require.NoError(t, err)
	assert.Equal(t, timeline.Identity(), view.State.Transform)

	view, err = svc.Apply(ctx, view.ID, Gesture{Type: GestureResize, Width: 1200, Height: 600})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, view.Frame.Width)
}

func TestTimelineService_InvalidGestures(t *testing.T) {
	svc, _, _ := newTestTimelineService(t)
	ctx := context.Background()

	view, err := svc.CreateSession(ctx, 800, 400)
	require.NoError(t, err)

	tests := []struct {
		name    string
		gesture Gesture
		errType apperrors.ErrorType
	}{
		{"missing type", Gesture{}, apperrors.ErrorTypeValidation},
		{"unknown type", Gesture{Type: "pinch"}, apperrors.ErrorTypeValidation},
		{"zoom without factor", Gesture{Type: GestureZoomBy}, apperrors.ErrorTypeValidation},
		{"click without id", Gesture{Type: GestureClick}, apperrors.ErrorTypeValidation},
		{"click unknown id", Gesture{Type: GestureClick, EventID: "missing"}, apperrors.ErrorTypeNotFound},
		{"tiny resize", Gesture{Type: GestureResize, Width: 10, Height: 10}, apperrors.ErrorTypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Apply(ctx, view.ID, tt.gesture)
			require.Error(t, err)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
		})
	}

	_, err = svc.Apply(ctx, "no-such-session", Gesture{Type: GestureReset})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}

func TestTimelineService_CloseAndSweep(t *testing.T) {
	svc, _, bus := newTestTimelineService(t)
	ctx := context.Background()

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	closed, err := svc.CreateSession(ctx, 800, 400)
	require.NoError(t, err)
	require.NoError(t, svc.CloseSession(ctx, closed.ID))
	assert.True(t, apperrors.Is(svc.CloseSession(ctx, closed.ID), apperrors.ErrorTypeNotFound))
	_, err = svc.Session(ctx, closed.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
	assert.Contains(t, bus.unsubscribed, "timeline:session:"+closed.ID)

	idle, err := svc.CreateSession(ctx, 800, 400)
	require.NoError(t, err)
	clock = clock.Add(45 * time.Second)
	active, err := svc.CreateSession(ctx, 800, 400)
	require.NoError(t, err)

	clock = clock.Add(30 * time.Second)
	assert.Equal(t, 1, svc.Sweep(ctx))
	assert.Equal(t, 1, svc.SessionCount())

	_, err = svc.Session(ctx, idle.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
	_, err = svc.Session(ctx, active.ID)
	assert.NoError(t, err)
}

func TestTimelineService_ReloadClearsMissingSelection(t *testing.T) {
	svc, st, bus := newTestTimelineService(t)
	ctx := context.Background()

	view, err := svc.CreateSession(ctx, 800, 400)
	require.NoError(t, err)
	target := view.Frame.Markers[0].Event.ID
	_, err = svc.Apply(ctx, view.ID, Gesture{Type: GestureClick, EventID: target})
	require.NoError(t, err)

	_, err = st.Load(&entities.Dataset{
		Timeline: []entities.TimelineEvent{
			{ID: "other", Date: entities.MustParseDate("2020-01-01"), EventType: entities.EventTypeNote, Summary: "Note"},
		},
	})
	require.NoError(t, err)

	view, err = svc.Session(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), view.Version)
	assert.Nil(t, view.Selected)
	assert.Len(t, view.Frame.Markers, 1)

	selections := bus.ofType(entities.DashboardEventSelectionChanged)
	require.Len(t, selections, 2)
	assert.Nil(t, selections[1].event.Payload["selected"])
}

func TestTimelineService_Layout(t *testing.T) {
	svc, st, _ := newTestTimelineService(t)
	ctx := context.Background()

	full, err := svc.Layout(ctx, LayoutRequest{Width: 800, Height: 400})
	require.NoError(t, err)
	assert.Len(t, full.Markers, 19)

	imaging, err := svc.Layout(ctx, LayoutRequest{
		Width:  800,
		Height: 400,
		Filter: TimelineFilter{Types: []entities.EventType{entities.EventTypeImaging}},
	})
	require.NoError(t, err)
	assert.Len(t, imaging.Markers, 3)

	start, end, ok := st.Snapshot().TimelineDomain()
	require.True(t, ok)
	assert.True(t, imaging.Domain.Start.Equal(start.Time))
	assert.True(t, imaging.Domain.End.Equal(end.Time))

	// Filtering keeps each event at its unfiltered position.
	positions := make(map[string]float64, len(full.Markers))
	for _, m := range full.Markers {
		positions[m.Event.ID] = m.X
	}
	for _, m := range imaging.Markers {
		assert.InDelta(t, positions[m.Event.ID], m.X, 1e-9)
	}

	_, err = svc.Layout(ctx, LayoutRequest{Width: 60, Height: 400})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}
