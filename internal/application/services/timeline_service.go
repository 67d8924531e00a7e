package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
	"github.com/drnexus/medicaldashboard/backend/internal/timeline"
	"github.com/drnexus/medicaldashboard/backend/pkg/config"
	apperrors "github.com/drnexus/medicaldashboard/backend/pkg/errors"
)

// GestureType names a pointer or button gesture sent to a session
type GestureType string

const (
	GesturePointerDown    GestureType = "pointer_down"
	GesturePointerMove    GestureType = "pointer_move"
	GesturePointerUp      GestureType = "pointer_up"
	GestureWheel          GestureType = "wheel"
	GestureZoomIn         GestureType = "zoom_in"
	GestureZoomOut        GestureType = "zoom_out"
	GestureZoomBy         GestureType = "zoom_by"
	GestureReset          GestureType = "reset"
	GesturePointerEnter   GestureType = "pointer_enter"
	GesturePointerLeave   GestureType = "pointer_leave"
	GestureClick          GestureType = "click"
	GestureClearSelection GestureType = "clear_selection"
	GestureResize         GestureType = "resize"
)

// maxViewportSide bounds session and layout viewports
const maxViewportSide = 10000

// Gesture is one input to a timeline session. X and Y are plot coordinates.
type Gesture struct {
	Type    GestureType `json:"type"`
	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	Delta   float64     `json:"delta"`
	Factor  float64     `json:"factor"`
	EventID string      `json:"event_id"`
	Width   float64     `json:"width"`
	Height  float64     `json:"height"`
}

// SessionView is the client-visible state of a session
type SessionView struct {
	ID         string                  `json:"id"`
	Mode       timeline.Mode           `json:"mode"`
	State      timeline.State          `json:"state"`
	Selected   *entities.TimelineEvent `json:"selected,omitempty"`
	Frame      timeline.Frame          `json:"frame"`
	Version    uint64                  `json:"version"`
	LastActive time.Time               `json:"last_active"`
}

// LayoutRequest describes a stateless layout pass
type LayoutRequest struct {
	Width     float64
	Height    float64
	Transform timeline.Transform
	Filter    TimelineFilter
}

type timelineSession struct {
	id string

	mu         sync.Mutex
	controller *timeline.Controller
	version    uint64
	lastActive time.Time
	closed     bool
	pending    []*entities.DashboardEvent
}

// TimelineService owns the interactive timeline sessions, one per dashboard
// tab, and serves stateless layouts.
type TimelineService struct {
	store    *store.Store
	eventBus providers.EventBus
	metrics  *observability.Metrics
	logger   zerolog.Logger
	cfg      config.TimelineConfig
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*timelineSession
}

// NewTimelineService creates a timeline service and subscribes it to the
// store so open sessions follow dataset reloads. eventBus may be nil.
func NewTimelineService(st *store.Store, eventBus providers.EventBus, metrics *observability.Metrics, cfg config.TimelineConfig) *TimelineService {
	s := &TimelineService{
		store:    st,
		eventBus: eventBus,
		metrics:  metrics,
		logger:   observability.Component("timeline"),
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*timelineSession),
	}
	st.Subscribe(s.onSnapshot)
	return s
}

func snapshotDomain(snap *store.Snapshot) *timeline.Domain {
	start, end, ok := snap.TimelineDomain()
	if !ok {
		return nil
	}
	return &timeline.Domain{Start: start.Time, End: end.Time}
}

func validateViewport(width, height float64) error {
	plotWidth, plotHeight := timeline.PlotSize(width, height)
	if math.IsNaN(width) || math.IsNaN(height) || plotWidth <= 0 || plotHeight <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf(
			"viewport must be larger than %gx%g",
			timeline.MarginLeft+timeline.MarginRight, timeline.MarginTop+timeline.MarginBottom))
	}
	if width > maxViewportSide || height > maxViewportSide {
		return apperrors.NewValidationError(fmt.Sprintf("viewport must be at most %dx%d", maxViewportSide, maxViewportSide))
	}
	return nil
}

func (s *TimelineService) viewport(width, height float64) (float64, float64, error) {
	if width == 0 {
		width = float64(s.cfg.DefaultWidth)
	}
	if height == 0 {
		height = float64(s.cfg.DefaultHeight)
	}
	return width, height, validateViewport(width, height)
}

// Layout lays out the filtered timeline. Positions use the extent of the
// full timeline so filtering does not rescale the axis.
func (s *TimelineService) Layout(ctx context.Context, req LayoutRequest) (timeline.Frame, error) {
	width, height, err := s.viewport(req.Width, req.Height)
	if err != nil {
		return timeline.Frame{}, err
	}

	ctx, span := observability.StartSpan(ctx, "timeline.layout")
	defer span.End()

	snap := s.store.Snapshot()
	events := req.Filter.Apply(snap.Timeline())

	start := time.Now()
	frame := timeline.BuildFrame(events, timeline.Options{
		Transform: req.Transform,
		Width:     width,
		Height:    height,
		Domain:    snapshotDomain(snap),
	})
	observability.RecordLayout(ctx, s.metrics, len(frame.Markers), time.Since(start))
	observability.SetSpanAttributes(span, attribute.Int("timeline.markers", len(frame.Markers)))
	return frame, nil
}

// CreateSession opens a session for a width x height viewport. Zero sizes
// use the configured defaults.
func (s *TimelineService) CreateSession(ctx context.Context, width, height float64) (*SessionView, error) {
	width, height, err := s.viewport(width, height)
	if err != nil {
		return nil, err
	}

	snap := s.store.Snapshot()
	sess := &timelineSession{
		id:         uuid.NewString(),
		controller: timeline.NewController(width, height, snap.Timeline(), snapshotDomain(snap)),
		version:    snap.Version(),
		lastActive: s.now(),
	}
	sess.controller.Subscribe(func(change timeline.Change) {
		sess.pending = append(sess.pending, changeEvents(sess.id, change)...)
	})

	s.mu.Lock()
	s.sessions[sess.id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	observability.RecordSessionDelta(ctx, s.metrics, 1)
	s.logger.Debug().Str("session_id", sess.id).Int("open_sessions", count).Msg("Timeline session created")

	sess.mu.Lock()
	view := s.view(sess)
	sess.mu.Unlock()
	return view, nil
}

// changeEvents converts a controller change into bus notifications. Hover
// and drag changes stay local to the session.
func changeEvents(sessionID string, change timeline.Change) []*entities.DashboardEvent {
	var events []*entities.DashboardEvent
	if change.Has(timeline.ChangeSelection) {
		payload := map[string]interface{}{"selected": nil}
		if change.Selected != nil {
			payload["selected"] = *change.Selected
		}
		events = append(events, entities.NewDashboardEvent(entities.DashboardEventSelectionChanged, sessionID, payload))
	}
	if change.Has(timeline.ChangeTransform) {
		events = append(events, entities.NewDashboardEvent(entities.DashboardEventTransformChanged, sessionID, map[string]interface{}{
			"transform": change.After.Transform,
		}))
	}
	return events
}

func (s *TimelineService) session(id string) (*timelineSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("timeline session %s not found", id))
	}
	return sess, nil
}

// view builds the session view. Callers hold sess.mu.
func (s *TimelineService) view(sess *timelineSession) *SessionView {
	start := time.Now()
	frame := sess.controller.Frame()
	observability.RecordLayout(context.Background(), s.metrics, len(frame.Markers), time.Since(start))

	v := &SessionView{
		ID:         sess.id,
		Mode:       sess.controller.Mode(),
		State:      sess.controller.State(),
		Frame:      frame,
		Version:    sess.version,
		LastActive: sess.lastActive,
	}
	if ev, ok := sess.controller.Selected(); ok {
		v.Selected = &ev
	}
	return v
}

// Session returns the current view of a session
func (s *TimelineService) Session(ctx context.Context, id string) (*SessionView, error) {
	return s.update(ctx, id, func(*timeline.Controller) error { return nil })
}

// Apply runs one gesture against a session and returns the resulting view
func (s *TimelineService) Apply(ctx context.Context, id string, g Gesture) (*SessionView, error) {
	if err := validateGesture(g); err != nil {
		return nil, err
	}
	return s.update(ctx, id, func(c *timeline.Controller) error {
		return applyGesture(c, g)
	})
}

// ClearSelection deselects the session's event
func (s *TimelineService) ClearSelection(ctx context.Context, id string) (*SessionView, error) {
	return s.Apply(ctx, id, Gesture{Type: GestureClearSelection})
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func validateGesture(g Gesture) error {
	if !finite(g.X, g.Y, g.Delta, g.Factor, g.Width, g.Height) {
		return apperrors.NewValidationError("gesture coordinates must be finite numbers")
	}
	switch g.Type {
	case GesturePointerDown, GesturePointerMove, GesturePointerUp, GestureWheel,
		GestureZoomIn, GestureZoomOut, GestureReset, GestureClearSelection:
		return nil
	case GestureZoomBy:
		if g.Factor <= 0 {
			return apperrors.NewValidationError("zoom_by requires a positive factor")
		}
	case GesturePointerEnter, GesturePointerLeave, GestureClick:
		if g.EventID == "" {
			return apperrors.NewValidationError(fmt.Sprintf("%s requires event_id", g.Type))
		}
	case GestureResize:
		return validateViewport(g.Width, g.Height)
	case "":
		return apperrors.NewValidationError("gesture type is required")
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown gesture type %q", g.Type))
	}
	return nil
}

func applyGesture(c *timeline.Controller, g Gesture) error {
	switch g.Type {
	case GesturePointerDown:
		c.PointerDown(g.X, g.Y)
	case GesturePointerMove:
		c.PointerMove(g.X, g.Y)
	case GesturePointerUp:
		c.PointerUp(g.X, g.Y)
	case GestureWheel:
		c.Wheel(g.Delta, g.X)
	case GestureZoomIn:
		c.ZoomIn()
	case GestureZoomOut:
		c.ZoomOut()
	case GestureZoomBy:
		c.ZoomBy(g.Factor)
	case GestureReset:
		c.Reset()
	case GesturePointerEnter:
		c.PointerEnter(g.EventID)
	case GesturePointerLeave:
		c.PointerLeave(g.EventID)
	case GestureClick:
		if _, ok := c.Event(g.EventID); !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("timeline event %s not found", g.EventID))
		}
		c.Click(g.EventID)
	case GestureClearSelection:
		c.ClearSelection()
	case GestureResize:
		c.Resize(g.Width, g.Height)
	}
	return nil
}

// update runs fn under the session lock, then publishes the notifications
// it produced after the lock is released.
func (s *TimelineService) update(ctx context.Context, id string, fn func(*timeline.Controller) error) (*SessionView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("timeline session %s not found", id))
	}
	sess.lastActive = s.now()
	err = fn(sess.controller)
	pending := sess.pending
	sess.pending = nil
	var view *SessionView
	if err == nil {
		view = s.view(sess)
	}
	sess.mu.Unlock()

	s.publish(ctx, id, pending)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *TimelineService) publish(ctx context.Context, sessionID string, events []*entities.DashboardEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	channel := providers.TimelineSessionChannel(sessionID)
	for _, ev := range events {
		if err := s.eventBus.Publish(ctx, channel, ev); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Str("event_type", string(ev.Type)).Msg("Failed to publish timeline event")
		}
	}
}

// CloseSession discards a session
func (s *TimelineService) CloseSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("timeline session %s not found", id))
	}
	s.close(ctx, sess)
	return nil
}

func (s *TimelineService) close(ctx context.Context, sess *timelineSession) {
	sess.mu.Lock()
	sess.closed = true
	sess.mu.Unlock()

	observability.RecordSessionDelta(ctx, s.metrics, -1)
	if s.eventBus != nil {
		if err := s.eventBus.Unsubscribe(ctx, providers.TimelineSessionChannel(sess.id)); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sess.id).Msg("Failed to unsubscribe timeline session")
		}
	}
}

// SessionCount returns the number of open sessions
func (s *TimelineService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than the session TTL and returns
// how many were closed.
func (s *TimelineService) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.SessionTTL)

	s.mu.Lock()
	var expired []*timelineSession
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastActive.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		s.close(ctx, sess)
	}
	if len(expired) > 0 {
		s.logger.Info().Int("expired", len(expired)).Msg("Swept idle timeline sessions")
	}
	return len(expired)
}

// Run sweeps idle sessions every sweep interval until ctx is done
func (s *TimelineService) Run(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// onSnapshot moves every open session to the new timeline. Selections on
// events that disappeared are cleared and announced.
func (s *TimelineService) onSnapshot(snap *store.Snapshot) {
	events := snap.Timeline()
	domain := snapshotDomain(snap)

	s.mu.RLock()
	sessions := make([]*timelineSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, sess := range sessions {
		sess.mu.Lock()
		if sess.closed {
			sess.mu.Unlock()
			continue
		}
		sess.controller.SetEvents(events, domain)
		sess.version = snap.Version()
		pending := sess.pending
		sess.pending = nil
		sess.mu.Unlock()

		s.publish(ctx, sess.id, pending)
	}
}
