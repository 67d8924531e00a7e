package timeline

import (
	"math"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

// Mode is the interaction state of a timeline view
type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeDragging Mode = "dragging"
	ModeHovering Mode = "hovering"
	ModeSelected Mode = "selected"
)

// wheelSensitivity converts wheel delta (pixels) into a log2 zoom step
const wheelSensitivity = 0.002

// State is the observable controller state
type State struct {
	Transform  Transform `json:"transform"`
	HoveredID  string    `json:"hovered_id,omitempty"`
	SelectedID string    `json:"selected_id,omitempty"`
	Dragging   bool      `json:"dragging"`
}

// Mode derives the state machine node from the state. Dragging takes
// precedence over hover, and hover over selection.
func (s State) Mode() Mode {
	switch {
	case s.Dragging:
		return ModeDragging
	case s.HoveredID != "":
		return ModeHovering
	case s.SelectedID != "":
		return ModeSelected
	default:
		return ModeIdle
	}
}

// ChangeKind names what a gesture changed
type ChangeKind string

const (
	ChangeTransform ChangeKind = "transform_changed"
	ChangeHover     ChangeKind = "hover_changed"
	ChangeSelection ChangeKind = "selection_changed"
	ChangeDrag      ChangeKind = "drag_changed"
)

// Change is delivered to subscribers after every state-changing gesture
type Change struct {
	Kinds    []ChangeKind            `json:"kinds"`
	Before   State                   `json:"before"`
	After    State                   `json:"after"`
	Selected *entities.TimelineEvent `json:"selected,omitempty"`
}

// Has reports whether the change includes kind
func (c Change) Has(kind ChangeKind) bool {
	for _, k := range c.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// SelectionFunc receives the newly selected event, or nil when the
// selection is cleared.
type SelectionFunc func(event *entities.TimelineEvent)

type point struct {
	x, y float64
}

// Controller turns pointer gestures into transform, hover and selection
// changes for one timeline view. It is not safe for concurrent use; callers
// serialize gestures.
type Controller struct {
	width, height float64
	events        []entities.TimelineEvent
	byID          map[string]int
	domain        *Domain

	state     State
	dragFrom  point
	dragStart Transform
	pointer   point

	observers   []func(Change)
	onSelection SelectionFunc
}

// NewController creates a controller for a width x height viewport showing
// events. domain is the extent of the full timeline; nil uses the extent of
// events.
func NewController(width, height float64, events []entities.TimelineEvent, domain *Domain) *Controller {
	c := &Controller{
		width:  width,
		height: height,
		state:  State{Transform: Identity()},
	}
	c.setEvents(events, domain)
	return c
}

func (c *Controller) setEvents(events []entities.TimelineEvent, domain *Domain) {
	c.events = sortedCopy(events)
	c.byID = make(map[string]int, len(c.events))
	for i, ev := range c.events {
		if _, exists := c.byID[ev.ID]; !exists {
			c.byID[ev.ID] = i
		}
	}
	if domain != nil {
		d := *domain
		c.domain = &d
	} else {
		c.domain = nil
	}
}

// OnSelectionChanged registers the detail-panel callback. It fires only
// when the selected event actually changes.
func (c *Controller) OnSelectionChanged(fn SelectionFunc) {
	c.onSelection = fn
}

// Subscribe registers fn to receive every state change
func (c *Controller) Subscribe(fn func(Change)) {
	c.observers = append(c.observers, fn)
}

// State returns the current state
func (c *Controller) State() State {
	return c.state
}

// Mode returns the current state machine node
func (c *Controller) Mode() Mode {
	return c.state.Mode()
}

// Viewport returns the configured viewport size
func (c *Controller) Viewport() (width, height float64) {
	return c.width, c.height
}

// Selected returns the selected event, if any
func (c *Controller) Selected() (entities.TimelineEvent, bool) {
	return c.Event(c.state.SelectedID)
}

// Event returns the displayed event with id
func (c *Controller) Event(id string) (entities.TimelineEvent, bool) {
	if id == "" {
		return entities.TimelineEvent{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return entities.TimelineEvent{}, false
	}
	return c.events[i], true
}

// Frame lays out the controller's events for the current state
func (c *Controller) Frame() Frame {
	return BuildFrame(c.events, c.options())
}

func (c *Controller) options() Options {
	return Options{
		Transform:  c.state.Transform,
		Width:      c.width,
		Height:     c.height,
		Domain:     c.domain,
		HoveredID:  c.state.HoveredID,
		SelectedID: c.state.SelectedID,
	}
}

// PointerDown starts a pan at plot coordinates (x, y). Any hover is
// cleared.
func (c *Controller) PointerDown(x, y float64) {
	before := c.state
	c.state.Dragging = true
	c.state.HoveredID = ""
	c.dragFrom = point{x: x, y: y}
	c.pointer = c.dragFrom
	c.dragStart = c.state.Transform
	c.emit(before)
}

// PointerMove pans by the distance moved since PointerDown. Moves outside
// a drag are ignored.
func (c *Controller) PointerMove(x, y float64) {
	if !c.state.Dragging {
		return
	}
	before := c.state
	c.pointer = point{x: x, y: y}
	c.state.Transform = c.dragStart.Translate(x-c.dragFrom.x, y-c.dragFrom.y)
	c.emit(before)
}

// PointerUp ends a pan. The view returns to Selected if an event is
// selected, otherwise Idle.
func (c *Controller) PointerUp(x, y float64) {
	if !c.state.Dragging {
		return
	}
	c.PointerMove(x, y)
	before := c.state
	c.state.Dragging = false
	c.emit(before)
}

// Wheel zooms by a wheel delta keeping the point at anchorX fixed.
// Negative deltas zoom in.
func (c *Controller) Wheel(deltaY, anchorX float64) {
	c.zoom(math.Pow(2, -deltaY*wheelSensitivity), anchorX)
}

// ZoomBy zooms by factor about the centre of the plot
func (c *Controller) ZoomBy(factor float64) {
	plotWidth, _ := PlotSize(c.width, c.height)
	c.zoom(factor, plotWidth/2)
}

// ZoomIn applies the zoom-in button factor
func (c *Controller) ZoomIn() {
	c.ZoomBy(ZoomInFactor)
}

// ZoomOut applies the zoom-out button factor
func (c *Controller) ZoomOut() {
	c.ZoomBy(ZoomOutFactor)
}

func (c *Controller) zoom(factor, anchorX float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	before := c.state
	c.state.Transform = c.state.Transform.ScaleAbout(factor, anchorX)
	c.rebaseDrag()
	c.emit(before)
}

// rebaseDrag restarts an in-progress pan from the current transform so a
// zoom or reset mid-drag is not undone by the next move.
func (c *Controller) rebaseDrag() {
	if c.state.Dragging {
		c.dragStart = c.state.Transform
		c.dragFrom = c.pointer
	}
}

// PointerEnter hovers the event with id. Ignored while dragging or for
// unknown ids.
func (c *Controller) PointerEnter(id string) {
	if c.state.Dragging {
		return
	}
	if _, ok := c.byID[id]; !ok {
		return
	}
	before := c.state
	c.state.HoveredID = id
	c.emit(before)
}

// PointerLeave clears the hover if id is the hovered event
func (c *Controller) PointerLeave(id string) {
	if c.state.HoveredID == "" || c.state.HoveredID != id {
		return
	}
	before := c.state
	c.state.HoveredID = ""
	c.emit(before)
}

// Click selects the event with id. Unknown ids are ignored.
func (c *Controller) Click(id string) {
	if _, ok := c.byID[id]; !ok {
		return
	}
	before := c.state
	c.state.SelectedID = id
	c.emit(before)
}

// ClearSelection deselects the current event
func (c *Controller) ClearSelection() {
	before := c.state
	c.state.SelectedID = ""
	c.emit(before)
}

// Reset returns the transform to identity. Selection is kept.
func (c *Controller) Reset() {
	before := c.state
	c.state.Transform = Identity()
	c.rebaseDrag()
	c.emit(before)
}

// Resize changes the viewport size
func (c *Controller) Resize(width, height float64) {
	if width == c.width && height == c.height {
		return
	}
	before := c.state
	c.width, c.height = width, height
	c.emitKinds(before, []ChangeKind{ChangeTransform})
}

// SetEvents replaces the displayed events, e.g. after a dataset reload or
// a filter change. Hover and selection on events that no longer exist are
// cleared.
func (c *Controller) SetEvents(events []entities.TimelineEvent, domain *Domain) {
	before := c.state
	c.setEvents(events, domain)
	if _, ok := c.byID[c.state.HoveredID]; !ok {
		c.state.HoveredID = ""
	}
	if _, ok := c.byID[c.state.SelectedID]; !ok {
		c.state.SelectedID = ""
	}
	c.emit(before)
}

func (c *Controller) emit(before State) {
	var kinds []ChangeKind
	if before.Transform != c.state.Transform {
		kinds = append(kinds, ChangeTransform)
	}
	if before.HoveredID != c.state.HoveredID {
		kinds = append(kinds, ChangeHover)
	}
	if before.SelectedID != c.state.SelectedID {
		kinds = append(kinds, ChangeSelection)
	}
	if before.Dragging != c.state.Dragging {
		kinds = append(kinds, ChangeDrag)
	}
	if len(kinds) == 0 {
		return
	}
	c.emitKinds(before, kinds)
}

func (c *Controller) emitKinds(before State, kinds []ChangeKind) {
	change := Change{Kinds: kinds, Before: before, After: c.state}
	if ev, ok := c.Selected(); ok {
		change.Selected = &ev
	}

	if change.Has(ChangeSelection) && c.onSelection != nil {
		c.onSelection(change.Selected)
	}
	for _, fn := range c.observers {
		fn(change)
	}
}
