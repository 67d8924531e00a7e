// Package tui is a terminal timeline viewer. It drives the same
// timeline.Controller as the HTTP sessions and draws each frame as text.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/timeline"
)

// One terminal cell stands for cellWidth x cellHeight plot pixels
const (
	cellWidth  = 8.0
	cellHeight = 16.0

	minColumns = 30
	minRows    = 12

	// wheelDelta is the pixel delta sent per wheel notch
	wheelDelta = 100.0
)

// EventsMsg replaces the displayed events, e.g. after a reload
type EventsMsg struct {
	Events []entities.TimelineEvent
	Domain *timeline.Domain
}

// SelectionMsg is emitted when the selected event changes. Event is nil
// when the selection is cleared.
type SelectionMsg struct {
	Event *entities.TimelineEvent
}

// Model is the bubbletea model of the viewer
type Model struct {
	controller *timeline.Controller
	keys       KeyMap
	help       help.Model
	styles     styles
	title      string

	columns int
	rows    int
	cursor  int // index into frame markers, -1 = none

	dragging  bool
	selection *SelectionMsg
}

// New creates a viewer over events. domain pins the axis extent; nil uses
// the events' own extent.
func New(title string, events []entities.TimelineEvent, domain *timeline.Domain, theme entities.Theme) *Model {
	m := &Model{
		keys:    DefaultKeyMap,
		help:    help.New(),
		styles:  newStyles(theme),
		title:   title,
		columns: 100,
		rows:    24,
		cursor:  -1,
	}
	width, height := m.viewport()
	m.controller = timeline.NewController(width, height, events, domain)
	m.controller.OnSelectionChanged(func(ev *entities.TimelineEvent) {
		m.selection = &SelectionMsg{Event: ev}
	})
	return m
}

// Controller exposes the underlying interaction controller
func (m *Model) Controller() *timeline.Controller {
	return m.controller
}

func (m *Model) viewport() (float64, float64) {
	return float64(m.columns) * cellWidth, float64(m.rows) * cellHeight
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.columns = max(msg.Width, minColumns)
		m.rows = max(msg.Height, minRows)
		m.help.Width = msg.Width
		m.controller.Resize(m.viewport())

	case EventsMsg:
		m.controller.SetEvents(msg.Events, msg.Domain)
		m.cursor = -1

	case tea.KeyMsg:
		if cmd, quit := m.handleKey(msg); quit {
			return m, cmd
		}

	case tea.MouseMsg:
		m.handleMouse(msg)
	}

	return m, m.flushSelection()
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	plotWidth, plotHeight := timeline.PlotSize(m.viewport())
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Prev):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Next):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PanLeft):
		m.pan(plotWidth/10, plotHeight/2)
	case key.Matches(msg, m.keys.PanRight):
		m.pan(-plotWidth/10, plotHeight/2)
	case key.Matches(msg, m.keys.ZoomIn):
		m.controller.ZoomIn()
	case key.Matches(msg, m.keys.ZoomOut):
		m.controller.ZoomOut()
	case key.Matches(msg, m.keys.Reset):
		m.controller.Reset()
	case key.Matches(msg, m.keys.Select):
		if id := m.cursorID(); id != "" {
			m.controller.Click(id)
		}
	case key.Matches(msg, m.keys.Clear):
		m.controller.ClearSelection()
	}
	return nil, false
}

// pan drags the plot by dx pixels, as a pointer drag would
func (m *Model) pan(dx, y float64) {
	x := 0.0
	if dx < 0 {
		x = -dx
	}
	m.controller.PointerDown(x, y)
	m.controller.PointerUp(x+dx, y)
	m.restoreHover()
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	x := float64(msg.X)*cellWidth + cellWidth/2 - timeline.MarginLeft
	y := float64(msg.Y)*cellHeight + cellHeight/2 - timeline.MarginTop

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.controller.Wheel(-wheelDelta, x)
	case msg.Button == tea.MouseButtonWheelDown:
		m.controller.Wheel(wheelDelta, x)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if i := m.markerAt(msg.X); i >= 0 {
			m.cursor = i
			m.controller.Click(m.controller.Frame().Markers[i].Event.ID)
			return
		}
		m.dragging = true
		m.controller.PointerDown(x, y)
	case msg.Action == tea.MouseActionMotion && m.dragging:
		m.controller.PointerMove(x, y)
	case msg.Action == tea.MouseActionRelease && m.dragging:
		m.dragging = false
		m.controller.PointerUp(x, y)
		m.restoreHover()
	}
}

// restoreHover re-hovers the cursor event after a drag cleared it
func (m *Model) restoreHover() {
	if id := m.cursorID(); id != "" {
		m.controller.PointerEnter(id)
	}
}

func (m *Model) flushSelection() tea.Cmd {
	if m.selection == nil {
		return nil
	}
	msg := *m.selection
	m.selection = nil
	return func() tea.Msg { return msg }
}

func (m *Model) cursorID() string {
	markers := m.controller.Frame().Markers
	if m.cursor < 0 || m.cursor >= len(markers) {
		return ""
	}
	return markers[m.cursor].Event.ID
}

// moveCursor hovers the next visible marker in direction dir
func (m *Model) moveCursor(dir int) {
	markers := m.controller.Frame().Markers
	if len(markers) == 0 {
		return
	}

	i := m.cursor
	if i < 0 && dir < 0 {
		i = len(markers)
	}
	for i += dir; i >= 0 && i < len(markers); i += dir {
		if markers[i].Visible {
			break
		}
	}
	if i < 0 || i >= len(markers) {
		return
	}

	if prev := m.cursorID(); prev != "" {
		m.controller.PointerLeave(prev)
	}
	m.cursor = i
	m.controller.PointerEnter(markers[i].Event.ID)
}

// column maps a plot x coordinate to a terminal column
func column(x float64) int {
	return int((x + timeline.MarginLeft) / cellWidth)
}

// markerAt returns the index of the visible marker drawn in col, or -1
func (m *Model) markerAt(col int) int {
	hit := -1
	for i, marker := range m.controller.Frame().Markers {
		if marker.Visible && column(marker.X) == col {
			hit = i
		}
	}
	return hit
}

// View implements tea.Model
func (m *Model) View() string {
	frame := m.controller.Frame()

	var b strings.Builder
	b.WriteString(m.header(frame))
	b.WriteString("\n\n")
	b.WriteString(m.yearRow(frame))
	b.WriteString("\n")
	b.WriteString(m.markerRow(frame))
	b.WriteString("\n")
	b.WriteString(m.axisRow(frame))
	b.WriteString("\n")
	b.WriteString(m.tickRow(frame))
	b.WriteString("\n\n")
	b.WriteString(m.detail(frame))
	b.WriteString("\n")
	b.WriteString(m.legend(frame))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) header(frame timeline.Frame) string {
	title := m.styles.title.Render(m.title)
	status := m.styles.muted.Render(fmt.Sprintf("zoom %.2fx · %d/%d visible · %s",
		frame.Transform.K, frame.Stats["visible"], frame.Stats["total"], m.controller.Mode()))
	return title + "  " + status
}

// blankRow returns one empty cell per column
func (m *Model) blankRow() []string {
	row := make([]string, m.columns)
	for i := range row {
		row[i] = " "
	}
	return row
}

// place writes text into row starting at col, clipped to the row
func place(row []string, col int, text string) {
	for i, r := range text {
		if c := col + i; c >= 0 && c < len(row) {
			row[c] = string(r)
		}
	}
}

func (m *Model) yearRow(frame timeline.Frame) string {
	row := m.blankRow()
	for _, label := range frame.YearLabels {
		place(row, column(label.X)-2, fmt.Sprintf("%d", label.Year))
	}
	return m.styles.muted.Render(strings.Join(row, ""))
}

func (m *Model) markerRow(frame timeline.Frame) string {
	row := m.blankRow()
	for _, marker := range frame.Markers {
		col := column(marker.X)
		if !marker.Visible || col < 0 || col >= len(row) {
			continue
		}
		glyph := marker.Initial
		if glyph == "" {
			glyph = "●"
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(marker.Color))
		if marker.Glow {
			style = style.Bold(true)
		}
		if marker.Hovered {
			style = style.Underline(true)
		}
		if marker.Selected {
			style = style.Reverse(true)
		}
		row[col] = style.Render(glyph)
	}
	return strings.Join(row, "")
}

func (m *Model) axisRow(frame timeline.Frame) string {
	row := m.blankRow()
	start, end := column(0), column(frame.PlotWidth)
	for c := max(start, 0); c <= end && c < len(row); c++ {
		row[c] = "─"
	}
	for _, tick := range frame.Ticks {
		if c := column(tick.X); c > start && c < end {
			row[c] = "┬"
		}
	}
	return m.styles.muted.Render(strings.Join(row, ""))
}

func (m *Model) tickRow(frame timeline.Frame) string {
	row := m.blankRow()
	next := 0
	for _, tick := range frame.Ticks {
		col := column(tick.X) - len(tick.Label)/2
		if col < next {
			continue
		}
		place(row, col, tick.Label)
		next = col + len(tick.Label) + 1
	}
	return m.styles.muted.Render(strings.Join(row, ""))
}

func (m *Model) detail(frame timeline.Frame) string {
	var ev *entities.TimelineEvent
	heading := "Selected"
	switch {
	case frame.Selected != nil:
		ev = frame.Selected
	case frame.Hovered != nil:
		ev = &frame.Hovered.Event
		heading = "Hovered"
	}

	width := max(m.columns-4, 20)
	if ev == nil {
		return m.styles.panel.Width(width).Render(m.styles.muted.Render("No event selected. Use h/l to move, enter to select."))
	}

	lines := []string{
		m.styles.label.Render(heading) + "  " + ev.Date.Format("2006-01-02") + "  " + string(ev.EventType) + "  " + m.styles.significance(ev.Significance()),
		ev.Summary,
	}
	if ev.Provider != "" || ev.Location != "" {
		lines = append(lines, m.styles.muted.Render(strings.TrimSpace(ev.Provider+" "+ev.Location)))
	}
	if ev.SourceDocument != "" {
		lines = append(lines, m.styles.muted.Render("source: "+ev.SourceDocument))
	}
	return m.styles.panel.Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) legend(frame timeline.Frame) string {
	parts := make([]string, 0, len(frame.Legend))
	for _, entry := range frame.Legend {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(entry.Color)).Render("●")
		parts = append(parts, fmt.Sprintf("%s %s (%d)", swatch, entry.Type, entry.Count))
	}
	return strings.Join(parts, "  ")
}
