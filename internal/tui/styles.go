package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	muted lipgloss.Style
	panel lipgloss.Style

	levels map[entities.Significance]lipgloss.Style
}

func newStyles(theme entities.Theme) styles {
	text, muted, border := lipgloss.Color("#111827"), lipgloss.Color("#6b7280"), lipgloss.Color("#d1d5db")
	if theme == entities.ThemeDark {
		text, muted, border = lipgloss.Color("#f9fafb"), lipgloss.Color("#9ca3af"), lipgloss.Color("#374151")
	}

	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(text),
		label: lipgloss.NewStyle().Bold(true).Foreground(text),
		muted: lipgloss.NewStyle().Foreground(muted),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		levels: map[entities.Significance]lipgloss.Style{
			entities.SignificanceCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#dc2626")),
			entities.SignificanceHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("#ea580c")),
			entities.SignificanceMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ca8a04")),
			entities.SignificanceLow:      lipgloss.NewStyle().Foreground(muted),
		},
	}
}

func (s styles) significance(level entities.Significance) string {
	style, ok := s.levels[level]
	if !ok {
		style = s.muted
	}
	return style.Render(string(level))
}
