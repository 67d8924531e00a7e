package repositories

import (
	"context"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

// PreferencesRepository persists per-client UI state. Callers treat every
// operation as best-effort.
type PreferencesRepository interface {
	// GetTheme returns the stored theme, or ThemeLight when none is stored
	GetTheme(ctx context.Context, clientID string) (entities.Theme, error)

	// SetTheme stores the theme
	SetTheme(ctx context.Context, clientID string, theme entities.Theme) error

	// RecentSearches returns the most-recent-first search history
	RecentSearches(ctx context.Context, clientID string) ([]string, error)

	// PushRecentSearch records a query and returns the updated history
	PushRecentSearch(ctx context.Context, clientID, query string) ([]string, error)

	// ClearRecentSearches removes the search history
	ClearRecentSearches(ctx context.Context, clientID string) error
}
