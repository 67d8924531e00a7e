package preferences

import (
	"context"
	"sync"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/repositories"
	"github.com/drnexus/medicaldashboard/backend/internal/search"
)

type clientState struct {
	theme  entities.Theme
	recent []string
}

// MemoryRepository keeps preferences for the lifetime of the process
type MemoryRepository struct {
	mu      sync.Mutex
	clients map[string]*clientState
}

// NewMemoryRepository creates an empty in-memory preferences repository
func NewMemoryRepository() repositories.PreferencesRepository {
	return &MemoryRepository{clients: make(map[string]*clientState)}
}

func (r *MemoryRepository) state(clientID string) *clientState {
	st, ok := r.clients[clientID]
	if !ok {
		st = &clientState{theme: entities.ThemeLight}
		r.clients[clientID] = st
	}
	return st
}

func (r *MemoryRepository) GetTheme(_ context.Context, clientID string) (entities.Theme, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state(clientID).theme, nil
}

func (r *MemoryRepository) SetTheme(_ context.Context, clientID string, theme entities.Theme) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state(clientID).theme = theme
	return nil
}

func (r *MemoryRepository) RecentSearches(_ context.Context, clientID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.state(clientID).recent...), nil
}

func (r *MemoryRepository) PushRecentSearch(_ context.Context, clientID, query string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state(clientID)
	st.recent = search.PushRecent(st.recent, query)
	return append([]string{}, st.recent...), nil
}

func (r *MemoryRepository) ClearRecentSearches(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state(clientID).recent = nil
	return nil
}
