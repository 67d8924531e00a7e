package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/repositories"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
	apperrors "github.com/drnexus/medicaldashboard/backend/pkg/errors"
)

// PreferencesService handles the persisted theme flag
type PreferencesService struct {
	repo   repositories.PreferencesRepository
	logger zerolog.Logger
}

// NewPreferencesService creates a new preferences service
func NewPreferencesService(repo repositories.PreferencesRepository) *PreferencesService {
	return &PreferencesService{
		repo:   repo,
		logger: observability.Component("preferences"),
	}
}

// Theme returns the client's theme, falling back to light
func (s *PreferencesService) Theme(ctx context.Context, clientID string) entities.Theme {
	theme, err := s.repo.GetTheme(ctx, clientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("Failed to read theme")
		return entities.ThemeLight
	}
	if theme == "" {
		return entities.ThemeLight
	}
	return theme
}

// SetTheme validates and stores the theme. The theme is returned even when
// it could not be persisted.
func (s *PreferencesService) SetTheme(ctx context.Context, clientID, raw string) (entities.Theme, error) {
	theme, err := entities.ParseTheme(raw)
	if err != nil {
		return "", apperrors.NewValidationError(err.Error())
	}
	if err := s.repo.SetTheme(ctx, clientID, theme); err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("Failed to store theme")
	}
	return theme, nil
}
