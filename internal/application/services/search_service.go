package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/repositories"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
	"github.com/drnexus/medicaldashboard/backend/internal/search"
	apperrors "github.com/drnexus/medicaldashboard/backend/pkg/errors"
)

// SearchResponse is one page of search hits
type SearchResponse struct {
	Query   string                  `json:"query"`
	Results []entities.SearchResult `json:"results"`
	Total   int                     `json:"total"`
	Version uint64                  `json:"version"`
}

// SearchService answers queries from the in-process index and keeps each
// client's recent searches.
type SearchService struct {
	engine      *search.Engine
	preferences repositories.PreferencesRepository
	metrics     *observability.Metrics
	limit       int
	logger      zerolog.Logger
}

// NewSearchService creates a new search service. A non-positive limit uses
// search.DefaultLimit.
func NewSearchService(engine *search.Engine, preferences repositories.PreferencesRepository, metrics *observability.Metrics, limit int) *SearchService {
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	return &SearchService{
		engine:      engine,
		preferences: preferences,
		metrics:     metrics,
		limit:       limit,
		logger:      observability.Component("search"),
	}
}

// Search returns at most the configured number of hits for query. Total
// counts every match before truncation.
func (s *SearchService) Search(ctx context.Context, query string) SearchResponse {
	ctx, span := observability.StartSpan(ctx, "search.query")
	defer span.End()

	ix := s.engine.Index()
	results := ix.Search(query)
	total := len(results)
	if len(results) > s.limit {
		results = results[:s.limit]
	}

	observability.SetSpanAttributes(span,
		attribute.Int("search.query_length", len(query)),
		attribute.Int("search.results", total),
		attribute.Int64("search.index_version", int64(ix.Version())),
	)
	observability.RecordSearch(ctx, s.metrics, total)

	return SearchResponse{
		Query:   query,
		Results: results,
		Total:   total,
		Version: ix.Version(),
	}
}

// RecentSearches returns the client's history. Storage failures yield an
// empty history.
func (s *SearchService) RecentSearches(ctx context.Context, clientID string) []string {
	recent, err := s.preferences.RecentSearches(ctx, clientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("Failed to read recent searches")
		return []string{}
	}
	if recent == nil {
		return []string{}
	}
	return recent
}

// RecordRecentSearch moves query to the front of the client's history. It is
// called when the user opens a result, not on every keystroke.
func (s *SearchService) RecordRecentSearch(ctx context.Context, clientID, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required")
	}

	recent, err := s.preferences.PushRecentSearch(ctx, clientID, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("Failed to store recent search")
		return search.PushRecent(nil, query), nil
	}
	return recent, nil
}

// ClearRecentSearches forgets the client's history
func (s *SearchService) ClearRecentSearches(ctx context.Context, clientID string) {
	if err := s.preferences.ClearRecentSearches(ctx, clientID); err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("Failed to clear recent searches")
	}
}
