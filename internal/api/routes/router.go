package routes

import (
	"net/http"

	"github.com/drnexus/medicaldashboard/backend/internal/api/handlers"
	"github.com/drnexus/medicaldashboard/backend/internal/api/middleware"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	dashboardHandler   *handlers.DashboardHandler
	timelineHandler    *handlers.TimelineHandler
	searchHandler      *handlers.SearchHandler
	preferencesHandler *handlers.PreferencesHandler
	adminHandler       *handlers.AdminHandler
	sseHandler         *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router. cacheMiddleware and adminHandler may be nil.
func NewRouter(
	dashboardHandler *handlers.DashboardHandler,
	timelineHandler *handlers.TimelineHandler,
	searchHandler *handlers.SearchHandler,
	preferencesHandler *handlers.PreferencesHandler,
	adminHandler *handlers.AdminHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		dashboardHandler:   dashboardHandler,
		timelineHandler:    timelineHandler,
		searchHandler:      searchHandler,
		preferencesHandler: preferencesHandler,
		adminHandler:       adminHandler,
		sseHandler:         sseHandler,
		cacheMiddleware:    cacheMiddleware,
		metrics:            metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Record views
	r.mux.HandleFunc("GET /api/patient", r.dashboardHandler.GetPatient)
	r.mux.HandleFunc("GET /api/dashboard", r.dashboardHandler.GetDashboard)
	r.mux.HandleFunc("GET /api/conditions", r.dashboardHandler.GetConditions)
	r.mux.HandleFunc("GET /api/medications", r.dashboardHandler.GetMedications)
	r.mux.HandleFunc("GET /api/labs", r.dashboardHandler.GetLabs)
	r.mux.HandleFunc("GET /api/devices", r.dashboardHandler.GetDevices)
	r.mux.HandleFunc("GET /api/actions", r.dashboardHandler.GetActions)
	r.mux.HandleFunc("GET /api/documents", r.dashboardHandler.GetDocuments)
	r.mux.HandleFunc("GET /api/integrity", r.dashboardHandler.GetIntegrity)
	r.mux.HandleFunc("GET /api/timeline", r.dashboardHandler.GetTimeline)

	// Timeline layout and interaction sessions
	r.mux.HandleFunc("GET /api/timeline/layout", r.timelineHandler.GetLayout)
	r.mux.HandleFunc("POST /api/timeline/sessions", r.timelineHandler.CreateSession)
	r.mux.HandleFunc("GET /api/timeline/sessions/{id}", r.timelineHandler.GetSession)
	r.mux.HandleFunc("POST /api/timeline/sessions/{id}/gestures", r.timelineHandler.ApplyGesture)
	r.mux.HandleFunc("DELETE /api/timeline/sessions/{id}/selection", r.timelineHandler.ClearSelection)
	r.mux.HandleFunc("DELETE /api/timeline/sessions/{id}", r.timelineHandler.CloseSession)

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/timeline/{id}", r.sseHandler.StreamTimeline)
	}

	// Search
	r.mux.HandleFunc("GET /api/search", r.searchHandler.Search)
	r.mux.HandleFunc("GET /api/search/recent", r.searchHandler.GetRecent)
	r.mux.HandleFunc("POST /api/search/recent", r.searchHandler.AddRecent)
	r.mux.HandleFunc("DELETE /api/search/recent", r.searchHandler.ClearRecent)

	// Preferences
	r.mux.HandleFunc("GET /api/preferences/theme", r.preferencesHandler.GetTheme)
	r.mux.HandleFunc("PUT /api/preferences/theme", r.preferencesHandler.SetTheme)

	if r.adminHandler != nil {
		r.mux.HandleFunc("POST /api/admin/reload", r.adminHandler.Reload)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// Client identity is resolved before logging and preference handlers read it
	handler = middleware.ClientIDMiddleware(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(handler)

	return handler
}
