package handlers

import (
	"net/http"

	"github.com/drnexus/medicaldashboard/backend/internal/api/middleware"
	"github.com/drnexus/medicaldashboard/backend/internal/application/services"
)

// SearchHandler handles the global search overlay
type SearchHandler struct {
	search *services.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type recentSearchRequest struct {
	Query string `json:"query"`
}

// Search handles GET /api/search?q=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	resp := h.search.Search(r.Context(), r.URL.Query().Get("q"))
	respondWithSnapshot(w, resp.Version, resp)
}

// GetRecent handles GET /api/search/recent
func (h *SearchHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	recent := h.search.RecentSearches(r.Context(), middleware.ClientIDFromContext(r.Context()))
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"recent": recent})
}

// AddRecent handles POST /api/search/recent
func (h *SearchHandler) AddRecent(w http.ResponseWriter, r *http.Request) {
	var req recentSearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	recent, err := h.search.RecordRecentSearch(r.Context(), middleware.ClientIDFromContext(r.Context()), req.Query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"recent": recent})
}

// ClearRecent handles DELETE /api/search/recent
func (h *SearchHandler) ClearRecent(w http.ResponseWriter, r *http.Request) {
	h.search.ClearRecentSearches(r.Context(), middleware.ClientIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
