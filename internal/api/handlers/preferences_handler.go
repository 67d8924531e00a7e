package handlers

import (
	"net/http"

	"github.com/drnexus/medicaldashboard/backend/internal/api/middleware"
	"github.com/drnexus/medicaldashboard/backend/internal/application/services"
)

// PreferencesHandler handles per-client display preferences
type PreferencesHandler struct {
	preferences *services.PreferencesService
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(preferences *services.PreferencesService) *PreferencesHandler {
	return &PreferencesHandler{preferences: preferences}
}

type themeBody struct {
	Theme string `json:"theme"`
}

// GetTheme handles GET /api/preferences/theme
func (h *PreferencesHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	theme := h.preferences.Theme(r.Context(), middleware.ClientIDFromContext(r.Context()))
	respondWithJSON(w, http.StatusOK, themeBody{Theme: string(theme)})
}

// SetTheme handles PUT /api/preferences/theme
func (h *PreferencesHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	theme, err := h.preferences.SetTheme(r.Context(), middleware.ClientIDFromContext(r.Context()), body.Theme)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, themeBody{Theme: string(theme)})
}
