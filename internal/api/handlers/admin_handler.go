package handlers

import (
	"net/http"

	"github.com/drnexus/medicaldashboard/backend/internal/application/services"
)

// AdminHandler exposes operator actions
type AdminHandler struct {
	dataset *services.DatasetService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(dataset *services.DatasetService) *AdminHandler {
	return &AdminHandler{dataset: dataset}
}

// Reload handles POST /api/admin/reload. A failed reload keeps serving the
// previous snapshot.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	result, err := h.dataset.Load(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
