package handlers

import (
	"net/http"
	"time"

	"github.com/drnexus/medicaldashboard/backend/internal/application/services"
)

// DashboardHandler serves the read-only record views
type DashboardHandler struct {
	dashboard *services.DashboardService
	now       func() time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		now:       time.Now,
	}
}

// GetPatient handles GET /api/patient
func (h *DashboardHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient := h.dashboard.Patient()
	respondWithSnapshot(w, h.dashboard.Version(), patient)
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	summary := h.dashboard.Summary()
	respondWithSnapshot(w, h.dashboard.Version(), summary)
}

// GetConditions handles GET /api/conditions?as_of=
func (h *DashboardHandler) GetConditions(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateParam(r, "as_of")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	at := h.now().UTC()
	if asOf != nil {
		at = *asOf
	}

	view := h.dashboard.Conditions(at)
	respondWithSnapshot(w, h.dashboard.Version(), view)
}

// GetMedications handles GET /api/medications
func (h *DashboardHandler) GetMedications(w http.ResponseWriter, r *http.Request) {
	view := h.dashboard.Medications()
	respondWithSnapshot(w, h.dashboard.Version(), view)
}

// GetLabs handles GET /api/labs?category=
func (h *DashboardHandler) GetLabs(w http.ResponseWriter, r *http.Request) {
	view := h.dashboard.Labs(r.URL.Query().Get("category"))
	respondWithSnapshot(w, h.dashboard.Version(), view)
}

// GetDevices handles GET /api/devices
func (h *DashboardHandler) GetDevices(w http.ResponseWriter, r *http.Request) {
	view := h.dashboard.Devices()
	respondWithSnapshot(w, h.dashboard.Version(), view)
}

// GetActions handles GET /api/actions
func (h *DashboardHandler) GetActions(w http.ResponseWriter, r *http.Request) {
	view := h.dashboard.Actions()
	respondWithSnapshot(w, h.dashboard.Version(), view)
}

// GetDocuments handles GET /api/documents
func (h *DashboardHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	view := h.dashboard.Documents()
	respondWithSnapshot(w, h.dashboard.Version(), view)
}

// GetIntegrity handles GET /api/integrity
func (h *DashboardHandler) GetIntegrity(w http.ResponseWriter, r *http.Request) {
	issues := h.dashboard.Integrity()
	respondWithSnapshot(w, h.dashboard.Version(), map[string]interface{}{
		"issues": issues,
		"count":  len(issues),
	})
}

// GetTimeline handles GET /api/timeline?type=&significance=&from=&to=
func (h *DashboardHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	filter, err := timelineFilter(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	view := h.dashboard.Timeline(filter)
	respondWithSnapshot(w, h.dashboard.Version(), view)
}
