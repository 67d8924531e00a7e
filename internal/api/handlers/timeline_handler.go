package handlers

import (
	"net/http"

	"github.com/drnexus/medicaldashboard/backend/internal/application/services"
)

// TimelineHandler serves layouts and the interactive timeline sessions
type TimelineHandler struct {
	timeline *services.TimelineService
	store    snapshotVersioner
}

type snapshotVersioner interface {
	Version() uint64
}

// NewTimelineHandler creates a new timeline handler
func NewTimelineHandler(timeline *services.TimelineService, dashboard *services.DashboardService) *TimelineHandler {
	return &TimelineHandler{timeline: timeline, store: dashboard}
}

// createSessionRequest is the body of POST /api/timeline/sessions
type createSessionRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GetLayout handles GET /api/timeline/layout?width=&height=&k=&x=&y=
func (h *TimelineHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	width, err := floatParam(r, "width", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	height, err := floatParam(r, "height", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	transform, err := transformParam(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	filter, err := timelineFilter(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	frame, err := h.timeline.Layout(r.Context(), services.LayoutRequest{
		Width:     width,
		Height:    height,
		Transform: transform,
		Filter:    filter,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithSnapshot(w, h.store.Version(), frame)
}

// CreateSession handles POST /api/timeline/sessions
func (h *TimelineHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	view, err := h.timeline.CreateSession(r.Context(), req.Width, req.Height)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/timeline/sessions/"+view.ID)
	respondWithJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /api/timeline/sessions/{id}
func (h *TimelineHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.timeline.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// ApplyGesture handles POST /api/timeline/sessions/{id}/gestures
func (h *TimelineHandler) ApplyGesture(w http.ResponseWriter, r *http.Request) {
	var gesture services.Gesture
	if err := decodeJSON(w, r, &gesture); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	view, err := h.timeline.Apply(r.Context(), r.PathValue("id"), gesture)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// ClearSelection handles DELETE /api/timeline/sessions/{id}/selection
func (h *TimelineHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	view, err := h.timeline.ClearSelection(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// CloseSession handles DELETE /api/timeline/sessions/{id}
func (h *TimelineHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.timeline.CloseSession(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
