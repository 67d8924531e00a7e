package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/drnexus/medicaldashboard/backend/internal/application/services"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
)

// heartbeatInterval keeps idle streams open through proxies
const heartbeatInterval = 30 * time.Second

// SSEHandler streams timeline session changes to the detail panel
type SSEHandler struct {
	eventBus  providers.EventBus
	timeline  *services.TimelineService
	logger    zerolog.Logger
	heartbeat time.Duration

	clients map[string]map[chan *entities.DashboardEvent]bool // channel -> clients
	mu      sync.RWMutex
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus, timeline *services.TimelineService) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		timeline:  timeline,
		logger:    observability.Component("sse"),
		heartbeat: heartbeatInterval,
		clients:   make(map[string]map[chan *entities.DashboardEvent]bool),
	}
}

// StreamTimeline handles GET /api/stream/timeline/{id}. It sends the session
// state on connect, then selection and transform changes for the session
// and dataset reloads. When the session is closed or expires the stream
// ends with a session_closed event.
func (h *SSEHandler) StreamTimeline(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	view, err := h.timeline.Session(r.Context(), sessionID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	channel := providers.TimelineSessionChannel(sessionID)
	sessionEvents, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error().Err(err).Str("channel", channel).Msg("Failed to subscribe")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	datasetEvents, err := h.eventBus.Subscribe(ctx, providers.EventChannelDataset)
	if err != nil {
		h.logger.Error().Err(err).Str("channel", providers.EventChannelDataset).Msg("Failed to subscribe")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	clientChan := make(chan *entities.DashboardEvent, 10)
	h.registerClient(channel, clientChan)
	defer h.unregisterClient(channel, clientChan)

	h.sendEvent(w, "connected", map[string]interface{}{
		"session_id": sessionID,
		"selected":   view.Selected,
		"state":      view.State,
		"version":    view.Version,
		"timestamp":  time.Now(),
	})
	flusher.Flush()

	// The bus closes the session channel when the session ends
	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		h.forwardEvents(ctx, sessionEvents, clientChan)
	}()
	go h.forwardEvents(ctx, datasetEvents, clientChan)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug().Str("session_id", sessionID).Msg("Client disconnected from timeline stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event := <-clientChan:
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		case <-sessionDone:
			if ctx.Err() != nil {
				return
			}
			h.drain(w, clientChan)
			h.sendEvent(w, "session_closed", map[string]interface{}{
				"session_id": sessionID,
				"timestamp":  time.Now(),
			})
			flusher.Flush()
			h.logger.Debug().Str("session_id", sessionID).Msg("Timeline session ended, closing stream")
			return
		}
	}
}

// drain writes events already queued for the client
func (h *SSEHandler) drain(w http.ResponseWriter, clientChan <-chan *entities.DashboardEvent) {
	for {
		select {
		case event := <-clientChan:
			h.sendEvent(w, string(event.Type), event)
		default:
			return
		}
	}
}

// forwardEvents forwards events from the event bus to a client channel
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.DashboardEvent, clientChan chan<- *entities.DashboardEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			select {
			case clientChan <- event:
			default:
				// Client channel full, skip event
			}
		}
	}
}

func (h *SSEHandler) registerClient(channel string, clientChan chan *entities.DashboardEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[channel] == nil {
		h.clients[channel] = make(map[chan *entities.DashboardEvent]bool)
	}
	h.clients[channel][clientChan] = true
	h.logger.Debug().Str("channel", channel).Int("clients", len(h.clients[channel])).Msg("Client registered")
}

func (h *SSEHandler) unregisterClient(channel string, clientChan chan *entities.DashboardEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.clients[channel]; exists {
		delete(clients, clientChan)
		if len(clients) == 0 {
			delete(h.clients, channel)
		}
	}
}

// sendEvent writes one SSE frame
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error().Err(err).Str("event", eventType).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected clients
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}
