package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/adapters/dataset"
	"github.com/drnexus/medicaldashboard/backend/internal/adapters/events"
	"github.com/drnexus/medicaldashboard/backend/internal/adapters/preferences"
	"github.com/drnexus/medicaldashboard/backend/internal/api/middleware"
	"github.com/drnexus/medicaldashboard/backend/internal/application/services"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
	"github.com/drnexus/medicaldashboard/backend/internal/search"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
	"github.com/drnexus/medicaldashboard/backend/pkg/config"
)

// stack is the service graph behind the handlers, loaded with the bundled
// dataset
type stack struct {
	store       *store.Store
	bus         providers.EventBus
	datasets    *services.DatasetService
	dashboard   *services.DashboardService
	timeline    *services.TimelineService
	search      *services.SearchService
	preferences *services.PreferencesService
}

func newStack(t *testing.T) *stack {
	t.Helper()

	st := store.New()
	bus := events.NewMemoryEventBus()
	t.Cleanup(func() { _ = bus.Close() })

	engine := search.NewEngine()
	prefs := preferences.NewMemoryRepository()
	s := &stack{
		store:       st,
		bus:         bus,
		datasets:    services.NewDatasetService(dataset.NewBundledSource(), st, engine, bus, nil),
		dashboard:   services.NewDashboardService(st),
		search:      services.NewSearchService(engine, prefs, nil, 0),
		preferences: services.NewPreferencesService(prefs),
		timeline: services.NewTimelineService(st, bus, nil, config.TimelineConfig{
			SessionTTL:    time.Minute,
			SweepInterval: time.Minute,
			DefaultWidth:  800,
			DefaultHeight: 400,
		}),
	}

	_, err := s.datasets.Load(context.Background())
	require.NoError(t, err)
	return s
}

// newRequest builds a request carrying client id, as ClientIDMiddleware would
func newRequest(method, target string, body interface{}, clientID string) *http.Request {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if clientID != "" {
		req = req.WithContext(middleware.WithClientID(req.Context(), clientID))
	}
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}
