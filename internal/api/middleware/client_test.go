package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drnexus/medicaldashboard/backend/internal/api/middleware"
)

func TestClientIDMiddleware(t *testing.T) {
	var seen string
	handler := middleware.ClientIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.ClientIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
		want   string
	}{
		{"default", "", http.StatusOK, "anonymous"},
		{"valid", "tab-1.local:42", http.StatusOK, "tab-1.local:42"},
		{"spaces", "tab 1", http.StatusBadRequest, ""},
		{"too long", strings.Repeat("a", 129), http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/preferences/theme", nil)
			if tt.header != "" {
				req.Header.Set(middleware.ClientIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.want, seen)
		})
	}
}
