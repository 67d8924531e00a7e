package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

// ClientIDHeader identifies a dashboard tab or device for per-client
// preferences
const ClientIDHeader = "X-Client-ID"

type clientIDKey struct{}

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// ClientIDMiddleware stores the caller's client id in the request context.
// Requests without the header use entities.DefaultClientID.
func ClientIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(ClientIDHeader)
		if id == "" {
			id = entities.DefaultClientID
		}
		if !clientIDPattern.MatchString(id) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid " + ClientIDHeader + " header"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), id)))
	})
}

// WithClientID returns ctx carrying id
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, id)
}

// ClientIDFromContext returns the client id, or entities.DefaultClientID
func ClientIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDKey{}).(string); ok && id != "" {
		return id
	}
	return entities.DefaultClientID
}
