package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
)

// DatasetVersionHeader reports the snapshot version a response was built from
const DatasetVersionHeader = "X-Dataset-Version"

// CacheConfig holds cache configuration for specific routes
type CacheConfig struct {
	TTLSeconds int
	Enabled    bool
}

// VersionFunc returns the current dataset snapshot version
type VersionFunc func() uint64

// CacheMiddleware caches read-only dashboard responses. Keys include the
// dataset version, so a reload never serves a stale body.
type CacheMiddleware struct {
	cache        providers.CacheProvider
	version      VersionFunc
	metrics      *observability.Metrics
	logger       zerolog.Logger
	routeConfigs map[string]CacheConfig
}

// NewCacheMiddleware creates a new cache middleware. Every cached route uses
// ttlSeconds.
func NewCacheMiddleware(cache providers.CacheProvider, version VersionFunc, metrics *observability.Metrics, ttlSeconds int) *CacheMiddleware {
	route := CacheConfig{TTLSeconds: ttlSeconds, Enabled: ttlSeconds > 0}
	return &CacheMiddleware{
		cache:   cache,
		version: version,
		metrics: metrics,
		logger:  observability.Component("http_cache"),
		routeConfigs: map[string]CacheConfig{
			"/api/patient":         route,
			"/api/dashboard":       route,
			"/api/conditions":      route,
			"/api/medications":     route,
			"/api/labs":            route,
			"/api/devices":         route,
			"/api/actions":         route,
			"/api/documents":       route,
			"/api/integrity":       route,
			"/api/timeline":        route,
			"/api/timeline/layout": route,
			"/api/search":          route,
		},
	}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		// Exact paths only; session and preference routes are per client.
		config, ok := m.routeConfigs[r.URL.Path]
		if !ok || !config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		version := m.version()
		cacheKey := m.generateCacheKey(r, version)

		if cached, err := m.cache.Get(r.Context(), cacheKey); err == nil {
			observability.RecordCacheHit(r.Context(), m.metrics, r.URL.Path)
			m.logger.Debug().Str("key", cacheKey).Msg("Cache HIT")
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set(DatasetVersionHeader, strconv.FormatUint(version, 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}

		observability.RecordCacheMiss(r.Context(), m.metrics, r.URL.Path)
		w.Header().Set("X-Cache", "MISS")

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		// Only cache successful responses built from the version we keyed on
		if recorder.statusCode != http.StatusOK || recorder.body.Len() == 0 {
			return
		}
		if recorder.Header().Get(DatasetVersionHeader) != strconv.FormatUint(version, 10) {
			return
		}
		if err := m.cache.Set(r.Context(), cacheKey, recorder.body.Bytes(), config.TTLSeconds); err != nil {
			m.logger.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache response")
		}
	})
}

// generateCacheKey hashes the method, path, query and dataset version
func (m *CacheMiddleware) generateCacheKey(r *http.Request, version uint64) string {
	key := fmt.Sprintf("%s:%s", r.Method, r.URL.Path)
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.Query().Encode()
	}

	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("http:cache:v%d:%s", version, hex.EncodeToString(hash[:]))
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
