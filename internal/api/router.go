package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/marketlens/internal/api/handlers"
	"github.com/wonny/marketlens/pkg/logger"
)

// Handlers groups the endpoint handlers the router mounts
type Handlers struct {
	Market    *handlers.MarketHandler
	Universe  *handlers.UniverseHandler
	Screening *handlers.ScreeningHandler
	System    *handlers.SystemHandler

	// Metrics serves /metrics when set
	Metrics http.Handler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)

	// Health check
	r.HandleFunc("/health", h.System.Health).Methods("GET")
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Market data
	api.HandleFunc("/boards", h.Market.GetBoards).Methods("GET")
	api.HandleFunc("/stocks/{code}/history", h.Market.GetHistory).Methods("GET")
	api.HandleFunc("/stocks/{code}/indicators", h.Market.GetIndicators).Methods("GET")
	api.HandleFunc("/stocks/{code}/fundamentals", h.Market.GetFundamentals).Methods("GET")

	// Universe
	api.HandleFunc("/universe/search", h.Universe.Search).Methods("GET")
	api.HandleFunc("/universe/{code}", h.Universe.GetStock).Methods("GET")

	// Screening
	api.HandleFunc("/screen", h.Screening.Screen).Methods("GET")
	api.HandleFunc("/screen/presets", h.Screening.GetPresets).Methods("GET")
	api.HandleFunc("/screen/runs", h.Screening.GetRuns).Methods("GET")

	// Scheduler
	api.HandleFunc("/jobs", h.System.GetJobs).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   "not found: " + r.URL.Path,
	})
}

// statusRecorder captures the status code for request logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]interface{}{
						"success": false,
						"error":   "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
