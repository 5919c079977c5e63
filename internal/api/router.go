package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/qcdash/internal/api/handlers"
	"github.com/wonny/qcdash/pkg/logger"
)

// RouterConfig lists the handlers to mount. Nil handlers are skipped.
type RouterConfig struct {
	Dashboard *handlers.DashboardHandler
	Jobs      *handlers.JobsHandler
	StaticDir string // optional front-end directory served at /
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(rc RouterConfig, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Artifact
	r.HandleFunc("/dashboard.json", rc.Dashboard.GetDashboard).Methods("GET", "HEAD")

	// Read-only API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/projects", rc.Dashboard.ListProjects).Methods("GET")
	api.HandleFunc("/projects/{id:[0-9]+}", rc.Dashboard.GetProject).Methods("GET")
	if rc.Jobs != nil {
		api.HandleFunc("/jobs", rc.Jobs.GetJobs).Methods("GET")
	}

	// Static front end
	if rc.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(rc.StaticDir))).Methods("GET", "HEAD")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "qcdash",
	})
}

// statusRecorder captures the response status for logging
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
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
