package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
)

// HealthChecker probes one dependency of the service.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthResponse is the body returned when the service is healthy or
// degraded.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

const checkTimeout = 5 * time.Second

// HealthManager runs registered dependency checks and renders the
// aggregate result for the health endpoints.
type HealthManager struct {
	mu       sync.RWMutex
	version  string
	checkers map[string]HealthChecker
}

// NewHealthManager builds a manager reporting the given version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		version:  version,
		checkers: make(map[string]HealthChecker),
	}
}

// RegisterChecker adds a named dependency check.
func (m *HealthManager) RegisterChecker(name string, c HealthChecker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = c
}

func (m *HealthManager) runChecks(ctx context.Context) map[string]string {
	m.mu.RLock()
	checkers := make(map[string]HealthChecker, len(m.checkers))
	for name, c := range m.checkers {
		checkers[name] = c
	}
	m.mu.RUnlock()

	results := make(map[string]string, len(checkers))
	for name, c := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.CheckHealth(checkCtx)
		cancel()

		switch {
		case err == nil:
			results[name] = "healthy"
		case errors.Is(err, context.DeadlineExceeded):
			results[name] = "timeout"
		default:
			results[name] = "unhealthy"
		}
	}
	return results
}

func (m *HealthManager) determineOverallStatus(checks map[string]string) string {
	status := "healthy"
	for _, s := range checks {
		switch s {
		case "unhealthy":
			return "unhealthy"
		case "timeout":
			status = "degraded"
		}
	}
	return status
}

// HealthHandler reports the aggregate health of all registered checks.
func (m *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := m.runChecks(r.Context())
	status := m.determineOverallStatus(checks)

	if status == "unhealthy" {
		details := make(map[string]interface{}, len(checks))
		for name, s := range checks {
			details[name] = s
		}
		writeJSON(w, http.StatusServiceUnavailable, apperrors.HTTPErrorResponse{
			Error: apperrors.HTTPErrorBody{
				Code:    "SERVICE_UNAVAILABLE",
				Message: "one or more dependency checks failed",
				Details: map[string]interface{}{"checks": details},
			},
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  status,
		Version: m.version,
		Checks:  checks,
	})
}

// LivenessHandler reports whether the process is running at all.
func (m *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: m.version})
}

// ReadinessHandler reports whether the service can take traffic.
func (m *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	m.HealthHandler(w, r)
}

// StartupHandler reports whether startup completed.
func (m *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: m.version})
}

var globalHealthManager *HealthManager

// InitHealthManager installs the process-wide health manager.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the process-wide manager, or nil before init.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

// HealthHandler serves /health using the global manager.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		respondNotInitialized(w)
		return
	}
	globalHealthManager.HealthHandler(w, r)
}

// LivenessHandler serves /health/live using the global manager.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		respondNotInitialized(w)
		return
	}
	globalHealthManager.LivenessHandler(w, r)
}

// ReadinessHandler serves /health/ready using the global manager.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		respondNotInitialized(w)
		return
	}
	globalHealthManager.ReadinessHandler(w, r)
}

// StartupHandler serves /health/startup using the global manager.
func StartupHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		respondNotInitialized(w)
		return
	}
	globalHealthManager.StartupHandler(w, r)
}

func respondNotInitialized(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, apperrors.HTTPErrorResponse{
		Error: apperrors.HTTPErrorBody{
			Code:    "SERVICE_UNAVAILABLE",
			Message: "health manager not initialized",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
