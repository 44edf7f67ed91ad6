package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(ctx context.Context) error {
	return s.err
}

func TestHealthHandlerReturnsHealthyStatus(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("storage", stubChecker{err: nil})
	manager.RegisterChecker("ffmpeg", stubChecker{err: nil})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	manager.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "healthy", resp.Checks["storage"])
	assert.Equal(t, "healthy", resp.Checks["ffmpeg"])
}

func TestHealthHandlerReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("storage", stubChecker{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	manager.HealthHandler(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Error struct {
			Code    string                 `json:"code"`
			Message string                 `json:"message"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)

	checks, ok := resp.Error.Details["checks"].(map[string]interface{})
	require.True(t, ok, "expected checks in error details")
	assert.Equal(t, "unhealthy", checks["storage"])
}

func TestDetermineOverallStatusTreatsTimeoutAsDegraded(t *testing.T) {
	manager := NewHealthManager("dev")

	status := manager.determineOverallStatus(map[string]string{
		"storage": "timeout",
		"ffmpeg":  "healthy",
	})

	assert.Equal(t, "degraded", status)
}

func TestLivenessIgnoresCheckers(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("storage", stubChecker{err: errors.New("down")})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()

	manager.LivenessHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGlobalHandlers(t *testing.T) {
	original := globalHealthManager
	defer func() { globalHealthManager = original }()

	InitHealthManager("test-version")
	require.NotNil(t, GetHealthManager())

	handlersUnderTest := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"HealthHandler", HealthHandler},
		{"LivenessHandler", LivenessHandler},
		{"ReadinessHandler", ReadinessHandler},
		{"StartupHandler", StartupHandler},
	}

	for _, tt := range handlersUnderTest {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()

			tt.handler(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestGlobalHandlers_WhenNotInitialized(t *testing.T) {
	original := globalHealthManager
	defer func() { globalHealthManager = original }()

	globalHealthManager = nil
	assert.Nil(t, GetHealthManager())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	HealthHandler(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
