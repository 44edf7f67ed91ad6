package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
	"github.com/billy784512/azure-blob-video-translator/internal/observability"
)

// ErrorResponse is the JSON envelope written for panics and other
// middleware-level failures. It matches the handler error envelope so
// clients see one shape everywhere.
type ErrorResponse = apperrors.HTTPErrorResponse

// Recovery converts panics into a 500 response with a structured error
// body instead of tearing down the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				observability.Logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", GetRequestID(r.Context())))

				writeErrorResponse(w, ErrorResponse{
					Error: apperrors.HTTPErrorBody{
						Code:      "INTERNAL_ERROR",
						Message:   fmt.Sprintf("panic: %v", rec),
						RequestID: GetRequestID(r.Context()),
					},
				}, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ErrorHandler is an alias for Recovery kept for route wiring symmetry.
func ErrorHandler(next http.Handler) http.Handler {
	return Recovery(next)
}

func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// RequestLogger emits one structured log line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		observability.Logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.String("request_id", GetRequestID(r.Context())))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
