package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// HTTPErrorResponse is the JSON envelope for error responses.
type HTTPErrorResponse struct {
	Error HTTPErrorBody `json:"error"`
}

// HTTPErrorBody carries the machine-readable error detail.
type HTTPErrorBody struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Code returns the stable machine-readable code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidInput):
		return "INVALID_REQUEST"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrProbeFailed):
		return "PROBE_FAILED"
	case errors.Is(err, ErrSegmentationFailed):
		return "SEGMENTATION_FAILED"
	case errors.Is(err, ErrExternalAPI):
		return "EXTERNAL_API_ERROR"
	case errors.Is(err, ErrOperationFailed):
		return "OPERATION_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}

// StatusCode maps err onto the HTTP status the boundary should return.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithError writes the uniform JSON error envelope for err.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	resp := HTTPErrorResponse{
		Error: HTTPErrorBody{
			Code:      Code(err),
			Message:   err.Error(),
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(err))
	_ = json.NewEncoder(w).Encode(resp)
}
