package handlers

import (
	"net/http"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
)

// HTTPErrorResponder writes an error response for the given error.
type HTTPErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var httpErrorResponder HTTPErrorResponder = defaultErrorResponder

func defaultErrorResponder(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

// SetHTTPErrorResponder overrides how handlers render errors. Passing
// nil restores the default responder.
func SetHTTPErrorResponder(responder HTTPErrorResponder) {
	if responder == nil {
		httpErrorResponder = defaultErrorResponder
		return
	}
	httpErrorResponder = responder
}

// ResetHTTPErrorResponder restores the default responder.
func ResetHTTPErrorResponder() {
	httpErrorResponder = defaultErrorResponder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
