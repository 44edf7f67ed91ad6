package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
	"github.com/billy784512/azure-blob-video-translator/internal/observability"
	"github.com/billy784512/azure-blob-video-translator/pkg/pipeline"
)

// PipelineService is the orchestrator surface the HTTP layer depends on.
type PipelineService interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Split(ctx context.Context, blobName string) ([]pipeline.Segment, error)
}

// Pipeline exposes the translation and splitting endpoints.
type Pipeline struct {
	service             PipelineService
	processingContainer string
}

// NewPipeline builds the pipeline endpoint handlers.
func NewPipeline(service PipelineService, processingContainer string) *Pipeline {
	return &Pipeline{service: service, processingContainer: processingContainer}
}

type translateRequest struct {
	BlobName   string `json:"blobName"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

type splitRequest struct {
	BlobName string `json:"blobName"`
}

// Translate handles POST /api/translate. The mode query parameter
// selects simple (segment fan-out) or full (transcribe and subtitle)
// processing; absent means full.
func (h *Pipeline) Translate(w http.ResponseWriter, r *http.Request) {
	var body translateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, r, fmt.Errorf("%w: malformed JSON body: %v", apperrors.ErrInvalidRequest, err))
		return
	}

	mode, err := pipeline.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	result, err := h.service.Run(r.Context(), pipeline.Request{
		BlobName:   body.BlobName,
		SourceLang: body.SourceLang,
		TargetLang: body.TargetLang,
		Mode:       mode,
	})
	if err != nil {
		observability.Logger.Error("translate request failed",
			zap.String("blob", body.BlobName),
			zap.String("mode", mode.String()),
			zap.Error(err))
		respondWithError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	switch result.Mode {
	case pipeline.ModeSimple:
		fmt.Fprintf(w, "Translated %d segment(s) of %s; results staged via container %s\n",
			len(result.ResultURLs), body.BlobName, result.Container)
	default:
		fmt.Fprintf(w, "Translated %s; result uploaded to container %s as %s\n",
			body.BlobName, result.Container, result.ObjectName)
	}
}

// Split handles POST /api/split.
func (h *Pipeline) Split(w http.ResponseWriter, r *http.Request) {
	var body splitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, r, fmt.Errorf("%w: malformed JSON body: %v", apperrors.ErrInvalidRequest, err))
		return
	}

	segments, err := h.service.Split(r.Context(), body.BlobName)
	if err != nil {
		observability.Logger.Error("split request failed",
			zap.String("blob", body.BlobName),
			zap.Error(err))
		respondWithError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Split %s into %d segment(s); uploaded to container %s\n",
		body.BlobName, len(segments), h.processingContainer)
}
