package pipeline

import (
	"fmt"
	"strings"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
)

// Mode selects the processing strategy for a translation request.
type Mode int

const (
	// ModeSimple splits the video and translates the segments in parallel.
	ModeSimple Mode = iota + 1

	// ModeFull transcribes the audio, builds a subtitle track, and runs a
	// single whole-video translation with subtitle input.
	ModeFull
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSimple:
		return "simple"
	case ModeFull:
		return "full"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps the query-parameter value onto a Mode.
// An empty value defaults to full; anything unknown is an invalid request.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return ModeFull, nil
	case "simple":
		return ModeSimple, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", apperrors.ErrInvalidRequest, s)
	}
}

// Request is one immutable translation job request.
type Request struct {
	// BlobName is the source object name in the source container.
	BlobName string

	// SourceLang and TargetLang are vendor locale tags (e.g. "en-US").
	SourceLang string
	TargetLang string

	// Mode selects the processing strategy.
	Mode Mode
}

// Validate checks the request before any external call is made.
func (r Request) Validate() error {
	if strings.TrimSpace(r.BlobName) == "" {
		return fmt.Errorf("%w: blobName is required", apperrors.ErrInvalidRequest)
	}
	if strings.TrimSpace(r.SourceLang) == "" {
		return fmt.Errorf("%w: sourceLang is required", apperrors.ErrInvalidRequest)
	}
	if strings.TrimSpace(r.TargetLang) == "" {
		return fmt.Errorf("%w: targetLang is required", apperrors.ErrInvalidRequest)
	}
	if r.Mode != ModeSimple && r.Mode != ModeFull {
		return fmt.Errorf("%w: mode is required", apperrors.ErrInvalidRequest)
	}
	return nil
}

// Segment pairs a produced segment's assigned name with its uploaded
// remote reference. The local file is deleted once the upload is
// confirmed, so only the remote side travels further down the pipeline.
type Segment struct {
	// Name is the assigned remote object name (<base>_<n>.mp4).
	Name string

	// RemoteURL is the uploaded copy in the processing container.
	RemoteURL string
}
