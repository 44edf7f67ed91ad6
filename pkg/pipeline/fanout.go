package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/billy784512/azure-blob-video-translator/internal/observability"
	"github.com/billy784512/azure-blob-video-translator/pkg/translate"
)

// DefaultMaxParallel bounds concurrent translation jobs during fan-out.
// The vendor API is a capacity-limited resource.
const DefaultMaxParallel = 5

// JobStarter runs one complete long-running translation job.
type JobStarter interface {
	StartProcess(ctx context.Context, p translate.StartParams) (string, error)
}

// FanOut runs per-segment translation jobs under a shared concurrency cap.
//
// The batch is fail-fast and all-or-nothing: the first unit failure
// cancels every unit that has not yet issued its external call, and the
// batch reports that first error. Results of units that happened to
// finish are discarded on failure.
type FanOut struct {
	jobs        JobStarter
	maxParallel int

	// limiter optionally paces job submissions (nil if unlimited).
	limiter *rate.Limiter
}

// NewFanOut creates an executor. A non-positive maxParallel uses
// DefaultMaxParallel; a submitRate of zero disables pacing.
func NewFanOut(jobs JobStarter, maxParallel int, submitRate float64) *FanOut {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	f := &FanOut{jobs: jobs, maxParallel: maxParallel}
	if submitRate > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(submitRate), 1)
	}
	return f
}

// Translate runs one translation job per segment and returns the result
// URLs in segment order. On any failure it returns the first error
// observed and no results.
func (f *FanOut) Translate(ctx context.Context, sourceLang, targetLang string, segments []Segment) ([]string, error) {
	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, f.maxParallel)
	results := make([]string, len(segments))

	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for i, seg := range segments {
		// Acquire a slot or bail on cancellation. The select alone is not
		// enough: both cases can be ready at once, so re-check below.
		select {
		case <-fanCtx.Done():
		case sem <- struct{}{}:
		}
		if fanCtx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int, seg Segment) {
			defer wg.Done()
			defer func() { <-sem }()

			// A sibling may have failed while this unit waited for its
			// slot; it must not issue the external call in that case.
			if fanCtx.Err() != nil {
				return
			}
			if f.limiter != nil {
				if err := f.limiter.Wait(fanCtx); err != nil {
					return
				}
			}

			url, err := f.jobs.StartProcess(fanCtx, translate.StartParams{
				SourceLocale: sourceLang,
				TargetLocale: targetLang,
				VideoFileURL: seg.RemoteURL,
				DisplayName:  seg.Name,
			})
			if err != nil {
				observability.Logger.Error("segment translation failed",
					zap.String("segment", seg.Name),
					zap.Error(err))
				errOnce.Do(func() {
					firstErr = err
				})
				cancel()
				return
			}

			observability.Logger.Info("segment translated",
				zap.String("segment", seg.Name),
				zap.String("video_url", url))
			results[i] = url
		}(i, seg)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
