// Package translate drives the long-running video translation job API.
//
// One StartProcess call walks the full protocol: submit the translation
// resource, poll its operation, submit an iteration, poll again, then
// fetch the result URL from the iteration resource.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
	"github.com/billy784512/azure-blob-video-translator/internal/observability"
)

// DefaultPollInterval is the sleep between operation status checks.
const DefaultPollInterval = 10 * time.Second

// HTTPDoer describes the HTTP client used by the translation client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the translation client.
type Config struct {
	// BaseURL is the regional API root, without a trailing slash.
	BaseURL string

	// APIVersion is the api-version query value.
	APIVersion string

	// SubscriptionKey authenticates against the vendor API.
	SubscriptionKey string

	// PollInterval is the sleep between status checks.
	// Zero uses DefaultPollInterval.
	PollInterval time.Duration
}

// Client drives translation jobs. It is stateless across calls and safe
// for concurrent use: all per-job state lives in the Session built
// inside StartProcess.
type Client struct {
	cfg    Config
	client HTTPDoer
}

// New constructs a translation client. A nil doer uses http.DefaultClient.
func New(cfg Config, doer HTTPDoer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, client: doer}
}

// StartParams are the inputs for one translation job.
type StartParams struct {
	SourceLocale string
	TargetLocale string

	// VideoFileURL is the remote reference of the media to translate.
	VideoFileURL string

	// SubtitleFileURL optionally supplies a source-locale WebVTT track.
	// Empty means the iteration is submitted without subtitle input.
	SubtitleFileURL string

	// DisplayName labels the translation resource.
	DisplayName string
}

// StartProcess runs one complete translation job and returns the
// translated media URL.
//
// The five steps are strictly sequential: the iteration must not be
// submitted before the translation resource's operation succeeds.
func (c *Client) StartProcess(ctx context.Context, p StartParams) (string, error) {
	sess := NewSession()

	opID, err := c.createTranslation(ctx, sess, p)
	if err != nil {
		return "", err
	}
	if err := c.poll(ctx, opID); err != nil {
		return "", err
	}

	sess.IterationID = newOperationID()
	opID, err = c.createIteration(ctx, sess, p.SubtitleFileURL)
	if err != nil {
		return "", err
	}
	if err := c.poll(ctx, opID); err != nil {
		return "", err
	}

	return c.fetchResult(ctx, sess)
}

// createTranslation submits the translation resource and returns the
// operation identifier to poll.
func (c *Client) createTranslation(ctx context.Context, sess Session, p StartParams) (string, error) {
	url := fmt.Sprintf("%s/translations/%s?api-version=%s",
		c.cfg.BaseURL, sess.TranslationID, c.cfg.APIVersion)

	payload := translationRequest{
		DisplayName: p.DisplayName,
		Description: "",
		Input: translationInput{
			SourceLocale: p.SourceLocale,
			TargetLocale: p.TargetLocale,
			VoiceKind:    "PlatformVoice",
			VideoFileURL: p.VideoFileURL,
		},
	}

	opID := newOperationID()
	if err := c.put(ctx, url, opID, payload); err != nil {
		return "", err
	}
	return opID, nil
}

// createIteration submits one iteration, with the subtitle reference or
// an empty body, and returns the operation identifier to poll.
func (c *Client) createIteration(ctx context.Context, sess Session, subtitleURL string) (string, error) {
	url := fmt.Sprintf("%s/translations/%s/iterations/%s?api-version=%s",
		c.cfg.BaseURL, sess.TranslationID, sess.IterationID, c.cfg.APIVersion)

	var payload iterationRequest
	if subtitleURL != "" {
		payload.Input = &iterationInput{
			WebvttFile: webvttFile{Kind: "SourceLocaleSubtitle", URL: subtitleURL},
		}
	}

	opID := newOperationID()
	if err := c.put(ctx, url, opID, payload); err != nil {
		return "", err
	}
	return opID, nil
}

// poll sleeps between status checks until the operation reports
// Succeeded. Terminal failure statuses fail fast with ErrOperationFailed;
// anything else keeps polling. There is no timeout: long jobs are
// expected, and callers cancel via ctx.
func (c *Client) poll(ctx context.Context, operationID string) error {
	timer := time.NewTimer(c.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		status, err := c.operationStatus(ctx, operationID)
		if err != nil {
			return err
		}

		switch status {
		case statusSucceeded:
			return nil
		case statusFailed, statusCanceled, statusCancelled:
			return fmt.Errorf("%w: operation %s reported %s",
				apperrors.ErrOperationFailed, operationID, status)
		}

		observability.Logger.Debug("operation still running",
			zap.String("operation_id", operationID),
			zap.String("status", status))
		timer.Reset(c.cfg.PollInterval)
	}
}

// operationStatus fetches the current status of an operation.
func (c *Client) operationStatus(ctx context.Context, operationID string) (string, error) {
	url := fmt.Sprintf("%s/operations/%s?api-version=%s",
		c.cfg.BaseURL, operationID, c.cfg.APIVersion)

	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}

	var op operationResource
	if err := json.Unmarshal(body, &op); err != nil {
		return "", fmt.Errorf("parse operation status: %w", err)
	}
	return op.Status, nil
}

// fetchResult retrieves the iteration resource and extracts the
// translated media URL.
func (c *Client) fetchResult(ctx context.Context, sess Session) (string, error) {
	url := fmt.Sprintf("%s/translations/%s/iterations/%s?api-version=%s",
		c.cfg.BaseURL, sess.TranslationID, sess.IterationID, c.cfg.APIVersion)

	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}

	var iteration iterationResource
	if err := json.Unmarshal(body, &iteration); err != nil {
		return "", fmt.Errorf("parse iteration resource: %w", err)
	}
	if iteration.Result.TranslatedVideoFileURL == "" {
		return "", fmt.Errorf("%w: iteration %s has no result url",
			apperrors.ErrOperationFailed, sess.IterationID)
	}
	return iteration.Result.TranslatedVideoFileURL, nil
}

// put submits a resource with the per-operation identifier header.
func (c *Client) put(ctx context.Context, url, operationID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)
	req.Header.Set("Operation-Id", operationID)

	_, err = c.do(req)
	return err
}

// get fetches a resource and returns its body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	return c.do(req)
}

// do executes the request, converting any non-success status into an
// APIError that preserves the response body.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translation request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read translation response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &apperrors.APIError{
			Service: "translation",
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}
