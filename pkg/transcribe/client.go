package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
)

// HTTPDoer describes the HTTP client used by the transcription client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the transcription client.
type Config struct {
	// URL is the full transcription endpoint.
	URL string

	// SubscriptionKey authenticates against the vendor API.
	SubscriptionKey string
}

// Client submits audio to the transcription API.
// It is stateless after construction and safe for concurrent use.
type Client struct {
	cfg    Config
	client HTTPDoer
}

// New constructs a transcription client. A nil doer uses
// http.DefaultClient.
func New(cfg Config, doer HTTPDoer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{cfg: cfg, client: doer}
}

// Transcribe submits a WAV stream and returns the parsed transcript.
//
// The request is a multipart form with an "audio" file part and a
// "definition" part carrying the locale list.
func (c *Client) Transcribe(ctx context.Context, wav io.Reader, locale string) (*Transcript, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="audio"; filename="audio.wav"`)
	header.Set("Content-Type", "audio/wav")
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("build audio part: %w", err)
	}
	if _, err := io.Copy(part, wav); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}

	definition, err := json.Marshal(map[string][]string{"locales": {locale}})
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	if err := form.WriteField("definition", string(definition)); err != nil {
		return nil, fmt.Errorf("write definition part: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, &body)
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read transcription response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &apperrors.APIError{
			Service: "transcription",
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(payload)),
		}
	}

	var transcript Transcript
	if err := json.Unmarshal(payload, &transcript); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	return &transcript, nil
}
