package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
)

// fakeTranslationAPI emulates the vendor job API: PUT creates resources
// whose operations walk a scripted status sequence, GET serves statuses
// and the final iteration resource.
type fakeTranslationAPI struct {
	mu sync.Mutex

	// statusScript is the sequence served for every operation before
	// the final status. The final status repeats once exhausted.
	statusScript []string

	resultURL string

	puts     []recordedPut
	getCount map[string]int
}

type recordedPut struct {
	path        string
	operationID string
	key         string
	body        map[string]any
}

func newFakeTranslationAPI(statusScript []string, resultURL string) *fakeTranslationAPI {
	return &fakeTranslationAPI{
		statusScript: statusScript,
		resultURL:    resultURL,
		getCount:     make(map[string]int),
	}
}

func (f *fakeTranslationAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodPut:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.puts = append(f.puts, recordedPut{
				path:        r.URL.Path,
				operationID: r.Header.Get("Operation-Id"),
				key:         r.Header.Get("Ocp-Apim-Subscription-Key"),
				body:        body,
			})
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))

		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/operations/"):
			opID := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
			n := f.getCount[opID]
			f.getCount[opID] = n + 1

			status := f.statusScript[len(f.statusScript)-1]
			if n < len(f.statusScript) {
				status = f.statusScript[n]
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"status": status})

		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/iterations/"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]string{"translatedVideoFileUrl": f.resultURL},
			})

		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	})
}

func (f *fakeTranslationAPI) recordedPuts() []recordedPut {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedPut(nil), f.puts...)
}

func (f *fakeTranslationAPI) gets(opID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCount[opID]
}

func newTestClient(t *testing.T, api *fakeTranslationAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	return New(Config{
		BaseURL:         srv.URL,
		APIVersion:      "2024-05-20-preview",
		SubscriptionKey: "test-key",
		PollInterval:    time.Millisecond,
	}, srv.Client())
}

func TestStartProcessWalksFullProtocol(t *testing.T) {
	api := newFakeTranslationAPI([]string{"Succeeded"}, "https://cdn.example.com/out.mp4")
	client := newTestClient(t, api)

	url, err := client.StartProcess(context.Background(), StartParams{
		SourceLocale:    "en-US",
		TargetLocale:    "ja-JP",
		VideoFileURL:    "https://store.example.com/source/a.mp4",
		SubtitleFileURL: "https://store.example.com/transcription/a.vtt",
		DisplayName:     "a.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/out.mp4", url)

	puts := api.recordedPuts()
	require.Len(t, puts, 2)

	// Translation resource first, then its iteration.
	assert.Regexp(t, `^/translations/[^/]+$`, puts[0].path)
	assert.Regexp(t, `^/translations/[^/]+/iterations/[^/]+$`, puts[1].path)
	assert.Equal(t, "test-key", puts[0].key)
	assert.Equal(t, "test-key", puts[1].key)

	// Each submission carries its own operation identifier.
	assert.NotEmpty(t, puts[0].operationID)
	assert.NotEmpty(t, puts[1].operationID)
	assert.NotEqual(t, puts[0].operationID, puts[1].operationID)

	input, ok := puts[0].body["input"].(map[string]any)
	require.True(t, ok, "translation request must carry input")
	assert.Equal(t, "en-US", input["sourceLocale"])
	assert.Equal(t, "ja-JP", input["targetLocale"])
	assert.Equal(t, "PlatformVoice", input["voiceKind"])
	assert.Equal(t, "https://store.example.com/source/a.mp4", input["videoFileUrl"])
	assert.Equal(t, "a.mp4", puts[0].body["displayName"])

	iterInput, ok := puts[1].body["input"].(map[string]any)
	require.True(t, ok, "iteration request must carry subtitle input")
	webvtt, ok := iterInput["webvttFile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SourceLocaleSubtitle", webvtt["kind"])
	assert.Equal(t, "https://store.example.com/transcription/a.vtt", webvtt["url"])
}

func TestStartProcessWithoutSubtitleSubmitsEmptyIteration(t *testing.T) {
	api := newFakeTranslationAPI([]string{"Succeeded"}, "https://cdn.example.com/out.mp4")
	client := newTestClient(t, api)

	_, err := client.StartProcess(context.Background(), StartParams{
		SourceLocale: "en-US",
		TargetLocale: "de-DE",
		VideoFileURL: "https://store.example.com/source/b.mp4",
		DisplayName:  "b.mp4",
	})
	require.NoError(t, err)

	puts := api.recordedPuts()
	require.Len(t, puts, 2)
	assert.NotContains(t, puts[1].body, "input")
}

func TestStartProcessPollsUntilSucceeded(t *testing.T) {
	api := newFakeTranslationAPI([]string{"Running", "Running", "Succeeded"}, "https://cdn.example.com/out.mp4")
	client := newTestClient(t, api)

	_, err := client.StartProcess(context.Background(), StartParams{
		SourceLocale: "en-US",
		TargetLocale: "fr-FR",
		VideoFileURL: "https://store.example.com/source/c.mp4",
		DisplayName:  "c.mp4",
	})
	require.NoError(t, err)

	puts := api.recordedPuts()
	require.Len(t, puts, 2)

	// Two extra checks beyond the first while the operation runs.
	assert.Equal(t, 3, api.gets(puts[0].operationID))
	assert.Equal(t, 3, api.gets(puts[1].operationID))
}

func TestStartProcessFailsFastOnTerminalStatus(t *testing.T) {
	for _, status := range []string{"Failed", "Canceled", "Cancelled"} {
		t.Run(status, func(t *testing.T) {
			api := newFakeTranslationAPI([]string{"Running", status}, "")
			client := newTestClient(t, api)

			_, err := client.StartProcess(context.Background(), StartParams{
				SourceLocale: "en-US",
				TargetLocale: "es-ES",
				VideoFileURL: "https://store.example.com/source/d.mp4",
				DisplayName:  "d.mp4",
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrOperationFailed)

			// The iteration must never be submitted after the
			// translation operation fails.
			assert.Len(t, api.recordedPuts(), 1)
		})
	}
}

func TestStartProcessSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	client := New(Config{
		BaseURL:      srv.URL,
		APIVersion:   "2024-05-20-preview",
		PollInterval: time.Millisecond,
	}, srv.Client())

	_, err := client.StartProcess(context.Background(), StartParams{
		SourceLocale: "en-US",
		TargetLocale: "ko-KR",
		VideoFileURL: "https://store.example.com/source/e.mp4",
		DisplayName:  "e.mp4",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExternalAPI)

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Contains(t, apiErr.Body, "quota exceeded")
}

func TestStartProcessHonorsContextCancellation(t *testing.T) {
	api := newFakeTranslationAPI([]string{"Running"}, "")
	client := newTestClient(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.StartProcess(ctx, StartParams{
		SourceLocale: "en-US",
		TargetLocale: "it-IT",
		VideoFileURL: "https://store.example.com/source/f.mp4",
		DisplayName:  "f.mp4",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
