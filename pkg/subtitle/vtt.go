// Package subtitle converts transcripts into WebVTT subtitle tracks.
package subtitle

import (
	"bytes"
	"fmt"
	"io"

	"github.com/billy784512/azure-blob-video-translator/pkg/transcribe"
)

// WriteVTT renders the transcript as a WebVTT track: one cue per
// phrase, in phrase order.
//
// The conversion is deterministic and side-effect-free: the same
// transcript always yields byte-identical output. Phrase text passes
// through unmodified.
func WriteVTT(w io.Writer, t *transcribe.Transcript) error {
	if _, err := fmt.Fprint(w, "WEBVTT\n\n"); err != nil {
		return err
	}
	for _, phrase := range t.Phrases {
		start := formatTimestamp(phrase.OffsetMilliseconds)
		end := formatTimestamp(phrase.OffsetMilliseconds + phrase.DurationMilliseconds)
		if _, err := fmt.Fprintf(w, "%s --> %s\n%s\n\n", start, end, phrase.Text); err != nil {
			return err
		}
	}
	return nil
}

// Convert renders the transcript as WebVTT bytes.
func Convert(t *transcribe.Transcript) []byte {
	var buf bytes.Buffer
	_ = WriteVTT(&buf, t)
	return buf.Bytes()
}

// formatTimestamp renders milliseconds as HH:MM:SS.mmm.
// Hours are two digits; inputs under 100 hours are in-contract.
func formatTimestamp(ms int) string {
	hours := ms / 3600000
	minutes := ms % 3600000 / 60000
	seconds := ms % 60000 / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}
