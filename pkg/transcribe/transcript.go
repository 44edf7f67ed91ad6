// Package transcribe is the client for the fast speech transcription API.
package transcribe

// Transcript is the structured result of one transcription call.
//
// Phrase order is whatever the service emitted. Offsets are
// non-negative but not guaranteed monotonic; consumers must not assume
// ordering beyond what is given.
type Transcript struct {
	Phrases []Phrase `json:"phrases"`
}

// Phrase is one recognized utterance.
type Phrase struct {
	OffsetMilliseconds   int    `json:"offsetMilliseconds"`
	DurationMilliseconds int    `json:"durationMilliseconds"`
	Text                 string `json:"text"`
}
