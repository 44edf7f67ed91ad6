package translate

import "github.com/google/uuid"

// Session identifies one logical translation job against the vendor API.
//
// The API tracks three independent identifiers: the translation
// resource (the logical project), the iteration (one submitted version
// of it), and the operation (one async unit of work, polled for
// completion). A Session is constructed fresh per StartProcess call and
// never shared, so identifiers cannot cross-talk between concurrent
// jobs.
type Session struct {
	// TranslationID is stable for the whole StartProcess call.
	TranslationID string

	// IterationID identifies the submitted iteration. Set when the
	// iteration is created.
	IterationID string
}

// NewSession generates a session with a fresh translation identifier.
func NewSession() Session {
	return Session{TranslationID: uuid.New().String()}
}

// newOperationID generates the identifier for one async operation.
// Each submission gets its own, distinct from the resource identifiers.
func newOperationID() string {
	return uuid.New().String()
}
