package translate

// Wire payloads for the video translation API.

type translationRequest struct {
	DisplayName string           `json:"displayName"`
	Description string           `json:"description"`
	Input       translationInput `json:"input"`
}

type translationInput struct {
	SourceLocale string `json:"sourceLocale"`
	TargetLocale string `json:"targetLocale"`
	VoiceKind    string `json:"voiceKind"`
	VideoFileURL string `json:"videoFileUrl"`
}

type iterationRequest struct {
	Input *iterationInput `json:"input,omitempty"`
}

type iterationInput struct {
	WebvttFile webvttFile `json:"webvttFile"`
}

type webvttFile struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

type operationResource struct {
	Status string `json:"status"`
}

type iterationResource struct {
	Result struct {
		TranslatedVideoFileURL string `json:"translatedVideoFileUrl"`
	} `json:"result"`
}

// Operation status values reported by the API.
const (
	statusSucceeded = "Succeeded"
	statusFailed    = "Failed"
	statusCanceled  = "Canceled"
	// Some API versions spell it with two els.
	statusCancelled = "Cancelled"
)
