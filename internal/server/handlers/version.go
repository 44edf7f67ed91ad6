package handlers

import "net/http"

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var versionInfo = VersionInfo{Version: "dev"}

// SetVersionInfo records the build metadata served by /version.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo = VersionInfo{Version: version, Commit: commit, BuildDate: buildDate}
}

// VersionHandler serves the build metadata.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, versionInfo)
}
