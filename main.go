package main

import (
	"os"

	"github.com/billy784512/azure-blob-video-translator/internal/cmd"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
