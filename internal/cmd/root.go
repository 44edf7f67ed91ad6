// Package cmd implements the CLI entry points.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/billy784512/azure-blob-video-translator/internal/config"
	"github.com/billy784512/azure-blob-video-translator/internal/server/handlers"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected via -ldflags.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "abvt",
	Short: "Blob-backed video translation pipeline",
	Long: `abvt runs a video translation pipeline over object storage:
it splits videos into size-bounded segments, transcribes audio into
WebVTT subtitles, and drives long-running translation jobs against
the vendor API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	setDefaults()

	rootCmd.AddCommand(versionCmd)
}

// setDefaults registers configuration defaults on the global viper so
// commands that read viper directly see the same values as config.Load.
func setDefaults() {
	config.SetDefaults(viper.GetViper())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("abvt %s (commit %s, built %s)\n",
			versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return fmt.Errorf("%s: %w (exit code %d)", message, err, code)
}
