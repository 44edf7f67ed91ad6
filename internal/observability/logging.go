// Package observability owns process-wide logging.
//
// Logger is initialized once at startup from config and is safe for
// concurrent use. Before Init it is a no-op logger so library code and
// tests never have to nil-check.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide structured logger.
var Logger = zap.NewNop()

// Init builds the global logger.
//
// profile selects the encoder: "STRUCTURED" emits JSON (production),
// anything else emits the console encoder (development).
func Init(level, profile string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	if strings.EqualFold(profile, "STRUCTURED") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	Logger = logger
	return nil
}

// Sync flushes buffered log entries. Safe to call on the no-op logger.
func Sync() {
	_ = Logger.Sync()
}
