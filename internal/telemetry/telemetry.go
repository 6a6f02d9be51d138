// Package telemetry wraps charmbracelet/log for the engine's structured,
// leveled logging. charmbracelet/log is a direct dependency of
// doismellburning-samoyed's go.mod (the other portaudio-based repo in the
// retrieved corpus); this package gives the rest of trackengine one place
// to log through instead of importing charmbracelet/log directly
// everywhere.
package telemetry

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the engine-wide structured logger. Fields (track id, job id,
// error kind) should be attached with With rather than interpolated into
// the message.
type Logger struct {
	*log.Logger
}

// defaultLogger is created once; New returns named sub-loggers derived
// from it via With, matching charmbracelet/log's usual pattern.
var defaultLogger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "trackengine",
})

// New returns a Logger scoped to component (e.g. "track", "output",
// "recording"), attached as a structured field.
func New(component string) *Logger {
	return &Logger{defaultLogger.With("component", component)}
}

// SetLevel adjusts the verbosity of every logger sharing the default
// backing instance.
func SetLevel(level log.Level) {
	defaultLogger.SetLevel(level)
}
