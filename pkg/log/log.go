// Package log provides named zerolog loggers for bankml components.
//
// Training and cleaning emit the occasional progress and summary line; the
// default level is Info so library consumers see convergence and cleaning
// summaries without per-iteration noise. Tests and the CLI adjust the level
// through SetLevel.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().Timestamp().Logger().Level(zerolog.InfoLevel)

// GetLoggerWithName returns a logger tagged with a component name,
// e.g. "ChurnPredictor" or "DataCleaner".
func GetLoggerWithName(name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}

// SetLevel sets the global level for all bankml loggers.
func SetLevel(level zerolog.Level) {
	root = root.Level(level)
}

// SetOutput redirects all bankml loggers, mainly for tests.
func SetOutput(w io.Writer) {
	root = root.Output(w)
}
