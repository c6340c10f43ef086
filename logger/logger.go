// SPDX-License-Identifier: EPL-2.0

// Package logger sets up the zerolog loggers the engine components take.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a structured stderr logger.
func New(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// Console returns a human-readable console logger tagged with the component
// name.
func Console(debug bool, tag string) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
	}
	return zerolog.New(output).Level(level).With().Str("tag", tag).Timestamp().Logger()
}
