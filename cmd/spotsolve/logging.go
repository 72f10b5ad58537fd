package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// setupLogger writes to stderr so stdout carries only results. format is
// "console" for humans or "json" for structured output.
func setupLogger(debug bool, format string) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	if format == "json" {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
