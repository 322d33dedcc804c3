// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger carries diagnostics (connection events, read errors, server
// lifecycle). Decoded frames are printed to stdout.
var logger = zerolog.Nop()

func setupLogging(out io.Writer) {
	level := logLevel
	if level == "" {
		level = os.Getenv("SENTSCOPE_LOG_LEVEL")
	}
	logger = newLogger(out, level)
	log.Logger = logger
}

func newLogger(out io.Writer, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).
		Level(parseLevel(level)).
		With().Timestamp().Str("app", "sentscope").
		Logger()
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
