// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide logrus logger.
//
// The terminal UI owns stdout, so log output goes to a file under the
// campustour config directory unless a writer is supplied.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Options controls logger construction.
type Options struct {
	// Level is a logrus level name ("info", "debug", ...).
	Level string
	// Path is the log file. Ignored when Output is set.
	Path string
	// JSON switches from text to JSON formatting.
	JSON bool
	// Output overrides the destination (tests, --log-stderr).
	Output io.Writer
}

// New builds a logger from opts. The returned closer releases the log
// file, if one was opened.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: %w", err)
		}
		level = lvl
	}

	out := opts.Output
	var closer io.Closer = nopCloser{}
	if out == nil {
		if opts.Path == "" {
			return nil, nil, fmt.Errorf("logging: no output path")
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
			return nil, nil, fmt.Errorf("logging: create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", opts.Path, err)
		}
		out, closer = f, f
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	if opts.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			DisableColors:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}
	return log, closer, nil
}

// Init builds a logger and installs its output, level and formatter on the
// logrus standard logger so package-level logrus calls land in the same place.
func Init(opts Options) (*logrus.Logger, io.Closer, error) {
	log, closer, err := New(opts)
	if err != nil {
		return nil, nil, err
	}
	std := logrus.StandardLogger()
	std.SetOutput(log.Out)
	std.SetLevel(log.GetLevel())
	std.SetFormatter(log.Formatter)
	return log, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
