// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package clog adapts go-ethereum's log package discipline (§10.1): a
// structured, leveled logger over log/slog with a package-level root and
// per-component child loggers, rather than ad-hoc fmt.Printf calls.
package clog

import (
	"io"
	"log/slog"
	"os"
)

var root = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Logger is a component-scoped structured logger.
type Logger struct {
	inner *slog.Logger
}

// New returns a child logger tagged with component=name.
func New(component string) *Logger {
	return &Logger{inner: root.With("component", component)}
}

// SetOutput redirects every future New() logger's root output, primarily
// for tests that want to assert on log content.
func SetOutput(w io.Writer, level slog.Level) {
	root = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (l *Logger) Trace(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// With returns a derived logger carrying additional structured fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}
