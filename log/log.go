/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package log wraps apex/log with a single-line handler suitable for both
// Lambda (CloudWatch) and terminal output. The level is taken from the
// PRESSBOX_LOG environment variable; unset means "info".
package log

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
)

// Init sets up apex with the custom handler and a log level from the
// PRESSBOX_LOG env variable. Safe to call more than once; the last call wins.
func Init() {
	envLevel := strings.ToLower(os.Getenv("PRESSBOX_LOG"))
	if envLevel == "" {
		envLevel = "info"
	}
	var apexLevel log.Level
	switch envLevel {
	case "debug":
		apexLevel = log.DebugLevel
	case "info":
		apexLevel = log.InfoLevel
	case "warn":
		apexLevel = log.WarnLevel
	case "error":
		apexLevel = log.ErrorLevel
	case "fatal":
		apexLevel = log.FatalLevel
	default:
		apexLevel = log.InfoLevel
	}
	log.SetHandler(&LineHandler{})
	log.SetLevel(apexLevel)
}

// LineHandler formats entries as "timestamp LEVEL message k=v ..." on stdout.
// CloudWatch keeps its own ingest timestamp, but having one in the line makes
// local runs and log exports self-describing.
type LineHandler struct{}

// HandleLog implements the log.Handler interface.
func (h *LineHandler) HandleLog(e *log.Entry) error {
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05")
	level := "?"
	switch e.Level {
	case log.DebugLevel:
		level = "D"
	case log.InfoLevel:
		level = "I"
	case log.WarnLevel:
		level = "W"
	case log.ErrorLevel:
		level = "E"
	case log.FatalLevel:
		level = "F"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", timestamp, level, e.Message)

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
		}
	}

	fmt.Fprintln(os.Stdout, b.String())
	return nil
}

// Debugf logs at Debug level.
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Debug logs at Debug level.
func Debug(msg string) {
	log.Debug(msg)
}

// Infof logs at Info level.
func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warnf logs at Warn level.
func Warnf(format string, args ...interface{}) {
	log.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs at Error level.
func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// WithError returns an entry with the error attached.
func WithError(err error) *log.Entry {
	return log.WithError(err)
}

// WithField returns an entry with a single field attached.
func WithField(key string, value interface{}) *log.Entry {
	return log.WithField(key, value)
}

// WithFields returns an entry carrying the given fields.
func WithFields(fields map[string]interface{}) *log.Entry {
	return log.WithFields(log.Fields(fields))
}
