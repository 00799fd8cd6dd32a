// Copyright 2021 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log is the logging facade used by every fvtools package.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger describes a logger to be used in fvtools.
type Logger interface {
	// Debugf logs a debug message.
	Debugf(format string, args ...interface{})

	// Infof logs an informational message.
	Infof(format string, args ...interface{})

	// Warnf logs an warning message.
	Warnf(format string, args ...interface{})

	// Errorf logs an error message.
	Errorf(format string, args ...interface{})

	// Fatalf logs a fatal message and immediately exits the application
	// with os.Exit.
	Fatalf(format string, args ...interface{})
}

// DefaultLogger is the logger used by default everywhere within fvtools.
var DefaultLogger Logger

var backend = logrus.New()

func init() {
	backend.SetOutput(os.Stderr)
	backend.SetLevel(logrus.WarnLevel)
	backend.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	DefaultLogger = logrus.NewEntry(backend).WithField("component", "fvtools")
}

// SetComponent tags every following message with the given tool name.
func SetComponent(name string) {
	DefaultLogger = logrus.NewEntry(backend).WithField("component", name)
}

// SetVerbosity maps the quiet/verbose/debug switches of the command line
// tools onto a log level. Debug levels above 5 enable trace output.
func SetVerbosity(quiet, verbose bool, debugLevel int) {
	switch {
	case debugLevel > 5:
		backend.SetLevel(logrus.TraceLevel)
	case debugLevel > 0:
		backend.SetLevel(logrus.DebugLevel)
	case verbose:
		backend.SetLevel(logrus.InfoLevel)
	case quiet:
		backend.SetLevel(logrus.ErrorLevel)
	default:
		backend.SetLevel(logrus.WarnLevel)
	}
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) {
	DefaultLogger.Debugf(format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...interface{}) {
	DefaultLogger.Infof(format, args...)
}

// Warnf logs an warning message.
func Warnf(format string, args ...interface{}) {
	DefaultLogger.Warnf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	DefaultLogger.Errorf(format, args...)
}

// Fatalf logs a fatal message and immediately exits the application
// with os.Exit (which is expected to be called by the DefaultLogger.Fatalf).
func Fatalf(format string, args ...interface{}) {
	DefaultLogger.Fatalf(format, args...)
}
