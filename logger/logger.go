/*
 * Copyright (c) 2024 openFDA Labs
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */
// Note: The implementation comes from https://www.mountedthoughts.com/golang-logger-interface/
// https://github.com/amitrai48/logger

// Package logger defines the logging abstraction used across the connector.
// The sync loop never logs through a global logger; an implementation of
// Logger is injected via the configuration so applications keep full control
// over formatting, destinations and levels, and tests can capture output.
package logger

import (
	"github.com/sirupsen/logrus"
)

// Log levels usable in Configuration.
const (
	Debug = "debug"
	Info  = "info"
	Warn  = "warn"
	Error = "error"
	Fatal = "fatal"
)

// Fields is used to pass structured context to WithFields.
type Fields map[string]interface{}

// Logger is the contract for the logger implementations.
type Logger interface {
	Debugf(format string, args ...interface{})

	Infof(format string, args ...interface{})

	Warnf(format string, args ...interface{})

	Errorf(format string, args ...interface{})

	Fatalf(format string, args ...interface{})

	Panicf(format string, args ...interface{})

	WithFields(keyValues Fields) Logger
}

// Configuration stores the config for the logger.
// For some loggers there can only be one level across writers, for such
// the level of Console is picked by default.
type Configuration struct {
	EnableConsole     bool
	ConsoleJSONFormat bool
	ConsoleLevel      string
	EnableFile        bool
	FileJSONFormat    bool
	FileLevel         string
	Filename          string

	// Log rotation parameters, only used when EnableFile is set.
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	LocalTime  bool
}

// GetDefaultLogger returns a Logger instance backed by the standard logrus
// logger at info level. It is used whenever the application does not provide
// its own logger.
func GetDefaultLogger() Logger {
	return NewLogrusLogger(logrus.StandardLogger())
}

// normalizeConfig fills in sane rotation defaults.
func normalizeConfig(config *Configuration) {
	if config.MaxSizeMB <= 0 {
		config.MaxSizeMB = 100
	}

	if config.MaxAgeDays <= 0 {
		config.MaxAgeDays = 7
	}

	if config.MaxBackups < 0 {
		config.MaxBackups = 0
	}
}
