// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"os"
	"strings"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultLogLevel = "warn"
	// defaultLogMaxDays is the default maximum number of days to retain a
	// rotated log file.
	defaultLogMaxDays = 7
	// defaultLogMaxSize is the default maximum size in MB of a log file.
	defaultLogMaxSize = 300
)

// Config serializes log related config in toml/json.
type Config struct {
	// Log level.
	Level string `toml:"level" json:"level"`
	// Log filename, leave empty to write to stderr.
	File string `toml:"file" json:"file"`
	// Max size for a single file, in MB.
	FileMaxSize int `toml:"max-size" json:"max-size"`
	// Max log keep days, default is never deleting.
	FileMaxDays int `toml:"max-days" json:"max-days"`
	// Maximum number of old log files to retain.
	FileMaxBackups int `toml:"max-backups" json:"max-backups"`
}

// Adjust adjusts config
func (cfg *Config) Adjust() {
	if len(cfg.Level) == 0 {
		cfg.Level = defaultLogLevel
	}
	if cfg.FileMaxSize == 0 {
		cfg.FileMaxSize = defaultLogMaxSize
	}
	if cfg.FileMaxDays == 0 {
		cfg.FileMaxDays = defaultLogMaxDays
	}
}

type loggerOp struct {
	output zapcore.WriteSyncer
}

// LoggerOpt is the logger option
type LoggerOpt func(*loggerOp)

// WithOutputWriteSyncer overrides the default output of the logger.
// It is mostly used by tests to capture log lines.
func WithOutputWriteSyncer(output zapcore.WriteSyncer) LoggerOpt {
	return func(op *loggerOp) {
		op.output = output
	}
}

// InitLogger initializes logger.
//
// Standard output is reserved for results, so when no log file is
// configured the logger writes to standard error.
func InitLogger(cfg *Config, opts ...LoggerOpt) error {
	var op loggerOp
	for _, opt := range opts {
		opt(&op)
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return errors.Trace(err)
	}

	pclogConfig := &log.Config{
		Level: level.String(),
		File: log.FileLogConfig{
			Filename:   cfg.File,
			MaxSize:    cfg.FileMaxSize,
			MaxDays:    cfg.FileMaxDays,
			MaxBackups: cfg.FileMaxBackups,
		},
	}

	var lg *zap.Logger
	var props *log.ZapProperties
	switch {
	case op.output != nil:
		lg, props, err = log.InitLoggerWithWriteSyncer(pclogConfig, op.output, op.output)
	case cfg.File == "":
		stderr := zapcore.Lock(os.Stderr)
		lg, props, err = log.InitLoggerWithWriteSyncer(pclogConfig, stderr, stderr)
	default:
		lg, props, err = log.InitLogger(pclogConfig)
	}
	if err != nil {
		return errors.Trace(err)
	}
	log.ReplaceGlobals(lg, props)
	log.SetLevel(level)
	return nil
}

// SetLogLevel changes the global log level dynamically.
func SetLogLevel(level string) error {
	l, err := parseLevel(level)
	if err != nil {
		return errors.Trace(err)
	}
	if l == log.GetLevel() {
		return nil
	}
	log.Warn("log level changed", zap.Stringer("from", log.GetLevel()), zap.Stringer("to", l))
	log.SetLevel(l)
	return nil
}

func parseLevel(level string) (zapcore.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return l, errors.Annotatef(err, "invalid log level %q", level)
	}
	return l, nil
}

// ShortError contructs a field which only records the error message without the
// verbose text (i.e. excludes the stack trace).
func ShortError(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", err.Error())
}

// ZapErrorFilter wraps zap.Error, if err is in given filterErrors, it will be set to nil
func ZapErrorFilter(err error, filterErrors ...error) zap.Field {
	cause := errors.Cause(err)
	for _, ferr := range filterErrors {
		if cause == ferr {
			return zap.Error(nil)
		}
	}
	return zap.Error(err)
}
