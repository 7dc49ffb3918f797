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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInitLoggerAndSetLogLevel(t *testing.T) {
	f := filepath.Join(t.TempDir(), "test")
	cfg := &Config{
		Level: "warning",
		File:  f,
	}
	cfg.Adjust()
	err := InitLogger(cfg)
	require.NoError(t, err)
	require.Equal(t, zapcore.WarnLevel, log.GetLevel())

	// Set a different level.
	err = SetLogLevel("info")
	require.NoError(t, err)
	require.Equal(t, zapcore.InfoLevel, log.GetLevel())

	// Set the same level.
	err = SetLogLevel("info")
	require.NoError(t, err)
	require.Equal(t, zapcore.InfoLevel, log.GetLevel())

	// Set an invalid level.
	err = SetLogLevel("badlevel")
	require.Error(t, err)

	log.Info("written to file")
	_ = log.Sync()
	content, err := os.ReadFile(f)
	require.NoError(t, err)
	require.Contains(t, string(content), "written to file")
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(&Config{Level: "loud"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid log level")
}

func TestInitLoggerWithOutput(t *testing.T) {
	out := &syncBuffer{}
	cfg := &Config{Level: "info"}
	cfg.Adjust()
	require.NoError(t, InitLogger(cfg, WithOutputWriteSyncer(out)))

	log.Debug("hidden line")
	log.Info("visible line", zap.Int("shard", 3))
	require.NotContains(t, out.String(), "hidden line")
	require.Contains(t, out.String(), "visible line")
	require.Contains(t, out.String(), "[shard=3]")
}

func TestAdjust(t *testing.T) {
	cfg := &Config{}
	cfg.Adjust()
	require.Equal(t, defaultLogLevel, cfg.Level)
	require.Equal(t, defaultLogMaxSize, cfg.FileMaxSize)
	require.Equal(t, defaultLogMaxDays, cfg.FileMaxDays)

	cfg = &Config{Level: "debug", FileMaxSize: 1, FileMaxDays: 2}
	cfg.Adjust()
	require.Equal(t, "debug", cfg.Level)
	require.Equal(t, 1, cfg.FileMaxSize)
	require.Equal(t, 2, cfg.FileMaxDays)
}

func TestZapErrorFilter(t *testing.T) {
	var (
		err       = errors.New("test error")
		testCases = []struct {
			err      error
			filters  []error
			expected zap.Field
		}{
			{nil, []error{}, zap.Error(nil)},
			{err, []error{}, zap.Error(err)},
			{err, []error{context.Canceled}, zap.Error(err)},
			{err, []error{err}, zap.Error(nil)},
			{context.Canceled, []error{context.Canceled}, zap.Error(nil)},
			{errors.Annotate(context.Canceled, "annotate error"), []error{context.Canceled}, zap.Error(nil)},
		}
	)
	for _, tc := range testCases {
		require.Equal(t, tc.expected, ZapErrorFilter(tc.err, tc.filters...))
	}
}

func TestShortError(t *testing.T) {
	require.Equal(t, zap.Skip(), ShortError(nil))
	err := errors.New("short")
	require.Equal(t, zap.String("error", "short"), ShortError(errors.Trace(err)))
}
