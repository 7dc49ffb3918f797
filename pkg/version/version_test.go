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

package version

import (
	"bytes"
	"sync"
	"testing"

	"github.com/pingcap/log"
	"github.com/pingcap/shardgrep/pkg/logutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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

func TestRemoveVAndHash(t *testing.T) {
	t.Parallel()

	cases := []struct {
		version  string
		expected string
	}{
		{"", ""},
		{"v1.0.0", "1.0.0"},
		{"v1.2.0-rc.1-12-g4d1a2b3c", "1.2.0-rc.1"},
		{"v1.2.0-12-g4d1a2b3c-dev", "1.2.0"},
		{"v1.2.0-dirty", "1.2.0"},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, removeVAndHash(c.version), c.version)
	}
}

func TestReleaseSemver(t *testing.T) {
	origin := ReleaseVersion
	defer func() { ReleaseVersion = origin }()

	ReleaseVersion = "None"
	require.Equal(t, "", ReleaseSemver())
	ReleaseVersion = "v0.3.1-5-gabcdef01"
	require.Equal(t, "0.3.1", ReleaseSemver())
}

func TestGetRawInfo(t *testing.T) {
	info := GetRawInfo()
	require.Contains(t, info, "Release Version: "+ReleaseVersion)
	require.Contains(t, info, "Git Commit Hash: "+GitHash)
	require.Contains(t, info, "Go Version: "+GoVersion)
}

func TestLogVersionInfo(t *testing.T) {
	origin := ReleaseVersion
	defer func() { ReleaseVersion = origin }()
	ReleaseVersion = "v2.0.1"

	lg, props := log.L(), log.P()
	defer log.ReplaceGlobals(lg, props)
	out := &syncBuffer{}
	require.NoError(t, logutil.InitLogger(&logutil.Config{Level: "info"}, logutil.WithOutputWriteSyncer(out)))

	LogVersionInfo(zap.Int("workers", 3))
	require.Contains(t, out.String(), "Welcome to shardgrep")
	require.Contains(t, out.String(), "[release-version=v2.0.1]")
	require.Contains(t, out.String(), "[release-semver=2.0.1]")
	require.Contains(t, out.String(), "[workers=3]")
}
