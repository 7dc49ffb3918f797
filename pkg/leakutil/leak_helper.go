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

package leakutil

import (
	"testing"

	"go.uber.org/goleak"
)

// defaultOpts is the default ignore list for goleak.
var defaultOpts = []goleak.Option{
	// pingcap/log keeps a lumberjack mill goroutine once a log file is opened.
	goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
}

// VerifyNone verifies that no unexpected leaks occur
// Note that this function is incompatible with `t.Parallel()`
func VerifyNone(t goleak.TestingT, options ...goleak.Option) {
	options2 := append(options, defaultOpts...)
	goleak.VerifyNone(t, options2...)
}

// SetUpLeakTest verifies that no goroutine outlives the tests of a package.
func SetUpLeakTest(m *testing.M, options ...goleak.Option) {
	options2 := append(options, defaultOpts...)
	goleak.VerifyTestMain(m, options2...)
}
