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

package workerpool

import "context"

// AsyncPool provides a simple Goroutine pool, where the order in which jobs are run is non-deterministic.
type AsyncPool interface {
	// Go mimics the semantics of the "go" keyword. It never blocks: when all
	// workers are busy the task is queued inside the pool.
	// **All** tasks successfully submitted will be run eventually, as long as Run
	// is running. Tasks submitted before Run is called are queued and picked up
	// once it starts.
	// It returns ErrAsyncPoolExited once Run has returned.
	Go(f func()) error

	// Run runs the AsyncPool until ctx is done. It must be called only once.
	Run(ctx context.Context) error
}
