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

package syncutil

import (
	"context"
	"sync"

	"github.com/pingcap/errors"
	"go.uber.org/atomic"
)

// Cond is a condition variable whose waits can be canceled by a context.
//
// Every Broadcast replaces the current generation channel and closes the old
// one, so waiters that captured the channel while holding L never miss a
// Broadcast that happens after they released L.
type Cond struct {
	L sync.Locker

	gen atomic.Pointer[chan struct{}]
}

// NewCond creates a new Cond.
func NewCond(l sync.Locker) *Cond {
	c := &Cond{L: l}
	ch := make(chan struct{})
	c.gen.Store(&ch)
	return c
}

// WaitWithContext atomically unlocks c.L and suspends the calling goroutine
// until the next Broadcast or until ctx is done. c.L is locked again before
// it returns in both cases.
func (c *Cond) WaitWithContext(ctx context.Context) error {
	ch := *c.gen.Load()
	c.L.Unlock()
	defer c.L.Lock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
}

// WaitUntil waits until done reports true, re-checking it after every
// Broadcast. It must be called with c.L held, and done is evaluated with c.L
// held.
func (c *Cond) WaitUntil(ctx context.Context, done func() bool) error {
	for !done() {
		if err := c.WaitWithContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Broadcast wakes up all the waiters. It does not require c.L to be held.
func (c *Cond) Broadcast() {
	ch := make(chan struct{})
	old := c.gen.Swap(&ch)
	close(*old)
}
