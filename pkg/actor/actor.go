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

package actor

import (
	"context"
	"sync"

	"github.com/pingcap/log"
	"github.com/pingcap/shardgrep/pkg/container/queue"
	cerrors "github.com/pingcap/shardgrep/pkg/errors"
	"github.com/pingcap/shardgrep/pkg/syncutil"
	"github.com/pingcap/shardgrep/pkg/workerpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var errMailboxFull = cerrors.ErrMailboxFull.FastGenByArgs()

const (
	// DefaultBatchSize is the max number of messages a drain task pops from
	// the mailbox each time it takes the lock.
	DefaultBatchSize = 64
	defaultName      = "default"
)

// ID is ID for actors.
type ID uint64

// Processor handles the messages of an actor.
//
// Process is never called concurrently for the same actor, but it is called
// concurrently for different actors that share a Processor, so a shared
// Processor must be safe for concurrent use.
// Process owns its failures: the actor neither inspects nor retries them.
type Processor[T any] interface {
	Process(msg T)
}

// ProcessorFunc adapts an ordinary function to a Processor.
type ProcessorFunc[T any] func(msg T)

// Process calls f(msg).
func (f ProcessorFunc[T]) Process(msg T) {
	f(msg)
}

type options struct {
	name      string
	capacity  int
	batchSize int
}

// Option configures an Actor.
type Option func(*options)

// WithName sets the name that labels the actor's metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithCapacity bounds the mailbox to n messages. Zero or a negative n means
// unbounded, which is the default.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.capacity = n
	}
}

// WithBatchSize sets the max number of messages popped per lock acquisition.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// Actor is a single-queue mailbox. Messages sent to it are handed to its
// Processor one at a time, in the order they were sent, by a drain task that
// runs on the shared pool.
//
// An actor is Idle when no drain task is submitted for it, and Scheduled
// otherwise. Send moves an Idle actor to Scheduled and submits a drain task;
// the drain task moves it back to Idle once it observes an empty mailbox.
type Actor[T any] struct {
	id        ID
	proc      Processor[T]
	pool      workerpool.AsyncPool
	capacity  int
	batchSize int

	// mu protects queue and scheduled.
	mu        sync.Mutex
	cond      *syncutil.Cond
	queue     *queue.Queue[T]
	scheduled bool

	// draining counts running drain loops, it must never exceed 1.
	draining atomic.Int32
	// batch is only accessed by the running drain task.
	batch []T

	metricPendingMessages   prometheus.Gauge
	metricProcessedMessages prometheus.Counter
	metricDrainTasks        prometheus.Counter
	metricDrainBatchSize    prometheus.Observer
}

// NewActor creates an idle actor that processes its messages with proc on pool.
// proc and pool are shared and must outlive the actor.
func NewActor[T any](
	id ID, proc Processor[T], pool workerpool.AsyncPool, opts ...Option,
) *Actor[T] {
	o := &options{
		name:      defaultName,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(o)
	}

	a := &Actor[T]{
		id:        id,
		proc:      proc,
		pool:      pool,
		capacity:  o.capacity,
		batchSize: o.batchSize,
		queue:     queue.NewQueue[T](),
		batch:     make([]T, 0, o.batchSize),

		metricPendingMessages:   pendingMessages.WithLabelValues(o.name),
		metricProcessedMessages: processedMessages.WithLabelValues(o.name),
		metricDrainTasks:        drainTasks.WithLabelValues(o.name),
		metricDrainBatchSize:    drainBatchSize.WithLabelValues(o.name),
	}
	a.cond = syncutil.NewCond(&a.mu)
	return a
}

// ID returns the actor's ID.
func (a *Actor[T]) ID() ID {
	return a.id
}

// Send appends msg to the tail of the mailbox. It never blocks.
// It returns ErrMailboxFull only if the mailbox is bounded and full; sending
// to an unbounded mailbox always succeeds.
func (a *Actor[T]) Send(msg T) error {
	a.mu.Lock()
	if a.capacity > 0 && a.queue.Len() >= a.capacity {
		a.mu.Unlock()
		return errMailboxFull
	}
	needSchedule := a.pushLocked(msg)
	a.mu.Unlock()

	if needSchedule {
		a.schedule()
	}
	return nil
}

// SendB appends msg to the tail of the mailbox, blocking while a bounded
// mailbox is full. It may return context.Canceled or context.DeadlineExceeded.
func (a *Actor[T]) SendB(ctx context.Context, msg T) error {
	a.mu.Lock()
	if a.capacity > 0 {
		err := a.cond.WaitUntil(ctx, func() bool {
			return a.queue.Len() < a.capacity
		})
		if err != nil {
			a.mu.Unlock()
			return err
		}
	}
	needSchedule := a.pushLocked(msg)
	a.mu.Unlock()

	if needSchedule {
		a.schedule()
	}
	return nil
}

// pushLocked pushes msg and reports whether the caller must submit a drain
// task. It must be called with a.mu held.
func (a *Actor[T]) pushLocked(msg T) (needSchedule bool) {
	a.queue.Push(msg)
	a.metricPendingMessages.Inc()
	if a.scheduled {
		return false
	}
	a.scheduled = true
	return true
}

func (a *Actor[T]) schedule() {
	a.metricDrainTasks.Inc()
	if err := a.pool.Go(a.drain); err != nil {
		// The pool must outlive every actor that uses it.
		log.Panic("fail to schedule actor on the pool",
			zap.Uint64("id", uint64(a.id)), zap.Error(err))
	}
}

// drain processes messages until it observes an empty mailbox.
func (a *Actor[T]) drain() {
	if n := a.draining.Inc(); n != 1 {
		log.Panic("actor is drained by more than one task",
			zap.Uint64("id", uint64(a.id)), zap.Int32("tasks", n))
	}

	for {
		a.mu.Lock()
		if a.queue.Empty() {
			// Observing the empty mailbox and going idle is a single step
			// under mu, a concurrent Send either happened before it and its
			// message was popped, or happens after it and sees scheduled=false.
			a.draining.Dec()
			a.scheduled = false
			a.mu.Unlock()
			a.cond.Broadcast()
			return
		}
		a.batch = a.queue.PopMany(a.batchSize, a.batch[:0])
		a.mu.Unlock()

		n := len(a.batch)
		if a.capacity > 0 {
			// Wake up senders blocked on a full mailbox.
			a.cond.Broadcast()
		}
		a.metricPendingMessages.Sub(float64(n))
		a.metricDrainBatchSize.Observe(float64(n))

		var zero T
		for i := range a.batch {
			a.proc.Process(a.batch[i])
			a.batch[i] = zero
		}
		a.metricProcessedMessages.Add(float64(n))
	}
}

// Complete blocks until the mailbox is empty and no drain task is scheduled.
// It returns immediately if the actor is already idle. Callers must stop
// sending before they rely on the result.
// It may return context.Canceled or context.DeadlineExceeded.
func (a *Actor[T]) Complete(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.cond.WaitUntil(ctx, func() bool {
		return !a.scheduled && a.queue.Empty()
	})
}

// Len returns the number of messages waiting in the mailbox.
func (a *Actor[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.queue.Len()
}
