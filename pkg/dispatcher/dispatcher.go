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

package dispatcher

import (
	"context"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/shardgrep/pkg/actor"
	"github.com/pingcap/shardgrep/pkg/workerpool"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const progressLogInterval = 10 * time.Second

// Dispatcher fans items out to a fixed set of actors in round-robin order.
//
// Items sent to the same actor are processed in submission order, items sent
// to different actors are not ordered relative to each other.
// Submit is safe for concurrent use: the actor is chosen by a single atomic
// increment of the cursor.
type Dispatcher[T any] struct {
	name   string
	actors []*actor.Actor[T]
	next   atomic.Uint64

	progressLimiter *rate.Limiter
}

// New creates a Dispatcher over the given actors. The actor at index i
// receives items i, i+N, i+2N and so on.
func New[T any](name string, actors []*actor.Actor[T]) *Dispatcher[T] {
	if len(actors) == 0 {
		log.Panic("dispatcher needs at least one actor", zap.String("name", name))
	}
	return &Dispatcher[T]{
		name:            name,
		actors:          actors,
		progressLimiter: rate.NewLimiter(rate.Every(progressLogInterval), 1),
	}
}

// NewDispatcher creates numShards actors that share proc and pool, and a
// Dispatcher over them.
func NewDispatcher[T any](
	name string,
	numShards int,
	proc actor.Processor[T],
	pool workerpool.AsyncPool,
	opts ...actor.Option,
) *Dispatcher[T] {
	opts = append([]actor.Option{actor.WithName(name)}, opts...)
	actors := make([]*actor.Actor[T], 0, numShards)
	for i := 0; i < numShards; i++ {
		actors = append(actors, actor.NewActor[T](actor.ID(i), proc, pool, opts...))
	}
	return New(name, actors)
}

// Submit hands item to the next actor. It only blocks when the actors have
// bounded mailboxes and the chosen one is full.
func (d *Dispatcher[T]) Submit(ctx context.Context, item T) error {
	seq := d.next.Inc() - 1
	a := d.actors[seq%uint64(len(d.actors))]
	if err := a.SendB(ctx, item); err != nil {
		return errors.Trace(err)
	}

	if d.progressLimiter.Allow() {
		log.Info("dispatching items",
			zap.String("name", d.name), zap.Uint64("submitted", seq+1))
	}
	return nil
}

// Shutdown waits for every actor to drain, in index order. Producers must
// stop calling Submit before calling Shutdown.
func (d *Dispatcher[T]) Shutdown(ctx context.Context) error {
	start := time.Now()
	for _, a := range d.actors {
		if err := a.Complete(ctx); err != nil {
			return errors.Annotatef(err, "wait actor %d", a.ID())
		}
	}
	log.Info("dispatcher drained",
		zap.String("name", d.name),
		zap.Int("shards", len(d.actors)),
		zap.Uint64("submitted", d.next.Load()),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Len returns the number of actors.
func (d *Dispatcher[T]) Len() int {
	return len(d.actors)
}

// Actor returns the actor at index i.
func (d *Dispatcher[T]) Actor(i int) *actor.Actor[T] {
	return d.actors[i]
}

// Stats is a snapshot of a Dispatcher.
type Stats struct {
	Name      string `json:"name"`
	Shards    int    `json:"shards"`
	Submitted uint64 `json:"submitted"`
	// Pending is the number of messages waiting in each actor's mailbox.
	Pending []int `json:"pending"`
}

// Stats returns a snapshot of the dispatcher. Mailbox lengths are read one
// actor at a time, so they are not a consistent cut.
func (d *Dispatcher[T]) Stats() Stats {
	pending := make([]int, 0, len(d.actors))
	for _, a := range d.actors {
		pending = append(pending, a.Len())
	}
	return Stats{
		Name:      d.name,
		Shards:    len(d.actors),
		Submitted: d.next.Load(),
		Pending:   pending,
	}
}
