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

import (
	"context"
	"sync"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/shardgrep/pkg/container/queue"
	cerrors "github.com/pingcap/shardgrep/pkg/errors"
	"github.com/pingcap/shardgrep/pkg/logutil"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type defaultAsyncPoolImpl struct {
	name       string
	numWorkers int

	mu    sync.Mutex
	tasks *queue.Queue[*asyncTask]
	// isExited is set once Run returns, under mu.
	isExited bool

	// notify holds at most one token per worker. Go adds a token after every
	// push, an idle worker takes one token and pops until the queue is empty.
	notify chan struct{}
	// wakeups counts idle workers woken up by notify.
	wakeups atomic.Int64

	isRunning atomic.Bool

	metricWorkingWorkers  prometheus.Gauge
	metricWorkingDuration prometheus.Counter
	metricPendingTasks    prometheus.Gauge
	metricSubmittedTasks  prometheus.Counter
}

// NewDefaultAsyncPool creates a new AsyncPool that uses the default implementation.
// name labels the pool's metrics and logs.
func NewDefaultAsyncPool(name string, numWorkers int) AsyncPool {
	return newDefaultAsyncPoolImpl(name, numWorkers)
}

func newDefaultAsyncPoolImpl(name string, numWorkers int) *defaultAsyncPoolImpl {
	if numWorkers <= 0 {
		log.Panic("the number of workers must be positive",
			zap.String("name", name), zap.Int("numWorkers", numWorkers))
	}
	p := &defaultAsyncPoolImpl{
		name:       name,
		numWorkers: numWorkers,
		tasks:      queue.NewQueue[*asyncTask](),
		notify:     make(chan struct{}, numWorkers),

		metricWorkingWorkers:  workingWorkers.WithLabelValues(name),
		metricWorkingDuration: workingDuration.WithLabelValues(name),
		metricPendingTasks:    pendingTasks.WithLabelValues(name),
		metricSubmittedTasks:  submittedTasks.WithLabelValues(name),
	}
	return p
}

type asyncTask struct {
	f func()
}

func (p *defaultAsyncPoolImpl) Go(f func()) error {
	p.mu.Lock()
	if p.isExited {
		p.mu.Unlock()
		return cerrors.ErrAsyncPoolExited.GenWithStackByArgs()
	}
	p.tasks.Push(&asyncTask{f: f})
	p.mu.Unlock()

	p.metricPendingTasks.Inc()
	p.metricSubmittedTasks.Inc()
	// Wake up a single idle worker. When the channel is full every worker
	// already has a pending token and will pop the task.
	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

func (p *defaultAsyncPoolImpl) Run(ctx context.Context) error {
	if !p.isRunning.CompareAndSwap(false, true) {
		log.Panic("async pool is run more than once", zap.String("name", p.name))
	}

	totalWorkers.WithLabelValues(p.name).Set(float64(p.numWorkers))
	defer totalWorkers.WithLabelValues(p.name).Set(0)
	log.Info("async pool started",
		zap.String("name", p.name), zap.Int("numWorkers", p.numWorkers))

	errg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.numWorkers; i++ {
		errg.Go(func() error {
			return p.runWorker(ctx)
		})
	}
	err := errg.Wait()

	dropped := p.exit()
	log.Info("async pool exited",
		zap.String("name", p.name),
		zap.Int("droppedTasks", dropped),
		zap.Int64("wakeups", p.wakeups.Load()),
		logutil.ZapErrorFilter(err, context.Canceled))
	return errors.Trace(err)
}

func (p *defaultAsyncPoolImpl) runWorker(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}

		p.mu.Lock()
		task, ok := p.tasks.Pop()
		p.mu.Unlock()
		if !ok {
			select {
			case <-ctx.Done():
				return errors.Trace(ctx.Err())
			case <-p.notify:
				p.wakeups.Inc()
			}
			continue
		}
		p.metricPendingTasks.Dec()

		p.runTask(task)
	}
}

func (p *defaultAsyncPoolImpl) runTask(task *asyncTask) {
	start := time.Now()
	p.metricWorkingWorkers.Inc()
	defer func() {
		p.metricWorkingWorkers.Dec()
		p.metricWorkingDuration.Add(time.Since(start).Seconds())
	}()
	task.f()
}

// exit rejects any further task and drops the ones that were never picked up.
func (p *defaultAsyncPoolImpl) exit() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.isExited = true
	dropped := p.tasks.Len()
	for !p.tasks.Empty() {
		p.tasks.Pop()
	}
	p.metricPendingTasks.Sub(float64(dropped))
	return dropped
}
