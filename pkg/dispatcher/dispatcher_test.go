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
	"sync"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/shardgrep/pkg/actor"
	"github.com/pingcap/shardgrep/pkg/leakutil"
	"github.com/pingcap/shardgrep/pkg/workerpool"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	leakutil.SetUpLeakTest(m)
}

func startPool(t *testing.T, numWorkers int) workerpool.AsyncPool {
	pool := workerpool.NewDefaultAsyncPool(t.Name(), numWorkers)
	ctx, cancel := context.WithCancel(context.Background())
	errg := errgroup.Group{}
	errg.Go(func() error {
		return pool.Run(ctx)
	})
	t.Cleanup(func() {
		cancel()
		require.Equal(t, context.Canceled, errors.Cause(errg.Wait()))
	})
	return pool
}

type record[T any] struct {
	item  T
	shard int
	ts    time.Time
}

// journal collects records from every shard.
type journal[T any] struct {
	mu      sync.Mutex
	records []record[T]
}

func (j *journal[T]) processor(shard int) actor.Processor[T] {
	return actor.ProcessorFunc[T](func(item T) {
		j.mu.Lock()
		defer j.mu.Unlock()
		j.records = append(j.records, record[T]{item: item, shard: shard, ts: time.Now()})
	})
}

func (j *journal[T]) byShard(numShards int) [][]T {
	j.mu.Lock()
	defer j.mu.Unlock()
	shards := make([][]T, numShards)
	for _, r := range j.records {
		shards[r.shard] = append(shards[r.shard], r.item)
	}
	return shards
}

func newRecordedDispatcher[T any](
	t *testing.T, numShards int, pool workerpool.AsyncPool, opts ...actor.Option,
) (*Dispatcher[T], *journal[T]) {
	j := &journal[T]{}
	actors := make([]*actor.Actor[T], 0, numShards)
	for i := 0; i < numShards; i++ {
		actors = append(actors, actor.NewActor[T](actor.ID(i), j.processor(i), pool, opts...))
	}
	return New(t.Name(), actors), j
}

func shutdown[T any](t *testing.T, d *Dispatcher[T]) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))
}

func TestEndToEnd(t *testing.T) {
	pool := startPool(t, 2)
	d, j := newRecordedDispatcher[string](t, 3, pool)
	require.Equal(t, 3, d.Len())

	ctx := context.Background()
	for _, item := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, d.Submit(ctx, item))
	}
	shutdown(t, d)

	require.Equal(t, [][]string{{"a", "d"}, {"b", "e"}, {"c"}}, j.byShard(3))

	j.mu.Lock()
	defer j.mu.Unlock()
	require.Len(t, j.records, 5)
	seen := make(map[string]time.Time)
	for _, r := range j.records {
		_, dup := seen[r.item]
		require.False(t, dup)
		seen[r.item] = r.ts
	}
	require.False(t, seen["d"].Before(seen["a"]))
	require.False(t, seen["e"].Before(seen["b"]))
}

func TestRoundRobinFairness(t *testing.T) {
	pool := startPool(t, 4)

	for _, tc := range []struct {
		items  int
		shards int
	}{
		{0, 1}, {1, 1}, {10, 1}, {1, 4}, {7, 3}, {100, 7}, {1000, 16},
	} {
		d, j := newRecordedDispatcher[int](t, tc.shards, pool)
		for i := 0; i < tc.items; i++ {
			require.NoError(t, d.Submit(context.Background(), i))
		}
		shutdown(t, d)

		shards := j.byShard(tc.shards)
		for i, items := range shards {
			// Shard i receives ceil((N-i)/S) items.
			expected := 0
			if tc.items > i {
				expected = (tc.items - i + tc.shards - 1) / tc.shards
			}
			require.Len(t, items, expected, "items %d shards %d shard %d", tc.items, tc.shards, i)
			for k, item := range items {
				require.Equal(t, i+k*tc.shards, item)
			}
		}
	}
}

func TestConcurrentProducers(t *testing.T) {
	pool := startPool(t, 4)
	const (
		numShards    = 5
		numProducers = 8
		perProducer  = 1000
	)
	d, j := newRecordedDispatcher[int](t, numShards, pool)

	var wg sync.WaitGroup
	for p := 0; p < numProducers; p++ {
		wg.Add(1)
		base := p * perProducer
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := d.Submit(context.Background(), base+i); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()
	shutdown(t, d)

	total := numProducers * perProducer
	seen := make(map[int]struct{}, total)
	for i, items := range j.byShard(numShards) {
		// The cursor is shared, so the counts stay exact under concurrency.
		require.Len(t, items, (total-i+numShards-1)/numShards)
		last := make(map[int]int)
		for _, item := range items {
			_, dup := seen[item]
			require.False(t, dup)
			seen[item] = struct{}{}
			producer := item / perProducer
			if prev, ok := last[producer]; ok {
				require.Less(t, prev, item)
			}
			last[producer] = item
		}
	}
	require.Len(t, seen, total)
}

func TestBoundedShardsApplyBackpressure(t *testing.T) {
	pool := startPool(t, 2)
	d, j := newRecordedDispatcher[int](t, 2, pool, actor.WithCapacity(1), actor.WithBatchSize(1))

	for i := 0; i < 500; i++ {
		require.NoError(t, d.Submit(context.Background(), i))
	}
	shutdown(t, d)

	shards := j.byShard(2)
	require.Len(t, shards[0], 250)
	require.Len(t, shards[1], 250)
}

func TestStats(t *testing.T) {
	// The pool is not started, so messages stay in the mailboxes.
	pool := workerpool.NewDefaultAsyncPool(t.Name(), 1)
	d := NewDispatcher[int](t.Name(), 3, actor.ProcessorFunc[int](func(int) {}), pool)
	for i := 0; i < 7; i++ {
		require.NoError(t, d.Submit(context.Background(), i))
	}

	stats := d.Stats()
	require.Equal(t, t.Name(), stats.Name)
	require.Equal(t, 3, stats.Shards)
	require.Equal(t, uint64(7), stats.Submitted)
	require.Equal(t, []int{3, 2, 2}, stats.Pending)
	require.Equal(t, actor.ID(1), d.Actor(1).ID())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Shutdown(ctx)
	require.Equal(t, context.DeadlineExceeded, errors.Cause(err))
}

func TestNewWithoutActorsPanics(t *testing.T) {
	require.Panics(t, func() {
		New[int](t.Name(), nil)
	})
}
