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

package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueBasic(t *testing.T) {
	t.Parallel()

	q := NewQueue[string]()
	require.True(t, q.Empty())
	require.Equal(t, 0, q.Len())

	_, ok := q.Pop()
	require.False(t, ok)

	q.Push("a")
	q.Push("b")
	q.Push("c")
	require.Equal(t, 3, q.Len())
	require.False(t, q.Empty())

	for _, expected := range []string{"a", "b", "c"} {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, expected, v)
	}
	require.True(t, q.Empty())
}

func TestQueuePopMany(t *testing.T) {
	t.Parallel()

	q := NewQueue[int]()
	for i := 0; i < 10; i++ {
		q.Push(i)
	}

	buf := q.PopMany(4, nil)
	require.Equal(t, []int{0, 1, 2, 3}, buf)
	require.Equal(t, 6, q.Len())

	buf = q.PopMany(100, buf[:0])
	require.Equal(t, []int{4, 5, 6, 7, 8, 9}, buf)
	require.True(t, q.Empty())

	buf = q.PopMany(3, buf[:0])
	require.Empty(t, buf)
}

func TestQueueManyElements(t *testing.T) {
	t.Parallel()

	const n = 100000
	q := NewQueue[int]()
	for i := 0; i < n; i++ {
		q.Push(i)
		if i%3 == 0 {
			v, ok := q.Pop()
			require.True(t, ok)
			require.Equal(t, i/3, v)
		}
	}
	expected := (n + 2) / 3
	for !q.Empty() {
		v, _ := q.Pop()
		require.Equal(t, expected, v)
		expected++
	}
	require.Equal(t, n, expected)
}

func TestQueueNilInterface(t *testing.T) {
	t.Parallel()

	q := NewQueue[error]()
	q.Push(nil)
	v, ok := q.Pop()
	require.True(t, ok)
	require.Nil(t, v)
}
