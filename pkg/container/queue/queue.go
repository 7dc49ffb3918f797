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
	"github.com/edwingeng/deque"
)

// Queue is a generic unbounded FIFO backed by edwingeng/deque.
// Attention, it's not thread-safe. Callers guard it with their own lock.
type Queue[T any] struct {
	deque deque.Deque
}

// NewQueue creates a new, empty Queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		deque: deque.NewDeque(),
	}
}

// Push appends an element to the tail of the queue.
func (q *Queue[T]) Push(elem T) {
	q.deque.PushBack(elem)
}

// Pop removes and returns the head of the queue.
// The second return value is false if the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	if q.deque.Empty() {
		var noVal T
		return noVal, false
	}
	return cast[T](q.deque.PopFront()), true
}

// PopMany removes up to max elements from the head of the queue and appends
// them to buf in FIFO order. It returns the extended buf.
func (q *Queue[T]) PopMany(max int, buf []T) []T {
	for i := 0; i < max && !q.deque.Empty(); i++ {
		buf = append(buf, cast[T](q.deque.PopFront()))
	}
	return buf
}

// Len returns the number of elements in the queue.
func (q *Queue[T]) Len() int {
	return q.deque.Len()
}

// Empty indicates whether the queue is empty.
func (q *Queue[T]) Empty() bool {
	return q.deque.Empty()
}

// cast converts a stored element back to T. A nil interface value, which is
// what a pushed nil of an interface type T comes back as, maps to the zero T.
func cast[T any](elem deque.Elem) T {
	v, _ := elem.(T)
	return v
}
