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
	"github.com/prometheus/client_golang/prometheus"
)

var (
	pendingMessages = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "shardgrep",
			Subsystem: "actor",
			Name:      "pending_messages",
			Help:      "The number of messages waiting in actor mailboxes.",
		}, []string{"name"})
	processedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shardgrep",
			Subsystem: "actor",
			Name:      "processed_messages_total",
			Help:      "Total number of messages handed to processors.",
		}, []string{"name"})
	drainTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shardgrep",
			Subsystem: "actor",
			Name:      "drain_tasks_total",
			Help:      "Total number of drain tasks submitted to the worker pool.",
		}, []string{"name"})
	drainBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shardgrep",
			Subsystem: "actor",
			Name:      "drain_batch_size",
			Help:      "The number of messages popped from a mailbox at once.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"name"})
)

// InitMetrics registers all metrics in this file
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(pendingMessages)
	registry.MustRegister(processedMessages)
	registry.MustRegister(drainTasks)
	registry.MustRegister(drainBatchSize)
}
