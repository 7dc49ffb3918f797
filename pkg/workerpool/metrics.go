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
	"github.com/prometheus/client_golang/prometheus"
)

var (
	totalWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "shardgrep",
			Subsystem: "workerpool",
			Name:      "number_of_workers",
			Help:      "The total number of workers in an async pool.",
		}, []string{"name"})
	workingWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "shardgrep",
			Subsystem: "workerpool",
			Name:      "number_of_working_workers",
			Help:      "The number of workers that are running a task.",
		}, []string{"name"})
	workingDuration = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shardgrep",
			Subsystem: "workerpool",
			Name:      "workers_cpu_seconds_total",
			Help:      "Total working time spent in seconds.",
		}, []string{"name"})
	pendingTasks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "shardgrep",
			Subsystem: "workerpool",
			Name:      "pending_tasks",
			Help:      "The number of submitted tasks waiting for a free worker.",
		}, []string{"name"})
	submittedTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shardgrep",
			Subsystem: "workerpool",
			Name:      "submitted_tasks_total",
			Help:      "Total number of tasks submitted to an async pool.",
		}, []string{"name"})
)

// InitMetrics registers all metrics in this file
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(totalWorkers)
	registry.MustRegister(workingWorkers)
	registry.MustRegister(workingDuration)
	registry.MustRegister(pendingTasks)
	registry.MustRegister(submittedTasks)
}
