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

package config

import (
	"encoding/json"
	"runtime"

	"github.com/pingcap/errors"
	cerror "github.com/pingcap/shardgrep/pkg/errors"
)

const (
	// DefaultShardsPerWorker is the number of shards created per worker
	// when the shard count is not given explicitly.
	DefaultShardsPerWorker = 4
	// DefaultDrainBatchSize is the max number of lines a drain task pops
	// from a mailbox under one lock acquisition.
	DefaultDrainBatchSize = 64
	// DefaultOutputBufferSize is the size in bytes of the shared output buffer.
	DefaultOutputBufferSize = 8192
)

var defaultConfig = &Config{
	WorkerCount:      0,
	ShardsPerWorker:  DefaultShardsPerWorker,
	ShardCount:       0,
	MailboxCapacity:  0,
	DrainBatchSize:   DefaultDrainBatchSize,
	OutputBufferSize: DefaultOutputBufferSize,
	LogLevel:         "warn",
	Log: &LogConfig{
		File: &LogFileConfig{
			MaxSize:    300,
			MaxDays:    0,
			MaxBackups: 0,
		},
	},
	StatusAddr: "",
}

// Config represents the startup config of shardgrep.
type Config struct {
	// WorkerCount is the number of goroutines in the shared pool.
	// Zero means the number of logical CPUs.
	WorkerCount int `toml:"worker-count" json:"worker-count"`
	// ShardsPerWorker is used to derive ShardCount when it is zero.
	ShardsPerWorker int `toml:"shards-per-worker" json:"shards-per-worker"`
	// ShardCount is the number of actors lines are spread across.
	ShardCount int `toml:"shard-count" json:"shard-count"`
	// MailboxCapacity bounds each actor's mailbox. Zero means unbounded.
	MailboxCapacity int `toml:"mailbox-capacity" json:"mailbox-capacity"`
	DrainBatchSize  int `toml:"drain-batch-size" json:"drain-batch-size"`
	// OutputBufferSize is the size in bytes of the buffered stdout writer.
	OutputBufferSize int `toml:"output-buffer-size" json:"output-buffer-size"`

	LogFile  string     `toml:"log-file" json:"log-file"`
	LogLevel string     `toml:"log-level" json:"log-level"`
	Log      *LogConfig `toml:"log" json:"log"`

	// StatusAddr is the listen address of the status server, empty disables it.
	StatusAddr string `toml:"status-addr" json:"status-addr"`
}

// LogConfig represents log config for server
type LogConfig struct {
	File *LogFileConfig `toml:"file" json:"file"`
}

// LogFileConfig represents log file config for server
type LogFileConfig struct {
	MaxSize    int `toml:"max-size" json:"max-size"`
	MaxDays    int `toml:"max-days" json:"max-days"`
	MaxBackups int `toml:"max-backups" json:"max-backups"`
}

// GetDefaultConfig returns the default config.
func GetDefaultConfig() *Config {
	return defaultConfig.Clone()
}

// Clone clones the config.
func (c *Config) Clone() *Config {
	str, err := c.Marshal()
	if err != nil {
		panic(err)
	}
	cloned := new(Config)
	if err := cloned.Unmarshal([]byte(str)); err != nil {
		panic(err)
	}
	return cloned
}

// Marshal returns the json marshal format of a Config.
func (c *Config) Marshal() (string, error) {
	cfg, err := json.Marshal(c)
	if err != nil {
		return "", errors.Annotatef(err, "marshal config %v", c)
	}
	return string(cfg), nil
}

// Unmarshal unmarshals into *Config from json marshal byte slice.
func (c *Config) Unmarshal(data []byte) error {
	return errors.Trace(json.Unmarshal(data, c))
}

// ValidateAndAdjust validates and adjusts the config. Worker and shard
// counts left at zero are derived from the host.
func (c *Config) ValidateAndAdjust() error {
	if c.WorkerCount < 0 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("worker-count must not be negative")
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = runtime.NumCPU()
	}
	if c.ShardsPerWorker < 0 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("shards-per-worker must not be negative")
	}
	if c.ShardsPerWorker == 0 {
		c.ShardsPerWorker = DefaultShardsPerWorker
	}
	if c.ShardCount < 0 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("shard-count must not be negative")
	}
	if c.ShardCount == 0 {
		c.ShardCount = c.WorkerCount * c.ShardsPerWorker
	}
	if c.MailboxCapacity < 0 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("mailbox-capacity must not be negative")
	}
	if c.DrainBatchSize < 0 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("drain-batch-size must not be negative")
	}
	if c.DrainBatchSize == 0 {
		c.DrainBatchSize = DefaultDrainBatchSize
	}
	if c.OutputBufferSize < 0 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("output-buffer-size must not be negative")
	}
	if c.OutputBufferSize == 0 {
		c.OutputBufferSize = DefaultOutputBufferSize
	}

	if c.LogLevel == "" {
		c.LogLevel = defaultConfig.LogLevel
	}
	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	if c.Log.File == nil {
		c.Log.File = GetDefaultConfig().Log.File
	}
	return nil
}
