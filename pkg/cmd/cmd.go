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

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/shardgrep/pkg/actor"
	"github.com/pingcap/shardgrep/pkg/cmd/util"
	"github.com/pingcap/shardgrep/pkg/config"
	"github.com/pingcap/shardgrep/pkg/dispatcher"
	cerror "github.com/pingcap/shardgrep/pkg/errors"
	"github.com/pingcap/shardgrep/pkg/grep"
	"github.com/pingcap/shardgrep/pkg/logutil"
	"github.com/pingcap/shardgrep/pkg/status"
	"github.com/pingcap/shardgrep/pkg/version"
	"github.com/pingcap/shardgrep/pkg/workerpool"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const componentName = "grep"

// options defines flags for the root command.
type options struct {
	configFilePath string

	cfg *config.Config
}

// newOptions creates new options for the root command.
func newOptions() *options {
	return &options{
		cfg: config.GetDefaultConfig(),
	}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to shardgrep to it.
func (o *options) addFlags(cmd *cobra.Command) {
	defaultCfg := config.GetDefaultConfig()
	cmd.Flags().IntVar(&o.cfg.WorkerCount, "workers", defaultCfg.WorkerCount, "Number of workers in the shared pool, 0 means the number of CPUs")
	cmd.Flags().IntVar(&o.cfg.ShardsPerWorker, "shards-per-worker", defaultCfg.ShardsPerWorker, "Number of shards per worker, used when --shards is 0")
	cmd.Flags().IntVar(&o.cfg.ShardCount, "shards", defaultCfg.ShardCount, "Number of shards lines are spread across, 0 means workers * shards-per-worker")
	cmd.Flags().IntVar(&o.cfg.MailboxCapacity, "mailbox-capacity", defaultCfg.MailboxCapacity, "Max pending lines per shard, 0 means unbounded")
	cmd.Flags().IntVar(&o.cfg.DrainBatchSize, "drain-batch-size", defaultCfg.DrainBatchSize, "Max lines a shard pops at once")
	cmd.Flags().IntVar(&o.cfg.OutputBufferSize, "output-buffer-size", defaultCfg.OutputBufferSize, "Size in bytes of the output buffer")
	cmd.Flags().StringVar(&o.cfg.LogFile, "log-file", defaultCfg.LogFile, "log file path, empty means stderr")
	cmd.Flags().StringVar(&o.cfg.LogLevel, "log-level", defaultCfg.LogLevel, "log level (etc: debug|info|warn|error)")
	cmd.Flags().StringVar(&o.cfg.StatusAddr, "status-addr", defaultCfg.StatusAddr, "Listen address of the status server, empty disables it")

	cmd.Flags().StringVar(&o.configFilePath, "config", "", "Path of the configuration file")
}

// loadAndVerifyConfig merges the config file with the flags set explicitly
// on the command line, flags take precedence.
func (o *options) loadAndVerifyConfig(cmd *cobra.Command) (*config.Config, error) {
	conf := config.GetDefaultConfig()
	if len(o.configFilePath) > 0 {
		if err := util.StrictDecodeFile(o.configFilePath, "shardgrep", conf); err != nil {
			return nil, err
		}
	}
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "workers":
			conf.WorkerCount = o.cfg.WorkerCount
		case "shards-per-worker":
			conf.ShardsPerWorker = o.cfg.ShardsPerWorker
		case "shards":
			conf.ShardCount = o.cfg.ShardCount
		case "mailbox-capacity":
			conf.MailboxCapacity = o.cfg.MailboxCapacity
		case "drain-batch-size":
			conf.DrainBatchSize = o.cfg.DrainBatchSize
		case "output-buffer-size":
			conf.OutputBufferSize = o.cfg.OutputBufferSize
		case "log-file":
			conf.LogFile = o.cfg.LogFile
		case "log-level":
			conf.LogLevel = o.cfg.LogLevel
		case "status-addr":
			conf.StatusAddr = o.cfg.StatusAddr
		case "config":
			// do nothing
		default:
			log.Panic("unknown flag, please report a bug", zap.String("flagName", flag.Name))
		}
	})

	if err := conf.ValidateAndAdjust(); err != nil {
		return nil, errors.Trace(err)
	}
	if conf.ShardCount < conf.WorkerCount {
		cmd.PrintErr(color.HiYellowString("[WARN] only %d shards for %d workers, "+
			"at most %d workers can be busy at the same time\n",
			conf.ShardCount, conf.WorkerCount, conf.ShardCount))
	}
	return conf, nil
}

func (o *options) run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cerror.ErrNoPattern.GenWithStackByArgs()
	}
	pattern := args[0]

	conf, err := o.loadAndVerifyConfig(cmd)
	if err != nil {
		return errors.Trace(err)
	}

	ctx, cancel := util.InitCmd(cmd, &logutil.Config{
		File:           conf.LogFile,
		Level:          conf.LogLevel,
		FileMaxSize:    conf.Log.File.MaxSize,
		FileMaxDays:    conf.Log.File.MaxDays,
		FileMaxBackups: conf.Log.File.MaxBackups,
	})
	defer cancel()

	version.LogVersionInfo(
		zap.Int("workers", conf.WorkerCount),
		zap.Int("shards", conf.ShardCount),
		zap.Int("mailboxCapacity", conf.MailboxCapacity))
	stop := util.InitSignalHandling(nil)
	defer stop()

	return runGrep(ctx, conf, pattern, cmd.InOrStdin(), cmd.OutOrStdout())
}

// runGrep matches every line of in against pattern and writes the results
// to out. It returns once every line has been processed and the output has
// been flushed.
func runGrep(
	ctx context.Context, conf *config.Config, pattern string, in io.Reader, out io.Writer,
) error {
	proc, err := grep.NewLineProcessor(pattern, out, conf.OutputBufferSize)
	if err != nil {
		return errors.Trace(err)
	}

	registry := newRegistry()
	pool := workerpool.NewDefaultAsyncPool(componentName, conf.WorkerCount)
	actorOpts := []actor.Option{actor.WithBatchSize(conf.DrainBatchSize)}
	if conf.MailboxCapacity > 0 {
		actorOpts = append(actorOpts, actor.WithCapacity(conf.MailboxCapacity))
	}
	d := dispatcher.NewDispatcher[string](componentName, conf.ShardCount, proc, pool, actorOpts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return pool.Run(egCtx)
	})
	if conf.StatusAddr != "" {
		srv := status.NewServer(conf.StatusAddr, registry, d)
		eg.Go(func() error {
			return srv.Run(egCtx)
		})
	}

	err = grep.ForEachLine(egCtx, in, func(line string) error {
		return d.Submit(egCtx, line)
	})
	if err == nil {
		err = d.Shutdown(egCtx)
	}
	if ferr := proc.Flush(); ferr != nil {
		log.Debug("flush output failed", logutil.ShortError(ferr))
	}

	cancel()
	if werr := eg.Wait(); werr != nil && !cerror.IsContextDoneError(werr) {
		return errors.Trace(werr)
	}
	if cerror.IsContextDoneError(err) {
		log.Info("grep stopped before all lines were processed",
			zap.Uint64("submitted", d.Stats().Submitted), logutil.ShortError(err))
	}
	return errors.Trace(err)
}

// NewCmd creates the root command.
func NewCmd() *cobra.Command {
	o := newOptions()
	cmd := &cobra.Command{
		Use:   "shardgrep PATTERN",
		Short: "Match stdin lines against a regular expression in parallel",
		Long: `shardgrep reads lines from standard input, spreads them round-robin across
shards processed on a shared worker pool, and prints the capture groups of
every matching line. Lines of one shard are matched in input order, output
of different shards may interleave.`,
		Args:              cobra.MaximumNArgs(1),
		Version:           version.GetRawInfo(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}
	cmd.SetVersionTemplate("{{.Version}}")
	o.addFlags(cmd)
	return cmd
}

// Run runs the root command.
func Run() {
	cmd := NewCmd()
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	util.CheckErr(cmd.Execute())
}
