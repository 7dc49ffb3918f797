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

package util

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	cerror "github.com/pingcap/shardgrep/pkg/errors"
	"github.com/pingcap/shardgrep/pkg/logutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// InitCmd initializes the logger, the default context and returns it
// together with its cancel function.
func InitCmd(cmd *cobra.Command, logCfg *logutil.Config) (context.Context, context.CancelFunc) {
	// Init log.
	logCfg.Adjust()
	err := logutil.InitLogger(logCfg)
	if err != nil {
		cmd.PrintErrf("init logger error %v\n", errors.ErrorStack(err))
		os.Exit(1)
	}
	log.Info("init log", zap.String("file", logCfg.File), zap.String("level", logCfg.Level))

	return context.WithCancel(context.Background())
}

// terminationSignals end the process immediately. Queued lines are
// discarded and buffered output is not flushed.
var terminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGHUP,
	syscall.SIGPIPE,
}

// InitSignalHandling installs a handler which calls exit(0) on the first
// termination signal. A nil exit means os.Exit. The returned function
// uninstalls the handler.
func InitSignalHandling(exit func(code int)) (stop func()) {
	if exit == nil {
		exit = os.Exit
	}
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, terminationSignals...)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case sig := <-sc:
			log.Info("got signal, exit immediately", zap.Stringer("signal", sig))
			_ = log.Sync()
			exit(0)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sc)
		close(done)
		<-stopped
	}
}

// StrictDecodeFile decodes the toml file strictly. If any item in confFile file is not mapped
// into the Config struct, issue an error and stop the process from starting.
func StrictDecodeFile(path, component string, cfg interface{}, ignoreCheckItems ...string) error {
	metaData, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return cerror.ErrDecodeConfigFile.GenWithStackByArgs(path, err)
	}

	// check if item is a ignoreCheckItem
	hasIgnoreItem := func(item []string) bool {
		for _, ignoreCheckItem := range ignoreCheckItems {
			if item[0] == ignoreCheckItem {
				return true
			}
		}
		return false
	}

	if undecoded := metaData.Undecoded(); len(undecoded) > 0 {
		var b strings.Builder
		hasUnknownConfigSize := 0
		for _, item := range undecoded {
			if hasIgnoreItem(item) {
				continue
			}

			if hasUnknownConfigSize > 0 {
				b.WriteString(", ")
			}
			b.WriteString(item.String())
			hasUnknownConfigSize++
		}
		if hasUnknownConfigSize > 0 {
			return cerror.ErrDecodeConfigFile.GenWithStackByArgs(path,
				"component "+component+" contained unknown configuration options: "+b.String())
		}
	}
	return nil
}

// CheckErr is used to cmd err.
func CheckErr(err error) {
	if cerror.IsContextCanceledError(err) {
		err = nil
	}
	cobra.CheckErr(err)
}
