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

package status

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/shardgrep/pkg/dispatcher"
	cerror "github.com/pingcap/shardgrep/pkg/errors"
	"github.com/pingcap/shardgrep/pkg/logutil"
	"github.com/pingcap/shardgrep/pkg/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

const (
	// maxHTTPConnection is used to limit the max concurrent connections of http server.
	maxHTTPConnection = 64
	// httpConnectionTimeout is used to limit a connection max alive time of http server.
	httpConnectionTimeout = time.Minute
	shutdownTimeout       = 5 * time.Second
)

// StatsProvider reports the progress of a dispatcher.
type StatsProvider interface {
	Stats() dispatcher.Stats
}

// Status is the response of GET /status.
type Status struct {
	Version   string            `json:"version"`
	Semver    string            `json:"release_semver"`
	GitHash   string            `json:"git_hash"`
	RunID     string            `json:"run_id"`
	StartTime time.Time         `json:"start_time"`
	Uptime    string            `json:"uptime"`
	Dispatch  *dispatcher.Stats `json:"dispatch,omitempty"`
}

// LogLevelReq is the request body of POST /log.
type LogLevelReq struct {
	Level string `json:"log_level"`
}

// HTTPError is the response body of a failed request.
type HTTPError struct {
	Error string `json:"error_msg"`
	Code  string `json:"error_code"`
}

func newHTTPError(err error) HTTPError {
	var code string
	if e, ok := errors.Cause(err).(*errors.Error); ok {
		code = string(e.RFCCode())
	}
	return HTTPError{Error: err.Error(), Code: code}
}

// Server exposes metrics and progress of a running shardgrep over HTTP.
type Server struct {
	addr      string
	runID     string
	startTime time.Time
	gatherer  prometheus.Gatherer
	stats     StatsProvider
	router    *gin.Engine
}

// NewServer creates a status server. stats may be nil.
func NewServer(addr string, gatherer prometheus.Gatherer, stats StatsProvider) *Server {
	s := &Server{
		addr:      addr,
		runID:     uuid.New().String(),
		startTime: time.Now(),
		gatherer:  gatherer,
		stats:     stats,
	}
	s.router = s.newRouter()
	return s
}

func (s *Server) newRouter() *gin.Engine {
	// discard gin default log output
	gin.DefaultWriter = io.Discard

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	router.GET("/status", s.handleStatus)
	router.POST("/log", s.handleSetLogLevel)
	return router
}

// RunID identifies this process in logs and status responses.
func (s *Server) RunID() string {
	return s.runID
}

// Handler returns the http handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleStatus(c *gin.Context) {
	st := &Status{
		Version:   version.ReleaseVersion,
		Semver:    version.ReleaseSemver(),
		GitHash:   version.GitHash,
		RunID:     s.runID,
		StartTime: s.startTime,
		Uptime:    time.Since(s.startTime).Truncate(time.Second).String(),
	}
	if s.stats != nil {
		stats := s.stats.Stats()
		st.Dispatch = &stats
	}
	c.IndentedJSON(http.StatusOK, st)
}

func (s *Server) handleSetLogLevel(c *gin.Context) {
	req := &LogLevelReq{Level: "info"}
	if err := c.BindJSON(req); err != nil {
		c.IndentedJSON(http.StatusBadRequest,
			newHTTPError(cerror.ErrAPIInvalidParam.GenWithStackByArgs(err)))
		return
	}
	if err := logutil.SetLogLevel(req.Level); err != nil {
		c.IndentedJSON(http.StatusBadRequest,
			newHTTPError(cerror.ErrAPIInvalidParam.GenWithStackByArgs("fail to change log level "+req.Level)))
		return
	}
	c.Status(http.StatusOK)
}

// Run serves HTTP requests until ctx is done. It returns nil once the server
// has been shut down because of ctx.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return cerror.ErrStatusServer.GenWithStackByArgs(s.addr, err)
	}
	return s.serve(ctx, lis)
}

func (s *Server) serve(ctx context.Context, lis net.Listener) error {
	lis = netutil.LimitListener(lis, maxHTTPConnection)
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  httpConnectionTimeout,
		WriteTimeout: httpConnectionTimeout,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("status server is running",
			zap.String("addr", lis.Addr().String()), zap.String("runID", s.runID))
		err := srv.Serve(lis)
		if err != nil && err != http.ErrServerClosed {
			return cerror.ErrStatusServer.GenWithStackByArgs(lis.Addr().String(), err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("status server shutdown failed", logutil.ShortError(err))
		}
		log.Info("status server exited", zap.String("addr", lis.Addr().String()))
		return nil
	})
	return errors.Trace(eg.Wait())
}
