// Copyright 2022 The tribot Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tribot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tribot-xmpp/tribot/pkg/bot"
	"github.com/tribot-xmpp/tribot/pkg/version"
)

type botStatus interface {
	Name() string
	State() bot.State
	JoinedRooms() []string
}

type statusResponse struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Revision string   `json:"revision"`
	State    string   `json:"state"`
	Rooms    []string `json:"rooms"`
	Plugins  []string `json:"plugins"`
}

// adminServer exposes metrics, health and profiling endpoints.
type adminServer struct {
	port    int
	status  botStatus
	plugins func() []string

	srv    *http.Server
	logger kitlog.Logger
}

func newAdminServer(port int, status botStatus, plugins func() []string, logger kitlog.Logger) *adminServer {
	return &adminServer{
		port:    port,
		status:  status,
		plugins: plugins,
		logger:  logger,
	}
}

func (s *adminServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return err
	}
	s.srv = &http.Server{Handler: s.handler()}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(s.logger).Log("msg", "failed to serve admin HTTP", "err", err)
		}
	}()
	level.Info(s.logger).Log("msg", "admin HTTP server listening", "addr", ln.Addr().String())
	return nil
}

func (s *adminServer) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	level.Info(s.logger).Log("msg", "closed admin HTTP server", "port", s.port)
	return nil
}

func (s *adminServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// handleHealth answers 200 only while the bot stream is online.
func (s *adminServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.status.State()
	if st != bot.Online {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = fmt.Fprintln(w, st.String())
}

func (s *adminServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Name:     s.status.Name(),
		Version:  version.Version.String(),
		Revision: version.Revision(),
		State:    s.status.State().String(),
		Rooms:    s.status.JoinedRooms(),
	}
	if s.plugins != nil {
		resp.Plugins = s.plugins()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		level.Warn(s.logger).Log("msg", "failed to encode status", "err", err)
	}
}
