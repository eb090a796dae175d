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

package httpapi

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/netutil"
)

// PluginName represents HTTP API plugin name.
const PluginName = "httpapi"

const (
	defaultBindAddr = ""
	defaultPort     = 8080

	maxBodySize = 64 << 10
)

// Config contains HTTP API plugin configuration.
type Config struct {
	// BindAddr is the listening address.
	BindAddr string `yaml:"bind_addr"`

	// Port is the listening port.
	Port int `yaml:"port"`

	// MaxConnections caps simultaneously accepted connections. Zero means unlimited.
	MaxConnections int `yaml:"max_connections"`

	// Users maps basic auth user names to bcrypt password hashes.
	// Posting requires valid credentials when not empty.
	Users map[string]string `yaml:"users"`
}

// HTTPAPI exposes a REST interface for posting messages to rooms.
type HTTPAPI struct {
	cfg    Config
	bot    plugin.Bot
	logger kitlog.Logger

	srv  *http.Server
	addr string
}

// New returns a new initialized HTTPAPI instance.
func New(b plugin.Bot, cfg Config, logger kitlog.Logger) *HTTPAPI {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	return &HTTPAPI{cfg: cfg, bot: b, logger: logger}
}

// Name satisfies plugin.Plugin interface.
func (h *HTTPAPI) Name() string { return PluginName }

// Commands satisfies plugin.Plugin interface.
func (h *HTTPAPI) Commands() []plugin.Command { return nil }

// Start satisfies plugin.Plugin interface.
func (h *HTTPAPI) Start(_ context.Context) error {
	h.srv = &http.Server{Handler: h.handler()}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", h.cfg.BindAddr, h.cfg.Port))
	if err != nil {
		return err
	}
	h.addr = ln.Addr().String()
	if h.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, h.cfg.MaxConnections)
	}

	go func() {
		if err := h.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			level.Error(h.logger).Log("msg", "failed to serve HTTP API", "err", err)
		}
	}()
	level.Info(h.logger).Log("msg", "HTTP API listening", "addr", h.addr)
	return nil
}

// Stop satisfies plugin.Plugin interface.
func (h *HTTPAPI) Stop(ctx context.Context) error {
	if h.srv == nil {
		return nil
	}
	if err := h.srv.Shutdown(ctx); err != nil {
		return err
	}
	level.Info(h.logger).Log("msg", "closed HTTP API", "addr", h.addr)
	return nil
}

func (h *HTTPAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /rooms/{room}", h.authenticated(h.handlePostRoom))
	return mux
}

func (h *HTTPAPI) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, h.bot.Name()+" REST interface:\n\n"+
		"* POST /rooms/:room - body of request is posted to :room (if bot is currently in that room)\n")
}

func (h *HTTPAPI) handlePostRoom(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeText(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) == 0 {
		writeText(w, http.StatusBadRequest, "Empty message")
		return
	}
	if err := h.bot.MessageRoom(r.Context(), room, msg); err != nil {
		level.Warn(h.logger).Log("msg", "failed to post room message", "room", room, "err", err)
		writeText(w, http.StatusServiceUnavailable, "Failed to post message")
		return
	}
	writeText(w, http.StatusOK, "OK")
}

func (h *HTTPAPI) authenticated(next http.HandlerFunc) http.HandlerFunc {
	if len(h.cfg.Users) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if ok {
			hash, found := h.cfg.Users[user]
			if found && bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil {
				next(w, r)
				return
			}
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="`+h.bot.Name()+`"`)
		writeText(w, http.StatusUnauthorized, "Unauthorized")
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
