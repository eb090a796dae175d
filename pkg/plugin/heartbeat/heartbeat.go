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

package heartbeat

import (
	"context"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	xmpputil "github.com/tribot-xmpp/tribot/pkg/util/xmpp"
)

// PluginName represents heartbeat plugin name.
const PluginName = "heartbeat"

const defaultTimeout = 10 * time.Second

// Config contains heartbeat plugin configuration.
type Config struct {
	// Target is the ping destination. Defaults to the bot host.
	Target string `yaml:"target"`

	// Timeout tells how long to wait for a ping answer.
	Timeout time.Duration `yaml:"timeout"`
}

type pendingPing struct {
	sentAt time.Time

	mu    sync.Mutex
	done  bool
	timer *time.Timer
}

// Heartbeat pings the server on every keepalive and reports unanswered pings.
type Heartbeat struct {
	cfg    Config
	bot    plugin.Bot
	logger kitlog.Logger

	mu      sync.Mutex
	pending map[uint64]*pendingPing
	missed  int
	stopped bool
}

// New returns a new initialized Heartbeat instance.
func New(b plugin.Bot, cfg Config, logger kitlog.Logger) *Heartbeat {
	if len(cfg.Target) == 0 {
		cfg.Target = b.Host()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Heartbeat{
		cfg:     cfg,
		bot:     b,
		logger:  logger,
		pending: make(map[uint64]*pendingPing),
	}
}

// Name satisfies plugin.Plugin interface.
func (h *Heartbeat) Name() string { return PluginName }

// Commands satisfies plugin.Plugin interface.
func (h *Heartbeat) Commands() []plugin.Command { return nil }

// Start satisfies plugin.Plugin interface.
func (h *Heartbeat) Start(_ context.Context) error {
	h.bot.OnKeepAlive(h.onKeepAlive)
	level.Info(h.logger).Log("msg", "started heartbeat plugin", "target", h.cfg.Target, "timeout", h.cfg.Timeout)
	return nil
}

// Stop satisfies plugin.Plugin interface.
func (h *Heartbeat) Stop(_ context.Context) error {
	h.mu.Lock()
	h.stopped = true
	pending := h.pending
	h.pending = make(map[uint64]*pendingPing)
	h.mu.Unlock()

	for id, p := range pending {
		p.mu.Lock()
		p.done = true
		if p.timer != nil {
			p.timer.Stop()
		}
		p.mu.Unlock()
		h.bot.CancelIQ(id)
	}
	return nil
}

// Missed returns the number of consecutive unanswered pings.
func (h *Heartbeat) Missed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.missed
}

func (h *Heartbeat) onKeepAlive(ctx context.Context, t time.Time) error {
	h.mu.Lock()
	stopped := h.stopped
	h.mu.Unlock()
	if stopped {
		return nil
	}
	p := &pendingPing{sentAt: time.Now()}

	id, err := h.bot.SendIQ(ctx, xmpputil.MakePing(h.cfg.Target), func(_ stravaganza.Element, err error) {
		h.onResponse(p, err)
	})
	if err != nil {
		reportPingFailure("send_error")
		return err
	}
	// the answer may have been processed before SendIQ returned
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return nil
	}
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		p.done = true
		p.mu.Unlock()
		h.bot.CancelIQ(id)
		return nil
	}
	h.pending[id] = p
	h.mu.Unlock()
	p.timer = time.AfterFunc(h.cfg.Timeout, func() { h.onTimeout(id, p) })
	p.mu.Unlock()

	level.Debug(h.logger).Log("msg", "sent server ping", "id", id, "keepalive", t)
	return nil
}

func (h *Heartbeat) onResponse(p *pendingPing, err error) {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()

	h.mu.Lock()
	for id, pp := range h.pending {
		if pp == p {
			delete(h.pending, id)
			break
		}
	}
	if err == nil {
		h.missed = 0
	}
	h.mu.Unlock()

	if err != nil {
		reportPingFailure("error")
		level.Warn(h.logger).Log("msg", "server ping failed", "err", err)
		return
	}
	rtt := time.Since(p.sentAt)
	reportPong(rtt)
	level.Debug(h.logger).Log("msg", "received server pong", "rtt", rtt)
}

func (h *Heartbeat) onTimeout(id uint64, p *pendingPing) {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.mu.Unlock()

	h.bot.CancelIQ(id)

	h.mu.Lock()
	delete(h.pending, id)
	h.missed++
	missed := h.missed
	h.mu.Unlock()

	reportPingFailure("timeout")
	level.Warn(h.logger).Log("msg", "server ping timed out", "id", id, "timeout", h.cfg.Timeout, "missed", missed)
}
