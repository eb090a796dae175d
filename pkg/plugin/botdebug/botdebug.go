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

package botdebug

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/hook"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
	"github.com/tribot-xmpp/tribot/pkg/version"
)

// PluginName represents bot debug plugin name.
const PluginName = "botdebug"

// BotDebug reports process status information privately.
type BotDebug struct {
	bot       plugin.Bot
	logger    kitlog.Logger
	startTime time.Time
	nowFn     func() time.Time
	hostFn    func() (string, error)

	mu       sync.Mutex
	errCount int
	lastErr  string
}

// New returns a new initialized BotDebug instance.
func New(b plugin.Bot, logger kitlog.Logger) *BotDebug {
	return &BotDebug{
		bot:    b,
		logger: logger,
		nowFn:  time.Now,
		hostFn: os.Hostname,
	}
}

// Name satisfies plugin.Plugin interface.
func (d *BotDebug) Name() string { return PluginName }

// Commands satisfies plugin.Plugin interface.
func (d *BotDebug) Commands() []plugin.Command {
	return []plugin.Command{{Usage: "debug", Description: "Show status information"}}
}

// Start satisfies plugin.Plugin interface.
func (d *BotDebug) Start(_ context.Context) error {
	d.startTime = d.nowFn()
	if err := d.bot.OnMessage(subscription.Body(subscription.Equals("debug")), d.onDebug); err != nil {
		return err
	}
	d.bot.OnError(d.onError)
	level.Info(d.logger).Log("msg", "started bot debug plugin")
	return nil
}

// Stop satisfies plugin.Plugin interface.
func (d *BotDebug) Stop(_ context.Context) error { return nil }

func (d *BotDebug) onDebug(ctx context.Context, msg *event.Message, _ subscription.Matches) error {
	hostname, err := d.hostFn()
	if err != nil {
		hostname = "unknown"
	}
	fields := [][2]string{
		{"Name", d.bot.Name()},
		{"Version", version.Version.String()},
		{"Running on", hostname},
		{"Go version", runtime.Version()},
		{"Uptime", fmt.Sprintf("%d seconds", int64(d.nowFn().Sub(d.startTime)/time.Second))},
		{"Process ID", fmt.Sprintf("%d", os.Getpid())},
	}
	d.mu.Lock()
	fields = append(fields, [2]string{"Errors", fmt.Sprintf("%d", d.errCount)})
	if len(d.lastErr) > 0 {
		fields = append(fields, [2]string{"Last error", d.lastErr})
	}
	d.mu.Unlock()

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("*%s:* %s", f[0], f[1]))
	}
	return d.bot.MessageUser(ctx, msg.FromNick, strings.Join(lines, "\n"))
}

func (d *BotDebug) onError(_ context.Context, info *hook.ErrorInfo) error {
	d.mu.Lock()
	d.errCount++
	if info.Err != nil {
		d.lastErr = info.Err.Error()
	}
	d.mu.Unlock()
	return nil
}
