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

package help

import (
	"context"
	"fmt"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
)

// PluginName represents help plugin name.
const PluginName = "help"

// Catalog lists loaded plugins.
type Catalog interface {
	List() []plugin.Plugin
}

// Help sends a welcome guide with the commands understood by every loaded plugin.
type Help struct {
	bot     plugin.Bot
	catalog Catalog
	logger  kitlog.Logger
}

// New returns a new initialized Help instance.
func New(b plugin.Bot, catalog Catalog, logger kitlog.Logger) *Help {
	return &Help{bot: b, catalog: catalog, logger: logger}
}

// Name satisfies plugin.Plugin interface.
func (h *Help) Name() string { return PluginName }

// Commands satisfies plugin.Plugin interface.
func (h *Help) Commands() []plugin.Command {
	return []plugin.Command{{Usage: "help", Description: "Show this message"}}
}

// Start satisfies plugin.Plugin interface.
func (h *Help) Start(_ context.Context) error {
	if err := h.bot.OnMessage(subscription.Body(subscription.MustRegexp(`^(help|hi|hello)$`)), h.onHelp); err != nil {
		return err
	}
	level.Info(h.logger).Log("msg", "started help plugin")
	return nil
}

// Stop satisfies plugin.Plugin interface.
func (h *Help) Stop(_ context.Context) error { return nil }

func (h *Help) onHelp(ctx context.Context, msg *event.Message, _ subscription.Matches) error {
	if len(msg.Room) > 0 {
		notice := fmt.Sprintf("Sent welcome guide to %s privately to avoid flooding the group.", msg.FromNick)
		if err := h.bot.MessageRoom(ctx, msg.Room, notice); err != nil {
			return err
		}
	}
	return h.bot.MessageUser(ctx, msg.FromNick, h.guide())
}

func (h *Help) guide() string {
	name := h.bot.Name()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi, I'm %s.  When you talk to me in a group chat, remember to prefix your message with `@%s` or `%s:`, otherwise I'll stay quiet.  When talking to me privately no prefix is required.\n\nI understand these commands:\n", name, name, name)
	for _, pl := range h.catalog.List() {
		cmds := pl.Commands()
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n  *%s*:", pl.Name())
		for _, cmd := range cmds {
			fmt.Fprintf(&sb, "\n    - `%s`: %s", cmd.Usage, cmd.Description)
		}
	}
	return sb.String()
}
