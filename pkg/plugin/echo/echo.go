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

package echo

import (
	"context"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
)

// PluginName represents echo plugin name.
const PluginName = "echo"

const replyPrefix = "Right back at ya:\n"

// Echo repeats messages back to their sender.
type Echo struct {
	bot    plugin.Bot
	logger kitlog.Logger
}

// New returns a new initialized Echo instance.
func New(b plugin.Bot, logger kitlog.Logger) *Echo {
	return &Echo{bot: b, logger: logger}
}

// Name satisfies plugin.Plugin interface.
func (e *Echo) Name() string { return PluginName }

// Commands satisfies plugin.Plugin interface.
func (e *Echo) Commands() []plugin.Command {
	return []plugin.Command{
		{Usage: "echo [msg]", Description: "Repeat something back to me (useful for testing)"},
	}
}

// Start satisfies plugin.Plugin interface.
func (e *Echo) Start(_ context.Context) error {
	if err := e.bot.OnMessage(subscription.Body(subscription.MustRegexp(`^echo (.+)$`)), e.onEcho); err != nil {
		return err
	}
	level.Info(e.logger).Log("msg", "started echo plugin")
	return nil
}

// Stop satisfies plugin.Plugin interface.
func (e *Echo) Stop(_ context.Context) error { return nil }

func (e *Echo) onEcho(ctx context.Context, msg *event.Message, matches subscription.Matches) error {
	return e.bot.Reply(ctx, msg, replyPrefix+matches[event.FieldBody][1])
}
