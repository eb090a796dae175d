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

package groupcommands

import (
	"context"
	"fmt"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/hook"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
)

// PluginName represents group commands plugin name.
const PluginName = "groupcommands"

const useHistory = -1

// Config contains group commands plugin configuration.
type Config struct {
	// AcceptInvites tells whether room invitations should be accepted automatically.
	AcceptInvites bool `yaml:"accept_invites"`
}

// GroupCommands lets users move the bot between rooms.
type GroupCommands struct {
	cfg    Config
	bot    plugin.Bot
	logger kitlog.Logger
}

// New returns a new initialized GroupCommands instance.
func New(b plugin.Bot, cfg Config, logger kitlog.Logger) *GroupCommands {
	return &GroupCommands{cfg: cfg, bot: b, logger: logger}
}

// Name satisfies plugin.Plugin interface.
func (g *GroupCommands) Name() string { return PluginName }

// Commands satisfies plugin.Plugin interface.
func (g *GroupCommands) Commands() []plugin.Command {
	return []plugin.Command{
		{Usage: "join (me/us in) [room]", Description: "Join a room (in private chat)"},
		{Usage: "leave [room]", Description: "Leave a room (in private chat)"},
		{Usage: "leave", Description: "Leave current room"},
		{Usage: "list rooms", Description: "List the rooms in which the bot is currently a member"},
		{Usage: "you there?", Description: "Declare presence if in room"},
	}
}

// Start satisfies plugin.Plugin interface.
func (g *GroupCommands) Start(_ context.Context) error {
	subs := []struct {
		conds subscription.Conditions
		h     subscription.Handler
	}{
		{
			conds: subscription.Conditions{
				event.FieldType: subscription.Equals(string(event.GroupChatMessage)),
				event.FieldBody: subscription.MustRegexp(`^(go away|get lost|be quiet|leave( us| the room)?)( please| now)?$`),
			},
			h: g.onDismiss,
		},
		{
			conds: subscription.Conditions{
				event.FieldType: subscription.Equals(string(event.ChatMessage)),
				event.FieldBody: subscription.MustRegexp(`^join (?:(?:us|me) in )?#?([\w\-]+)$`),
			},
			h: g.onJoin,
		},
		{
			conds: subscription.Conditions{
				event.FieldType: subscription.Equals(string(event.ChatMessage)),
				event.FieldBody: subscription.MustRegexp(`^leave #?([\w\-]+)$`),
			},
			h: g.onLeave,
		},
		{
			conds: subscription.Body(subscription.MustRegexp(`^(((are )?you there)|yt)\??`)),
			h:     g.onPing,
		},
		{
			conds: subscription.Body(subscription.MustRegexp(`(which (rooms|channels) are you in/?|list (rooms|channels))`)),
			h:     g.onList,
		},
	}
	for _, s := range subs {
		if err := g.bot.OnMessage(s.conds, s.h); err != nil {
			return err
		}
	}
	if g.cfg.AcceptInvites {
		g.bot.OnInvite(g.onInvite)
	}
	level.Info(g.logger).Log("msg", "started group commands plugin", "accept_invites", g.cfg.AcceptInvites)
	return nil
}

// Stop satisfies plugin.Plugin interface.
func (g *GroupCommands) Stop(_ context.Context) error { return nil }

func (g *GroupCommands) onDismiss(ctx context.Context, msg *event.Message, _ subscription.Matches) error {
	farewell := fmt.Sprintf("Farewell.  When you are ready for me to return, you may say 'join #%s' to me in private chat", msg.Room)
	if err := g.bot.MessageRoom(ctx, msg.Room, farewell); err != nil {
		return err
	}
	return g.bot.Leave(ctx, msg.Room)
}

func (g *GroupCommands) onJoin(ctx context.Context, msg *event.Message, matches subscription.Matches) error {
	room := matches[event.FieldBody][1]
	if err := g.bot.MessageUser(ctx, msg.FromNick, "I will join you there"); err != nil {
		return err
	}
	return g.bot.Join(ctx, room, useHistory)
}

func (g *GroupCommands) onLeave(ctx context.Context, msg *event.Message, matches subscription.Matches) error {
	room := matches[event.FieldBody][1]
	if err := g.bot.MessageUser(ctx, msg.FromNick, "Leaving "+room); err != nil {
		return err
	}
	notice := fmt.Sprintf("Leaving the room, on orders from %s. When you are ready for me to return, you may say 'join #%s' to me in private chat", msg.FromNick, room)
	if err := g.bot.MessageRoom(ctx, room, notice); err != nil {
		return err
	}
	return g.bot.Leave(ctx, room)
}

func (g *GroupCommands) onPing(ctx context.Context, msg *event.Message, _ subscription.Matches) error {
	return g.bot.Reply(ctx, msg, "I am here")
}

func (g *GroupCommands) onList(ctx context.Context, msg *event.Message, _ subscription.Matches) error {
	rooms := g.bot.JoinedRooms()
	if len(rooms) == 0 {
		return g.bot.Reply(ctx, msg, "I am nowhere.  To invite me into a room, say 'join #<room name>' to me in private chat")
	}
	return g.bot.Reply(ctx, msg, "I am currently active in: "+strings.Join(rooms, ", "))
}

func (g *GroupCommands) onInvite(ctx context.Context, info *hook.InviteInfo) error {
	level.Info(g.logger).Log("msg", "accepting room invitation", "room", info.Room, "from", info.From)
	return g.bot.Join(ctx, info.Room, useHistory)
}
