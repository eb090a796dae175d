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

package plugin

import (
	"context"
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/hook"
	"github.com/tribot-xmpp/tribot/pkg/iq"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
)

// Command describes a chat command understood by a plugin.
type Command struct {
	// Usage is the command syntax as typed by users.
	Usage string

	// Description explains what the command does.
	Description string
}

// Plugin represents a bot extension loaded by name from configuration.
type Plugin interface {
	// Name returns plugin name.
	Name() string

	// Commands returns the chat commands handled by the plugin.
	Commands() []Command

	// Start registers plugin handlers and spins up plugin resources.
	Start(ctx context.Context) error

	// Stop releases plugin resources.
	Stop(ctx context.Context) error
}

// Bot is the bot surface available to plugins.
type Bot interface {
	Name() string
	Host() string
	MUCHost() string
	Location() *time.Location
	JoinedRooms() []string

	OnMessage(conds subscription.Conditions, h subscription.Handler) error
	OnConnect(h func(ctx context.Context, info *hook.ConnectionInfo) error)
	OnDisconnect(h func(ctx context.Context, info *hook.ConnectionInfo) error)
	OnInvite(h func(ctx context.Context, info *hook.InviteInfo) error)
	OnJoin(h func(ctx context.Context, room string) error)
	OnError(h func(ctx context.Context, info *hook.ErrorInfo) error)
	OnKeepAlive(h func(ctx context.Context, t time.Time) error)

	Message(ctx context.Context, to, typ, body string) error
	MessageUser(ctx context.Context, target, body string) error
	MessageRoom(ctx context.Context, target, body string) error
	Reply(ctx context.Context, msg *event.Message, body string) error
	Join(ctx context.Context, room string, history int) error
	Leave(ctx context.Context, room string) error
	SendIQ(ctx context.Context, req stravaganza.Element, cb iq.Callback) (uint64, error)
	CancelIQ(id uint64)
}
