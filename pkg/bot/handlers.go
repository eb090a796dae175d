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

package bot

import (
	"context"
	"time"

	"github.com/tribot-xmpp/tribot/pkg/hook"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
)

// OnMessage registers h to be invoked for every message matching conds.
func (b *Bot) OnMessage(conds subscription.Conditions, h subscription.Handler) error {
	return b.subs.Subscribe(conds, h)
}

// OnConnect registers h to be invoked every time the bot goes online.
func (b *Bot) OnConnect(h func(ctx context.Context, info *hook.ConnectionInfo) error) {
	b.hk.AddHook(hook.Connected, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.ConnectionInfo))
	}, hook.DefaultPriority)
}

// OnDisconnect registers h to be invoked every time the stream drops.
func (b *Bot) OnDisconnect(h func(ctx context.Context, info *hook.ConnectionInfo) error) {
	b.hk.AddHook(hook.Disconnected, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.ConnectionInfo))
	}, hook.DefaultPriority)
}

// OnInvite registers h to be invoked when a room invitation arrives.
func (b *Bot) OnInvite(h func(ctx context.Context, info *hook.InviteInfo) error) {
	b.hk.AddHook(hook.InviteReceived, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.InviteInfo))
	}, hook.DefaultPriority)
}

// OnJoin registers h to be invoked once per confirmed room join.
func (b *Bot) OnJoin(h func(ctx context.Context, room string) error) {
	b.hk.AddHook(hook.RoomJoined, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.RoomInfo).Room)
	}, hook.DefaultPriority)
}

// OnError registers h to be invoked on transport, stream and handler errors.
func (b *Bot) OnError(h func(ctx context.Context, info *hook.ErrorInfo) error) {
	b.hk.AddHook(hook.ErrorOccurred, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.ErrorInfo))
	}, hook.DefaultPriority)
}

// OnKeepAlive registers h to be invoked on every keepalive tick.
func (b *Bot) OnKeepAlive(h func(ctx context.Context, t time.Time) error) {
	b.hk.AddHook(hook.KeepAlive, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.KeepAliveInfo).Time)
	}, hook.DefaultPriority)
}
