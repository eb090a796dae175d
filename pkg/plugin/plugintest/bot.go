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

// Package plugintest provides an in-memory plugin.Bot for plugin tests.
package plugintest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/hook"
	"github.com/tribot-xmpp/tribot/pkg/iq"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
)

// Sent is a message sent through the fake bot.
type Sent struct {
	To   string
	Type string
	Body string
}

// IQRequest is an IQ sent through the fake bot.
type IQRequest struct {
	ID       uint64
	Element  stravaganza.Element
	Callback iq.Callback
}

// Bot is an in-memory plugin.Bot. Outgoing traffic is recorded instead of sent.
type Bot struct {
	subs *subscription.Registry
	hk   *hook.Hooks

	mu     sync.Mutex
	loc    *time.Location
	sent   []Sent
	joined []string
	iqs    map[uint64]IQRequest
	nextID uint64
	sentCh chan Sent
}

var _ plugin.Bot = (*Bot)(nil)

// NewBot returns a fake bot named tribot on example.com.
func NewBot() *Bot {
	return &Bot{
		subs:   subscription.NewRegistry(),
		hk:     hook.NewHooks(),
		loc:    time.UTC,
		iqs:    make(map[uint64]IQRequest),
		sentCh: make(chan Sent, 128),
	}
}

// Name returns bot name.
func (b *Bot) Name() string { return "tribot" }

// Host returns bot host.
func (b *Bot) Host() string { return "example.com" }

// MUCHost returns bot MUC service host.
func (b *Bot) MUCHost() string { return "conf.example.com" }

// Location returns bot time zone.
func (b *Bot) Location() *time.Location {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loc
}

// SetLocation sets bot time zone.
func (b *Bot) SetLocation(loc *time.Location) {
	b.mu.Lock()
	b.loc = loc
	b.mu.Unlock()
}

// JoinedRooms returns the rooms joined through Join.
func (b *Bot) JoinedRooms() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ret := make([]string, len(b.joined))
	copy(ret, b.joined)
	return ret
}

// OnMessage registers a message subscription.
func (b *Bot) OnMessage(conds subscription.Conditions, h subscription.Handler) error {
	return b.subs.Subscribe(conds, h)
}

// OnConnect registers a connection handler.
func (b *Bot) OnConnect(h func(ctx context.Context, info *hook.ConnectionInfo) error) {
	b.hk.AddHook(hook.Connected, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.ConnectionInfo))
	}, hook.DefaultPriority)
}

// OnDisconnect registers a disconnection handler.
func (b *Bot) OnDisconnect(h func(ctx context.Context, info *hook.ConnectionInfo) error) {
	b.hk.AddHook(hook.Disconnected, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.ConnectionInfo))
	}, hook.DefaultPriority)
}

// OnInvite registers an invitation handler.
func (b *Bot) OnInvite(h func(ctx context.Context, info *hook.InviteInfo) error) {
	b.hk.AddHook(hook.InviteReceived, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.InviteInfo))
	}, hook.DefaultPriority)
}

// OnJoin registers a room join handler.
func (b *Bot) OnJoin(h func(ctx context.Context, room string) error) {
	b.hk.AddHook(hook.RoomJoined, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.RoomInfo).Room)
	}, hook.DefaultPriority)
}

// OnError registers an error handler.
func (b *Bot) OnError(h func(ctx context.Context, info *hook.ErrorInfo) error) {
	b.hk.AddHook(hook.ErrorOccurred, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.ErrorInfo))
	}, hook.DefaultPriority)
}

// OnKeepAlive registers a keepalive handler.
func (b *Bot) OnKeepAlive(h func(ctx context.Context, t time.Time) error) {
	b.hk.AddHook(hook.KeepAlive, func(ctx context.Context, execCtx *hook.ExecutionContext) error {
		return h(ctx, execCtx.Info.(*hook.KeepAliveInfo).Time)
	}, hook.DefaultPriority)
}

// Message records a message.
func (b *Bot) Message(_ context.Context, to, typ, body string) error {
	s := Sent{To: to, Type: typ, Body: body}
	b.mu.Lock()
	b.sent = append(b.sent, s)
	b.mu.Unlock()

	select {
	case b.sentCh <- s:
	default:
	}
	return nil
}

// MessageUser records a chat message addressed to target.
func (b *Bot) MessageUser(ctx context.Context, target, body string) error {
	if !strings.Contains(target, "@") {
		target = target + "@" + b.Host()
	}
	return b.Message(ctx, target, string(event.ChatMessage), body)
}

// MessageRoom records a groupchat message addressed to target.
func (b *Bot) MessageRoom(ctx context.Context, target, body string) error {
	if !strings.Contains(target, "@") {
		target = target + "@" + b.MUCHost()
	}
	return b.Message(ctx, target, string(event.GroupChatMessage), body)
}

// Reply records a reply to msg.
func (b *Bot) Reply(ctx context.Context, msg *event.Message, body string) error {
	if msg.Kind == event.GroupChatMessage {
		return b.MessageRoom(ctx, msg.Room, body)
	}
	return b.Message(ctx, msg.FromJID, string(event.ChatMessage), body)
}

// Join records room as joined.
func (b *Bot) Join(_ context.Context, room string, _ int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.joined {
		if r == room {
			return nil
		}
	}
	b.joined = append(b.joined, room)
	return nil
}

// Leave removes room from joined rooms.
func (b *Bot) Leave(_ context.Context, room string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.joined {
		if r == room {
			b.joined = append(b.joined[:i], b.joined[i+1:]...)
			break
		}
	}
	return nil
}

// SendIQ records an IQ request.
func (b *Bot) SendIQ(_ context.Context, req stravaganza.Element, cb iq.Callback) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.iqs[b.nextID] = IQRequest{ID: b.nextID, Element: req, Callback: cb}
	return b.nextID, nil
}

// CancelIQ drops a pending IQ request.
func (b *Bot) CancelIQ(id uint64) {
	b.mu.Lock()
	delete(b.iqs, id)
	b.mu.Unlock()
}

// PendingIQs returns pending IQ requests.
func (b *Bot) PendingIQs() []IQRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	ret := make([]IQRequest, 0, len(b.iqs))
	for _, r := range b.iqs {
		ret = append(ret, r)
	}
	return ret
}

// RespondIQ completes a pending IQ request. It returns false if id is not pending.
func (b *Bot) RespondIQ(id uint64, response stravaganza.Element, err error) bool {
	b.mu.Lock()
	req, ok := b.iqs[id]
	delete(b.iqs, id)
	b.mu.Unlock()
	if !ok {
		return false
	}
	req.Callback(response, err)
	return true
}

// Deliver dispatches msg to registered subscriptions.
func (b *Bot) Deliver(ctx context.Context, msg *event.Message) []error {
	return b.subs.Dispatch(ctx, msg)
}

// KeepAlive runs keepalive handlers.
func (b *Bot) KeepAlive(ctx context.Context, t time.Time) error {
	_, err := b.hk.Run(ctx, hook.KeepAlive, &hook.ExecutionContext{Info: &hook.KeepAliveInfo{Time: t}, Sender: b})
	return err
}

// Invite runs invitation handlers.
func (b *Bot) Invite(ctx context.Context, info *hook.InviteInfo) error {
	_, err := b.hk.Run(ctx, hook.InviteReceived, &hook.ExecutionContext{Info: info, Sender: b})
	return err
}

// Fail runs error handlers.
func (b *Bot) Fail(ctx context.Context, info *hook.ErrorInfo) error {
	_, err := b.hk.Run(ctx, hook.ErrorOccurred, &hook.ExecutionContext{Info: info, Sender: b})
	return err
}

// Sent returns recorded messages.
func (b *Bot) Sent() []Sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ret := make([]Sent, len(b.sent))
	copy(ret, b.sent)
	return ret
}

// WaitSent waits until a message is recorded or timeout elapses.
func (b *Bot) WaitSent(timeout time.Duration) (Sent, bool) {
	select {
	case s := <-b.sentCh:
		return s, true
	case <-time.After(timeout):
		return Sent{}, false
	}
}

// GroupChat returns a room message event addressed to the bot.
func GroupChat(room, nick, body string) *event.Message {
	return &event.Message{
		Kind:     event.GroupChatMessage,
		FromJID:  room + "@conf.example.com/" + nick,
		FromNick: nick,
		Room:     room,
		Body:     body,
	}
}

// Chat returns a private message event.
func Chat(nick, body string) *event.Message {
	return &event.Message{
		Kind:     event.ChatMessage,
		FromJID:  nick + "@example.com/home",
		FromNick: nick,
		Body:     body,
	}
}
