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
	"fmt"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/hook"
	"github.com/tribot-xmpp/tribot/pkg/iq"
	xmpputil "github.com/tribot-xmpp/tribot/pkg/util/xmpp"
)

const (
	chatType      = "chat"
	groupChatType = "groupchat"
)

// Message sends a message of type typ to address to.
func (b *Bot) Message(ctx context.Context, to, typ, body string) error {
	return b.send(ctx, xmpputil.MakeMessage("", to, typ, body))
}

// MessageUser sends a chat message to target. Bare names are qualified with the account domain.
func (b *Bot) MessageUser(ctx context.Context, target, body string) error {
	if !strings.Contains(target, "@") {
		target = target + "@" + b.host
	}
	return b.Message(ctx, target, chatType, body)
}

// MessageRoom sends a group message to target room. Bare names are qualified with the rooms service domain.
func (b *Bot) MessageRoom(ctx context.Context, target, body string) error {
	if !strings.Contains(target, "@") {
		target = b.roomJID(target)
	}
	return b.Message(ctx, target, groupChatType, body)
}

// Reply answers msg in the conversation it was received from.
func (b *Bot) Reply(ctx context.Context, msg *event.Message, body string) error {
	if msg.Kind == event.GroupChatMessage {
		return b.MessageRoom(ctx, msg.Room, body)
	}
	return b.Message(ctx, msg.FromJID, chatType, body)
}

// Join requests to join room asking for history past messages.
// A negative history uses the configured value. Joined rooms are joined again after every reconnection.
func (b *Bot) Join(ctx context.Context, roomName string, history int) error {
	roomName = b.roomName(roomName)
	if history < 0 {
		history = b.cfg.History
	}
	b.mu.Lock()
	b.addDesired(roomName)
	b.mu.Unlock()

	return b.sendJoin(ctx, roomName, history)
}

// Leave leaves room, which is no longer joined after reconnecting.
func (b *Bot) Leave(ctx context.Context, roomName string) error {
	roomName = b.roomName(roomName)

	b.mu.Lock()
	b.removeDesired(roomName)
	b.mu.Unlock()

	from := fmt.Sprintf("%s/%s", b.account.ToBareJID().String(), b.name)
	err := b.send(ctx, xmpputil.MakeLeavePresence(from, b.occupantJID(roomName)))
	b.rooms.MarkLeft(roomName)
	reportJoinedRooms(b.name, len(b.rooms.JoinedRooms()))
	return err
}

// SetAvailability updates the announced presence. status may be empty.
func (b *Bot) SetAvailability(ctx context.Context, show, status string) error {
	b.mu.Lock()
	b.show, b.status = show, status
	b.mu.Unlock()

	return b.send(ctx, xmpputil.MakeAvailability(show, status))
}

// SendIQ sends an iq request assigning it a fresh identifier.
// cb is invoked once with the response. No timeout is enforced, use CancelIQ to give up waiting.
func (b *Bot) SendIQ(ctx context.Context, req stravaganza.Element, cb iq.Callback) (uint64, error) {
	id := b.iqID.Add(1)
	if err := b.iqs.Register(id, cb); err != nil {
		return 0, err
	}
	if err := b.send(ctx, xmpputil.WithID(req, id)); err != nil {
		b.iqs.Cancel(id)
		return 0, err
	}
	reportPendingIQs(b.name, b.iqs.Len())
	return id, nil
}

// CancelIQ stops waiting for the response of request id.
func (b *Bot) CancelIQ(id uint64) {
	b.iqs.Cancel(id)
	reportPendingIQs(b.name, b.iqs.Len())
}

func (b *Bot) sendJoin(ctx context.Context, roomName string, history int) error {
	return b.send(ctx, xmpputil.MakeJoinPresence(b.occupantJID(roomName), history))
}

func (b *Bot) occupantJID(roomName string) string {
	return b.roomJID(roomName) + "/" + b.name
}

// send is the only path writing to the stream.
func (b *Bot) send(ctx context.Context, elem stravaganza.Element) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	conn := b.currentConn()
	if conn == nil {
		reportOutgoingElement(b.name, elem.Name(), false)
		return ErrNotConnected
	}
	b.sendMu.Lock()
	err := conn.Send(ctx, elem)
	b.sendMu.Unlock()

	reportOutgoingElement(b.name, elem.Name(), err == nil)
	if err != nil {
		return err
	}
	level.Debug(b.logger).Log("msg", "sent element", "element", elem.String())
	b.runHook(ctx, hook.ElementSent, &hook.ElementInfo{Element: elem})
	return nil
}
