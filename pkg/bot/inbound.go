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

	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/hook"
	"github.com/tribot-xmpp/tribot/pkg/iq"
	xmpputil "github.com/tribot-xmpp/tribot/pkg/util/xmpp"
)

const unavailableStatus = "unavailable"

func (b *Bot) handleElement(ctx context.Context, elem stravaganza.Element) {
	t0 := time.Now()

	level.Debug(b.logger).Log("msg", "received element", "element", elem.String())
	b.runHook(ctx, hook.ElementReceived, &hook.ElementInfo{Element: elem})

	ev := b.classifier.Classify(elem)
	outcome := b.processEvent(ctx, elem, ev)

	reportIncomingElement(b.name, outcome, time.Since(t0))
}

func (b *Bot) processEvent(ctx context.Context, elem stravaganza.Element, ev event.Event) (outcome string) {
	switch e := ev.(type) {
	case *event.Message:
		for _, err := range b.subs.Dispatch(ctx, e) {
			reportHandlerFailure(b.name)
			b.reportError(ctx, err, elem)
		}
		return "message"

	case *event.Invite:
		level.Info(b.logger).Log("msg", "received room invitation", "room", e.Room, "from", e.From)
		b.runHook(ctx, hook.InviteReceived, &hook.InviteInfo{Room: e.Room, From: e.From, Reason: e.Reason})
		return "invite"

	case *event.IQResult:
		b.fulfillIQ(e.ID, e.Stanza, nil)
		return "iq_result"

	case *event.IQError:
		b.fulfillIQ(e.ID, e.Stanza, &iq.Error{Condition: e.Condition})
		return "iq_error"

	case *event.PingRequest:
		if err := b.send(ctx, xmpputil.MakePingReply(e.Stanza)); err != nil {
			level.Warn(b.logger).Log("msg", "failed to answer ping", "err", err)
		}
		return "ping"

	case *event.Presence:
		b.processPresence(ctx, e)
		return "presence"

	case *event.StreamError:
		b.reportError(ctx, &StreamError{Condition: e.Condition, Text: e.Text}, elem)
		return "stream_error"

	case *event.Ignored:
		level.Debug(b.logger).Log("msg", "ignored element", "reason", e.Reason)
		return "ignored"

	case *event.Malformed:
		level.Warn(b.logger).Log("msg", "dropped malformed element", "err", e.Err)
		return "malformed"

	case *event.Unhandled:
		b.processUnhandled(ctx, e.Stanza)
		return "unhandled"
	}
	return "unknown"
}

func (b *Bot) processPresence(ctx context.Context, p *event.Presence) {
	b.rooms.RecordPresence(p.Room, p.Nick, p.Status)
	if !p.Self {
		return
	}
	if p.Status == unavailableStatus {
		b.rooms.MarkLeft(p.Room)
		reportJoinedRooms(b.name, len(b.rooms.JoinedRooms()))
		level.Info(b.logger).Log("msg", "left room", "room", p.Room)
		return
	}
	if !b.rooms.MarkSelfJoined(p.Room) {
		return
	}
	reportJoinedRooms(b.name, len(b.rooms.JoinedRooms()))
	level.Info(b.logger).Log("msg", "joined room", "room", p.Room)
	b.runHook(ctx, hook.RoomJoined, &hook.RoomInfo{Room: p.Room})
}

func (b *Bot) processUnhandled(ctx context.Context, elem stravaganza.Element) {
	b.runHook(ctx, hook.ElementUnhandled, &hook.ElementInfo{Element: elem})

	if elem.Name() != "iq" {
		return
	}
	switch elem.Attribute(stravaganza.Type) {
	case stravaganza.GetType, stravaganza.SetType:
		errElem, err := xmpputil.MakeServiceUnavailable(elem)
		if err != nil {
			level.Warn(b.logger).Log("msg", "failed to build iq error", "err", err)
			return
		}
		if err := b.send(ctx, errElem); err != nil {
			level.Warn(b.logger).Log("msg", "failed to answer unsupported iq", "err", err)
		}
	}
}

func (b *Bot) fulfillIQ(id uint64, stanza stravaganza.Element, err error) {
	if fErr := b.iqs.Fulfill(id, stanza, err); fErr != nil {
		level.Warn(b.logger).Log("msg", "dropped iq response", "id", id, "err", fErr)
	}
	reportPendingIQs(b.name, b.iqs.Len())
}
