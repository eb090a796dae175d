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

package hook

import (
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
)

const (
	// Connected hook runs when the bot session goes online and configured rooms were requested.
	Connected Event = "bot.connected"

	// Disconnected hook runs when the bot session drops.
	Disconnected Event = "bot.disconnected"

	// RoomJoined hook runs once per room when the server confirms the bot joined it.
	RoomJoined Event = "bot.room.joined"

	// InviteReceived hook runs when a room invitation is received.
	InviteReceived Event = "bot.invite.received"

	// ErrorOccurred hook runs on transport failures, stream errors and handler failures.
	ErrorOccurred Event = "bot.error"

	// KeepAlive hook runs on every keepalive tick.
	KeepAlive Event = "bot.keepalive"

	// ElementReceived hook runs whenever a XMPP element is received.
	ElementReceived Event = "bot.element.received"

	// ElementSent hook runs whenever a XMPP element is sent.
	ElementSent Event = "bot.element.sent"

	// ElementUnhandled hook runs when a received element is not handled by the bot.
	ElementUnhandled Event = "bot.element.unhandled"
)

// ConnectionInfo contains all info associated to a connection event.
type ConnectionInfo struct {
	// JID is the session bound address.
	JID string

	// Err is the disconnection cause.
	Err error
}

// RoomInfo contains all info associated to a room event.
type RoomInfo struct {
	Room string
}

// InviteInfo contains all info associated to an invitation event.
type InviteInfo struct {
	// Room is the invitation room address.
	Room string

	// From is the inviter address.
	From string

	Reason string
}

// ErrorInfo contains all info associated to an error event.
type ErrorInfo struct {
	Err error

	// Element is the element that caused the error, if any.
	Element stravaganza.Element
}

// KeepAliveInfo contains all info associated to a keepalive event.
type KeepAliveInfo struct {
	Time time.Time
}

// ElementInfo contains all info associated to an element event.
type ElementInfo struct {
	Element stravaganza.Element
}
