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

package event

import (
	"github.com/jackal-xmpp/stravaganza/v2"
)

// Event is the outcome of classifying an inbound stanza.
type Event interface {
	event()
}

// MessageKind is the type attribute of a message stanza.
type MessageKind string

const (
	// ChatMessage is a one-to-one message.
	ChatMessage MessageKind = "chat"

	// GroupChatMessage is a room message.
	GroupChatMessage MessageKind = "groupchat"

	// NormalMessage is a standalone message.
	NormalMessage MessageKind = "normal"

	// HeadlineMessage is an alert style message.
	HeadlineMessage MessageKind = "headline"
)

// Message field names.
const (
	FieldType     = "type"
	FieldFromJID  = "fromJid"
	FieldFromNick = "fromNick"
	FieldRoom     = "room"
	FieldBody     = "body"
)

// Message is a conversational message addressed to the bot.
type Message struct {
	// Kind is the message type.
	Kind MessageKind

	// FromJID is the full sender address.
	FromJID string

	// FromNick is the room nickname for group messages, the sender node otherwise.
	FromNick string

	// Room is the room name, only set for group messages.
	Room string

	// Body is the message text. Group messages have the bot mention prefix removed.
	Body string

	// Stanza is the classified element.
	Stanza stravaganza.Element
}

// Field returns the value of a named message field.
// Unknown names and empty values report false.
func (m *Message) Field(name string) (string, bool) {
	var v string
	switch name {
	case FieldType:
		v = string(m.Kind)
	case FieldFromJID:
		v = m.FromJID
	case FieldFromNick:
		v = m.FromNick
	case FieldRoom:
		v = m.Room
	case FieldBody:
		v = m.Body
	}
	return v, len(v) > 0
}

// Invite is a mediated room invitation.
type Invite struct {
	Room   string
	From   string
	Reason string
}

// IQResult is a successful response to a request sent by the bot.
type IQResult struct {
	ID     uint64
	Stanza stravaganza.Element
}

// IQError is a failed response to a request sent by the bot.
type IQError struct {
	ID        uint64
	Condition string
	Stanza    stravaganza.Element
}

// PingRequest is a XEP-0199 ping addressed to the bot.
type PingRequest struct {
	Stanza stravaganza.Element
}

// Presence is a room occupant presence update.
type Presence struct {
	Room   string
	Nick   string
	Status string

	// Self is set when the presence carries the self-presence status code.
	Self bool
}

// StreamError is a stream level error sent by the server.
type StreamError struct {
	Condition string
	Text      string
}

// Ignored is a stanza deliberately dropped.
type Ignored struct {
	Reason string
}

// Malformed is a stanza that could not be interpreted.
type Malformed struct {
	Err    error
	Stanza stravaganza.Element
}

// Unhandled is a stanza no rule applies to.
type Unhandled struct {
	Stanza stravaganza.Element
}

func (*Message) event()     {}
func (*Invite) event()      {}
func (*IQResult) event()    {}
func (*IQError) event()     {}
func (*PingRequest) event() {}
func (*Presence) event()    {}
func (*StreamError) event() {}
func (*Ignored) event()     {}
func (*Malformed) event()   {}
func (*Unhandled) event()   {}
