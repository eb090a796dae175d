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

package xmpputil

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
)

const (
	// MUCNamespace is the multi-user chat namespace.
	MUCNamespace = "http://jabber.org/protocol/muc"

	// MUCUserNamespace is the multi-user chat user namespace.
	MUCUserNamespace = "http://jabber.org/protocol/muc#user"

	// PingNamespace is the XEP-0199 namespace.
	PingNamespace = "urn:xmpp:ping"

	// LeaveStatus is the status text sent along with a room leave presence.
	LeaveStatus = "hc-leave"

	availabilityID = "status1"
)

// MakeAvailability creates a presence stanza announcing the bot availability.
// status child is omitted when empty.
func MakeAvailability(show, status string) stravaganza.Element {
	b := stravaganza.NewBuilder("presence").
		WithAttribute(stravaganza.ID, availabilityID).
		WithChild(
			stravaganza.NewBuilder("show").
				WithText(show).
				Build(),
		)
	if len(status) > 0 {
		b.WithChild(
			stravaganza.NewBuilder("status").
				WithText(status).
				Build(),
		)
	}
	return b.Build()
}

// MakeJoinPresence creates a room join presence addressed to roomJID (room@muc/nick)
// requesting up to history replayed messages.
func MakeJoinPresence(roomJID string, history int) stravaganza.Element {
	return stravaganza.NewBuilder("presence").
		WithAttribute(stravaganza.To, roomJID).
		WithChild(
			stravaganza.NewBuilder("x").
				WithAttribute(stravaganza.Namespace, MUCNamespace).
				WithChild(
					stravaganza.NewBuilder("history").
						WithAttribute("maxstanzas", strconv.Itoa(history)).
						Build(),
				).
				Build(),
		).
		Build()
}

// MakeLeavePresence creates a room leave presence.
func MakeLeavePresence(from, roomJID string) stravaganza.Element {
	return stravaganza.NewBuilder("presence").
		WithAttribute(stravaganza.Type, stravaganza.UnavailableType).
		WithAttribute(stravaganza.From, from).
		WithAttribute(stravaganza.To, roomJID).
		WithChild(
			stravaganza.NewBuilder("x").
				WithAttribute(stravaganza.Namespace, MUCNamespace).
				WithChild(
					stravaganza.NewBuilder("status").
						WithText(LeaveStatus).
						Build(),
				).
				Build(),
		).
		Build()
}

// MakeMessage creates a message stanza of type typ carrying body text.
func MakeMessage(from, to, typ, body string) stravaganza.Element {
	b := stravaganza.NewBuilder("message").
		WithAttribute(stravaganza.ID, uuid.New().String()).
		WithAttribute(stravaganza.To, to).
		WithAttribute(stravaganza.Type, typ)
	if len(from) > 0 {
		b.WithAttribute(stravaganza.From, from)
	}
	return b.WithChild(
		stravaganza.NewBuilder("body").
			WithText(body).
			Build(),
	).Build()
}

// MakePing creates a XEP-0199 ping request addressed to to.
// The id attribute is assigned when the request is sent.
func MakePing(to string) stravaganza.Element {
	return stravaganza.NewBuilder("iq").
		WithAttribute(stravaganza.Type, stravaganza.GetType).
		WithAttribute(stravaganza.To, to).
		WithChild(
			stravaganza.NewBuilder("ping").
				WithAttribute(stravaganza.Namespace, PingNamespace).
				Build(),
		).
		Build()
}

// MakePingReply creates the result answering a ping request.
// Addresses are swapped and the request id is preserved. Attributes absent from req are omitted.
func MakePingReply(req stravaganza.Element) stravaganza.Element {
	b := stravaganza.NewBuilder("iq")
	if id := req.Attribute(stravaganza.ID); len(id) > 0 {
		b.WithAttribute(stravaganza.ID, id)
	}
	b.WithAttribute(stravaganza.Type, stravaganza.ResultType)
	if to := req.Attribute(stravaganza.To); len(to) > 0 {
		b.WithAttribute(stravaganza.From, to)
	}
	if from := req.Attribute(stravaganza.From); len(from) > 0 {
		b.WithAttribute(stravaganza.To, from)
	}
	return b.Build()
}

// WithID returns a copy of elem carrying id attribute.
func WithID(elem stravaganza.Element, id uint64) stravaganza.Element {
	return stravaganza.NewBuilderFromElement(elem).
		WithAttribute(stravaganza.ID, strconv.FormatUint(id, 10)).
		Build()
}

// MakeServiceUnavailable creates a service-unavailable error reply for an unsupported request.
func MakeServiceUnavailable(req stravaganza.Element) (stravaganza.Element, error) {
	iq, err := stravaganza.NewBuilderFromElement(req).BuildIQ()
	if err != nil {
		return nil, err
	}
	return stanzaerror.E(stanzaerror.ServiceUnavailable, iq).Element(), nil
}
