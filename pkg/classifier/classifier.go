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

package classifier

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/tribot-xmpp/tribot/pkg/event"
	xmpputil "github.com/tribot-xmpp/tribot/pkg/util/xmpp"
)

const (
	availableStatus  = "available"
	selfPresenceCode = "110"
	unknownCondition = "unknown"

	streamErrorName = "stream:error"
)

// ErrMalformedStanza is reported when a stanza sender address can not be parsed.
var ErrMalformedStanza = errors.New("classifier: malformed stanza")

// Classifier turns inbound stanzas into typed events.
type Classifier struct {
	name    string
	mucHost string
	mention *regexp.Regexp
}

// New returns a Classifier for a bot called name whose rooms live at mucHost.
func New(name, mucHost string) *Classifier {
	q := regexp.QuoteMeta(name)
	return &Classifier{
		name:    name,
		mucHost: mucHost,
		mention: regexp.MustCompile(`(?s)^(@` + q + `:?|@?` + q + `:)\s+(.*)$`),
	}
}

// Classify maps elem into an event. It never returns nil.
func (c *Classifier) Classify(elem stravaganza.Element) event.Event {
	switch elem.Name() {
	case "message":
		return c.classifyMessage(elem)
	case "iq":
		return c.classifyIQ(elem)
	case "presence":
		return c.classifyPresence(elem)
	case streamErrorName:
		return classifyStreamError(elem)
	default:
		return &event.Unhandled{Stanza: elem}
	}
}

func (c *Classifier) classifyMessage(elem stravaganza.Element) event.Event {
	typ := elem.Attribute(stravaganza.Type)
	switch typ {
	case "":
		if x := elem.ChildNamespace("x", xmpputil.MUCUserNamespace); x != nil {
			if inv := x.Child("invite"); inv != nil {
				var reason string
				if r := inv.Child("reason"); r != nil {
					reason = r.Text()
				}
				return &event.Invite{
					Room:   elem.Attribute(stravaganza.From),
					From:   inv.Attribute(stravaganza.From),
					Reason: reason,
				}
			}
		}
		return &event.Unhandled{Stanza: elem}

	case stravaganza.ErrorType:
		return &event.Ignored{Reason: "message bounce"}
	}
	if elem.Child("delay") != nil {
		return &event.Ignored{Reason: "delayed message"}
	}
	body := elem.Child("body")
	if body == nil || len(body.Text()) == 0 {
		return &event.Ignored{Reason: "empty body"}
	}
	from, err := senderJID(elem)
	if err != nil {
		return &event.Malformed{Err: err, Stanza: elem}
	}
	msg := &event.Message{
		Kind:    event.MessageKind(typ),
		FromJID: from.String(),
		Body:    body.Text(),
		Stanza:  elem,
	}
	if msg.Kind != event.GroupChatMessage {
		msg.FromNick = from.Node()
		if msg.FromNick == c.name {
			return &event.Ignored{Reason: "self echo"}
		}
		return msg
	}
	msg.Room = from.Node()
	msg.FromNick = from.Resource()
	switch {
	case len(msg.FromNick) == 0:
		return &event.Ignored{Reason: "room message without occupant"}
	case msg.FromNick == c.name:
		return &event.Ignored{Reason: "self echo"}
	}
	m := c.mention.FindStringSubmatch(msg.Body)
	if m == nil {
		return &event.Ignored{Reason: "not addressed to bot"}
	}
	msg.Body = m[2]
	return msg
}

func (c *Classifier) classifyIQ(elem stravaganza.Element) event.Event {
	switch elem.Attribute(stravaganza.Type) {
	case stravaganza.ResultType:
		id, err := strconv.ParseUint(elem.Attribute(stravaganza.ID), 10, 64)
		if err != nil {
			return &event.Unhandled{Stanza: elem}
		}
		return &event.IQResult{ID: id, Stanza: elem}

	case stravaganza.ErrorType:
		id, err := strconv.ParseUint(elem.Attribute(stravaganza.ID), 10, 64)
		if err != nil {
			return &event.Unhandled{Stanza: elem}
		}
		return &event.IQError{ID: id, Condition: errorCondition(elem.Child("error")), Stanza: elem}

	case stravaganza.GetType:
		if elem.Child("ping") != nil {
			return &event.PingRequest{Stanza: elem}
		}
	}
	return &event.Unhandled{Stanza: elem}
}

func (c *Classifier) classifyPresence(elem stravaganza.Element) event.Event {
	status := elem.Attribute(stravaganza.Type)
	switch status {
	case "":
		status = availableStatus
	case availableStatus, stravaganza.UnavailableType:
	default:
		return &event.Unhandled{Stanza: elem}
	}
	from, err := senderJID(elem)
	if err != nil {
		return &event.Malformed{Err: err, Stanza: elem}
	}
	if from.Domain() != c.mucHost || len(from.Resource()) == 0 {
		return &event.Ignored{Reason: "presence not from room occupant"}
	}
	var self bool
	if x := elem.ChildNamespace("x", xmpputil.MUCUserNamespace); x != nil {
		for _, st := range x.Children("status") {
			if st.Attribute("code") == selfPresenceCode {
				self = true
				break
			}
		}
	}
	return &event.Presence{
		Room:   from.Node(),
		Nick:   from.Resource(),
		Status: status,
		Self:   self,
	}
}

func classifyStreamError(elem stravaganza.Element) event.Event {
	var text string
	if t := elem.Child("text"); t != nil {
		text = t.Text()
	}
	return &event.StreamError{
		Condition: errorCondition(elem),
		Text:      text,
	}
}

// errorCondition returns the name of the first defined condition child of errElem.
func errorCondition(errElem stravaganza.Element) string {
	if errElem == nil {
		return unknownCondition
	}
	for _, ch := range errElem.AllChildren() {
		if ch.Name() != "text" {
			return ch.Name()
		}
	}
	return unknownCondition
}

func senderJID(elem stravaganza.Element) (*jid.JID, error) {
	from := elem.Attribute(stravaganza.From)
	if len(from) == 0 {
		return nil, fmt.Errorf("%w: missing sender", ErrMalformedStanza)
	}
	j, err := jid.NewWithString(from, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStanza, err)
	}
	return j, nil
}
