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

package xmppparser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackal-xmpp/stravaganza/v2"
)

const (
	streamName      = "stream"
	streamNamespace = "http://etherx.jabber.org/streams"
	xmlNamespace    = "http://www.w3.org/XML/1998/namespace"
	xmlnsPrefix     = "xmlns"

	// ClientNamespace is the default namespace of a client stream.
	ClientNamespace = "jabber:client"
)

// ErrStreamClosedByPeer will be returned by Parse when stream closed element is parsed.
var ErrStreamClosedByPeer = errors.New("parser: stream closed by peer")

// ErrTooDeep will be returned by Parse when an element exceeds the maximum nesting depth.
var ErrTooDeep = errors.New("parser: element nesting too deep")

const defaultMaxDepth = 64

type frame struct {
	b           *stravaganza.Builder
	name        string
	ns          string
	text        strings.Builder
	hasChildren bool
}

// Parser builds stanza elements out of an XML token stream positioned inside an already opened stream.
type Parser struct {
	tr        xml.TokenReader
	defaultNS string
	maxDepth  int
	stack     []*frame
}

// New creates a Parser reading from tr. Top level elements living in defaultNS
// are built without an explicit namespace attribute.
func New(tr xml.TokenReader, defaultNS string) *Parser {
	return &Parser{
		tr:        tr,
		defaultNS: defaultNS,
		maxDepth:  defaultMaxDepth,
	}
}

// Parse parses next available XML element from the token stream.
func (p *Parser) Parse() (stravaganza.Element, error) {
	for {
		t, err := p.tr.Token()
		if err != nil {
			if errors.Is(err, io.EOF) && len(p.stack) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		switch t1 := t.(type) {
		case xml.StartElement:
			if len(p.stack) >= p.maxDepth {
				return nil, ErrTooDeep
			}
			p.startElement(t1)

		case xml.CharData:
			if len(p.stack) > 0 {
				p.stack[len(p.stack)-1].text.Write(t1)
			}

		case xml.EndElement:
			if len(p.stack) == 0 {
				// end of the enclosing stream element
				return nil, ErrStreamClosedByPeer
			}
			elem, err := p.endElement(t1)
			if err != nil {
				return nil, err
			}
			if len(p.stack) == 0 {
				return elem, nil
			}
			parent := p.stack[len(p.stack)-1]
			parent.b.WithChild(elem)
			parent.hasChildren = true
		}
	}
}

func (p *Parser) startElement(t xml.StartElement) {
	parentNS := p.defaultNS
	if len(p.stack) > 0 {
		parentNS = p.stack[len(p.stack)-1].ns
	}
	name := elementName(t.Name)
	ns := namespace(t, parentNS)

	var attrs []stravaganza.Attribute
	if ns != parentNS {
		attrs = append(attrs, stravaganza.Attribute{Label: stravaganza.Namespace, Value: ns})
	}
	for _, a := range t.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == xmlnsPrefix:
			continue
		case a.Name.Space == xmlnsPrefix:
			continue
		case a.Name.Space == xmlNamespace || a.Name.Space == "xml":
			attrs = append(attrs, stravaganza.Attribute{Label: "xml:" + a.Name.Local, Value: a.Value})
		default:
			attrs = append(attrs, stravaganza.Attribute{Label: a.Name.Local, Value: a.Value})
		}
	}
	p.stack = append(p.stack, &frame{
		b:    stravaganza.NewBuilder(name).WithAttributes(attrs...),
		name: name,
		ns:   ns,
	})
}

func (p *Parser) endElement(t xml.EndElement) (stravaganza.Element, error) {
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]

	if name := elementName(t.Name); name != top.name {
		return nil, fmt.Errorf("xmppparser: unexpected end element </%s>", name)
	}
	text := top.text.String()
	if len(text) > 0 && !(top.hasChildren && len(strings.TrimSpace(text)) == 0) {
		top.b.WithText(text)
	}
	return top.b.Build(), nil
}

func elementName(n xml.Name) string {
	if n.Space == streamNamespace || n.Space == streamName {
		return streamName + ":" + n.Local
	}
	return n.Local
}

func namespace(t xml.StartElement, parentNS string) string {
	for _, a := range t.Attr {
		if a.Name.Space == "" && a.Name.Local == xmlnsPrefix {
			return a.Value
		}
	}
	switch t.Name.Space {
	case "", streamName:
		return parentNS
	case streamNamespace:
		return streamNamespace
	default:
		return t.Name.Space
	}
}
