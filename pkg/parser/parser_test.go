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
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/stretchr/testify/require"
)

func newTestParser(doc string) *Parser {
	return New(xml.NewDecoder(strings.NewReader(doc)), ClientNamespace)
}

func toXML(t *testing.T, elem stravaganza.Element) string {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	require.NoError(t, elem.ToXML(buf, true))
	return buf.String()
}

func TestParser_ParseSeveralElements(t *testing.T) {
	// given
	p := newTestParser(`<a/><b/><c/>`)

	// when
	a, err1 := p.Parse()
	b, err2 := p.Parse()
	c, err3 := p.Parse()
	_, err4 := p.Parse()

	// then
	require.Nil(t, err1)
	require.Nil(t, err2)
	require.Nil(t, err3)
	require.Equal(t, "a", a.Name())
	require.Equal(t, "b", b.Name())
	require.Equal(t, "c", c.Name())
	require.Equal(t, io.EOF, err4)
}

func TestParser_DocChildElements(t *testing.T) {
	// given
	p := newTestParser("<parent>\n  <a/>\n  <b/>\n  <c/>\n</parent>")

	// when
	elem, err := p.Parse()

	// then
	require.Nil(t, err)
	require.NotNil(t, elem)

	children := elem.AllChildren()
	require.Len(t, children, 3)
	require.Equal(t, "a", children[0].Name())
	require.Equal(t, "b", children[1].Name())
	require.Equal(t, "c", children[2].Name())
	require.Empty(t, elem.Text())
}

func TestParser_Namespaces(t *testing.T) {
	// given
	p := newTestParser(`<message xmlns="jabber:client" type="groupchat" from="lobby@conf.example.com/bob"><body>@tribot hi</body><delay xmlns="urn:xmpp:delay" stamp="2021-02-15T15:00:00Z"/></message>`)

	// when
	elem, err := p.Parse()

	// then
	require.Nil(t, err)
	require.Equal(t, `<message type="groupchat" from="lobby@conf.example.com/bob"><body>@tribot hi</body><delay xmlns="urn:xmpp:delay" stamp="2021-02-15T15:00:00Z"/></message>`, toXML(t, elem))
	require.Equal(t, "@tribot hi", elem.Child("body").Text())
	require.NotNil(t, elem.ChildNamespace("delay", "urn:xmpp:delay"))
}

func TestParser_XMLLangAttribute(t *testing.T) {
	// given
	p := newTestParser(`<message xml:lang="en"><body>hi</body></message>`)

	// when
	elem, err := p.Parse()

	// then
	require.Nil(t, err)
	require.Equal(t, "en", elem.Attribute("xml:lang"))
}

func TestParser_StreamError(t *testing.T) {
	// given
	p := newTestParser(`<stream:error xmlns:stream="http://etherx.jabber.org/streams"><conflict xmlns="urn:ietf:params:xml:ns:xmpp-streams"/></stream:error>`)

	// when
	elem, err := p.Parse()

	// then
	require.Nil(t, err)
	require.Equal(t, "stream:error", elem.Name())
	require.NotNil(t, elem.ChildNamespace("conflict", "urn:ietf:params:xml:ns:xmpp-streams"))
}

func TestParser_StreamClosedByPeer(t *testing.T) {
	// given
	p := newTestParser(`<stream:stream xmlns:stream="http://etherx.jabber.org/streams"><a/></stream:stream>`)
	// skip the stream opening the way a session token reader does
	_, _ = p.tr.Token()

	// when
	a, err1 := p.Parse()
	_, err2 := p.Parse()

	// then
	require.Nil(t, err1)
	require.Equal(t, "a", a.Name())
	require.Equal(t, ErrStreamClosedByPeer, err2)
}

func TestParser_UnexpectedEOF(t *testing.T) {
	// given
	p := New(&sliceTokenReader{tokens: []xml.Token{
		xml.StartElement{Name: xml.Name{Local: "message"}},
		xml.CharData("hi"),
	}}, ClientNamespace)

	// when
	elem, err := p.Parse()

	// then
	require.Nil(t, elem)
	require.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestParser_TooDeep(t *testing.T) {
	// given
	p := newTestParser(strings.Repeat("<a>", defaultMaxDepth+1))

	// when
	_, err := p.Parse()

	// then
	require.Equal(t, ErrTooDeep, err)
}

type sliceTokenReader struct {
	tokens []xml.Token
}

func (r *sliceTokenReader) Token() (xml.Token, error) {
	if len(r.tokens) == 0 {
		return nil, io.EOF
	}
	t := r.tokens[0]
	r.tokens = r.tokens[1:]
	return t, nil
}
