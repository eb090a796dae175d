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

package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	xmppparser "github.com/tribot-xmpp/tribot/pkg/parser"
	"github.com/tribot-xmpp/tribot/pkg/util/dns"
	"mellium.im/sasl"
	"mellium.im/xmpp"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stream"
)

const (
	defaultPort        = 5222
	defaultDialTimeout = 30 * time.Second
)

// Config contains client stream configuration.
type Config struct {
	// JID is the bot account address.
	JID string `fig:"jid" validate:"required"`

	Password string `fig:"password"`

	// Host overrides the address to dial. When empty the JID domain SRV
	// records are looked up, falling back to the domain itself.
	Host string `fig:"host"`
	Port int    `fig:"port" default:"5222"`

	DisableSRV bool `fig:"disable_srv"`

	// DirectTLS establishes TLS before opening the stream instead of negotiating StartTLS.
	DirectTLS          bool `fig:"direct_tls"`
	InsecureSkipVerify bool `fig:"insecure_skip_verify"`

	Resource string `fig:"resource" default:"tribot"`

	DialTimeout  time.Duration `fig:"dial_timeout" default:"30s"`
	ReadTimeout  time.Duration `fig:"read_timeout"`
	WriteTimeout time.Duration `fig:"write_timeout" default:"10s"`
}

type srvResolver interface {
	ClientTargets(ctx context.Context, domain string, directTLS bool) ([]string, error)
}

type melliumDialer struct {
	cfg      Config
	resolver srvResolver
	dialFn   func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewDialer returns a Dialer negotiating client streams over TCP.
func NewDialer(cfg Config) Dialer {
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = defaultDialTimeout
	}
	nd := &net.Dialer{Timeout: dialTimeout}
	return &melliumDialer{
		cfg:      cfg,
		resolver: dns.NewResolver(),
		dialFn:   nd.DialContext,
	}
}

func (d *melliumDialer) Dial(ctx context.Context) (Conn, error) {
	origin, err := jid.Parse(d.cfg.JID)
	if err != nil {
		return nil, &Error{Op: "parse jid", Err: err}
	}
	if len(d.cfg.Resource) > 0 {
		origin, err = origin.WithResource(d.cfg.Resource)
		if err != nil {
			return nil, &Error{Op: "parse jid", Err: err}
		}
	}
	netConn, err := d.dialTCP(ctx, origin.Domain().String())
	if err != nil {
		return nil, &Error{Op: "dial", Err: err}
	}
	tlsCfg := &tls.Config{
		ServerName:         origin.Domain().String(),
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: d.cfg.InsecureSkipVerify,
	}
	var conn net.Conn = newDeadlineConn(netConn, d.cfg.ReadTimeout, d.cfg.WriteTimeout)

	var state xmpp.SessionState
	features := []xmpp.StreamFeature{
		xmpp.SASL("", d.cfg.Password, sasl.ScramSha256Plus, sasl.ScramSha256, sasl.ScramSha1Plus, sasl.ScramSha1, sasl.Plain),
		xmpp.BindResource(),
	}
	if d.cfg.DirectTLS {
		conn = tls.Client(conn, tlsCfg)
		state = xmpp.Secure
	} else {
		features = append([]xmpp.StreamFeature{xmpp.StartTLS(tlsCfg)}, features...)
	}
	negotiator := xmpp.NewNegotiator(func(_ *xmpp.Session, _ *xmpp.StreamConfig) xmpp.StreamConfig {
		return xmpp.StreamConfig{Features: features}
	})
	session, err := xmpp.NewSession(ctx, origin.Domain(), origin, conn, state, negotiator)
	if err != nil {
		_ = netConn.Close()
		return nil, &Error{Op: "negotiate", Err: err}
	}
	return &melliumConn{
		session: session,
		netConn: netConn,
		parser:  xmppparser.New(session.TokenReader(), xmppparser.ClientNamespace),
	}, nil
}

// dialTCP connects to the first reachable address of domain.
func (d *melliumDialer) dialTCP(ctx context.Context, domain string) (net.Conn, error) {
	addrs, err := d.addresses(ctx, domain)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, addr := range addrs {
		conn, err := d.dialFn(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (d *melliumDialer) addresses(ctx context.Context, domain string) ([]string, error) {
	port := d.cfg.Port
	if port == 0 {
		port = defaultPort
	}
	if len(d.cfg.Host) > 0 {
		return []string{net.JoinHostPort(d.cfg.Host, strconv.Itoa(port))}, nil
	}
	fallback := []string{net.JoinHostPort(domain, strconv.Itoa(port))}
	if d.cfg.DisableSRV || d.resolver == nil {
		return fallback, nil
	}
	targets, err := d.resolver.ClientTargets(ctx, domain, d.cfg.DirectTLS)
	switch {
	case errors.Is(err, dns.ErrServiceUnavailable):
		return nil, err
	case err != nil, len(targets) == 0:
		return fallback, nil
	}
	return targets, nil
}

type melliumConn struct {
	session *xmpp.Session
	netConn net.Conn
	parser  *xmppparser.Parser

	closeOnce sync.Once
}

func (c *melliumConn) Receive() (stravaganza.Element, error) {
	elem, err := c.parser.Parse()
	if err == nil {
		return elem, nil
	}
	var se stream.Error
	if errors.As(err, &se) {
		return streamErrorElement(se), nil
	}
	return nil, &Error{Op: "receive", Err: err}
}

func (c *melliumConn) Send(ctx context.Context, elem stravaganza.Element) error {
	buf := bytes.NewBuffer(nil)
	if err := elem.ToXML(buf, true); err != nil {
		return err
	}
	if err := c.session.Send(ctx, &rawTokenReader{dec: xml.NewDecoder(buf)}); err != nil {
		return &Error{Op: "send", Err: err}
	}
	return nil
}

func (c *melliumConn) LocalAddress() string {
	return c.session.LocalAddr().String()
}

func (c *melliumConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.netConn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.session.Close()
		err = c.netConn.Close()
	})
	return err
}

// rawTokenReader yields tokens as written, leaving namespace declarations untouched.
type rawTokenReader struct {
	dec *xml.Decoder
}

func (r *rawTokenReader) Token() (xml.Token, error) {
	t, err := r.dec.RawToken()
	if err != nil {
		return nil, err
	}
	return xml.CopyToken(t), nil
}

func streamErrorElement(se stream.Error) stravaganza.Element {
	return stravaganza.NewBuilder("stream:error").
		WithChild(
			stravaganza.NewBuilder(se.Err).
				WithAttribute(stravaganza.Namespace, "urn:ietf:params:xml:ns:xmpp-streams").
				Build(),
		).
		Build()
}
