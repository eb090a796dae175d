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
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/runqueue/v2"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/tribot-xmpp/tribot/pkg/classifier"
	"github.com/tribot-xmpp/tribot/pkg/hook"
	"github.com/tribot-xmpp/tribot/pkg/iq"
	"github.com/tribot-xmpp/tribot/pkg/room"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
	"github.com/tribot-xmpp/tribot/pkg/transport"
	xmpputil "github.com/tribot-xmpp/tribot/pkg/util/xmpp"
	"golang.org/x/time/rate"
)

const (
	defaultKeepAliveInterval = 30 * time.Second
	defaultShow              = "chat"

	// maxReconnectDelay caps the backoff when no max delay is configured.
	maxReconnectDelay = 5 * time.Minute

	mucHostPrefix = "conf."
)

// State represents a connection lifecycle state.
type State int32

const (
	// Disconnected is the state before Start and after Stop.
	Disconnected State = iota

	// Connecting is the state while a stream is being established.
	Connecting

	// Online is the state while a stream is established.
	Online

	// Offline is the state after a stream dropped and before reconnecting.
	Offline
)

// String returns State string representation.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Online:
		return "online"
	case Offline:
		return "offline"
	}
	return ""
}

var (
	// ErrNotConnected is returned when sending while no stream is established.
	ErrNotConnected = errors.New("bot: not connected")

	// ErrAlreadyStarted is returned by Start when the bot is running.
	ErrAlreadyStarted = errors.New("bot: already started")
)

// StreamError is reported when the server sends a stream level error.
type StreamError struct {
	Condition string
	Text      string
}

// Error satisfies error interface.
func (e *StreamError) Error() string {
	if len(e.Text) > 0 {
		return fmt.Sprintf("bot: stream error: %s (%s)", e.Condition, e.Text)
	}
	return fmt.Sprintf("bot: stream error: %s", e.Condition)
}

// Bot is a chat automation agent bound to a single account.
type Bot struct {
	cfg     Config
	account *jid.JID
	name    string
	host    string
	mucHost string
	loc     *time.Location

	dialer     transport.Dialer
	classifier *classifier.Classifier
	rooms      *room.Store
	iqs        *iq.Table
	subs       *subscription.Registry
	hk         *hook.Hooks
	rq         *runqueue.RunQueue
	limiter    *rate.Limiter
	logger     kitlog.Logger

	iqID  atomic.Uint64
	state atomic.Int32

	mu      sync.RWMutex
	conn    transport.Conn
	desired []string
	show    string
	status  string
	cancel  context.CancelFunc
	doneCh  chan struct{}

	sendMu sync.Mutex
}

// New creates a new Bot for account accountJID using dialer to establish streams.
func New(accountJID string, cfg Config, dialer transport.Dialer, hk *hook.Hooks, logger kitlog.Logger) (*Bot, error) {
	account, err := jid.NewWithString(accountJID, false)
	if err != nil {
		return nil, fmt.Errorf("bot: invalid account address: %w", err)
	}
	loc := time.UTC
	if len(cfg.Timezone) > 0 {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("bot: invalid timezone: %w", err)
		}
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = defaultKeepAliveInterval
	}
	name := cfg.Name
	if len(name) == 0 {
		name = account.Node()
	}
	mucHost := cfg.MUCHost
	if len(mucHost) == 0 {
		mucHost = mucHostPrefix + account.Domain()
	}
	limit := rate.Inf
	if cfg.SendRate.Limit > 0 {
		limit = rate.Limit(cfg.SendRate.Limit)
	}
	burst := cfg.SendRate.Burst
	if burst <= 0 {
		burst = 1
	}
	if hk == nil {
		hk = hook.NewHooks()
	}
	b := &Bot{
		cfg:        cfg,
		account:    account,
		name:       name,
		host:       account.Domain(),
		mucHost:    mucHost,
		loc:        loc,
		dialer:     dialer,
		classifier: classifier.New(name, mucHost),
		rooms:      room.NewStore(),
		iqs:        iq.NewTable(),
		subs:       subscription.NewRegistry(),
		hk:         hk,
		rq:         runqueue.New("bot:" + name),
		limiter:    rate.NewLimiter(limit, burst),
		logger:     kitlog.With(logger, "bot", name),
		show:       defaultShow,
	}
	for _, r := range cfg.Rooms {
		b.addDesired(b.roomName(r))
	}
	return b, nil
}

// Name returns the bot nickname.
func (b *Bot) Name() string { return b.name }

// Host returns the account domain.
func (b *Bot) Host() string { return b.host }

// MUCHost returns the rooms service domain.
func (b *Bot) MUCHost() string { return b.mucHost }

// Location returns the configured time zone.
func (b *Bot) Location() *time.Location { return b.loc }

// State returns current connection state.
func (b *Bot) State() State { return State(b.state.Load()) }

// JoinedRooms returns the sorted names of the rooms the bot is a confirmed member of.
func (b *Bot) JoinedRooms() []string { return b.rooms.JoinedRooms() }

// Occupants returns a copy of the known occupants of a room.
func (b *Bot) Occupants(roomName string) map[string]string {
	return b.rooms.Occupants(b.roomName(roomName))
}

// Start spins up the connection loop. It returns immediately, connection progress is reported through hooks.
func (b *Bot) Start(_ context.Context) error {
	b.mu.Lock()
	if b.cancel != nil {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.doneCh = make(chan struct{})
	doneCh := b.doneCh
	b.mu.Unlock()

	go b.run(ctx, doneCh)

	level.Info(b.logger).Log("msg", "started bot", "jid", b.account.String(), "muc_host", b.mucHost)
	return nil
}

// Stop halts the connection loop, closing the current stream if any.
// No reconnection is attempted once Stop has been called.
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	cancel := b.cancel
	doneCh := b.doneCh
	conn := b.conn
	if cancel != nil {
		cancel()
	}
	b.mu.Unlock()

	if cancel == nil {
		return nil
	}
	if conn != nil {
		_ = conn.Close()
	}
	select {
	case <-doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	// readLoop waits for every job it schedules, so nothing is pending once doneCh is closed.
	b.rq.Stop(func() {})

	level.Info(b.logger).Log("msg", "stopped bot")
	return nil
}

func (b *Bot) run(ctx context.Context, doneCh chan struct{}) {
	defer close(doneCh)

	delay := b.cfg.Reconnect.InitialDelay
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			reportReconnect(b.name)
		}
		b.setState(Connecting)

		wentOnline := b.connect(ctx)
		if ctx.Err() != nil {
			break
		}
		if wentOnline {
			delay = b.cfg.Reconnect.InitialDelay
		}
		if delay > 0 {
			level.Info(b.logger).Log("msg", "waiting before reconnecting", "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
			delay = nextDelay(delay, b.cfg.Reconnect.MaxDelay)
		}
	}
	b.setState(Disconnected)
}

// connect establishes a stream and serves it until it drops.
// It returns true if the stream went online.
func (b *Bot) connect(ctx context.Context) bool {
	conn, err := b.dialer.Dial(ctx)
	if err != nil {
		if ctx.Err() == nil {
			b.reportError(ctx, err, nil)
		}
		return false
	}
	if !b.setConn(ctx, conn) {
		_ = conn.Close()
		return false
	}
	sessCtx, sessCancel := context.WithCancel(ctx)
	b.goOnline(sessCtx, conn)

	err = b.readLoop(sessCtx, conn)

	sessCancel()
	b.clearConn()
	_ = conn.Close()

	if ctx.Err() == nil {
		b.goOffline(ctx, err)
	}
	return true
}

func (b *Bot) goOnline(ctx context.Context, conn transport.Conn) {
	b.setState(Online)
	level.Info(b.logger).Log("msg", "bot is online", "jid", conn.LocalAddress())

	show, status := b.availability()
	if err := b.send(ctx, xmpputil.MakeAvailability(show, status)); err != nil {
		level.Warn(b.logger).Log("msg", "failed to send availability", "err", err)
	}
	go b.keepAlive(ctx)

	for _, r := range b.desiredRooms() {
		if err := b.sendJoin(ctx, r, b.cfg.History); err != nil {
			level.Warn(b.logger).Log("msg", "failed to join room", "room", r, "err", err)
		}
	}
	b.runHook(ctx, hook.Connected, &hook.ConnectionInfo{JID: conn.LocalAddress()})
}

func (b *Bot) goOffline(ctx context.Context, cause error) {
	b.setState(Offline)
	b.rooms.MarkAllLeft()
	reportJoinedRooms(b.name, 0)

	level.Warn(b.logger).Log("msg", "connection lost", "err", cause)
	b.runHook(ctx, hook.Disconnected, &hook.ConnectionInfo{JID: b.account.String(), Err: cause})
	b.reportError(ctx, cause, nil)
}

func (b *Bot) readLoop(ctx context.Context, conn transport.Conn) error {
	for {
		elem, err := conn.Receive()
		if err != nil {
			return err
		}
		doneCh := make(chan struct{})
		b.rq.Run(func() {
			defer close(doneCh)
			defer func() {
				if r := recover(); r != nil {
					level.Error(b.logger).Log("msg", "panic while handling element", "panic", r)
				}
			}()
			b.handleElement(ctx, elem)
		})
		<-doneCh
	}
}

func (b *Bot) keepAlive(ctx context.Context) {
	tc := time.NewTicker(b.cfg.KeepAliveInterval)
	defer tc.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-tc.C:
			show, status := b.availability()
			if err := b.send(ctx, xmpputil.MakeAvailability(show, status)); err != nil {
				level.Warn(b.logger).Log("msg", "failed to send keepalive", "err", err)
				continue
			}
			b.runHook(ctx, hook.KeepAlive, &hook.KeepAliveInfo{Time: t})
		}
	}
}

func (b *Bot) setState(st State) {
	b.state.Store(int32(st))
	reportState(b.name, st)
}

func (b *Bot) setConn(ctx context.Context, conn transport.Conn) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	b.conn = conn
	return true
}

func (b *Bot) clearConn() {
	b.mu.Lock()
	b.conn = nil
	b.mu.Unlock()
}

func (b *Bot) currentConn() transport.Conn {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn
}

func (b *Bot) availability() (show, status string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.show, b.status
}

func (b *Bot) desiredRooms() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rooms := make([]string, len(b.desired))
	copy(rooms, b.desired)
	return rooms
}

func (b *Bot) addDesired(roomName string) {
	for _, r := range b.desired {
		if r == roomName {
			return
		}
	}
	b.desired = append(b.desired, roomName)
}

func (b *Bot) removeDesired(roomName string) {
	for i, r := range b.desired {
		if r == roomName {
			b.desired = append(b.desired[:i], b.desired[i+1:]...)
			return
		}
	}
}

// roomName returns the local part of a room address.
func (b *Bot) roomName(r string) string {
	if i := strings.IndexByte(r, '@'); i >= 0 {
		return r[:i]
	}
	return r
}

func (b *Bot) roomJID(roomName string) string {
	return roomName + "@" + b.mucHost
}

func (b *Bot) runHook(ctx context.Context, hk hook.Event, info interface{}) {
	_, err := b.hk.Run(ctx, hk, &hook.ExecutionContext{Info: info, Sender: b})
	var pErr *hook.PanicError
	switch {
	case err == nil:
	case errors.As(err, &pErr):
		level.Error(b.logger).Log("msg", "hook handler panicked", "hook", hk, "err", fmt.Sprintf("%+v", pErr.Err))
	default:
		level.Warn(b.logger).Log("msg", "hook handler failed", "hook", hk, "err", err)
	}
}

func (b *Bot) reportError(ctx context.Context, err error, elem stravaganza.Element) {
	var tErr *transport.Error
	if errors.As(err, &tErr) {
		level.Warn(b.logger).Log("msg", "transport error", "err", err)
	} else {
		level.Error(b.logger).Log("msg", "bot error", "err", err)
	}
	b.runHook(ctx, hook.ErrorOccurred, &hook.ErrorInfo{Err: err, Element: elem})
}

func nextDelay(d, max time.Duration) time.Duration {
	if max <= 0 {
		max = maxReconnectDelay
	}
	if d >= max/2 {
		return max
	}
	return d * 2
}
