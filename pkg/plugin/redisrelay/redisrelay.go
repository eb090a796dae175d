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

package redisrelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
)

// PluginName represents redis relay plugin name.
const PluginName = "redisrelay"

const (
	defaultAddr       = "localhost:6379"
	defaultOutboxSize = 256
)

// ErrOutboxFull is returned when inbound messages arrive faster than they can be published.
var ErrOutboxFull = errors.New("redisrelay: publish queue is full")

// ErrInvalidOutboundMessage is returned when a relayed payload names no recipient or carries no body.
var ErrInvalidOutboundMessage = errors.New("redisrelay: message requires a body and either a room or a user")

// Config contains redis relay plugin configuration.
type Config struct {
	// Addr is the redis server address.
	Addr string `yaml:"addr"`

	// Password is the redis server password.
	Password string `yaml:"password"`

	// DB is the redis database index.
	DB int `yaml:"db"`

	// SubscribeChannel carries messages to be posted by the bot.
	SubscribeChannel string `yaml:"subscribe_channel"`

	// PublishChannel receives every message addressed to the bot. Publishing is disabled when empty.
	PublishChannel string `yaml:"publish_channel"`

	// OutboxSize bounds the number of messages waiting to be published.
	OutboxSize int `yaml:"outbox_size"`
}

// OutboundMessage is a relayed message to be posted by the bot.
type OutboundMessage struct {
	Room string `json:"room,omitempty"`
	User string `json:"user,omitempty"`
	Body string `json:"body"`
}

// InboundMessage is a message received by the bot published to redis.
type InboundMessage struct {
	Kind     string `json:"kind"`
	FromJID  string `json:"from_jid"`
	FromNick string `json:"from_nick"`
	Room     string `json:"room,omitempty"`
	Body     string `json:"body"`
}

// RedisRelay bridges bot messages and redis pub/sub channels.
type RedisRelay struct {
	cfg    Config
	bot    plugin.Bot
	rdb    *redis.Client
	logger kitlog.Logger

	ps *redis.PubSub
	wg sync.WaitGroup

	mu        sync.Mutex
	outbox    chan []byte
	closed    bool
	pubCancel context.CancelFunc
	pubDone   chan struct{}
}

// New returns a new initialized RedisRelay instance.
func New(b plugin.Bot, cfg Config, logger kitlog.Logger) *RedisRelay {
	if len(cfg.Addr) == 0 {
		cfg.Addr = defaultAddr
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRelay(b, cfg, rdb, logger)
}

func newRelay(b plugin.Bot, cfg Config, rdb *redis.Client, logger kitlog.Logger) *RedisRelay {
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = defaultOutboxSize
	}
	return &RedisRelay{cfg: cfg, bot: b, rdb: rdb, logger: logger}
}

// Name satisfies plugin.Plugin interface.
func (r *RedisRelay) Name() string { return PluginName }

// Commands satisfies plugin.Plugin interface.
func (r *RedisRelay) Commands() []plugin.Command { return nil }

// Start satisfies plugin.Plugin interface.
func (r *RedisRelay) Start(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redisrelay: failed to reach redis server: %w", err)
	}
	if len(r.cfg.PublishChannel) > 0 {
		if err := r.bot.OnMessage(subscription.Body(subscription.MustRegexp(`(?s).*`)), r.onMessage); err != nil {
			return err
		}
		pubCtx, cancel := context.WithCancel(context.Background())
		r.outbox = make(chan []byte, r.cfg.OutboxSize)
		r.pubCancel = cancel
		r.pubDone = make(chan struct{})
		go r.publish(pubCtx)
	}
	if len(r.cfg.SubscribeChannel) > 0 {
		ps := r.rdb.Subscribe(ctx, r.cfg.SubscribeChannel)
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			return fmt.Errorf("redisrelay: failed to subscribe: %w", err)
		}
		r.ps = ps

		r.wg.Add(1)
		go r.relay(ps.Channel())
	}
	level.Info(r.logger).Log("msg", "started redis relay plugin",
		"addr", r.cfg.Addr,
		"subscribe_channel", r.cfg.SubscribeChannel,
		"publish_channel", r.cfg.PublishChannel,
	)
	return nil
}

// Stop satisfies plugin.Plugin interface.
// Queued messages are published until ctx expires.
func (r *RedisRelay) Stop(ctx context.Context) error {
	if r.outbox != nil {
		r.mu.Lock()
		r.closed = true
		close(r.outbox)
		r.mu.Unlock()

		select {
		case <-r.pubDone:
		case <-ctx.Done():
			r.pubCancel()
			<-r.pubDone
		}
		r.pubCancel()
	}
	if r.ps != nil {
		_ = r.ps.Close()
		r.wg.Wait()
	}
	if err := r.rdb.Close(); err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "stopped redis relay plugin")
	return nil
}

func (r *RedisRelay) relay(ch <-chan *redis.Message) {
	defer r.wg.Done()

	for msg := range ch {
		if err := r.post(context.Background(), msg.Payload); err != nil {
			level.Warn(r.logger).Log("msg", "failed to relay message", "channel", msg.Channel, "err", err)
		}
	}
}

func (r *RedisRelay) post(ctx context.Context, payload string) error {
	var om OutboundMessage
	if err := json.Unmarshal([]byte(payload), &om); err != nil {
		return fmt.Errorf("redisrelay: invalid payload: %w", err)
	}
	switch {
	case len(om.Body) == 0:
		return ErrInvalidOutboundMessage
	case len(om.Room) > 0:
		return r.bot.MessageRoom(ctx, om.Room, om.Body)
	case len(om.User) > 0:
		return r.bot.MessageUser(ctx, om.User, om.Body)
	default:
		return ErrInvalidOutboundMessage
	}
}

func (r *RedisRelay) onMessage(_ context.Context, msg *event.Message, _ subscription.Matches) error {
	b, err := json.Marshal(&InboundMessage{
		Kind:     string(msg.Kind),
		FromJID:  msg.FromJID,
		FromNick: msg.FromNick,
		Room:     msg.Room,
		Body:     msg.Body,
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return context.Canceled
	}
	select {
	case r.outbox <- b:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (r *RedisRelay) publish(ctx context.Context) {
	defer close(r.pubDone)

	for b := range r.outbox {
		if err := r.rdb.Publish(ctx, r.cfg.PublishChannel, b).Err(); err != nil {
			level.Warn(r.logger).Log("msg", "failed to publish message", "channel", r.cfg.PublishChannel, "err", err)
		}
	}
}
