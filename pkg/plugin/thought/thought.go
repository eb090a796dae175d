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

package thought

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/robfig/cron/v3"
	"github.com/sony/gobreaker"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
)

// PluginName represents thought plugin name.
const PluginName = "thought"

const (
	defaultSchedule = "0 9 * 1-6 *"
	defaultQuoteURL = "http://api.forismatic.com/api/1.0/?method=getQuote&format=json&lang=en"
	defaultTimeout  = 10 * time.Second

	// quote requests are rejected for breakerTimeout after breakerFailures consecutive failures.
	breakerFailures = 3
	breakerTimeout  = time.Minute

	broadcastSuffix = "\nLet us begin a new day."
	dayLayout       = "2006-01-02"
)

// ErrEmptyQuote is returned when the quote service answers without a quote.
var ErrEmptyQuote = errors.New("thought: empty quote")

// Config contains thought plugin configuration.
type Config struct {
	// Room receives the scheduled quote of the day. Broadcasting is disabled when empty.
	Room string `yaml:"room"`

	// Schedule is a standard five field cron expression evaluated in the bot time zone.
	Schedule string `yaml:"schedule"`

	// QuoteURL is the quote service endpoint.
	QuoteURL string `yaml:"quote_url"`

	// Timeout bounds quote requests.
	Timeout time.Duration `yaml:"timeout"`
}

type quoteResponse struct {
	QuoteText   string `json:"quoteText"`
	QuoteAuthor string `json:"quoteAuthor"`
}

// Thought serves a quote of the day on demand and on a schedule.
type Thought struct {
	cfg    Config
	bot    plugin.Bot
	client *http.Client
	cb     *gobreaker.CircuitBreaker
	logger kitlog.Logger
	nowFn  func() time.Time

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// fetchMu serializes quote requests. mu never guards network calls.
	fetchMu sync.Mutex
	mu      sync.Mutex
	quote   string
	day     string
	stopped bool
}

// New returns a new initialized Thought instance.
func New(b plugin.Bot, cfg Config, logger kitlog.Logger) *Thought {
	if len(cfg.Schedule) == 0 {
		cfg.Schedule = defaultSchedule
	}
	if len(cfg.QuoteURL) == 0 {
		cfg.QuoteURL = defaultQuoteURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Thought{
		cfg:    cfg,
		bot:    b,
		client: &http.Client{Timeout: cfg.Timeout},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "quote_service",
			Timeout: breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				level.Warn(logger).Log("msg", "quote service circuit breaker changed state", "from", from.String(), "to", to.String())
			},
		}),
		logger: logger,
		nowFn:  time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Name satisfies plugin.Plugin interface.
func (t *Thought) Name() string { return PluginName }

// Commands satisfies plugin.Plugin interface.
func (t *Thought) Commands() []plugin.Command {
	return []plugin.Command{{Usage: "thought", Description: "Speak thought for the day"}}
}

// Start satisfies plugin.Plugin interface.
func (t *Thought) Start(_ context.Context) error {
	if err := t.bot.OnMessage(subscription.Body(subscription.Equals("thought")), t.onThought); err != nil {
		return err
	}
	if len(t.cfg.Room) > 0 {
		c := cron.New(
			cron.WithLocation(t.bot.Location()),
			cron.WithLogger(&cronLogger{logger: t.logger}),
		)
		if _, err := c.AddFunc(t.cfg.Schedule, t.onSchedule); err != nil {
			return fmt.Errorf("thought: invalid schedule: %w", err)
		}
		c.Start()
		t.cron = c
	}
	level.Info(t.logger).Log("msg", "started thought plugin", "room", t.cfg.Room, "schedule", t.cfg.Schedule)
	return nil
}

// Stop satisfies plugin.Plugin interface.
func (t *Thought) Stop(ctx context.Context) error {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	t.cancel()

	var cronDone context.Context
	if t.cron != nil {
		cronDone = t.cron.Stop()
	}
	replied := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(replied)
	}()
	select {
	case <-replied:
	case <-ctx.Done():
		return ctx.Err()
	}
	if cronDone != nil {
		select {
		case <-cronDone.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	level.Info(t.logger).Log("msg", "stopped thought plugin")
	return nil
}

// onThought answers from the cache when possible. Otherwise the quote is
// requested in the background and the reply is sent once it arrives.
func (t *Thought) onThought(ctx context.Context, msg *event.Message, _ subscription.Matches) error {
	today := t.today()
	if quote, ok := t.cachedQuote(today); ok {
		return t.bot.Reply(ctx, msg, quote)
	}
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return context.Canceled
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()

		fetchCtx, cancel := context.WithTimeout(t.ctx, t.cfg.Timeout)
		defer cancel()

		quote, err := t.quoteFor(fetchCtx, today)
		if err != nil {
			level.Warn(t.logger).Log("msg", "failed to fetch thought", "from", msg.FromJID, "err", err)
			return
		}
		if err := t.bot.Reply(fetchCtx, msg, quote); err != nil {
			level.Warn(t.logger).Log("msg", "failed to reply thought", "from", msg.FromJID, "err", err)
		}
	}()
	return nil
}

func (t *Thought) onSchedule() {
	ctx, cancel := context.WithTimeout(t.ctx, t.cfg.Timeout)
	defer cancel()

	if err := t.broadcast(ctx); err != nil {
		level.Warn(t.logger).Log("msg", "failed to broadcast thought", "room", t.cfg.Room, "err", err)
	}
}

func (t *Thought) broadcast(ctx context.Context) error {
	quote, err := t.quoteOfTheDay(ctx)
	if err != nil {
		return err
	}
	return t.bot.MessageRoom(ctx, t.cfg.Room, quote+broadcastSuffix)
}

func (t *Thought) quoteOfTheDay(ctx context.Context) (string, error) {
	return t.quoteFor(ctx, t.today())
}

func (t *Thought) quoteFor(ctx context.Context, today string) (string, error) {
	if quote, ok := t.cachedQuote(today); ok {
		return quote, nil
	}
	t.fetchMu.Lock()
	defer t.fetchMu.Unlock()

	// a concurrent request may have filled the cache meanwhile
	if quote, ok := t.cachedQuote(today); ok {
		return quote, nil
	}
	quote, err := t.fetchQuote(ctx)
	if err != nil {
		return "", err
	}
	t.mu.Lock()
	t.quote, t.day = quote, today
	t.mu.Unlock()
	return quote, nil
}

func (t *Thought) cachedQuote(today string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.quote, len(t.quote) > 0 && t.day == today
}

func (t *Thought) today() string {
	return t.nowFn().In(t.bot.Location()).Format(dayLayout)
}

func (t *Thought) fetchQuote(ctx context.Context) (string, error) {
	quote, err := t.cb.Execute(func() (interface{}, error) {
		return t.requestQuote(ctx)
	})
	if err != nil {
		return "", err
	}
	return quote.(string), nil
}

func (t *Thought) requestQuote(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.QuoteURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("thought: quote request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("thought: unexpected quote response status: %d", resp.StatusCode)
	}
	var qr quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return "", fmt.Errorf("thought: invalid quote response: %w", err)
	}
	quote := strings.TrimSpace(qr.QuoteText)
	if len(quote) == 0 {
		return "", ErrEmptyQuote
	}
	return quote, nil
}

type cronLogger struct {
	logger kitlog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	level.Debug(l.logger).Log(append([]interface{}{"msg", "cron: " + msg}, keysAndValues...)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	level.Error(l.logger).Log(append([]interface{}{"msg", "cron: " + msg, "err", err}, keysAndValues...)...)
}
