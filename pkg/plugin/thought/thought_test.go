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
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/plugin/plugintest"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
)

func newQuoteServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			_, _ = w.Write([]byte(`{"quoteText":"Be water, my friend. ","quoteAuthor":"Bruce Lee"}`))
			return
		}
		_, _ = w.Write([]byte(`{"quoteText":"Simplicity is the ultimate sophistication.","quoteAuthor":""}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestThought_CachedPerDay(t *testing.T) {
	// given
	var hits atomic.Int32
	srv := newQuoteServer(t, &hits)

	b := plugintest.NewBot()
	th := New(b, Config{QuoteURL: srv.URL}, kitlog.NewNopLogger())

	now := time.Date(2022, 3, 1, 9, 0, 0, 0, time.UTC)
	th.nowFn = func() time.Time { return now }
	require.NoError(t, th.Start(context.Background()))
	defer func() { _ = th.Stop(context.Background()) }()

	ctx := context.Background()

	// when
	b.Deliver(ctx, plugintest.Chat("alice", "thought"))
	s1, ok1 := b.WaitSent(time.Second)

	b.Deliver(ctx, plugintest.GroupChat("lobby", "bob", "Thought"))
	s2, ok2 := b.WaitSent(time.Second)

	now = now.Add(24 * time.Hour)
	b.Deliver(ctx, plugintest.Chat("alice", "thought"))
	s3, ok3 := b.WaitSent(time.Second)

	// then
	require.True(t, ok1)
	require.True(t, ok2)
	require.True(t, ok3)
	require.Equal(t, int32(2), hits.Load())
	require.Equal(t, plugintest.Sent{To: "alice@example.com/home", Type: "chat", Body: "Be water, my friend."}, s1)
	require.Equal(t, plugintest.Sent{To: "lobby@conf.example.com", Type: "groupchat", Body: "Be water, my friend."}, s2)
	require.Equal(t, plugintest.Sent{To: "alice@example.com/home", Type: "chat", Body: "Simplicity is the ultimate sophistication."}, s3)
}

func TestThought_SlowServiceDoesNotBlockDispatch(t *testing.T) {
	// given
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quoteText":"Patience is bitter, but its fruit is sweet."}`))
	}))
	defer srv.Close()
	defer close(release)

	b := plugintest.NewBot()
	th := New(b, Config{QuoteURL: srv.URL}, kitlog.NewNopLogger())
	require.NoError(t, th.Start(context.Background()))

	var pings atomic.Int32
	require.NoError(t, b.OnMessage(subscription.Body(subscription.Equals("ping")),
		func(_ context.Context, _ *event.Message, _ subscription.Matches) error {
			pings.Add(1)
			return nil
		},
	))
	ctx := context.Background()

	// when
	dispatched := make(chan struct{})
	go func() {
		b.Deliver(ctx, plugintest.Chat("alice", "thought"))
		b.Deliver(ctx, plugintest.Chat("bob", "ping"))
		close(dispatched)
	}()

	// then
	select {
	case <-dispatched:
	case <-time.After(time.Second):
		require.Fail(t, "dispatch blocked by quote request")
	}
	require.Equal(t, int32(1), pings.Load())
	require.Empty(t, b.Sent())

	release <- struct{}{}
	sent, ok := b.WaitSent(time.Second)
	require.True(t, ok)
	require.Equal(t, "Patience is bitter, but its fruit is sweet.", sent.Body)
	require.NoError(t, th.Stop(context.Background()))
}

func TestThought_StopCancelsPendingRequest(t *testing.T) {
	// given
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	b := plugintest.NewBot()
	th := New(b, Config{QuoteURL: srv.URL, Timeout: time.Minute}, kitlog.NewNopLogger())
	require.NoError(t, th.Start(context.Background()))
	b.Deliver(context.Background(), plugintest.Chat("alice", "thought"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// when
	err := th.Stop(ctx)

	// then
	require.NoError(t, err)
	require.Empty(t, b.Sent())
	require.Len(t, b.Deliver(context.Background(), plugintest.Chat("alice", "thought")), 1)
}

func TestThought_DayFollowsBotTimezone(t *testing.T) {
	// given
	var hits atomic.Int32
	srv := newQuoteServer(t, &hits)

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	b := plugintest.NewBot()
	b.SetLocation(tokyo)
	th := New(b, Config{QuoteURL: srv.URL}, kitlog.NewNopLogger())

	now := time.Date(2022, 3, 1, 14, 0, 0, 0, time.UTC)
	th.nowFn = func() time.Time { return now }

	// when
	q1, err1 := th.quoteOfTheDay(context.Background())

	// 16:00 UTC is already the next day in Tokyo
	now = time.Date(2022, 3, 1, 16, 0, 0, 0, time.UTC)
	q2, err2 := th.quoteOfTheDay(context.Background())

	// then
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NotEqual(t, q1, q2)
	require.Equal(t, int32(2), hits.Load())
}

func TestThought_Broadcast(t *testing.T) {
	// given
	var hits atomic.Int32
	srv := newQuoteServer(t, &hits)

	b := plugintest.NewBot()
	th := New(b, Config{Room: "origami-internal", QuoteURL: srv.URL}, kitlog.NewNopLogger())

	// when
	err := th.broadcast(context.Background())

	// then
	require.NoError(t, err)
	require.Equal(t, []plugintest.Sent{{
		To:   "origami-internal@conf.example.com",
		Type: "groupchat",
		Body: "Be water, my friend.\nLet us begin a new day.",
	}}, b.Sent())
}

func TestThought_ScheduledStartStop(t *testing.T) {
	// given
	b := plugintest.NewBot()
	th := New(b, Config{Room: "lobby", Schedule: "*/5 * * * *"}, kitlog.NewNopLogger())

	// when
	startErr := th.Start(context.Background())
	stopErr := th.Stop(context.Background())

	// then
	require.NoError(t, startErr)
	require.NoError(t, stopErr)
	require.Len(t, th.cron.Entries(), 1)
}

func TestThought_InvalidSchedule(t *testing.T) {
	// given
	th := New(plugintest.NewBot(), Config{Room: "lobby", Schedule: "every day"}, kitlog.NewNopLogger())

	// when
	err := th.Start(context.Background())

	// then
	require.Error(t, err)
}

func TestThought_ServiceFailure(t *testing.T) {
	// given
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b := plugintest.NewBot()
	th := New(b, Config{QuoteURL: srv.URL}, kitlog.NewNopLogger())
	require.NoError(t, th.Start(context.Background()))

	// when
	errs := b.Deliver(context.Background(), plugintest.Chat("alice", "thought"))
	require.NoError(t, th.Stop(context.Background()))

	// then
	require.Empty(t, errs)
	require.Empty(t, b.Sent())
}

func TestThought_CircuitBreakerOpens(t *testing.T) {
	// given
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := plugintest.NewBot()
	th := New(b, Config{QuoteURL: srv.URL}, kitlog.NewNopLogger())
	ctx := context.Background()

	// when
	for i := 0; i < breakerFailures; i++ {
		_, err := th.quoteOfTheDay(ctx)
		require.Error(t, err)
	}
	_, err := th.quoteOfTheDay(ctx)

	// then
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, int32(breakerFailures), hits.Load())
}
