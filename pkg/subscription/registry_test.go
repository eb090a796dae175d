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

package subscription

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tribot-xmpp/tribot/pkg/event"
)

func groupMessage(body string) *event.Message {
	return &event.Message{
		Kind:     event.GroupChatMessage,
		FromJID:  "lobby@conf.example.com/bob",
		FromNick: "bob",
		Room:     "lobby",
		Body:     body,
	}
}

func TestRegistry_RegexCaseInsensitive(t *testing.T) {
	// given
	r := NewRegistry()

	var got Matches
	err := r.Subscribe(Body(MustRegexp(`^echo (.+)$`)), func(_ context.Context, _ *event.Message, m Matches) error {
		got = m
		return nil
	})
	require.NoError(t, err)

	// when
	errs := r.Dispatch(context.Background(), groupMessage("ECHO Hello"))

	// then
	require.Empty(t, errs)
	require.Equal(t, []string{"ECHO Hello", "Hello"}, got[event.FieldBody])
}

func TestRegistry_StringCaseInsensitive(t *testing.T) {
	// given
	r := NewRegistry()

	var calls int
	_ = r.Subscribe(Body(Equals("list rooms")), func(context.Context, *event.Message, Matches) error {
		calls++
		return nil
	})

	// when
	r.Dispatch(context.Background(), groupMessage("List Rooms"))
	r.Dispatch(context.Background(), groupMessage("list rooms please"))

	// then
	require.Equal(t, 1, calls)
}

func TestRegistry_DispatchAllMatchesInOrder(t *testing.T) {
	// given
	r := NewRegistry()

	var order []int
	_ = r.Subscribe(Body(MustRegexp(`^help`)), func(context.Context, *event.Message, Matches) error {
		order = append(order, 0)
		return nil
	})
	_ = r.Subscribe(Body(MustRegexp(`^nope`)), func(context.Context, *event.Message, Matches) error {
		order = append(order, 1)
		return nil
	})
	_ = r.Subscribe(Body(MustRegexp(`.*`)), func(context.Context, *event.Message, Matches) error {
		order = append(order, 2)
		return nil
	})

	// when
	errs := r.Dispatch(context.Background(), groupMessage("help me"))

	// then
	require.Empty(t, errs)
	require.Equal(t, []int{0, 2}, order)
}

func TestRegistry_AllConditionsMustHold(t *testing.T) {
	// given
	r := NewRegistry()

	var calls int
	_ = r.Subscribe(Conditions{
		event.FieldType: Equals("groupchat"),
		event.FieldRoom: Equals("lobby"),
		event.FieldBody: MustRegexp(`^go away$`),
	}, func(context.Context, *event.Message, Matches) error {
		calls++
		return nil
	})

	chat := &event.Message{Kind: event.ChatMessage, FromNick: "bob", Body: "go away"}

	// when
	r.Dispatch(context.Background(), groupMessage("go away"))
	r.Dispatch(context.Background(), chat)

	// then
	require.Equal(t, 1, calls)
}

func TestRegistry_AbsentFieldNeverMatches(t *testing.T) {
	// given
	r := NewRegistry()

	var calls int
	_ = r.Subscribe(Conditions{event.FieldRoom: MustRegexp(`.*`)}, func(context.Context, *event.Message, Matches) error {
		calls++
		return nil
	})

	// when
	r.Dispatch(context.Background(), &event.Message{Kind: event.ChatMessage, FromNick: "bob", Body: "hi"})

	// then
	require.Zero(t, calls)
}

func TestRegistry_HandlerFailuresAreIsolated(t *testing.T) {
	// given
	r := NewRegistry()
	errBoom := errors.New("boom")

	var reached bool
	_ = r.Subscribe(Body(MustRegexp(`.*`)), func(context.Context, *event.Message, Matches) error {
		return errBoom
	})
	_ = r.Subscribe(Body(MustRegexp(`.*`)), func(context.Context, *event.Message, Matches) error {
		panic("kaboom")
	})
	_ = r.Subscribe(Body(MustRegexp(`.*`)), func(context.Context, *event.Message, Matches) error {
		reached = true
		return nil
	})

	// when
	errs := r.Dispatch(context.Background(), groupMessage("anything"))

	// then
	require.True(t, reached)
	require.Len(t, errs, 2)

	var hErr *HandlerError
	require.True(t, errors.As(errs[0], &hErr))
	require.Equal(t, 0, hErr.Index)
	require.False(t, hErr.Panicked)
	require.True(t, errors.Is(errs[0], errBoom))

	require.True(t, errors.As(errs[1], &hErr))
	require.Equal(t, 1, hErr.Index)
	require.True(t, hErr.Panicked)
	require.Contains(t, hErr.Error(), "kaboom")
}

func TestRegistry_SubscribeValidation(t *testing.T) {
	// given
	r := NewRegistry()
	h := func(context.Context, *event.Message, Matches) error { return nil }

	// when
	err1 := r.Subscribe(nil, h)
	err2 := r.Subscribe(Conditions{"subject": Equals("x")}, h)
	err3 := r.Subscribe(Conditions{event.FieldBody: nil}, h)

	// then
	require.True(t, errors.Is(err1, ErrNoConditions))
	require.True(t, errors.Is(err2, ErrUnknownField))
	require.Error(t, err3)
	require.Zero(t, r.Len())
}

func TestRegistry_HandlerMaySubscribe(t *testing.T) {
	// given
	r := NewRegistry()
	h := func(context.Context, *event.Message, Matches) error { return nil }
	_ = r.Subscribe(Body(Equals("more")), func(context.Context, *event.Message, Matches) error {
		return r.Subscribe(Body(Equals("x")), h)
	})

	// when
	errs := r.Dispatch(context.Background(), groupMessage("more"))

	// then
	require.Empty(t, errs)
	require.Equal(t, 2, r.Len())
}
