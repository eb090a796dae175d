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

package echo

import (
	"context"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	"github.com/tribot-xmpp/tribot/pkg/plugin/plugintest"
)

func TestEcho_Reply(t *testing.T) {
	// given
	b := plugintest.NewBot()
	e := New(b, kitlog.NewNopLogger())
	require.NoError(t, e.Start(context.Background()))

	// when
	errs1 := b.Deliver(context.Background(), plugintest.Chat("alice", "echo hello"))
	errs2 := b.Deliver(context.Background(), plugintest.GroupChat("lobby", "bob", "echo hi there"))
	errs3 := b.Deliver(context.Background(), plugintest.Chat("alice", "echo"))

	// then
	require.Empty(t, errs1)
	require.Empty(t, errs2)
	require.Empty(t, errs3)

	require.Equal(t, []plugintest.Sent{
		{To: "alice@example.com/home", Type: "chat", Body: "Right back at ya:\nhello"},
		{To: "lobby@conf.example.com", Type: "groupchat", Body: "Right back at ya:\nhi there"},
	}, b.Sent())
}

func TestEcho_Commands(t *testing.T) {
	e := New(plugintest.NewBot(), kitlog.NewNopLogger())

	require.Equal(t, PluginName, e.Name())
	require.Len(t, e.Commands(), 1)
}
