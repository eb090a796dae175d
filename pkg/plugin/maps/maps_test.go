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

package maps

import (
	"context"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	"github.com/tribot-xmpp/tribot/pkg/plugin/plugintest"
)

func TestMaps_Reply(t *testing.T) {
	// given
	b := plugintest.NewBot()
	m := New(b, Config{}, kitlog.NewNopLogger())
	require.NoError(t, m.Start(context.Background()))

	// when
	errs := b.Deliver(context.Background(), plugintest.GroupChat("lobby", "alice", "map of London Bridge"))

	// then
	require.Empty(t, errs)
	require.Equal(t, []plugintest.Sent{{
		To:   "lobby@conf.example.com",
		Type: "groupchat",
		Body: "http://maps.google.com/maps/api/staticmap?format=png&maptype=roadmap&markers=London+Bridge&sensor=false&size=600x400",
	}}, b.Sent())
}

func TestMaps_CustomConfig(t *testing.T) {
	// given
	m := New(plugintest.NewBot(), Config{
		BaseURL: "https://maps.example.org/static",
		MapType: "satellite",
		APIKey:  "k1",
	}, kitlog.NewNopLogger())

	// when
	u := m.mapURL("Paris")

	// then
	require.Equal(t, "https://maps.example.org/static?format=png&key=k1&maptype=satellite&markers=Paris&sensor=false&size=600x400", u)
}
