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

package faq

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/plugin/plugintest"
)

func TestFAQ_Answer(t *testing.T) {
	// given
	var cfg Config
	err := plugin.Options{
		"questions": map[string]interface{}{
			"What is origami?": map[string]interface{}{
				"answer": "The art of paper folding",
				"link":   "https://en.wikipedia.org/wiki/Origami",
			},
			"who are you": []interface{}{
				map[string]interface{}{"image": "https://example.com/bot.png"},
				map[string]interface{}{"answer": "A bot"},
			},
		},
	}.Decode(&cfg)
	require.NoError(t, err)

	b := plugintest.NewBot()
	f, err := New(b, cfg, kitlog.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))

	// when
	b.Deliver(context.Background(), plugintest.Chat("alice", "what is origami?"))
	b.Deliver(context.Background(), plugintest.GroupChat("lobby", "bob", "Who are you"))
	b.Deliver(context.Background(), plugintest.Chat("alice", "what is this?"))

	// then
	require.Equal(t, []plugintest.Sent{
		{
			To:   "alice@example.com/home",
			Type: "chat",
			Body: "\"The art of paper folding\"\n -- More info: https://en.wikipedia.org/wiki/Origami",
		},
		{
			To:   "lobby@conf.example.com",
			Type: "groupchat",
			Body: "https://example.com/bot.png\n\n\"A bot\"",
		},
	}, b.Sent())
}

func TestFAQ_LoadFile(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "faq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
questions:
  where is the office:
    answer: Second floor
`), 0o600))

	b := plugintest.NewBot()
	f, err := New(b, Config{File: path}, kitlog.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))

	// when
	b.Deliver(context.Background(), plugintest.Chat("alice", "Where is the office"))

	// then
	require.Equal(t, []plugintest.Sent{
		{To: "alice@example.com/home", Type: "chat", Body: `"Second floor"`},
	}, b.Sent())
}

func TestFAQ_NoQuestions(t *testing.T) {
	// when
	_, err := New(plugintest.NewBot(), Config{}, kitlog.NewNopLogger())

	// then
	require.ErrorIs(t, err, ErrNoQuestions)
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "where is the strasse?", normalize("  Where is   the STRASSE? "))
	require.Equal(t, normalize("Where is the Straße?"), normalize("where is the strasse?"))
	require.Equal(t, normalize("Qu\u00e9 es?"), normalize("QUE\u0301 ES?"))
}
