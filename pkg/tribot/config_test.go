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

package tribot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testConfig = `
logger:
  level: info
  format: json
xmpp:
  jid: tribot@example.com
  password: secret
  port: 5223
  direct_tls: true
bot:
  rooms: [lobby, dev]
  history: 5
  timezone: Europe/London
plugins:
  - name: echo
  - name: thought
    options:
      room: origami-internal
      schedule: "0 9 * 1-6 *"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	// given
	path := writeConfig(t, testConfig)

	// when
	cfg, err := loadConfig(path)

	// then
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Logger.Level)
	require.Equal(t, "json", cfg.Logger.Format)
	require.Equal(t, 6060, cfg.HTTPPort)

	require.Equal(t, "tribot@example.com", cfg.XMPP.JID)
	require.Equal(t, 5223, cfg.XMPP.Port)
	require.True(t, cfg.XMPP.DirectTLS)
	require.Equal(t, "tribot", cfg.XMPP.Resource)
	require.Equal(t, 30*time.Second, cfg.XMPP.DialTimeout)

	require.Equal(t, []string{"lobby", "dev"}, cfg.Bot.Rooms)
	require.Equal(t, 5, cfg.Bot.History)
	require.Equal(t, "Europe/London", cfg.Bot.Timezone)
	require.Equal(t, 30*time.Second, cfg.Bot.KeepAliveInterval)
	require.Equal(t, float64(20), cfg.Bot.SendRate.Limit)
	require.Equal(t, 40, cfg.Bot.SendRate.Burst)
	require.Equal(t, time.Second, cfg.Bot.Reconnect.InitialDelay)
	require.Equal(t, time.Minute, cfg.Bot.Reconnect.MaxDelay)

	require.Len(t, cfg.Plugins, 2)
	require.Equal(t, "echo", cfg.Plugins[0].Name)
	require.Equal(t, "thought", cfg.Plugins[1].Name)
	require.Equal(t, "origami-internal", cfg.Plugins[1].Options["room"])
}

func TestLoadConfig_MissingJID(t *testing.T) {
	// given
	path := writeConfig(t, "bot:\n  rooms: [lobby]\n")

	// when
	_, err := loadConfig(path)

	// then
	require.Error(t, err)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	// when
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	// then
	require.Error(t, err)
}
