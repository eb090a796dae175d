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
	"path/filepath"

	"github.com/kkyr/fig"
	"github.com/tribot-xmpp/tribot/pkg/bot"
	"github.com/tribot-xmpp/tribot/pkg/log"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/transport"
	"github.com/tribot-xmpp/tribot/pkg/util/crashreporter"
)

// Config contains the whole application configuration.
type Config struct {
	Logger log.Config `fig:"logger"`

	HTTPPort int `fig:"http_port" default:"6060"`

	CrashReporter crashreporter.Config `fig:"crash_reporter"`

	XMPP    transport.Config `fig:"xmpp"`
	Bot     bot.Config       `fig:"bot"`
	Plugins []plugin.Config  `fig:"plugins"`
}

func loadConfig(configFile string) (*Config, error) {
	var cfg Config
	file := filepath.Base(configFile)
	dir := filepath.Dir(configFile)

	err := fig.Load(&cfg, fig.File(file), fig.Dirs(dir))
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
