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
	kitlog "github.com/go-kit/log"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/plugin/botdebug"
	"github.com/tribot-xmpp/tribot/pkg/plugin/echo"
	"github.com/tribot-xmpp/tribot/pkg/plugin/faq"
	"github.com/tribot-xmpp/tribot/pkg/plugin/groupcommands"
	"github.com/tribot-xmpp/tribot/pkg/plugin/heartbeat"
	"github.com/tribot-xmpp/tribot/pkg/plugin/help"
	"github.com/tribot-xmpp/tribot/pkg/plugin/httpapi"
	"github.com/tribot-xmpp/tribot/pkg/plugin/maps"
	"github.com/tribot-xmpp/tribot/pkg/plugin/redisrelay"
	"github.com/tribot-xmpp/tribot/pkg/plugin/thought"
)

func pluginFns(catalog help.Catalog) map[string]plugin.Factory {
	return map[string]plugin.Factory{
		echo.PluginName: func(b plugin.Bot, opts plugin.Options, logger kitlog.Logger) (plugin.Plugin, error) {
			if err := noOptions(opts); err != nil {
				return nil, err
			}
			return echo.New(b, logger), nil
		},
		help.PluginName: func(b plugin.Bot, opts plugin.Options, logger kitlog.Logger) (plugin.Plugin, error) {
			if err := noOptions(opts); err != nil {
				return nil, err
			}
			return help.New(b, catalog, logger), nil
		},
		botdebug.PluginName: func(b plugin.Bot, opts plugin.Options, logger kitlog.Logger) (plugin.Plugin, error) {
			if err := noOptions(opts); err != nil {
				return nil, err
			}
			return botdebug.New(b, logger), nil
		},
		groupcommands.PluginName: func(b plugin.Bot, opts plugin.Options, logger kitlog.Logger) (plugin.Plugin, error) {
			var cfg groupcommands.Config
			if err := opts.Decode(&cfg); err != nil {
				return nil, err
			}
			return groupcommands.New(b, cfg, logger), nil
		},
		maps.PluginName: func(b plugin.Bot, opts plugin.Options, logger kitlog.Logger) (plugin.Plugin, error) {
			var cfg maps.Config
			if err := opts.Decode(&cfg); err != nil {
				return nil, err
			}
			return maps.New(b, cfg, logger), nil
		},
		faq.PluginName: func(b plugin.Bot, opts plugin.Options, logger kitlog.Logger) (plugin.Plugin, error) {
			var cfg faq.Config
			if err := opts.Decode(&cfg); err != nil {
				return nil, err
			}
			f, err := faq.New(b, cfg, logger)
			if err != nil {
				return nil, err
			}
			return f, nil
		},
		thought.PluginName: func(b plugin.Bot, opts plugin.Options, logger kitlog.Logger) (plugin.Plugin, error) {
			var cfg thought.Config
			if err := opts.Decode(&cfg); err != nil {
				return nil, err
			}
			return thought.New(b, cfg, logger), nil
		},
		httpapi.PluginName: func(b plugin.Bot, opts plugin.Options, logger kitlog.Logger) (plugin.Plugin, error) {
			var cfg httpapi.Config
			if err := opts.Decode(&cfg); err != nil {
				return nil, err
			}
			return httpapi.New(b, cfg, logger), nil
		},
		heartbeat.PluginName: func(b plugin.Bot, opts plugin.Options, logger kitlog.Logger) (plugin.Plugin, error) {
			var cfg heartbeat.Config
			if err := opts.Decode(&cfg); err != nil {
				return nil, err
			}
			return heartbeat.New(b, cfg, logger), nil
		},
		redisrelay.PluginName: func(b plugin.Bot, opts plugin.Options, logger kitlog.Logger) (plugin.Plugin, error) {
			var cfg redisrelay.Config
			if err := opts.Decode(&cfg); err != nil {
				return nil, err
			}
			return redisrelay.New(b, cfg, logger), nil
		},
	}
}

func noOptions(opts plugin.Options) error {
	var cfg struct{}
	return opts.Decode(&cfg)
}
