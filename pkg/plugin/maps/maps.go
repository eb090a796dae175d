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
	"net/url"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
)

// PluginName represents maps plugin name.
const PluginName = "maps"

const (
	defaultBaseURL = "http://maps.google.com/maps/api/staticmap"
	defaultSize    = "600x400"
	defaultMapType = "roadmap"
)

// Config contains maps plugin configuration.
type Config struct {
	// BaseURL is the static map service endpoint.
	BaseURL string `yaml:"base_url"`

	// Size is the requested image size.
	Size string `yaml:"size"`

	// MapType is the requested map type.
	MapType string `yaml:"map_type"`

	// APIKey is appended to requests when set.
	APIKey string `yaml:"api_key"`
}

// Maps replies with a static map image link for a location.
type Maps struct {
	cfg    Config
	bot    plugin.Bot
	logger kitlog.Logger
}

// New returns a new initialized Maps instance.
func New(b plugin.Bot, cfg Config, logger kitlog.Logger) *Maps {
	if len(cfg.BaseURL) == 0 {
		cfg.BaseURL = defaultBaseURL
	}
	if len(cfg.Size) == 0 {
		cfg.Size = defaultSize
	}
	if len(cfg.MapType) == 0 {
		cfg.MapType = defaultMapType
	}
	return &Maps{cfg: cfg, bot: b, logger: logger}
}

// Name satisfies plugin.Plugin interface.
func (m *Maps) Name() string { return PluginName }

// Commands satisfies plugin.Plugin interface.
func (m *Maps) Commands() []plugin.Command {
	return []plugin.Command{{Usage: "map (of) [location]", Description: "Show a map of a location of your choice"}}
}

// Start satisfies plugin.Plugin interface.
func (m *Maps) Start(_ context.Context) error {
	if err := m.bot.OnMessage(subscription.Body(subscription.MustRegexp(`^map (?:of )?(.+)$`)), m.onMap); err != nil {
		return err
	}
	level.Info(m.logger).Log("msg", "started maps plugin", "base_url", m.cfg.BaseURL)
	return nil
}

// Stop satisfies plugin.Plugin interface.
func (m *Maps) Stop(_ context.Context) error { return nil }

func (m *Maps) onMap(ctx context.Context, msg *event.Message, matches subscription.Matches) error {
	return m.bot.Reply(ctx, msg, m.mapURL(matches[event.FieldBody][1]))
}

func (m *Maps) mapURL(location string) string {
	q := url.Values{}
	q.Set("markers", location)
	q.Set("size", m.cfg.Size)
	q.Set("maptype", m.cfg.MapType)
	q.Set("sensor", "false")
	q.Set("format", "png")
	if len(m.cfg.APIKey) > 0 {
		q.Set("key", m.cfg.APIKey)
	}
	return m.cfg.BaseURL + "?" + q.Encode()
}
