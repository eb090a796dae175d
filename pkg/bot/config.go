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

package bot

import (
	"time"
)

// RateConfig defines outgoing element rate limiting.
type RateConfig struct {
	// Limit is the sustained number of elements per second. A negative value disables limiting.
	Limit float64 `fig:"limit" default:"20"`

	// Burst is the maximum number of elements sent at once.
	Burst int `fig:"burst" default:"40"`
}

// ReconnectConfig defines the reconnection backoff.
type ReconnectConfig struct {
	// InitialDelay is the wait before the first reconnect attempt. A negative value reconnects immediately.
	InitialDelay time.Duration `fig:"initial_delay" default:"1s"`

	// MaxDelay caps the exponentially growing delay.
	MaxDelay time.Duration `fig:"max_delay" default:"1m"`
}

// Config contains bot configuration.
type Config struct {
	// Name is the room nickname and mention name. Defaults to the account node.
	Name string `fig:"name"`

	// MUCHost is the rooms service domain. Defaults to conf.<account domain>.
	MUCHost string `fig:"muc_host"`

	// Rooms are joined, in order, every time the bot goes online.
	Rooms []string `fig:"rooms"`

	// History is the number of past room messages requested on join.
	History int `fig:"history"`

	KeepAliveInterval time.Duration `fig:"keepalive_interval" default:"30s"`

	// Timezone is the IANA location handed to time based plugins.
	Timezone string `fig:"timezone" default:"UTC"`

	SendRate  RateConfig      `fig:"send_rate"`
	Reconnect ReconnectConfig `fig:"reconnect"`
}
