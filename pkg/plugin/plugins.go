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

package plugin

import (
	"context"
	"fmt"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"
)

// Config contains a single plugin configuration.
type Config struct {
	// Name is the registered plugin name.
	Name string `fig:"name" validate:"required"`

	// Options are passed to the plugin factory.
	Options Options `fig:"options"`
}

// Factory creates a plugin instance bound to b.
type Factory func(b Bot, opts Options, logger kitlog.Logger) (Plugin, error)

// UnknownPluginError is returned when a configured plugin name has no registered factory.
type UnknownPluginError struct {
	Name string
}

func (e *UnknownPluginError) Error() string {
	return fmt.Sprintf("plugin: unrecognized plugin name: %s", e.Name)
}

// Plugins is the set of plugins loaded into a bot.
type Plugins struct {
	logger kitlog.Logger

	mu      sync.RWMutex
	plugins []Plugin
}

// NewPlugins returns an empty plugin set.
func NewPlugins(logger kitlog.Logger) *Plugins {
	return &Plugins{logger: logger}
}

// Load instantiates every configured plugin in order using the registered factories.
func (p *Plugins) Load(b Bot, cfgs []Config, factories map[string]Factory) error {
	for _, cfg := range cfgs {
		fn, ok := factories[cfg.Name]
		if !ok {
			return &UnknownPluginError{Name: cfg.Name}
		}
		if p.Get(cfg.Name) != nil {
			return fmt.Errorf("plugin: duplicated plugin name: %s", cfg.Name)
		}
		pl, err := fn(b, cfg.Options, kitlog.With(p.logger, "plugin", cfg.Name))
		if err != nil {
			return fmt.Errorf("plugin: failed to load %s: %w", cfg.Name, err)
		}
		p.mu.Lock()
		p.plugins = append(p.plugins, pl)
		p.mu.Unlock()

		level.Debug(p.logger).Log("msg", "loaded plugin", "name", cfg.Name, "options", fmt.Sprintf("%v", cfg.Options))
	}
	return nil
}

// List returns loaded plugins in load order.
func (p *Plugins) List() []Plugin {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ret := make([]Plugin, len(p.plugins))
	copy(ret, p.plugins)
	return ret
}

// Get returns the plugin named name, or nil.
func (p *Plugins) Get(name string) Plugin {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, pl := range p.plugins {
		if pl.Name() == name {
			return pl
		}
	}
	return nil
}

// Start starts all plugins in load order.
func (p *Plugins) Start(ctx context.Context) error {
	var names []string
	for _, pl := range p.List() {
		if err := pl.Start(ctx); err != nil {
			return fmt.Errorf("plugin: failed to start %s: %w", pl.Name(), err)
		}
		names = append(names, pl.Name())
	}
	level.Info(p.logger).Log("msg", "started plugins", "plugins", fmt.Sprintf("%v", names))
	return nil
}

// Stop stops all plugins concurrently.
func (p *Plugins) Stop(ctx context.Context) error {
	plugins := p.List()

	eGroup, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < len(plugins); i++ {
		idx := i
		eGroup.Go(func() error {
			return plugins[idx].Stop(egCtx)
		})
	}
	if err := eGroup.Wait(); err != nil {
		return err
	}
	level.Info(p.logger).Log("msg", "stopped plugins", "count", len(plugins))
	return nil
}
