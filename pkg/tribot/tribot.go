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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/tribot-xmpp/tribot/pkg/bot"
	"github.com/tribot-xmpp/tribot/pkg/hook"
	"github.com/tribot-xmpp/tribot/pkg/log"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
	"github.com/tribot-xmpp/tribot/pkg/transport"
	"github.com/tribot-xmpp/tribot/pkg/util/crashreporter"
	"github.com/tribot-xmpp/tribot/pkg/version"
)

const (
	defaultBootstrapTimeout = time.Minute
	defaultShutdownTimeout  = time.Second * 30

	envConfigFile = "TRIBOT_CONFIG_FILE"
	envSentryDSN  = "TRIBOT_SENTRY_DSN"
)

type starter interface {
	Start(ctx context.Context) error
}

type stopper interface {
	Stop(ctx context.Context) error
}

type startStopper interface {
	starter
	stopper
}

// Tribot is the root data structure for the bot application.
type Tribot struct {
	output io.Writer

	hk      *hook.Hooks
	bot     *bot.Bot
	plugins *plugin.Plugins

	reporter *crashreporter.Reporter

	starters []starter
	stoppers []stopper

	waitStopCh chan os.Signal

	logger kitlog.Logger
}

// New makes a new Tribot.
func New(output io.Writer) *Tribot {
	return &Tribot{
		output:     output,
		waitStopCh: make(chan os.Signal, 1),
	}
}

// ConfigFile returns the configuration file path, honoring the environment override.
func ConfigFile(flagValue string) string {
	if envCfgFile := os.Getenv(envConfigFile); len(envCfgFile) > 0 {
		return envCfgFile
	}
	return flagValue
}

// Check loads configuration and plugins without connecting.
func (t *Tribot) Check(configFile string) error {
	cfg, err := t.setup(configFile)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(t.output, "configuration OK\n  account: %s\n  name: %s\n  muc host: %s\n  rooms: %v\n  plugins: %v\n",
		cfg.XMPP.JID,
		t.bot.Name(),
		t.bot.MUCHost(),
		cfg.Bot.Rooms,
		t.pluginNames(),
	)
	return nil
}

// Run starts the bot, and blocks until a stop signal is received.
func (t *Tribot) Run(configFile string) error {
	defer t.recoverAndReportPanic()

	cfg, err := t.setup(configFile)
	if err != nil {
		return err
	}
	level.Info(t.logger).Log("msg", "tribot is starting...",
		"version", version.Version,
		"go_ver", runtime.Version(),
		"go_os", runtime.GOOS,
		"go_arch", runtime.GOARCH,
	)
	if cfg.HTTPPort > 0 {
		t.registerStartStopper(newAdminServer(cfg.HTTPPort, t.bot, t.pluginNames, t.logger))
	}
	t.registerStartStopper(t.plugins)
	t.registerStartStopper(t.bot)

	if err := t.bootstrap(); err != nil {
		return err
	}
	// ...wait for stop signal to shutdown
	sig := t.waitForStopSignal()
	level.Info(t.logger).Log("msg", "received stop signal", "signal", sig.String())

	if err := t.shutdown(); err != nil {
		return err
	}
	// good night, good luck!
	level.Info(t.logger).Log("msg", "tribot stopped")
	return nil
}

func (t *Tribot) setup(configFile string) (*Config, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}
	t.logger, err = log.NewDefaultLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}
	if dsn := os.Getenv(envSentryDSN); len(dsn) > 0 {
		cfg.CrashReporter.DSN = dsn
	}
	t.reporter, err = crashreporter.New(cfg.CrashReporter)
	if err != nil {
		return nil, err
	}

	t.hk = hook.NewHooks()
	b, err := bot.New(cfg.XMPP.JID, cfg.Bot, transport.NewDialer(cfg.XMPP), t.hk, t.logger)
	if err != nil {
		return nil, err
	}
	t.bot = b
	t.bot.OnError(t.onBotError)

	t.plugins = plugin.NewPlugins(t.logger)
	if err := t.plugins.Load(t.bot, cfg.Plugins, pluginFns(t.plugins)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t *Tribot) onBotError(_ context.Context, info *hook.ErrorInfo) error {
	var hErr *subscription.HandlerError
	if errors.As(info.Err, &hErr) && hErr.Panicked {
		t.reporter.ReportError(hErr.Err, "handler_panic", map[string]string{
			"bot":     t.bot.Name(),
			"handler": strconv.Itoa(hErr.Index),
		})
	}
	return nil
}

// recoverAndReportPanic must be deferred.
func (t *Tribot) recoverAndReportPanic() {
	if r := recover(); r != nil {
		panicErr := t.reporter.ReportPanic(r)
		_, _ = fmt.Fprintf(os.Stderr, "A panic has occurred!\n%+v\n", panicErr)
		os.Exit(1)
	}
}

func (t *Tribot) pluginNames() []string {
	var names []string
	for _, pl := range t.plugins.List() {
		names = append(names, pl.Name())
	}
	return names
}

func (t *Tribot) registerStartStopper(ss startStopper) {
	if ss == nil {
		return
	}
	t.starters = append(t.starters, ss)
	t.stoppers = append([]stopper{ss}, t.stoppers...)
}

func (t *Tribot) bootstrap() error {
	// spin up all service subsystems
	ctx, cancel := context.WithTimeout(context.Background(), defaultBootstrapTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		// invoke all registered starters...
		for _, s := range t.starters {
			if err := s.Start(ctx); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tribot) shutdown() error {
	// wait until shutdown has been completed
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		// invoke all registered stoppers...
		var errs []error
		for _, st := range t.stoppers {
			if err := st.Stop(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		errCh <- errors.Join(errs...)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tribot) waitForStopSignal() os.Signal {
	signal.Notify(t.waitStopCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	return <-t.waitStopCh
}
