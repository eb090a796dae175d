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

package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	logfmtFormat = "logfmt"
	jsonFormat   = "json"
)

var levelOptions = map[string]level.Option{
	"debug": level.AllowDebug(),
	"info":  level.AllowInfo(),
	"warn":  level.AllowWarn(),
	"error": level.AllowError(),
	"off":   level.AllowNone(),
}

// Config contains logger configuration.
type Config struct {
	// Level is one of debug, info, warn, error or off.
	Level string `fig:"level" default:"debug"`

	// Format is either logfmt (default) or json.
	Format string `fig:"format"`
}

// Validate reports whether c names a known level and format.
func (c Config) Validate() error {
	if _, ok := levelOptions[strings.ToLower(c.Level)]; !ok && len(c.Level) > 0 {
		return fmt.Errorf("log: unknown level: %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", logfmtFormat, jsonFormat:
		return nil
	default:
		return fmt.Errorf("log: unknown format: %q", c.Format)
	}
}

// NewDefaultLogger returns a logger writing to stderr.
func NewDefaultLogger(cfg Config) (kitlog.Logger, error) {
	return New(kitlog.NewSyncWriter(os.Stderr), cfg)
}

// New returns a leveled logger writing records to w.
// An empty level lets every record through.
func New(w io.Writer, cfg Config) (kitlog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var logger kitlog.Logger
	if strings.ToLower(cfg.Format) == jsonFormat {
		logger = kitlog.NewJSONLogger(w)
	} else {
		logger = kitlog.NewLogfmtLogger(w)
	}
	allow, ok := levelOptions[strings.ToLower(cfg.Level)]
	if !ok {
		allow = level.AllowAll()
	}
	logger = level.NewFilter(logger, allow)
	return kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.DefaultCaller), nil
}
