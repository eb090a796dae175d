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

package crashreporter

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/sentry-go"
	"github.com/tribot-xmpp/tribot/pkg/version"
)

const (
	// depth of the recover call site relative to panicAsError when invoked from a deferred recover.
	recoverDepth = 3

	flushTimeout = 10 * time.Second
)

// Config contains crash reporting configuration.
type Config struct {
	// DSN is the Sentry project DSN. Reporting is disabled when empty.
	DSN string `fig:"dsn"`

	Environment string `fig:"environment" default:"production"`
}

// Reporter sends crash and handler panic reports to Sentry.
// A nil or disabled Reporter silently drops every report.
type Reporter struct {
	enabled   bool
	captureFn func(event *sentry.Event)
}

// New returns a Reporter for cfg.
func New(cfg Config) (*Reporter, error) {
	if len(cfg.DSN) == 0 {
		return &Reporter{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Release:     "tribot@" + version.Version.String(),
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, errors.Wrap(err, "crashreporter: sentry init")
	}
	return &Reporter{
		enabled: true,
		captureFn: func(event *sentry.Event) {
			_ = sentry.CaptureEvent(event)
			_ = sentry.Flush(flushTimeout)
		},
	}, nil
}

// Enabled tells whether reports are being sent.
func (r *Reporter) Enabled() bool { return r != nil && r.enabled }

// ReportPanic converts a recovered value into an error carrying the panic stack,
// reports it and returns it.
func (r *Reporter) ReportPanic(recovered interface{}) error {
	panicErr := panicAsError(recoverDepth, recovered)
	r.send(panicErr, "panic", nil)
	return panicErr
}

// ReportError sends a report for an already recovered failure, such as a panicking message handler.
func (r *Reporter) ReportError(err error, reportType string, tags map[string]string) {
	if err == nil {
		return
	}
	r.send(err, reportType, tags)
}

func (r *Reporter) send(err error, reportType string, tags map[string]string) {
	if !r.Enabled() {
		return
	}
	event, extraDetails := errors.BuildSentryReport(err)
	for k, v := range extraDetails {
		event.Extra[k] = v
	}
	event.ServerName = "<redacted>"
	event.Tags["report_type"] = reportType
	for k, v := range tags {
		event.Tags[k] = v
	}
	r.captureFn(event)
}

func panicAsError(depth int, r interface{}) error {
	if err, ok := r.(error); ok {
		return errors.WithStackDepth(err, depth+1)
	}
	return errors.NewWithDepthf(depth+1, "panic: %v", r)
}
