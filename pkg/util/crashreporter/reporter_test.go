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
	"errors"
	"testing"

	"github.com/cockroachdb/sentry-go"
	"github.com/stretchr/testify/require"
)

func TestPanicAsError(t *testing.T) {
	// given
	cause := errors.New("boom")

	// when
	err1 := panicAsError(1, cause)
	err2 := panicAsError(1, "kaboom")

	// then
	require.ErrorIs(t, err1, cause)
	require.Equal(t, "panic: kaboom", err2.Error())
}

func TestReporter_Disabled(t *testing.T) {
	// given
	r, err := New(Config{})
	require.NoError(t, err)

	// when
	panicErr := r.ReportPanic("kaboom")

	// then
	require.False(t, r.Enabled())
	require.EqualError(t, panicErr, "panic: kaboom")
}

func TestReporter_Nil(t *testing.T) {
	var r *Reporter

	require.False(t, r.Enabled())
	r.ReportError(errors.New("handler failed"), "handler_panic", nil)
}

func TestReporter_ReportError(t *testing.T) {
	// given
	var events []*sentry.Event
	r := &Reporter{
		enabled:   true,
		captureFn: func(ev *sentry.Event) { events = append(events, ev) },
	}

	// when
	r.ReportError(errors.New("handler failed"), "handler_panic", map[string]string{"handler": "3"})
	r.ReportError(nil, "handler_panic", nil)

	// then
	require.Len(t, events, 1)
	require.Equal(t, "handler_panic", events[0].Tags["report_type"])
	require.Equal(t, "3", events[0].Tags["handler"])
	require.Equal(t, "<redacted>", events[0].ServerName)
}
