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

package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"

	crerrors "github.com/cockroachdb/errors"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/util/stringmatcher"
)

const panicDepth = 2

var (
	// ErrNoConditions is returned by Subscribe when no condition is given.
	ErrNoConditions = errors.New("subscription: empty condition set")

	// ErrUnknownField is returned by Subscribe when a condition targets an unknown message field.
	ErrUnknownField = errors.New("subscription: unknown message field")
)

var knownFields = map[string]struct{}{
	event.FieldType:     {},
	event.FieldFromJID:  {},
	event.FieldFromNick: {},
	event.FieldRoom:     {},
	event.FieldBody:     {},
}

// Conditions maps message field names to matchers. Every condition must hold for a subscription to match.
type Conditions map[string]stringmatcher.Matcher

// Body returns a condition set matching the message body only.
func Body(m stringmatcher.Matcher) Conditions {
	return Conditions{event.FieldBody: m}
}

// Equals returns a matcher for any of values ignoring case.
func Equals(values ...string) stringmatcher.Matcher {
	return stringmatcher.NewStringMatcher(values)
}

// Regexp returns a case-insensitive regular expression matcher.
func Regexp(expr string) (stringmatcher.Matcher, error) {
	return stringmatcher.NewRegExMatcher(expr)
}

// MustRegexp is like Regexp but panics if expr does not compile.
func MustRegexp(expr string) stringmatcher.Matcher {
	m, err := stringmatcher.NewRegExMatcher(expr)
	if err != nil {
		panic(err)
	}
	return m
}

// Matches holds the groups matched per field.
type Matches map[string][]string

// Handler is invoked with a matching message and its matched groups.
type Handler func(ctx context.Context, msg *event.Message, matches Matches) error

// HandlerError wraps an error returned or a panic raised by a subscription handler.
type HandlerError struct {
	// Index is the subscription registration position.
	Index int

	// Panicked tells whether the handler panicked.
	Panicked bool

	Err error
}

// Error satisfies error interface.
func (e *HandlerError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("subscription: handler #%d panicked: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("subscription: handler #%d failed: %v", e.Index, e.Err)
}

// Unwrap returns the underlying handler error.
func (e *HandlerError) Unwrap() error { return e.Err }

type subscription struct {
	conds Conditions
	h     Handler
}

// Registry keeps message subscriptions in registration order.
type Registry struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe appends a new subscription.
func (r *Registry) Subscribe(conds Conditions, h Handler) error {
	if len(conds) == 0 {
		return ErrNoConditions
	}
	for field, m := range conds {
		if _, ok := knownFields[field]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		if m == nil {
			return fmt.Errorf("subscription: nil matcher for field %s", field)
		}
	}
	r.mu.Lock()
	r.subs = append(r.subs, subscription{conds: conds, h: h})
	r.mu.Unlock()
	return nil
}

// Len returns the number of registered subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Dispatch invokes, in registration order, every subscription matching msg.
// A failing handler never prevents the remaining ones from running. Failures are returned as *HandlerError values.
func (r *Registry) Dispatch(ctx context.Context, msg *event.Message) []error {
	r.mu.RLock()
	subs := make([]subscription, len(r.subs))
	copy(subs, r.subs)
	r.mu.RUnlock()

	var errs []error
	for i, sub := range subs {
		matches, ok := match(sub.conds, msg)
		if !ok {
			continue
		}
		if err := invoke(ctx, sub.h, msg, matches); err != nil {
			var hErr *HandlerError
			if errors.As(err, &hErr) {
				hErr.Index = i
			} else {
				hErr = &HandlerError{Index: i, Err: err}
			}
			errs = append(errs, hErr)
		}
	}
	return errs
}

func match(conds Conditions, msg *event.Message) (Matches, bool) {
	matches := make(Matches, len(conds))
	for field, m := range conds {
		v, ok := msg.Field(field)
		if !ok {
			return nil, false
		}
		groups, ok := m.Match(v)
		if !ok {
			return nil, false
		}
		matches[field] = groups
	}
	return matches, true
}

func invoke(ctx context.Context, h Handler, msg *event.Message, matches Matches) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Panicked: true, Err: panicAsError(r)}
		}
	}()
	return h(ctx, msg, matches)
}

func panicAsError(r interface{}) error {
	if err, ok := r.(error); ok {
		return crerrors.WithStackDepth(err, panicDepth)
	}
	return crerrors.NewWithDepthf(panicDepth, "panic: %v", r)
}
