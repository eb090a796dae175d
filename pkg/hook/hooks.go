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

package hook

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	crerrors "github.com/cockroachdb/errors"
)

// Priority defines hook execution priority.
type Priority int32

const (
	// LowestPriority defines lowest hook execution priority.
	LowestPriority = Priority(math.MinInt32)

	// DefaultPriority defines default hook execution priority.
	DefaultPriority = Priority(0)

	// HighestPriority defines highest hook execution priority.
	HighestPriority = Priority(math.MaxInt32)
)

// Event identifies a lifecycle hook.
type Event string

// Handler defines a generic hook handler function.
type Handler func(ctx context.Context, execCtx *ExecutionContext) error

// ErrStopped error is returned by a handler to halt hook execution.
var ErrStopped = errors.New("hook: execution stopped")

// PanicError is reported by Run when a handler panics.
type PanicError struct {
	Event Event

	// Err carries the panic value and the stack where it was raised.
	Err error
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("hook: %s handler panicked: %v", e.Event, e.Err)
}

// Unwrap returns the panic error.
func (e *PanicError) Unwrap() error { return e.Err }

// ExecutionContext defines a hook execution info context.
type ExecutionContext struct {
	// Info is the event typed payload.
	Info interface{}

	// Sender is the hook emitter.
	Sender interface{}
}

type handler struct {
	id uint64
	h  Handler
	p  Priority
}

// Hooks keeps lifecycle hook handlers sorted by priority.
type Hooks struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[Event][]handler
}

// NewHooks returns a new initialized Hooks instance.
func NewHooks() *Hooks {
	return &Hooks{
		handlers: make(map[Event][]handler),
	}
}

// AddHook registers hnd for hook and returns a function that unregisters it.
// Handlers with a higher priority are executed first, equal priorities keep registration order.
func (h *Hooks) AddHook(hook Event, hnd Handler, priority Priority) (remove func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID

	current := h.handlers[hook]
	handlers := make([]handler, 0, len(current)+1)
	handlers = append(handlers, current...)
	handlers = append(handlers, handler{id: id, h: hnd, p: priority})
	sort.SliceStable(handlers, func(i, j int) bool { return handlers[i].p > handlers[j].p })
	h.handlers[hook] = handlers

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(hook, id) })
	}
}

func (h *Hooks) remove(hook Event, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current := h.handlers[hook]
	handlers := make([]handler, 0, len(current))
	for _, hnd := range current {
		if hnd.id != id {
			handlers = append(handlers, hnd)
		}
	}
	if len(handlers) == 0 {
		delete(h.handlers, hook)
		return
	}
	h.handlers[hook] = handlers
}

// Len returns the number of handlers registered for hook.
func (h *Hooks) Len(hook Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[hook])
}

// Run invokes all hook handlers in order.
// A failing or panicking handler does not prevent the next ones from running, every error is joined into err.
// If halted return value is true a handler returned ErrStopped and no more handlers were invoked.
func (h *Hooks) Run(ctx context.Context, hook Event, execCtx *ExecutionContext) (halted bool, err error) {
	h.mu.RLock()
	handlers := h.handlers[hook]
	h.mu.RUnlock()

	var errs []error
	for _, hnd := range handlers {
		err := runHandler(ctx, hook, hnd.h, execCtx)
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrStopped):
			return true, errors.Join(errs...)
		default:
			errs = append(errs, err)
		}
	}
	return false, errors.Join(errs...)
}

func runHandler(ctx context.Context, hook Event, hnd Handler, execCtx *ExecutionContext) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var panicErr error
		if rErr, ok := r.(error); ok {
			panicErr = crerrors.WithStackDepth(rErr, 2)
		} else {
			panicErr = crerrors.NewWithDepthf(2, "panic: %v", r)
		}
		err = &PanicError{Event: hook, Err: panicErr}
	}()
	return hnd(ctx, execCtx)
}
