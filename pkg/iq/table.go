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

package iq

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jackal-xmpp/stravaganza/v2"
)

var (
	// ErrDuplicateID is returned by Register when id already has a pending callback.
	ErrDuplicateID = errors.New("iq: duplicate request identifier")

	// ErrStaleCorrelation is returned by Fulfill when no callback is pending for id.
	ErrStaleCorrelation = errors.New("iq: no pending request for identifier")
)

// Error is passed to a callback when the request was answered with an error.
type Error struct {
	// Condition is the defined error condition name.
	Condition string
}

// Error satisfies error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("iq: request failed: %s", e.Condition)
}

// Callback receives the response of a request. err is nil on success.
type Callback func(response stravaganza.Element, err error)

// Table correlates outstanding requests with their response callbacks.
type Table struct {
	mu      sync.Mutex
	pending map[uint64]Callback
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{
		pending: make(map[uint64]Callback),
	}
}

// Register stores cb as the response callback of id.
func (t *Table) Register(id uint64, cb Callback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	t.pending[id] = cb
	return nil
}

// Fulfill removes the callback associated to id and invokes it.
// The callback runs outside the table lock and at most once.
func (t *Table) Fulfill(id uint64, response stravaganza.Element, err error) error {
	t.mu.Lock()
	cb, ok := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrStaleCorrelation, id)
	}
	if cb != nil {
		cb(response, err)
	}
	return nil
}

// Cancel drops the callback associated to id without invoking it.
func (t *Table) Cancel(id uint64) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// Len returns the number of pending requests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
