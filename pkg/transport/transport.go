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

package transport

import (
	"context"
	"fmt"

	"github.com/jackal-xmpp/stravaganza/v2"
)

// Conn represents an established and negotiated client stream.
type Conn interface {
	// Receive blocks until the next top level element arrives.
	Receive() (stravaganza.Element, error)

	// Send writes elem to the stream. It may be called concurrently with Receive.
	Send(ctx context.Context, elem stravaganza.Element) error

	// LocalAddress returns the session bound address.
	LocalAddress() string

	// Close closes the stream and its underlying connection.
	Close() error
}

// Dialer establishes client streams.
type Dialer interface {
	// Dial connects, secures, authenticates and binds a new stream.
	Dial(ctx context.Context) (Conn, error)
}

// Error is returned when the underlying connection fails.
type Error struct {
	// Op is the failed operation.
	Op string

	Err error
}

// Error satisfies error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }
