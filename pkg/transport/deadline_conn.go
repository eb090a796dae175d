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
	"net"
	"time"
)

// deadlineConn refreshes read and write deadlines before every I/O operation.
// A zero timeout disables the corresponding deadline.
type deadlineConn struct {
	net.Conn
	rdTimeout time.Duration
	wrTimeout time.Duration
}

func newDeadlineConn(conn net.Conn, readTimeout, writeTimeout time.Duration) *deadlineConn {
	return &deadlineConn{
		Conn:      conn,
		rdTimeout: readTimeout,
		wrTimeout: writeTimeout,
	}
}

func (c *deadlineConn) Read(b []byte) (n int, err error) {
	if c.rdTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.rdTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (n int, err error) {
	if c.wrTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.wrTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(b)
}
