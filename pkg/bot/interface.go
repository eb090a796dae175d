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

package bot

import (
	"github.com/tribot-xmpp/tribot/pkg/transport"
)

//go:generate moq -out conn.mock_test.go . conn:connMock
type conn interface {
	transport.Conn
}

//go:generate moq -out dialer.mock_test.go . dialer:dialerMock
type dialer interface {
	transport.Dialer
}
