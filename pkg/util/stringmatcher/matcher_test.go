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

package stringmatcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatcher_String(t *testing.T) {
	// given
	m := NewStringMatcher([]string{"s0", "s10", "list rooms"})

	// when
	r0 := m.Matches("s0")
	r1 := m.Matches("s1")
	r2 := m.Matches("S10")
	r3 := m.Matches("s101")
	r4 := m.Matches("List Rooms")
	groups, ok := m.Match("LIST ROOMS")

	// then
	require.True(t, r0)
	require.False(t, r1)
	require.True(t, r2)
	require.False(t, r3)
	require.True(t, r4)
	require.True(t, ok)
	require.Equal(t, []string{"LIST ROOMS"}, groups)
}

func TestMatcher_RegEx(t *testing.T) {
	tcs := map[string]struct {
		input   string
		matches bool
	}{
		"Plain":      {input: "map of Barcelona", matches: true},
		"NoOf":       {input: "map Barcelona", matches: true},
		"UpperCase":  {input: "MAP OF Barcelona", matches: true},
		"Missing":    {input: "map", matches: false},
		"NotAPrefix": {input: "show map of Barcelona", matches: false},
	}
	m, err := NewRegExMatcher(`^map (?:of )?(.+)$`)
	require.NoError(t, err)

	for tn, tc := range tcs {
		t.Run(tn, func(t *testing.T) {
			require.Equal(t, tc.matches, m.Matches(tc.input))
		})
	}
}

func TestMatcher_RegExGroupsKeepCase(t *testing.T) {
	// given
	m, err := NewRegExMatcher(`^echo (.+)$`)
	require.Nil(t, err)

	// when
	groups, ok := m.Match("ECHO Hello World")

	// then
	require.True(t, ok)
	require.Equal(t, []string{"ECHO Hello World", "Hello World"}, groups)
}

func TestMatcher_InvalidRegEx(t *testing.T) {
	_, err := NewRegExMatcher("(")
	require.Error(t, err)
}
