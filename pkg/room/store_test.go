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

package room

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_LatestStatusWins(t *testing.T) {
	// given
	s := NewStore()

	// when
	s.RecordPresence("lobby", "bob", "available")
	s.RecordPresence("lobby", "alice", "available")
	s.RecordPresence("lobby", "bob", "unavailable")

	// then
	occ := s.Occupants("lobby")
	require.Equal(t, "unavailable", occ["bob"])
	require.Equal(t, "available", occ["alice"])
	require.Len(t, occ, 2)
}

func TestStore_MarkSelfJoinedOnce(t *testing.T) {
	// given
	s := NewStore()

	// when
	first := s.MarkSelfJoined("lobby")
	second := s.MarkSelfJoined("lobby")

	// then
	require.True(t, first)
	require.False(t, second)
	require.True(t, s.IsJoined("lobby"))
	require.Equal(t, []string{"lobby"}, s.JoinedRooms())
}

func TestStore_MarkSelfJoinedConcurrently(t *testing.T) {
	// given
	s := NewStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var transitions int

	// when
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.MarkSelfJoined("lobby") {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// then
	require.Equal(t, 1, transitions)
}

func TestStore_MarkLeft(t *testing.T) {
	// given
	s := NewStore()
	s.RecordPresence("lobby", "tribot", "available")
	s.MarkSelfJoined("lobby")
	s.MarkSelfJoined("dev")

	// when
	s.MarkLeft("lobby")
	s.MarkLeft("unknown")

	// then
	require.False(t, s.IsJoined("lobby"))
	require.Equal(t, []string{"dev"}, s.JoinedRooms())
	require.Equal(t, []string{"dev", "lobby"}, s.Rooms())
	require.Equal(t, "available", s.Occupants("lobby")["tribot"])

	// rejoin notifies again
	require.True(t, s.MarkSelfJoined("lobby"))
}

func TestStore_MarkAllLeft(t *testing.T) {
	// given
	s := NewStore()
	s.MarkSelfJoined("lobby")
	s.MarkSelfJoined("dev")

	// when
	s.MarkAllLeft()

	// then
	require.Empty(t, s.JoinedRooms())
	require.Len(t, s.Rooms(), 2)
}

func TestStore_OccupantsCopy(t *testing.T) {
	// given
	s := NewStore()
	s.RecordPresence("lobby", "bob", "available")

	// when
	occ := s.Occupants("lobby")
	occ["bob"] = "mutated"

	// then
	require.Equal(t, "available", s.Occupants("lobby")["bob"])
	require.Nil(t, s.Occupants("unknown"))
}
