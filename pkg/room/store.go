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
	"sort"
	"sync"
)

// State is the tracked state of a single room.
type State struct {
	// Occupants maps occupant nickname to its last seen presence status.
	Occupants map[string]string

	// SelfMember tells whether the server confirmed the bot joined the room.
	SelfMember bool
}

// Store keeps the membership state of every room the bot has seen presence for.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*State
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*State),
	}
}

// RecordPresence sets nick latest status in room, creating both lazily.
// Occupants are never removed, an unavailable nick keeps its entry.
func (s *Store) RecordPresence(room, nick, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.room(room)
	st.Occupants[nick] = status
}

// MarkSelfJoined flags room as joined by the bot.
// It returns true only on the transition from not joined to joined.
func (s *Store) MarkSelfJoined(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.room(room)
	if st.SelfMember {
		return false
	}
	st.SelfMember = true
	return true
}

// MarkLeft clears the self membership flag of room.
func (s *Store) MarkLeft(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.rooms[room]; ok {
		st.SelfMember = false
	}
}

// MarkAllLeft clears the self membership flag of every room.
func (s *Store) MarkAllLeft() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.rooms {
		st.SelfMember = false
	}
}

// IsJoined tells whether the bot is a confirmed member of room.
func (s *Store) IsJoined(room string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.rooms[room]
	return ok && st.SelfMember
}

// JoinedRooms returns the sorted names of the rooms the bot is a confirmed member of.
func (s *Store) JoinedRooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rooms []string
	for name, st := range s.rooms {
		if st.SelfMember {
			rooms = append(rooms, name)
		}
	}
	sort.Strings(rooms)
	return rooms
}

// Rooms returns the sorted names of every known room.
func (s *Store) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		rooms = append(rooms, name)
	}
	sort.Strings(rooms)
	return rooms
}

// Occupants returns a copy of room occupants.
func (s *Store) Occupants(room string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.rooms[room]
	if !ok {
		return nil
	}
	occupants := make(map[string]string, len(st.Occupants))
	for nick, status := range st.Occupants {
		occupants[nick] = status
	}
	return occupants
}

func (s *Store) room(name string) *State {
	st, ok := s.rooms[name]
	if !ok {
		st = &State{Occupants: make(map[string]string)}
		s.rooms[name] = st
	}
	return st
}
