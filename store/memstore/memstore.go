package memstore

import (
	"sync"

	"github.com/c360/datamall/store"
)

// Store is an in-memory store.Store implementation. Safe for concurrent use.
type Store struct {
	desc store.Descriptor

	mu    sync.RWMutex
	users map[string]*userState
}

// userState holds everything one user keeps in this store.
type userState struct {
	streams   map[string]*store.Stream // flat, children resolved on read
	deletions []*store.StreamDeletion
	events    map[string]*store.Event
	order     []string                     // event ids in insertion order
	files     map[string]map[string][]byte // eventID -> fileID -> content
}

// New returns an empty store with the given descriptor identity.
func New(id, name string) *Store {
	return &Store{
		desc:  store.Descriptor{ID: id, Name: name},
		users: make(map[string]*userState),
	}
}

// Descriptor implements store.Store.
func (s *Store) Descriptor() store.Descriptor {
	return s.desc
}

// Capabilities implements store.Store. Exclusion filters run natively.
func (s *Store) Capabilities() store.Capabilities {
	return store.Capabilities{NativeExcludeIDs: true}
}

// Streams implements store.Store.
func (s *Store) Streams() store.Streams {
	return &streams{s: s}
}

// Events implements store.Store.
func (s *Store) Events() store.Events {
	return &events{s: s}
}

// user returns the state for uid, creating it on first use. Callers hold the
// write lock.
func (s *Store) user(uid string) *userState {
	u, ok := s.users[uid]
	if !ok {
		u = &userState{
			streams: make(map[string]*store.Stream),
			events:  make(map[string]*store.Event),
			files:   make(map[string]map[string][]byte),
		}
		s.users[uid] = u
	}
	return u
}

// userRead returns the state for uid without creating it. Callers hold at
// least the read lock.
func (s *Store) userRead(uid string) *userState {
	return s.users[uid]
}
