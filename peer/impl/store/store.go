package store

import (
	"sort"
	"sync"

	"github.com/mlazoy/Chord-DHT/types"
)

type entry struct {
	value string
	depth uint8
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		items: make(map[string]entry),
	}
}

// Store is a node's in-memory mapping from key to value and replica depth.
// Writers are exclusive, readers proceed concurrently.
type Store struct {
	lock  sync.RWMutex
	items map[string]entry
}

// Put stores or overwrites the mapping at the given replica depth.
func (s *Store) Put(key, value string, depth uint8) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.items[key] = entry{value: value, depth: depth}
}

// Get returns the value and depth stored for the key.
func (s *Store) Get(key string) (string, uint8, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	e, ok := s.items[key]
	return e.value, e.depth, ok
}

// Delete removes the key and reports whether it existed.
func (s *Store) Delete(key string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.items[key]
	delete(s.items, key)
	return ok
}

// SetDepth overwrites the replica depth of an existing key.
func (s *Store) SetDepth(key string, depth uint8) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if e, ok := s.items[key]; ok {
		e.depth = depth
		s.items[key] = e
	}
}

// Scan returns every item, sorted by key.
func (s *Store) Scan() []types.Item {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]types.Item, 0, len(s.items))
	for k, e := range s.items {
		res = append(res, types.Item{Key: k, Value: e.value, Depth: e.depth})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })
	return res
}

// Primary returns every depth-0 item, sorted by key.
func (s *Store) Primary() []types.Item {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]types.Item, 0, len(s.items))
	for k, e := range s.items {
		if e.depth == 0 {
			res = append(res, types.Item{Key: k, Value: e.value, Depth: 0})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })
	return res
}

// Extract returns the depth-0 items whose identifiers lie on the half-open
// arc (from, to]. The items stay in the store; the caller decides whether to
// retag or drop them.
func (s *Store) Extract(from, to types.ID) []types.Item {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var res []types.Item
	for k, e := range s.items {
		if e.depth == 0 && types.HashKey(k).Between(from, to) {
			res = append(res, types.Item{Key: k, Value: e.value, Depth: 0})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })
	return res
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.items)
}

// Clear drops every item.
func (s *Store) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.items = make(map[string]entry)
}
