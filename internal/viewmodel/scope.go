// Package viewmodel holds named view values and notifies watchers when they change.
package viewmodel

import (
	"sort"
	"sync"
)

// Scope is a set of named string values. Watchers registered on a name run whenever the
// value under that name changes, and once on registration with the current value.
type Scope struct {
	mu       sync.RWMutex
	values   map[string]string
	watchers map[string]map[int]func(string)
	nextID   int
}

func NewScope() *Scope {
	return &Scope{
		values:   make(map[string]string),
		watchers: make(map[string]map[int]func(string)),
	}
}

// Get returns the value stored under name, or "" when unset.
func (s *Scope) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}

// Set stores v under name. Watchers are notified only when the stored value changes.
func (s *Scope) Set(name, v string) {
	s.mu.Lock()
	old, ok := s.values[name]
	if ok && old == v {
		s.mu.Unlock()
		return
	}
	s.values[name] = v
	fns := s.watchersLocked(name)
	s.mu.Unlock()

	// Watchers run unlocked so they may read or write the scope. Once a watcher stores a
	// newer value, that Set has already notified everyone and v is stale.
	for _, fn := range fns {
		if s.Get(name) != v {
			return
		}
		fn(v)
	}
}

// Watch registers fn for changes under name and calls it with the current value.
// The returned cancel function unregisters it.
func (s *Scope) Watch(name string, fn func(string)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.watchers[name] == nil {
		s.watchers[name] = make(map[int]func(string))
	}
	s.watchers[name][id] = fn
	current := s.values[name]
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.watchers[name], id)
		if len(s.watchers[name]) == 0 {
			delete(s.watchers, name)
		}
		s.mu.Unlock()
	}
}

// Value returns an accessor bound to name.
func (s *Scope) Value(name string) *Value {
	return &Value{scope: s, name: name}
}

func (s *Scope) watchersLocked(name string) []func(string) {
	set := s.watchers[name]
	if len(set) == 0 {
		return nil
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids) // registration order
	fns := make([]func(string), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, set[id])
	}
	return fns
}

// Value is a getter/setter pair for one name in a Scope.
type Value struct {
	scope *Scope
	name  string
}

func (v *Value) Name() string { return v.name }

func (v *Value) Get() string { return v.scope.Get(v.name) }

func (v *Value) Set(s string) { v.scope.Set(v.name, s) }

func (v *Value) Watch(fn func(string)) (cancel func()) { return v.scope.Watch(v.name, fn) }
