package trigger

import (
	"fmt"
	"sync"
)

// Operation is the kind of mutation a hook chain belongs to.
type Operation string

// Operation constants.
const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// AllOperations returns every operation kind.
func AllOperations() []Operation {
	return []Operation{OpInsert, OpUpdate, OpDelete}
}

// PendingRecord is the record identity of an insert whose key the
// database generates. All such inserts on a table share one hook chain,
// so an insert hook that inserts into its own table runs once.
const PendingRecord = "new"

// Key identifies one hook chain: a table, an operation, and the record
// the operation targets (its primary key rendered as text).
type Key struct {
	Table  string
	Op     Operation
	Record string
}

// String renders the key for logs.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Table, k.Op, k.Record)
}

// Stack is the set of hook chains currently running in one CRUD call tree.
//
// A key is either inactive or active. Push activates an inactive key and
// reports false, without changes, for a key that is already active; the
// caller then skips the hooks but still performs the mutation. Pop always
// deactivates.
//
// A Stack must not be shared between independent operations. Bind one to
// each top-level call tree with Ensure.
type Stack struct {
	mu     sync.Mutex
	active map[Key]struct{}
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{active: make(map[Key]struct{})}
}

// Push activates key. It returns false if key was already active.
func (s *Stack) Push(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[key]; ok {
		return false
	}
	s.active[key] = struct{}{}
	return true
}

// Pop deactivates key. Popping an inactive key is a no-op.
func (s *Stack) Pop(key Key) {
	s.mu.Lock()
	delete(s.active, key)
	s.mu.Unlock()
}

// Active reports whether key is active.
func (s *Stack) Active(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[key]
	return ok
}

// ActiveFor reports whether any chain for table and op is active,
// regardless of record.
func (s *Stack) ActiveFor(table string, op Operation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.active {
		if k.Table == table && k.Op == op {
			return true
		}
	}
	return false
}

// Enter activates key and returns the function that releases it.
// ok is false, with a no-op release, when key was already active.
//
// Example:
//
//	release, ok := stack.Enter(key)
//	defer release()
//	if ok {
//	    // run hooks
//	}
func (s *Stack) Enter(key Key) (release func(), ok bool) {
	if !s.Push(key) {
		return func() {}, false
	}
	var once sync.Once
	return func() { once.Do(func() { s.Pop(key) }) }, true
}

// Len returns the number of active keys.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
