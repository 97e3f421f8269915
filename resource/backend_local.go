package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource backend closed")

// LocalBackend is an in-memory reference-counted backend.
type LocalBackend struct {
	entries map[Handle]*entry
	next    Handle
	mu      sync.RWMutex
	closed  bool
}

type entry struct {
	value  any
	typeID uint32
	refs   int32
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries: make(map[Handle]*entry, 64),
	}
}

// Create stores a value and returns a handle holding one reference.
func (b *LocalBackend) Create(typeID uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	b.next++
	b.entries[b.next] = &entry{
		typeID: typeID,
		value:  value,
		refs:   1,
	}
	return b.next, nil
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[handle]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Retain adds a reference.
func (b *LocalBackend) Retain(handle Handle) (int32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[handle]
	if !ok {
		return 0, false
	}
	e.refs++
	return e.refs, true
}

// Release drops a reference, removing the entry at zero.
func (b *LocalBackend) Release(handle Handle) (any, int32, bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[handle]
	if !ok {
		return nil, 0, false, false
	}
	e.refs--
	if e.refs > 0 {
		return e.value, e.refs, false, true
	}
	delete(b.entries, handle)
	return e.value, 0, true, true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[handle]
	if !ok {
		return 0, false
	}
	return e.typeID, true
}

// Refs returns the current reference count, 0 for unknown handles.
func (b *LocalBackend) Refs(handle Handle) int32 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if e, ok := b.entries[handle]; ok {
		return e.refs
	}
	return 0
}

// Close removes every entry and returns their values.
func (b *LocalBackend) Close() []any {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	values := make([]any, 0, len(b.entries))
	for h, e := range b.entries {
		values = append(values, e.value)
		delete(b.entries, h)
	}
	return values
}

// Len returns the number of live entries.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Each iterates over live entries. fn must not call back into the backend.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for h, e := range b.entries {
		if !fn(h, e.typeID, e.value) {
			return
		}
	}
}
