package resource

import (
	"sync"
)

// Table is a reference-counted object table with lifecycle observers.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value with one reference and returns its handle.
// Returns 0 once the table is closed.
func (t *Table) Insert(typeID uint32, value any) Handle {
	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
		Refs:   1,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *Table) GetTyped(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// TypeID returns the type a handle was inserted with.
func (t *Table) TypeID(handle Handle) (uint32, bool) {
	return t.backend.TypeID(handle)
}

// Retain adds a reference to handle.
func (t *Table) Retain(handle Handle) bool {
	refs, ok := t.backend.Retain(handle)
	if !ok {
		return false
	}
	typeID, _ := t.backend.TypeID(handle)
	t.notify(Event{Type: EventRetained, Handle: handle, TypeID: typeID, Refs: refs})
	return true
}

// Release removes a reference. When the last reference goes the value's
// Drop method runs and EventDropped is delivered. Returns false for an
// unknown or already dropped handle.
func (t *Table) Release(handle Handle) bool {
	typeID, _ := t.backend.TypeID(handle)
	value, refs, dropped, ok := t.backend.Release(handle)
	if !ok {
		return false
	}

	if !dropped {
		t.notify(Event{Type: EventReleased, Handle: handle, TypeID: typeID, Value: value, Refs: refs})
		return true
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return true
}

// Refs returns the reference count of handle, 0 if it is not live.
func (t *Table) Refs(handle Handle) int32 {
	return t.backend.Refs(handle)
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live objects.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over live objects.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.backend.Each(fn)
}

// Close drops every object regardless of reference count and stops
// accepting inserts.
func (t *Table) Close() error {
	for _, v := range t.backend.Close() {
		if d, ok := v.(Dropper); ok {
			d.Drop()
		}
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
