package resource

// Handle is an opaque reference to an object in a table.
// Handle 0 is reserved and always invalid. Handles are never reused, so a
// stale handle fails lookup instead of aliasing a newer object.
type Handle uint64

// EventType identifies an object lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRetained
	EventReleased
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	case EventDropped:
		return "dropped"
	}
	return "unknown"
}

// Event represents an object lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Refs   int32 // reference count after the event
	Type   EventType
}

// Observer receives notifications about object lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Backend provides the underlying storage for reference-counted objects.
type Backend interface {
	// Create stores a value with one reference and returns its handle.
	Create(typeID uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Retain adds a reference. Returns the new count, or false for an
	// invalid handle.
	Retain(handle Handle) (int32, bool)

	// Release removes a reference. When the count reaches zero the entry is
	// removed and its value returned with dropped set.
	Release(handle Handle) (value any, refs int32, dropped bool, ok bool)

	// Close removes every entry and returns the values for cleanup.
	Close() []any
}

// Dropper is optionally implemented by values that need cleanup when their
// last reference goes away. Drop runs without table locks held, so it may
// release other handles.
type Dropper interface {
	Drop()
}
