package resource

import "github.com/wippyai/numbridge/engine"

// Handle is an opaque reference to an entry in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Event types for reference lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventReleased
	EventBorrowed
	EventBorrowReturned
	EventCollected
)

var eventNames = [...]string{
	EventCreated:        "created",
	EventReleased:       "released",
	EventBorrowed:       "borrowed",
	EventBorrowReturned: "borrow_returned",
	EventCollected:      "collected",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event represents a reference lifecycle event.
type Event struct {
	Value    engine.Value
	TypeName string
	ID       uint64 // runtime retain id
	Handle   Handle
	Type     EventType
}

// Observer receives notifications about reference lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Retainer pins runtime values so the runtime keeps them alive while the
// host holds a handle. Both methods must run on the runtime's own thread.
type Retainer interface {
	Retain(v engine.Value) uint64
	Release(id uint64)
}
