package resource

import (
	"sync"
	"weak"

	"github.com/wippyai/numbridge/value"
)

// Table adds lifecycle notifications on top of a LocalBackend.
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

// Insert adds a value and returns its handle.
func (t *Table) Insert(typeName string, v any, id uint64) (Handle, error) {
	handle, err := t.backend.Create(typeName, v, id)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:     EventCreated,
		Handle:   handle,
		TypeName: typeName,
		ID:       id,
		Value:    v,
	})

	return handle, nil
}

// Bind attaches the owning proxy to a handle.
func (t *Table) Bind(handle Handle, ref weak.Pointer[value.Ref]) bool {
	return t.backend.Bind(handle, ref)
}

// Get retrieves a live value.
func (t *Table) Get(handle Handle, ref weak.Pointer[value.Ref]) (any, bool) {
	return t.backend.Get(handle, ref)
}

// Borrow pins a live value until ReturnBorrow.
func (t *Table) Borrow(handle Handle, ref weak.Pointer[value.Ref]) (any, bool) {
	v, ok := t.backend.Borrow(handle, ref)
	if ok {
		t.notify(Event{Type: EventBorrowed, Handle: handle, Value: v})
	}
	return v, ok
}

// ReturnBorrow unpins a value.
func (t *Table) ReturnBorrow(handle Handle) (Release, bool) {
	r, ok := t.backend.ReturnBorrow(handle)
	if ok {
		t.notify(Event{Type: EventBorrowReturned, Handle: handle, TypeName: r.TypeName, ID: r.ID, Value: r.Value})
	}
	return r, ok
}

// Remove releases a value. typ is EventReleased for explicit releases and
// EventCollected for proxies reclaimed by the garbage collector.
func (t *Table) Remove(handle Handle, ref weak.Pointer[value.Ref], typ EventType) (Release, bool) {
	r, ok := t.backend.Drop(handle, ref)
	if !ok {
		return Release{}, false
	}

	t.notify(Event{
		Type:     typ,
		Handle:   handle,
		TypeName: r.TypeName,
		ID:       r.ID,
		Value:    r.Value,
	})

	return r, true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer. o must be comparable; an ObserverFunc
// cannot be unsubscribed.
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

// Len returns the number of live entries.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Pending returns the number of released entries still borrowed.
func (t *Table) Pending() int {
	return t.backend.Pending()
}

// Close stops accepting inserts and returns every entry still holding a
// runtime retain.
func (t *Table) Close() []Release {
	rs := t.backend.Close()
	for _, r := range rs {
		t.notify(Event{Type: EventReleased, TypeName: r.TypeName, ID: r.ID, Value: r.Value})
	}
	return rs
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
