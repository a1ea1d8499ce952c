package resource

import (
	"errors"
	"sync"
	"weak"

	"github.com/wippyai/numbridge/value"
)

var ErrClosed = errors.New("resource backend closed")

// LocalBackend is an in-memory handle table with borrow tracking. Released
// entries with outstanding borrows stay allocated until the last borrow
// returns.
type LocalBackend struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value       any
	ref         weak.Pointer[value.Ref]
	typeName    string
	id          uint64
	borrowCount uint32
	released    bool
	valid       bool
}

// Release reports what a drop or returned borrow freed.
type Release struct {
	Value    any
	TypeName string
	ID       uint64
	Freed    bool // slot freed, host release due
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create stores a value with its runtime retain id and returns a handle.
func (b *LocalBackend) Create(typeName string, v any, id uint64) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	e := entry{
		typeName: typeName,
		value:    v,
		id:       id,
		valid:    true,
	}

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
		return handle, nil
	}

	b.entries = append(b.entries, e)
	return Handle(len(b.entries)), nil
}

// Bind attaches the proxy that owns the handle. Lookups through a
// different proxy fail, so a stale proxy never sees a reused slot.
func (b *LocalBackend) Bind(handle Handle, ref weak.Pointer[value.Ref]) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return false
	}
	e.ref = ref
	return true
}

// lookup returns the live entry for handle. Caller holds mu.
func (b *LocalBackend) lookup(handle Handle) *entry {
	if handle == 0 || int(handle-1) >= len(b.entries) {
		return nil
	}
	e := &b.entries[handle-1]
	if !e.valid {
		return nil
	}
	return e
}

// Get retrieves a value by handle. Released entries are not visible.
func (b *LocalBackend) Get(handle Handle, ref weak.Pointer[value.Ref]) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil || e.released || e.ref != ref {
		return nil, false
	}
	return e.value, true
}

// Borrow pins a live entry and returns its value.
func (b *LocalBackend) Borrow(handle Handle, ref weak.Pointer[value.Ref]) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || e.released || e.ref != ref {
		return nil, false
	}
	e.borrowCount++
	return e.value, true
}

// ReturnBorrow unpins an entry. If the entry was released while borrowed
// and this was the last borrow, the slot is freed.
func (b *LocalBackend) ReturnBorrow(handle Handle) (Release, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || e.borrowCount == 0 {
		return Release{}, false
	}
	e.borrowCount--
	if e.released && e.borrowCount == 0 {
		return b.free(handle, e), true
	}
	return Release{Value: e.value, TypeName: e.typeName, ID: e.id}, true
}

// Drop releases an entry. It reports ok=false for unknown or already
// released handles. With outstanding borrows the entry is marked released
// and freed later by ReturnBorrow.
func (b *LocalBackend) Drop(handle Handle, ref weak.Pointer[value.Ref]) (Release, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || e.released || e.ref != ref {
		return Release{}, false
	}
	e.released = true
	if e.borrowCount > 0 {
		return Release{Value: e.value, TypeName: e.typeName, ID: e.id}, true
	}
	return b.free(handle, e), true
}

func (b *LocalBackend) free(handle Handle, e *entry) Release {
	r := Release{Value: e.value, TypeName: e.typeName, ID: e.id, Freed: true}
	*e = entry{}
	b.freeList = append(b.freeList, handle)
	return r
}

// Close invalidates every entry and returns those whose host release is
// still due.
func (b *LocalBackend) Close() []Release {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var out []Release
	for i := range b.entries {
		e := &b.entries[i]
		if e.valid {
			out = append(out, Release{Value: e.value, TypeName: e.typeName, ID: e.id, Freed: true})
		}
	}
	b.entries = nil
	b.freeList = nil
	return out
}

// Len returns the number of entries not yet released.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid && !e.released {
			count++
		}
	}
	return count
}

// Pending returns the number of released entries waiting on borrows.
func (b *LocalBackend) Pending() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid && e.released {
			count++
		}
	}
	return count
}

// Each iterates over entries not yet released.
func (b *LocalBackend) Each(fn func(Handle, string, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid && !e.released {
			if !fn(Handle(i+1), e.typeName, e.value) {
				break
			}
		}
	}
}
