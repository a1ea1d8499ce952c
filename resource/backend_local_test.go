package resource

import (
	"errors"
	"sync"
	"testing"
	"weak"

	"github.com/wippyai/numbridge/value"
)

func bound(t *testing.T, b *LocalBackend, v any, id uint64) (Handle, weak.Pointer[value.Ref], *value.Ref) {
	t.Helper()
	h, err := b.Create("String", v, id)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ref := value.NewRef(uint32(h), b)
	wp := weak.Make(ref)
	if !b.Bind(h, wp) {
		t.Fatal("Bind failed")
	}
	return h, wp, ref
}

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	handle, wp, ref := bound(t, b, "test value", 7)
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	// Get it back
	val, ok := b.Get(handle, wp)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	// Drop it
	r, ok := b.Drop(handle, wp)
	if !ok || !r.Freed || r.ID != 7 {
		t.Fatalf("Drop = %+v, %v", r, ok)
	}

	// Should not exist anymore
	if _, ok := b.Get(handle, wp); ok {
		t.Fatal("Expected Get to fail after Drop")
	}
	// Second drop is rejected
	if _, ok := b.Drop(handle, wp); ok {
		t.Fatal("Expected second Drop to fail")
	}
	_ = ref
}

func TestLocalBackend_WrongProxy(t *testing.T) {
	b := NewLocalBackend()
	h, _, _ := bound(t, b, "a", 1)

	other := weak.Make(value.NewRef(uint32(h), b))
	if _, ok := b.Get(h, other); ok {
		t.Fatal("Get through a foreign proxy should fail")
	}
	if _, ok := b.Drop(h, other); ok {
		t.Fatal("Drop through a foreign proxy should fail")
	}
}

func TestLocalBackend_DeferredDrop(t *testing.T) {
	b := NewLocalBackend()
	h, wp, _ := bound(t, b, "borrowed", 3)

	for i := 0; i < 2; i++ {
		if _, ok := b.Borrow(h, wp); !ok {
			t.Fatalf("Borrow %d failed", i)
		}
	}

	// Drop with outstanding borrows marks the entry released
	r, ok := b.Drop(h, wp)
	if !ok || r.Freed {
		t.Fatalf("Drop = %+v, %v; want deferred", r, ok)
	}
	if _, ok := b.Get(h, wp); ok {
		t.Fatal("released entry should not be visible")
	}
	if _, ok := b.Borrow(h, wp); ok {
		t.Fatal("released entry should not be borrowable")
	}
	if b.Len() != 0 || b.Pending() != 1 {
		t.Fatalf("Len=%d Pending=%d", b.Len(), b.Pending())
	}

	if r, ok := b.ReturnBorrow(h); !ok || r.Freed {
		t.Fatalf("first ReturnBorrow = %+v, %v", r, ok)
	}
	r, ok = b.ReturnBorrow(h)
	if !ok || !r.Freed || r.ID != 3 {
		t.Fatalf("last ReturnBorrow = %+v, %v", r, ok)
	}
	if b.Pending() != 0 {
		t.Fatalf("Pending = %d", b.Pending())
	}
	if _, ok := b.ReturnBorrow(h); ok {
		t.Fatal("ReturnBorrow on a freed slot should fail")
	}
}

func TestLocalBackend_HandleReuse(t *testing.T) {
	b := NewLocalBackend()

	h1, wp1, _ := bound(t, b, 1, 1)
	h2, wp2, _ := bound(t, b, 2, 2)
	h3, wp3, _ := bound(t, b, 3, 3)

	b.Drop(h2, wp2)
	b.Drop(h1, wp1)

	h4, wp4, _ := bound(t, b, 4, 4)
	if h4 != h1 {
		t.Fatalf("expected freed slot %d reused, got %d", h1, h4)
	}

	// The stale proxy does not see the new occupant
	if _, ok := b.Get(h1, wp1); ok {
		t.Fatal("stale proxy resolved a reused slot")
	}
	if v, ok := b.Get(h4, wp4); !ok || v != 4 {
		t.Fatalf("Get(h4) = %v, %v", v, ok)
	}
	if _, ok := b.Get(h3, wp3); !ok {
		t.Fatal("h3 should still be valid")
	}
}

func TestLocalBackend_ZeroHandle(t *testing.T) {
	b := NewLocalBackend()
	if _, ok := b.Get(0, weak.Pointer[value.Ref]{}); ok {
		t.Fatal("handle 0 must be invalid")
	}
	if _, ok := b.Borrow(99, weak.Pointer[value.Ref]{}); ok {
		t.Fatal("unknown handle must be invalid")
	}
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()

	bound(t, b, 1, 10)
	h, wp, _ := bound(t, b, 2, 20)
	b.Borrow(h, wp)
	b.Drop(h, wp)

	rs := b.Close()
	if len(rs) != 2 {
		t.Fatalf("Close returned %d releases, want 2", len(rs))
	}
	if again := b.Close(); again != nil {
		t.Fatal("second Close should return nothing")
	}

	_, err := b.Create("Int64", 1, 1)
	if !errors.Is(err, ErrClosed) {
		t.Fatal("Expected ErrClosed after Close")
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()
	var wg sync.WaitGroup

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			h, _ := b.Create("Int64", id, uint64(id))
			ref := value.NewRef(uint32(h), b)
			wp := weak.Make(ref)
			b.Bind(h, wp)
			b.Borrow(h, wp)
			b.ReturnBorrow(h)
			b.Drop(h, wp)
		}(i)
	}

	wg.Wait()
	if b.Len() != 0 || b.Pending() != 0 {
		t.Fatalf("Len=%d Pending=%d after concurrent churn", b.Len(), b.Pending())
	}
}
