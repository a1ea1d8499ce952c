package resource

import (
	"testing"
	"weak"

	"github.com/wippyai/numbridge/value"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func (o *testObserver) types() []EventType {
	out := make([]EventType, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h, err := table.Insert("String", "test", 5)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	ref := value.NewRef(uint32(h), table)
	wp := weak.Make(ref)
	table.Bind(h, wp)

	if _, ok := table.Borrow(h, wp); !ok {
		t.Fatal("Borrow failed")
	}
	table.ReturnBorrow(h)
	if _, ok := table.Remove(h, wp, EventReleased); !ok {
		t.Fatal("Remove failed")
	}

	want := []EventType{EventCreated, EventBorrowed, EventBorrowReturned, EventReleased}
	got := obs.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if obs.events[0].TypeName != "String" || obs.events[0].ID != 5 {
		t.Errorf("created event = %+v", obs.events[0])
	}

	table.Unsubscribe(obs)
	if _, err := table.Insert("String", "x", 6); err != nil {
		t.Fatal(err)
	}
	if len(obs.events) != len(want) {
		t.Error("unsubscribed observer still notified")
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	table.Insert("Int64", 1, 1)
	table.Insert("Int64", 2, 2)

	rs := table.Close()
	if len(rs) != 2 {
		t.Fatalf("Close returned %d", len(rs))
	}
	if table.Len() != 0 {
		t.Errorf("Len = %d after Close", table.Len())
	}
	if _, err := table.Insert("Int64", 3, 3); err == nil {
		t.Error("Insert after Close should fail")
	}
	released := 0
	for _, e := range obs.events {
		if e.Type == EventReleased {
			released++
		}
	}
	if released != 2 {
		t.Errorf("released events = %d, want 2", released)
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		want string
		typ  EventType
	}{
		{"created", EventCreated},
		{"released", EventReleased},
		{"borrowed", EventBorrowed},
		{"borrow_returned", EventBorrowReturned},
		{"collected", EventCollected},
		{"unknown", EventType(99)},
	}
	for _, tc := range tests {
		if got := tc.typ.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
