package resource

import (
	"sync"
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

type dropCounter struct {
	drops int
}

func (d *dropCounter) Drop() { d.drops++ }

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert(1, "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if _, ok = table.GetTyped(h, 1); !ok {
		t.Fatal("GetTyped with correct type failed")
	}
	if _, ok = table.GetTyped(h, 2); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	if !table.Release(h) {
		t.Fatal("Release failed")
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Release")
	}
	if table.Release(h) {
		t.Fatal("second Release of dropped handle should fail")
	}
}

func TestTable_RefCounting(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}

	h := table.Insert(1, d)
	for i := 0; i < 3; i++ {
		if !table.Retain(h) {
			t.Fatalf("Retain %d failed", i)
		}
	}
	if got := table.Refs(h); got != 4 {
		t.Fatalf("Refs = %d, want 4", got)
	}

	for i := 0; i < 3; i++ {
		table.Release(h)
		if d.drops != 0 {
			t.Fatalf("dropped early after %d releases", i+1)
		}
	}
	table.Release(h)
	if d.drops != 1 {
		t.Fatalf("drops = %d, want 1", d.drops)
	}
	if table.Retain(h) {
		t.Fatal("Retain on dropped handle should fail")
	}
}

func TestTable_HandlesNotReused(t *testing.T) {
	table := NewTable()
	h1 := table.Insert(1, "a")
	table.Release(h1)
	h2 := table.Insert(1, "b")
	if h1 == h2 {
		t.Fatalf("handle %d reused", h1)
	}
	if _, ok := table.Get(h1); ok {
		t.Fatal("stale handle resolved")
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert(7, "test")
	table.Retain(h)
	table.Release(h)
	table.Release(h)

	want := []EventType{EventCreated, EventRetained, EventReleased, EventDropped}
	if len(obs.events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(obs.events))
	}
	for i, e := range obs.events {
		if e.Type != want[i] {
			t.Errorf("event %d = %s, want %s", i, e.Type, want[i])
		}
		if e.Handle != h || e.TypeID != 7 {
			t.Errorf("event %d has handle %d type %d", i, e.Handle, e.TypeID)
		}
	}

	table.Unsubscribe(obs)
	table.Insert(1, "other")
	if len(obs.events) != len(want) {
		t.Fatal("unsubscribed observer still notified")
	}
}

func TestTable_DropMayReleaseOthers(t *testing.T) {
	table := NewTable()
	inner := &dropCounter{}
	ih := table.Insert(1, inner)

	outer := releaser{table: table, h: ih}
	oh := table.Insert(2, outer)

	table.Release(oh)
	if inner.drops != 1 {
		t.Fatalf("inner drops = %d, want 1", inner.drops)
	}
	if table.Len() != 0 {
		t.Fatalf("Len = %d, want 0", table.Len())
	}
}

type releaser struct {
	table *Table
	h     Handle
}

func (r releaser) Drop() { r.table.Release(r.h) }

func TestTable_Close(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}
	h := table.Insert(1, d)
	table.Retain(h)

	if err := table.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if d.drops != 1 {
		t.Fatalf("drops = %d, want 1", d.drops)
	}
	if table.Insert(1, "late") != 0 {
		t.Fatal("Insert after Close should return 0")
	}
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}
	h := table.Insert(1, d)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table.Retain(h)
			table.Release(h)
		}()
	}
	wg.Wait()

	if d.drops != 0 {
		t.Fatal("dropped while original reference held")
	}
	table.Release(h)
	if d.drops != 1 {
		t.Fatalf("drops = %d, want 1", d.drops)
	}
}
