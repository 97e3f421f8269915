// Package resource provides a reference-counted object table.
//
// The native runtime keeps every object it hands out (functions, modules,
// arrays, pinned strings) in a Table and gives callers the integer handle.
// Each handle starts with one reference; Retain adds one and Release drops
// one. The object is removed when the count reaches zero.
//
//	table := resource.NewTable()
//
//	h := table.Insert(kindFunction, fn)   // refs = 1
//	table.Retain(h)                       // refs = 2
//	table.Release(h)                      // refs = 1
//	table.Release(h)                      // dropped, fn.Drop() runs
//
// # Type Safety
//
// Every entry records a type ID chosen by the caller:
//
//	value, ok := table.GetTyped(h, kindFunction) // ok
//	value, ok := table.GetTyped(h, kindArray)    // !ok
//
// # Observers
//
// Observers see every lifecycle transition. Tests use them to prove that an
// object was dropped exactly once:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventDropped {
//	        drops[e.Handle]++
//	    }
//	}))
//
// # Cleanup
//
// Values implementing Dropper are notified when their last reference goes
// away, and by Close. Drop runs with no table lock held so that releasing one
// object may release others, such as a function letting go of its module.
package resource
