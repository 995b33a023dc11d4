package native

import (
	"github.com/google/uuid"
)

// State is the lifecycle stage of a native struct behind a Handle.
type State int

const (
	Unallocated State = iota
	Populated
	Released
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Unallocated:
		return "Unallocated"
	case Populated:
		return "Populated"
	case Released:
		return "Released"
	default:
		return "Unknown"
	}
}

// FreeFunc releases everything reachable from a populated struct at p,
// including the struct block itself.
type FreeFunc func(h *Heap, p Ptr) error

// Handle owns one populated native struct. The only way to release the
// memory is through the handle, which refuses a second release and any
// release routed through a heap other than the one that allocated it.
type Handle struct {
	heapID uuid.UUID
	heap   *Heap
	ptr    Ptr
	state  State
	free   FreeFunc
}

// Adopt wraps a populated struct at p so that it is released with free.
// A Null pointer yields a handle in the Unallocated state.
func (h *Heap) Adopt(p Ptr, free FreeFunc) *Handle {
	hd := &Handle{heapID: h.id, heap: h, ptr: p, free: free}
	if p != Null {
		hd.state = Populated
	}
	return hd
}

// Ptr returns the struct address, or Null once released.
func (hd *Handle) Ptr() Ptr {
	if hd == nil || hd.state != Populated {
		return Null
	}
	return hd.ptr
}

// State returns the lifecycle stage.
func (hd *Handle) State() State {
	if hd == nil {
		return Unallocated
	}
	return hd.state
}

// Heap returns the heap that owns the struct.
func (hd *Handle) Heap() *Heap {
	return hd.heap
}

// Release frees the struct and everything it owns.
func (hd *Handle) Release() error {
	if hd == nil {
		return nil
	}
	return hd.heap.Release(hd)
}

// Release frees the struct owned by hd. Releasing an unallocated handle is a
// no-op; releasing twice returns ErrDoubleFree.
func (h *Heap) Release(hd *Handle) error {
	if hd == nil {
		return nil
	}
	if hd.heapID != h.id {
		return Errorf(PhaseFree, ErrForeignAllocator, "handle from heap %s released through heap %s", hd.heapID, h.id)
	}
	switch hd.state {
	case Unallocated:
		return nil
	case Released:
		return Errorf(PhaseFree, ErrDoubleFree, "pointer 0x%x", uint32(hd.ptr))
	}

	hd.state = Released
	if hd.free == nil {
		return h.Free(hd.ptr)
	}
	return hd.free(h, hd.ptr)
}
