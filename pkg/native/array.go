package native

// CopyArray allocates a contiguous block holding items encoded with c.
// An empty slice yields Null and allocates nothing.
func CopyArray[T any](h *Heap, c Codec[T], items []T) (Ptr, error) {
	if len(items) == 0 {
		return Null, nil
	}
	size, ok := mulU32(uint32(len(items)), c.Size)
	if !ok || uint64(len(items)) > uint64(^uint32(0)) {
		return Null, Errorf(PhaseAlloc, ErrAllocation, "%d x %s overflows the address space", len(items), c.Name)
	}
	p, err := h.Alloc(size, c.Align)
	if err != nil {
		return Null, err
	}
	b, err := h.Span(p, size)
	if err != nil {
		return Null, err
	}
	for i, v := range items {
		c.Put(b[uint32(i)*c.Size:], v)
	}
	return p, nil
}

// ReadArray decodes count elements of codec c starting at p. A Null pointer
// with a zero count yields an empty (non-nil) slice. A Null pointer with a
// nonzero count, a non-null pointer with a zero count, or a range that
// overruns its block are all corrupt input.
func ReadArray[T any](h *Heap, c Codec[T], p Ptr, count uint32) ([]T, error) {
	if err := CheckPair(p, count); err != nil {
		return nil, err
	}
	items := make([]T, count)
	if count == 0 {
		return items, nil
	}
	size, ok := mulU32(count, c.Size)
	if !ok {
		return nil, Corrupt("%d x %s overflows the address space", count, c.Name)
	}
	b, err := h.Span(p, size)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i] = c.Decode(b[uint32(i)*c.Size:])
	}
	return items, nil
}

// CheckPair validates a pointer/count pair read from a native struct.
func CheckPair(p Ptr, count uint32) error {
	switch {
	case p == Null && count != 0:
		return Corrupt("null pointer with count %d", count)
	case p != Null && count == 0:
		return Corrupt("pointer 0x%x with zero count", uint32(p))
	}
	return nil
}

// AllocArray reserves count zeroed elements of elemSize bytes.
func AllocArray(h *Heap, count, elemSize, align uint32) (Ptr, error) {
	if count == 0 {
		return Null, nil
	}
	size, ok := mulU32(count, elemSize)
	if !ok {
		return Null, Errorf(PhaseAlloc, ErrAllocation, "%d x %d bytes overflows the address space", count, elemSize)
	}
	return h.Alloc(size, align)
}

func mulU32(a, b uint32) (uint32, bool) {
	r := uint64(a) * uint64(b)
	if r > uint64(^uint32(0)) {
		return 0, false
	}
	return uint32(r), true
}
