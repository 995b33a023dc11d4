package native

// Layout computes field offsets of a native struct in declaration order,
// applying natural alignment. Offsets are fixed at package init and must
// follow the C declaration exactly.
type Layout struct {
	Name     string
	size     uint32
	maxAlign uint32
	closed   bool
}

// NewLayout starts a struct layout.
func NewLayout(name string) *Layout {
	return &Layout{Name: name, maxAlign: 1}
}

// Field appends a field of size bytes and returns its offset.
func (l *Layout) Field(size, align uint32) uint32 {
	if l.closed {
		panic("native: field added to closed layout " + l.Name)
	}
	off := alignUp(l.size, align)
	l.size = off + size
	if align > l.maxAlign {
		l.maxAlign = align
	}
	return off
}

// U32 appends a 32-bit integer or float field.
func (l *Layout) U32() uint32 { return l.Field(4, 4) }

// F64 appends a double field.
func (l *Layout) F64() uint32 { return l.Field(8, 8) }

// Ptr appends a pointer field.
func (l *Layout) Ptr() uint32 { return l.Field(PtrSize, PtrSize) }

// InlineString appends an inline string slot.
func (l *Layout) InlineString() uint32 { return l.Field(StringSize, 4) }

// Value appends a field holding one value of codec c.
func Value[T any](l *Layout, c Codec[T]) uint32 {
	return l.Field(c.Size, c.Align)
}

// Array appends n consecutive fields of the given size and returns the
// offset of the first.
func (l *Layout) Array(n int, size, align uint32) uint32 {
	off := l.Field(size, align)
	for i := 1; i < n; i++ {
		l.Field(size, align)
	}
	return off
}

// Close finishes the layout and returns the padded struct size.
func (l *Layout) Close() uint32 {
	l.closed = true
	l.size = alignUp(l.size, l.maxAlign)
	return l.size
}

// Size returns the padded struct size of a closed layout.
func (l *Layout) Size() uint32 { return l.size }

// Align returns the struct alignment.
func (l *Layout) Align() uint32 { return l.maxAlign }
