// Package native models the flat memory side of scene transcoding: a 32-bit
// little-endian address space with an allocator that tracks every live block,
// fixed-layout primitive codecs, and owned handles over populated structs.
package native

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ptr is an address in a Heap. The zero value is the null pointer.
type Ptr uint32

// Null is the null pointer.
const Null Ptr = 0

// PtrSize is the size of a pointer field in native structs.
const PtrSize = 4

const (
	// heapBase keeps the first bytes unused so no live block starts at Null.
	heapBase = 16

	DefaultInitialSize = 64 << 10
	DefaultMaxSize     = 256 << 20
)

// HeapConfig holds heap sizing limits.
type HeapConfig struct {
	InitialSize uint32
	MaxSize     uint32
}

// Option configures a Heap.
type Option func(*Heap)

// WithConfig sets initial and maximum sizes. Zero fields keep their defaults.
func WithConfig(cfg HeapConfig) Option {
	return func(h *Heap) {
		if cfg.InitialSize > 0 {
			h.initial = cfg.InitialSize
		}
		if cfg.MaxSize > 0 {
			h.limit = cfg.MaxSize
		}
	}
}

// WithLogger sets the logger used for growth and misuse diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(h *Heap) {
		if log != nil {
			h.log = log
		}
	}
}

type block struct {
	start Ptr    // first usable byte
	size  uint32 // requested size
	base  Ptr    // start of the reserved region
	span  uint32 // reserved bytes from base
}

type freeSpan struct {
	addr Ptr
	size uint32
}

// Stats reports heap usage.
type Stats struct {
	LiveBlocks int
	LiveBytes  uint32
	HighWater  uint32
	Allocs     int
	Frees      int
}

// segment is one fixed backing array. Segments tile the address space in
// order and never move, so a span stays valid until its block is freed.
type segment struct {
	base uint32
	mem  []byte
}

func (s segment) end() uint32 { return s.base + uint32(len(s.mem)) }

// Heap is the allocator and address space shared by encode, decode and free.
// A Heap is not safe for concurrent use.
type Heap struct {
	id      uuid.UUID
	segs    []segment
	top     uint32
	initial uint32
	limit   uint32
	starts  []Ptr // sorted starts of live blocks
	blocks  map[Ptr]block
	free    []freeSpan // sorted by address, coalesced
	stats   Stats
	log     *zap.Logger
}

// NewHeap creates an empty heap.
func NewHeap(opts ...Option) *Heap {
	h := &Heap{
		id:      uuid.New(),
		initial: DefaultInitialSize,
		limit:   DefaultMaxSize,
		blocks:  make(map[Ptr]block),
		top:     heapBase,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.initial > h.limit {
		h.initial = h.limit
	}
	if h.initial < heapBase*2 {
		h.initial = heapBase * 2
	}
	h.segs = []segment{{base: 0, mem: make([]byte, h.initial)}}
	return h
}

// ID returns the heap identity recorded in every handle it issues.
func (h *Heap) ID() uuid.UUID {
	return h.id
}

// Stats returns current usage counters.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.LiveBlocks = len(h.blocks)
	return s
}

// Alloc reserves size zeroed bytes aligned to align (a power of two).
// Zero-sized requests return Null: empty data never owns a block.
func (h *Heap) Alloc(size, align uint32) (Ptr, error) {
	if size == 0 {
		return Null, nil
	}
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return Null, Errorf(PhaseAlloc, ErrAllocation, "alignment %d is not a power of two", align)
	}

	if p, ok := h.takeFree(size, align); ok {
		return p, nil
	}

	start := alignUp(h.top, align)
	end := uint64(start) + uint64(size)
	if end > uint64(h.segs[len(h.segs)-1].end()) {
		if err := h.grow(size, align); err != nil {
			return Null, err
		}
		start = alignUp(h.top, align)
		end = uint64(start) + uint64(size)
	}

	b := block{start: Ptr(start), size: size, base: Ptr(h.top), span: uint32(end) - h.top}
	h.top = uint32(end)
	h.track(b)
	return b.start, nil
}

// Free releases the block starting at p. Freeing Null is a no-op.
func (h *Heap) Free(p Ptr) error {
	if p == Null {
		return nil
	}
	b, ok := h.blocks[p]
	if !ok {
		h.log.Warn("free of unknown pointer", zap.Uint32("ptr", uint32(p)))
		return Errorf(PhaseFree, ErrInvalidFree, "pointer 0x%x is not a live block", uint32(p))
	}

	delete(h.blocks, p)
	if i, found := slices.BinarySearch(h.starts, p); found {
		h.starts = slices.Delete(h.starts, i, i+1)
	}
	h.stats.LiveBytes -= b.size
	h.stats.Frees++
	seg := h.segs[h.segmentOf(b.base)]
	clear(seg.mem[uint32(b.base)-seg.base : uint32(b.base)-seg.base+b.span])
	h.release(freeSpan{addr: b.base, size: b.span})
	return nil
}

// Live reports whether p is the start of a live block.
func (h *Heap) Live(p Ptr) bool {
	_, ok := h.blocks[p]
	return ok
}

// BlockSize returns the requested size of the live block starting at p.
func (h *Heap) BlockSize(p Ptr) (uint32, bool) {
	b, ok := h.blocks[p]
	return b.size, ok
}

// Span returns a writable view of n bytes at p. The range must lie inside a
// single live block; anything else is reported as corrupt input.
func (h *Heap) Span(p Ptr, n uint32) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if p == Null {
		return nil, Corrupt("null pointer for %d bytes", n)
	}
	i, found := slices.BinarySearch(h.starts, p)
	if !found {
		i--
	}
	if i < 0 {
		return nil, Corrupt("pointer 0x%x is outside any live block", uint32(p))
	}
	b := h.blocks[h.starts[i]]
	end := uint64(p) + uint64(n)
	if end > uint64(b.start)+uint64(b.size) {
		return nil, Corrupt("range 0x%x+%d overruns block 0x%x+%d", uint32(p), n, uint32(b.start), b.size)
	}
	seg := h.segs[h.segmentOf(b.start)]
	lo, hi := uint32(p)-seg.base, uint32(end)-seg.base
	return seg.mem[lo:hi:hi], nil
}

// Write copies data into the heap at p.
func (h *Heap) Write(p Ptr, data []byte) error {
	dst, err := h.Span(p, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// Read returns a copy of n bytes at p.
func (h *Heap) Read(p Ptr, n uint32) ([]byte, error) {
	src, err := h.Span(p, n)
	if err != nil {
		return nil, err
	}
	return slices.Clone(src), nil
}

// AllocBytes allocates a block holding a copy of data.
func (h *Heap) AllocBytes(data []byte) (Ptr, error) {
	p, err := h.Alloc(uint32(len(data)), 1)
	if err != nil || p == Null {
		return p, err
	}
	return p, h.Write(p, data)
}

func (h *Heap) track(b block) {
	h.blocks[b.start] = b
	i, _ := slices.BinarySearch(h.starts, b.start)
	h.starts = slices.Insert(h.starts, i, b.start)
	h.stats.Allocs++
	h.stats.LiveBytes += b.size
	if h.stats.LiveBytes > h.stats.HighWater {
		h.stats.HighWater = h.stats.LiveBytes
	}
}

// grow appends a segment large enough for size bytes at align. The unused
// tail of the previous segment goes to the free list.
func (h *Heap) grow(size, align uint32) error {
	last := h.segs[len(h.segs)-1]
	base := last.end()
	need := uint64(alignUp(base, align)-base) + uint64(size)
	next := uint64(len(last.mem)) * 2
	for next < need {
		next *= 2
	}
	if uint64(base)+next > uint64(h.limit) {
		next = uint64(h.limit) - uint64(base)
	}
	if uint64(base) >= uint64(h.limit) || next < need {
		h.log.Warn("native heap exhausted",
			zap.Uint32("requested", size),
			zap.Uint32("limit", h.limit))
		return Errorf(PhaseAlloc, ErrAllocation, "%d bytes requested, limit %d", size, h.limit)
	}
	h.log.Debug("growing native heap",
		zap.Uint32("base", base),
		zap.Uint64("segment", next))
	if h.top < base {
		h.release(freeSpan{addr: Ptr(h.top), size: base - h.top})
	}
	h.segs = append(h.segs, segment{base: base, mem: make([]byte, next)})
	h.top = base
	return nil
}

// segmentOf returns the index of the segment containing addr.
func (h *Heap) segmentOf(addr Ptr) int {
	i, _ := slices.BinarySearchFunc(h.segs, uint32(addr), func(s segment, a uint32) int {
		if s.end() <= a {
			return -1
		}
		if s.base > a {
			return 1
		}
		return 0
	})
	return i
}

// takeFree carves a block from the first free span that fits.
func (h *Heap) takeFree(size, align uint32) (Ptr, bool) {
	for i, s := range h.free {
		start := alignUp(uint32(s.addr), align)
		end := uint64(start) + uint64(size)
		if end > uint64(s.addr)+uint64(s.size) {
			continue
		}
		b := block{start: Ptr(start), size: size, base: s.addr, span: uint32(end) - uint32(s.addr)}
		rest := s.size - b.span
		if rest > 0 {
			h.free[i] = freeSpan{addr: Ptr(end), size: rest}
		} else {
			h.free = slices.Delete(h.free, i, i+1)
		}
		h.track(b)
		return b.start, true
	}
	return Null, false
}

// release returns a span to the free list, merging neighbours.
func (h *Heap) release(s freeSpan) {
	i, _ := slices.BinarySearchFunc(h.free, s.addr, func(f freeSpan, addr Ptr) int {
		return int(int64(f.addr) - int64(addr))
	})
	h.free = slices.Insert(h.free, i, s)

	// Spans only merge within a segment so no block straddles two arrays.
	if i+1 < len(h.free) && h.adjacent(h.free[i], h.free[i+1]) {
		h.free[i].size += h.free[i+1].size
		h.free = slices.Delete(h.free, i+1, i+2)
	}
	if i > 0 && h.adjacent(h.free[i-1], h.free[i]) {
		h.free[i-1].size += h.free[i].size
		h.free = slices.Delete(h.free, i, i+1)
	}
}

func (h *Heap) adjacent(a, b freeSpan) bool {
	return a.addr+Ptr(a.size) == b.addr && h.segmentOf(a.addr) == h.segmentOf(b.addr)
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

// String describes the heap for diagnostics.
func (h *Heap) String() string {
	return fmt.Sprintf("heap %s: %d live blocks, %d live bytes", h.id, len(h.blocks), h.stats.LiveBytes)
}
