package scene

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/assetbridge/pkg/native"
)

// DefaultMaxNodeDepth bounds node hierarchies read from native memory.
const DefaultMaxNodeDepth = 1024

// Marshaler is implemented by every aggregate that has a native struct form.
// The methods operate on the struct bytes b, which the caller has allocated
// (zeroed) or located; toNative also receives the struct address. Pointer
// and count fields are written before the memory they reference is filled,
// so a struct left behind by a failed toNative can always be released with
// freeNative.
type Marshaler interface {
	nativeLayout() *native.Layout
	toNative(tc *Transcoder, at native.Ptr, b []byte) error
	// fromNative replaces the receiver's contents with the struct in b.
	fromNative(tc *Transcoder, b []byte) error
	// freeNative releases everything b references, not b itself.
	freeNative(tc *Transcoder, b []byte) error
}

// marshalPtr constrains a pointer type whose element implements Marshaler.
type marshalPtr[T any] interface {
	*T
	Marshaler
}

// Transcoder moves aggregates between Go values and one native heap.
type Transcoder struct {
	heap     *native.Heap
	strings  native.Decoder
	maxDepth int
	log      *zap.Logger
}

// TranscoderOption configures a Transcoder.
type TranscoderOption func(*Transcoder)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log *zap.Logger) TranscoderOption {
	return func(tc *Transcoder) {
		if log != nil {
			tc.log = log
		}
	}
}

// WithStringFallback sets the decoder applied to native strings that are
// not valid UTF-8.
func WithStringFallback(fn func([]byte) (string, error)) TranscoderOption {
	return func(tc *Transcoder) { tc.strings.Fallback = fn }
}

// WithMaxNodeDepth overrides DefaultMaxNodeDepth.
func WithMaxNodeDepth(depth int) TranscoderOption {
	return func(tc *Transcoder) {
		if depth > 0 {
			tc.maxDepth = depth
		}
	}
}

// NewTranscoder creates a transcoder bound to heap h.
func NewTranscoder(h *native.Heap, opts ...TranscoderOption) *Transcoder {
	tc := &Transcoder{heap: h, maxDepth: DefaultMaxNodeDepth, log: zap.NewNop()}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Heap returns the heap this transcoder allocates from.
func (tc *Transcoder) Heap() *native.Heap {
	return tc.heap
}

// ToNative allocates a native struct for v and fills it, including all
// owned child memory. On failure everything allocated so far is released.
func ToNative[T any, PT marshalPtr[T]](tc *Transcoder, v PT) (native.Ptr, error) {
	if (*T)(v) == nil {
		return native.Null, nil
	}
	l := v.nativeLayout()
	p, err := tc.heap.Alloc(l.Size(), l.Align())
	if err != nil {
		return native.Null, err
	}
	b, err := tc.heap.Span(p, l.Size())
	if err != nil {
		return native.Null, err
	}
	if err := v.toNative(tc, p, b); err != nil {
		if ferr := v.freeNative(tc, b); ferr != nil {
			tc.log.Warn("release after failed encode", zap.String("struct", l.Name), zap.Error(ferr))
		}
		if ferr := tc.heap.Free(p); ferr != nil {
			tc.log.Warn("free struct after failed encode", zap.String("struct", l.Name), zap.Error(ferr))
		}
		return native.Null, err
	}
	return p, nil
}

// FromNative builds a new Go value from the native struct at p. A Null
// pointer yields nil.
func FromNative[T any, PT marshalPtr[T]](tc *Transcoder, p native.Ptr) (PT, error) {
	if p == native.Null {
		return nil, nil
	}
	v := PT(new(T))
	if err := DecodeInto(tc, p, v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeInto replaces the contents of v with the native struct at p.
func DecodeInto(tc *Transcoder, p native.Ptr, v Marshaler) error {
	b, err := tc.span(p, v.nativeLayout())
	if err != nil {
		return err
	}
	return v.fromNative(tc, b)
}

// FreeNative releases all memory owned by the native struct at p and, when
// freeStruct is set, the struct itself. A Null pointer is a no-op.
func FreeNative[T any, PT marshalPtr[T]](tc *Transcoder, p native.Ptr, freeStruct bool) error {
	if p == native.Null {
		return nil
	}
	v := PT(new(T))
	b, err := tc.span(p, v.nativeLayout())
	if err != nil {
		return native.AtPath(err, v.nativeLayout().Name)
	}
	err = v.freeNative(tc, b)
	if freeStruct {
		err = errors.Join(err, tc.heap.Free(p))
	}
	return err
}

// Encode converts v and wraps the result in a handle whose release frees
// the whole native graph.
func Encode[T any, PT marshalPtr[T]](tc *Transcoder, v PT) (*native.Handle, error) {
	p, err := ToNative[T, PT](tc, v)
	if err != nil {
		return nil, err
	}
	return tc.heap.Adopt(p, func(_ *native.Heap, p native.Ptr) error {
		return FreeNative[T, PT](tc, p, true)
	}), nil
}

func (tc *Transcoder) span(p native.Ptr, l *native.Layout) ([]byte, error) {
	b, err := tc.heap.Span(p, l.Size())
	if err != nil {
		return nil, native.Corrupt("%s at 0x%x: %v", l.Name, uint32(p), err)
	}
	return b, nil
}

func (tc *Transcoder) putString(b []byte, off uint32, s string) error {
	return native.PutString(b[off:], s)
}

func (tc *Transcoder) getString(b []byte, off uint32) (string, error) {
	return tc.strings.GetString(b[off:])
}

// Field accessors on struct bytes.

func u32At(b []byte, off uint32) uint32 { return native.U32.Decode(b[off:]) }

func putU32(b []byte, off, v uint32) { native.U32.Put(b[off:], v) }

func ptrAt(b []byte, off uint32) native.Ptr { return native.Pointer.Decode(b[off:]) }

func putPtr(b []byte, off uint32, p native.Ptr) { native.Pointer.Put(b[off:], p) }

func f32At(b []byte, off uint32) float32 { return native.DecodeF32(b[off:]) }

func putF32(b []byte, off uint32, v float32) { native.PutF32(b[off:], v) }

// arrayBytes returns n*size, treating overflow as corrupt input.
func arrayBytes(n, size uint32) (uint32, error) {
	total := uint64(n) * uint64(size)
	if total > uint64(^uint32(0)) {
		return 0, native.Corrupt("%d elements of %d bytes overflow the address space", n, size)
	}
	return uint32(total), nil
}

// pair reads a count/pointer field pair and validates it.
func pair(b []byte, countOff, ptrOff uint32) (native.Ptr, uint32, error) {
	p, n := ptrAt(b, ptrOff), u32At(b, countOff)
	return p, n, native.CheckPair(p, n)
}

// writeValues copies items into a fresh array and stores its pointer.
// The count field, when present, is the caller's job.
func writeValues[T any](tc *Transcoder, b []byte, ptrOff uint32, c native.Codec[T], items []T) error {
	p, err := native.CopyArray(tc.heap, c, items)
	if err != nil {
		return err
	}
	putPtr(b, ptrOff, p)
	return nil
}

// readValues reads count elements from the array referenced at ptrOff.
func readValues[T any](tc *Transcoder, b []byte, ptrOff uint32, c native.Codec[T], count uint32, field string) ([]T, error) {
	items, err := native.ReadArray(tc.heap, c, ptrAt(b, ptrOff), count)
	if err != nil {
		return nil, native.AtPath(err, field)
	}
	return items, nil
}

// readOptionalValues is readValues for arrays sized by a shared count, such
// as per-vertex streams, where a Null pointer means the stream is absent.
func readOptionalValues[T any](tc *Transcoder, b []byte, ptrOff uint32, c native.Codec[T], count uint32, field string) ([]T, error) {
	if ptrAt(b, ptrOff) == native.Null {
		return nil, nil
	}
	return readValues(tc, b, ptrOff, c, count, field)
}

func freeAt(tc *Transcoder, b []byte, ptrOff uint32) error {
	return tc.heap.Free(ptrAt(b, ptrOff))
}

// writePtrArray stores an array of pointers to separately allocated
// structs. Nil entries are written as Null only when allowNil is set.
func writePtrArray[T any, PT marshalPtr[T]](tc *Transcoder, b []byte, countOff, ptrOff uint32, items []PT, field string, allowNil bool) error {
	if len(items) == 0 {
		return nil
	}
	arr, err := native.AllocArray(tc.heap, uint32(len(items)), native.PtrSize, native.PtrSize)
	if err != nil {
		return err
	}
	putPtr(b, ptrOff, arr)
	putU32(b, countOff, uint32(len(items)))
	slots, err := tc.heap.Span(arr, uint32(len(items))*native.PtrSize)
	if err != nil {
		return err
	}
	for i, item := range items {
		if (*T)(item) == nil {
			if allowNil {
				continue
			}
			return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, "%s is nil", native.Index(field, i))
		}
		p, err := ToNative[T, PT](tc, item)
		if err != nil {
			return native.AtPath(err, native.Index(field, i))
		}
		putPtr(slots, uint32(i)*native.PtrSize, p)
	}
	return nil
}

func readPtrArray[T any, PT marshalPtr[T]](tc *Transcoder, b []byte, countOff, ptrOff uint32, field string, allowNil bool) ([]PT, error) {
	arr, n, err := pair(b, countOff, ptrOff)
	if err != nil {
		return nil, native.AtPath(err, field)
	}
	if n == 0 {
		return nil, nil
	}
	ptrs, err := native.ReadArray(tc.heap, native.Pointer, arr, n)
	if err != nil {
		return nil, native.AtPath(err, field)
	}
	items := make([]PT, n)
	for i, p := range ptrs {
		if p == native.Null {
			if allowNil {
				continue
			}
			return nil, native.AtPath(native.Corrupt("null element"), native.Index(field, i))
		}
		v, err := FromNative[T, PT](tc, p)
		if err != nil {
			return nil, native.AtPath(err, native.Index(field, i))
		}
		items[i] = v
	}
	return items, nil
}

// freePtrArray frees every element struct and then the pointer array.
// Null elements are skipped, which covers partially written arrays.
func freePtrArray[T any, PT marshalPtr[T]](tc *Transcoder, b []byte, countOff, ptrOff uint32) error {
	arr, n := ptrAt(b, ptrOff), u32At(b, countOff)
	if arr == native.Null {
		return nil
	}
	ptrs, err := native.ReadArray(tc.heap, native.Pointer, arr, n)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range ptrs {
		errs = append(errs, FreeNative[T, PT](tc, p, true))
	}
	errs = append(errs, tc.heap.Free(arr))
	return errors.Join(errs...)
}

// writeStructArray stores items contiguously, each element laid out as its
// native struct.
func writeStructArray[T any, PT marshalPtr[T]](tc *Transcoder, b []byte, countOff, ptrOff uint32, items []T, field string) error {
	if len(items) == 0 {
		return nil
	}
	l := PT(new(T)).nativeLayout()
	arr, err := native.AllocArray(tc.heap, uint32(len(items)), l.Size(), l.Align())
	if err != nil {
		return err
	}
	putPtr(b, ptrOff, arr)
	putU32(b, countOff, uint32(len(items)))
	elems, err := tc.heap.Span(arr, uint32(len(items))*l.Size())
	if err != nil {
		return err
	}
	for i := range items {
		off := uint32(i) * l.Size()
		if err := PT(&items[i]).toNative(tc, arr+native.Ptr(off), elems[off:off+l.Size()]); err != nil {
			return native.AtPath(err, native.Index(field, i))
		}
	}
	return nil
}

func readStructArray[T any, PT marshalPtr[T]](tc *Transcoder, b []byte, countOff, ptrOff uint32, field string) ([]T, error) {
	arr, n, err := pair(b, countOff, ptrOff)
	if err != nil {
		return nil, native.AtPath(err, field)
	}
	if n == 0 {
		return nil, nil
	}
	l := PT(new(T)).nativeLayout()
	size, err := arrayBytes(n, l.Size())
	if err != nil {
		return nil, native.AtPath(err, field)
	}
	elems, err := tc.heap.Span(arr, size)
	if err != nil {
		return nil, native.AtPath(native.Corrupt("%v", err), field)
	}
	items := make([]T, n)
	for i := range items {
		off := uint32(i) * l.Size()
		if err := PT(&items[i]).fromNative(tc, elems[off:off+l.Size()]); err != nil {
			return nil, native.AtPath(err, native.Index(field, i))
		}
	}
	return items, nil
}

// freeStructArray frees the children of each element in place and then the
// array block.
func freeStructArray[T any, PT marshalPtr[T]](tc *Transcoder, b []byte, countOff, ptrOff uint32) error {
	arr, n := ptrAt(b, ptrOff), u32At(b, countOff)
	if arr == native.Null {
		return nil
	}
	l := PT(new(T)).nativeLayout()
	size, err := arrayBytes(n, l.Size())
	if err != nil {
		return err
	}
	elems, err := tc.heap.Span(arr, size)
	if err != nil {
		return err
	}
	var errs []error
	for i := uint32(0); i < n; i++ {
		off := i * l.Size()
		errs = append(errs, PT(new(T)).freeNative(tc, elems[off:off+l.Size()]))
	}
	errs = append(errs, tc.heap.Free(arr))
	return errors.Join(errs...)
}
