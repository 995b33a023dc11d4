package scene

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

// MetadataType tags the value of a metadata entry.
type MetadataType uint32

const (
	MetaBool     MetadataType = 0
	MetaInt32    MetadataType = 1
	MetaUint64   MetadataType = 2
	MetaFloat    MetadataType = 3
	MetaDouble   MetadataType = 4
	MetaString   MetadataType = 5
	MetaVector3  MetadataType = 6
	MetaMetadata MetadataType = 7
	MetaInt64    MetadataType = 8
	MetaUint32   MetadataType = 9
)

var metaSizes = map[MetadataType]uint32{
	MetaBool:    1,
	MetaInt32:   4,
	MetaUint64:  8,
	MetaFloat:   4,
	MetaDouble:  8,
	MetaString:  native.StringSize,
	MetaVector3: 12,
	MetaInt64:   8,
	MetaUint32:  4,
}

func (t MetadataType) String() string {
	switch t {
	case MetaBool:
		return "bool"
	case MetaInt32:
		return "int32"
	case MetaUint64:
		return "uint64"
	case MetaFloat:
		return "float"
	case MetaDouble:
		return "double"
	case MetaString:
		return "string"
	case MetaVector3:
		return "vector3"
	case MetaMetadata:
		return "metadata"
	case MetaInt64:
		return "int64"
	case MetaUint32:
		return "uint32"
	}
	return fmt.Sprintf("MetadataType(%d)", uint32(t))
}

// MetadataEntry is one typed value. Data holds bool, int32, uint64,
// float32, float64, string, math.Vec3, int64 or uint32 matching Type.
type MetadataEntry struct {
	Type MetadataType
	Data any
}

// NewMetadataEntry infers the entry type from the Go type of v.
func NewMetadataEntry(v any) (MetadataEntry, error) {
	var t MetadataType
	switch v.(type) {
	case bool:
		t = MetaBool
	case int32:
		t = MetaInt32
	case uint64:
		t = MetaUint64
	case float32:
		t = MetaFloat
	case float64:
		t = MetaDouble
	case string:
		t = MetaString
	case math.Vec3:
		t = MetaVector3
	case int64:
		t = MetaInt64
	case uint32:
		t = MetaUint32
	default:
		return MetadataEntry{}, native.Errorf(native.PhaseEncode, native.ErrUnsupported, "metadata value of type %T", v)
	}
	return MetadataEntry{Type: t, Data: v}, nil
}

// Metadata is an ordered map of typed values attached to a scene or node.
// The zero value is empty and ready to use.
type Metadata struct {
	keys    []string
	entries map[string]MetadataEntry
}

// Len returns the number of entries.
func (m *Metadata) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string { return slices.Clone(m.keys) }

// Set stores v under key, keeping the key's position if it already exists.
func (m *Metadata) Set(key string, v any) error {
	e, err := NewMetadataEntry(v)
	if err != nil {
		return fmt.Errorf("metadata %q: %w", key, err)
	}
	m.put(key, e)
	return nil
}

func (m *Metadata) put(key string, e MetadataEntry) {
	if m.entries == nil {
		m.entries = make(map[string]MetadataEntry)
	}
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = e
}

// Get returns the entry under key.
func (m *Metadata) Get(key string) (MetadataEntry, bool) {
	e, ok := m.entries[key]
	return e, ok
}

// Delete removes key and reports whether it was present.
func (m *Metadata) Delete(key string) bool {
	if _, ok := m.entries[key]; !ok {
		return false
	}
	delete(m.entries, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
	return true
}

// Clear removes every entry.
func (m *Metadata) Clear() {
	m.keys = nil
	m.entries = nil
}

// MetadataValue returns the value under key if it exists with type T.
func MetadataValue[T any](m *Metadata, key string) (T, bool) {
	e, ok := m.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := e.Data.(T)
	return v, ok
}

func (m *Metadata) nativeLayout() *native.Layout { return metadataL.layout }

func (m *Metadata) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f, ef := metadataL, metadataEntryL
	n := uint32(len(m.keys))
	if n == 0 {
		return nil
	}
	keys, err := native.AllocArray(tc.heap, n, native.StringSize, 4)
	if err != nil {
		return err
	}
	putPtr(b, f.keys, keys)
	values, err := native.AllocArray(tc.heap, n, ef.layout.Size(), ef.layout.Align())
	if err != nil {
		return err
	}
	putPtr(b, f.values, values)
	putU32(b, f.numProperties, n)

	keySlots, err := tc.heap.Span(keys, n*native.StringSize)
	if err != nil {
		return err
	}
	valueSlots, err := tc.heap.Span(values, n*ef.layout.Size())
	if err != nil {
		return err
	}
	for i, key := range m.keys {
		if err := native.PutString(keySlots[uint32(i)*native.StringSize:], key); err != nil {
			return native.AtPath(err, native.Index("keys", i))
		}
		e := m.entries[key]
		slot := valueSlots[uint32(i)*ef.layout.Size():]
		putU32(slot, ef.entryType, uint32(e.Type))
		size, ok := metaSizes[e.Type]
		if !ok {
			return native.AtPath(native.Errorf(native.PhaseEncode, native.ErrUnsupported, "entry type %s", e.Type), key)
		}
		p, err := tc.heap.Alloc(size, min(size, 8))
		if err != nil {
			return err
		}
		putPtr(slot, ef.data, p)
		data, err := tc.heap.Span(p, size)
		if err != nil {
			return err
		}
		if err := putMetaValue(data, e); err != nil {
			return native.AtPath(err, key)
		}
	}
	return nil
}

func putMetaValue(b []byte, e MetadataEntry) error {
	bad := func() error {
		return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, "%s entry holds %T", e.Type, e.Data)
	}
	switch v := e.Data.(type) {
	case bool:
		if e.Type != MetaBool {
			return bad()
		}
		if v {
			b[0] = 1
		}
	case int32:
		if e.Type != MetaInt32 {
			return bad()
		}
		native.I32.Put(b, v)
	case uint64:
		if e.Type != MetaUint64 {
			return bad()
		}
		native.U64.Put(b, v)
	case float32:
		if e.Type != MetaFloat {
			return bad()
		}
		native.F32.Put(b, v)
	case float64:
		if e.Type != MetaDouble {
			return bad()
		}
		native.F64.Put(b, v)
	case string:
		if e.Type != MetaString {
			return bad()
		}
		return native.PutString(b, v)
	case math.Vec3:
		if e.Type != MetaVector3 {
			return bad()
		}
		native.Vec3.Put(b, v)
	case int64:
		if e.Type != MetaInt64 {
			return bad()
		}
		native.I64.Put(b, v)
	case uint32:
		if e.Type != MetaUint32 {
			return bad()
		}
		native.U32.Put(b, v)
	default:
		return bad()
	}
	return nil
}

func (m *Metadata) fromNative(tc *Transcoder, b []byte) error {
	f, ef := metadataL, metadataEntryL
	m.Clear()
	n := u32At(b, f.numProperties)
	keys, values := ptrAt(b, f.keys), ptrAt(b, f.values)
	if err := errors.Join(native.CheckPair(keys, n), native.CheckPair(values, n)); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	keyBytes, err := arrayBytes(n, native.StringSize)
	if err != nil {
		return err
	}
	keySlots, err := tc.heap.Span(keys, keyBytes)
	if err != nil {
		return native.AtPath(native.Corrupt("%v", err), "keys")
	}
	valueSlots, err := tc.heap.Span(values, n*ef.layout.Size())
	if err != nil {
		return native.AtPath(native.Corrupt("%v", err), "values")
	}
	for i := uint32(0); i < n; i++ {
		key, err := tc.strings.GetString(keySlots[i*native.StringSize:])
		if err != nil {
			return native.AtPath(err, native.Index("keys", int(i)))
		}
		slot := valueSlots[i*ef.layout.Size():]
		t := MetadataType(u32At(slot, ef.entryType))
		if t == MetaMetadata {
			return native.AtPath(native.Errorf(native.PhaseDecode, native.ErrUnsupported, "nested metadata"), key)
		}
		size, ok := metaSizes[t]
		if !ok {
			return native.AtPath(native.Corrupt("unknown entry type %d", uint32(t)), key)
		}
		data, err := tc.heap.Span(ptrAt(slot, ef.data), size)
		if err != nil {
			return native.AtPath(native.Corrupt("%v", err), key)
		}
		v, err := tc.metaValue(t, data)
		if err != nil {
			return native.AtPath(err, key)
		}
		m.put(key, MetadataEntry{Type: t, Data: v})
	}
	return nil
}

func (tc *Transcoder) metaValue(t MetadataType, b []byte) (any, error) {
	switch t {
	case MetaBool:
		return b[0] != 0, nil
	case MetaInt32:
		return native.I32.Decode(b), nil
	case MetaUint64:
		return native.U64.Decode(b), nil
	case MetaFloat:
		return native.F32.Decode(b), nil
	case MetaDouble:
		return native.F64.Decode(b), nil
	case MetaString:
		return tc.strings.GetString(b)
	case MetaVector3:
		return native.Vec3.Decode(b), nil
	case MetaInt64:
		return native.I64.Decode(b), nil
	case MetaUint32:
		return native.U32.Decode(b), nil
	}
	return nil, native.Corrupt("unknown entry type %d", uint32(t))
}

func (m *Metadata) freeNative(tc *Transcoder, b []byte) error {
	f, ef := metadataL, metadataEntryL
	n := u32At(b, f.numProperties)
	values := ptrAt(b, f.values)
	var errs []error
	if values != native.Null {
		size, err := arrayBytes(n, ef.layout.Size())
		if err != nil {
			return err
		}
		slots, err := tc.heap.Span(values, size)
		if err != nil {
			return err
		}
		for i := uint32(0); i < n; i++ {
			errs = append(errs, tc.heap.Free(ptrAt(slots[i*ef.layout.Size():], ef.data)))
		}
	}
	errs = append(errs, freeAt(tc, b, f.values), freeAt(tc, b, f.keys))
	return errors.Join(errs...)
}
