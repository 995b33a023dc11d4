package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Faultbox/assetbridge/pkg/math"
)

func TestEncodeStringExact(t *testing.T) {
	got := EncodeString("Bone_Root")
	want := append([]byte{0x09, 0x00, 0x00, 0x00}, []byte("Bone_Root")...)
	want = append(want, 0x00)

	require.Len(t, got, 14)
	assert.Equal(t, want, got)

	s, err := DecodeString(got)
	require.NoError(t, err)
	assert.Equal(t, "Bone_Root", s)
}

func TestEncodeStringCountsBytes(t *testing.T) {
	// Two runes, five UTF-8 bytes.
	b := EncodeString("é漢")
	assert.Equal(t, uint32(5), le.Uint32(b))
	assert.Len(t, b, 4+5+1)
	assert.Equal(t, byte(0), b[len(b)-1])
}

func TestDecodeStringStopsAtLength(t *testing.T) {
	// Embedded NUL inside the declared length is kept.
	b := []byte{3, 0, 0, 0, 'a', 0, 'b', 0, 'x', 'y'}
	s, err := DecodeString(b)
	require.NoError(t, err)
	assert.Equal(t, "a\x00b", s)
}

func TestDecodeStringMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short prefix", []byte{1, 0}},
		{"negative length", []byte{0xFF, 0xFF, 0xFF, 0xFF, 'a'}},
		{"length past end", []byte{8, 0, 0, 0, 'a', 'b'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeString(tt.data)
			assert.ErrorIs(t, err, ErrCorruptInput)
		})
	}
}

func TestInlineString(t *testing.T) {
	slot := make([]byte, StringSize)
	require.NoError(t, PutString(slot, "root"))

	s, err := Decoder{}.GetString(slot)
	require.NoError(t, err)
	assert.Equal(t, "root", s)

	long := make([]byte, MaxStringLength+1)
	assert.ErrorIs(t, PutString(slot, string(long)), ErrStringTooLong)

	le.PutUint32(slot, MaxStringLength+5)
	_, err = Decoder{}.GetString(slot)
	assert.ErrorIs(t, err, ErrCorruptInput)
}

func TestInlineStringFallback(t *testing.T) {
	slot := make([]byte, StringSize)
	le.PutUint32(slot, 1)
	slot[4] = 0xE9 // not UTF-8 on its own

	d := Decoder{Fallback: func(b []byte) (string, error) { return "é", nil }}
	s, err := d.GetString(slot)
	require.NoError(t, err)
	assert.Equal(t, "é", s)
}

func TestTexelChannelOrder(t *testing.T) {
	b := Texel.Encode(math.Texel{R: 1, G: 2, B: 3, A: 4})
	assert.Equal(t, []byte{3, 2, 1, 4}, b, "texels are stored B, G, R, A")
	assert.Equal(t, math.Texel{R: 1, G: 2, B: 3, A: 4}, Texel.Decode(b))
}

func TestQuatScalarFirst(t *testing.T) {
	b := Quat.Encode(math.Quat{X: 1, Y: 2, Z: 3, W: 4})
	assert.Equal(t, float32(4), DecodeF32(b))
	assert.Equal(t, float32(1), DecodeF32(b[4:]))
}

func TestMat4RowMajor(t *testing.T) {
	m := math.Translate(7, 8, 9)
	b := Mat4.Encode(m)
	require.Len(t, b, 64)
	// a4 is the fourth float of the first row.
	assert.Equal(t, float32(7), DecodeF32(b[12:]))
	assert.Equal(t, m, Mat4.Decode(b))
}

func TestCopyArrayEmptyIsNull(t *testing.T) {
	h := NewHeap()
	p, err := CopyArray(h, Vec3, nil)
	require.NoError(t, err)
	assert.Equal(t, Null, p)
	assert.Equal(t, 0, h.Stats().Allocs)

	items, err := ReadArray(h, Vec3, Null, 0)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestReadArrayRejectsInconsistentPairs(t *testing.T) {
	h := NewHeap()
	p, err := CopyArray(h, U32, []uint32{1, 2, 3})
	require.NoError(t, err)

	_, err = ReadArray(h, U32, Null, 3)
	assert.ErrorIs(t, err, ErrCorruptInput, "null pointer with nonzero count")

	_, err = ReadArray(h, U32, p, 0)
	assert.ErrorIs(t, err, ErrCorruptInput, "pointer with zero count")

	_, err = ReadArray(h, U32, p, 4)
	assert.ErrorIs(t, err, ErrCorruptInput, "count past the end of the block")

	got, err := ReadArray(h, U32, p, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, got)
}

func TestPrimitiveRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := rapid.Float32()
		v := math.Vec3{X: f.Draw(t, "x"), Y: f.Draw(t, "y"), Z: f.Draw(t, "z")}
		if got := Vec3.Decode(Vec3.Encode(v)); !sameVec3(got, v) {
			t.Fatalf("vec3 round trip: got %v, want %v", got, v)
		}

		var m math.Mat4
		for i := range m {
			m[i] = rapid.Float32Range(-1e6, 1e6).Draw(t, "m")
		}
		if got := Mat4.Decode(Mat4.Encode(m)); got != m {
			t.Fatalf("mat4 round trip: got %v, want %v", got, m)
		}

		s := rapid.String().Draw(t, "s")
		got, err := DecodeString(EncodeString(s))
		if err != nil || got != s {
			t.Fatalf("string round trip: got %q (%v), want %q", got, err, s)
		}
	})
}

func TestArrayRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := NewHeap()
		items := rapid.SliceOf(rapid.Int64()).Draw(t, "items")
		p, err := CopyArray(h, I64, items)
		if err != nil {
			t.Fatal(err)
		}
		got, err := ReadArray(h, I64, p, uint32(len(items)))
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(items) {
			t.Fatalf("length %d, want %d", len(got), len(items))
		}
		for i := range items {
			if got[i] != items[i] {
				t.Fatalf("item %d: got %d, want %d", i, got[i], items[i])
			}
		}
		if err := h.Free(p); err != nil {
			t.Fatal(err)
		}
		if h.Stats().LiveBlocks != 0 {
			t.Fatalf("leaked %d blocks", h.Stats().LiveBlocks)
		}
	})
}

// sameVec3 compares bit patterns so NaN payloads round-trip too.
func sameVec3(a, b math.Vec3) bool {
	return string(Vec3.Encode(a)) == string(Vec3.Encode(b))
}
