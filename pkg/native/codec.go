package native

import (
	"encoding/binary"
	gomath "math"

	"github.com/Faultbox/assetbridge/pkg/math"
)

var le = binary.LittleEndian

// Codec converts one fixed-layout value between its native bytes and a Go
// value. Decode and Put always receive exactly Size bytes.
type Codec[T any] struct {
	Name   string
	Size   uint32
	Align  uint32
	Decode func(b []byte) T
	Put    func(b []byte, v T)
}

// Encode returns the native bytes of v.
func (c Codec[T]) Encode(v T) []byte {
	b := make([]byte, c.Size)
	c.Put(b, v)
	return b
}

// Primitive codecs for the native value types.
var (
	U32 = Codec[uint32]{Name: "u32", Size: 4, Align: 4, Decode: le.Uint32, Put: le.PutUint32}
	U64 = Codec[uint64]{Name: "u64", Size: 8, Align: 8, Decode: le.Uint64, Put: le.PutUint64}

	I32 = Codec[int32]{Name: "i32", Size: 4, Align: 4,
		Decode: func(b []byte) int32 { return int32(le.Uint32(b)) },
		Put:    func(b []byte, v int32) { le.PutUint32(b, uint32(v)) },
	}
	I64 = Codec[int64]{Name: "i64", Size: 8, Align: 8,
		Decode: func(b []byte) int64 { return int64(le.Uint64(b)) },
		Put:    func(b []byte, v int64) { le.PutUint64(b, uint64(v)) },
	}
	F32 = Codec[float32]{Name: "f32", Size: 4, Align: 4, Decode: DecodeF32, Put: PutF32}
	F64 = Codec[float64]{Name: "f64", Size: 8, Align: 8,
		Decode: func(b []byte) float64 { return gomath.Float64frombits(le.Uint64(b)) },
		Put:    func(b []byte, v float64) { le.PutUint64(b, gomath.Float64bits(v)) },
	}
	Pointer = Codec[Ptr]{Name: "ptr", Size: PtrSize, Align: PtrSize,
		Decode: func(b []byte) Ptr { return Ptr(le.Uint32(b)) },
		Put:    func(b []byte, v Ptr) { le.PutUint32(b, uint32(v)) },
	}

	Vec2 = Codec[math.Vec2]{Name: "vec2", Size: 8, Align: 4,
		Decode: func(b []byte) math.Vec2 { return math.Vec2{X: DecodeF32(b), Y: DecodeF32(b[4:])} },
		Put: func(b []byte, v math.Vec2) {
			PutF32(b, v.X)
			PutF32(b[4:], v.Y)
		},
	}
	Vec3 = Codec[math.Vec3]{Name: "vec3", Size: 12, Align: 4, Decode: DecodeVec3, Put: PutVec3}
	Vec4 = Codec[math.Vec4]{Name: "vec4", Size: 16, Align: 4,
		Decode: func(b []byte) math.Vec4 {
			return math.Vec4{X: DecodeF32(b), Y: DecodeF32(b[4:]), Z: DecodeF32(b[8:]), W: DecodeF32(b[12:])}
		},
		Put: func(b []byte, v math.Vec4) {
			PutF32(b, v.X)
			PutF32(b[4:], v.Y)
			PutF32(b[8:], v.Z)
			PutF32(b[12:], v.W)
		},
	}
	Color3 = Codec[math.Color3]{Name: "color3", Size: 12, Align: 4,
		Decode: func(b []byte) math.Color3 {
			return math.Color3{R: DecodeF32(b), G: DecodeF32(b[4:]), B: DecodeF32(b[8:])}
		},
		Put: func(b []byte, v math.Color3) {
			PutF32(b, v.R)
			PutF32(b[4:], v.G)
			PutF32(b[8:], v.B)
		},
	}
	Color4 = Codec[math.Color4]{Name: "color4", Size: 16, Align: 4,
		Decode: func(b []byte) math.Color4 {
			return math.Color4{R: DecodeF32(b), G: DecodeF32(b[4:]), B: DecodeF32(b[8:]), A: DecodeF32(b[12:])}
		},
		Put: func(b []byte, v math.Color4) {
			PutF32(b, v.R)
			PutF32(b[4:], v.G)
			PutF32(b[8:], v.B)
			PutF32(b[12:], v.A)
		},
	}
	// Quat stores the scalar part first: w, x, y, z.
	Quat = Codec[math.Quat]{Name: "quat", Size: 16, Align: 4,
		Decode: func(b []byte) math.Quat {
			return math.Quat{W: DecodeF32(b), X: DecodeF32(b[4:]), Y: DecodeF32(b[8:]), Z: DecodeF32(b[12:])}
		},
		Put: func(b []byte, v math.Quat) {
			PutF32(b, v.W)
			PutF32(b[4:], v.X)
			PutF32(b[8:], v.Y)
			PutF32(b[12:], v.Z)
		},
	}
	Mat3 = Codec[math.Mat3]{Name: "mat3", Size: 36, Align: 4,
		Decode: func(b []byte) (m math.Mat3) {
			for i := range m {
				m[i] = DecodeF32(b[i*4:])
			}
			return m
		},
		Put: func(b []byte, m math.Mat3) {
			for i, f := range m {
				PutF32(b[i*4:], f)
			}
		},
	}
	Mat4 = Codec[math.Mat4]{Name: "mat4", Size: 64, Align: 4,
		Decode: func(b []byte) (m math.Mat4) {
			for i := range m {
				m[i] = DecodeF32(b[i*4:])
			}
			return m
		},
		Put: func(b []byte, m math.Mat4) {
			for i, f := range m {
				PutF32(b[i*4:], f)
			}
		},
	}
	// Texel keeps the native B, G, R, A byte order.
	Texel = Codec[math.Texel]{Name: "texel", Size: 4, Align: 1,
		Decode: func(b []byte) math.Texel { return math.Texel{B: b[0], G: b[1], R: b[2], A: b[3]} },
		Put: func(b []byte, t math.Texel) {
			b[0], b[1], b[2], b[3] = t.B, t.G, t.R, t.A
		},
	}
	Box = Codec[math.Box]{Name: "aabb", Size: 24, Align: 4,
		Decode: func(b []byte) math.Box { return math.Box{Min: DecodeVec3(b), Max: DecodeVec3(b[12:])} },
		Put: func(b []byte, v math.Box) {
			PutVec3(b, v.Min)
			PutVec3(b[12:], v.Max)
		},
	}
)

// DecodeF32 reads a little-endian float32.
func DecodeF32(b []byte) float32 {
	return gomath.Float32frombits(le.Uint32(b))
}

// PutF32 writes a little-endian float32.
func PutF32(b []byte, v float32) {
	le.PutUint32(b, gomath.Float32bits(v))
}

// DecodeVec3 reads three consecutive float32 values.
func DecodeVec3(b []byte) math.Vec3 {
	return math.Vec3{X: DecodeF32(b), Y: DecodeF32(b[4:]), Z: DecodeF32(b[8:])}
}

// PutVec3 writes three consecutive float32 values.
func PutVec3(b []byte, v math.Vec3) {
	PutF32(b, v.X)
	PutF32(b[4:], v.Y)
	PutF32(b[8:], v.Z)
}

// Get reads one value of codec c at p.
func Get[T any](h *Heap, c Codec[T], p Ptr) (T, error) {
	b, err := h.Span(p, c.Size)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.Decode(b), nil
}

// Set writes one value of codec c at p.
func Set[T any](h *Heap, c Codec[T], p Ptr, v T) error {
	b, err := h.Span(p, c.Size)
	if err != nil {
		return err
	}
	c.Put(b, v)
	return nil
}
