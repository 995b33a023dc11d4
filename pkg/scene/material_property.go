package scene

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

// PropertyKey returns the fully qualified key "base,textureType,textureIndex"
// that identifies a property inside a material.
func PropertyKey(base string, tt TextureType, index int) string {
	return fmt.Sprintf("%s,%d,%d", base, uint32(tt), index)
}

// MaterialProperty is one typed entry of a material. The payload is kept as
// raw native bytes and interpreted according to its type tag.
//
// Typed getters return the zero value when the tag belongs to another
// category; Float and Integer share the numeric category and convert.
// Setters never change the tag and report false on a mismatch.
type MaterialProperty struct {
	name         string
	typ          PropertyType
	data         []byte
	textureType  TextureType
	textureIndex int
}

// NewMaterialProperty creates a property from a raw payload.
func NewMaterialProperty(name string, typ PropertyType, data []byte) *MaterialProperty {
	return &MaterialProperty{name: name, typ: typ, data: slices.Clone(data)}
}

func NewFloatProperty(name string, vals ...float32) *MaterialProperty {
	p := &MaterialProperty{name: name, typ: PropertyFloat}
	p.SetFloatArray(vals)
	return p
}

func NewIntProperty(name string, vals ...int32) *MaterialProperty {
	p := &MaterialProperty{name: name, typ: PropertyInteger}
	p.SetIntArray(vals)
	return p
}

func NewDoubleProperty(name string, vals ...float64) *MaterialProperty {
	p := &MaterialProperty{name: name, typ: PropertyDouble}
	p.SetDoubleArray(vals)
	return p
}

// NewBoolProperty stores b as the integer 0 or 1.
func NewBoolProperty(name string, b bool) *MaterialProperty {
	p := &MaterialProperty{name: name, typ: PropertyInteger}
	p.SetBoolValue(b)
	return p
}

func NewStringProperty(name, s string) *MaterialProperty {
	p := &MaterialProperty{name: name, typ: PropertyString}
	p.SetStringValue(s)
	return p
}

func NewBufferProperty(name string, data []byte) *MaterialProperty {
	return &MaterialProperty{name: name, typ: PropertyBuffer, data: slices.Clone(data)}
}

func NewColor3Property(name string, c math.Color3) *MaterialProperty {
	return NewFloatProperty(name, c.R, c.G, c.B)
}

func NewColor4Property(name string, c math.Color4) *MaterialProperty {
	return NewFloatProperty(name, c.R, c.G, c.B, c.A)
}

func NewVec3Property(name string, v math.Vec3) *MaterialProperty {
	return NewFloatProperty(name, v.X, v.Y, v.Z)
}

func NewMat4Property(name string, m math.Mat4) *MaterialProperty {
	return NewFloatProperty(name, m[:]...)
}

// ForTexture binds the property to a texture slot and returns it.
func (p *MaterialProperty) ForTexture(tt TextureType, index int) *MaterialProperty {
	p.textureType = tt
	p.textureIndex = index
	return p
}

func (p *MaterialProperty) Name() string { return p.name }
func (p *MaterialProperty) SetName(name string) { p.name = name }
func (p *MaterialProperty) Type() PropertyType { return p.typ }
func (p *MaterialProperty) TextureType() TextureType { return p.textureType }
func (p *MaterialProperty) SetTextureType(t TextureType) { p.textureType = t }
func (p *MaterialProperty) TextureIndex() int { return p.textureIndex }
func (p *MaterialProperty) SetTextureIndex(i int) { p.textureIndex = i }

// FullyQualifiedName is recomputed on every call so it always reflects the
// current name, texture type and index.
func (p *MaterialProperty) FullyQualifiedName() string {
	return PropertyKey(p.name, p.textureType, p.textureIndex)
}

// ByteCount is the payload size in bytes.
func (p *MaterialProperty) ByteCount() int { return len(p.data) }

// RawData returns a copy of the payload.
func (p *MaterialProperty) RawData() []byte { return slices.Clone(p.data) }

// numbers decodes a numeric payload. It returns nil for other categories.
func (p *MaterialProperty) numbers() []float64 {
	switch p.typ {
	case PropertyFloat:
		out := make([]float64, len(p.data)/4)
		for i := range out {
			out[i] = float64(native.DecodeF32(p.data[i*4:]))
		}
		return out
	case PropertyInteger:
		out := make([]float64, len(p.data)/4)
		for i := range out {
			out[i] = float64(native.I32.Decode(p.data[i*4:]))
		}
		return out
	}
	return nil
}

// setNumbers replaces a numeric payload, converting to the declared
// representation.
func (p *MaterialProperty) setNumbers(vals []float64) bool {
	if !p.typ.numeric() {
		return false
	}
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		if p.typ == PropertyFloat {
			native.PutF32(b[i*4:], float32(v))
		} else {
			native.I32.Put(b[i*4:], int32(v))
		}
	}
	p.data = b
	return true
}

func (p *MaterialProperty) FloatValue() float32 {
	if n := p.numbers(); len(n) > 0 {
		return float32(n[0])
	}
	return 0
}

func (p *MaterialProperty) FloatArray() []float32 {
	n := p.numbers()
	if n == nil {
		return nil
	}
	out := make([]float32, len(n))
	for i, v := range n {
		out[i] = float32(v)
	}
	return out
}

func (p *MaterialProperty) IntValue() int32 {
	if n := p.numbers(); len(n) > 0 {
		return int32(n[0])
	}
	return 0
}

func (p *MaterialProperty) IntArray() []int32 {
	n := p.numbers()
	if n == nil {
		return nil
	}
	out := make([]int32, len(n))
	for i, v := range n {
		out[i] = int32(v)
	}
	return out
}

// BoolValue is true when the first numeric element is nonzero.
func (p *MaterialProperty) BoolValue() bool {
	n := p.numbers()
	return len(n) > 0 && n[0] != 0
}

func (p *MaterialProperty) DoubleValue() float64 {
	if a := p.DoubleArray(); len(a) > 0 {
		return a[0]
	}
	return 0
}

func (p *MaterialProperty) DoubleArray() []float64 {
	if p.typ != PropertyDouble {
		return nil
	}
	out := make([]float64, len(p.data)/8)
	for i := range out {
		out[i] = native.F64.Decode(p.data[i*8:])
	}
	return out
}

// StringValue returns the string payload, or "" if the property is not a
// string or its payload is malformed.
func (p *MaterialProperty) StringValue() string {
	if p.typ != PropertyString {
		return ""
	}
	s, err := native.DecodeString(p.data)
	if err != nil {
		return ""
	}
	return s
}

// Bytes returns a copy of a buffer payload.
func (p *MaterialProperty) Bytes() []byte {
	if p.typ != PropertyBuffer {
		return nil
	}
	return slices.Clone(p.data)
}

func (p *MaterialProperty) Vec3Value() math.Vec3 {
	if n := p.numbers(); len(n) >= 3 {
		return math.Vec3{X: float32(n[0]), Y: float32(n[1]), Z: float32(n[2])}
	}
	return math.Vec3{}
}

// Vec4Value reads four components. A three-component payload yields w = 1.
func (p *MaterialProperty) Vec4Value() math.Vec4 {
	n := p.numbers()
	switch {
	case len(n) >= 4:
		return math.Vec4{X: float32(n[0]), Y: float32(n[1]), Z: float32(n[2]), W: float32(n[3])}
	case len(n) == 3:
		return math.Vec4{X: float32(n[0]), Y: float32(n[1]), Z: float32(n[2]), W: 1}
	}
	return math.Vec4{}
}

func (p *MaterialProperty) Color3Value() math.Color3 {
	v := p.Vec3Value()
	return math.Color3{R: v.X, G: v.Y, B: v.Z}
}

// Color4Value reads an RGBA color. An RGB payload yields alpha 1.
func (p *MaterialProperty) Color4Value() math.Color4 {
	v := p.Vec4Value()
	return math.Color4{R: v.X, G: v.Y, B: v.Z, A: v.W}
}

func (p *MaterialProperty) Mat4Value() math.Mat4 {
	var m math.Mat4
	if n := p.numbers(); len(n) >= 16 {
		for i := range m {
			m[i] = float32(n[i])
		}
	}
	return m
}

func (p *MaterialProperty) SetFloatValue(v float32) bool { return p.SetFloatArray([]float32{v}) }

func (p *MaterialProperty) SetFloatArray(vals []float32) bool {
	n := make([]float64, len(vals))
	for i, v := range vals {
		n[i] = float64(v)
	}
	return p.setNumbers(n)
}

func (p *MaterialProperty) SetIntValue(v int32) bool { return p.SetIntArray([]int32{v}) }

func (p *MaterialProperty) SetIntArray(vals []int32) bool {
	n := make([]float64, len(vals))
	for i, v := range vals {
		n[i] = float64(v)
	}
	return p.setNumbers(n)
}

func (p *MaterialProperty) SetBoolValue(b bool) bool {
	if b {
		return p.setNumbers([]float64{1})
	}
	return p.setNumbers([]float64{0})
}

func (p *MaterialProperty) SetDoubleValue(v float64) bool { return p.SetDoubleArray([]float64{v}) }

func (p *MaterialProperty) SetDoubleArray(vals []float64) bool {
	if p.typ != PropertyDouble {
		return false
	}
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		native.F64.Put(b[i*8:], v)
	}
	p.data = b
	return true
}

func (p *MaterialProperty) SetStringValue(s string) bool {
	if p.typ != PropertyString {
		return false
	}
	p.data = native.EncodeString(s)
	return true
}

func (p *MaterialProperty) SetBytes(data []byte) bool {
	if p.typ != PropertyBuffer {
		return false
	}
	p.data = slices.Clone(data)
	return true
}

func (p *MaterialProperty) SetVec3Value(v math.Vec3) bool {
	return p.SetFloatArray([]float32{v.X, v.Y, v.Z})
}

func (p *MaterialProperty) SetColor3Value(c math.Color3) bool {
	return p.SetFloatArray([]float32{c.R, c.G, c.B})
}

func (p *MaterialProperty) SetColor4Value(c math.Color4) bool {
	return p.SetFloatArray([]float32{c.R, c.G, c.B, c.A})
}

func (p *MaterialProperty) SetMat4Value(m math.Mat4) bool {
	return p.SetFloatArray(m[:])
}

// PropertyValue is the decoded payload of a property. The concrete type is
// one of FloatData, IntData, DoubleData, StringData or BufferData.
type PropertyValue interface {
	PropertyType() PropertyType
	sealed()
}

type (
	FloatData  []float32
	IntData    []int32
	DoubleData []float64
	StringData string
	BufferData []byte
)

func (FloatData) PropertyType() PropertyType { return PropertyFloat }
func (IntData) PropertyType() PropertyType { return PropertyInteger }
func (DoubleData) PropertyType() PropertyType { return PropertyDouble }
func (StringData) PropertyType() PropertyType { return PropertyString }
func (BufferData) PropertyType() PropertyType { return PropertyBuffer }

func (FloatData) sealed() {}
func (IntData) sealed() {}
func (DoubleData) sealed() {}
func (StringData) sealed() {}
func (BufferData) sealed() {}

// Value decodes the payload strictly: a size that does not match the type
// tag is an error rather than a zero value.
func (p *MaterialProperty) Value() (PropertyValue, error) {
	switch p.typ {
	case PropertyFloat:
		if len(p.data)%4 != 0 {
			return nil, p.badPayload()
		}
		return FloatData(p.FloatArray()), nil
	case PropertyInteger:
		if len(p.data)%4 != 0 {
			return nil, p.badPayload()
		}
		return IntData(p.IntArray()), nil
	case PropertyDouble:
		if len(p.data)%8 != 0 {
			return nil, p.badPayload()
		}
		return DoubleData(p.DoubleArray()), nil
	case PropertyString:
		s, err := native.DecodeString(p.data)
		if err != nil {
			return nil, native.AtPath(err, p.FullyQualifiedName())
		}
		return StringData(s), nil
	case PropertyBuffer:
		return BufferData(slices.Clone(p.data)), nil
	}
	return nil, native.Errorf(native.PhaseDecode, native.ErrUnsupported, "property %s has type %d", p.FullyQualifiedName(), uint32(p.typ))
}

func (p *MaterialProperty) badPayload() error {
	return native.Errorf(native.PhaseDecode, native.ErrCorruptInput, "%s payload of %d bytes for %s", p.typ, len(p.data), p.FullyQualifiedName())
}

// NewPropertyFromValue creates a property whose tag matches v.
func NewPropertyFromValue(name string, v PropertyValue) *MaterialProperty {
	switch v := v.(type) {
	case FloatData:
		return NewFloatProperty(name, v...)
	case IntData:
		return NewIntProperty(name, v...)
	case DoubleData:
		return NewDoubleProperty(name, v...)
	case StringData:
		return NewStringProperty(name, string(v))
	case BufferData:
		return NewBufferProperty(name, v)
	}
	return nil
}

func (p *MaterialProperty) nativeLayout() *native.Layout { return materialPropertyL.layout }

func (p *MaterialProperty) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := materialPropertyL
	if err := tc.putString(b, f.key, p.name); err != nil {
		return native.AtPath(err, "key")
	}
	if p.textureIndex < 0 || uint64(p.textureIndex) > 1<<32-1 {
		return native.AtPath(native.Errorf(native.PhaseEncode, native.ErrInvalidScene,
			"texture index %d out of range", p.textureIndex), p.name)
	}
	putU32(b, f.semantic, uint32(p.textureType))
	putU32(b, f.index, uint32(p.textureIndex))
	putU32(b, f.propType, uint32(p.typ))
	data, err := tc.heap.AllocBytes(p.data)
	if err != nil {
		return err
	}
	putPtr(b, f.data, data)
	putU32(b, f.dataLength, uint32(len(p.data)))
	return nil
}

func (p *MaterialProperty) fromNative(tc *Transcoder, b []byte) error {
	f := materialPropertyL
	*p = MaterialProperty{}
	name, err := tc.getString(b, f.key)
	if err != nil {
		return native.AtPath(err, "key")
	}
	typ := PropertyType(u32At(b, f.propType))
	if typ < PropertyFloat || typ > PropertyBuffer {
		return native.AtPath(native.Corrupt("unknown property type %d", uint32(typ)), name)
	}
	data, n, err := pair(b, f.dataLength, f.data)
	if err != nil {
		return native.AtPath(err, name)
	}
	raw, err := tc.heap.Read(data, n)
	if err != nil {
		return native.AtPath(native.Corrupt("%v", err), name)
	}
	p.name = name
	p.typ = typ
	p.data = raw
	p.textureType = TextureType(u32At(b, f.semantic))
	p.textureIndex = int(u32At(b, f.index))
	if typ == PropertyString && tc.strings.Fallback != nil {
		if s, err := native.DecodeString(raw); err == nil && !utf8.ValidString(s) {
			if conv, err := tc.strings.Fallback([]byte(s)); err == nil {
				p.data = native.EncodeString(conv)
			}
		}
	}
	return nil
}

func (p *MaterialProperty) freeNative(tc *Transcoder, b []byte) error {
	return freeAt(tc, b, materialPropertyL.data)
}
