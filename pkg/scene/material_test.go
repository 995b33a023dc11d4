package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

func TestPropertyKeyUniqueness(t *testing.T) {
	m := NewMaterial()
	red := math.Color4{R: 1, A: 1}

	assert.True(t, m.AddProperty(NewColor4Property(KeyColorDiffuse, red)))
	assert.False(t, m.AddProperty(NewColor4Property(KeyColorDiffuse, math.Color4{G: 1, A: 1})))
	assert.Equal(t, 1, m.PropertyCount())

	got, ok := m.ColorDiffuse()
	require.True(t, ok)
	assert.Equal(t, red, got, "first insert wins")

	// The same base name bound to a texture is a different key.
	assert.True(t, m.AddProperty(NewColor4Property(KeyColorDiffuse, red).ForTexture(TextureDiffuse, 0)))
	assert.Equal(t, 2, m.PropertyCount())
}

func TestColorFromRGBPayload(t *testing.T) {
	p := NewFloatProperty(KeyColorDiffuse, 0.2, 0.4, 0.6)
	assert.Equal(t, math.Vec4{X: 0.2, Y: 0.4, Z: 0.6, W: 1}, p.Vec4Value())
	assert.Equal(t, math.Color4{R: 0.2, G: 0.4, B: 0.6, A: 1}, p.Color4Value())

	m := NewMaterial()
	m.SetProperty(p)
	c, ok := m.ColorDiffuse()
	require.True(t, ok)
	assert.Equal(t, float32(1), c.A)
}

func TestFullyQualifiedName(t *testing.T) {
	p := NewStringProperty(KeyTextureBase, "brick.png").ForTexture(TextureNormals, 2)
	assert.Equal(t, "$tex.file,6,2", p.FullyQualifiedName())

	p.SetTextureIndex(3)
	assert.Equal(t, "$tex.file,6,3", p.FullyQualifiedName())
	p.SetTextureType(TextureDiffuse)
	p.SetName("$tex.other")
	assert.Equal(t, "$tex.other,1,3", p.FullyQualifiedName())
}

func TestPropertyGetters(t *testing.T) {
	tests := []struct {
		name       string
		prop       *MaterialProperty
		wantFloat  float32
		wantInt    int32
		wantDouble float64
		wantString string
		wantBool   bool
	}{
		{name: "float", prop: NewFloatProperty("f", 2.5), wantFloat: 2.5, wantInt: 2, wantBool: true},
		{name: "integer", prop: NewIntProperty("i", 7), wantFloat: 7, wantInt: 7, wantBool: true},
		{name: "bool false", prop: NewBoolProperty("b", false)},
		{name: "double", prop: NewDoubleProperty("d", 1.25), wantDouble: 1.25},
		{name: "string", prop: NewStringProperty("s", "hello"), wantString: "hello"},
		{name: "buffer", prop: NewBufferProperty("x", []byte{1, 2, 3, 4})},
		{name: "empty float", prop: NewFloatProperty("e")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantFloat, tt.prop.FloatValue())
			assert.Equal(t, tt.wantInt, tt.prop.IntValue())
			assert.Equal(t, tt.wantDouble, tt.prop.DoubleValue())
			assert.Equal(t, tt.wantString, tt.prop.StringValue())
			assert.Equal(t, tt.wantBool, tt.prop.BoolValue())
		})
	}
}

func TestPropertySettersKeepType(t *testing.T) {
	f := NewFloatProperty("f", 1)
	assert.False(t, f.SetStringValue("nope"))
	assert.False(t, f.SetDoubleValue(2))
	assert.False(t, f.SetBytes([]byte{1}))
	assert.True(t, f.SetIntValue(3), "integers convert into float payloads")
	assert.Equal(t, PropertyFloat, f.Type())
	assert.Equal(t, float32(3), f.FloatValue())

	s := NewStringProperty("s", "a")
	assert.False(t, s.SetFloatValue(1))
	assert.True(t, s.SetStringValue("longer"))
	assert.Equal(t, "longer", s.StringValue())
	assert.Equal(t, 4+len("longer")+1, s.ByteCount())

	i := NewIntProperty("i", 0)
	assert.True(t, i.SetBoolValue(true))
	assert.Equal(t, int32(1), i.IntValue())
	assert.True(t, i.SetVec3Value(math.Vec3{X: 1.9, Y: 2, Z: -3}))
	assert.Equal(t, []int32{1, 2, -3}, i.IntArray(), "floats truncate into integer payloads")
}

func TestPropertyValue(t *testing.T) {
	v, err := NewFloatProperty("f", 1, 2).Value()
	require.NoError(t, err)
	assert.Equal(t, FloatData{1, 2}, v)

	v, err = NewStringProperty("s", "x").Value()
	require.NoError(t, err)
	assert.Equal(t, StringData("x"), v)

	_, err = NewMaterialProperty("bad", PropertyFloat, []byte{1, 2, 3, 4, 5}).Value()
	assert.ErrorIs(t, err, native.ErrCorruptInput)

	_, err = NewMaterialProperty("bad", PropertyString, []byte{0xFF, 0, 0, 0}).Value()
	assert.ErrorIs(t, err, native.ErrCorruptInput)

	p := NewPropertyFromValue("d", DoubleData{0.5})
	assert.Equal(t, PropertyDouble, p.Type())
	assert.Equal(t, 0.5, p.DoubleValue())
}

func TestMaterialViews(t *testing.T) {
	m := NewMaterial()
	assert.Equal(t, "", m.Name())
	assert.Equal(t, float32(1), m.Opacity(), "opacity defaults to opaque")

	m.SetName("Steel")
	m.SetOpacity(0.5)
	m.SetShadingMode(ShadingPBRBRDF)
	m.SetBlendMode(BlendAdditive)
	m.SetWireframeEnabled(true)
	m.SetPBR(PBR{
		BaseColor: math.Color4{R: 0.8, G: 0.8, B: 0.8, A: 1}, HasBaseColor: true,
		Metallic: 1, HasMetallic: true,
	})
	m.SetShaders(Shaders{Language: "glsl", Vertex: "void main(){}"})

	assert.Equal(t, "Steel", m.Name())
	assert.Equal(t, float32(0.5), m.Opacity())
	assert.Equal(t, ShadingPBRBRDF, m.ShadingMode())
	assert.Equal(t, BlendAdditive, m.BlendMode())
	assert.True(t, m.IsWireframeEnabled())
	assert.False(t, m.IsTwoSided())

	pbr := m.PBR()
	assert.True(t, pbr.HasBaseColor)
	assert.True(t, pbr.HasMetallic)
	assert.False(t, pbr.HasRoughness)
	assert.Equal(t, float32(1), pbr.Metallic)

	assert.True(t, m.HasShaders())
	assert.Equal(t, Shaders{Language: "glsl", Vertex: "void main(){}"}, m.Shaders())

	_, ok := m.Shininess()
	assert.False(t, ok)
}

func TestTextureSlots(t *testing.T) {
	m := NewMaterial()
	diffuse1 := TextureSlot{
		FilePath:     "detail.png",
		TextureType:  TextureDiffuse,
		TextureIndex: 1,
		UVIndex:      1,
		BlendFactor:  0.5,
		Operation:    OpAdd,
		WrapModeU:    WrapMirror,
		WrapModeV:    WrapClamp,
	}
	require.True(t, m.AddTexture(diffuse1))
	require.True(t, m.AddTexture(TextureSlot{FilePath: "base.png", TextureType: TextureDiffuse}))
	require.True(t, m.AddTexture(TextureSlot{FilePath: "*0", TextureType: TextureNormals}))
	assert.False(t, m.AddTexture(TextureSlot{TextureType: TextureDiffuse}), "missing path")
	assert.False(t, m.AddTexture(TextureSlot{FilePath: "x.png"}), "missing type")
	assert.False(t, m.AddTexture(TextureSlot{FilePath: "x.png", TextureType: TextureDiffuse, TextureIndex: -1}), "negative index")

	assert.Equal(t, 2, m.TextureCount(TextureDiffuse))
	assert.Equal(t, 1, m.TextureCount(TextureNormals))
	assert.Zero(t, m.TextureCount(TextureSpecular))

	got, ok := m.Texture(TextureDiffuse, 1)
	require.True(t, ok)
	assert.Equal(t, diffuse1, got)

	slots := m.Textures(TextureDiffuse)
	require.Len(t, slots, 2)
	assert.Equal(t, "base.png", slots[0].FilePath)
	assert.Equal(t, "detail.png", slots[1].FilePath)
	assert.Len(t, m.AllTextures(), 3)

	normals, _ := m.Texture(TextureNormals, 0)
	assert.True(t, normals.IsEmbedded())

	assert.True(t, m.RemoveTexture(TextureDiffuse, 1))
	assert.False(t, m.RemoveTexture(TextureDiffuse, 1))
	assert.Empty(t, m.PropertiesFor(TextureDiffuse, 1))
	assert.Equal(t, 1, m.TextureCount(TextureDiffuse))
}

func TestMaterialPBR(t *testing.T) {
	full := PBR{
		BaseColor: math.Color4{R: 0.9, G: 0.1, B: 0.1, A: 1}, HasBaseColor: true,
		Metallic: 0.25, HasMetallic: true,
		Roughness: 0.6, HasRoughness: true,
		Specular:           0.5,
		Glossiness:         0.3,
		SheenColor:         math.Color4{R: 1, G: 1, B: 1, A: 1},
		SheenRoughness:     0.2,
		Clearcoat:          1,
		ClearcoatRoughness: 0.05,
		Transmission:       0.8,
		VolumeThickness:    2,
		EmissiveIntensity:  4,
		UseColorMap:        true,
		UseMetallicMap:     true,
		UseRoughnessMap:    true,
		UseEmissiveMap:     true,
		UseAOMap:           true,
	}

	m := NewMaterial()
	m.SetName("Glass")
	m.SetPBR(full)
	assert.Equal(t, full, m.PBR())
	assert.Equal(t, 18, m.PropertyCount())

	partial := PBR{Clearcoat: 0.5, UseAOMap: true}
	m.SetPBR(partial)
	assert.Equal(t, partial, m.PBR())
	assert.Equal(t, 3, m.PropertyCount(), "name plus two PBR properties")

	m.SetPBR(PBR{})
	assert.Equal(t, PBR{}, m.PBR())
	assert.Equal(t, 1, m.PropertyCount())
	assert.Equal(t, "Glass", m.Name())
}

func TestMaterialNativeRoundTrip(t *testing.T) {
	h, tc := newTestTranscoder(t)
	m := NewMaterial()
	m.SetName("Brick")
	m.SetColorSpecular(math.Color4{R: 1, G: 1, B: 1, A: 1})
	m.SetProperty(NewMat4Property("$custom.matrix", math.Translate(1, 2, 3)))
	m.AddTexture(TextureSlot{FilePath: "brick.png", TextureType: TextureDiffuse})

	p, err := ToNative(tc, m)
	require.NoError(t, err)
	got, err := FromNative[Material](tc, p)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.Equal(t, math.Translate(1, 2, 3), got.Properties()[2].Mat4Value())

	require.NoError(t, FreeNative[Material](tc, p, true))
	requireNoLeaks(t, h)
}

func TestMaterialDuplicateKeyRejectedOnEncode(t *testing.T) {
	h, tc := newTestTranscoder(t)
	m := NewMaterial()
	a := NewFloatProperty("$a", 1)
	m.AddProperty(a)
	m.AddProperty(NewFloatProperty("$b", 2))
	a.SetName("$b")

	_, err := ToNative(tc, m)
	assert.ErrorIs(t, err, native.ErrInvalidScene)
	requireNoLeaks(t, h)
}

func TestMaterialNegativeTextureIndexRejected(t *testing.T) {
	h, tc := newTestTranscoder(t)
	m := NewMaterial()
	m.SetName("Brick")
	require.True(t, m.AddProperty(NewFloatProperty("x", 1).ForTexture(TextureDiffuse, -1)))

	_, err := ToNative(tc, m)
	require.ErrorIs(t, err, native.ErrInvalidScene)
	assert.Contains(t, err.Error(), "texture index -1")
	requireNoLeaks(t, h)

	_, err = ToNative(tc, NewIntProperty("y", 1).ForTexture(TextureSpecular, -3))
	assert.ErrorIs(t, err, native.ErrInvalidScene)
	requireNoLeaks(t, h)
}

func TestPropertyStringFallback(t *testing.T) {
	h, tc := newTestTranscoder(t, WithStringFallback(func(b []byte) (string, error) {
		return "converted", nil
	}))
	p := NewMaterialProperty(KeyName, PropertyString, []byte{2, 0, 0, 0, 0xC0, 0xC1, 0})

	ptr, err := ToNative(tc, p)
	require.NoError(t, err)
	got, err := FromNative[MaterialProperty](tc, ptr)
	require.NoError(t, err)
	assert.Equal(t, "converted", got.StringValue())

	require.NoError(t, FreeNative[MaterialProperty](tc, ptr, true))
	requireNoLeaks(t, h)
}
