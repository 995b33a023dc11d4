package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

func TestTangentsRequireBitangents(t *testing.T) {
	h, tc := newTestTranscoder(t)
	m := triangleMesh("m")
	m.Tangents = []math.Vec3{{X: 1}, {X: 1}, {X: 1}}
	assert.False(t, m.HasTangentBasis())

	p, err := ToNative(tc, m)
	require.NoError(t, err)
	b, err := h.Span(p, meshL.layout.Size())
	require.NoError(t, err)
	assert.Equal(t, native.Null, ptrAt(b, meshL.streams.tangents))
	assert.Equal(t, native.Null, ptrAt(b, meshL.streams.bitangents))

	got, err := FromNative[Mesh](tc, p)
	require.NoError(t, err)
	assert.Nil(t, got.Tangents)
	assert.Nil(t, got.BiTangents)

	require.NoError(t, FreeNative[Mesh](tc, p, true))
	requireNoLeaks(t, h)
}

func TestUVComponentCountDefaults(t *testing.T) {
	_, tc := newTestTranscoder(t)
	m := triangleMesh("m")
	m.UVComponentCount[0] = 0
	m.UVComponentCount[5] = 3 // channel 5 is empty

	p, err := ToNative(tc, m)
	require.NoError(t, err)
	got, err := FromNative[Mesh](tc, p)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UVComponentCount[0])
	assert.Zero(t, got.UVComponentCount[5])
}

func TestDecodeUVComponentCount(t *testing.T) {
	for _, c := range []uint32{0, 1, 4} {
		h, tc := newTestTranscoder(t)
		p, err := ToNative(tc, triangleMesh("m"))
		require.NoError(t, err)
		b, err := h.Span(p, meshL.layout.Size())
		require.NoError(t, err)
		putU32(b, meshL.numUVComponents, c)

		_, err = FromNative[Mesh](tc, p)
		assert.ErrorIs(t, err, native.ErrCorruptInput, "components %d", c)
		require.NoError(t, FreeNative[Mesh](tc, p, true))
		requireNoLeaks(t, h)
	}
}

func TestMeshValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(m *Mesh)
	}{
		{"face index out of range", func(m *Mesh) { m.Faces = append(m.Faces, Face{Indices: []uint32{0, 1, 3}}) }},
		{"short normals", func(m *Mesh) { m.Normals = m.Normals[:2] }},
		{"color channel length", func(m *Mesh) { m.Colors[3] = []math.Color4{{}} }},
		{"bone weight out of range", func(m *Mesh) {
			m.Bones = []*Bone{{Name: "b", VertexWeights: []VertexWeight{{VertexID: 7, Weight: 1}}}}
		}},
		{"anim mesh vertex count", func(m *Mesh) {
			m.MeshAnimationAttachments = []*MeshAnimationAttachment{{VertexData: VertexData{Vertices: []math.Vec3{{}}}}}
		}},
		{"uv components", func(m *Mesh) { m.UVComponentCount[0] = 4 }},
		{"one uv component", func(m *Mesh) { m.UVComponentCount[0] = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, tc := newTestTranscoder(t)
			m := triangleMesh("m")
			require.NoError(t, m.Validate())
			tt.modify(m)
			assert.ErrorIs(t, m.Validate(), native.ErrInvalidScene)

			_, err := ToNative(tc, m)
			assert.ErrorIs(t, err, native.ErrInvalidScene)
			requireNoLeaks(t, h)
		})
	}
}

func TestMeshHelpers(t *testing.T) {
	m := triangleMesh("m")
	m.Faces = append(m.Faces, Face{Indices: []uint32{2, 1, 0}})

	assert.Equal(t, []uint32{0, 1, 2, 2, 1, 0}, m.FaceIndices())
	assert.Equal(t, []int32{0, 1, 2, 2, 1, 0}, m.FaceIndicesInt32())
	short, err := m.FaceIndicesUint16()
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 1, 2, 2, 1, 0}, short)

	m.Faces[0].Indices[0] = 70000
	_, err = m.FaceIndicesUint16()
	assert.Error(t, err)

	box := m.ComputeBoundingBox()
	assert.Equal(t, math.Vec3{}, box.Min)
	assert.Equal(t, math.Vec3{X: 1, Y: 1}, box.Max)
	assert.Equal(t, 1, m.ColorChannelCount())
	assert.Equal(t, 1, m.TextureCoordChannelCount())
	assert.True(t, m.HasTextureCoords(0))
	assert.False(t, m.HasVertexColors(0))
	assert.False(t, m.HasVertexColors(MaxColorSets))

	empty := &Mesh{}
	assert.Equal(t, math.Box{}, empty.ComputeBoundingBox())
}

func TestBoneAndAttachmentRoundTrip(t *testing.T) {
	h, tc := newTestTranscoder(t)
	bone := &Bone{
		Name:          "Bone_Root",
		OffsetMatrix:  math.RotateAxis(math.Vec3{Z: 1}, 0.5),
		VertexWeights: []VertexWeight{{VertexID: 3, Weight: 0.75}},
	}
	p, err := ToNative(tc, bone)
	require.NoError(t, err)
	got, err := FromNative[Bone](tc, p)
	require.NoError(t, err)
	assert.Equal(t, bone, got)
	assert.Equal(t, 1, got.VertexWeightCount())
	require.NoError(t, FreeNative[Bone](tc, p, true))

	empty := &Bone{Name: "leaf"}
	p, err = ToNative(tc, empty)
	require.NoError(t, err)
	got, err = FromNative[Bone](tc, p)
	require.NoError(t, err)
	assert.Nil(t, got.VertexWeights, "empty weights decode as nil")
	require.NoError(t, FreeNative[Bone](tc, p, true))
	requireNoLeaks(t, h)
}

func genVec3(t *rapid.T, label string) math.Vec3 {
	f := rapid.Float32Range(-1e4, 1e4)
	return math.Vec3{X: f.Draw(t, label+".x"), Y: f.Draw(t, label+".y"), Z: f.Draw(t, label+".z")}
}

func genMesh(t *rapid.T) *Mesh {
	n := rapid.IntRange(0, 12).Draw(t, "vertices")
	m := &Mesh{
		Name:          rapid.StringN(0, 16, 64).Draw(t, "name"),
		PrimitiveType: PrimitiveTriangle,
		MaterialIndex: 0,
	}
	if n == 0 {
		return m
	}
	m.Vertices = make([]math.Vec3, n)
	for i := range m.Vertices {
		m.Vertices[i] = genVec3(t, "v")
	}
	if rapid.Bool().Draw(t, "normals") {
		m.Normals = make([]math.Vec3, n)
		for i := range m.Normals {
			m.Normals[i] = genVec3(t, "n")
		}
	}
	ch := rapid.IntRange(0, MaxTextureCoords-1).Draw(t, "uvChannel")
	if rapid.Bool().Draw(t, "uvs") {
		m.TexCoords[ch] = make([]math.Vec3, n)
		for i := range m.TexCoords[ch] {
			m.TexCoords[ch][i] = genVec3(t, "uv")
		}
		m.UVComponentCount[ch] = rapid.IntRange(2, 3).Draw(t, "uvComponents")
	}
	index := rapid.Uint32Range(0, uint32(n-1))
	faces := rapid.IntRange(0, 6).Draw(t, "faces")
	for i := 0; i < faces; i++ {
		m.Faces = append(m.Faces, Face{Indices: rapid.SliceOfN(index, 1, 4).Draw(t, "face")})
	}
	m.ComputeBoundingBox()
	return m
}

func TestMeshRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := native.NewHeap()
		tc := NewTranscoder(h)
		m := genMesh(t)

		p, err := ToNative(tc, m)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := FromNative[Mesh](tc, p)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !assert.ObjectsAreEqual(m, got) {
			t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", m, got)
		}
		if err := FreeNative[Mesh](tc, p, true); err != nil {
			t.Fatalf("free: %v", err)
		}
		if st := h.Stats(); st.LiveBlocks != 0 {
			t.Fatalf("%d blocks leaked", st.LiveBlocks)
		}
	})
}
