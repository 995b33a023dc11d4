package scene

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

func newTestTranscoder(t *testing.T, opts ...TranscoderOption) (*native.Heap, *Transcoder) {
	t.Helper()
	h := native.NewHeap()
	return h, NewTranscoder(h, opts...)
}

func requireNoLeaks(t *testing.T, h *native.Heap) {
	t.Helper()
	st := h.Stats()
	require.Zero(t, st.LiveBlocks, "live blocks after free")
	require.Zero(t, st.LiveBytes, "live bytes after free")
}

func triangleMesh(name string) *Mesh {
	m := &Mesh{
		Name:          name,
		PrimitiveType: PrimitiveTriangle,
		VertexData: VertexData{
			Vertices: []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
			Normals:  []math.Vec3{{Z: 1}, {Z: 1}, {Z: 1}},
		},
		Faces: []Face{{Indices: []uint32{0, 1, 2}}},
	}
	m.TexCoords[0] = []math.Vec3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	m.UVComponentCount[0] = 2
	m.Colors[1] = []math.Color4{{R: 1, A: 1}, {G: 1, A: 1}, {B: 1, A: 1}}
	m.ComputeBoundingBox()
	return m
}

// sampleScene exercises every entity kind.
func sampleScene(t *testing.T) *Scene {
	t.Helper()
	mesh := triangleMesh("Triangle")
	mesh.Tangents = []math.Vec3{{X: 1}, {X: 1}, {X: 1}}
	mesh.BiTangents = []math.Vec3{{Y: 1}, {Y: 1}, {Y: 1}}
	mesh.Bones = []*Bone{{
		Name:          "Bone_Root",
		OffsetMatrix:  math.Translate(0, -1, 0),
		VertexWeights: []VertexWeight{{VertexID: 0, Weight: 1}, {VertexID: 2, Weight: 0.5}},
	}}
	mesh.MeshAnimationAttachments = []*MeshAnimationAttachment{{
		Name: "Smile",
		VertexData: VertexData{
			Vertices: []math.Vec3{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 1}},
		},
		Weight: 0.25,
	}}
	mesh.MorphMethod = MorphRelative

	mat := NewMaterial()
	mat.SetName("Brick")
	mat.SetColorDiffuse(math.Color4{R: 0.5, G: 0.25, B: 0.125, A: 1})
	mat.SetShininess(32)
	mat.SetTwoSided(true)
	mat.SetProperty(NewDoubleProperty("$custom.scale", 2.5))
	mat.SetProperty(NewBufferProperty("$custom.blob", []byte{1, 2, 3}))
	require.True(t, mat.AddTexture(TextureSlot{FilePath: "*0", TextureType: TextureDiffuse, BlendFactor: 1}))

	root := NewNode("Root")
	child := NewNode("Child")
	child.Transform = math.Translate(1, 2, 3)
	child.MeshIndices = []int{0}
	require.NoError(t, child.Metadata.Set("lod", int32(2)))
	require.NoError(t, root.AddChild(child))
	grandchild := NewNode("Camera")
	require.NoError(t, child.AddChild(grandchild))
	require.NoError(t, root.AddChild(NewNode("Light")))

	s := New()
	s.Name = "sample"
	s.RootNode = root
	s.Meshes = []*Mesh{mesh}
	s.Materials = []*Material{mat}
	s.Textures = []*EmbeddedTexture{
		NewCompressedTexture([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}, ""),
		nil,
		NewUncompressedTexture(2, 1, []math.Texel{{B: 1, G: 2, R: 3, A: 4}, {B: 5, G: 6, R: 7, A: 8}}),
	}
	s.Lights = []*Light{{
		Name:                "Light",
		LightType:           LightSpot,
		Direction:           math.Vec3{Z: -1},
		AttenuationConstant: 1,
		ColorDiffuse:        math.Color3{R: 1, G: 1, B: 1},
		AngleInnerCone:      0.5,
		AngleOuterCone:      0.75,
	}}
	s.Cameras = []*Camera{{
		Name:          "Camera",
		Up:            math.Vec3{Y: 1},
		Direction:     math.Vec3{Z: -1},
		FieldOfView:   0.785,
		ClipPlaneNear: 0.1,
		ClipPlaneFar:  1000,
		AspectRatio:   16.0 / 9.0,
	}}
	s.Animations = []*Animation{{
		Name:            "Wave",
		DurationInTicks: 48,
		TicksPerSecond:  24,
		NodeAnimationChannels: []*NodeAnimationChannel{{
			NodeName:     "Child",
			PositionKeys: []VectorKey{{Time: 0, Value: math.Vec3{}}, {Time: 48, Value: math.Vec3{Y: 2}}},
			RotationKeys: []QuaternionKey{{Time: 0, Value: math.Quat{W: 1}}},
			PostState:    BehaviourRepeat,
		}},
		MeshAnimationChannels: []*MeshAnimationChannel{{
			MeshName: "Triangle",
			MeshKeys: []MeshKey{{Time: 0, Value: 0}, {Time: 24, Value: 1}},
		}},
		MeshMorphAnimationChannels: []*MeshMorphAnimationChannel{{
			Name: "Triangle",
			MeshMorphKeys: []MeshMorphKey{
				{Time: 0, Values: []uint32{0}, Weights: []float64{0}},
				{Time: 12, Values: []uint32{0}, Weights: []float64{1}},
			},
		}},
	}}
	require.NoError(t, s.Metadata.Set("UnitScaleFactor", float64(1)))
	require.NoError(t, s.Metadata.Set("SourceAsset_Generator", "assetbridge"))
	return s
}
