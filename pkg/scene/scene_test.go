package scene

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

func TestSceneRoundTrip(t *testing.T) {
	h, tc := newTestTranscoder(t)
	want := sampleScene(t)

	hd, err := tc.EncodeScene(want)
	require.NoError(t, err)
	require.Equal(t, native.Populated, hd.State())

	got, err := tc.DecodeScene(hd.Ptr())
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, "png", got.Textures[0].FormatHint)
	assert.Nil(t, got.Textures[1])

	child := got.RootNode.FindNode("Child")
	require.NotNil(t, child)
	assert.Same(t, got.RootNode, child.Parent())
	assert.Equal(t, math.Vec3{X: 1, Y: 2, Z: 3}, child.GlobalTransform().TransformPoint(math.Vec3{}))

	require.NoError(t, hd.Release())
	requireNoLeaks(t, h)
}

func TestSceneNativeParentLinks(t *testing.T) {
	h, tc := newTestTranscoder(t)
	hd, err := tc.EncodeScene(sampleScene(t))
	require.NoError(t, err)
	defer hd.Release()

	sb, err := h.Span(hd.Ptr(), sceneL.layout.Size())
	require.NoError(t, err)
	root := ptrAt(sb, sceneL.rootNode)
	rb, err := h.Span(root, nodeL.layout.Size())
	require.NoError(t, err)
	assert.Equal(t, native.Null, ptrAt(rb, nodeL.parent))
	assert.Equal(t, uint32(2), u32At(rb, nodeL.numChildren))

	children, err := native.ReadArray(h, native.Pointer, ptrAt(rb, nodeL.children), 2)
	require.NoError(t, err)
	for _, c := range children {
		cb, err := h.Span(c, nodeL.layout.Size())
		require.NoError(t, err)
		assert.Equal(t, root, ptrAt(cb, nodeL.parent))
	}
}

func TestSceneValidate(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Scene
		wantErr bool
	}{
		{
			name:  "empty scene",
			build: New,
		},
		{
			name: "complete scene without root",
			build: func() *Scene {
				return &Scene{Meshes: []*Mesh{triangleMesh("m")}}
			},
			wantErr: true,
		},
		{
			name: "incomplete scene without root",
			build: func() *Scene {
				return &Scene{Flags: FlagIncomplete, Meshes: []*Mesh{triangleMesh("m")}}
			},
		},
		{
			name: "material-only scene",
			build: func() *Scene {
				return &Scene{Materials: []*Material{NewMaterial()}}
			},
		},
		{
			name: "node mesh index out of range",
			build: func() *Scene {
				root := NewNode("root")
				root.MeshIndices = []int{1}
				return &Scene{RootNode: root, Meshes: []*Mesh{triangleMesh("m")}}
			},
			wantErr: true,
		},
		{
			name: "mesh material index out of range",
			build: func() *Scene {
				m := triangleMesh("m")
				m.MaterialIndex = 3
				return &Scene{RootNode: NewNode("root"), Meshes: []*Mesh{m}, Materials: []*Material{NewMaterial()}}
			},
			wantErr: true,
		},
		{
			name: "nil mesh",
			build: func() *Scene {
				return &Scene{RootNode: NewNode("root"), Meshes: []*Mesh{nil}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, native.ErrInvalidScene)
		})
	}
}

func TestEncodeInvalidSceneAllocatesNothing(t *testing.T) {
	h, tc := newTestTranscoder(t)
	_, err := tc.EncodeScene(&Scene{Meshes: []*Mesh{triangleMesh("m")}})
	require.ErrorIs(t, err, native.ErrInvalidScene)
	requireNoLeaks(t, h)
}

func TestEncodeFailureReleasesPartialGraph(t *testing.T) {
	h, tc := newTestTranscoder(t)
	s := sampleScene(t)
	// Fails deep inside the graph, after meshes and materials were written.
	s.Cameras[0].Name = strings.Repeat("c", native.MaxStringLength+1)

	_, err := tc.EncodeScene(s)
	require.ErrorIs(t, err, native.ErrStringTooLong)

	var nerr *native.Error
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, []string{"cameras[0]", "name"}, nerr.Path)
	requireNoLeaks(t, h)
}

func TestHandleLifecycle(t *testing.T) {
	h, tc := newTestTranscoder(t)
	hd, err := tc.EncodeScene(sampleScene(t))
	require.NoError(t, err)

	other := native.NewHeap()
	assert.ErrorIs(t, other.Release(hd), native.ErrForeignAllocator)
	assert.Equal(t, native.Populated, hd.State())

	require.NoError(t, h.Release(hd))
	assert.Equal(t, native.Released, hd.State())
	assert.Equal(t, native.Null, hd.Ptr())
	assert.ErrorIs(t, hd.Release(), native.ErrDoubleFree)
	requireNoLeaks(t, h)
}

func TestFreeUnpopulatedIsNoOp(t *testing.T) {
	h, tc := newTestTranscoder(t)
	assert.NoError(t, FreeNative[Scene](tc, native.Null, true))
	assert.NoError(t, FreeNative[Mesh](tc, native.Null, false))
	assert.NoError(t, tc.FreeScene(native.Null))

	hd := h.Adopt(native.Null, nil)
	assert.Equal(t, native.Unallocated, hd.State())
	assert.NoError(t, hd.Release())
	requireNoLeaks(t, h)
}

func TestDecodeNullScene(t *testing.T) {
	_, tc := newTestTranscoder(t)
	_, err := tc.DecodeScene(native.Null)
	assert.ErrorIs(t, err, native.ErrCorruptInput)
}

func TestDecodeEmptyCollections(t *testing.T) {
	h, tc := newTestTranscoder(t)
	p, err := ToNative(tc, &Scene{Flags: FlagIncomplete, Name: "empty"})
	require.NoError(t, err)

	got, err := FromNative[Scene](tc, p)
	require.NoError(t, err)
	assert.Nil(t, got.RootNode)
	assert.Nil(t, got.Meshes)
	assert.Nil(t, got.Textures)
	assert.Zero(t, got.Metadata.Len())
	assert.Equal(t, "empty", got.Name)

	require.NoError(t, tc.FreeScene(p))
	requireNoLeaks(t, h)
}

func TestDecodeCorruptInput(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(h *native.Heap, scene []byte)
	}{
		{
			name: "count without pointer",
			corrupt: func(_ *native.Heap, b []byte) {
				putU32(b, sceneL.numLights, 4)
				putPtr(b, sceneL.lights, native.Null)
			},
		},
		{
			name: "pointer without count",
			corrupt: func(_ *native.Heap, b []byte) {
				putU32(b, sceneL.numMeshes, 0)
			},
		},
		{
			name: "count overruns block",
			corrupt: func(_ *native.Heap, b []byte) {
				putU32(b, sceneL.numMeshes, 1000)
			},
		},
		{
			name: "dangling pointer",
			corrupt: func(_ *native.Heap, b []byte) {
				putPtr(b, sceneL.rootNode, native.Ptr(0x7FFFFFF0))
			},
		},
		{
			name: "face index out of range",
			corrupt: func(h *native.Heap, b []byte) {
				meshes, _ := native.ReadArray(h, native.Pointer, ptrAt(b, sceneL.meshes), 1)
				mb, _ := h.Span(meshes[0], meshL.layout.Size())
				fb, _ := h.Span(ptrAt(mb, meshL.faces), faceL.layout.Size())
				_ = native.Set(h, native.U32, ptrAt(fb, faceL.indices), 99)
			},
		},
		{
			name: "tangents without bitangents",
			corrupt: func(h *native.Heap, b []byte) {
				meshes, _ := native.ReadArray(h, native.Pointer, ptrAt(b, sceneL.meshes), 1)
				mb, _ := h.Span(meshes[0], meshL.layout.Size())
				putPtr(mb, meshL.streams.bitangents, native.Null)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, tc := newTestTranscoder(t)
			p, err := ToNative(tc, sampleScene(t))
			require.NoError(t, err)
			b, err := h.Span(p, sceneL.layout.Size())
			require.NoError(t, err)

			tt.corrupt(h, b)
			_, err = tc.DecodeScene(p)
			assert.ErrorIs(t, err, native.ErrCorruptInput)
		})
	}
}

func TestDecodeNodeDepthLimit(t *testing.T) {
	_, tc := newTestTranscoder(t, WithMaxNodeDepth(8))
	root := NewNode("n0")
	cur := root
	for i := 0; i < 20; i++ {
		next := NewNode("n")
		require.NoError(t, cur.AddChild(next))
		cur = next
	}

	p, err := ToNative(tc, root)
	require.NoError(t, err)
	_, err = FromNative[Node](tc, p)
	assert.ErrorIs(t, err, native.ErrCorruptInput)

	require.NoError(t, FreeNative[Node](tc, p, true))
	requireNoLeaks(t, tc.Heap())
}

func TestDeepHierarchyIsIterative(t *testing.T) {
	h, tc := newTestTranscoder(t, WithMaxNodeDepth(10000))
	root := NewNode("root")
	cur := root
	for i := 0; i < 5000; i++ {
		next := NewNode("")
		require.NoError(t, cur.AddChild(next))
		cur = next
	}

	p, err := ToNative(tc, root)
	require.NoError(t, err)
	got, err := FromNative[Node](tc, p)
	require.NoError(t, err)

	depth := 0
	got.Walk(func(_ *Node, d int) bool {
		depth = max(depth, d)
		return true
	})
	assert.Equal(t, 5000, depth)
	require.NoError(t, FreeNative[Node](tc, p, true))
	requireNoLeaks(t, h)
}

func TestEmbeddedTextureReference(t *testing.T) {
	s := sampleScene(t)
	tex, ok := s.EmbeddedTexture("*2")
	require.True(t, ok)
	assert.Equal(t, 2, tex.Width)

	_, ok = s.EmbeddedTexture("*1")
	assert.False(t, ok, "null texture slot")
	_, ok = s.EmbeddedTexture("brick.png")
	assert.False(t, ok)
}

func TestSceneBounds(t *testing.T) {
	s := New()
	assert.Equal(t, math.Box{}, s.Bounds())

	quad := &Mesh{Name: "quad"}
	quad.Vertices = []math.Vec3{{X: -1}, {X: 1, Y: 2}}
	s.Meshes = []*Mesh{quad}

	root := NewNode("root")
	root.Transform = math.Translate(10, 0, 0)
	a := NewNode("a")
	a.MeshIndices = []int{0}
	b := NewNode("b")
	b.Transform = math.Scale(2, 2, 2)
	b.MeshIndices = []int{0, 7}
	require.NoError(t, root.AddChild(a))
	require.NoError(t, root.AddChild(b))
	s.RootNode = root

	got := s.Bounds()
	assert.Equal(t, math.Box{Min: math.Vec3{X: 8}, Max: math.Vec3{X: 12, Y: 4}}, got)
	assert.Equal(t, math.Vec3{X: 10, Y: 2}, got.Center())
	assert.Equal(t, math.Vec3{X: 4, Y: 4}, got.Size())
}
