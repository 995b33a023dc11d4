// Package scene is the managed object graph of an imported 3D scene and
// its transcoding to and from the flat native layout held in a
// native.Heap.
package scene

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

// SceneFlags describe the state of a scene.
type SceneFlags uint32

const (
	// FlagIncomplete marks a scene that may lack a root node, such as an
	// animation-only or material-only import.
	FlagIncomplete        SceneFlags = 0x1
	FlagValidated         SceneFlags = 0x2
	FlagValidationWarning SceneFlags = 0x4
	FlagNonVerboseFormat  SceneFlags = 0x8
	FlagTerrain           SceneFlags = 0x10
	FlagAllowShared       SceneFlags = 0x20
)

// Scene is the root of an imported asset. It owns all entities; nodes and
// meshes reference meshes and materials by index.
type Scene struct {
	Flags      SceneFlags
	Name       string
	Metadata   Metadata
	RootNode   *Node
	Meshes     []*Mesh
	Materials  []*Material
	Animations []*Animation
	// Textures may contain nil entries; native texture arrays allow null
	// slots.
	Textures []*EmbeddedTexture
	Lights   []*Light
	Cameras  []*Camera
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{}
}

func (s *Scene) HasMeshes() bool     { return len(s.Meshes) > 0 }
func (s *Scene) HasMaterials() bool  { return len(s.Materials) > 0 }
func (s *Scene) HasAnimations() bool { return len(s.Animations) > 0 }
func (s *Scene) HasTextures() bool   { return len(s.Textures) > 0 }
func (s *Scene) HasLights() bool     { return len(s.Lights) > 0 }
func (s *Scene) HasCameras() bool    { return len(s.Cameras) > 0 }

// IsIncomplete reports whether FlagIncomplete is set.
func (s *Scene) IsIncomplete() bool { return s.Flags&FlagIncomplete != 0 }

// EmbeddedTexture resolves a "*N" texture reference.
func (s *Scene) EmbeddedTexture(ref string) (*EmbeddedTexture, bool) {
	var i int
	if _, err := fmt.Sscanf(ref, "*%d", &i); err != nil || i < 0 || i >= len(s.Textures) {
		return nil, false
	}
	return s.Textures[i], s.Textures[i] != nil
}

// Clear drops every entity and flag.
func (s *Scene) Clear() {
	*s = Scene{}
}

// Validate checks the structural invariants a native consumer relies on:
// a complete scene with meshes, lights or cameras has a root node, and
// every index reference is in range.
func (s *Scene) Validate() error {
	invalid := func(format string, args ...any) error {
		return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, format, args...)
	}
	var errs []error
	if !s.IsIncomplete() && s.RootNode == nil && (s.HasMeshes() || s.HasLights() || s.HasCameras()) {
		errs = append(errs, invalid("complete scene with meshes, lights or cameras has no root node"))
	}
	for i, m := range s.Meshes {
		if m == nil {
			errs = append(errs, invalid("%s is nil", native.Index("meshes", i)))
			continue
		}
		if m.MaterialIndex < 0 || (m.MaterialIndex >= len(s.Materials) && (len(s.Materials) > 0 || m.MaterialIndex > 0)) {
			errs = append(errs, invalid("%s uses material %d of %d", native.Index("meshes", i), m.MaterialIndex, len(s.Materials)))
		}
	}
	if s.RootNode != nil {
		s.RootNode.Walk(func(n *Node, _ int) bool {
			for _, idx := range n.MeshIndices {
				if idx < 0 || idx >= len(s.Meshes) {
					errs = append(errs, invalid("node %q references mesh %d of %d", n.Name, idx, len(s.Meshes)))
				}
			}
			return true
		})
	}
	return errors.Join(errs...)
}

// NodeCount returns the number of nodes in the hierarchy.
func (s *Scene) NodeCount() int {
	n := 0
	if s.RootNode != nil {
		s.RootNode.Walk(func(*Node, int) bool {
			n++
			return true
		})
	}
	return n
}

// Bounds returns the world-space box around every mesh vertex referenced
// from the node tree. Out of range mesh indices are skipped; a scene with
// no placed vertices has a zero box.
func (s *Scene) Bounds() math.Box {
	box := math.EmptyBox()
	if s.RootNode != nil {
		s.RootNode.Walk(func(n *Node, _ int) bool {
			if !n.HasMeshes() {
				return true
			}
			world := n.GlobalTransform()
			for _, mi := range n.MeshIndices {
				if mi < 0 || mi >= len(s.Meshes) || s.Meshes[mi] == nil {
					continue
				}
				for _, v := range s.Meshes[mi].Vertices {
					box = box.Extend(world.TransformPoint(v))
				}
			}
			return true
		})
	}
	if box.IsEmpty() {
		return math.Box{}
	}
	return box
}

func (s *Scene) String() string {
	return fmt.Sprintf("scene %q: %d nodes, %d meshes, %d materials, %d animations, %d textures, %d lights, %d cameras",
		s.Name, s.NodeCount(), len(s.Meshes), len(s.Materials), len(s.Animations), len(s.Textures), len(s.Lights), len(s.Cameras))
}

func (s *Scene) nativeLayout() *native.Layout { return sceneL.layout }

func (s *Scene) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := sceneL
	if err := s.Validate(); err != nil {
		return err
	}
	putU32(b, f.flags, uint32(s.Flags))
	if err := tc.putString(b, f.name, s.Name); err != nil {
		return native.AtPath(err, "name")
	}
	if s.RootNode != nil {
		root, err := ToNative(tc, s.RootNode)
		if err != nil {
			return native.AtPath(err, "rootNode")
		}
		putPtr(b, f.rootNode, root)
	}
	if s.Metadata.Len() > 0 {
		md, err := ToNative(tc, &s.Metadata)
		if err != nil {
			return native.AtPath(err, "metadata")
		}
		putPtr(b, f.metadata, md)
	}
	if err := writePtrArray(tc, b, f.numMeshes, f.meshes, s.Meshes, "meshes", false); err != nil {
		return err
	}
	if err := writePtrArray(tc, b, f.numMaterials, f.materials, s.Materials, "materials", false); err != nil {
		return err
	}
	if err := writePtrArray(tc, b, f.numAnimations, f.animations, s.Animations, "animations", false); err != nil {
		return err
	}
	if err := writePtrArray(tc, b, f.numTextures, f.textures, s.Textures, "textures", true); err != nil {
		return err
	}
	if err := writePtrArray(tc, b, f.numLights, f.lights, s.Lights, "lights", false); err != nil {
		return err
	}
	return writePtrArray(tc, b, f.numCameras, f.cameras, s.Cameras, "cameras", false)
}

func (s *Scene) fromNative(tc *Transcoder, b []byte) error {
	f := sceneL
	s.Clear()
	var err error
	if s.Name, err = tc.getString(b, f.name); err != nil {
		return native.AtPath(err, "name")
	}
	s.Flags = SceneFlags(u32At(b, f.flags))
	if s.RootNode, err = FromNative[Node](tc, ptrAt(b, f.rootNode)); err != nil {
		return native.AtPath(err, "rootNode")
	}
	if p := ptrAt(b, f.metadata); p != native.Null {
		if err := DecodeInto(tc, p, &s.Metadata); err != nil {
			return native.AtPath(err, "metadata")
		}
	}
	if s.Meshes, err = readPtrArray[Mesh](tc, b, f.numMeshes, f.meshes, "meshes", false); err != nil {
		return err
	}
	if s.Materials, err = readPtrArray[Material](tc, b, f.numMaterials, f.materials, "materials", false); err != nil {
		return err
	}
	if s.Animations, err = readPtrArray[Animation](tc, b, f.numAnimations, f.animations, "animations", false); err != nil {
		return err
	}
	if s.Textures, err = readPtrArray[EmbeddedTexture](tc, b, f.numTextures, f.textures, "textures", true); err != nil {
		return err
	}
	if s.Lights, err = readPtrArray[Light](tc, b, f.numLights, f.lights, "lights", false); err != nil {
		return err
	}
	if s.Cameras, err = readPtrArray[Camera](tc, b, f.numCameras, f.cameras, "cameras", false); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return native.Corrupt("decoded scene is inconsistent: %v", err)
	}
	return nil
}

func (s *Scene) freeNative(tc *Transcoder, b []byte) error {
	f := sceneL
	return errors.Join(
		FreeNative[Node](tc, ptrAt(b, f.rootNode), true),
		FreeNative[Metadata](tc, ptrAt(b, f.metadata), true),
		freePtrArray[Mesh](tc, b, f.numMeshes, f.meshes),
		freePtrArray[Material](tc, b, f.numMaterials, f.materials),
		freePtrArray[Animation](tc, b, f.numAnimations, f.animations),
		freePtrArray[EmbeddedTexture](tc, b, f.numTextures, f.textures),
		freePtrArray[Light](tc, b, f.numLights, f.lights),
		freePtrArray[Camera](tc, b, f.numCameras, f.cameras),
	)
}

// EncodeScene validates s, writes it to the heap and returns an owning
// handle. Releasing the handle frees the whole native graph.
func (tc *Transcoder) EncodeScene(s *Scene) (*native.Handle, error) {
	hd, err := Encode(tc, s)
	if err != nil {
		tc.log.Debug("scene encode failed", zap.Error(err))
		return nil, err
	}
	tc.log.Debug("scene encoded",
		zap.String("name", s.Name),
		zap.Uint32("ptr", uint32(hd.Ptr())),
		zap.Int("meshes", len(s.Meshes)),
		zap.Int("materials", len(s.Materials)),
		zap.Int("liveBlocks", tc.heap.Stats().LiveBlocks))
	return hd, nil
}

// DecodeScene reads the native scene at p. The native memory is not
// modified or released.
func (tc *Transcoder) DecodeScene(p native.Ptr) (*Scene, error) {
	if p == native.Null {
		return nil, native.Errorf(native.PhaseDecode, native.ErrCorruptInput, "null scene pointer")
	}
	s, err := FromNative[Scene](tc, p)
	if err != nil {
		return nil, err
	}
	tc.log.Debug("scene decoded", zap.String("name", s.Name), zap.Int("nodes", s.NodeCount()))
	return s, nil
}

// FreeScene releases a native scene that was not wrapped in a handle.
func (tc *Transcoder) FreeScene(p native.Ptr) error {
	return FreeNative[Scene](tc, p, true)
}
