package scene

import (
	"errors"
	"fmt"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

// PrimitiveType is a bit set of the face kinds a mesh contains.
type PrimitiveType uint32

const (
	PrimitivePoint    PrimitiveType = 0x1
	PrimitiveLine     PrimitiveType = 0x2
	PrimitiveTriangle PrimitiveType = 0x4
	PrimitivePolygon  PrimitiveType = 0x8
)

// MorphingMethod selects how anim meshes blend with the base mesh.
type MorphingMethod uint32

const (
	MorphUnknown MorphingMethod = iota
	MorphVertexBlend
	MorphNormalized
	MorphRelative
)

// Face is a polygon given by indices into the mesh vertex arrays.
type Face struct {
	Indices []uint32
}

func (fc *Face) nativeLayout() *native.Layout { return faceL.layout }

func (fc *Face) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	if err := writeValues(tc, b, faceL.indices, native.U32, fc.Indices); err != nil {
		return err
	}
	putU32(b, faceL.numIndices, uint32(len(fc.Indices)))
	return nil
}

func (fc *Face) fromNative(tc *Transcoder, b []byte) error {
	idx, err := readValues(tc, b, faceL.indices, native.U32, u32At(b, faceL.numIndices), "indices")
	if err != nil {
		return err
	}
	fc.Indices = nil
	if len(idx) > 0 {
		fc.Indices = idx
	}
	return nil
}

func (fc *Face) freeNative(tc *Transcoder, b []byte) error {
	return freeAt(tc, b, faceL.indices)
}

// VertexData holds the per-vertex streams shared by meshes and their
// animation attachments. Every non-empty stream has one entry per vertex.
type VertexData struct {
	Vertices   []math.Vec3
	Normals    []math.Vec3
	Tangents   []math.Vec3
	BiTangents []math.Vec3
	Colors     [MaxColorSets][]math.Color4
	// TexCoords are stored as 3-vectors regardless of the component count.
	TexCoords [MaxTextureCoords][]math.Vec3
}

// VertexCount returns the number of vertices.
func (v *VertexData) VertexCount() int { return len(v.Vertices) }

func (v *VertexData) HasNormals() bool { return len(v.Normals) > 0 }

// HasTangentBasis reports whether both tangents and bitangents are present;
// one is never stored without the other.
func (v *VertexData) HasTangentBasis() bool {
	return len(v.Tangents) > 0 && len(v.BiTangents) > 0
}

func (v *VertexData) HasVertexColors(channel int) bool {
	return channel >= 0 && channel < MaxColorSets && len(v.Colors[channel]) > 0
}

func (v *VertexData) HasTextureCoords(channel int) bool {
	return channel >= 0 && channel < MaxTextureCoords && len(v.TexCoords[channel]) > 0
}

// ColorChannelCount counts the non-empty color channels.
func (v *VertexData) ColorChannelCount() int {
	n := 0
	for i := range v.Colors {
		if len(v.Colors[i]) > 0 {
			n++
		}
	}
	return n
}

// TextureCoordChannelCount counts the non-empty texture coordinate channels.
func (v *VertexData) TextureCoordChannelCount() int {
	n := 0
	for i := range v.TexCoords {
		if len(v.TexCoords[i]) > 0 {
			n++
		}
	}
	return n
}

func (v *VertexData) validate() error {
	n := len(v.Vertices)
	check := func(field string, got int) error {
		if got != 0 && got != n {
			return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, "%s has %d entries for %d vertices", field, got, n)
		}
		return nil
	}
	errs := []error{check("normals", len(v.Normals))}
	if v.HasTangentBasis() {
		errs = append(errs, check("tangents", len(v.Tangents)), check("bitangents", len(v.BiTangents)))
	}
	for i := range v.Colors {
		errs = append(errs, check(native.Index("colors", i), len(v.Colors[i])))
	}
	for i := range v.TexCoords {
		errs = append(errs, check(native.Index("texcoords", i), len(v.TexCoords[i])))
	}
	return errors.Join(errs...)
}

func (v *VertexData) write(tc *Transcoder, b []byte, s vertexStreams) error {
	if err := v.validate(); err != nil {
		return err
	}
	if err := writeValues(tc, b, s.vertices, native.Vec3, v.Vertices); err != nil {
		return err
	}
	if err := writeValues(tc, b, s.normals, native.Vec3, v.Normals); err != nil {
		return err
	}
	if v.HasTangentBasis() {
		if err := writeValues(tc, b, s.tangents, native.Vec3, v.Tangents); err != nil {
			return err
		}
		if err := writeValues(tc, b, s.bitangents, native.Vec3, v.BiTangents); err != nil {
			return err
		}
	}
	for i := range v.Colors {
		if err := writeValues(tc, b, s.colors+uint32(i)*native.PtrSize, native.Color4, v.Colors[i]); err != nil {
			return err
		}
	}
	for i := range v.TexCoords {
		if err := writeValues(tc, b, s.texCoords+uint32(i)*native.PtrSize, native.Vec3, v.TexCoords[i]); err != nil {
			return err
		}
	}
	return nil
}

func (v *VertexData) read(tc *Transcoder, b []byte, s vertexStreams, n uint32) error {
	*v = VertexData{}
	var err error
	if v.Vertices, err = readOptionalValues(tc, b, s.vertices, native.Vec3, n, "vertices"); err != nil {
		return err
	}
	if v.Normals, err = readOptionalValues(tc, b, s.normals, native.Vec3, n, "normals"); err != nil {
		return err
	}
	hasT, hasB := ptrAt(b, s.tangents) != native.Null, ptrAt(b, s.bitangents) != native.Null
	if hasT != hasB {
		return native.Corrupt("tangents present=%t but bitangents present=%t", hasT, hasB)
	}
	if v.Tangents, err = readOptionalValues(tc, b, s.tangents, native.Vec3, n, "tangents"); err != nil {
		return err
	}
	if v.BiTangents, err = readOptionalValues(tc, b, s.bitangents, native.Vec3, n, "bitangents"); err != nil {
		return err
	}
	for i := range v.Colors {
		if v.Colors[i], err = readOptionalValues(tc, b, s.colors+uint32(i)*native.PtrSize, native.Color4, n, native.Index("colors", i)); err != nil {
			return err
		}
	}
	for i := range v.TexCoords {
		if v.TexCoords[i], err = readOptionalValues(tc, b, s.texCoords+uint32(i)*native.PtrSize, native.Vec3, n, native.Index("texcoords", i)); err != nil {
			return err
		}
	}
	return nil
}

func freeStreams(tc *Transcoder, b []byte, s vertexStreams) error {
	errs := []error{
		freeAt(tc, b, s.vertices),
		freeAt(tc, b, s.normals),
		freeAt(tc, b, s.tangents),
		freeAt(tc, b, s.bitangents),
	}
	for i := 0; i < MaxColorSets; i++ {
		errs = append(errs, freeAt(tc, b, s.colors+uint32(i)*native.PtrSize))
	}
	for i := 0; i < MaxTextureCoords; i++ {
		errs = append(errs, freeAt(tc, b, s.texCoords+uint32(i)*native.PtrSize))
	}
	return errors.Join(errs...)
}

// MeshAnimationAttachment is a morph target: replacement vertex streams
// blended in by Weight.
type MeshAnimationAttachment struct {
	Name string
	VertexData
	Weight float32
}

func (a *MeshAnimationAttachment) nativeLayout() *native.Layout { return animMeshL.layout }

func (a *MeshAnimationAttachment) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := animMeshL
	if err := tc.putString(b, f.name, a.Name); err != nil {
		return native.AtPath(err, "name")
	}
	putF32(b, f.weight, a.Weight)
	if err := a.write(tc, b, f.streams); err != nil {
		return err
	}
	putU32(b, f.numVertices, uint32(len(a.Vertices)))
	return nil
}

func (a *MeshAnimationAttachment) fromNative(tc *Transcoder, b []byte) error {
	f := animMeshL
	*a = MeshAnimationAttachment{}
	name, err := tc.getString(b, f.name)
	if err != nil {
		return native.AtPath(err, "name")
	}
	if err := a.read(tc, b, f.streams, u32At(b, f.numVertices)); err != nil {
		return native.AtPath(err, name)
	}
	a.Name = name
	a.Weight = f32At(b, f.weight)
	return nil
}

func (a *MeshAnimationAttachment) freeNative(tc *Transcoder, b []byte) error {
	return freeStreams(tc, b, animMeshL.streams)
}

// Mesh is a set of faces over shared vertex streams using one material.
type Mesh struct {
	Name          string
	PrimitiveType PrimitiveType
	MaterialIndex int
	VertexData
	// UVComponentCount is 2 or 3 for each non-empty texture channel.
	// Zero on a non-empty channel is written as 2.
	UVComponentCount         [MaxTextureCoords]int
	Faces                    []Face
	Bones                    []*Bone
	MeshAnimationAttachments []*MeshAnimationAttachment
	MorphMethod              MorphingMethod
	BoundingBox              math.Box
}

// FaceCount returns the number of faces.
func (m *Mesh) FaceCount() int { return len(m.Faces) }

func (m *Mesh) HasFaces() bool { return len(m.Faces) > 0 }

func (m *Mesh) HasBones() bool { return len(m.Bones) > 0 }

func (m *Mesh) HasMeshAnimationAttachments() bool { return len(m.MeshAnimationAttachments) > 0 }

// FaceIndices flattens the faces into one index list, as used by index
// buffers.
func (m *Mesh) FaceIndices() []uint32 {
	var n int
	for _, f := range m.Faces {
		n += len(f.Indices)
	}
	out := make([]uint32, 0, n)
	for _, f := range m.Faces {
		out = append(out, f.Indices...)
	}
	return out
}

// FaceIndicesInt32 is FaceIndices for APIs that take signed indices.
func (m *Mesh) FaceIndicesInt32() []int32 {
	idx := m.FaceIndices()
	out := make([]int32, len(idx))
	for i, v := range idx {
		out[i] = int32(v)
	}
	return out
}

// FaceIndicesUint16 narrows the indices to 16 bits. It fails when a vertex
// index does not fit.
func (m *Mesh) FaceIndicesUint16() ([]uint16, error) {
	idx := m.FaceIndices()
	out := make([]uint16, len(idx))
	for i, v := range idx {
		if v > 0xFFFF {
			return nil, fmt.Errorf("mesh %q: index %d does not fit in 16 bits", m.Name, v)
		}
		out[i] = uint16(v)
	}
	return out, nil
}

// ComputeBoundingBox recomputes BoundingBox from the vertices and returns it.
func (m *Mesh) ComputeBoundingBox() math.Box {
	box := math.EmptyBox()
	for _, v := range m.Vertices {
		box = box.Extend(v)
	}
	if box.IsEmpty() {
		box = math.Box{}
	}
	m.BoundingBox = box
	return box
}

// Validate checks the mesh for internal consistency.
func (m *Mesh) Validate() error {
	n := uint32(len(m.Vertices))
	var errs []error
	errs = append(errs, m.VertexData.validate())
	for i, f := range m.Faces {
		for _, idx := range f.Indices {
			if idx >= n {
				errs = append(errs, native.Errorf(native.PhaseEncode, native.ErrInvalidScene,
					"%s references vertex %d of %d", native.Index("faces", i), idx, n))
				break
			}
		}
	}
	for i, bn := range m.Bones {
		if bn == nil {
			continue
		}
		for _, w := range bn.VertexWeights {
			if w.VertexID >= n {
				errs = append(errs, native.Errorf(native.PhaseEncode, native.ErrInvalidScene,
					"%s weights vertex %d of %d", native.Index("bones", i), w.VertexID, n))
				break
			}
		}
	}
	for i, a := range m.MeshAnimationAttachments {
		if a != nil && len(a.Vertices) != 0 && len(a.Vertices) != len(m.Vertices) {
			errs = append(errs, native.Errorf(native.PhaseEncode, native.ErrInvalidScene,
				"%s has %d vertices, mesh has %d", native.Index("animMeshes", i), len(a.Vertices), n))
		}
	}
	for i, c := range m.UVComponentCount {
		if c < 0 || c > 3 || (c == 1 && len(m.TexCoords[i]) > 0) {
			errs = append(errs, native.Errorf(native.PhaseEncode, native.ErrInvalidScene,
				"texture channel %d has %d components", i, c))
		}
	}
	return errors.Join(errs...)
}

func (m *Mesh) String() string {
	return fmt.Sprintf("mesh %q: %d vertices, %d faces, %d bones", m.Name, len(m.Vertices), len(m.Faces), len(m.Bones))
}

func (m *Mesh) nativeLayout() *native.Layout { return meshL.layout }

func (m *Mesh) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := meshL
	if err := m.Validate(); err != nil {
		return err
	}
	if err := tc.putString(b, f.name, m.Name); err != nil {
		return native.AtPath(err, "name")
	}
	putU32(b, f.primitiveTypes, uint32(m.PrimitiveType))
	putU32(b, f.materialIndex, uint32(m.MaterialIndex))
	putU32(b, f.method, uint32(m.MorphMethod))
	native.Box.Put(b[f.aabb:], m.BoundingBox)
	for i, tex := range m.TexCoords {
		c := m.UVComponentCount[i]
		if len(tex) == 0 {
			c = 0
		} else if c == 0 {
			c = 2
		}
		putU32(b, f.numUVComponents+uint32(i)*4, uint32(c))
	}

	if err := m.write(tc, b, f.streams); err != nil {
		return err
	}
	putU32(b, f.numVertices, uint32(len(m.Vertices)))
	if err := writeStructArray(tc, b, f.numFaces, f.faces, m.Faces, "faces"); err != nil {
		return err
	}
	if err := writePtrArray(tc, b, f.numBones, f.bones, m.Bones, "bones", false); err != nil {
		return err
	}
	return writePtrArray(tc, b, f.numAnimMeshes, f.animMeshes, m.MeshAnimationAttachments, "animMeshes", false)
}

func (m *Mesh) fromNative(tc *Transcoder, b []byte) error {
	f := meshL
	*m = Mesh{}
	name, err := tc.getString(b, f.name)
	if err != nil {
		return native.AtPath(err, "name")
	}
	n := u32At(b, f.numVertices)
	if err := m.read(tc, b, f.streams, n); err != nil {
		return native.AtPath(err, name)
	}
	if n > 0 && len(m.Vertices) == 0 {
		return native.AtPath(native.Corrupt("%d vertices but no position stream", n), name)
	}
	if m.Faces, err = readStructArray[Face](tc, b, f.numFaces, f.faces, "faces"); err != nil {
		return native.AtPath(err, name)
	}
	if m.Bones, err = readPtrArray[Bone](tc, b, f.numBones, f.bones, "bones", false); err != nil {
		return native.AtPath(err, name)
	}
	if m.MeshAnimationAttachments, err = readPtrArray[MeshAnimationAttachment](tc, b, f.numAnimMeshes, f.animMeshes, "animMeshes", false); err != nil {
		return native.AtPath(err, name)
	}
	for i := range m.UVComponentCount {
		if len(m.TexCoords[i]) > 0 {
			c := u32At(b, f.numUVComponents+uint32(i)*4)
			if c != 2 && c != 3 {
				return native.AtPath(native.Corrupt("texture channel %d has %d components", i, c), name)
			}
			m.UVComponentCount[i] = int(c)
		}
	}
	for i, fc := range m.Faces {
		for _, idx := range fc.Indices {
			if idx >= n {
				return native.AtPath(native.Corrupt("%s references vertex %d of %d", native.Index("faces", i), idx, n), name)
			}
		}
	}
	m.Name = name
	m.PrimitiveType = PrimitiveType(u32At(b, f.primitiveTypes))
	m.MaterialIndex = int(u32At(b, f.materialIndex))
	m.MorphMethod = MorphingMethod(u32At(b, f.method))
	m.BoundingBox = native.Box.Decode(b[f.aabb:])
	return nil
}

func (m *Mesh) freeNative(tc *Transcoder, b []byte) error {
	f := meshL
	return errors.Join(
		freeStreams(tc, b, f.streams),
		freeStructArray[Face](tc, b, f.numFaces, f.faces),
		freePtrArray[Bone](tc, b, f.numBones, f.bones),
		freePtrArray[MeshAnimationAttachment](tc, b, f.numAnimMeshes, f.animMeshes),
	)
}
