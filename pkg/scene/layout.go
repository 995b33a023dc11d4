package scene

import "github.com/Faultbox/assetbridge/pkg/native"

// Native struct layouts. Field order follows the C declarations and must not
// be reordered.

const (
	// MaxColorSets is the number of vertex color channels a mesh can carry.
	MaxColorSets = 8
	// MaxTextureCoords is the number of texture coordinate channels a mesh can carry.
	MaxTextureCoords = 8
	// formatHintSize is the fixed byte size of a texture format hint, terminator included.
	formatHintSize = 9
)

type faceFields struct {
	layout     *native.Layout
	numIndices uint32
	indices    uint32
}

var faceL = func() (f faceFields) {
	l := native.NewLayout("aiFace")
	f.numIndices = l.U32()
	f.indices = l.Ptr()
	l.Close()
	f.layout = l
	return f
}()

// VertexWeight is a fixed-size value and travels through a plain codec.
var vertexWeightCodec = native.Codec[VertexWeight]{Name: "aiVertexWeight", Size: 8, Align: 4,
	Decode: func(b []byte) VertexWeight {
		return VertexWeight{VertexID: native.U32.Decode(b), Weight: native.DecodeF32(b[4:])}
	},
	Put: func(b []byte, w VertexWeight) {
		native.U32.Put(b, w.VertexID)
		native.PutF32(b[4:], w.Weight)
	},
}

type boneFields struct {
	layout       *native.Layout
	name         uint32
	numWeights   uint32
	weights      uint32
	offsetMatrix uint32
}

var boneL = func() (f boneFields) {
	l := native.NewLayout("aiBone")
	f.name = l.InlineString()
	f.numWeights = l.U32()
	f.weights = l.Ptr()
	f.offsetMatrix = native.Value(l, native.Mat4)
	l.Close()
	f.layout = l
	return f
}()

// vertexStreams are the per-vertex arrays shared by aiMesh and aiAnimMesh.
type vertexStreams struct {
	vertices   uint32
	normals    uint32
	tangents   uint32
	bitangents uint32
	colors     uint32 // MaxColorSets pointers
	texCoords  uint32 // MaxTextureCoords pointers
}

func layoutStreams(l *native.Layout) (s vertexStreams) {
	s.vertices = l.Ptr()
	s.normals = l.Ptr()
	s.tangents = l.Ptr()
	s.bitangents = l.Ptr()
	s.colors = l.Array(MaxColorSets, native.PtrSize, native.PtrSize)
	s.texCoords = l.Array(MaxTextureCoords, native.PtrSize, native.PtrSize)
	return s
}

type animMeshFields struct {
	layout      *native.Layout
	name        uint32
	streams     vertexStreams
	numVertices uint32
	weight      uint32
}

var animMeshL = func() (f animMeshFields) {
	l := native.NewLayout("aiAnimMesh")
	f.name = l.InlineString()
	f.streams = layoutStreams(l)
	f.numVertices = l.U32()
	f.weight = l.U32()
	l.Close()
	f.layout = l
	return f
}()

type meshFields struct {
	layout          *native.Layout
	primitiveTypes  uint32
	numVertices     uint32
	numFaces        uint32
	streams         vertexStreams
	numUVComponents uint32 // MaxTextureCoords u32
	faces           uint32
	numBones        uint32
	bones           uint32
	materialIndex   uint32
	name            uint32
	numAnimMeshes   uint32
	animMeshes      uint32
	method          uint32
	aabb            uint32
}

var meshL = func() (f meshFields) {
	l := native.NewLayout("aiMesh")
	f.primitiveTypes = l.U32()
	f.numVertices = l.U32()
	f.numFaces = l.U32()
	f.streams = layoutStreams(l)
	f.numUVComponents = l.Array(MaxTextureCoords, 4, 4)
	f.faces = l.Ptr()
	f.numBones = l.U32()
	f.bones = l.Ptr()
	f.materialIndex = l.U32()
	f.name = l.InlineString()
	f.numAnimMeshes = l.U32()
	f.animMeshes = l.Ptr()
	f.method = l.U32()
	f.aabb = native.Value(l, native.Box)
	l.Close()
	f.layout = l
	return f
}()

type nodeFields struct {
	layout         *native.Layout
	name           uint32
	transformation uint32
	parent         uint32
	numChildren    uint32
	children       uint32
	numMeshes      uint32
	meshes         uint32
	metadata       uint32
}

var nodeL = func() (f nodeFields) {
	l := native.NewLayout("aiNode")
	f.name = l.InlineString()
	f.transformation = native.Value(l, native.Mat4)
	f.parent = l.Ptr()
	f.numChildren = l.U32()
	f.children = l.Ptr()
	f.numMeshes = l.U32()
	f.meshes = l.Ptr()
	f.metadata = l.Ptr()
	l.Close()
	f.layout = l
	return f
}()

type lightFields struct {
	layout               *native.Layout
	name                 uint32
	lightType            uint32
	position             uint32
	direction            uint32
	up                   uint32
	attenuationConstant  uint32
	attenuationLinear    uint32
	attenuationQuadratic uint32
	colorDiffuse         uint32
	colorSpecular        uint32
	colorAmbient         uint32
	angleInnerCone       uint32
	angleOuterCone       uint32
	size                 uint32
}

var lightL = func() (f lightFields) {
	l := native.NewLayout("aiLight")
	f.name = l.InlineString()
	f.lightType = l.U32()
	f.position = native.Value(l, native.Vec3)
	f.direction = native.Value(l, native.Vec3)
	f.up = native.Value(l, native.Vec3)
	f.attenuationConstant = l.U32()
	f.attenuationLinear = l.U32()
	f.attenuationQuadratic = l.U32()
	f.colorDiffuse = native.Value(l, native.Color3)
	f.colorSpecular = native.Value(l, native.Color3)
	f.colorAmbient = native.Value(l, native.Color3)
	f.angleInnerCone = l.U32()
	f.angleOuterCone = l.U32()
	f.size = native.Value(l, native.Vec2)
	l.Close()
	f.layout = l
	return f
}()

type cameraFields struct {
	layout            *native.Layout
	name              uint32
	position          uint32
	up                uint32
	lookAt            uint32
	horizontalFOV     uint32
	clipPlaneNear     uint32
	clipPlaneFar      uint32
	aspect            uint32
	orthographicWidth uint32
}

var cameraL = func() (f cameraFields) {
	l := native.NewLayout("aiCamera")
	f.name = l.InlineString()
	f.position = native.Value(l, native.Vec3)
	f.up = native.Value(l, native.Vec3)
	f.lookAt = native.Value(l, native.Vec3)
	f.horizontalFOV = l.U32()
	f.clipPlaneNear = l.U32()
	f.clipPlaneFar = l.U32()
	f.aspect = l.U32()
	f.orthographicWidth = l.U32()
	l.Close()
	f.layout = l
	return f
}()

type textureFields struct {
	layout     *native.Layout
	width      uint32
	height     uint32
	formatHint uint32
	data       uint32
	filename   uint32
}

var textureL = func() (f textureFields) {
	l := native.NewLayout("aiTexture")
	f.width = l.U32()
	f.height = l.U32()
	f.formatHint = l.Field(formatHintSize, 1)
	f.data = l.Ptr()
	f.filename = l.InlineString()
	l.Close()
	f.layout = l
	return f
}()

type materialPropertyFields struct {
	layout     *native.Layout
	key        uint32
	semantic   uint32
	index      uint32
	dataLength uint32
	propType   uint32
	data       uint32
}

var materialPropertyL = func() (f materialPropertyFields) {
	l := native.NewLayout("aiMaterialProperty")
	f.key = l.InlineString()
	f.semantic = l.U32()
	f.index = l.U32()
	f.dataLength = l.U32()
	f.propType = l.U32()
	f.data = l.Ptr()
	l.Close()
	f.layout = l
	return f
}()

type materialFields struct {
	layout        *native.Layout
	properties    uint32
	numProperties uint32
	numAllocated  uint32
}

var materialL = func() (f materialFields) {
	l := native.NewLayout("aiMaterial")
	f.properties = l.Ptr()
	f.numProperties = l.U32()
	f.numAllocated = l.U32()
	l.Close()
	f.layout = l
	return f
}()

var vectorKeyCodec = native.Codec[VectorKey]{Name: "aiVectorKey", Size: 24, Align: 8,
	Decode: func(b []byte) VectorKey {
		return VectorKey{Time: native.F64.Decode(b), Value: native.DecodeVec3(b[8:])}
	},
	Put: func(b []byte, k VectorKey) {
		native.F64.Put(b, k.Time)
		native.PutVec3(b[8:], k.Value)
	},
}

var quatKeyCodec = native.Codec[QuaternionKey]{Name: "aiQuatKey", Size: 24, Align: 8,
	Decode: func(b []byte) QuaternionKey {
		return QuaternionKey{Time: native.F64.Decode(b), Value: native.Quat.Decode(b[8:])}
	},
	Put: func(b []byte, k QuaternionKey) {
		native.F64.Put(b, k.Time)
		native.Quat.Put(b[8:], k.Value)
	},
}

var meshKeyCodec = native.Codec[MeshKey]{Name: "aiMeshKey", Size: 16, Align: 8,
	Decode: func(b []byte) MeshKey {
		return MeshKey{Time: native.F64.Decode(b), Value: native.U32.Decode(b[8:])}
	},
	Put: func(b []byte, k MeshKey) {
		native.F64.Put(b, k.Time)
		native.U32.Put(b[8:], k.Value)
	},
}

type meshMorphKeyFields struct {
	layout              *native.Layout
	time                uint32
	values              uint32
	weights             uint32
	numValuesAndWeights uint32
}

var meshMorphKeyL = func() (f meshMorphKeyFields) {
	l := native.NewLayout("aiMeshMorphKey")
	f.time = l.F64()
	f.values = l.Ptr()
	f.weights = l.Ptr()
	f.numValuesAndWeights = l.U32()
	l.Close()
	f.layout = l
	return f
}()

type nodeAnimFields struct {
	layout          *native.Layout
	nodeName        uint32
	numPositionKeys uint32
	positionKeys    uint32
	numRotationKeys uint32
	rotationKeys    uint32
	numScalingKeys  uint32
	scalingKeys     uint32
	preState        uint32
	postState       uint32
}

var nodeAnimL = func() (f nodeAnimFields) {
	l := native.NewLayout("aiNodeAnim")
	f.nodeName = l.InlineString()
	f.numPositionKeys = l.U32()
	f.positionKeys = l.Ptr()
	f.numRotationKeys = l.U32()
	f.rotationKeys = l.Ptr()
	f.numScalingKeys = l.U32()
	f.scalingKeys = l.Ptr()
	f.preState = l.U32()
	f.postState = l.U32()
	l.Close()
	f.layout = l
	return f
}()

// meshAnimFields is shared by aiMeshAnim and aiMeshMorphAnim.
type meshAnimFields struct {
	layout  *native.Layout
	name    uint32
	numKeys uint32
	keys    uint32
}

func layoutMeshAnim(name string) (f meshAnimFields) {
	l := native.NewLayout(name)
	f.name = l.InlineString()
	f.numKeys = l.U32()
	f.keys = l.Ptr()
	l.Close()
	f.layout = l
	return f
}

var (
	meshAnimL      = layoutMeshAnim("aiMeshAnim")
	meshMorphAnimL = layoutMeshAnim("aiMeshMorphAnim")
)

type animationFields struct {
	layout               *native.Layout
	name                 uint32
	duration             uint32
	ticksPerSecond       uint32
	numChannels          uint32
	channels             uint32
	numMeshChannels      uint32
	meshChannels         uint32
	numMorphMeshChannels uint32
	morphMeshChannels    uint32
}

var animationL = func() (f animationFields) {
	l := native.NewLayout("aiAnimation")
	f.name = l.InlineString()
	f.duration = l.F64()
	f.ticksPerSecond = l.F64()
	f.numChannels = l.U32()
	f.channels = l.Ptr()
	f.numMeshChannels = l.U32()
	f.meshChannels = l.Ptr()
	f.numMorphMeshChannels = l.U32()
	f.morphMeshChannels = l.Ptr()
	l.Close()
	f.layout = l
	return f
}()

type metadataFields struct {
	layout        *native.Layout
	numProperties uint32
	keys          uint32
	values        uint32
}

var metadataL = func() (f metadataFields) {
	l := native.NewLayout("aiMetadata")
	f.numProperties = l.U32()
	f.keys = l.Ptr()
	f.values = l.Ptr()
	l.Close()
	f.layout = l
	return f
}()

type metadataEntryFields struct {
	layout    *native.Layout
	entryType uint32
	data      uint32
}

var metadataEntryL = func() (f metadataEntryFields) {
	l := native.NewLayout("aiMetadataEntry")
	f.entryType = l.U32()
	f.data = l.Ptr()
	l.Close()
	f.layout = l
	return f
}()

type sceneFields struct {
	layout        *native.Layout
	flags         uint32
	rootNode      uint32
	numMeshes     uint32
	meshes        uint32
	numMaterials  uint32
	materials     uint32
	numAnimations uint32
	animations    uint32
	numTextures   uint32
	textures      uint32
	numLights     uint32
	lights        uint32
	numCameras    uint32
	cameras       uint32
	metadata      uint32
	name          uint32
}

var sceneL = func() (f sceneFields) {
	l := native.NewLayout("aiScene")
	f.flags = l.U32()
	f.rootNode = l.Ptr()
	f.numMeshes = l.U32()
	f.meshes = l.Ptr()
	f.numMaterials = l.U32()
	f.materials = l.Ptr()
	f.numAnimations = l.U32()
	f.animations = l.Ptr()
	f.numTextures = l.U32()
	f.textures = l.Ptr()
	f.numLights = l.U32()
	f.lights = l.Ptr()
	f.numCameras = l.U32()
	f.cameras = l.Ptr()
	f.metadata = l.Ptr()
	f.name = l.InlineString()
	l.Close()
	f.layout = l
	return f
}()

type exportBlobFields struct {
	layout *native.Layout
	size   uint32
	data   uint32
	name   uint32
	next   uint32
}

var exportBlobL = func() (f exportBlobFields) {
	l := native.NewLayout("aiExportDataBlob")
	f.size = l.U32()
	f.data = l.Ptr()
	f.name = l.InlineString()
	f.next = l.Ptr()
	l.Close()
	f.layout = l
	return f
}()
