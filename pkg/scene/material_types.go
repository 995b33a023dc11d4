package scene

// PropertyType tags the payload of a material property.
type PropertyType uint32

const (
	PropertyFloat   PropertyType = 1
	PropertyDouble  PropertyType = 2
	PropertyString  PropertyType = 3
	PropertyInteger PropertyType = 4
	PropertyBuffer  PropertyType = 5
)

func (t PropertyType) String() string {
	switch t {
	case PropertyFloat:
		return "float"
	case PropertyDouble:
		return "double"
	case PropertyString:
		return "string"
	case PropertyInteger:
		return "integer"
	case PropertyBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// numeric reports whether values of t convert to and from numbers.
func (t PropertyType) numeric() bool {
	return t == PropertyFloat || t == PropertyInteger
}

// TextureType is the semantic a texture slot is bound to.
type TextureType uint32

const (
	TextureNone TextureType = iota
	TextureDiffuse
	TextureSpecular
	TextureAmbient
	TextureEmissive
	TextureHeight
	TextureNormals
	TextureShininess
	TextureOpacity
	TextureDisplacement
	TextureLightmap
	TextureReflection
	TextureBaseColor
	TextureNormalCamera
	TextureEmissionColor
	TextureMetalness
	TextureDiffuseRoughness
	TextureAmbientOcclusion
	TextureUnknown
	TextureSheen
	TextureClearcoat
	TextureTransmission
)

var textureTypeNames = [...]string{
	"none", "diffuse", "specular", "ambient", "emissive", "height", "normals",
	"shininess", "opacity", "displacement", "lightmap", "reflection",
	"base_color", "normal_camera", "emission_color", "metalness",
	"diffuse_roughness", "ambient_occlusion", "unknown", "sheen", "clearcoat",
	"transmission",
}

func (t TextureType) String() string {
	if int(t) < len(textureTypeNames) {
		return textureTypeNames[t]
	}
	return "unknown"
}

// ParseTextureType is the inverse of TextureType.String.
func ParseTextureType(s string) (TextureType, bool) {
	for i, name := range textureTypeNames {
		if name == s {
			return TextureType(i), true
		}
	}
	return TextureNone, false
}

// ShadingMode is stored as an integer under KeyShadingModel.
type ShadingMode int32

const (
	ShadingNone ShadingMode = iota
	ShadingFlat
	ShadingGouraud
	ShadingPhong
	ShadingBlinn
	ShadingToon
	ShadingOrenNayar
	ShadingMinnaert
	ShadingCookTorrance
	ShadingNoShading
	ShadingFresnel
	ShadingPBRBRDF
)

// BlendMode is stored as an integer under KeyBlendFunc.
type BlendMode int32

const (
	BlendDefault BlendMode = iota
	BlendAdditive
)

// TextureMapping selects how texture coordinates are generated.
type TextureMapping int32

const (
	MappingFromUV TextureMapping = iota
	MappingSphere
	MappingCylinder
	MappingBox
	MappingPlane
	MappingUnknown
)

// TextureOperation combines a texture with the previous layer.
type TextureOperation int32

const (
	OpMultiply TextureOperation = iota
	OpAdd
	OpSubtract
	OpDivide
	OpSmoothAdd
	OpSignedAdd
)

// TextureWrapMode handles coordinates outside [0, 1].
type TextureWrapMode int32

const (
	WrapWrap TextureWrapMode = iota
	WrapClamp
	WrapMirror
	WrapDecal
)

// Material property base names.
const (
	KeyName               = "?mat.name"
	KeyTwoSided           = "$mat.twosided"
	KeyShadingModel       = "$mat.shadingm"
	KeyEnableWireframe    = "$mat.wireframe"
	KeyBlendFunc          = "$mat.blend"
	KeyOpacity            = "$mat.opacity"
	KeyTransparencyFactor = "$mat.transparencyfactor"
	KeyBumpScaling        = "$mat.bumpscaling"
	KeyShininess          = "$mat.shininess"
	KeyReflectivity       = "$mat.reflectivity"
	KeyShininessStrength  = "$mat.shinpercent"
	KeyRefractIndex       = "$mat.refracti"
	KeyColorDiffuse       = "$clr.diffuse"
	KeyColorAmbient       = "$clr.ambient"
	KeyColorSpecular      = "$clr.specular"
	KeyColorEmissive      = "$clr.emissive"
	KeyColorTransparent   = "$clr.transparent"
	KeyColorReflective    = "$clr.reflective"
	KeyGlobalBackground   = "?bg.global"

	KeyTextureBase      = "$tex.file"
	KeyUVWSourceBase    = "$tex.uvwsrc"
	KeyTexOpBase        = "$tex.op"
	KeyMappingBase      = "$tex.mapping"
	KeyTexBlendBase     = "$tex.blend"
	KeyMappingModeUBase = "$tex.mapmodeu"
	KeyMappingModeVBase = "$tex.mapmodev"
	KeyTexFlagsBase     = "$tex.flags"

	KeyBaseColor                 = "$clr.base"
	KeyMetallicFactor            = "$mat.metallicFactor"
	KeyRoughnessFactor           = "$mat.roughnessFactor"
	KeySpecularFactor            = "$mat.specularFactor"
	KeyGlossinessFactor          = "$mat.glossinessFactor"
	KeySheenColorFactor          = "$clr.sheen.factor"
	KeySheenRoughnessFactor      = "$mat.sheen.roughnessFactor"
	KeyClearcoatFactor           = "$mat.clearcoat.factor"
	KeyClearcoatRoughnessFactor  = "$mat.clearcoat.roughnessFactor"
	KeyTransmissionFactor        = "$mat.transmission.factor"
	KeyVolumeThicknessFactor     = "$mat.volume.thicknessFactor"
	KeyVolumeAttenuationDistance = "$mat.volume.attenuationDistance"
	KeyVolumeAttenuationColor    = "$mat.volume.attenuationColor"
	KeyEmissiveIntensity         = "$mat.emissiveIntensity"
	KeyUseColorMap               = "$mat.useColorMap"
	KeyUseMetallicMap            = "$mat.useMetallicMap"
	KeyUseRoughnessMap           = "$mat.useRoughnessMap"
	KeyUseEmissiveMap            = "$mat.useEmissiveMap"
	KeyUseAOMap                  = "$mat.useAOMap"

	KeyShaderLanguage     = "?sh.lang"
	KeyShaderVertex       = "?sh.vs"
	KeyShaderFragment     = "?sh.fs"
	KeyShaderGeometry     = "?sh.gs"
	KeyShaderTessellation = "?sh.ts"
	KeyShaderPrimitive    = "?sh.ps"
	KeyShaderCompute      = "?sh.cs"
)
