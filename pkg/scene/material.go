package scene

import (
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

// Material is an ordered bag of properties keyed by fully qualified name.
// Named accessors are views over the bag; they store nothing of their own.
type Material struct {
	props []*MaterialProperty
}

// NewMaterial creates an empty material.
func NewMaterial() *Material {
	return &Material{}
}

// Properties returns the properties in insertion order.
func (m *Material) Properties() []*MaterialProperty {
	return slices.Clone(m.props)
}

// PropertyCount returns the number of properties.
func (m *Material) PropertyCount() int {
	return len(m.props)
}

func (m *Material) indexOf(key string) int {
	return slices.IndexFunc(m.props, func(p *MaterialProperty) bool {
		return p.FullyQualifiedName() == key
	})
}

// AddProperty inserts p unless a property with the same fully qualified
// name exists. It reports whether p was added.
func (m *Material) AddProperty(p *MaterialProperty) bool {
	if p == nil || m.indexOf(p.FullyQualifiedName()) >= 0 {
		return false
	}
	m.props = append(m.props, p)
	return true
}

// SetProperty inserts p, replacing any property with the same key.
func (m *Material) SetProperty(p *MaterialProperty) {
	if i := m.indexOf(p.FullyQualifiedName()); i >= 0 {
		m.props[i] = p
		return
	}
	m.props = append(m.props, p)
}

// Property looks up a property by its fully qualified name.
func (m *Material) Property(key string) (*MaterialProperty, bool) {
	if i := m.indexOf(key); i >= 0 {
		return m.props[i], true
	}
	return nil, false
}

// HasProperty reports whether key is present.
func (m *Material) HasProperty(key string) bool {
	return m.indexOf(key) >= 0
}

// RemoveProperty deletes key and reports whether it was present.
func (m *Material) RemoveProperty(key string) bool {
	i := m.indexOf(key)
	if i < 0 {
		return false
	}
	m.props = slices.Delete(m.props, i, i+1)
	return true
}

// Clear removes every property.
func (m *Material) Clear() {
	m.props = nil
}

// PropertiesFor returns the properties bound to one texture slot.
func (m *Material) PropertiesFor(tt TextureType, index int) []*MaterialProperty {
	var out []*MaterialProperty
	for _, p := range m.props {
		if p.textureType == tt && p.textureIndex == index {
			out = append(out, p)
		}
	}
	return out
}

func (m *Material) untextured(base string) (*MaterialProperty, bool) {
	return m.Property(PropertyKey(base, TextureNone, 0))
}

// Float reads a scalar property that is not bound to a texture.
func (m *Material) Float(base string) (float32, bool) {
	p, ok := m.untextured(base)
	if !ok || !p.typ.numeric() {
		return 0, false
	}
	return p.FloatValue(), true
}

func (m *Material) SetFloat(base string, v float32) {
	m.SetProperty(NewFloatProperty(base, v))
}

func (m *Material) Int(base string) (int32, bool) {
	p, ok := m.untextured(base)
	if !ok || !p.typ.numeric() {
		return 0, false
	}
	return p.IntValue(), true
}

func (m *Material) SetInt(base string, v int32) {
	m.SetProperty(NewIntProperty(base, v))
}

func (m *Material) Bool(base string) (bool, bool) {
	p, ok := m.untextured(base)
	if !ok || !p.typ.numeric() {
		return false, false
	}
	return p.BoolValue(), true
}

func (m *Material) SetBool(base string, v bool) {
	m.SetProperty(NewBoolProperty(base, v))
}

// Text reads a string property that is not bound to a texture.
func (m *Material) Text(base string) (string, bool) {
	p, ok := m.untextured(base)
	if !ok || p.typ != PropertyString {
		return "", false
	}
	return p.StringValue(), true
}

func (m *Material) SetText(base, v string) {
	m.SetProperty(NewStringProperty(base, v))
}

// Color reads an RGB or RGBA property; RGB yields alpha 1.
func (m *Material) Color(base string) (math.Color4, bool) {
	p, ok := m.untextured(base)
	if !ok || len(p.numbers()) < 3 {
		return math.Color4{}, false
	}
	return p.Color4Value(), true
}

func (m *Material) SetColor(base string, c math.Color4) {
	m.SetProperty(NewColor4Property(base, c))
}

// Name returns the material name, or "" when unset.
func (m *Material) Name() string {
	s, _ := m.Text(KeyName)
	return s
}

func (m *Material) SetName(name string) { m.SetText(KeyName, name) }

func (m *Material) ColorDiffuse() (math.Color4, bool)     { return m.Color(KeyColorDiffuse) }
func (m *Material) ColorAmbient() (math.Color4, bool)     { return m.Color(KeyColorAmbient) }
func (m *Material) ColorSpecular() (math.Color4, bool)    { return m.Color(KeyColorSpecular) }
func (m *Material) ColorEmissive() (math.Color4, bool)    { return m.Color(KeyColorEmissive) }
func (m *Material) ColorTransparent() (math.Color4, bool) { return m.Color(KeyColorTransparent) }
func (m *Material) ColorReflective() (math.Color4, bool)  { return m.Color(KeyColorReflective) }

func (m *Material) SetColorDiffuse(c math.Color4)     { m.SetColor(KeyColorDiffuse, c) }
func (m *Material) SetColorAmbient(c math.Color4)     { m.SetColor(KeyColorAmbient, c) }
func (m *Material) SetColorSpecular(c math.Color4)    { m.SetColor(KeyColorSpecular, c) }
func (m *Material) SetColorEmissive(c math.Color4)    { m.SetColor(KeyColorEmissive, c) }
func (m *Material) SetColorTransparent(c math.Color4) { m.SetColor(KeyColorTransparent, c) }
func (m *Material) SetColorReflective(c math.Color4)  { m.SetColor(KeyColorReflective, c) }

// Opacity defaults to 1 when unset.
func (m *Material) Opacity() float32 {
	if v, ok := m.Float(KeyOpacity); ok {
		return v
	}
	return 1
}

func (m *Material) SetOpacity(v float32) { m.SetFloat(KeyOpacity, v) }

func (m *Material) Shininess() (float32, bool)          { return m.Float(KeyShininess) }
func (m *Material) ShininessStrength() (float32, bool)  { return m.Float(KeyShininessStrength) }
func (m *Material) Reflectivity() (float32, bool)       { return m.Float(KeyReflectivity) }
func (m *Material) BumpScaling() (float32, bool)        { return m.Float(KeyBumpScaling) }
func (m *Material) TransparencyFactor() (float32, bool) { return m.Float(KeyTransparencyFactor) }
func (m *Material) RefractionIndex() (float32, bool)    { return m.Float(KeyRefractIndex) }

func (m *Material) SetShininess(v float32)          { m.SetFloat(KeyShininess, v) }
func (m *Material) SetShininessStrength(v float32)  { m.SetFloat(KeyShininessStrength, v) }
func (m *Material) SetReflectivity(v float32)       { m.SetFloat(KeyReflectivity, v) }
func (m *Material) SetBumpScaling(v float32)        { m.SetFloat(KeyBumpScaling, v) }
func (m *Material) SetTransparencyFactor(v float32) { m.SetFloat(KeyTransparencyFactor, v) }
func (m *Material) SetRefractionIndex(v float32)    { m.SetFloat(KeyRefractIndex, v) }

func (m *Material) IsTwoSided() bool {
	v, _ := m.Bool(KeyTwoSided)
	return v
}

func (m *Material) SetTwoSided(v bool) { m.SetBool(KeyTwoSided, v) }

func (m *Material) IsWireframeEnabled() bool {
	v, _ := m.Bool(KeyEnableWireframe)
	return v
}

func (m *Material) SetWireframeEnabled(v bool) { m.SetBool(KeyEnableWireframe, v) }

func (m *Material) ShadingMode() ShadingMode {
	v, _ := m.Int(KeyShadingModel)
	return ShadingMode(v)
}

func (m *Material) SetShadingMode(s ShadingMode) { m.SetInt(KeyShadingModel, int32(s)) }

func (m *Material) BlendMode() BlendMode {
	v, _ := m.Int(KeyBlendFunc)
	return BlendMode(v)
}

func (m *Material) SetBlendMode(b BlendMode) { m.SetInt(KeyBlendFunc, int32(b)) }

// PBR groups the metallic-roughness and extension parameters. Absent
// properties leave their field at the zero value with the Has flag unset.
type PBR struct {
	BaseColor          math.Color4
	HasBaseColor       bool
	Metallic           float32
	HasMetallic        bool
	Roughness          float32
	HasRoughness       bool
	Specular           float32
	Glossiness         float32
	SheenColor         math.Color4
	SheenRoughness     float32
	Clearcoat          float32
	ClearcoatRoughness float32
	Transmission       float32
	VolumeThickness    float32
	EmissiveIntensity  float32
	UseColorMap        bool
	UseMetallicMap     bool
	UseRoughnessMap    bool
	UseEmissiveMap     bool
	UseAOMap           bool
}

var pbrFactors = []struct {
	key string
	get func(*PBR) *float32
}{
	{KeySpecularFactor, func(p *PBR) *float32 { return &p.Specular }},
	{KeyGlossinessFactor, func(p *PBR) *float32 { return &p.Glossiness }},
	{KeySheenRoughnessFactor, func(p *PBR) *float32 { return &p.SheenRoughness }},
	{KeyClearcoatFactor, func(p *PBR) *float32 { return &p.Clearcoat }},
	{KeyClearcoatRoughnessFactor, func(p *PBR) *float32 { return &p.ClearcoatRoughness }},
	{KeyTransmissionFactor, func(p *PBR) *float32 { return &p.Transmission }},
	{KeyVolumeThicknessFactor, func(p *PBR) *float32 { return &p.VolumeThickness }},
	{KeyEmissiveIntensity, func(p *PBR) *float32 { return &p.EmissiveIntensity }},
}

var pbrMaps = []struct {
	key string
	get func(*PBR) *bool
}{
	{KeyUseColorMap, func(p *PBR) *bool { return &p.UseColorMap }},
	{KeyUseMetallicMap, func(p *PBR) *bool { return &p.UseMetallicMap }},
	{KeyUseRoughnessMap, func(p *PBR) *bool { return &p.UseRoughnessMap }},
	{KeyUseEmissiveMap, func(p *PBR) *bool { return &p.UseEmissiveMap }},
	{KeyUseAOMap, func(p *PBR) *bool { return &p.UseAOMap }},
}

// PBR reads the physically based parameters.
func (m *Material) PBR() PBR {
	var p PBR
	p.BaseColor, p.HasBaseColor = m.Color(KeyBaseColor)
	p.Metallic, p.HasMetallic = m.Float(KeyMetallicFactor)
	p.Roughness, p.HasRoughness = m.Float(KeyRoughnessFactor)
	p.SheenColor, _ = m.Color(KeySheenColorFactor)
	for _, f := range pbrFactors {
		*f.get(&p), _ = m.Float(f.key)
	}
	for _, f := range pbrMaps {
		*f.get(&p), _ = m.Bool(f.key)
	}
	return p
}

// SetPBR stores p so that PBR returns it. Fields with a Has flag are written
// when the flag is set and removed otherwise; the rest are written when
// non-zero and removed when zero, since an absent property reads as zero.
func (m *Material) SetPBR(p PBR) {
	global := func(key string) string { return PropertyKey(key, TextureNone, 0) }
	if p.HasBaseColor {
		m.SetColor(KeyBaseColor, p.BaseColor)
	} else {
		m.RemoveProperty(global(KeyBaseColor))
	}
	if p.HasMetallic {
		m.SetFloat(KeyMetallicFactor, p.Metallic)
	} else {
		m.RemoveProperty(global(KeyMetallicFactor))
	}
	if p.HasRoughness {
		m.SetFloat(KeyRoughnessFactor, p.Roughness)
	} else {
		m.RemoveProperty(global(KeyRoughnessFactor))
	}
	if p.SheenColor != (math.Color4{}) {
		m.SetColor(KeySheenColorFactor, p.SheenColor)
	} else {
		m.RemoveProperty(global(KeySheenColorFactor))
	}
	for _, f := range pbrFactors {
		if v := *f.get(&p); v != 0 {
			m.SetFloat(f.key, v)
		} else {
			m.RemoveProperty(global(f.key))
		}
	}
	for _, f := range pbrMaps {
		if *f.get(&p) {
			m.SetBool(f.key, true)
		} else {
			m.RemoveProperty(global(f.key))
		}
	}
}

// Shaders holds shader sources embedded in a material.
type Shaders struct {
	Language     string
	Vertex       string
	Fragment     string
	Geometry     string
	Tessellation string
	Primitive    string
	Compute      string
}

var shaderKeys = []struct {
	key string
	get func(*Shaders) *string
}{
	{KeyShaderLanguage, func(s *Shaders) *string { return &s.Language }},
	{KeyShaderVertex, func(s *Shaders) *string { return &s.Vertex }},
	{KeyShaderFragment, func(s *Shaders) *string { return &s.Fragment }},
	{KeyShaderGeometry, func(s *Shaders) *string { return &s.Geometry }},
	{KeyShaderTessellation, func(s *Shaders) *string { return &s.Tessellation }},
	{KeyShaderPrimitive, func(s *Shaders) *string { return &s.Primitive }},
	{KeyShaderCompute, func(s *Shaders) *string { return &s.Compute }},
}

func (m *Material) Shaders() Shaders {
	var s Shaders
	for _, k := range shaderKeys {
		*k.get(&s), _ = m.Text(k.key)
	}
	return s
}

// SetShaders stores the non-empty fields of s.
func (m *Material) SetShaders(s Shaders) {
	for _, k := range shaderKeys {
		if v := *k.get(&s); v != "" {
			m.SetText(k.key, v)
		}
	}
}

// HasShaders reports whether any shader source is present.
func (m *Material) HasShaders() bool {
	for _, k := range shaderKeys {
		if m.HasProperty(PropertyKey(k.key, TextureNone, 0)) {
			return true
		}
	}
	return false
}

func (m *Material) nativeLayout() *native.Layout { return materialL.layout }

func (m *Material) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := materialL
	seen := make(map[string]struct{}, len(m.props))
	for _, p := range m.props {
		key := p.FullyQualifiedName()
		if _, dup := seen[key]; dup {
			return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, "duplicate material property %s", key)
		}
		seen[key] = struct{}{}
	}
	if err := writePtrArray(tc, b, f.numProperties, f.properties, m.props, "properties", false); err != nil {
		return err
	}
	putU32(b, f.numAllocated, uint32(len(m.props)))
	return nil
}

func (m *Material) fromNative(tc *Transcoder, b []byte) error {
	f := materialL
	m.Clear()
	props, err := readPtrArray[MaterialProperty](tc, b, f.numProperties, f.properties, "properties", false)
	if err != nil {
		return err
	}
	for _, p := range props {
		if !m.AddProperty(p) {
			tc.log.Debug("dropping duplicate material property", zap.String("key", p.FullyQualifiedName()))
		}
	}
	return nil
}

func (m *Material) freeNative(tc *Transcoder, b []byte) error {
	f := materialL
	return freePtrArray[MaterialProperty](tc, b, f.numProperties, f.properties)
}
