package scene

import (
	"cmp"
	"slices"
	"strings"
)

// TextureSlot describes one texture binding of a material. It is a view
// assembled from the $tex.* properties sharing a type and index.
type TextureSlot struct {
	FilePath     string
	TextureType  TextureType
	TextureIndex int
	Mapping      TextureMapping
	UVIndex      int
	BlendFactor  float32
	Operation    TextureOperation
	WrapModeU    TextureWrapMode
	WrapModeV    TextureWrapMode
	Flags        int
}

// IsEmbedded reports whether FilePath references a scene texture by index
// ("*0", "*1", ...).
func (s TextureSlot) IsEmbedded() bool {
	return strings.HasPrefix(s.FilePath, "*")
}

// AddTexture stores a slot, replacing an existing one with the same type and
// index. Slots without a file path or texture type are rejected.
func (m *Material) AddTexture(s TextureSlot) bool {
	if s.FilePath == "" || s.TextureType == TextureNone || s.TextureIndex < 0 {
		return false
	}
	tt, i := s.TextureType, s.TextureIndex
	m.SetProperty(NewStringProperty(KeyTextureBase, s.FilePath).ForTexture(tt, i))
	m.SetProperty(NewIntProperty(KeyMappingBase, int32(s.Mapping)).ForTexture(tt, i))
	m.SetProperty(NewIntProperty(KeyUVWSourceBase, int32(s.UVIndex)).ForTexture(tt, i))
	m.SetProperty(NewFloatProperty(KeyTexBlendBase, s.BlendFactor).ForTexture(tt, i))
	m.SetProperty(NewIntProperty(KeyTexOpBase, int32(s.Operation)).ForTexture(tt, i))
	m.SetProperty(NewIntProperty(KeyMappingModeUBase, int32(s.WrapModeU)).ForTexture(tt, i))
	m.SetProperty(NewIntProperty(KeyMappingModeVBase, int32(s.WrapModeV)).ForTexture(tt, i))
	m.SetProperty(NewIntProperty(KeyTexFlagsBase, int32(s.Flags)).ForTexture(tt, i))
	return true
}

// Texture returns the slot bound to tt at index.
func (m *Material) Texture(tt TextureType, index int) (TextureSlot, bool) {
	file, ok := m.Property(PropertyKey(KeyTextureBase, tt, index))
	if !ok || file.typ != PropertyString {
		return TextureSlot{}, false
	}
	s := TextureSlot{FilePath: file.StringValue(), TextureType: tt, TextureIndex: index}
	if p, ok := m.Property(PropertyKey(KeyMappingBase, tt, index)); ok {
		s.Mapping = TextureMapping(p.IntValue())
	}
	if p, ok := m.Property(PropertyKey(KeyUVWSourceBase, tt, index)); ok {
		s.UVIndex = int(p.IntValue())
	}
	if p, ok := m.Property(PropertyKey(KeyTexBlendBase, tt, index)); ok {
		s.BlendFactor = p.FloatValue()
	}
	if p, ok := m.Property(PropertyKey(KeyTexOpBase, tt, index)); ok {
		s.Operation = TextureOperation(p.IntValue())
	}
	if p, ok := m.Property(PropertyKey(KeyMappingModeUBase, tt, index)); ok {
		s.WrapModeU = TextureWrapMode(p.IntValue())
	}
	if p, ok := m.Property(PropertyKey(KeyMappingModeVBase, tt, index)); ok {
		s.WrapModeV = TextureWrapMode(p.IntValue())
	}
	if p, ok := m.Property(PropertyKey(KeyTexFlagsBase, tt, index)); ok {
		s.Flags = int(p.IntValue())
	}
	return s, true
}

// TextureCount returns the number of slots bound to tt.
func (m *Material) TextureCount(tt TextureType) int {
	n := 0
	for _, p := range m.props {
		if p.name == KeyTextureBase && p.textureType == tt {
			n++
		}
	}
	return n
}

// Textures returns the slots bound to tt ordered by index.
func (m *Material) Textures(tt TextureType) []TextureSlot {
	var out []TextureSlot
	for _, p := range m.props {
		if p.name != KeyTextureBase || p.textureType != tt {
			continue
		}
		if s, ok := m.Texture(tt, p.textureIndex); ok {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b TextureSlot) int { return cmp.Compare(a.TextureIndex, b.TextureIndex) })
	return out
}

// AllTextures returns every slot ordered by type, then index.
func (m *Material) AllTextures() []TextureSlot {
	var out []TextureSlot
	for tt := TextureNone; tt <= TextureTransmission; tt++ {
		out = append(out, m.Textures(tt)...)
	}
	return out
}

// RemoveTexture deletes every $tex.* property of the slot and reports
// whether the slot existed.
func (m *Material) RemoveTexture(tt TextureType, index int) bool {
	if !m.HasProperty(PropertyKey(KeyTextureBase, tt, index)) {
		return false
	}
	m.props = slices.DeleteFunc(m.props, func(p *MaterialProperty) bool {
		return strings.HasPrefix(p.name, "$tex.") && p.textureType == tt && p.textureIndex == index
	})
	return true
}
