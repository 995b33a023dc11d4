package scene

import (
	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

// LightSourceType is the kind of a light.
type LightSourceType uint32

const (
	LightUndefined LightSourceType = iota
	LightDirectional
	LightPoint
	LightSpot
	LightAmbient
	LightArea
)

func (t LightSourceType) String() string {
	switch t {
	case LightDirectional:
		return "directional"
	case LightPoint:
		return "point"
	case LightSpot:
		return "spot"
	case LightAmbient:
		return "ambient"
	case LightArea:
		return "area"
	default:
		return "undefined"
	}
}

// Light is a light source. Its position and orientation are relative to
// the node that shares its name.
type Light struct {
	Name                 string
	LightType            LightSourceType
	Position             math.Vec3
	Direction            math.Vec3
	Up                   math.Vec3
	AttenuationConstant  float32
	AttenuationLinear    float32
	AttenuationQuadratic float32
	ColorDiffuse         math.Color3
	ColorSpecular        math.Color3
	ColorAmbient         math.Color3
	// Cone angles are in radians.
	AngleInnerCone float32
	AngleOuterCone float32
	// AreaSize is the extent of an area light.
	AreaSize math.Vec2
}

func (l *Light) nativeLayout() *native.Layout { return lightL.layout }

func (l *Light) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := lightL
	if err := tc.putString(b, f.name, l.Name); err != nil {
		return native.AtPath(err, "name")
	}
	putU32(b, f.lightType, uint32(l.LightType))
	native.Vec3.Put(b[f.position:], l.Position)
	native.Vec3.Put(b[f.direction:], l.Direction)
	native.Vec3.Put(b[f.up:], l.Up)
	putF32(b, f.attenuationConstant, l.AttenuationConstant)
	putF32(b, f.attenuationLinear, l.AttenuationLinear)
	putF32(b, f.attenuationQuadratic, l.AttenuationQuadratic)
	native.Color3.Put(b[f.colorDiffuse:], l.ColorDiffuse)
	native.Color3.Put(b[f.colorSpecular:], l.ColorSpecular)
	native.Color3.Put(b[f.colorAmbient:], l.ColorAmbient)
	putF32(b, f.angleInnerCone, l.AngleInnerCone)
	putF32(b, f.angleOuterCone, l.AngleOuterCone)
	native.Vec2.Put(b[f.size:], l.AreaSize)
	return nil
}

func (l *Light) fromNative(tc *Transcoder, b []byte) error {
	f := lightL
	name, err := tc.getString(b, f.name)
	if err != nil {
		return native.AtPath(err, "name")
	}
	*l = Light{
		Name:                 name,
		LightType:            LightSourceType(u32At(b, f.lightType)),
		Position:             native.Vec3.Decode(b[f.position:]),
		Direction:            native.Vec3.Decode(b[f.direction:]),
		Up:                   native.Vec3.Decode(b[f.up:]),
		AttenuationConstant:  f32At(b, f.attenuationConstant),
		AttenuationLinear:    f32At(b, f.attenuationLinear),
		AttenuationQuadratic: f32At(b, f.attenuationQuadratic),
		ColorDiffuse:         native.Color3.Decode(b[f.colorDiffuse:]),
		ColorSpecular:        native.Color3.Decode(b[f.colorSpecular:]),
		ColorAmbient:         native.Color3.Decode(b[f.colorAmbient:]),
		AngleInnerCone:       f32At(b, f.angleInnerCone),
		AngleOuterCone:       f32At(b, f.angleOuterCone),
		AreaSize:             native.Vec2.Decode(b[f.size:]),
	}
	return nil
}

// Lights own no memory beyond their struct.
func (l *Light) freeNative(*Transcoder, []byte) error { return nil }
