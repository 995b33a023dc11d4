package scene

import (
	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

// Camera describes a viewpoint relative to the node sharing its name.
type Camera struct {
	Name      string
	Position  math.Vec3
	Up        math.Vec3
	Direction math.Vec3
	// FieldOfView is the horizontal field of view in radians.
	FieldOfView   float32
	ClipPlaneNear float32
	ClipPlaneFar  float32
	AspectRatio   float32
	// OrthographicWidth is half the horizontal extent; zero means perspective.
	OrthographicWidth float32
}

// ViewMatrix returns the camera's local view transform.
func (c *Camera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position, c.Position.Add(c.Direction), c.Up)
}

func (c *Camera) IsOrthographic() bool { return c.OrthographicWidth > 0 }

func (c *Camera) nativeLayout() *native.Layout { return cameraL.layout }

func (c *Camera) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := cameraL
	if err := tc.putString(b, f.name, c.Name); err != nil {
		return native.AtPath(err, "name")
	}
	native.Vec3.Put(b[f.position:], c.Position)
	native.Vec3.Put(b[f.up:], c.Up)
	native.Vec3.Put(b[f.lookAt:], c.Direction)
	putF32(b, f.horizontalFOV, c.FieldOfView)
	putF32(b, f.clipPlaneNear, c.ClipPlaneNear)
	putF32(b, f.clipPlaneFar, c.ClipPlaneFar)
	putF32(b, f.aspect, c.AspectRatio)
	putF32(b, f.orthographicWidth, c.OrthographicWidth)
	return nil
}

func (c *Camera) fromNative(tc *Transcoder, b []byte) error {
	f := cameraL
	name, err := tc.getString(b, f.name)
	if err != nil {
		return native.AtPath(err, "name")
	}
	*c = Camera{
		Name:              name,
		Position:          native.Vec3.Decode(b[f.position:]),
		Up:                native.Vec3.Decode(b[f.up:]),
		Direction:         native.Vec3.Decode(b[f.lookAt:]),
		FieldOfView:       f32At(b, f.horizontalFOV),
		ClipPlaneNear:     f32At(b, f.clipPlaneNear),
		ClipPlaneFar:      f32At(b, f.clipPlaneFar),
		AspectRatio:       f32At(b, f.aspect),
		OrthographicWidth: f32At(b, f.orthographicWidth),
	}
	return nil
}

func (c *Camera) freeNative(*Transcoder, []byte) error { return nil }
