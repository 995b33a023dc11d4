package math

import "github.com/chewxy/math32"

// Quat is a rotation quaternion. Components are declared X, Y, Z, W where
// W is the scalar part; the native codec writes them in W, X, Y, Z order.
type Quat struct {
	X, Y, Z, W float32
}

// QuatFromAxisAngle returns the rotation of angle radians about a
// normalized axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	s, c := math32.Sincos(angle / 2)
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: c}
}
