package math

// Mat3 is a 3x3 matrix in row-major order (a1 a2 a3 b1 ... c3).
type Mat3 [9]float32

// Mat4 embeds the matrix in the upper-left of a 4x4 identity.
func (m Mat3) Mat4() Mat4 {
	return Mat4{
		m[0], m[1], m[2], 0,
		m[3], m[4], m[5], 0,
		m[6], m[7], m[8], 0,
		0, 0, 0, 1,
	}
}
