package types

import "math"

// A rotation quaternion. Mesh instance orientations are expressed as
// quaternions and baked into their transformation matrix via Mat4.
type Quat struct {
	V Vec3
	W float32
}

// Create identity quaternion.
func QuatIdent() Quat {
	return Quat{W: 1.0}
}

// Create a unit quaternion that rotates by angle radians around axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	sin, cos := math.Sincos(float64(angle) * 0.5)
	return Quat{
		V: axis.Normalize().Mul(float32(sin)),
		W: float32(cos),
	}
}

// Compose two rotations; the result applies q2 first and then q1.
func (q1 Quat) Mul(q2 Quat) Quat {
	return Quat{
		V: q1.V.Cross(q2.V).Add(q2.V.Mul(q1.W)).Add(q1.V.Mul(q2.W)),
		W: q1.W*q2.W - q1.V.Dot(q2.V),
	}
}

// Rotate a vector.
func (q1 Quat) Rotate(v Vec3) Vec3 {
	// v + 2w(q x v) + 2q x (q x v)
	cross := q1.V.Cross(v)
	return v.Add(cross.Mul(2 * q1.W)).Add(q1.V.Mul(2).Cross(cross))
}

// Get the homogeneous rotation matrix for this quaternion.
func (q1 Quat) Mat4() Mat4 {
	w, x, y, z := q1.W, q1.V[0], q1.V[1], q1.V[2]
	return Mat4{
		1 - 2*y*y - 2*z*z, 2*x*y + 2*w*z, 2*x*z - 2*w*y, 0,
		2*x*y - 2*w*z, 1 - 2*x*x - 2*z*z, 2*y*z + 2*w*x, 0,
		2*x*z + 2*w*y, 2*y*z - 2*w*x, 1 - 2*x*x - 2*y*y, 0,
		0, 0, 0, 1,
	}
}
