package types

import (
	"math"

	"golang.org/x/image/math/f32"
)

// A 4x4 matrix stored in column-major order.
type Mat4 f32.Mat4

// Create identity matrix.
func Ident4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Create a translation matrix.
func Translate3D(x, y, z float32) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

// Create a scale matrix.
func Scale3D(x, y, z float32) Mat4 {
	return Mat4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

// Get the element at the given row and column.
func (m Mat4) At(row, col int) float32 {
	return m[col*4+row]
}

// Multiply two matrices.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * m2[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Transform a point (w = 1).
func (m Mat4) MulPoint(p Vec3) Vec3 {
	return Vec3{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
	}
}

// Transform a direction (w = 0).
func (m Mat4) MulDir(d Vec3) Vec3 {
	return Vec3{
		m[0]*d[0] + m[4]*d[1] + m[8]*d[2],
		m[1]*d[0] + m[5]*d[1] + m[9]*d[2],
		m[2]*d[0] + m[6]*d[1] + m[10]*d[2],
	}
}

// Get the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[row*4+col] = m[col*4+row]
		}
	}
	return out
}

// Calculate the matrix inverse using Gauss-Jordan elimination with partial
// pivoting. If the matrix is singular, the zero matrix is returned.
func (m Mat4) Inv() Mat4 {
	var a [4][8]float64
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			a[row][col] = float64(m[col*4+row])
		}
		a[row][4+row] = 1
	}

	for col := 0; col < 4; col++ {
		pivot := col
		for row := col + 1; row < 4; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return Mat4{}
		}
		a[col], a[pivot] = a[pivot], a[col]

		scale := 1.0 / a[col][col]
		for k := 0; k < 8; k++ {
			a[col][k] *= scale
		}
		for row := 0; row < 4; row++ {
			if row == col || a[row][col] == 0 {
				continue
			}
			f := a[row][col]
			for k := 0; k < 8; k++ {
				a[row][k] -= f * a[col][k]
			}
		}
	}

	var out Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out[col*4+row] = float32(a[row][4+col])
		}
	}
	return out
}
