package common

import (
	"github.com/chewxy/math32"
)

// Mat4 is a 4x4 matrix stored in column-major order (glTF/WebGPU convention).
type Mat4 = [16]float32

// IdentityMat4 returns the 4x4 identity matrix.
func IdentityMat4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// IsIdentity reports whether m is exactly the identity matrix.
func IsIdentity(m Mat4) bool {
	return m == IdentityMat4()
}

// Mul4 multiplies two 4x4 matrices.
// All matrices are stored in column-major order.
// Result: a * b
//
// Parameters:
//   - a: left-hand matrix
//   - b: right-hand matrix
//
// Returns:
//   - Mat4: the product a * b
func Mul4(a, b Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			out[i*4+j] = sum
		}
	}
	return out
}

// ComposeTRS builds a column-major model matrix from translation, rotation quaternion (x, y, z, w) and scale.
// The result is T * R * S.
//
// Parameters:
//   - t: translation
//   - q: unit rotation quaternion in (x, y, z, w) order
//   - s: per-axis scale
//
// Returns:
//   - Mat4: the composed matrix
func ComposeTRS(t [3]float32, q [4]float32, s [3]float32) Mat4 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat4{
		(1 - 2*(yy+zz)) * s[0], (2 * (xy + wz)) * s[0], (2 * (xz - wy)) * s[0], 0,
		(2 * (xy - wz)) * s[1], (1 - 2*(xx+zz)) * s[1], (2 * (yz + wx)) * s[1], 0,
		(2 * (xz + wy)) * s[2], (2 * (yz - wx)) * s[2], (1 - 2*(xx+yy)) * s[2], 0,
		t[0], t[1], t[2], 1,
	}
}

// DecomposeMatrix splits a column-major affine matrix into translation, rotation quaternion (x, y, z, w) and scale.
// Shear is discarded. A negative determinant is folded into the X scale.
//
// Parameters:
//   - m: column-major affine matrix
//
// Returns:
//   - [3]float32: translation
//   - [4]float32: unit rotation quaternion
//   - [3]float32: scale
func DecomposeMatrix(m Mat4) ([3]float32, [4]float32, [3]float32) {
	t := [3]float32{m[12], m[13], m[14]}

	sx := math32.Sqrt(m[0]*m[0] + m[1]*m[1] + m[2]*m[2])
	sy := math32.Sqrt(m[4]*m[4] + m[5]*m[5] + m[6]*m[6])
	sz := math32.Sqrt(m[8]*m[8] + m[9]*m[9] + m[10]*m[10])

	det := m[0]*(m[5]*m[10]-m[9]*m[6]) - m[4]*(m[1]*m[10]-m[9]*m[2]) + m[8]*(m[1]*m[6]-m[5]*m[2])
	if det < 0 {
		sx = -sx
	}

	// rotation columns with scale removed; r[col*3+row]
	var r [9]float32
	inv := [3]float32{safeInv(sx), safeInv(sy), safeInv(sz)}
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			r[col*3+row] = m[col*4+row] * inv[col]
		}
	}

	return t, QuatFromRotation(r), [3]float32{sx, sy, sz}
}

// QuatFromRotation converts a column-major 3x3 rotation matrix (r[col*3+row]) into a unit quaternion (x, y, z, w).
//
// Parameters:
//   - r: 3x3 rotation matrix in column-major order
//
// Returns:
//   - [4]float32: unit quaternion in (x, y, z, w) order
func QuatFromRotation(r [9]float32) [4]float32 {
	at := func(row, col int) float32 { return r[col*3+row] }
	m00, m11, m22 := at(0, 0), at(1, 1), at(2, 2)
	trace := m00 + m11 + m22

	var q [4]float32
	switch {
	case trace > 0:
		s := math32.Sqrt(trace+1) * 2
		q = [4]float32{
			(at(2, 1) - at(1, 2)) / s,
			(at(0, 2) - at(2, 0)) / s,
			(at(1, 0) - at(0, 1)) / s,
			0.25 * s,
		}
	case m00 > m11 && m00 > m22:
		s := math32.Sqrt(1+m00-m11-m22) * 2
		q = [4]float32{
			0.25 * s,
			(at(0, 1) + at(1, 0)) / s,
			(at(0, 2) + at(2, 0)) / s,
			(at(2, 1) - at(1, 2)) / s,
		}
	case m11 > m22:
		s := math32.Sqrt(1+m11-m00-m22) * 2
		q = [4]float32{
			(at(0, 1) + at(1, 0)) / s,
			0.25 * s,
			(at(1, 2) + at(2, 1)) / s,
			(at(0, 2) - at(2, 0)) / s,
		}
	default:
		s := math32.Sqrt(1+m22-m00-m11) * 2
		q = [4]float32{
			(at(0, 2) + at(2, 0)) / s,
			(at(1, 2) + at(2, 1)) / s,
			0.25 * s,
			(at(1, 0) - at(0, 1)) / s,
		}
	}
	return NormalizeQuat(q)
}

// NormalizeQuat returns q scaled to unit length. A zero quaternion becomes the identity rotation.
func NormalizeQuat(q [4]float32) [4]float32 {
	l := math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if l == 0 {
		return [4]float32{0, 0, 0, 1}
	}
	return [4]float32{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// Lerp3 linearly interpolates between two vectors.
func Lerp3(a, b [3]float32, t float32) [3]float32 {
	return [3]float32{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}

// Slerp spherically interpolates between two unit quaternions along the shortest arc and normalizes the result.
//
// Parameters:
//   - a: start rotation
//   - b: end rotation
//   - t: interpolation factor in [0, 1]
//
// Returns:
//   - [4]float32: the interpolated unit quaternion
func Slerp(a, b [4]float32, t float32) [4]float32 {
	dot := a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
	if dot < 0 {
		b = [4]float32{-b[0], -b[1], -b[2], -b[3]}
		dot = -dot
	}

	// nearly parallel: fall back to nlerp
	if dot > 0.9995 {
		return NormalizeQuat([4]float32{
			a[0] + (b[0]-a[0])*t,
			a[1] + (b[1]-a[1])*t,
			a[2] + (b[2]-a[2])*t,
			a[3] + (b[3]-a[3])*t,
		})
	}

	theta := math32.Acos(dot)
	sinTheta := math32.Sin(theta)
	wa := math32.Sin((1-t)*theta) / sinTheta
	wb := math32.Sin(t*theta) / sinTheta
	return NormalizeQuat([4]float32{
		a[0]*wa + b[0]*wb,
		a[1]*wa + b[1]*wb,
		a[2]*wa + b[2]*wb,
		a[3]*wa + b[3]*wb,
	})
}

// ApproxEqual reports whether a and b differ by no more than eps.
func ApproxEqual(a, b, eps float32) bool {
	return math32.Abs(a-b) <= eps
}

func safeInv(v float32) float32 {
	if v == 0 {
		return 0
	}
	return 1 / v
}
