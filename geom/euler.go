package geom

import "math"

type RotationOrder int

const (
	RotationOrderXYZ RotationOrder = iota
	RotationOrderYXZ
	RotationOrderZXY
	RotationOrderZYX
)

// RotationOrderMMD is the order used for bone angles shown by MMD tools.
const RotationOrderMMD = RotationOrderYXZ

// EulerAngles in radians.
type EulerAngles struct {
	Vector3
	Order RotationOrder
}

func NewEuler(x, y, z float64, order RotationOrder) EulerAngles {
	return EulerAngles{Vector3: Vector3{x, y, z}, Order: order}
}

func NewEulerFromQuaternion(q Quaternion, order RotationOrder) EulerAngles {
	return NewEulerFromMatrix4(NewRotationMatrix4FromQuaternion(q.Normalize()), order)
}

func NewEulerFromMatrix4(mat Matrix4, order RotationOrder) EulerAngles {
	const eps = 0.00000001
	m11, m21, m31 := mat[0], mat[1], mat[2]
	m12, m22, m32 := mat[4], mat[5], mat[6]
	m13, m23, m33 := mat[8], mat[9], mat[10]

	ret := EulerAngles{Order: order}
	switch order {
	case RotationOrderXYZ:
		ret.Y = math.Asin(Clamp(m13, -1, 1))
		if math.Abs(m13) < 1-eps {
			ret.X = math.Atan2(-m23, m33)
			ret.Z = math.Atan2(-m12, m11)
		} else {
			ret.X = math.Atan2(m32, m22)
		}
	case RotationOrderYXZ:
		ret.X = math.Asin(-Clamp(m23, -1, 1))
		if math.Abs(m23) < 1-eps {
			ret.Y = math.Atan2(m13, m33)
			ret.Z = math.Atan2(m21, m22)
		} else {
			ret.Y = math.Atan2(-m31, m11)
		}
	case RotationOrderZXY:
		ret.X = math.Asin(Clamp(m32, -1, 1))
		if math.Abs(m32) < 1-eps {
			ret.Y = math.Atan2(-m31, m33)
			ret.Z = math.Atan2(-m12, m22)
		} else {
			ret.Z = math.Atan2(m21, m11)
		}
	case RotationOrderZYX:
		ret.Y = math.Asin(-Clamp(m31, -1, 1))
		if math.Abs(m31) < 1-eps {
			ret.X = math.Atan2(m32, m33)
			ret.Z = math.Atan2(m21, m11)
		} else {
			ret.Z = math.Atan2(-m12, m22)
		}
	}
	return ret
}

func (e EulerAngles) ToQuaternion() Quaternion {
	cx, sx := math.Cos(e.X/2), math.Sin(e.X/2)
	cy, sy := math.Cos(e.Y/2), math.Sin(e.Y/2)
	cz, sz := math.Cos(e.Z/2), math.Sin(e.Z/2)

	switch e.Order {
	case RotationOrderXYZ:
		return Quaternion{
			X: sx*cy*cz + cx*sy*sz,
			Y: cx*sy*cz - sx*cy*sz,
			Z: cx*cy*sz + sx*sy*cz,
			W: cx*cy*cz - sx*sy*sz}
	case RotationOrderYXZ:
		return Quaternion{
			X: sx*cy*cz + cx*sy*sz,
			Y: cx*sy*cz - sx*cy*sz,
			Z: cx*cy*sz - sx*sy*cz,
			W: cx*cy*cz + sx*sy*sz}
	case RotationOrderZXY:
		return Quaternion{
			X: sx*cy*cz - cx*sy*sz,
			Y: cx*sy*cz + sx*cy*sz,
			Z: cx*cy*sz + sx*sy*cz,
			W: cx*cy*cz - sx*sy*sz}
	case RotationOrderZYX:
		return Quaternion{
			X: sx*cy*cz - cx*sy*sz,
			Y: cx*sy*cz + sx*cy*sz,
			Z: cx*cy*sz - sx*sy*cz,
			W: cx*cy*cz + sx*sy*sz}
	default:
		return IdentityQuaternion()
	}
}

func (e EulerAngles) Degrees() Vector3 {
	return Vector3{X: RadToDeg(e.X), Y: RadToDeg(e.Y), Z: RadToDeg(e.Z)}
}
