package geom

import "math"

// Quaternion is a rotation quaternion. a.Mul(b) applies b first.
type Quaternion struct {
	X float64
	Y float64
	Z float64
	W float64
}

func NewQuaternion(x, y, z, w float64) Quaternion {
	return Quaternion{X: x, Y: y, Z: z, W: w}
}

func NewQuaternionFromArray(arr [4]float32) Quaternion {
	return Quaternion{X: float64(arr[0]), Y: float64(arr[1]), Z: float64(arr[2]), W: float64(arr[3])}
}

func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

func NewQuaternionFromAxisAngle(axis Vector3, rad float64) Quaternion {
	if axis.IsZero() {
		return IdentityQuaternion()
	}
	a := axis.Normalize()
	s := math.Sin(rad / 2)
	return Quaternion{X: a.X * s, Y: a.Y * s, Z: a.Z * s, W: math.Cos(rad / 2)}
}

// NewQuaternionFromRotationVector is the inverse of ToRotationVector.
func NewQuaternionFromRotationVector(v Vector3) Quaternion {
	return NewQuaternionFromAxisAngle(v, v.Len())
}

// NewQuaternionFromTo returns the shortest-arc rotation that turns from into to.
func NewQuaternionFromTo(from, to Vector3) Quaternion {
	if from.IsZero() || to.IsZero() {
		return IdentityQuaternion()
	}
	f, t := from.Normalize(), to.Normalize()
	d := f.Dot(t)
	if d >= 1-1e-12 {
		return IdentityQuaternion()
	}
	if d <= -1+1e-12 {
		axis := Vector3{X: 1}.Cross(f)
		if axis.LenSqr() < 1e-12 {
			axis = Vector3{Y: 1}.Cross(f)
		}
		return NewQuaternionFromAxisAngle(axis, math.Pi)
	}
	c := f.Cross(t)
	return Quaternion{X: c.X, Y: c.Y, Z: c.Z, W: 1 + d}.Normalize()
}

// NewQuaternionFromAxes builds the rotation whose local X, Y and Z axes map to x, y and z.
// The axes are orthonormalized with x as the primary direction.
func NewQuaternionFromAxes(x, y, z Vector3) Quaternion {
	x = x.Normalize()
	z = x.Cross(y)
	if z.LenSqr() < 1e-12 {
		z = x.Cross(Vector3{Z: 1}.Cross(x))
	}
	z = z.Normalize()
	y = z.Cross(x).Normalize()
	m := Matrix4{
		x.X, x.Y, x.Z, 0,
		y.X, y.Y, y.Z, 0,
		z.X, z.Y, z.Z, 0,
		0, 0, 0, 1,
	}
	return m.Quaternion()
}

func (q Quaternion) Dot(q2 Quaternion) float64 {
	return q.X*q2.X + q.Y*q2.Y + q.Z*q2.Z + q.W*q2.W
}

func (q Quaternion) Len() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

func (q Quaternion) LenSqr() float64 {
	return q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
}

// Normalize returns the unit quaternion. A zero quaternion normalizes to identity.
func (q Quaternion) Normalize() Quaternion {
	l := q.Len()
	if l > 0 {
		return Quaternion{X: q.X / l, Y: q.Y / l, Z: q.Z / l, W: q.W / l}
	}
	return IdentityQuaternion()
}

func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

func (q Quaternion) Inverse() Quaternion {
	l := q.LenSqr()
	if l == 0 {
		return IdentityQuaternion()
	}
	return Quaternion{X: -q.X / l, Y: -q.Y / l, Z: -q.Z / l, W: q.W / l}
}

func (q Quaternion) Negate() Quaternion {
	return Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
}

func (a Quaternion) Mul(b Quaternion) Quaternion {
	return Quaternion{
		X: a.X*b.W + a.W*b.X + a.Y*b.Z - a.Z*b.Y,
		Y: a.Y*b.W + a.W*b.Y + a.Z*b.X - a.X*b.Z,
		Z: a.Z*b.W + a.W*b.Z + a.X*b.Y - a.Y*b.X,
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
	}
}

func (q Quaternion) ApplyTo(v Vector3) Vector3 {
	u := Vector3{X: q.X, Y: q.Y, Z: q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// Shortest returns the equivalent quaternion with non-negative W.
func (q Quaternion) Shortest() Quaternion {
	if q.W < 0 {
		return q.Negate()
	}
	return q
}

// Angle returns the rotation angle in [0, pi].
func (q Quaternion) Angle() float64 {
	n := q.Normalize()
	return 2 * math.Acos(Clamp(math.Abs(n.W), 0, 1))
}

// AngleTo returns the angle of the rotation between q and q2.
func (q Quaternion) AngleTo(q2 Quaternion) float64 {
	d := math.Abs(q.Normalize().Dot(q2.Normalize()))
	return 2 * math.Acos(Clamp(d, 0, 1))
}

func (q Quaternion) ToAxisAngle() (Vector3, float64) {
	n := q.Normalize().Shortest()
	s := math.Sqrt(1 - n.W*n.W)
	if s < 1e-12 {
		return Vector3{X: 1}, 0
	}
	return Vector3{X: n.X / s, Y: n.Y / s, Z: n.Z / s}, 2 * math.Acos(Clamp(n.W, -1, 1))
}

// ToRotationVector returns axis * angle of the shortest equivalent rotation.
func (q Quaternion) ToRotationVector() Vector3 {
	axis, angle := q.ToAxisAngle()
	return axis.Scale(angle)
}

func (q Quaternion) Slerp(q2 Quaternion, t float64) Quaternion {
	if t <= 0 {
		return q
	}
	if t >= 1 {
		return q2
	}
	d := q.Dot(q2)
	if d < 0 {
		q2 = q2.Negate()
		d = -d
	}
	if d > 1-1e-9 {
		return Quaternion{
			X: q.X + (q2.X-q.X)*t,
			Y: q.Y + (q2.Y-q.Y)*t,
			Z: q.Z + (q2.Z-q.Z)*t,
			W: q.W + (q2.W-q.W)*t,
		}.Normalize()
	}
	theta := math.Acos(d)
	sin := math.Sin(theta)
	s1 := math.Sin((1-t)*theta) / sin
	s2 := math.Sin(t*theta) / sin
	return Quaternion{
		X: q.X*s1 + q2.X*s2,
		Y: q.Y*s1 + q2.Y*s2,
		Z: q.Z*s1 + q2.Z*s2,
		W: q.W*s1 + q2.W*s2,
	}.Normalize()
}

// SeparateByAxis splits q into the twist around axis and the remaining swing,
// so that q == swing.Mul(twist).
func (q Quaternion) SeparateByAxis(axis Vector3) (twist, swing Quaternion) {
	a := axis.Normalize()
	p := a.Scale(Vector3{X: q.X, Y: q.Y, Z: q.Z}.Dot(a))
	twist = Quaternion{X: p.X, Y: p.Y, Z: p.Z, W: q.W}
	if twist.LenSqr() < 1e-18 {
		twist = IdentityQuaternion()
	} else {
		twist = twist.Normalize()
	}
	swing = q.Mul(twist.Conjugate()).Normalize()
	return twist, swing
}

func (q Quaternion) ToEuler(order RotationOrder) EulerAngles {
	return NewEulerFromQuaternion(q, order)
}

func (q Quaternion) ToMatrix4() Matrix4 {
	return NewRotationMatrix4FromQuaternion(q)
}

// NearEquals compares rotations, treating q and -q as equal.
func (q Quaternion) NearEquals(q2 Quaternion, eps float64) bool {
	near := func(a, b Quaternion) bool {
		return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps &&
			math.Abs(a.Z-b.Z) <= eps && math.Abs(a.W-b.W) <= eps
	}
	return near(q, q2) || near(q, q2.Negate())
}

func (q Quaternion) IsFinite() bool {
	return isFinite(q.X) && isFinite(q.Y) && isFinite(q.Z) && isFinite(q.W)
}

func (q Quaternion) ToArray() [4]float32 {
	return [4]float32{float32(q.X), float32(q.Y), float32(q.Z), float32(q.W)}
}
