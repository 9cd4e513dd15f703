package geom

// Rotation keeps a quaternion together with its Euler angles in radians and
// degrees (RotationOrderMMD). The zero value is the identity rotation.
type Rotation struct {
	quaternion Quaternion
	radians    Vector3
	degrees    Vector3
}

func NewRotationFromQuaternion(q Quaternion) Rotation {
	var r Rotation
	r.SetQuaternion(q)
	return r
}

func NewRotationFromRadians(v Vector3) Rotation {
	var r Rotation
	r.SetRadians(v)
	return r
}

func NewRotationFromDegrees(v Vector3) Rotation {
	var r Rotation
	r.SetDegrees(v)
	return r
}

func (r *Rotation) SetQuaternion(q Quaternion) {
	r.quaternion = q.Normalize()
	r.radians = NewEulerFromQuaternion(r.quaternion, RotationOrderMMD).Vector3
	r.degrees = Vector3{X: RadToDeg(r.radians.X), Y: RadToDeg(r.radians.Y), Z: RadToDeg(r.radians.Z)}
}

func (r *Rotation) SetRadians(v Vector3) {
	r.radians = v
	r.degrees = Vector3{X: RadToDeg(v.X), Y: RadToDeg(v.Y), Z: RadToDeg(v.Z)}
	r.quaternion = EulerAngles{Vector3: v, Order: RotationOrderMMD}.ToQuaternion().Normalize()
}

func (r *Rotation) SetDegrees(v Vector3) {
	r.SetRadians(Vector3{X: DegToRad(v.X), Y: DegToRad(v.Y), Z: DegToRad(v.Z)})
	r.degrees = v
}

func (r Rotation) Quaternion() Quaternion {
	if r.quaternion == (Quaternion{}) {
		return IdentityQuaternion()
	}
	return r.quaternion
}

func (r Rotation) Radians() Vector3 {
	return r.radians
}

func (r Rotation) Degrees() Vector3 {
	return r.degrees
}
