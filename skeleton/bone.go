package skeleton

import (
	"math"

	"github.com/binzume/motiontrace/geom"
)

// Bone is one entry of the skeleton arena. Index fields refer to positions
// in Skeleton.Bones; -1 means unbound.
type Bone struct {
	Index        int
	Name         string
	EnglishName  string
	Position     geom.Vector3
	ParentIndex  int
	TailIndex    int
	TailPosition geom.Vector3 // offset from Position, used when TailIndex < 0
	Flags        uint16
	Layer        int
	Ik           *Ik

	// LocalAxisX and LocalAxisZ are the explicit local frame, zero when unset.
	LocalAxisX geom.Vector3
	LocalAxisZ geom.Vector3

	// set by New
	TwistIndex             int
	ParentRelativePosition geom.Vector3
	LocalAxis              geom.Vector3
}

// Ik describes an IK bone: drive the effector bone at BoneIndex toward the
// IK bone by rotating Links, closest to the effector first.
type Ik struct {
	BoneIndex    int
	LoopCount    int
	UnitRotation float64 // max radians per link step
	Links        []*IkLink
}

// IkLink is a bone of an IK chain with optional Euler limits in radians.
// Global limits apply to the rotation expressed in the parent frame, local
// ones in the bone's own axis frame.
type IkLink struct {
	BoneIndex          int
	AngleLimit         bool
	MinAngleLimit      geom.Vector3
	MaxAngleLimit      geom.Vector3
	LocalAngleLimit    bool
	LocalMinAngleLimit geom.Vector3
	LocalMaxAngleLimit geom.Vector3
}

func axisRange(axis geom.Vector3, minDeg, maxDeg float64) (lo, hi geom.Vector3) {
	axis = axis.Normalize()
	a := axis.Scale(geom.DegToRad(minDeg))
	b := axis.Scale(geom.DegToRad(maxDeg))
	lo = geom.NewVector3(math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z))
	hi = geom.NewVector3(math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z))
	return lo, hi
}

// RestrictToAxis limits the link to rotate about one axis of its parent
// frame within [minDeg, maxDeg]. Other limits are cleared.
func (l *IkLink) RestrictToAxis(axis geom.Vector3, minDeg, maxDeg float64) {
	l.AngleLimit = true
	l.MinAngleLimit, l.MaxAngleLimit = axisRange(axis, minDeg, maxDeg)
	l.LocalAngleLimit = false
	l.LocalMinAngleLimit, l.LocalMaxAngleLimit = geom.Vector3{}, geom.Vector3{}
}

// RestrictToLocalAxis is RestrictToAxis in the bone's local axis frame.
func (l *IkLink) RestrictToLocalAxis(axis geom.Vector3, minDeg, maxDeg float64) {
	l.LocalAngleLimit = true
	l.LocalMinAngleLimit, l.LocalMaxAngleLimit = axisRange(axis, minDeg, maxDeg)
	l.AngleLimit = false
	l.MinAngleLimit, l.MaxAngleLimit = geom.Vector3{}, geom.Vector3{}
}

// LimitAxis returns the single axis the active limit allows, if any.
func (l *IkLink) LimitAxis() (geom.Vector3, bool) {
	switch {
	case l.AngleLimit:
		return singleAxis(l.MinAngleLimit, l.MaxAngleLimit)
	case l.LocalAngleLimit:
		return singleAxis(l.LocalMinAngleLimit, l.LocalMaxAngleLimit)
	}
	return geom.Vector3{}, false
}

func singleAxis(min, max geom.Vector3) (geom.Vector3, bool) {
	var axis geom.Vector3
	n := 0
	if min.X != 0 || max.X != 0 {
		axis.X, n = 1, n+1
	}
	if min.Y != 0 || max.Y != 0 {
		axis.Y, n = 1, n+1
	}
	if min.Z != 0 || max.Z != 0 {
		axis.Z, n = 1, n+1
	}
	return axis, n == 1
}

func (b *Bone) IsIk() bool {
	return b.Ik != nil
}

func (b *Bone) HasParent() bool {
	return b.ParentIndex >= 0
}

// LocalAxes returns the orthonormal frame used for local limits. X follows
// the bone direction unless set explicitly.
func (b *Bone) LocalAxes() (x, y, z geom.Vector3) {
	x = b.LocalAxis
	if !b.LocalAxisX.IsZero() {
		x = b.LocalAxisX.Normalize()
	}
	z = b.LocalAxisZ
	if z.IsZero() {
		up := geom.NewVector3(0, 1, 0)
		if math.Abs(x.Dot(up)) > 0.99 {
			up = geom.NewVector3(0, 0, 1)
		}
		z = x.Cross(up)
	}
	y = z.Cross(x).Normalize()
	z = x.Cross(y).Normalize()
	return x, y, z
}
