package kinematics

import (
	"math"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/motion"
	"github.com/binzume/motiontrace/skeleton"
)

// pose holds the local and global state of every bone at one frame.
type pose struct {
	sk    *skeleton.Skeleton
	frame int
	order []*skeleton.Bone

	localPos []geom.Vector3
	localRot []geom.Quaternion

	delta     []geom.Vector3
	globalPos []geom.Vector3
	globalRot []geom.Quaternion
}

func newPose(sk *skeleton.Skeleton, m *motion.Motion, frame int, separateTwist bool) *pose {
	n := sk.Len()
	p := &pose{
		sk:        sk,
		frame:     frame,
		order:     sk.Ordered(),
		localPos:  make([]geom.Vector3, n),
		localRot:  make([]geom.Quaternion, n),
		delta:     make([]geom.Vector3, n),
		globalPos: make([]geom.Vector3, n),
		globalRot: make([]geom.Quaternion, n),
	}
	for i, b := range sk.Bones {
		p.localRot[i] = geom.IdentityQuaternion()
		if t, ok := m.BoneFrames.Lookup(b.Name); ok {
			f := t.Get(frame)
			p.localPos[i] = f.Position
			p.localRot[i] = f.Rotation.Quaternion().Normalize()
		}
	}
	if separateTwist {
		p.separateTwist()
	}
	p.update()
	return p
}

// separateTwist hands the twist around each bone's axis to its twist bone.
// The twist bone sits on that axis, so global results are unchanged.
func (p *pose) separateTwist() {
	for _, b := range p.order {
		if b.TwistIndex < 0 || b.LocalAxis.IsZero() {
			continue
		}
		twist, swing := p.localRot[b.Index].SeparateByAxis(b.LocalAxis)
		p.localRot[b.Index] = swing
		p.localRot[b.TwistIndex] = twist.Mul(p.localRot[b.TwistIndex]).Normalize()
	}
}

// update recomputes global transforms in parent-first order. Positions are
// kept as the rest position plus the accumulated displacement so bones that
// do not move stay exactly at rest.
func (p *pose) update() {
	for _, b := range p.order {
		i := b.Index
		if b.ParentIndex < 0 {
			p.delta[i] = p.localPos[i]
			p.globalRot[i] = p.localRot[i]
		} else {
			parent := b.ParentIndex
			rel := b.ParentRelativePosition
			moved := p.globalRot[parent].ApplyTo(rel.Add(p.localPos[i]))
			p.delta[i] = p.delta[parent].Add(moved.Sub(rel))
			p.globalRot[i] = p.globalRot[parent].Mul(p.localRot[i]).Normalize()
		}
		p.globalPos[i] = b.Position.Add(p.delta[i])
	}
}

func (p *pose) transforms(bones []*skeleton.Bone) []*Transform {
	r := make([]*Transform, 0, len(bones))
	for _, b := range bones {
		i := b.Index
		r = append(r, &Transform{
			BoneName:       b.Name,
			BoneIndex:      i,
			Frame:          p.frame,
			LocalPosition:  p.localPos[i],
			LocalRotation:  p.localRot[i],
			GlobalMatrix:   geom.NewTRMatrix4(p.globalPos[i], p.globalRot[i]),
			GlobalPosition: p.globalPos[i],
			GlobalRotation: p.globalRot[i],
		})
	}
	return r
}

// clampLink applies the link limits to a local rotation.
func clampLink(rot geom.Quaternion, l *skeleton.IkLink, b *skeleton.Bone) geom.Quaternion {
	if !l.AngleLimit && !l.LocalAngleLimit {
		return rot
	}
	frame := geom.IdentityQuaternion()
	lo, hi := l.MinAngleLimit, l.MaxAngleLimit
	if !l.AngleLimit {
		frame = geom.NewQuaternionFromAxes(b.LocalAxes())
		lo, hi = l.LocalMinAngleLimit, l.LocalMaxAngleLimit
	}
	q := frame.Inverse().Mul(rot).Mul(frame)

	if axis, ok := l.LimitAxis(); ok {
		twist, _ := q.SeparateByAxis(axis)
		angle := 2 * math.Atan2(geom.NewVector3(twist.X, twist.Y, twist.Z).Dot(axis), twist.W)
		if angle > math.Pi {
			angle -= 2 * math.Pi
		} else if angle < -math.Pi {
			angle += 2 * math.Pi
		}
		angle = geom.Clamp(angle, axis.Dot(lo), axis.Dot(hi))
		q = geom.NewQuaternionFromAxisAngle(axis, angle)
	} else {
		e := q.ToEuler(geom.RotationOrderMMD)
		e.X = geom.Clamp(e.X, lo.X, hi.X)
		e.Y = geom.Clamp(e.Y, lo.Y, hi.Y)
		e.Z = geom.Clamp(e.Z, lo.Z, hi.Z)
		q = e.ToQuaternion()
	}
	return frame.Mul(q).Mul(frame.Inverse()).Normalize()
}
