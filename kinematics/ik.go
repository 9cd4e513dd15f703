package kinematics

import (
	"math"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/skeleton"
	"github.com/rs/zerolog"
)

const minIkLength = 1e-9

// straightBend is the largest first step taken when the effector and the
// target lie on one ray from a link.
const straightBend = 0.1

// solveIk runs CCD for every IK bone in parent-first order. The target of
// each chain is the evaluated position of the IK bone itself.
func (p *pose) solveIk(tolerance float64, logger zerolog.Logger) []Shortfall {
	var shortfalls []Shortfall
	for _, b := range p.order {
		if b.Ik == nil || len(b.Ik.Links) == 0 {
			continue
		}
		if d, ok := p.solveChain(b, tolerance); !ok {
			logger.Debug().Int("frame", p.frame).Str("ik", b.Name).Float64("distance", d).Msg("IK did not converge")
			shortfalls = append(shortfalls, Shortfall{Frame: p.frame, IkBone: b.Name, Distance: d})
		}
		p.update()
	}
	return shortfalls
}

// solveChain moves the links of b.Ik and leaves the best pose in p. It
// reports the remaining distance and whether it is within tolerance.
func (p *pose) solveChain(b *skeleton.Bone, tolerance float64) (float64, bool) {
	ik := b.Ik
	target := p.globalPos[b.Index]
	effector := ik.BoneIndex

	best := make([]geom.Quaternion, len(ik.Links))
	save := func() {
		for i, l := range ik.Links {
			best[i] = p.localRot[l.BoneIndex]
		}
	}
	save()
	bestDist := p.globalPos[effector].Distance(target)
	if bestDist < tolerance {
		return bestDist, true
	}

	loops := ik.LoopCount
	if loops <= 0 {
		loops = 1
	}
	for iter := 0; iter < loops; iter++ {
		for _, l := range ik.Links {
			link := p.sk.Bones[l.BoneIndex]
			p.rotateLink(link, l, effector, target, ik.UnitRotation)
			p.update()
		}
		d := p.globalPos[effector].Distance(target)
		if d < bestDist {
			bestDist = d
			save()
		}
		if bestDist < tolerance {
			break
		}
	}

	for i, l := range ik.Links {
		p.localRot[l.BoneIndex] = best[i]
	}
	p.update()
	return bestDist, bestDist < tolerance
}

// rotateLink turns one link so the effector swings toward target.
func (p *pose) rotateLink(link *skeleton.Bone, l *skeleton.IkLink, effector int, target geom.Vector3, unit float64) {
	origin := p.globalPos[link.Index]
	toEffector := p.globalPos[effector].Sub(origin)
	toTarget := target.Sub(origin)
	if toEffector.Len() < minIkLength || toTarget.Len() < minIkLength {
		return
	}
	effectorLen, targetLen := toEffector.Len(), toTarget.Len()
	toEffector, toTarget = toEffector.Normalize(), toTarget.Normalize()
	rot := p.globalRot[link.Index]

	var localAxis geom.Vector3
	angle := math.Acos(geom.Clamp(toEffector.Dot(toTarget), -1, 1))
	if axis := toEffector.Cross(toTarget); axis.Len() >= minIkLength {
		// express the global axis in the link's own frame
		localAxis = rot.Inverse().ApplyTo(axis).Normalize()
	} else {
		if angle < math.Pi/2 {
			if math.Abs(effectorLen-targetLen) < minIkLength {
				return
			}
			// a straight chain only shortens once some link bends
			angle = straightBend
		}
		localAxis = bendAxis(l, link, rot.Inverse().ApplyTo(toEffector))
	}
	if unit > 0 && angle > unit {
		angle = unit
	}

	q := p.localRot[link.Index].Mul(geom.NewQuaternionFromAxisAngle(localAxis, angle)).Normalize()
	p.localRot[link.Index] = clampLink(q, l, link)
}

// bendAxis picks a rotation axis perpendicular to dir, both in the link's
// frame. A link limited to one axis bends about that axis.
func bendAxis(l *skeleton.IkLink, link *skeleton.Bone, dir geom.Vector3) geom.Vector3 {
	if axis, ok := l.LimitAxis(); ok {
		if !l.AngleLimit {
			axis = geom.NewQuaternionFromAxes(link.LocalAxes()).ApplyTo(axis)
		}
		return axis.Normalize()
	}
	axis := dir.Cross(geom.NewVector3(1, 0, 0))
	if axis.Len() < 1e-6 {
		axis = dir.Cross(geom.NewVector3(0, 0, 1))
	}
	return axis.Normalize()
}
