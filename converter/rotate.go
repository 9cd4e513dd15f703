package converter

import (
	"context"
	"math"

	"github.com/binzume/motiontrace/config"
	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/motion"
	"github.com/binzume/motiontrace/skeleton"
	"github.com/rs/zerolog"
)

// directionQuaternion is the frame whose X axis is the direction and whose
// Y axis is perpendicular to both direction and up.
func directionQuaternion(from, to, upFrom, upTo geom.Vector3) geom.Quaternion {
	direction := to.Sub(from).Normalize()
	up := upTo.Sub(upFrom).Normalize()
	return geom.NewQuaternionFromAxes(direction, up.Cross(direction).Normalize(), geom.Vector3{})
}

func restQuaternion(sk *skeleton.Skeleton, r *config.BoneRotation) (geom.Quaternion, bool) {
	var pos [4]geom.Vector3
	for i, name := range []string{r.DirectionFrom, r.DirectionTo, r.UpFrom, r.UpTo} {
		b, ok := sk.BoneByName(name)
		if !ok {
			return geom.Quaternion{}, false
		}
		pos[i] = b.Position
	}
	return directionQuaternion(pos[0], pos[1], pos[2], pos[3]), true
}

// Rotate turns tracked positions into local bone rotations of sk. Entries
// whose bones the skeleton lacks are skipped. The center bone is keyed
// with a translation placing the root bone on its tracked position.
func Rotate(ctx context.Context, t *Tracked, sk *skeleton.Skeleton, profile *config.Profile, logger zerolog.Logger) (*motion.Motion, error) {
	m := motion.NewMotion(t.Joints.Path)
	m.ModelName = sk.Name

	type entry struct {
		*config.BoneRotation
		rest   geom.Quaternion
		invert geom.Quaternion
	}
	var entries []entry
	for _, r := range profile.Rotations {
		rest, ok := restQuaternion(sk, r)
		if !ok || !sk.Contains(r.Name) {
			logger.Debug().Str("bone", r.Name).Msg("skip rotation: bone missing in model")
			continue
		}
		entries = append(entries, entry{BoneRotation: r, rest: rest, invert: r.InvertQuaternion()})
	}

	for _, fno := range t.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rotations := map[string]geom.Quaternion{}
		for _, e := range entries {
			src := t.Joint
			if e.Landmarks {
				src = t.Landmark
				if t.Visibility[e.Visibility][fno] < profile.MinVisibility {
					continue
				}
			}
			var pos [4]geom.Vector3
			found := true
			for i, name := range []string{e.DirectionFrom, e.DirectionTo, e.UpFrom, e.UpTo} {
				if pos[i], found = src(name, fno); !found {
					break
				}
			}
			if !found {
				continue
			}

			cancel := geom.IdentityQuaternion()
			for _, name := range e.Cancels {
				if q, ok := rotations[name]; ok {
					cancel = cancel.Mul(q)
				}
			}
			q := cancel.Inverse().
				Mul(directionQuaternion(pos[0], pos[1], pos[2], pos[3])).
				Mul(e.rest.Inverse()).
				Mul(e.invert).
				Normalize()
			if !q.IsFinite() {
				continue
			}
			rotations[e.Name] = q

			f := motion.NewBoneFrame(fno)
			f.Rotation = geom.NewRotationFromQuaternion(q)
			m.AppendBoneFrame(e.Name, f)
		}

		if pos, ok := centerPosition(t, sk, profile, fno); ok {
			f := motion.NewBoneFrame(fno)
			f.Position = pos
			m.AppendBoneFrame(profile.Center, f)
		}
	}
	return m, nil
}

// centerPosition is the translation of the center bone that moves the root
// bone onto its tracked position, with the ankles of the rest pose on the
// ground.
func centerPosition(t *Tracked, sk *skeleton.Skeleton, profile *config.Profile, fno int) (geom.Vector3, bool) {
	if !sk.Contains(profile.Center) {
		return geom.Vector3{}, false
	}
	offset, ok := t.Joint(profile.Center, fno)
	if !ok {
		return geom.Vector3{}, false
	}
	root, ok := sk.BoneByName(profile.Root)
	if !ok {
		return offset, true
	}
	tracked, ok := t.Joint(profile.Root, fno)
	if !ok {
		return offset, true
	}
	return offset.Add(tracked.Sub(root.Position)).Add(geom.NewVector3(0, restGround(sk, profile), 0)), true
}

func restGround(sk *skeleton.Skeleton, profile *config.Profile) float64 {
	ground := math.Inf(1)
	for _, leg := range profile.Legs {
		if b, ok := sk.BoneByName(leg.Ankle); ok {
			ground = math.Min(ground, b.Position.Y)
		}
	}
	if math.IsInf(ground, 1) {
		return 0
	}
	return ground
}
