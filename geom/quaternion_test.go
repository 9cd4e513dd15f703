package geom

import (
	"math"
	"testing"
)

func TestQuaternion(t *testing.T) {
	const eps = 0.000001

	{
		q := NewEuler(0, 0, 0, RotationOrderXYZ).ToQuaternion()
		v1 := NewVector3(1, 2, 3)
		v2 := q.ApplyTo(v1)
		if v2.Sub(v1).Len() > eps {
			t.Error("v1 != v2: ", v1, v2)
		}
	}

	{
		q := NewEuler(2*math.Pi, 0, 0, RotationOrderXYZ).ToQuaternion()
		v1 := NewVector3(1, 2, 3)
		v2 := q.ApplyTo(v1)
		if v2.Sub(v1).Len() > eps {
			t.Error("v1 != v2: ", v1, v2)
		}
	}

	{
		q := NewEuler(math.Pi, 0, 0, RotationOrderXYZ).ToQuaternion()
		q = q.Mul(q)
		v1 := NewVector3(1, 2, 3)
		v2 := q.ApplyTo(v1)
		if v2.Sub(v1).Len() > eps {
			t.Error("v1 != v2: ", v1, v2)
		}
	}

	{
		q := NewEuler(1, 2, 3, RotationOrderXYZ).ToQuaternion()
		q = q.Mul(q.Inverse())
		v1 := NewVector3(1, 2, 3)
		v2 := q.ApplyTo(v1)
		if v2.Sub(v1).Len() > eps {
			t.Error("v1 != v2: ", v1, v2)
		}
	}

	{
		// 90 degrees around Z turns +X into +Y.
		q := NewQuaternionFromAxisAngle(NewVector3(0, 0, 1), math.Pi/2)
		v := q.ApplyTo(NewVector3(1, 0, 0))
		if !v.NearEquals(NewVector3(0, 1, 0), eps) {
			t.Error("ApplyTo: ", v)
		}
		m := q.ToMatrix4().ApplyTo(NewVector3(1, 0, 0))
		if !m.NearEquals(v, eps) {
			t.Error("matrix and quaternion disagree: ", m, v)
		}
	}
}

func TestQuaternionMulOrder(t *testing.T) {
	const eps = 0.000001
	a := NewQuaternionFromAxisAngle(NewVector3(0, 0, 1), math.Pi/2)
	b := NewQuaternionFromAxisAngle(NewVector3(1, 0, 0), math.Pi/2)
	v := NewVector3(0, 1, 0)

	got := a.Mul(b).ApplyTo(v)
	want := a.ApplyTo(b.ApplyTo(v))
	if !got.NearEquals(want, eps) {
		t.Error("a.Mul(b) must apply b first: ", got, want)
	}
}

func TestQuaternionFromTo(t *testing.T) {
	const eps = 0.000001
	for _, c := range []struct{ from, to Vector3 }{
		{NewVector3(1, 0, 0), NewVector3(0, 1, 0)},
		{NewVector3(1, 2, 3), NewVector3(-3, 0.5, 2)},
		{NewVector3(0, 1, 0), NewVector3(0, -1, 0)},
		{NewVector3(0, 0, 1), NewVector3(0, 0, 2)},
	} {
		q := NewQuaternionFromTo(c.from, c.to)
		got := q.ApplyTo(c.from.Normalize())
		if !got.NearEquals(c.to.Normalize(), eps) {
			t.Error("FromTo: ", c.from, c.to, got)
		}
		if math.Abs(q.Len()-1) > eps {
			t.Error("Quaternion.Len() != 1", q)
		}
	}
}

func TestQuaternionFromAxes(t *testing.T) {
	const eps = 0.000001
	q0 := NewEuler(0.3, -0.7, 1.1, RotationOrderYXZ).ToQuaternion()
	x := q0.ApplyTo(NewVector3(1, 0, 0))
	y := q0.ApplyTo(NewVector3(0, 1, 0))
	z := q0.ApplyTo(NewVector3(0, 0, 1))

	q := NewQuaternionFromAxes(x, y, z)
	if !q.NearEquals(q0, eps) {
		t.Error("FromAxes: ", q, q0)
	}
}

func TestSlerp(t *testing.T) {
	const eps = 0.000001
	q1 := IdentityQuaternion()
	q2 := NewQuaternionFromAxisAngle(NewVector3(0, 1, 0), math.Pi/2)

	if !q1.Slerp(q2, 0).NearEquals(q1, eps) || !q1.Slerp(q2, 1).NearEquals(q2, eps) {
		t.Error("Slerp endpoints")
	}

	mid := q1.Slerp(q2, 0.5)
	if math.Abs(mid.Angle()-math.Pi/4) > eps {
		t.Error("Slerp(0.5) angle: ", mid.Angle())
	}
	if math.Abs(mid.Len()-1) > eps {
		t.Error("Quaternion.Len() != 1", mid)
	}

	// opposite hemisphere takes the short path
	far := q1.Slerp(q2.Negate(), 0.5)
	if math.Abs(far.Angle()-math.Pi/4) > eps {
		t.Error("Slerp shortest path: ", far.Angle())
	}
}

func TestSeparateByAxis(t *testing.T) {
	const eps = 0.000001
	axis := NewVector3(1, 0, 0)
	q := NewQuaternionFromAxisAngle(NewVector3(0, 0, 1), 0.4).Mul(NewQuaternionFromAxisAngle(axis, 0.9))

	twist, swing := q.SeparateByAxis(axis)
	if !swing.Mul(twist).NearEquals(q, eps) {
		t.Error("swing * twist != q", swing, twist)
	}
	taxis, tangle := twist.ToAxisAngle()
	if !taxis.NearEquals(axis, eps) || math.Abs(tangle-0.9) > eps {
		t.Error("twist: ", taxis, tangle)
	}
	if math.Abs(swing.Angle()-0.4) > eps {
		t.Error("swing: ", swing.Angle())
	}
}

func TestRotationVector(t *testing.T) {
	const eps = 0.000001
	v := NewVector3(0.1, -0.2, 0.3)
	q := NewQuaternionFromRotationVector(v)
	if !q.ToRotationVector().NearEquals(v, eps) {
		t.Error("rotation vector: ", q.ToRotationVector(), v)
	}
	if !IdentityQuaternion().ToRotationVector().IsZero() {
		t.Error("identity rotation vector must be zero")
	}
}
