package geom

import (
	"testing"
)

func TestMatrix4(t *testing.T) {
	const eps = 0.000001

	pos := NewVector3(1, 2, 3)
	rot := NewEuler(DegToRad(10), DegToRad(20), DegToRad(30), RotationOrderZXY).ToQuaternion()

	mat := NewTRMatrix4(pos, rot)
	if !mat.Translation().NearEquals(pos, eps) {
		t.Error("pos: ", mat.Translation(), pos)
	}
	if !mat.Quaternion().NearEquals(rot, eps) {
		t.Error("rot: ", mat.Quaternion(), rot)
	}

	id := mat.Mul(mat.Inverse())
	for i, v := range NewMatrix4() {
		if d := id[i] - v; d > eps || d < -eps {
			t.Error("m * m^-1 != I: ", id)
			break
		}
	}

	v := NewVector3(-4, 5, 0.5)
	want := rot.ApplyTo(v).Add(pos)
	if got := mat.ApplyTo(v); !got.NearEquals(want, eps) {
		t.Error("ApplyTo: ", got, want)
	}

	chained := NewTranslateMatrix4(1, 0, 0).Mul(NewScaleMatrix4(2, 2, 2)).ApplyTo(NewVector3(1, 1, 1))
	if !chained.NearEquals(NewVector3(3, 2, 2), eps) {
		t.Error("Mul order: ", chained)
	}

	if d := NewScaleMatrix4(2, 3, 4).Det(); d != 24 {
		t.Error("Det: ", d)
	}
}
