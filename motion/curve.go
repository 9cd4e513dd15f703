package motion

import "math"

// CurveMax is the largest control point coordinate the VMD format can store.
const CurveMax = 127

// Curve is a cubic Bezier easing curve from (0,0) to (127,127) with the two
// free control points (X1,Y1) and (X2,Y2).
type Curve struct {
	X1, Y1 uint8
	X2, Y2 uint8
}

// LinearCurve is the default curve written by MMD.
var LinearCurve = Curve{X1: 20, Y1: 20, X2: 107, Y2: 107}

func NewCurve(x1, y1, x2, y2 float64) Curve {
	return Curve{X1: quantize(x1), Y1: quantize(y1), X2: quantize(x2), Y2: quantize(y2)}
}

// quantize maps [0,1] to [0,127], clamping out of range values.
func quantize(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v * CurveMax)
	if r < 0 {
		return 0
	}
	if r > CurveMax {
		return CurveMax
	}
	return uint8(r)
}

func (c Curve) IsLinear() bool {
	return c.X1 == c.Y1 && c.X2 == c.Y2
}

// Evaluate returns the eased factor for the normalized time t.
func (c Curve) Evaluate(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	if c.IsLinear() {
		return t
	}
	x1, y1 := float64(c.X1)/CurveMax, float64(c.Y1)/CurveMax
	x2, y2 := float64(c.X2)/CurveMax, float64(c.Y2)/CurveMax

	// x(s) is monotonic for control points inside the unit square
	lo, hi := 0.0, 1.0
	s := t
	for i := 0; i < 40; i++ {
		x := bezier(s, x1, x2)
		if math.Abs(x-t) < 1e-9 {
			break
		}
		if x < t {
			lo = s
		} else {
			hi = s
		}
		s = (lo + hi) / 2
	}
	return bezier(s, y1, y2)
}

func bezier(s, p1, p2 float64) float64 {
	is := 1 - s
	return 3*is*is*s*p1 + 3*is*s*s*p2 + s*s*s
}

// BoneCurves holds the curves of a bone keyframe. They govern the segment
// ending at the keyframe that carries them.
type BoneCurves struct {
	TranslateX Curve
	TranslateY Curve
	TranslateZ Curve
	Rotate     Curve
}

func NewBoneCurves() BoneCurves {
	return BoneCurves{TranslateX: LinearCurve, TranslateY: LinearCurve, TranslateZ: LinearCurve, Rotate: LinearCurve}
}

// Bytes serializes the curves into the 64 byte VMD layout: one row of 16
// bytes followed by three copies shifted left by one byte each.
func (c BoneCurves) Bytes() [64]byte {
	row := [16]byte{
		c.TranslateX.X1, c.TranslateY.X1, c.TranslateZ.X1, c.Rotate.X1,
		c.TranslateX.Y1, c.TranslateY.Y1, c.TranslateZ.Y1, c.Rotate.Y1,
		c.TranslateX.X2, c.TranslateY.X2, c.TranslateZ.X2, c.Rotate.X2,
		c.TranslateX.Y2, c.TranslateY.Y2, c.TranslateZ.Y2, c.Rotate.Y2,
	}
	var b [64]byte
	tail := [3]byte{1, 0, 0}
	for r := 0; r < 4; r++ {
		copy(b[r*16:], row[r:])
		copy(b[r*16+16-r:r*16+16], tail[:r])
	}
	return b
}

func NewBoneCurvesFromBytes(b [64]byte) BoneCurves {
	return BoneCurves{
		TranslateX: Curve{X1: b[0], Y1: b[4], X2: b[8], Y2: b[12]},
		TranslateY: Curve{X1: b[1], Y1: b[5], X2: b[9], Y2: b[13]},
		TranslateZ: Curve{X1: b[2], Y1: b[6], X2: b[10], Y2: b[14]},
		Rotate:     Curve{X1: b[3], Y1: b[7], X2: b[11], Y2: b[15]},
	}
}

type CameraCurves struct {
	X         Curve
	Y         Curve
	Z         Curve
	Rotate    Curve
	Distance  Curve
	ViewAngle Curve
}

func NewCameraCurves() CameraCurves {
	return CameraCurves{X: LinearCurve, Y: LinearCurve, Z: LinearCurve, Rotate: LinearCurve, Distance: LinearCurve, ViewAngle: LinearCurve}
}

// Bytes serializes each channel as x1, x2, y1, y2.
func (c CameraCurves) Bytes() [24]byte {
	var b [24]byte
	for i, cv := range []Curve{c.X, c.Y, c.Z, c.Rotate, c.Distance, c.ViewAngle} {
		b[i*4], b[i*4+1], b[i*4+2], b[i*4+3] = cv.X1, cv.X2, cv.Y1, cv.Y2
	}
	return b
}

func NewCameraCurvesFromBytes(b [24]byte) CameraCurves {
	ch := func(i int) Curve {
		return Curve{X1: b[i*4], X2: b[i*4+1], Y1: b[i*4+2], Y2: b[i*4+3]}
	}
	return CameraCurves{X: ch(0), Y: ch(1), Z: ch(2), Rotate: ch(3), Distance: ch(4), ViewAngle: ch(5)}
}
