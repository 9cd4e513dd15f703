package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurve_Evaluate(t *testing.T) {
	assert.True(t, LinearCurve.IsLinear())
	for _, v := range []float64{0, 0.25, 0.5, 0.9, 1} {
		assert.InDelta(t, v, LinearCurve.Evaluate(v), 1e-12)
	}

	easeInOut := Curve{X1: 64, Y1: 0, X2: 63, Y2: 127}
	assert.Less(t, easeInOut.Evaluate(0.2), 0.2)
	assert.Greater(t, easeInOut.Evaluate(0.8), 0.8)
	assert.InDelta(t, 0.5, easeInOut.Evaluate(0.5), 1e-6)

	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := easeInOut.Evaluate(float64(i) / 100)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

func TestNewCurve_Clamps(t *testing.T) {
	c := NewCurve(-0.5, 0.5, 1.5, 1)
	assert.Equal(t, Curve{X1: 0, Y1: 64, X2: 127, Y2: 127}, c)
}

func TestBoneCurves_Bytes(t *testing.T) {
	c := BoneCurves{
		TranslateX: Curve{1, 2, 3, 4},
		TranslateY: Curve{5, 6, 7, 8},
		TranslateZ: Curve{9, 10, 11, 12},
		Rotate:     Curve{13, 14, 15, 16},
	}
	b := c.Bytes()

	assert.Equal(t, []byte{1, 5, 9, 13, 2, 6, 10, 14, 3, 7, 11, 15, 4, 8, 12, 16}, b[:16])
	assert.Equal(t, append(append([]byte{}, b[1:16]...), 1), b[16:32])
	assert.Equal(t, append(append([]byte{}, b[2:16]...), 1, 0), b[32:48])
	assert.Equal(t, append(append([]byte{}, b[3:16]...), 1, 0, 0), b[48:64])

	assert.Equal(t, c, NewBoneCurvesFromBytes(b))
}

func TestCameraCurves_Bytes(t *testing.T) {
	c := NewCameraCurves()
	c.Distance = Curve{X1: 10, Y1: 20, X2: 30, Y2: 40}
	b := c.Bytes()

	assert.Equal(t, []byte{10, 30, 20, 40}, b[16:20])
	assert.Equal(t, c, NewCameraCurvesFromBytes(b))
}
