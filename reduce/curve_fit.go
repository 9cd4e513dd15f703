package reduce

import (
	"math"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/motion"
	"gonum.org/v1/gonum/mat"
)

const (
	// ridge pulls the control points toward the linear curve so the least
	// squares system keeps full rank on short segments.
	ridge          = 1e-3
	reparamPasses  = 4
	flatSegmentEps = 1e-9
)

// FitCurve fits the easing curve that best reproduces segment between its
// first and last value. Samples are assumed evenly spaced in time.
func FitCurve(segment []float64) motion.Curve {
	n := len(segment)
	if n <= 2 {
		return motion.LinearCurve
	}
	v0, v1 := segment[0], segment[n-1]
	if math.Abs(v1-v0) < flatSegmentEps {
		return motion.LinearCurve
	}
	ys := make([]float64, n)
	for i, v := range segment {
		ys[i] = (v - v0) / (v1 - v0)
	}
	return fitNormalized(ys)
}

// FitRotationCurve fits the curve of a rotation segment using the slerp
// factor of each sample between the end rotations.
func FitRotationCurve(quats []geom.Quaternion) motion.Curve {
	n := len(quats)
	if n <= 2 {
		return motion.LinearCurve
	}
	q0, q1 := quats[0], quats[n-1]
	total := q0.AngleTo(q1)
	if total < flatSegmentEps {
		return motion.LinearCurve
	}
	ts := make([]float64, n)
	for i, q := range quats {
		ts[i] = geom.Clamp(q0.AngleTo(q)/total, 0, 1)
	}
	ts[0], ts[n-1] = 0, 1
	return fitNormalized(ts)
}

// fitNormalized fits a Bezier through (i/(n-1), ys[i]) from (0,0) to (1,1).
func fitNormalized(ys []float64) motion.Curve {
	n := len(ys)
	xs := make([]float64, n)
	params := make([]float64, n)
	for i := range ys {
		xs[i] = float64(i) / float64(n-1)
		params[i] = xs[i]
	}

	x1, x2 := 1.0/3, 2.0/3
	y1, y2 := 1.0/3, 2.0/3
	for pass := 0; pass < reparamPasses; pass++ {
		var ok bool
		if x1, x2, ok = solveControl(params, xs, 1.0/3, 2.0/3); !ok {
			return motion.LinearCurve
		}
		if y1, y2, ok = solveControl(params, ys, 1.0/3, 2.0/3); !ok {
			return motion.LinearCurve
		}
		x1, x2 = geom.Clamp(x1, 0, 1), geom.Clamp(x2, 0, 1)
		reparameterize(params, xs, x1, x2)
	}

	c := motion.NewCurve(x1, y1, x2, y2)
	if c.IsLinear() {
		return motion.LinearCurve
	}
	return c
}

// solveControl finds p1, p2 minimizing |B(t_i) - v_i| in the least squares
// sense for one coordinate, with a ridge toward (l1, l2).
func solveControl(params, values []float64, l1, l2 float64) (float64, float64, bool) {
	n := len(params)
	a := mat.NewDense(n+2, 2, nil)
	b := mat.NewDense(n+2, 1, nil)
	for i, t := range params {
		s := 1 - t
		a.Set(i, 0, 3*s*s*t)
		a.Set(i, 1, 3*s*t*t)
		b.Set(i, 0, values[i]-t*t*t)
	}
	a.Set(n, 0, ridge)
	b.Set(n, 0, ridge*l1)
	a.Set(n+1, 1, ridge)
	b.Set(n+1, 0, ridge*l2)

	var x mat.Dense
	if err := x.Solve(a, b); err != nil {
		return 0, 0, false
	}
	p1, p2 := x.At(0, 0), x.At(1, 0)
	if math.IsNaN(p1) || math.IsNaN(p2) {
		return 0, 0, false
	}
	return p1, p2, true
}

// reparameterize moves each t toward x(t) = xs[i] with one Newton step.
func reparameterize(params, xs []float64, x1, x2 float64) {
	for i := 1; i < len(params)-1; i++ {
		t := params[i]
		s := 1 - t
		x := 3*s*s*t*x1 + 3*s*t*t*x2 + t*t*t
		dx := 3*s*s*x1 + 6*s*t*(x2-x1) + 3*t*t*(1-x2)
		if math.Abs(dx) < 1e-12 {
			continue
		}
		params[i] = geom.Clamp(t-(x-xs[i])/dx, 0, 1)
	}
}
