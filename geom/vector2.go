package geom

import "math"

type Vector2 struct {
	X float64
	Y float64
}

func NewVector2(x, y float64) Vector2 {
	return Vector2{X: x, Y: y}
}

func (v Vector2) Add(v2 Vector2) Vector2 {
	return Vector2{X: v.X + v2.X, Y: v.Y + v2.Y}
}

func (v Vector2) Sub(v2 Vector2) Vector2 {
	return Vector2{X: v.X - v2.X, Y: v.Y - v2.Y}
}

func (v Vector2) Scale(s float64) Vector2 {
	return Vector2{X: v.X * s, Y: v.Y * s}
}

func (v Vector2) Dot(v2 Vector2) float64 {
	return v.X*v2.X + v.Y*v2.Y
}

func (v Vector2) Cross(v2 Vector2) float64 {
	return v.X*v2.Y - v.Y*v2.X
}

func (v Vector2) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

func (v Vector2) LenSqr() float64 {
	return v.X*v.X + v.Y*v.Y
}

func (v Vector2) Normalize() Vector2 {
	l := v.Len()
	if l > 0 {
		return Vector2{X: v.X / l, Y: v.Y / l}
	}
	return Vector2{X: 1}
}

// Clamp limits both components to [min, max].
func (v Vector2) Clamp(min, max float64) Vector2 {
	return Vector2{X: Clamp(v.X, min, max), Y: Clamp(v.Y, min, max)}
}
