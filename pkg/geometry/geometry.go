package geometry

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Point is a continuous position in image coordinates: X is the column
// direction, Y the row direction with y increasing downward. Angles are
// measured from the +x axis toward +y, so a positive angle tilts a shape
// from the horizontal toward the bottom of the image.
type Point struct {
	X, Y float64
}

// RotatePoint rotates p by -phi about center using standard
// rotation-matrix algebra.
func RotatePoint(p, center Point, phi float64) Point {
	x, y := rotateXY(p.X, p.Y, center.X, center.Y, phi)
	return Point{X: x, Y: y}
}

// RotatePoints rotates every point by -phi about center. The input
// slice is not modified.
func RotatePoints(pts []Point, center Point, phi float64) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = RotatePoint(p, center, phi)
	}
	return out
}

func rotateXY(x, y, cx, cy, phi float64) (float64, float64) {
	xp := x - cx
	yp := y - cy

	s, c := math.Sincos(-phi)

	xf := xp*c - yp*s
	yf := xp*s + yp*c

	return xf + cx, yf + cy
}

// Line returns the integer pixel coordinates connecting (x0, y0) to
// (x1, y1) using Bresenham's algorithm. The walk always marches along
// the axis of greatest extent, so the result holds exactly
// max(|dx|, |dy|)+1 points with no duplicates and no gaps; the point
// set is the same when the endpoints are swapped, though the order may
// differ.
func Line(x0, y0, x1, y1 int) []image.Point {
	r0, c0 := y0, x0
	r1, c1 := y1, x1

	steep := absInt(r1-r0) > absInt(c1-c0)
	if steep {
		r0, c0 = c0, r0
		r1, c1 = c1, r1
	}
	if c0 > c1 {
		c0, c1 = c1, c0
		r0, r1 = r1, r0
	}

	dr := absInt(r1 - r0)
	dc := c1 - c0
	errAcc := dc / 2
	r := r0

	step := -1
	if r0 < r1 {
		step = 1
	}

	pts := make([]image.Point, 0, dc+1)
	for c := c0; c <= c1; c++ {
		if steep {
			pts = append(pts, image.Point{X: r, Y: c})
		} else {
			pts = append(pts, image.Point{X: c, Y: r})
		}
		errAcc -= dr
		if errAcc < 0 {
			r += step
			errAcc += dc
		}
	}
	return pts
}

// RectVertices returns the closed five-point polyline of a rectangle
// with the given center, width along the phi direction, and height
// across it.
func RectVertices(center Point, width, height, phi float64) []Point {
	rx := width / 2
	ry := height / 2

	pts := []Point{
		{X: center.X - rx, Y: center.Y - ry},
		{X: center.X - rx, Y: center.Y + ry},
		{X: center.X + rx, Y: center.Y + ry},
		{X: center.X + rx, Y: center.Y - ry},
		{X: center.X - rx, Y: center.Y - ry},
	}
	return RotatePoints(pts, center, -phi)
}

// EllipsePoints returns a closed polyline tracing the ellipse with the
// given diameters, rotated by phi about its center. When n is below 2
// the default of 200 points is used.
func EllipsePoints(center Point, dMajor, dMinor, phi float64, n int) []Point {
	if n < 2 {
		n = 200
	}
	ts := make([]float64, n)
	floats.Span(ts, 0, 2*math.Pi)

	sinp, cosp := math.Sincos(phi)
	pts := make([]Point, n)
	for i, t := range ts {
		a := dMajor / 2 * math.Cos(t)
		b := dMinor / 2 * math.Sin(t)
		pts[i] = Point{
			X: center.X + a*cosp - b*sinp,
			Y: center.Y + a*sinp + b*cosp,
		}
	}
	return pts
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
