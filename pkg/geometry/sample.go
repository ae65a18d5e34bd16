package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"beamwidth/pkg/frame"
)

// LineSamples holds the pixels collected along a discrete line:
// parallel slices of pixel coordinates, image values, and the signed
// distance of each pixel from the line midpoint. Distances are positive
// toward the requested end point.
type LineSamples struct {
	X     []float64
	Y     []float64
	Value []float64
	Dist  []float64
}

// Len returns the number of collected samples.
func (s LineSamples) Len() int {
	return len(s.Value)
}

// SampleAlongLine collects image values along the line from p0 to p1.
// The continuous endpoints are rounded to the nearest discrete pixel
// line while distances are scaled by the true sub-pixel length of the
// requested segment. Pixels outside the frame and masked pixels are
// dropped, so a line partly or wholly outside the frame degrades to a
// short or empty result instead of failing.
func SampleAlongLine(f *frame.Frame, p0, p1 Point) LineSamples {
	rows, cols := f.Rows(), f.Cols()

	x0 := int(math.Round(p0.X))
	y0 := int(math.Round(p0.Y))
	x1 := int(math.Round(p1.X))
	y1 := int(math.Round(p1.Y))

	pts := Line(x0, y0, x1, y1)
	n := len(pts)

	total := math.Hypot(p1.X-p0.X, p1.Y-p0.Y)
	dist := make([]float64, n)
	if total > 0 && n > 1 {
		floats.Span(dist, -total/2, total/2)
	}
	// The walk may have been normalized to march from p1 toward p0.
	if n > 0 && (pts[0].X != x0 || pts[0].Y != y0) {
		floats.Scale(-1, dist)
	}

	var out LineSamples
	for i, p := range pts {
		if p.X < 0 || p.X >= cols || p.Y < 0 || p.Y >= rows {
			continue
		}
		if f.MaskedAt(p.X, p.Y) {
			continue
		}
		out.X = append(out.X, float64(p.X))
		out.Y = append(out.Y, float64(p.Y))
		out.Value = append(out.Value, f.At(p.X, p.Y))
		out.Dist = append(out.Dist, dist[i])
	}
	return out
}

// RotateFrame returns a copy of the frame rotated by phi about center,
// re-cropped to the original shape so that center stays at the same
// pixel location. Content rotated in from outside the frame is
// zero-filled; values are resampled bilinearly. Masked source pixels
// contribute nothing and mark their nearest destination pixel masked.
func RotateFrame(f *frame.Frame, center Point, phi float64) *frame.Frame {
	if phi == 0 {
		return f.Clone()
	}

	rows, cols := f.Rows(), f.Cols()
	out, _ := frame.New(rows, cols)

	masked := f.HasMask()
	s, c := math.Sincos(-phi)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			// Source position: the destination pixel rotated by -phi
			// about the center, i.e. the inverse of the content motion.
			xp := float64(x) - center.X
			yp := float64(y) - center.Y
			sx := xp*c - yp*s + center.X
			sy := xp*s + yp*c + center.Y

			out.Set(x, y, bilinear(f, sx, sy))

			if masked {
				mx := int(math.Round(sx))
				my := int(math.Round(sy))
				if mx >= 0 && mx < cols && my >= 0 && my < rows && f.MaskedAt(mx, my) {
					out.SetMasked(x, y, true)
				}
			}
		}
	}
	return out
}

// bilinear samples the frame at a continuous position. Neighbors
// outside the frame or masked are treated as zero, matching the
// zero-fill policy of RotateFrame.
func bilinear(f *frame.Frame, x, y float64) float64 {
	rows, cols := f.Rows(), f.Cols()

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	tx := x - float64(x0)
	ty := y - float64(y0)

	sum := 0.0
	for dy := 0; dy <= 1; dy++ {
		wy := 1 - ty
		if dy == 1 {
			wy = ty
		}
		py := y0 + dy
		if py < 0 || py >= rows {
			continue
		}
		for dx := 0; dx <= 1; dx++ {
			wx := 1 - tx
			if dx == 1 {
				wx = tx
			}
			px := x0 + dx
			if px < 0 || px >= cols {
				continue
			}
			if f.MaskedAt(px, py) {
				continue
			}
			sum += wx * wy * f.At(px, py)
		}
	}
	return sum
}
