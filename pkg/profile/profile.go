package profile

import (
	"math"

	"beamwidth/pkg/frame"
	"beamwidth/pkg/geometry"
)

// Axis selects which fitted beam axis to sample
type Axis int

const (
	Major Axis = iota
	Minor
)

// Profile holds the image samples along one beam axis: pixel
// positions, values, and signed distances from the beam center. It is
// a read-only projection of the image for curve fitting and plotting.
type Profile struct {
	geometry.LineSamples

	// Axis is the sampled axis; Angle is the actual line direction in
	// radians, already offset by a quarter turn for the minor axis.
	Axis  Axis
	Angle float64
}

// Along samples the image along the major or minor beam axis through
// the fitted center (xc, yc). length is the total line length in
// pixels; the major axis runs at phi, the minor at phi + pi/2, with
// positive phi rotating from +x toward +y. Samples outside the frame
// or on masked pixels are dropped, so the profile may hold fewer
// points than the line. Zero distance marks the middle of the line.
func Along(f *frame.Frame, xc, yc, length, phi float64, which Axis) Profile {
	angle := phi
	if which == Minor {
		angle += math.Pi / 2
	}

	s, c := math.Sincos(angle)
	r := length / 2
	p0 := geometry.Point{X: xc - r*c, Y: yc - r*s}
	p1 := geometry.Point{X: xc + r*c, Y: yc + r*s}

	return Profile{
		LineSamples: geometry.SampleAlongLine(f, p0, p1),
		Axis:        which,
		Angle:       angle,
	}
}

// GaussianAmplitude estimates the peak height above the background of
// a Gaussian with 1/e^2 diameter d from the area under the sampled
// curve. The sample spacing is taken from the first two points, which
// matches the uniform spacing of an unclipped line. A profile with
// fewer than two points yields zero.
func (p Profile) GaussianAmplitude(d, backgroundLevel float64) float64 {
	if d <= 0 || p.Len() < 2 {
		return 0
	}

	sum := 0.0
	for _, z := range p.Value {
		sum += z - backgroundLevel
	}
	ds := p.Dist[1] - p.Dist[0]
	return math.Sqrt(8/math.Pi) / d * math.Abs(sum*ds)
}

// GaussianValue evaluates the Gaussian profile model at signed
// distance s from the center: backgroundLevel + amplitude *
// exp(-8 s^2 / d^2). It is the curve the amplitude estimate assumes
// and is meant for overlaying fits on sampled profiles. A non-positive
// diameter yields the bare background level.
func GaussianValue(s, amplitude, d, backgroundLevel float64) float64 {
	if d <= 0 {
		return backgroundLevel
	}
	arg := s / d
	return backgroundLevel + amplitude*math.Exp(-8*arg*arg)
}
