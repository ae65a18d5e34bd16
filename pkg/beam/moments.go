package beam

import (
	"math"

	"beamwidth/pkg/frame"
	"beamwidth/pkg/geometry"
)

// moments holds one weighted moment pass over a frame: total weight,
// centroid, and the second central moments.
type moments struct {
	p   float64
	xc  float64
	yc  float64
	mxx float64
	myy float64
	mxy float64
}

// computeMoments runs a mask-aware moment pass using pixel values as
// weights. The ok result is false when the total weight is not
// positive, in which case no centroid exists.
func computeMoments(f *frame.Frame) (moments, bool) {
	rows, cols := f.Rows(), f.Cols()

	var p, sx, sy float64
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if f.MaskedAt(x, y) {
				continue
			}
			v := f.At(x, y)
			p += v
			sx += v * float64(x)
			sy += v * float64(y)
		}
	}
	if p <= 0 {
		return moments{}, false
	}

	m := moments{p: p, xc: sx / p, yc: sy / p}

	var mxx, myy, mxy float64
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if f.MaskedAt(x, y) {
				continue
			}
			v := f.At(x, y)
			dx := float64(x) - m.xc
			dy := float64(y) - m.yc
			mxx += v * dx * dx
			myy += v * dy * dy
			mxy += v * dx * dy
		}
	}
	m.mxx = mxx / p
	m.myy = myy / p
	m.mxy = mxy / p
	return m, true
}

// estimate converts second moments into the ISO 11146 beam parameters.
// The d = 4 sigma definition gives d = sqrt(8*(mxx+myy +/- disc)) with
// the unsigned discriminant, so DMajor >= DMinor always holds and phi
// points along the major axis. A circular beam (mxx == myy, mxy == 0)
// reports phi = 0 by convention, which the atan2 form yields directly.
func (m moments) estimate() Estimate {
	diff := m.mxx - m.myy
	disc := math.Sqrt(diff*diff + 4*m.mxy*m.mxy)

	// Numerical noise can push a radicand below zero; clamp rather
	// than produce a NaN diameter.
	major := 8 * (m.mxx + m.myy + disc)
	minor := 8 * (m.mxx + m.myy - disc)
	if major < 0 {
		major = 0
	}
	if minor < 0 {
		minor = 0
	}

	est := Estimate{
		XC:         m.xc,
		YC:         m.yc,
		DMajor:     math.Sqrt(major),
		DMinor:     math.Sqrt(minor),
		Phi:        0.5 * math.Atan2(2*m.mxy, diff),
		MajorValid: true,
	}
	est.AxesValid = est.DMinor > 0
	if !est.AxesValid {
		est.Phi = 0
	}
	return est
}

// BasicEstimate runs a single moment pass over the frame with no
// background handling and no refinement. It is the building block of
// the iterative estimator, exported for diagnostics and for callers
// that have already conditioned their image.
func BasicEstimate(f *frame.Frame) Estimate {
	return basicEstimate(f, nil)
}

func basicEstimate(f *frame.Frame, phiFixed *float64) Estimate {
	m, ok := computeMoments(f)
	if !ok {
		return failedEstimate(f)
	}
	if phiFixed != nil {
		return fixedAngleEstimate(f, m, *phiFixed)
	}
	return m.estimate()
}

// failedEstimate is the zero-weight terminal state: no usable axes and
// the centroid fallen back to the unweighted frame center.
func failedEstimate(f *frame.Frame) Estimate {
	return Estimate{
		XC: float64(f.Cols()-1) / 2,
		YC: float64(f.Rows()-1) / 2,
	}
}

// fixedAngleEstimate recomputes the diameters in the frame rotated by
// -phi about the centroid, so the requested angle defines the axes and
// the cross moment is ignored. DMajor here is the diameter along phi,
// which may be the smaller of the two if the caller's angle is off.
func fixedAngleEstimate(f *frame.Frame, m moments, phi float64) Estimate {
	rot := geometry.RotateFrame(f, geometry.Point{X: m.xc, Y: m.yc}, -phi)
	rm, ok := computeMoments(rot)
	if !ok {
		return failedEstimate(f)
	}

	major := 8 * rm.mxx
	minor := 8 * rm.myy
	if major < 0 {
		major = 0
	}
	if minor < 0 {
		minor = 0
	}

	est := Estimate{
		XC:         m.xc,
		YC:         m.yc,
		DMajor:     math.Sqrt(major),
		DMinor:     math.Sqrt(minor),
		Phi:        phi,
		MajorValid: true,
	}
	est.AxesValid = est.DMinor > 0
	return est
}
