package beam

import (
	"fmt"
	"math"

	"beamwidth/pkg/background"
	"beamwidth/pkg/frame"
	"beamwidth/pkg/geometry"
)

// Estimate is the result of one beam analysis. The centroid is in
// pixel coordinates of the analyzed frame; diameters are the ISO 11146
// d = 4 sigma second-moment widths in pixels; Phi is the tilt of the
// major axis from the horizontal, in radians, positive rotating from
// +x toward +y (downward in image coordinates).
//
// Presence is explicit: when AxesValid is false the minor diameter and
// angle are undefined and must not be read; MajorValid alone still
// permits a best-effort circular reading of DMajor. A failed fit clears
// both flags rather than smuggling zeros or NaNs into later math.
type Estimate struct {
	XC     float64
	YC     float64
	DMajor float64
	DMinor float64
	Phi    float64

	// MajorValid reports that a moment pass with positive total weight
	// produced DMajor. AxesValid additionally requires a usable second
	// axis; DMinor and Phi carry no information without it.
	MajorValid bool
	AxesValid  bool

	// Iterations counts completed refinement passes; zero means the
	// initial full-frame pass was terminal. Converged reports that the
	// stopping tolerance was met before MaxIter ran out; exhausting
	// MaxIter still returns the last iterate silently.
	Iterations int
	Converged  bool
}

// Options controls one analysis call.
type Options struct {
	// CornerFraction sets the corner rectangle size used for the
	// background estimate, as a fraction of each image dimension.
	CornerFraction float64

	// NSigma scales the corner noise deviation into the noise band
	// removed under the clamped subtraction policy.
	NSigma float64

	// AllowNegative keeps negative residuals after background
	// subtraction during refinement, which ISO 11146 requires for
	// unbiased widths on linearized sensor data. When false the noise
	// band is removed and pixels clamp at zero.
	AllowNegative bool

	// MaskDiameters sizes the integration rectangle as a multiple of
	// the current diameter estimate along each axis.
	MaskDiameters float64

	// MaxIter bounds the total moment passes; refinement stops after
	// MaxIter-1 recrops regardless of tolerance.
	MaxIter int

	// PhiFixed, when set, bypasses the angle fit: the supplied angle
	// defines the axes for every rectangle and diameter computation.
	// The DMajor/DMinor ordering then follows the angle, not size.
	PhiFixed *float64

	// Observer, when set, receives every refinement iterate. Useful
	// for convergence diagnostics and progress reporting.
	Observer func(iteration int, est Estimate)
}

// DefaultOptions returns the standard analysis parameters.
func DefaultOptions() Options {
	return Options{
		CornerFraction: 0.035,
		NSigma:         3,
		AllowNegative:  true,
		MaskDiameters:  3,
		MaxIter:        25,
	}
}

func (o Options) validate() error {
	if o.MaskDiameters <= 0 {
		return fmt.Errorf("mask diameters must be positive, got %g", o.MaskDiameters)
	}
	if o.MaxIter < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", o.MaxIter)
	}
	if o.PhiFixed != nil && math.Abs(*o.PhiFixed) > 2.1*math.Pi {
		return fmt.Errorf("fixed angle %g is out of range, the angle should be in radians", *o.PhiFixed)
	}
	return nil
}

// EstimateBeam measures the center, diameters, and orientation of the
// beam spot in f following the ISO 11146 iterative procedure:
//
//  1. Estimate the background from the image corners and obtain a
//     first guess from a moment pass over the clamped subtraction,
//     whose weights are all nonnegative.
//  2. Repeatedly crop the subtracted image to the integration
//     rectangle MaskDiameters x (DMajor, DMinor) around the current
//     estimate, recompute mask-aware moments on the crop, and
//     translate the result back into frame coordinates.
//  3. Stop when center and diameters stabilize (under 1 px shift and
//     under 1% relative diameter change) or MaxIter is exhausted.
//
// A frame with no recoverable spot (uniform, empty, or fully masked)
// returns a terminal estimate with MajorValid and AxesValid false and
// a nil error: a failed fit is an expected data-dependent outcome, not
// an invalid call.
func EstimateBeam(f *frame.Frame, opt Options) (Estimate, error) {
	if f == nil {
		return Estimate{}, fmt.Errorf("no frame supplied")
	}
	if err := opt.validate(); err != nil {
		return Estimate{}, err
	}

	lvl, err := background.Estimate(f, opt.CornerFraction, opt.NSigma)
	if err != nil {
		return Estimate{}, err
	}

	// First guess on the clamped subtraction: the noise band is gone
	// and every weight is nonnegative, which keeps the initial
	// centroid from being dragged by corner noise.
	initial := lvl.Apply(f, false)
	est := basicEstimate(initial, opt.PhiFixed)
	if !est.MajorValid || !est.AxesValid {
		return est, nil
	}

	// Refinement iterates on the caller-policy image; keeping the
	// negative residuals is what makes the converged widths unbiased.
	work := initial
	if opt.AllowNegative {
		work = lvl.Apply(f, true)
	}

	prev := est
	for i := 1; i < opt.MaxIter; i++ {
		crop, cx, cy, ok := CropToIntegrationRect(work, est, opt.MaskDiameters)
		if !ok {
			break
		}

		next := basicEstimate(crop, opt.PhiFixed)
		est = next
		est.Iterations = i
		est.XC = next.XC + prev.XC - cx
		est.YC = next.YC + prev.YC - cy

		if opt.Observer != nil {
			opt.Observer(i, est)
		}
		if !est.MajorValid || !est.AxesValid {
			break
		}
		if converged(est, prev) {
			est.Converged = true
			break
		}
		prev = est
	}
	return est, nil
}

// converged applies the stopping rule: sub-pixel center motion and
// sub-percent relative diameter change on both axes.
func converged(cur, prev Estimate) bool {
	if math.Abs(cur.XC-prev.XC) >= 1 || math.Abs(cur.YC-prev.YC) >= 1 {
		return false
	}
	if prev.DMajor <= 0 || prev.DMinor <= 0 {
		return false
	}
	if math.Abs(cur.DMajor-prev.DMajor)/prev.DMajor >= 0.01 {
		return false
	}
	if math.Abs(cur.DMinor-prev.DMinor)/prev.DMinor >= 0.01 {
		return false
	}
	return true
}

// CropToIntegrationRect crops f to the axis-aligned bounding box of
// the rotated rectangle maskDiameters x (DMajor, DMinor) centered on
// the estimate. When the estimate has no usable second axis the frame
// is returned unchanged with the center untranslated, so callers can
// chain the crop without branching on fit quality.
func CropToIntegrationRect(f *frame.Frame, est Estimate, maskDiameters float64) (*frame.Frame, float64, float64, bool) {
	if !est.AxesValid {
		return f, est.XC, est.YC, true
	}

	verts := geometry.RectVertices(
		geometry.Point{X: est.XC, Y: est.YC},
		maskDiameters*est.DMajor,
		maskDiameters*est.DMinor,
		est.Phi,
	)

	minX, maxX := verts[0].X, verts[0].X
	minY, maxY := verts[0].Y, verts[0].Y
	for _, p := range verts[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	return f.CropRect(est.XC, est.YC, minX, maxX, minY, maxY)
}

// NearCircularRatio is the ellipticity above which a beam is normally
// reported with a single equivalent diameter instead of two axes.
const NearCircularRatio = 0.87

// Ellipticity returns the minor-to-major diameter ratio and the
// root-mean-square equivalent circular diameter. Whether to collapse a
// near-circular beam into dCircular is a reporting decision left to
// the caller. An estimate without valid axes yields zeros.
func Ellipticity(est Estimate) (ratio, dCircular float64) {
	if !est.AxesValid || est.DMajor <= 0 || est.DMinor <= 0 {
		return 0, 0
	}
	ratio = est.DMinor / est.DMajor
	// Fixed-angle fits report the axes in angle order, not size order.
	if ratio > 1 {
		ratio = 1 / ratio
	}
	dCircular = math.Sqrt((est.DMajor*est.DMajor + est.DMinor*est.DMinor) / 2)
	return ratio, dCircular
}
