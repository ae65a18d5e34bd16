package background

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"beamwidth/pkg/frame"
)

// Level is the per-frame background estimate: the mean pixel value of
// the corner regions and a noise scale above it. It is derived once per
// analysis and read-only afterwards.
type Level struct {
	Background float64
	Noise      float64
}

// Estimate derives the background from the four corner rectangles of
// size cornerFraction x (rows, cols), at least 1x1 each. The corner
// pixels are pooled (masked pixels excluded); Background is their mean
// and Noise is nSigma population standard deviations of the pool.
//
// A uniform or all-zero frame yields a zero Noise without error. A
// cornerFraction of zero skips estimation and returns a zero Level.
func Estimate(f *frame.Frame, cornerFraction, nSigma float64) (Level, error) {
	if cornerFraction < 0 || cornerFraction > 0.25 {
		return Level{}, fmt.Errorf("corner fraction must be between 0 and 0.25, got %g", cornerFraction)
	}
	if nSigma < 0 {
		return Level{}, fmt.Errorf("noise multiplier must be nonnegative, got %g", nSigma)
	}
	if cornerFraction == 0 {
		return Level{}, nil
	}

	pool := cornerPixels(f, cornerFraction)
	if len(pool) == 0 {
		return Level{}, nil
	}
	return Level{
		Background: stat.Mean(pool, nil),
		Noise:      nSigma * stat.PopStdDev(pool, nil),
	}, nil
}

// Apply subtracts the level from every pixel of f and returns the
// result as a new frame. With allowNegative, only the background is
// removed and negative residuals are kept, as ISO 11146 noise handling
// requires for linearized sensor data. Without it, the noise band is
// removed as well and the result is clamped at zero, modeling a sensor
// that cannot report negative counts.
func (l Level) Apply(f *frame.Frame, allowNegative bool) *frame.Frame {
	out := f.Clone()
	rows, cols := f.Rows(), f.Cols()

	offset := l.Background
	if !allowNegative {
		offset += l.Noise
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := f.At(x, y) - offset
			if !allowNegative && v < 0 {
				v = 0
			}
			out.Set(x, y, v)
		}
	}
	return out
}

// Subtract estimates the corner background of f and removes it under
// the given clamp policy. The input frame is never modified.
func Subtract(f *frame.Frame, cornerFraction, nSigma float64, allowNegative bool) (*frame.Frame, error) {
	lvl, err := Estimate(f, cornerFraction, nSigma)
	if err != nil {
		return nil, err
	}
	return lvl.Apply(f, allowNegative), nil
}

// SubtractReference removes a dark frame captured with the beam blocked.
// Both frames must have the same shape; masks are unioned and negative
// residuals are kept.
func SubtractReference(f, ref *frame.Frame) (*frame.Frame, error) {
	if f.Rows() != ref.Rows() || f.Cols() != ref.Cols() {
		return nil, fmt.Errorf("reference frame is %dx%d but image is %dx%d",
			ref.Rows(), ref.Cols(), f.Rows(), f.Cols())
	}

	out := f.Clone()
	rows, cols := f.Rows(), f.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out.Set(x, y, f.At(x, y)-ref.At(x, y))
			if ref.MaskedAt(x, y) {
				out.SetMasked(x, y, true)
			}
		}
	}
	return out, nil
}

// cornerPixels pools the valid pixels of the four corner rectangles.
// The rectangles are n x m with n = fraction*rows and m = fraction*cols
// (floored, at least 1); overlapping rectangles on tiny frames count
// each pixel once.
func cornerPixels(f *frame.Frame, fraction float64) []float64 {
	rows, cols := f.Rows(), f.Cols()

	n := int(fraction * float64(rows))
	m := int(fraction * float64(cols))
	if n < 1 {
		n = 1
	}
	if m < 1 {
		m = 1
	}

	pool := make([]float64, 0, 4*n*m)
	for y := 0; y < rows; y++ {
		if y >= n && y < rows-n {
			continue
		}
		for x := 0; x < cols; x++ {
			if x >= m && x < cols-m {
				continue
			}
			if f.MaskedAt(x, y) {
				continue
			}
			pool = append(pool, f.At(x, y))
		}
	}
	return pool
}
