// Package frame provides the masked image container shared by every
// analysis stage. A Frame pairs a dense float64 pixel buffer with an
// optional validity mask so that padded or otherwise invalid pixels can
// be excluded from statistics without sentinel values.
package frame

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Frame is a single-channel camera image. Pixels are addressed as
// (x, y) where x is the column and y is the row, matching the usual
// image convention with y increasing downward. A nil mask means every
// pixel is valid.
type Frame struct {
	data *mat.Dense
	mask []bool // row-major, true marks a pixel invalid
}

// New returns a zero-filled frame with the given dimensions.
func New(rows, cols int) (*Frame, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("frame dimensions must be positive, got %dx%d", rows, cols)
	}
	return &Frame{data: mat.NewDense(rows, cols, nil)}, nil
}

// FromSlice builds a frame from row-major pixel values. The slice is
// copied, so the caller keeps ownership of px.
func FromSlice(rows, cols int, px []float64) (*Frame, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("frame dimensions must be positive, got %dx%d", rows, cols)
	}
	if len(px) != rows*cols {
		return nil, fmt.Errorf("pixel count %d does not match %dx%d frame", len(px), rows, cols)
	}
	buf := make([]float64, len(px))
	copy(buf, px)
	return &Frame{data: mat.NewDense(rows, cols, buf)}, nil
}

// FromUint16 builds a frame from row-major integer sensor counts, the
// native sample format of most scientific cameras.
func FromUint16(rows, cols int, px []uint16) (*Frame, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("frame dimensions must be positive, got %dx%d", rows, cols)
	}
	if len(px) != rows*cols {
		return nil, fmt.Errorf("pixel count %d does not match %dx%d frame", len(px), rows, cols)
	}
	buf := make([]float64, len(px))
	for i, v := range px {
		buf[i] = float64(v)
	}
	return &Frame{data: mat.NewDense(rows, cols, buf)}, nil
}

// Rows returns the vertical size of the frame in pixels.
func (f *Frame) Rows() int {
	r, _ := f.data.Dims()
	return r
}

// Cols returns the horizontal size of the frame in pixels.
func (f *Frame) Cols() int {
	_, c := f.data.Dims()
	return c
}

// At returns the value of the pixel in column x of row y.
func (f *Frame) At(x, y int) float64 {
	return f.data.At(y, x)
}

// Set assigns the value of the pixel in column x of row y.
func (f *Frame) Set(x, y int, v float64) {
	f.data.Set(y, x, v)
}

// MaskedAt reports whether the pixel in column x of row y is invalid.
func (f *Frame) MaskedAt(x, y int) bool {
	if f.mask == nil {
		return false
	}
	return f.mask[y*f.Cols()+x]
}

// SetMasked marks the pixel in column x of row y invalid or valid.
// The mask buffer is allocated on first use.
func (f *Frame) SetMasked(x, y int, masked bool) {
	if f.mask == nil {
		if !masked {
			return
		}
		f.mask = make([]bool, f.Rows()*f.Cols())
	}
	f.mask[y*f.Cols()+x] = masked
}

// HasMask reports whether a validity mask has been attached. A frame
// without a mask has every pixel valid.
func (f *Frame) HasMask() bool {
	return f.mask != nil
}

// Clone returns a deep copy of the frame, including its mask.
func (f *Frame) Clone() *Frame {
	c := &Frame{data: mat.DenseCopyOf(f.data)}
	if f.mask != nil {
		c.mask = make([]bool, len(f.mask))
		copy(c.mask, f.mask)
	}
	return c
}

// Sum returns the total of all valid pixel values.
func (f *Frame) Sum() float64 {
	rows, cols := f.Rows(), f.Cols()
	total := 0.0
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if f.MaskedAt(x, y) {
				continue
			}
			total += f.At(x, y)
		}
	}
	return total
}

// MinMax returns the smallest and largest valid pixel values. The ok
// result is false when every pixel is masked.
func (f *Frame) MinMax() (lo, hi float64, ok bool) {
	rows, cols := f.Rows(), f.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if f.MaskedAt(x, y) {
				continue
			}
			v := f.At(x, y)
			if !ok {
				lo, hi, ok = v, v, true
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi, ok
}

// CropRect extracts the requested rectangle [xmin, xmax) x [ymin, ymax)
// around beam center (xc, yc). Bounds are truncated to integers and may
// extend beyond the frame: the result always has the requested size,
// with out-of-frame pixels zero-filled and masked invalid. Masks on
// source pixels carry over into the crop.
//
// The ok result is false when the requested rectangle is smaller than
// 3x3 pixels or does not overlap the frame at all; no crop can support
// moment statistics in either case. The returned newXC, newYC are the
// beam center translated into the cropped frame's coordinates.
func (f *Frame) CropRect(xc, yc, xmin, xmax, ymin, ymax float64) (cropped *Frame, newXC, newYC float64, ok bool) {
	rows, cols := f.Rows(), f.Cols()

	xminReq := int(xmin)
	xmaxReq := int(xmax)
	yminReq := int(ymin)
	ymaxReq := int(ymax)

	cropW := xmaxReq - xminReq
	cropH := ymaxReq - yminReq
	if cropW < 3 || cropH < 3 {
		return nil, 0, 0, false
	}

	xminValid := max(0, xminReq)
	xmaxValid := min(cols, xmaxReq)
	yminValid := max(0, yminReq)
	ymaxValid := min(rows, ymaxReq)
	if xminValid >= xmaxValid || yminValid >= ymaxValid {
		return nil, 0, 0, false
	}

	out := &Frame{data: mat.NewDense(cropH, cropW, nil)}
	if f.mask != nil || xminReq < 0 || xmaxReq > cols || yminReq < 0 || ymaxReq > rows {
		out.mask = make([]bool, cropH*cropW)
		for i := range out.mask {
			out.mask[i] = true
		}
	}

	for y := yminValid; y < ymaxValid; y++ {
		for x := xminValid; x < xmaxValid; x++ {
			ox := x - xminReq
			oy := y - yminReq
			out.data.Set(oy, ox, f.At(x, y))
			if out.mask != nil {
				out.mask[oy*cropW+ox] = f.MaskedAt(x, y)
			}
		}
	}

	return out, xc - float64(xminReq), yc - float64(yminReq), true
}
