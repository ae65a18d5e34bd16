package frame

import (
	"math"
	"testing"
)

// TestNewValidation verifies that frame construction rejects bad dimensions
func TestNewValidation(t *testing.T) {
	cases := []struct {
		name    string
		rows    int
		cols    int
		wantErr bool
	}{
		{"valid", 4, 6, false},
		{"single pixel", 1, 1, false},
		{"zero rows", 0, 6, true},
		{"zero cols", 4, 0, true},
		{"negative rows", -3, 6, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := New(tc.rows, tc.cols)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected error for %dx%d frame, got none", tc.rows, tc.cols)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if f.Rows() != tc.rows || f.Cols() != tc.cols {
				t.Errorf("Expected %dx%d frame, got %dx%d", tc.rows, tc.cols, f.Rows(), f.Cols())
			}
		})
	}
}

// TestFromSlice verifies row-major construction and that the input slice is copied
func TestFromSlice(t *testing.T) {
	px := []float64{1, 2, 3, 4, 5, 6}
	f, err := FromSlice(2, 3, px)
	if err != nil {
		t.Fatalf("Failed to build frame: %v", err)
	}

	// Pixel (x=2, y=1) is the last element in row-major order
	if got := f.At(2, 1); got != 6 {
		t.Errorf("Expected pixel (2,1) = 6, got %f", got)
	}
	if got := f.At(0, 1); got != 4 {
		t.Errorf("Expected pixel (0,1) = 4, got %f", got)
	}

	// Mutating the caller's slice must not affect the frame
	px[0] = 99
	if got := f.At(0, 0); got != 1 {
		t.Errorf("Frame aliased the input slice: pixel (0,0) = %f", got)
	}

	// Length mismatch is rejected
	if _, err := FromSlice(2, 3, []float64{1, 2}); err == nil {
		t.Error("Expected error for mismatched pixel count, got none")
	}
}

// TestFromUint16 verifies integer sensor data is converted losslessly
func TestFromUint16(t *testing.T) {
	px := []uint16{0, 100, 65535, 7}
	f, err := FromUint16(2, 2, px)
	if err != nil {
		t.Fatalf("Failed to build frame: %v", err)
	}
	if got := f.At(1, 1); got != 7 {
		t.Errorf("Expected pixel (1,1) = 7, got %f", got)
	}
	if got := f.At(0, 1); got != 65535 {
		t.Errorf("Expected pixel (0,1) = 65535, got %f", got)
	}
}

// TestMasking verifies lazy mask allocation and per-pixel validity
func TestMasking(t *testing.T) {
	f, err := New(3, 3)
	if err != nil {
		t.Fatalf("Failed to build frame: %v", err)
	}

	if f.HasMask() {
		t.Error("Fresh frame should not carry a mask")
	}
	if f.MaskedAt(1, 1) {
		t.Error("Pixels of a maskless frame must be valid")
	}

	// Clearing a pixel on a maskless frame must not allocate a mask
	f.SetMasked(1, 1, false)
	if f.HasMask() {
		t.Error("Unmasking a valid pixel should not allocate a mask")
	}

	f.SetMasked(2, 0, true)
	if !f.HasMask() {
		t.Error("Expected mask to be allocated after SetMasked")
	}
	if !f.MaskedAt(2, 0) {
		t.Error("Expected pixel (2,0) to be masked")
	}
	if f.MaskedAt(0, 2) {
		t.Error("Expected pixel (0,2) to remain valid")
	}

	f.SetMasked(2, 0, false)
	if f.MaskedAt(2, 0) {
		t.Error("Expected pixel (2,0) to be valid again")
	}
}

// TestClone verifies that clones share no storage with the original
func TestClone(t *testing.T) {
	f, _ := FromSlice(2, 2, []float64{1, 2, 3, 4})
	f.SetMasked(0, 0, true)

	c := f.Clone()
	if c.At(1, 1) != 4 || !c.MaskedAt(0, 0) {
		t.Fatal("Clone did not copy values and mask")
	}

	f.Set(1, 1, 42)
	f.SetMasked(1, 0, true)
	if c.At(1, 1) != 4 {
		t.Error("Clone shares pixel storage with the original")
	}
	if c.MaskedAt(1, 0) {
		t.Error("Clone shares mask storage with the original")
	}
}

// TestSumAndMinMax verifies that reductions skip masked pixels
func TestSumAndMinMax(t *testing.T) {
	f, _ := FromSlice(2, 3, []float64{5, -2, 9, 1, 0, 3})

	if got := f.Sum(); got != 16 {
		t.Errorf("Expected sum 16, got %f", got)
	}
	lo, hi, ok := f.MinMax()
	if !ok || lo != -2 || hi != 9 {
		t.Errorf("Expected min -2 max 9, got %f %f (ok=%v)", lo, hi, ok)
	}

	// Mask the extremes (values 9 and -2); reductions must ignore them
	f.SetMasked(2, 0, true)
	f.SetMasked(1, 0, true)
	if got := f.Sum(); got != 9 {
		t.Errorf("Expected masked sum 9, got %f", got)
	}
	lo, hi, ok = f.MinMax()
	if !ok || lo != 0 || hi != 5 {
		t.Errorf("Expected masked min 0 max 5, got %f %f (ok=%v)", lo, hi, ok)
	}

	// Fully masked frame has no extremes
	g, _ := New(2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			g.SetMasked(x, y, true)
		}
	}
	if _, _, ok := g.MinMax(); ok {
		t.Error("Expected ok=false for fully masked frame")
	}
}

// TestCropRectInterior verifies an in-bounds crop copies pixels and
// translates the center without attaching a mask
func TestCropRectInterior(t *testing.T) {
	f := rampFrame(6, 8)

	cropped, newXC, newYC, ok := f.CropRect(4.2, 3.7, 2, 7, 1, 5)
	if !ok {
		t.Fatal("Expected in-bounds crop to succeed")
	}
	if cropped.Rows() != 4 || cropped.Cols() != 5 {
		t.Errorf("Expected 4x5 crop, got %dx%d", cropped.Rows(), cropped.Cols())
	}
	if cropped.HasMask() {
		t.Error("In-bounds crop of a maskless frame should not carry a mask")
	}

	// Pixel (0,0) of the crop is source pixel (2,1)
	if got, want := cropped.At(0, 0), f.At(2, 1); got != want {
		t.Errorf("Expected crop (0,0) = %f, got %f", want, got)
	}
	if got, want := cropped.At(4, 3), f.At(6, 4); got != want {
		t.Errorf("Expected crop (4,3) = %f, got %f", want, got)
	}

	if math.Abs(newXC-2.2) > 1e-12 || math.Abs(newYC-2.7) > 1e-12 {
		t.Errorf("Expected translated center (2.2, 2.7), got (%f, %f)", newXC, newYC)
	}
}

// TestCropRectStraddling verifies that a rectangle extending past the
// frame is padded to the requested size with the padding masked
func TestCropRectStraddling(t *testing.T) {
	f := rampFrame(5, 5)

	// Request extends 2 columns left of the frame and 1 row above it
	cropped, newXC, newYC, ok := f.CropRect(1, 1, -2, 3, -1, 4)
	if !ok {
		t.Fatal("Expected straddling crop to succeed")
	}
	if cropped.Rows() != 5 || cropped.Cols() != 5 {
		t.Errorf("Expected requested 5x5 size, got %dx%d", cropped.Rows(), cropped.Cols())
	}

	// Padded band is masked and zero
	if !cropped.MaskedAt(0, 2) || !cropped.MaskedAt(1, 2) {
		t.Error("Expected left padding columns to be masked")
	}
	if !cropped.MaskedAt(3, 0) {
		t.Error("Expected top padding row to be masked")
	}
	if got := cropped.At(0, 0); got != 0 {
		t.Errorf("Expected padded pixel to be zero, got %f", got)
	}

	// Valid data sits at its true relative position: crop (2,1) is source (0,0)
	if cropped.MaskedAt(2, 1) {
		t.Error("Expected source-backed pixel to be valid")
	}
	if got, want := cropped.At(2, 1), f.At(0, 0); got != want {
		t.Errorf("Expected crop (2,1) = %f, got %f", want, got)
	}
	if got, want := cropped.At(4, 4), f.At(2, 3); got != want {
		t.Errorf("Expected crop (4,4) = %f, got %f", want, got)
	}

	if newXC != 3 || newYC != 2 {
		t.Errorf("Expected translated center (3, 2), got (%f, %f)", newXC, newYC)
	}
}

// TestCropRectNoResult verifies the degenerate-crop sentinel
func TestCropRectNoResult(t *testing.T) {
	f := rampFrame(10, 10)

	cases := []struct {
		name                   string
		xmin, xmax, ymin, ymax float64
	}{
		{"width below floor", 2, 4, 0, 10},
		{"height below floor", 0, 10, 3, 5},
		{"fully left of frame", -20, -10, 0, 10},
		{"fully below frame", 0, 10, 30, 40},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cropped, _, _, ok := f.CropRect(5, 5, tc.xmin, tc.xmax, tc.ymin, tc.ymax)
			if ok || cropped != nil {
				t.Errorf("Expected no-result sentinel for bounds x[%v,%v] y[%v,%v]",
					tc.xmin, tc.xmax, tc.ymin, tc.ymax)
			}
		})
	}
}

// TestCropRectPreservesSourceMask verifies masked source pixels stay
// masked inside the crop
func TestCropRectPreservesSourceMask(t *testing.T) {
	f := rampFrame(6, 6)
	f.SetMasked(3, 3, true)

	cropped, _, _, ok := f.CropRect(3, 3, 1, 6, 1, 6)
	if !ok {
		t.Fatal("Expected crop to succeed")
	}
	if !cropped.MaskedAt(2, 2) {
		t.Error("Expected source mask to carry over to crop pixel (2,2)")
	}
	if cropped.MaskedAt(1, 1) {
		t.Error("Expected unmasked source pixel to stay valid")
	}
}

// rampFrame builds a rows x cols frame whose pixel (x, y) holds the
// value y*cols+x, making copied regions easy to verify.
func rampFrame(rows, cols int) *Frame {
	px := make([]float64, rows*cols)
	for i := range px {
		px[i] = float64(i)
	}
	f, err := FromSlice(rows, cols, px)
	if err != nil {
		panic(err)
	}
	return f
}
