package synth

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"beamwidth/pkg/frame"
	"beamwidth/pkg/geometry"
)

// NoiseModel selects the pixel noise distribution added to a synthetic image
type NoiseModel int

const (
	Poisson NoiseModel = iota
	Gaussian
	Uniform
	Constant
)

// String returns the config and flag name of the model.
func (m NoiseModel) String() string {
	switch m {
	case Poisson:
		return "poisson"
	case Gaussian:
		return "gaussian"
	case Uniform:
		return "uniform"
	case Constant:
		return "constant"
	}
	return fmt.Sprintf("NoiseModel(%d)", int(m))
}

// ParseNoiseModel maps a config or flag name to its model. The aliases
// "normal" and "flat" are accepted for gaussian and uniform.
func ParseNoiseModel(name string) (NoiseModel, error) {
	switch name {
	case "poisson":
		return Poisson, nil
	case "gaussian", "normal":
		return Gaussian, nil
	case "uniform", "flat":
		return Uniform, nil
	case "constant":
		return Constant, nil
	}
	return 0, fmt.Errorf("unknown noise model %q", name)
}

// Options controls the intensity range and noise of a synthetic image.
type Options struct {
	// MaxValue is the sensor saturation level. Pixel values span
	// [0, MaxValue] and are quantized to integers like a camera readout.
	MaxValue float64

	// Noise is the mean of the added noise distribution. Zero disables
	// noise entirely.
	Noise float64

	// Model selects the noise distribution.
	Model NoiseModel

	// Seed, when nonzero, makes the noise reproducible. Zero draws from
	// the shared source.
	Seed uint64
}

// DefaultOptions returns an 8-bit noiseless image configuration.
func DefaultOptions() Options {
	return Options{MaxValue: 255, Model: Poisson}
}

// BeamImage renders a rows x cols frame holding a Gaussian elliptical
// spot with the given center, 1/e^2 diameters, and major-axis tilt phi
// in radians, positive rotating from +x toward +y. The spot peaks at
// MaxValue minus three noise means so that the added noise rarely
// saturates; after noise the values are clamped to [0, MaxValue] and
// always quantized to integers.
func BeamImage(cols, rows int, xc, yc, dMajor, dMinor, phi float64, opt Options) (*frame.Frame, error) {
	if opt.MaxValue <= 0 || opt.MaxValue > 65535 {
		return nil, fmt.Errorf("max value must be positive and at most 65535, got %g", opt.MaxValue)
	}
	if cols <= 0 {
		return nil, fmt.Errorf("number of columns must be positive, got %d", cols)
	}
	if rows <= 0 {
		return nil, fmt.Errorf("number of rows must be positive, got %d", rows)
	}
	if dMajor <= 0 || dMinor <= 0 {
		return nil, fmt.Errorf("beam diameters must be positive, got %g x %g", dMajor, dMinor)
	}
	if math.Abs(phi) > 2.1*math.Pi {
		return nil, fmt.Errorf("the angle phi should be in radians, got %g", phi)
	}
	if opt.Noise < 0 {
		return nil, fmt.Errorf("noise level must not be negative, got %g", opt.Noise)
	}

	rx := dMajor / 2
	ry := dMinor / 2
	scale := opt.MaxValue - 3*opt.Noise

	spot, err := frame.New(rows, cols)
	if err != nil {
		return nil, err
	}
	for y := 0; y < rows; y++ {
		dy := float64(y) - yc
		for x := 0; x < cols; x++ {
			dx := float64(x) - xc
			spot.Set(x, y, scale*math.Exp(-2*dx*dx/(rx*rx)-2*dy*dy/(ry*ry)))
		}
	}

	img := geometry.RotateFrame(spot, geometry.Point{X: xc, Y: yc}, phi)

	var draw func() float64
	if opt.Noise > 0 {
		var src rand.Source
		if opt.Seed != 0 {
			src = rand.NewSource(opt.Seed)
		}
		switch opt.Model {
		case Poisson:
			d := distuv.Poisson{Lambda: opt.Noise, Src: src}
			draw = d.Rand
		case Gaussian:
			d := distuv.Normal{Mu: opt.Noise, Sigma: math.Sqrt(opt.Noise), Src: src}
			draw = d.Rand
		case Uniform:
			d := distuv.Uniform{Min: 0, Max: opt.Noise, Src: src}
			draw = d.Rand
		case Constant:
			level := opt.Noise
			draw = func() float64 { return level }
		default:
			return nil, fmt.Errorf("unknown noise model %d", int(opt.Model))
		}
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := img.At(x, y)
			if draw != nil {
				v += draw()
				if v > opt.MaxValue {
					v = opt.MaxValue
				}
				if v < 0 {
					v = 0
				}
			}
			img.Set(x, y, math.Floor(v))
		}
	}

	return img, nil
}
