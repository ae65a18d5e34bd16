package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/stat"

	"beamwidth/pkg/background"
	"beamwidth/pkg/beam"
	"beamwidth/pkg/config"
	"beamwidth/pkg/frame"
	"beamwidth/pkg/profile"
	"beamwidth/pkg/synth"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "beamwidth.yaml", "Path to the YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration file and exit")
	cols := flag.Int("cols", 0, "Synthetic image width in pixels (default: from config)")
	rows := flag.Int("rows", 0, "Synthetic image height in pixels (default: from config)")
	maxValue := flag.Float64("max-value", 0, "Sensor saturation level (default: from config)")
	noise := flag.Float64("noise", -1, "Mean noise level in counts (default: from config)")
	model := flag.String("model", "", "Noise model: poisson, gaussian, uniform, constant (default: from config)")
	seed := flag.Uint64("seed", 0, "Noise seed, 0 for unseeded (default: from config)")
	xc := flag.Float64("xc", -1, "Beam center column (default: image center)")
	yc := flag.Float64("yc", -1, "Beam center row (default: image center)")
	dMajor := flag.Float64("dmajor", 100, "Major beam diameter in pixels")
	dMinor := flag.Float64("dminor", 60, "Minor beam diameter in pixels")
	phiDeg := flag.Float64("phi", 15, "Major axis tilt in degrees")
	count := flag.Int("count", 1, "Number of noise realizations to analyze")
	workers := flag.Int("workers", 0, "Concurrent analyses in batch mode (default: from config)")
	verbose := flag.Bool("verbose", false, "Print every refinement iterate (single analysis only)")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration saved to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Apply command line overrides
	if *cols > 0 {
		cfg.Synth.Cols = *cols
	}
	if *rows > 0 {
		cfg.Synth.Rows = *rows
	}
	if *maxValue > 0 {
		cfg.Synth.MaxValue = *maxValue
	}
	if *noise >= 0 {
		cfg.Synth.Noise = *noise
	}
	if *model != "" {
		cfg.Synth.Model = *model
	}
	if *seed != 0 {
		cfg.Synth.Seed = *seed
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *count < 1 {
		flag.Usage()
		os.Exit(1)
	}

	fmt.Println("================================")
	fmt.Println("BEAMWIDTH - LASER BEAM SIZE ANALYSIS")
	fmt.Println("ISO 11146 second-moment diameters from camera images")
	fmt.Println("================================")

	sopt, err := cfg.SynthOptions()
	if err != nil {
		log.Fatalf("Invalid noise model: %v", err)
	}

	centerX := *xc
	if centerX < 0 {
		centerX = float64(cfg.Synth.Cols) / 2
	}
	centerY := *yc
	if centerY < 0 {
		centerY = float64(cfg.Synth.Rows) / 2
	}
	phi := *phiDeg * math.Pi / 180

	opt := cfg.AnalysisOptions()
	if *verbose && *count == 1 {
		opt.Observer = func(i int, e beam.Estimate) {
			fmt.Printf("  iteration %d: center (%.2f, %.2f), diameters %.2f x %.2f px\n",
				i, e.XC, e.YC, e.DMajor, e.DMinor)
		}
	}

	if *count == 1 {
		analyzeSingle(cfg, sopt, opt, centerX, centerY, *dMajor, *dMinor, phi)
		return
	}
	analyzeBatch(cfg, sopt, opt, centerX, centerY, *dMajor, *dMinor, phi, *count)
}

// analyzeSingle generates one synthetic image, runs the full analysis,
// and reports the measurements with axis profiles.
func analyzeSingle(cfg *config.Config, sopt synth.Options, opt beam.Options, xc, yc, dMajor, dMinor, phi float64) {
	fmt.Printf("Generating a %dx%d synthetic beam image...\n", cfg.Synth.Rows, cfg.Synth.Cols)
	img, err := synth.BeamImage(cfg.Synth.Cols, cfg.Synth.Rows, xc, yc, dMajor, dMinor, phi, sopt)
	if err != nil {
		log.Fatalf("Failed to generate the test image: %v", err)
	}

	fmt.Println("Estimating the background from the image corners...")
	lvl, err := background.Estimate(img, opt.CornerFraction, opt.NSigma)
	if err != nil {
		log.Fatalf("Background estimation failed: %v", err)
	}
	fmt.Printf("Background level: %.2f counts, noise band: %.2f counts\n", lvl.Background, lvl.Noise)

	fmt.Println("Running the iterative beam fit...")
	startTime := time.Now()
	est, err := beam.EstimateBeam(img, opt)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	elapsed := time.Since(startTime)

	if !est.MajorValid {
		log.Fatalf("No beam could be measured in the generated image")
	}

	fmt.Printf("\nAnalysis completed in %.2f ms (%d refinement passes, converged: %v)\n",
		float64(elapsed.Microseconds())/1000, est.Iterations, est.Converged)

	ratio, dCircular := beam.Ellipticity(est)

	fmt.Println("\nBeam measurements:")
	fmt.Println("==================")
	fmt.Printf("Center: (%.2f, %.2f) px\n", est.XC, est.YC)
	fmt.Printf("Major diameter: %.2f px\n", est.DMajor)
	if est.AxesValid {
		fmt.Printf("Minor diameter: %.2f px\n", est.DMinor)
		fmt.Printf("Orientation: %.2f deg\n", est.Phi*180/math.Pi)
		fmt.Printf("Ellipticity: %.3f\n", ratio)
		if ratio >= beam.NearCircularRatio {
			fmt.Printf("Near-circular beam, equivalent diameter: %.2f px\n", dCircular)
		}
	} else {
		fmt.Println("Minor diameter: not resolved")
	}

	printProfile(img, est, opt, lvl.Background, profile.Major, "Major")
	if est.AxesValid {
		printProfile(img, est, opt, lvl.Background, profile.Minor, "Minor")
	}
}

// printProfile samples one beam axis and prints a short summary of the
// curve against its Gaussian fit.
func printProfile(img *frame.Frame, est beam.Estimate, opt beam.Options, bkgnd float64, which profile.Axis, name string) {
	d := est.DMajor
	if which == profile.Minor {
		d = est.DMinor
	}

	prof := profile.Along(img, est.XC, est.YC, opt.MaskDiameters*d, est.Phi, which)
	if prof.Len() == 0 {
		log.Printf("Warning: no samples along the %s axis", name)
		return
	}

	peak := prof.Value[0]
	for _, v := range prof.Value {
		if v > peak {
			peak = v
		}
	}
	amp := prof.GaussianAmplitude(d, bkgnd)

	fmt.Printf("\n%s axis profile: %d samples across %.0f px\n", name, prof.Len(), opt.MaskDiameters*d)
	fmt.Printf("Peak value: %.1f counts, fitted Gaussian amplitude: %.1f counts\n", peak, amp)
}

// analyzeBatch measures the same beam across repeated noise draws and
// reports the spread of the recovered diameters.
func analyzeBatch(cfg *config.Config, sopt synth.Options, opt beam.Options, xc, yc, dMajor, dMinor, phi float64, count int) {
	fmt.Printf("Generating %d noise realizations of the same beam...\n", count)

	frames := make([]*frame.Frame, count)
	for i := range frames {
		fopt := sopt
		if fopt.Seed != 0 {
			fopt.Seed += uint64(i)
		}
		img, err := synth.BeamImage(cfg.Synth.Cols, cfg.Synth.Rows, xc, yc, dMajor, dMinor, phi, fopt)
		if err != nil {
			log.Fatalf("Failed to generate test image %d: %v", i, err)
		}
		frames[i] = img
	}

	fmt.Printf("Analyzing on %d workers...\n", cfg.Batch.Workers)
	startTime := time.Now()
	results := beam.EstimateBatch(frames, opt, cfg.Batch.Workers)
	elapsed := time.Since(startTime)

	var majors, minors []float64
	for i, res := range results {
		if res.Err != nil {
			log.Printf("Warning: frame %d failed: %v", i, res.Err)
			continue
		}
		est := res.Estimate
		if !est.MajorValid || !est.AxesValid {
			log.Printf("Warning: no beam found in frame %d", i)
			continue
		}
		fmt.Printf("Frame %2d: center (%7.2f, %7.2f) px, diameters %.2f x %.2f px, tilt %6.2f deg\n",
			i, est.XC, est.YC, est.DMajor, est.DMinor, est.Phi*180/math.Pi)
		majors = append(majors, est.DMajor)
		minors = append(minors, est.DMinor)
	}

	fmt.Printf("\nBatch completed in %.2f ms (%.1f frames/s)\n",
		float64(elapsed.Microseconds())/1000, float64(count)/elapsed.Seconds())

	if len(majors) > 1 {
		fmt.Println("\nRepeatability:")
		fmt.Printf("Major diameter: %.2f +/- %.2f px\n", stat.Mean(majors, nil), stat.StdDev(majors, nil))
		fmt.Printf("Minor diameter: %.2f +/- %.2f px\n", stat.Mean(minors, nil), stat.StdDev(minors, nil))
	}
}
