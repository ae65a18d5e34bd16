package beam

import (
	"fmt"
	"runtime"
	"sync"

	"beamwidth/pkg/frame"
)

// Result pairs one batch estimate with its per-frame error. A failed
// fit is reported through the Estimate flags, not through Err; Err is
// reserved for invalid inputs such as a nil frame.
type Result struct {
	Estimate Estimate
	Err      error
}

// EstimateBatch analyzes frames concurrently and returns one Result
// per input in input order. Each frame is independent, so a bad frame
// never disturbs its neighbors. workers bounds the number of frames
// analyzed at once; zero or negative selects runtime.NumCPU().
func EstimateBatch(frames []*frame.Frame, opt Options, workers int) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(frames) {
		workers = len(frames)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(frames))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, f := range frames {
		wg.Add(1)
		go func(i int, f *frame.Frame) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if f == nil {
				results[i].Err = fmt.Errorf("frame %d is nil", i)
				return
			}
			results[i].Estimate, results[i].Err = EstimateBeam(f, opt)
		}(i, f)
	}
	wg.Wait()

	return results
}
