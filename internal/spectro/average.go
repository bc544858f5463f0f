package spectro

import "fmt"

// Accumulator keeps a running mean over equally sized traces using the
// incremental update mean_N = mean_{N-1} + (x - mean_{N-1})/N, so that a
// multi-set acquisition never has to hold all sets in memory.
type Accumulator struct {
	mean  []float64
	count int
}

// Add folds another trace into the running mean.
func (a *Accumulator) Add(trace []float64) error {
	if a.count == 0 {
		a.mean = make([]float64, len(trace))
		copy(a.mean, trace)
		a.count = 1
		return nil
	}
	if len(trace) != len(a.mean) {
		return fmt.Errorf("trace length %d does not match accumulator length %d", len(trace), len(a.mean))
	}
	a.count++
	n := float64(a.count)
	for i, v := range trace {
		a.mean[i] += (v - a.mean[i]) / n
	}
	return nil
}

// Count returns the number of traces folded in so far.
func (a *Accumulator) Count() int { return a.count }

// Mean returns a copy of the current running mean, or nil before the first
// Add.
func (a *Accumulator) Mean() []float64 {
	if a.count == 0 {
		return nil
	}
	out := make([]float64, len(a.mean))
	copy(out, a.mean)
	return out
}
