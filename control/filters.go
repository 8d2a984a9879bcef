// Package control implements the signal filters and feedback blocks used by the control tasks.
package control

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// DefaultFIRCoefficients is the tuned 10th order low pass applied to each color channel.
var DefaultFIRCoefficients = []float64{
	-1.247414986406201e-18,
	-1.270350182429102e-02,
	-2.481243022283666e-02,
	6.381419731491805e-02,
	2.761351394755998e-01,
	4.000000000000000e-01,
	2.761351394755998e-01,
	6.381419731491805e-02,
	-2.481243022283666e-02,
	-1.270350182429102e-02,
	-1.247414986406201e-18,
}

type filter interface {
	Reset() error
	Next(x float64) (float64, bool)
}

var (
	_ = filter(&FIR{})
	_ = filter(&movingAverageFilter{})
)

// FIR is a transposed direct-form finite impulse response filter.
type FIR struct {
	mu sync.Mutex
	hn []float64
	z  []float64
	// number of samples seen, saturating at the filter length.
	n int
}

// NewFIR returns a FIR filter with the given coefficients. The order of the
// filter is len(hn)-1.
func NewFIR(hn []float64) (*FIR, error) {
	if len(hn) == 0 {
		return nil, errors.New("fir filter needs at least one coefficient")
	}
	for i, h := range hn {
		if math.IsNaN(h) || math.IsInf(h, 0) {
			return nil, errors.Errorf("fir coefficient %d is not finite", i)
		}
	}
	f := &FIR{hn: append([]float64(nil), hn...)}
	if err := f.Reset(); err != nil {
		return nil, err
	}
	return f, nil
}

// Order returns the filter order.
func (f *FIR) Order() int {
	return len(f.hn) - 1
}

// DCGain returns the steady-state gain of the filter for a constant input.
func (f *FIR) DCGain() float64 {
	return floats.Sum(f.hn)
}

// Reset clears the delay line.
func (f *FIR) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.z = make([]float64, len(f.hn))
	f.n = 0
	return nil
}

// Next pushes x through the filter. The boolean is false until the delay line
// has been filled once, i.e. while the output still depends on the zero initial state.
func (f *FIR) Next(x float64) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	last := len(f.hn) - 1
	y := f.hn[0]*x + f.z[0]
	for i := 0; i < last; i++ {
		f.z[i] = f.hn[i+1]*x + f.z[i+1]
	}
	f.z[last] = 0
	if f.n < len(f.hn) {
		f.n++
	}
	return y, f.n >= len(f.hn)
}

// MovingAverage is an integer moving average over a fixed-size ring buffer.
type MovingAverage struct {
	mu   sync.Mutex
	data []int32
	pos  int
	n    int
	sum  int64
}

// NewMovingAverage returns a moving average holding at most capacity samples.
func NewMovingAverage(capacity int) (*MovingAverage, error) {
	if capacity <= 0 {
		return nil, errors.Errorf("moving average capacity must be positive, got %d", capacity)
	}
	return &MovingAverage{data: make([]int32, capacity)}, nil
}

// Add stores x, evicting the oldest sample when full, and returns the mean of
// the samples currently held.
func (ma *MovingAverage) Add(x int32) int32 {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	if ma.n == len(ma.data) {
		ma.sum -= int64(ma.data[ma.pos])
	} else {
		ma.n++
	}
	ma.data[ma.pos] = x
	ma.sum += int64(x)
	ma.pos++
	if ma.pos >= len(ma.data) {
		ma.pos = 0
	}
	return int32(ma.sum / int64(ma.n))
}

// Len returns the number of samples currently held.
func (ma *MovingAverage) Len() int {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return ma.n
}

// Reset drops every sample.
func (ma *MovingAverage) Reset() {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	for i := range ma.data {
		ma.data[i] = 0
	}
	ma.pos, ma.n, ma.sum = 0, 0, 0
}

// movingAverageFilter adapts MovingAverage to the float filter interface.
type movingAverageFilter struct {
	ma *MovingAverage
}

func (f *movingAverageFilter) Reset() error {
	f.ma.Reset()
	return nil
}

func (f *movingAverageFilter) Next(x float64) (float64, bool) {
	y := f.ma.Add(int32(x))
	return float64(y), f.ma.Len() == len(f.ma.data)
}
