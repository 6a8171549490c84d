package compute

import (
	"math"
	"runtime"
	"sync"
)

// parallelThreshold is the field length above which element-wise work is
// split across workers.
const parallelThreshold = 8192

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

func (c *CPUBackend) Name() string { return "cpu" }

func (c *CPUBackend) Sum(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum
}

func (c *CPUBackend) MaxAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func (c *CPUBackend) Maximum(x []float64, lower float64) []float64 {
	out := make([]float64, len(x))
	c.each(len(x), func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = math.Max(x[i], lower)
		}
	})
	return out
}

func (c *CPUBackend) ZerosLike(x []float64) []float64 {
	return make([]float64, len(x))
}

func (c *CPUBackend) Laplacian(x []float64, dx float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n < 3 || dx == 0 {
		return out
	}
	h2 := dx * dx
	c.each(n, func(start, end int) {
		for i := start; i < end; i++ {
			left := x[(i-1+n)%n]
			right := x[(i+1)%n]
			out[i] = (left - 2*x[i] + right) / h2
		}
	})
	return out
}

// each runs fn over [0, n) in contiguous chunks.
func (c *CPUBackend) each(n int, fn func(start, end int)) {
	if n < parallelThreshold || c.workers <= 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	chunkSize := (n + c.workers - 1) / c.workers

	for w := 0; w < c.workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}
