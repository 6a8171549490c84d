package compute

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownBackend = errors.New("compute: unknown backend")

type Backend interface {
	Name() string
	Sum(x []float64) float64
	MaxAbs(x []float64) float64
	Maximum(x []float64, lower float64) []float64
	ZerosLike(x []float64) []float64
	// Laplacian returns the periodic second difference of x with spacing dx.
	Laplacian(x []float64, dx float64) []float64
}

var (
	mu       sync.RWMutex
	backends = map[string]func() Backend{
		"cpu": func() Backend { return NewCPUBackend() },
	}
)

// Register makes a backend constructor available to Lookup.
func Register(name string, fn func() Backend) {
	mu.Lock()
	defer mu.Unlock()
	backends[name] = fn
}

func Lookup(name string) (Backend, error) {
	mu.RLock()
	fn, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownBackend, name, Names())
	}
	return fn(), nil
}

func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the CPU backend.
func Default() Backend {
	return NewCPUBackend()
}
