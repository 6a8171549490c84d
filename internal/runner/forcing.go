package runner

import "github.com/san-kum/gcmi/internal/gcm"

// ForcingSource yields one forcing value per iteration.
type ForcingSource interface {
	Next() gcm.Forcing
}

type sliceSource struct {
	items []gcm.Forcing
	pos   int
}

// Forcings yields items in order, then empty forcing once exhausted.
func Forcings(items []gcm.Forcing) ForcingSource {
	return &sliceSource{items: items}
}

func (s *sliceSource) Next() gcm.Forcing {
	if s.pos >= len(s.items) {
		return gcm.Forcing{}
	}
	f := s.items[s.pos]
	s.pos++
	if f == nil {
		return gcm.Forcing{}
	}
	return f
}

type funcSource struct {
	fn func(k int) gcm.Forcing
	k  int
}

// ForcingFunc yields fn(0), fn(1), ...
func ForcingFunc(fn func(k int) gcm.Forcing) ForcingSource {
	return &funcSource{fn: fn}
}

func (s *funcSource) Next() gcm.Forcing {
	f := s.fn(s.k)
	s.k++
	if f == nil {
		return gcm.Forcing{}
	}
	return f
}

type noForcing struct{}

func (noForcing) Next() gcm.Forcing { return gcm.Forcing{} }

func NoForcing() ForcingSource { return noForcing{} }
