// Package correlate scores how well a template matches every position of a
// frame using normalized cross-correlation.
package correlate

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
)

// ErrDimensionMismatch is returned when the template does not fit inside the
// frame along some axis.
var ErrDimensionMismatch = errors.New("template larger than frame")

// Surface holds one correlation score per template placement, row-major.
// Scores lie in [-1, 1].
type Surface struct {
	Width  int
	Height int
	Values []float64
}

// At returns the score for the placement whose top-left corner is (x, y).
func (s *Surface) At(x, y int) float64 {
	return s.Values[y*s.Width+x]
}

// Max returns the highest score and its placement.
func (s *Surface) Max() (v float64, x, y int) {
	best := -1
	for i, cur := range s.Values {
		if best < 0 || cur > v {
			best, v = i, cur
		}
	}
	if best < 0 {
		return 0, 0, 0
	}
	return v, best % s.Width, best / s.Width
}

// PeakMeets reports whether any score in s is at least threshold.
func PeakMeets(s *Surface, threshold float64) bool {
	if s == nil {
		return false
	}
	for _, v := range s.Values {
		if v >= threshold {
			return true
		}
	}
	return false
}

// Correlator computes a correlation surface for a template over a frame.
// Implementations must not modify either image.
type Correlator interface {
	Score(frame, tmpl *image.Gray) (*Surface, error)
}

// CheckDimensions returns ErrDimensionMismatch unless tmpl is non-empty and
// fits inside frame.
func CheckDimensions(frame, tmpl *image.Gray) error {
	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	tw, th := tmpl.Rect.Dx(), tmpl.Rect.Dy()
	if tw == 0 || th == 0 || tw > fw || th > fh {
		return fmt.Errorf("%w: template %dx%d, frame %dx%d", ErrDimensionMismatch, tw, th, fw, fh)
	}
	return nil
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Correlator{
		"ncc": func() Correlator { return NCC{} },
	}
)

// Register adds a named correlator implementation.
func Register(name string, f func() Correlator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New returns the named correlator.
func New(name string) (Correlator, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown correlator %q (available: %v)", name, Names())
	}
	return f(), nil
}

// Names lists the registered correlators.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
