package video

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"vidmatch/internal/imageproc"
)

// Options configures a backend when it is instantiated.
type Options struct {
	GrayMode imageproc.GrayMode

	// FrameRate is used by backends whose input carries no timing, such as
	// a directory of still frames.
	FrameRate float64

	Logger *slog.Logger
}

// Factory builds a Source for a registered backend.
type Factory func(opts Options) (Source, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Factory)
)

// Register makes a backend available by name. It is meant to be called from
// the init function of the package implementing the backend.
func Register(name string, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if _, dup := backends[name]; dup {
		panic("video: Register called twice for backend " + name)
	}
	backends[name] = f
}

// NewSource instantiates the named backend.
func NewSource(name string, opts Options) (Source, error) {
	backendsMu.RLock()
	f, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown video backend %q (available: %v)", name, Backends())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return f(opts)
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
