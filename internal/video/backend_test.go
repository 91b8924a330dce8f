package video

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type stubSource struct{ opts Options }

func (s stubSource) Probe(context.Context, string) (Info, error) { return Info{}, nil }
func (s stubSource) Open(context.Context, string) (Reader, error) {
	return nil, errors.New("not implemented")
}

func init() {
	Register("stub", func(opts Options) (Source, error) {
		return stubSource{opts: opts}, nil
	})
}

func TestNewSource(t *testing.T) {
	src, err := NewSource("stub", Options{FrameRate: 12})
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	stub := src.(stubSource)
	if stub.opts.FrameRate != 12 || stub.opts.Logger == nil {
		t.Errorf("options not passed through: %+v", stub.opts)
	}

	if _, err := NewSource("nope", Options{}); err == nil {
		t.Error("unknown backend accepted")
	}
	if !slices.Contains(Backends(), "stub") {
		t.Errorf("Backends() = %v", Backends())
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	Register("stub", func(Options) (Source, error) { return nil, nil })
}
