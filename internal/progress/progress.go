// Package progress aggregates per-frame increments from concurrent workers
// into a single monotonically non-decreasing completion fraction.
package progress

import (
	"math"
	"sync/atomic"
)

// Observer receives completion fractions in [0, 1]. Successive calls never
// decrease. Observers are called from a single goroutine.
type Observer func(fraction float64)

// Multi combines observers; nil entries are skipped.
func Multi(observers ...Observer) Observer {
	var list []Observer
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return func(f float64) {
		for _, o := range list {
			o(f)
		}
	}
}

// Aggregator owns the shared progress counter. Workers send increments via
// Add; one consumer goroutine applies them and notifies the observer, so no
// update is lost and observed values only grow.
type Aggregator struct {
	total    int
	observer Observer

	incr chan int
	done chan struct{}

	count atomic.Int64
	last  atomic.Uint64 // math.Float64bits of the last reported fraction
}

// NewAggregator starts an aggregator for total units of work and reports
// 0 to the observer immediately.
func NewAggregator(total int, observer Observer) *Aggregator {
	a := &Aggregator{
		total:    total,
		observer: observer,
		incr:     make(chan int, 256),
		done:     make(chan struct{}),
	}
	a.report(0)
	go a.loop()
	return a
}

// Add records n completed units. It is safe for concurrent use but must not
// be called after Close.
func (a *Aggregator) Add(n int) {
	a.incr <- n
}

// Sink returns a function that records one completed unit per call.
func (a *Aggregator) Sink() func() {
	return func() { a.Add(1) }
}

// Fraction returns the most recently reported fraction. It may be polled at
// any time from any goroutine.
func (a *Aggregator) Fraction() float64 {
	return math.Float64frombits(a.last.Load())
}

// Count returns the number of units applied so far.
func (a *Aggregator) Count() int {
	return int(a.count.Load())
}

// Close drains pending increments and stops the consumer. When complete is
// true the final reported fraction is exactly 1, even if the source ended
// before total units were attempted.
func (a *Aggregator) Close(complete bool) {
	close(a.incr)
	<-a.done
	if complete {
		a.report(1)
	}
}

func (a *Aggregator) loop() {
	defer close(a.done)
	for n := range a.incr {
		c := a.count.Add(int64(n))
		if a.total > 0 {
			a.report(min(float64(c)/float64(a.total), 1))
		}
	}
}

func (a *Aggregator) report(f float64) {
	if prev := a.Fraction(); f < prev || (f == prev && f != 0) {
		return
	}
	a.last.Store(math.Float64bits(f))
	if a.observer != nil {
		a.observer(f)
	}
}
