// Package diag attaches a step-count profiler to a translation
// engine, emitting a pprof profile (github.com/google/pprof/profile)
// so a translation-heavy workload's time can be attributed to
// particular methods the way a CPU profile attributes time to
// functions.
package diag

import (
	"io"
	"time"

	"github.com/google/pprof/profile"

	"github.com/delphix/libkdumpfile/xlatmeth"
)

// StepProfiler accumulates one sample per method kind touched during
// a translation session.
type StepProfiler struct {
	counts map[xlatmeth.Kind]int64
	funcs  map[xlatmeth.Kind]*profile.Function
	start  time.Time
}

// NewStepProfiler returns an empty profiler.
func NewStepProfiler() *StepProfiler {
	return &StepProfiler{
		counts: map[xlatmeth.Kind]int64{},
		funcs:  map[xlatmeth.Kind]*profile.Function{},
	}
}

// Observe records one step driven through a method of the given kind.
func (p *StepProfiler) Observe(kind xlatmeth.Kind) {
	if p.start.IsZero() {
		p.start = time.Now()
	}
	p.counts[kind]++
}

// Write renders the accumulated counts as a pprof profile to w.
func (p *StepProfiler) Write(w io.Writer) error {
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "steps", Unit: "count"}},
		TimeNanos:  p.start.UnixNano(),
	}

	var nextID uint64 = 1
	for kind, count := range p.counts {
		fn := &profile.Function{ID: nextID, Name: "method:" + kind.String()}
		nextID++
		loc := &profile.Location{ID: nextID, Line: []profile.Line{{Function: fn}}}
		nextID++

		prof.Function = append(prof.Function, fn)
		prof.Location = append(prof.Location, loc)
		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{count},
		})
	}

	return prof.Write(w)
}
