// Package xlatop implements the operation engine: a single generic
// translate loop behind the public Translate API. A PGT/MEMARR step's
// own reads go through the same loop: Read32/Read64 translate the
// address into the first space the context can serve, then read
// through the cache. The loop's optional onServable callback is not
// passed by any caller in this package.
package xlatop

import (
	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/kread"
	"github.com/delphix/libkdumpfile/xlatmeth"
	"github.com/delphix/libkdumpfile/xlatsys"
)

// maxSteps bounds a single operation's step count, so a misconfigured
// or cyclic set of maps can't spin forever.
const maxSteps = 32

// Engine drives translations and reads against one (Context, System)
// pair. It is the sole implementation of xlatmeth.Reader: step
// functions that need to read page-table entries or memory-array
// elements call back into the same engine that is walking them.
type Engine struct {
	Ctx *kread.Context
	Sys *xlatsys.System

	// Profiler, if non-nil, is sent one observation per method step
	// the engine drives, for attaching a diag.StepProfiler.
	Profiler interface{ Observe(xlatmeth.Kind) }
}

// direction picks the map that covers a step from one space to
// another, among the five named direction maps a System carries.
func direction(from, to kaddr.Space) (xlatsys.Direction, bool) {
	switch {
	case from == kaddr.KVADDR && to == kaddr.KPHYSADDR:
		return xlatsys.KVToKPhys, true
	case from == kaddr.KPHYSADDR && to == kaddr.MACHPHYSADDR:
		return xlatsys.KPhysToMachPhys, true
	case from == kaddr.MACHPHYSADDR && to == kaddr.KPHYSADDR:
		return xlatsys.MachPhysToKPhys, true
	case from == kaddr.KPHYSADDR:
		return xlatsys.KPhysToDirect, true
	default:
		return xlatsys.HWView, from != to
	}
}

// Translate converts addr into target, chaining maps and method steps
// until it lands in target or an error/cycle-bound stops it.
func (e *Engine) Translate(addr kaddr.Addr, target kaddr.Space) (kaddr.Addr, kerr.Status) {
	return e.run(addr, target, nil)
}

// Read32 implements xlatmeth.Reader: translate addr into a space the
// context can serve directly, then read through the cache.
func (e *Engine) Read32(addr kaddr.Addr, what string) (uint32, kerr.Status) {
	resolved, status := e.resolveServable(addr)
	if status != kerr.OK {
		return 0, status
	}
	return e.Ctx.DoRead32(resolved, what)
}

// Read64 is Read32's 64-bit counterpart.
func (e *Engine) Read64(addr kaddr.Addr, what string) (uint64, kerr.Status) {
	resolved, status := e.resolveServable(addr)
	if status != kerr.OK {
		return 0, status
	}
	return e.Ctx.DoRead64(resolved, what)
}

// resolveServable returns addr unchanged if the context can already
// read its space directly, otherwise translates it into one that
// the context can serve.
func (e *Engine) resolveServable(addr kaddr.Addr) (kaddr.Addr, kerr.Status) {
	if e.Ctx.CanServe(addr.Space) {
		return addr, kerr.OK
	}
	for _, target := range []kaddr.Space{kaddr.KPHYSADDR, kaddr.MACHPHYSADDR, kaddr.KVADDR} {
		if !e.Ctx.CanServe(target) {
			continue
		}
		return e.Translate(addr, target)
	}
	return kaddr.None, kerr.NOMETH
}

// run is the shared translate loop. When onServable is non-nil, run
// stops as soon as the walk reaches any
// space the context can serve, invoking onServable(addr) and
// returning its result -- this is how reads piggyback on the engine
// instead of duplicating its dispatch logic.
func (e *Engine) run(addr kaddr.Addr, target kaddr.Space, onServable func(kaddr.Addr) (kaddr.Addr, kerr.Status)) (kaddr.Addr, kerr.Status) {
	steps := 0
	cur := addr

	for {
		if cur.Space == target && e.Ctx.CanServe(target) {
			return cur, kerr.OK
		}
		if onServable != nil && e.Ctx.CanServe(cur.Space) {
			return onServable(cur)
		}

		dir, ok := direction(cur.Space, target)
		if !ok {
			return kaddr.None, kerr.NOMETH
		}
		idx := e.Sys.Map(dir).Search(cur.Value)
		if idx < 0 {
			return kaddr.None, kerr.NOMETH
		}
		meth, ok := e.Sys.Method(idx)
		if !ok {
			return kaddr.None, kerr.NOMETH
		}

		next, status := e.walkMethod(meth, cur)
		if status != kerr.OK {
			return kaddr.None, status
		}
		if steps++; steps > maxSteps {
			return kaddr.None, kerr.INVALID
		}
		if next == cur {
			// A method that doesn't change the address or space
			// would spin forever; treat it as unservable.
			return kaddr.None, kerr.NOMETH
		}
		cur = next
	}
}

// walkMethod drives meth's step function to completion (possibly
// many PGT levels) and returns the resulting full address.
func (e *Engine) walkMethod(meth *xlatmeth.Method, addr kaddr.Addr) (kaddr.Addr, kerr.Status) {
	st := &xlatmeth.StepState{Reader: e, Method: meth, Base: addr}

	if meth.Kind == xlatmeth.PGT {
		st.Remain = meth.Form.Levels()
		st.Idx[0] = addr.Value & (uint64(1)<<meth.Form.OffsetBits() - 1)
		for level := 1; level <= meth.Form.Levels(); level++ {
			st.Idx[level] = meth.Form.Index(addr.Value, level)
		}
		st.Base = meth.Root
	}

	for {
		if e.Profiler != nil {
			e.Profiler.Observe(meth.Kind)
		}
		if status := xlatmeth.Step(st); status != kerr.OK {
			return kaddr.None, status
		}
		if st.Steps() > maxSteps {
			return kaddr.None, kerr.INVALID
		}
		if st.Done() {
			return st.Result(), kerr.OK
		}
	}
}
