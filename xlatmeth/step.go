package xlatmeth

import (
	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
)

// Reader is the narrow capability a step function needs to fetch raw
// page-table entries and memory-array elements: read a 32- or 64-bit
// value at a full address, translating through the owning system's
// maps first if the context can't serve that address space natively.
// Implemented by the operation engine (xlatop) so this package never
// has to import it back.
type Reader interface {
	Read32(addr kaddr.Addr, what string) (uint32, kerr.Status)
	Read64(addr kaddr.Addr, what string) (uint64, kerr.Status)
}

// StepState is the stateful walker that drives a translation one level
// at a time. idx[0] is the page-offset component; idx[i>0] are table
// indices from least to most significant.
type StepState struct {
	Reader Reader
	Method *Method

	Base   kaddr.Addr
	Remain int
	ElemSz int
	Idx    [6]uint64 // pgform.MaxLevels
	Raw    uint64

	// PDShift is non-zero only mid-walk through a PPC64 Linux huge
	// page directory: the MMU page-size code's shift, carried from
	// the directory entry to the huge-PTE read beneath it.
	PDShift uint

	// steps counts the calls Step has made on this state, used by
	// the operation engine to bound cycles.
	steps int
}

// Steps reports how many times Step has run on this state.
func (st *StepState) Steps() int {
	return st.steps
}

// Done reports whether the walk has reached its terminal level.
func (st *StepState) Done() bool {
	return st.ElemSz == 1
}

// Result returns the resolved full address once Done reports true:
// the current table/frame base plus the page-offset component.
func (st *StepState) Result() kaddr.Addr {
	return st.Base.Add(int64(st.Idx[0]))
}

// Step drives one level of the walk using Method's rule. On success
// either Remain decreases (more levels to walk) or ElemSz becomes 1
// (terminal; Result() is valid).
func Step(st *StepState) kerr.Status {
	st.steps++
	switch st.Method.Kind {
	case Linear:
		return stepLinear(st)
	case PGT:
		return stepPGT(st)
	case Lookup:
		return stepLookup(st)
	case MemArr:
		return stepMemArr(st)
	case Custom:
		return st.Method.CustomFn(st, st.Method.CustomData)
	default:
		return kerr.NOMETH
	}
}

func stepLinear(st *StepState) kerr.Status {
	out := st.Base.Value + uint64(st.Method.Offset)
	st.Base = kaddr.Addr{Space: st.Method.TargetAS, Value: out}
	st.Idx[0] = 0
	st.ElemSz = 1
	return kerr.OK
}

func stepLookup(st *StepState) kerr.Status {
	a := st.Base.Value
	entries := st.Method.Entries
	// Ranges are sorted and non-overlapping: binary search would
	// work, but the table is small in every real system (a handful
	// of vmemmap_list windows), so a linear scan stays simple.
	for _, e := range entries {
		if a < e.Orig {
			break
		}
		if a <= e.Orig+e.EndOff {
			out := e.Dest + (a - e.Orig)
			st.Base = kaddr.Addr{Space: st.Method.TargetAS, Value: out}
			st.Idx[0] = 0
			st.ElemSz = 1
			return kerr.OK
		}
	}
	return kerr.NOTPRESENT
}

func stepMemArr(st *StepState) kerr.Status {
	m := st.Method
	input := st.Base.Value
	idx := input >> m.Shift
	elemAddr := kaddr.Addr{Space: m.Base.Space, Value: m.Base.Value + idx*uint64(m.ElemSz)}

	var val uint64
	var status kerr.Status
	switch m.ValSz {
	case 4:
		var v32 uint32
		v32, status = st.Reader.Read32(elemAddr, "memarr element")
		val = uint64(v32)
	default:
		val, status = st.Reader.Read64(elemAddr, "memarr element")
	}
	if status != kerr.OK {
		return status
	}

	offset := input & (uint64(1)<<m.Shift - 1)
	out := (val << m.Shift) | offset
	st.Base = kaddr.Addr{Space: m.TargetAS, Value: out}
	st.Idx[0] = 0
	st.ElemSz = 1
	return kerr.OK
}
