// Package xlatmeth implements the translation-method tagged union and
// the per-kind step functions that drive one level of a translation
// walk.
package xlatmeth

import (
	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/pgform"
)

// Kind is the closed set of translation-method variants.
type Kind int

const (
	// None is the sentinel "no method installed" kind.
	None Kind = iota
	// Custom delegates to a user-supplied step function.
	Custom
	// Linear adds a fixed signed offset.
	Linear
	// PGT walks a page table per a paging form.
	PGT
	// Lookup matches a sorted table of fixed-size windows.
	Lookup
	// MemArr reads the translation value from an in-memory array
	// indexed by page number.
	MemArr
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Custom:
		return "custom"
	case Linear:
		return "linear"
	case PGT:
		return "pgt"
	case Lookup:
		return "lookup"
	case MemArr:
		return "memarr"
	default:
		return "kind(?)"
	}
}

// LookupEntry is one (orig, dest) window of a Lookup method: input A
// matches iff orig <= A <= orig+EndOff, output is dest+(A-orig).
type LookupEntry struct {
	Orig   uint64
	Dest   uint64
	EndOff uint64
}

// CustomFunc is the sole open extension point: an opaque user-supplied
// step function plus opaque data, invoked verbatim by the step
// dispatcher.
type CustomFunc func(st *StepState, data any) kerr.Status

// Method is the tagged variant describing how to translate one range
// of addresses. Exactly one of the kind-specific fields is meaningful
// at a time, selected by Kind.
type Method struct {
	Kind Kind
	// TargetAS is the address space of this method's output.
	TargetAS kaddr.Space

	// Linear
	Offset int64

	// PGT
	Form    pgform.Form
	Root    kaddr.Addr
	PTEMask uint64 // ANDed into every raw PTE, 0 means "no mask"

	// Lookup; entries must be sorted by Orig and non-overlapping.
	Entries []LookupEntry

	// MemArr
	Base   kaddr.Addr
	Shift  uint
	ElemSz int // bytes per array element on disk
	ValSz  int // active width of the stored value, bytes

	// Custom
	CustomFn   CustomFunc
	CustomData any
}

// NewLinear builds a Linear method.
func NewLinear(offset int64, target kaddr.Space) Method {
	return Method{Kind: Linear, Offset: offset, TargetAS: target}
}

// NewPGT builds a PGT method. pteMask of 0 means no masking.
func NewPGT(form pgform.Form, root kaddr.Addr, pteMask uint64, target kaddr.Space) Method {
	return Method{Kind: PGT, Form: form, Root: root, PTEMask: pteMask, TargetAS: target}
}

// NewLookup builds a Lookup method from already-sorted entries.
func NewLookup(entries []LookupEntry, target kaddr.Space) Method {
	return Method{Kind: Lookup, Entries: entries, TargetAS: target}
}

// NewMemArr builds a MemArr method.
func NewMemArr(base kaddr.Addr, shift uint, elemSz, valSz int, target kaddr.Space) Method {
	return Method{Kind: MemArr, Base: base, Shift: shift, ElemSz: elemSz, ValSz: valSz, TargetAS: target}
}

// NewCustom builds a Custom method.
func NewCustom(fn CustomFunc, data any, target kaddr.Space) Method {
	return Method{Kind: Custom, CustomFn: fn, CustomData: data, TargetAS: target}
}
