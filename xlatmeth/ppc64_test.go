package xlatmeth_test

import (
	"testing"

	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/pgform"
	"github.com/delphix/libkdumpfile/xlatmeth"
)

// TestStepPGTNotPresentAtEveryLevel checks that a zero PTE at any
// level halts the walk with NOTPRESENT.
func TestStepPGTNotPresentAtEveryLevel(t *testing.T) {
	form := pgform.X8664Levels4()
	root := kaddr.Addr{Space: kaddr.KPHYSADDR, Value: 0x1000}
	m := xlatmeth.NewPGT(form, root, 0, kaddr.KPHYSADDR)
	r := newFakeReader() // no entries populated yet: an unpopulated read returns NODATA

	for level := form.Levels(); level >= 1; level-- {
		st := &xlatmeth.StepState{
			Reader: r,
			Method: &m,
			Base:   root,
			Remain: level,
		}
		// An unpopulated address reads NODATA from fakeReader rather
		// than a zero value; simulate "present but zero" explicitly.
		r.vals64[kaddr.Addr{Space: kaddr.KPHYSADDR, Value: 0x1000}] = 0
		if status := xlatmeth.Step(st); status != kerr.NOTPRESENT {
			t.Fatalf("level %d: Step = %v, want NOTPRESENT", level, status)
		}
	}
}

// TestStepPGTHugePTE covers the PPC64 Linux "huge PTE" marker: bottom
// two bits non-zero terminate the walk early, RPN shifted by 30.
func TestStepPGTHugePTE(t *testing.T) {
	form := pgform.PPC64Linux64K()
	root := kaddr.Addr{Space: kaddr.KPHYSADDR, Value: 0x5000}
	m := xlatmeth.NewPGT(form, root, 0, kaddr.KPHYSADDR)

	r := newFakeReader()
	const rpn = 0x123
	const hugePTE = (rpn << 30) | 0x1 // bottom bits mark "huge"
	r.vals64[kaddr.Addr{Space: kaddr.KPHYSADDR, Value: 0x5000}] = hugePTE

	st := &xlatmeth.StepState{
		Reader: r,
		Method: &m,
		Base:   root,
		Remain: form.Levels(),
	}
	if status := xlatmeth.Step(st); status != kerr.OK {
		t.Fatalf("Step = %v, want OK", status)
	}
	if !st.Done() {
		t.Fatalf("expected huge PTE to terminate the walk immediately")
	}
	want := uint64(rpn) << form.OffsetBits()
	if got := st.Result().Value &^ ((1 << form.OffsetBits()) - 1); got != want {
		t.Fatalf("Result frame = %#x, want %#x", got, want)
	}
}

// TestStepPGTHugePageDirectory covers the PPC64 huge-page-directory
// marker: a clear top bit selects an MMU page-size code (bits 2-5,
// bits 0-1 reserved) that carries through to the huge PTE read
// beneath it, at the index computed from the remaining offset bits.
func TestStepPGTHugePageDirectory(t *testing.T) {
	form := pgform.PPC64Linux64K()
	root := kaddr.Addr{Space: kaddr.KPHYSADDR, Value: 0x6000}
	m := xlatmeth.NewPGT(form, root, 0, kaddr.KPHYSADDR)

	r := newFakeReader()
	const pdTable = 0x7000
	const mmuCode = 2            // selects shift 16 per the 14-entry table
	const encoded = mmuCode << 2 // code lives in bits 2-5
	r.vals64[kaddr.Addr{Space: kaddr.KPHYSADDR, Value: 0x6000}] = pdTable | encoded

	st := &xlatmeth.StepState{
		Reader: r,
		Method: &m,
		Base:   root,
		Remain: form.Levels(),
	}
	if status := xlatmeth.Step(st); status != kerr.OK {
		t.Fatalf("huge PD Step = %v, want OK", status)
	}
	if st.Done() {
		t.Fatalf("huge PD hit must not terminate the walk directly")
	}
	if st.PDShift != 16 {
		t.Fatalf("PDShift = %d, want 16", st.PDShift)
	}
	if st.Remain != 1 {
		t.Fatalf("Remain after huge PD = %d, want 1", st.Remain)
	}

	const pdAddr = uint64(pdTable) | (1 << 63) // the top bit is re-set on the next base
	const rpn = 0x9
	const hugeEntry = rpn << 30
	r.vals64[kaddr.Addr{Space: kaddr.KVADDR, Value: pdAddr}] = hugeEntry

	if status := xlatmeth.Step(st); status != kerr.OK {
		t.Fatalf("huge PD leaf Step = %v, want OK", status)
	}
	if !st.Done() {
		t.Fatalf("expected the huge-PD leaf read to terminate the walk")
	}
	want := uint64(rpn) << 16
	if got := st.Result().Value &^ (uint64(1)<<16 - 1); got != want {
		t.Fatalf("Result frame = %#x, want %#x", got, want)
	}
}
