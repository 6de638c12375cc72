package xlatmeth_test

import (
	"testing"

	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/pgform"
	"github.com/delphix/libkdumpfile/xlatmeth"
)

// fakeReader serves fixed 32/64-bit values from a map keyed by the
// full address requested, letting tests synthesize page tables
// without a real memory backend.
type fakeReader struct {
	vals64 map[kaddr.Addr]uint64
	vals32 map[kaddr.Addr]uint32
}

func newFakeReader() *fakeReader {
	return &fakeReader{vals64: map[kaddr.Addr]uint64{}, vals32: map[kaddr.Addr]uint32{}}
}

func (r *fakeReader) Read32(addr kaddr.Addr, what string) (uint32, kerr.Status) {
	v, ok := r.vals32[addr]
	if !ok {
		return 0, kerr.NODATA
	}
	return v, kerr.OK
}

func (r *fakeReader) Read64(addr kaddr.Addr, what string) (uint64, kerr.Status) {
	v, ok := r.vals64[addr]
	if !ok {
		return 0, kerr.NODATA
	}
	return v, kerr.OK
}

// TestStepLinearIdentity checks that a LINEAR method with offset 0
// re-tags the space without changing the value.
func TestStepLinearIdentity(t *testing.T) {
	m := xlatmeth.NewLinear(0, kaddr.KPHYSADDR)
	st := &xlatmeth.StepState{
		Method: &m,
		Base:   kaddr.Addr{Space: kaddr.KVADDR, Value: 0xffff_8000_1234_5678},
	}
	if status := xlatmeth.Step(st); status != kerr.OK {
		t.Fatalf("Step = %v, want OK", status)
	}
	if !st.Done() {
		t.Fatalf("expected linear step to terminate immediately")
	}
	want := kaddr.Addr{Space: kaddr.KPHYSADDR, Value: 0xffff_8000_1234_5678}
	if got := st.Result(); got != want {
		t.Fatalf("Result = %v, want %v", got, want)
	}
}

// TestStepLookupVmemmap checks a LOOKUP method's window matching and
// its NOTPRESENT result for an address outside every window.
func TestStepLookupVmemmap(t *testing.T) {
	entries := []xlatmeth.LookupEntry{
		{Orig: 0xf000_0000_0000_0000, Dest: 0x1000_0000, EndOff: 0xffff},
		{Orig: 0xf000_0000_0001_0000, Dest: 0x2000_0000, EndOff: 0xffff},
	}
	m := xlatmeth.NewLookup(entries, kaddr.KPHYSADDR)

	st := &xlatmeth.StepState{Method: &m, Base: kaddr.Addr{Value: 0xf000_0000_0000_0042}}
	if status := xlatmeth.Step(st); status != kerr.OK {
		t.Fatalf("Step = %v, want OK", status)
	}
	if got, want := st.Result().Value, uint64(0x1000_0042); got != want {
		t.Fatalf("Result.Value = %#x, want %#x", got, want)
	}

	st2 := &xlatmeth.StepState{Method: &m, Base: kaddr.Addr{Value: 0xf000_0000_0002_0000}}
	if status := xlatmeth.Step(st2); status != kerr.NOTPRESENT {
		t.Fatalf("Step(out of window) = %v, want NOTPRESENT", status)
	}
}

// pteAddrAt mirrors stepPGT's PTE address arithmetic for test setup.
func pteAddrAt(space kaddr.Space, base uint64, idx, pteSize uint64) kaddr.Addr {
	return kaddr.Addr{Space: space, Value: base + idx*pteSize}
}

// TestStepPGTFourLevelWalk drives a 4-level x86-64 walk from a
// synthetic root down to a 4KB leaf.
func TestStepPGTFourLevelWalk(t *testing.T) {
	form := pgform.X8664Levels4()
	root := kaddr.Addr{Space: kaddr.KPHYSADDR, Value: 0x1000}
	m := xlatmeth.NewPGT(form, root, 0, kaddr.KPHYSADDR)

	const virt = 0x7fff_abcd_e000
	const phys = 0xdead_b000

	r := newFakeReader()
	tableAddrs := []uint64{0x2000, 0x3000, 0x4000} // next table for levels 4,3,2
	base := root.Value
	for level := 4; level >= 1; level-- {
		idx := form.Index(virt, level)
		space := kaddr.KPHYSADDR
		if level < 4 {
			space = kaddr.KVADDR
		}
		addr := pteAddrAt(space, base, idx, 8)
		if level == 1 {
			r.vals64[addr] = 0x1 | (phys &^ 0xfff) // present, PFN
		} else {
			next := tableAddrs[4-level]
			r.vals64[addr] = 0x1 | next
			base = next
		}
	}

	st := &xlatmeth.StepState{
		Reader: r,
		Method: &m,
		Base:   root,
		Remain: form.Levels(),
		Idx:    seedIdx(form, virt),
	}
	for !st.Done() {
		if status := xlatmeth.Step(st); status != kerr.OK {
			t.Fatalf("Step = %v at remain=%d", status, st.Remain)
		}
		if st.Steps() > 32 {
			t.Fatalf("walk exceeded step bound")
		}
	}
	if got := st.Result(); got.Value != phys || got.Space != kaddr.KPHYSADDR {
		t.Fatalf("Result = %v, want (KPHYSADDR, %#x)", got, phys)
	}
}

// seedIdx fills idx[0..levels] from addr the way the operation engine
// would before driving a PGT walk.
func seedIdx(form pgform.Form, addr uint64) [6]uint64 {
	var idx [6]uint64
	idx[0] = addr & (uint64(1)<<form.OffsetBits() - 1)
	for level := 1; level <= form.Levels(); level++ {
		idx[level] = form.Index(addr, level)
	}
	return idx
}

func TestStepMemArr(t *testing.T) {
	base := kaddr.Addr{Space: kaddr.KPHYSADDR, Value: 0x9000}
	m := xlatmeth.NewMemArr(base, 16, 8, 8, kaddr.MACHPHYSADDR)

	r := newFakeReader()
	r.vals64[kaddr.Addr{Space: kaddr.KPHYSADDR, Value: 0x9000 + 5*8}] = 0x7000

	st := &xlatmeth.StepState{Reader: r, Method: &m, Base: kaddr.Addr{Value: 5<<16 | 0x42}}
	if status := xlatmeth.Step(st); status != kerr.OK {
		t.Fatalf("Step = %v, want OK", status)
	}
	want := uint64(0x7000<<16 | 0x42)
	if got := st.Result().Value; got != want {
		t.Fatalf("Result.Value = %#x, want %#x", got, want)
	}
}
