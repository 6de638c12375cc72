package xlatsys

import (
	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/pgform"
	"github.com/delphix/libkdumpfile/xlatmeth"
	"github.com/delphix/libkdumpfile/xlatopt"
)

// InitLinuxX8664 populates a System for Linux/x86-64: 5-level paging
// when virt_bits >= 57, else 4-level; a direct-mapped linear
// kernel-physical->direct window; a linear vmemmap unless the caller
// asks for the pre-4.19 sparse MEMARR form; and identity
// machphys<->kphys unless Xen non-auto-translated asks for a P2M
// MEMARR instead.
func InitLinuxX8664(opts xlatopt.Options, virtBits int, vmemmapSparse bool) (*System, kerr.Status) {
	if opts.RootPGT.Space == kaddr.NOADDR {
		return nil, kerr.INVALID
	}

	var form pgform.Form
	if virtBits >= 57 {
		form = pgform.X8664Levels5()
	} else {
		form = pgform.X8664Levels4()
	}

	sys := New("x86_64", "linux")

	sys.SetMethod(MethRootPGT, xlatmeth.NewPGT(form, opts.RootPGT, opts.PTEMask, kaddr.KPHYSADDR))
	sys.Map(KVToKPhys).Set(0, ^uint64(0), MethRootPGT)

	directOffset := -int64(opts.PhysBase)
	sys.SetMethod(MethDirect, xlatmeth.NewLinear(directOffset, kaddr.KPHYSADDR))
	sys.Map(KPhysToDirect).Set(0, ^uint64(0), MethDirect)

	if vmemmapSparse {
		// Pre-4.19 sparse vmemmap: struct page backing is itself an
		// indirection array, indexed by section, keyed to its section
		// size; PAGE_SIZE-sized elements, storing 8-byte pointers.
		const sectionShift = 27 // typical CONFIG_SPARSEMEM section size
		sys.SetMethod(MethVMemmap, xlatmeth.NewMemArr(opts.RootPGT, sectionShift, 8, 8, kaddr.KPHYSADDR))
	} else {
		sys.SetMethod(MethVMemmap, xlatmeth.NewLinear(directOffset, kaddr.KPHYSADDR))
	}

	if opts.XenXlat {
		sys.SetMethod(MethMachPhysToKPhys, xlatmeth.NewMemArr(
			kaddr.Addr{Space: kaddr.MACHPHYSADDR, Value: opts.XenP2MMFN << 12},
			12, 8, 8, kaddr.KPHYSADDR))
		sys.Map(MachPhysToKPhys).Set(0, ^uint64(0), MethMachPhysToKPhys)
	} else {
		sys.SetMethod(MethMachPhysToKPhys, xlatmeth.NewLinear(0, kaddr.KPHYSADDR))
		sys.SetMethod(MethKPhysToMachPhys, xlatmeth.NewLinear(0, kaddr.MACHPHYSADDR))
		sys.Map(MachPhysToKPhys).Set(0, ^uint64(0), MethMachPhysToKPhys)
		sys.Map(KPhysToMachPhys).Set(0, ^uint64(0), MethKPhysToMachPhys)
	}

	return sys, kerr.OK
}
