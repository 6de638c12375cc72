package xlatsys

import (
	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/pgform"
	"github.com/delphix/libkdumpfile/xlatmeth"
	"github.com/delphix/libkdumpfile/xlatopt"
)

// VMemmapWalker resolves the in-kernel vmemmap_list into a sorted set
// of LOOKUP entries. Implemented by the host via the Context's
// symbol/offsetof callbacks (walking a linked list is inherently
// callback-driven, not a pure function of Options).
type VMemmapWalker func() ([]xlatmeth.LookupEntry, kerr.Status)

// InitLinuxPPC64 populates a System for Linux/ppc64: only the
// 64KB-page form is supported, and VMEMMAP is a LOOKUP table built by
// walking vmemmap_list rather than a fixed linear offset.
func InitLinuxPPC64(opts xlatopt.Options, vmemmap VMemmapWalker) (*System, kerr.Status) {
	if opts.RootPGT.Space == kaddr.NOADDR {
		return nil, kerr.INVALID
	}
	if opts.PageSize != 0 && opts.PageSize != 0x10000 {
		return nil, kerr.NOTIMPL // only 64KB pages are supported
	}

	form := pgform.PPC64Linux64K()
	sys := New("ppc64", "linux")

	sys.SetMethod(MethRootPGT, xlatmeth.NewPGT(form, opts.RootPGT, opts.PTEMask, kaddr.KPHYSADDR))
	sys.Map(KVToKPhys).Set(0, ^uint64(0), MethRootPGT)

	sys.SetMethod(MethDirect, xlatmeth.NewLinear(-int64(opts.PhysBase), kaddr.KPHYSADDR))
	// Linux/ppc64's direct-mapped region starts at the well-known
	// PAGE_OFFSET constant 0xc000000000000000.
	const pageOffset = 0xc000_0000_0000_0000
	sys.Map(KVToKPhys).Set(pageOffset, ^uint64(0)-pageOffset, MethDirect)

	if vmemmap != nil {
		entries, status := vmemmap()
		if status != kerr.OK {
			return nil, status
		}
		sys.SetMethod(MethVMemmap, xlatmeth.NewLookup(entries, kaddr.KPHYSADDR))
	}

	sys.SetMethod(MethMachPhysToKPhys, xlatmeth.NewLinear(0, kaddr.KPHYSADDR))
	sys.SetMethod(MethKPhysToMachPhys, xlatmeth.NewLinear(0, kaddr.MACHPHYSADDR))
	sys.Map(MachPhysToKPhys).Set(0, ^uint64(0), MethMachPhysToKPhys)
	sys.Map(KPhysToMachPhys).Set(0, ^uint64(0), MethKPhysToMachPhys)

	return sys, kerr.OK
}
