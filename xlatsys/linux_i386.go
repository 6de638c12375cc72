package xlatsys

import (
	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/pgform"
	"github.com/delphix/libkdumpfile/xlatmeth"
	"github.com/delphix/libkdumpfile/xlatopt"
)

// InitLinuxI386 populates a System for Linux/i386, selecting the
// 2-level classic form or the 3-level PAE form per the pae argument,
// mirroring InitLinuxX8664's structure at a smaller scale.
func InitLinuxI386(opts xlatopt.Options, pae bool) (*System, kerr.Status) {
	if opts.RootPGT.Space == kaddr.NOADDR {
		return nil, kerr.INVALID
	}

	form := pgform.IA32Form()
	if pae {
		form = pgform.IA32PAEForm()
	}

	sys := New("i386", "linux")
	sys.SetMethod(MethRootPGT, xlatmeth.NewPGT(form, opts.RootPGT, opts.PTEMask, kaddr.KPHYSADDR))
	sys.Map(KVToKPhys).Set(0, ^uint64(0), MethRootPGT)

	sys.SetMethod(MethDirect, xlatmeth.NewLinear(-int64(opts.PhysBase), kaddr.KPHYSADDR))
	sys.Map(KPhysToDirect).Set(0, ^uint64(0), MethDirect)

	sys.SetMethod(MethMachPhysToKPhys, xlatmeth.NewLinear(0, kaddr.KPHYSADDR))
	sys.SetMethod(MethKPhysToMachPhys, xlatmeth.NewLinear(0, kaddr.MACHPHYSADDR))
	sys.Map(MachPhysToKPhys).Set(0, ^uint64(0), MethMachPhysToKPhys)
	sys.Map(KPhysToMachPhys).Set(0, ^uint64(0), MethKPhysToMachPhys)

	return sys, kerr.OK
}
