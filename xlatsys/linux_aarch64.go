package xlatsys

import (
	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/pgform"
	"github.com/delphix/libkdumpfile/xlatmeth"
	"github.com/delphix/libkdumpfile/xlatopt"
)

// InitLinuxAArch64 populates a System for Linux/aarch64, mirroring
// the x86-64 layout: a PGT kernel-virtual root walk, a linear direct
// map, and identity machphys<->kphys.
func InitLinuxAArch64(opts xlatopt.Options) (*System, kerr.Status) {
	if opts.RootPGT.Space == kaddr.NOADDR {
		return nil, kerr.INVALID
	}

	form := pgform.AArch64Form4K()
	sys := New("aarch64", "linux")

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
