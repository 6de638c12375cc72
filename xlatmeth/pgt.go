package xlatmeth

import (
	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/pgform"
)

// ppc64MMUPageShift is the 14-entry MMU page-size-code table a "huge
// page directory" entry's low six bits select from (Linux's
// mmu_psize_defs shift values).
var ppc64MMUPageShift = [14]uint{
	12, 14, 16, 16, 18, 20, 22, 23, 24, 26, 28, 30, 34, 36,
}

const (
	ppc64HugePTEMask  = 0x3 // bottom two bits of a PPC64 Linux PTE
	ppc64HugePDTopBit = 1 << 63
	ppc64RPNShift     = 30
	ppc64PDShiftMask  = 0x3f
)

// stepPGT walks one level of a page table. state.Base holds the
// current table's full address; state.Idx[state.Remain] is the index
// into it; state.ElemSz reflects the format's PTE width.
func stepPGT(st *StepState) kerr.Status {
	m := st.Method
	form := m.Form
	pteSize := uint64(form.Format.PTESize())
	st.ElemSz = int(pteSize)
	level := st.Remain

	pteAddr := kaddr.Addr{Space: st.Base.Space, Value: st.Base.Value + st.Idx[level]*pteSize}

	var raw uint64
	var status kerr.Status
	if pteSize == 4 {
		var v32 uint32
		v32, status = st.Reader.Read32(pteAddr, "pte")
		raw = uint64(v32)
	} else {
		raw, status = st.Reader.Read64(pteAddr, "pte")
	}
	if status != kerr.OK {
		return status
	}
	if m.PTEMask != 0 {
		raw &= m.PTEMask
	}
	st.Raw = raw

	switch form.Format {
	case pgform.PPC64LinuxRPN30:
		return stepPPC64(st, raw, level)
	default:
		return stepGeneric(st, raw, level)
	}
}

// notPresent reports whether raw signals an absent entry for format.
func notPresent(format pgform.PTEFormat, raw uint64) bool {
	switch format {
	case pgform.PFN32, pgform.PFN64:
		return raw == 0
	case pgform.IA32:
		return raw&0x1 == 0
	case pgform.IA32PAE, pgform.X86_64:
		return raw&0x1 == 0
	case pgform.AARCH64, pgform.AARCH64LPA, pgform.AARCH64LPA2:
		return raw&0x3 == 0 // bits 0-1 == 0b00: invalid
	case pgform.S390X:
		return raw&0x400 != 0 // bit position of the invalid marker
	default:
		return raw == 0
	}
}

// isHugeAtLevel reports whether raw terminates the walk early (a
// block/huge-page entry) at a non-final level, per format.
func isHugeAtLevel(format pgform.PTEFormat, raw uint64, level int) bool {
	if level <= 1 {
		return false // the final level always terminates regardless
	}
	switch format {
	case pgform.IA32:
		return raw&(1<<7) != 0
	case pgform.IA32PAE, pgform.X86_64:
		return raw&(1<<7) != 0
	case pgform.AARCH64, pgform.AARCH64LPA, pgform.AARCH64LPA2:
		return raw&0x3 == 0x1 // 0b01: block entry
	case pgform.S390X:
		return raw&0x800 != 0 // large-page marker
	default:
		return false
	}
}

// stepGeneric implements the non-PPC64 PGT formats: PFN32/PFN64,
// IA32, IA32_PAE, X86_64, AARCH64(+LPA/LPA2), S390X.
func stepGeneric(st *StepState, raw uint64, level int) kerr.Status {
	m := st.Method
	form := m.Form

	if notPresent(form.Format, raw) {
		return kerr.NOTPRESENT
	}

	if level == 1 || isHugeAtLevel(form.Format, raw, level) {
		return terminateGeneric(st, raw, level)
	}

	// Intermediate level: compute the next table's address and keep
	// walking. Intermediate table addresses are tagged KVADDR
	// uniformly across every format, not just the ones where the raw
	// walk naturally lands there.
	tableAddr := maskPTEAddr(form.Format, raw)
	st.Base = kaddr.Addr{Space: kaddr.KVADDR, Value: tableAddr}
	st.Remain--
	return kerr.OK
}

// terminateGeneric finalizes the walk at a leaf or huge-page entry,
// squashing any skipped lower-level indices into the page offset.
func terminateGeneric(st *StepState, raw uint64, level int) kerr.Status {
	m := st.Method
	form := m.Form

	frameAddr := maskPTEAddr(form.Format, raw)

	// Squash idx[1..level-1], which would have indexed levels the
	// huge-page short-circuit skipped, into the intra-page offset.
	offset := st.Idx[0]
	shift := form.OffsetBits()
	for i := 1; i < level; i++ {
		offset |= st.Idx[i] << shift
		shift += uint(form.FieldSizes[i])
	}

	st.Base = kaddr.Addr{Space: m.TargetAS, Value: frameAddr}
	st.Idx[0] = offset
	st.ElemSz = 1
	return kerr.OK
}

// maskPTEAddr extracts the address bits (next-table pointer or frame
// base) from a raw PTE, stripping format-specific flag bits.
func maskPTEAddr(format pgform.PTEFormat, raw uint64) uint64 {
	switch format {
	case pgform.PFN32, pgform.PFN64:
		return raw
	case pgform.IA32:
		return raw &^ 0xfff
	case pgform.IA32PAE, pgform.X86_64:
		return raw &^ 0xfff & 0x000f_ffff_ffff_f000
	case pgform.AARCH64, pgform.AARCH64LPA, pgform.AARCH64LPA2:
		return raw &^ 0xfff
	case pgform.S390X:
		return raw &^ 0xfff
	default:
		return raw
	}
}

// stepPPC64 implements the Linux-on-PPC64 RADIX-30 paging form, with
// its two complications over the generic walker: a "huge PTE" marker
// terminating with an RPN shifted by ppc64RPNShift, and a "huge page
// directory" marker whose bits 2-5 select an MMU page-size code from
// a 14-entry shift table.
func stepPPC64(st *StepState, raw uint64, level int) kerr.Status {
	m := st.Method

	if raw == 0 {
		return kerr.NOTPRESENT
	}

	if level == 1 && st.PDShift != 0 {
		// The read at the index computed beneath a huge page
		// directory: the entry found there is itself a huge PTE
		// sized by PDShift.
		shift := st.PDShift
		st.PDShift = 0
		return stepPPC64HugePTEAt(st, raw, shift)
	}

	if level > 1 && raw&ppc64HugePTEMask != 0 {
		// Huge PTE: terminate now, RPN shifted by the fixed amount.
		frameAddr := (raw >> ppc64RPNShift) << m.Form.FieldSizes[0]
		offset := st.Idx[0]
		shift := m.Form.OffsetBits()
		for i := 1; i < level; i++ {
			offset |= st.Idx[i] << shift
			shift += uint(m.Form.FieldSizes[i])
		}
		st.Base = kaddr.Addr{Space: m.TargetAS, Value: frameAddr}
		st.Idx[0] = offset
		st.ElemSz = 1
		return kerr.OK
	}

	if level > 1 && raw&ppc64HugePDTopBit == 0 {
		// Huge page directory: bits 2-5 select an MMU page-size code
		// from the 14-entry shift table (bits 0-1 are reserved),
		// which determines how the huge page table beneath it is
		// sized and indexed.
		code := (raw & ppc64PDShiftMask) >> 2
		if code >= uint64(len(ppc64MMUPageShift)) {
			return kerr.INVALID
		}
		pdshift := ppc64MMUPageShift[code]

		pdAddr := (raw &^ ppc64PDShiftMask) | ppc64HugePDTopBit
		offset := st.Idx[0]
		s := m.Form.OffsetBits()
		for i := 1; i < level; i++ {
			offset |= st.Idx[i] << s
			s += uint(m.Form.FieldSizes[i])
		}

		st.Base = kaddr.Addr{Space: kaddr.KVADDR, Value: pdAddr}
		st.Idx[1] = offset >> pdshift
		st.Idx[0] = offset & (uint64(1)<<pdshift - 1)
		st.PDShift = pdshift
		st.Remain = 1
		return kerr.OK
	}

	if level == 1 {
		rpnShift := uint(ppc64RPNShift)
		frameAddr := (raw >> rpnShift) << m.Form.FieldSizes[0]
		st.Base = kaddr.Addr{Space: m.TargetAS, Value: frameAddr}
		st.ElemSz = 1
		return kerr.OK
	}

	tableSize := uint64(1) << (3 + m.Form.FieldSizes[level-1])
	tableAddr := raw &^ (tableSize - 1)
	st.Base = kaddr.Addr{Space: kaddr.KVADDR, Value: tableAddr}
	st.Remain--
	return kerr.OK
}

// stepPPC64HugePTEAt terminates a walk that passed through a huge
// page directory: the RPN is shifted by the MMU page-size code's
// shift rather than the fixed ppc64RPNShift.
func stepPPC64HugePTEAt(st *StepState, raw uint64, shift uint) kerr.Status {
	m := st.Method
	frameAddr := (raw >> ppc64RPNShift) << shift
	st.Base = kaddr.Addr{Space: m.TargetAS, Value: frameAddr}
	st.Idx[0] &= (uint64(1) << shift) - 1
	st.ElemSz = 1
	return kerr.OK
}
