// Package pgform describes page-table layouts: the PTE format tag and
// the per-level field-size vector that together fully specify how a
// PGT method walks a page table. The x86-64 constants (present/write/
// page-size bits) generalize to the closed set of per-architecture
// formats below.
package pgform

// MaxLevels bounds the number of page-table levels (plus the page
// offset) any supported format needs.
const MaxLevels = 6

// PTEFormat is the closed set of page-table-entry encodings the
// walker understands.
type PTEFormat int

const (
	// NoneFormat is the zero-value sentinel; a PGT method must never
	// carry it.
	NoneFormat PTEFormat = iota
	PFN32
	PFN64
	AARCH64
	AARCH64LPA
	AARCH64LPA2
	IA32
	IA32PAE
	X86_64
	S390X
	PPC64LinuxRPN30
)

var formatNames = map[PTEFormat]string{
	NoneFormat:      "none",
	PFN32:           "pfn32",
	PFN64:           "pfn64",
	AARCH64:         "aarch64",
	AARCH64LPA:      "aarch64-lpa",
	AARCH64LPA2:     "aarch64-lpa2",
	IA32:            "ia32",
	IA32PAE:         "ia32-pae",
	X86_64:          "x86_64",
	S390X:           "s390x",
	PPC64LinuxRPN30: "ppc64-linux-rpn30",
}

// String implements fmt.Stringer.
func (f PTEFormat) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return "pteformat(?)"
}

// PTESize returns the width in bytes of one page-table entry in this
// format: 4 for the 32-bit formats, 8 for everything else.
func (f PTEFormat) PTESize() int {
	switch f {
	case PFN32, IA32:
		return 4
	default:
		return 8
	}
}

// Form fully describes a page-table layout.
type Form struct {
	Format PTEFormat
	// FieldSizes holds the per-level field widths in bits, indexed
	// from the least significant: FieldSizes[0] is the page-offset
	// width, FieldSizes[i] for i>=1 is the index width at level i.
	FieldSizes [MaxLevels]uint8
	NFields    int
}

// NewForm builds a Form, validating that its fields sum to at most 64
// bits and that there are no more than MaxLevels of them.
func NewForm(format PTEFormat, fieldSizes ...uint8) (Form, bool) {
	if format == NoneFormat || len(fieldSizes) == 0 || len(fieldSizes) > MaxLevels {
		return Form{}, false
	}
	var f Form
	f.Format = format
	f.NFields = len(fieldSizes)
	var sum uint
	for i, sz := range fieldSizes {
		f.FieldSizes[i] = sz
		sum += uint(sz)
	}
	if sum > 64 {
		return Form{}, false
	}
	return f, true
}

// OffsetBits returns the page-offset width (FieldSizes[0]).
func (f Form) OffsetBits() uint {
	return uint(f.FieldSizes[0])
}

// Index extracts the table index for level (1-based; level 0 is the
// page-offset component, handled separately) out of a virtual address.
func (f Form) Index(addr uint64, level int) uint64 {
	var shift uint
	for i := 1; i < level; i++ {
		shift += uint(f.FieldSizes[i])
	}
	shift += f.OffsetBits()
	width := uint(f.FieldSizes[level])
	mask := uint64(1)<<width - 1
	return (addr >> shift) & mask
}

// Levels returns the number of table-walk levels above the page
// offset, i.e. NFields-1.
func (f Form) Levels() int {
	return f.NFields - 1
}

// X8664Levels4 is the standard 4-level x86-64 paging form (4KB pages).
func X8664Levels4() Form {
	f, _ := NewForm(X86_64, 12, 9, 9, 9, 9)
	return f
}

// X8664Levels5 is the 5-level x86-64 paging form used when
// virt_bits >= 57.
func X8664Levels5() Form {
	f, _ := NewForm(X86_64, 12, 9, 9, 9, 9, 9)
	return f
}

// IA32Form is the classic 2-level 32-bit x86 paging form.
func IA32Form() Form {
	f, _ := NewForm(IA32, 12, 10, 10)
	return f
}

// IA32PAEForm is the 3-level PAE paging form.
func IA32PAEForm() Form {
	f, _ := NewForm(IA32PAE, 12, 9, 9, 2)
	return f
}

// AArch64Form4K is the 4-level, 4KB-granule AArch64 paging form.
func AArch64Form4K() Form {
	f, _ := NewForm(AARCH64, 12, 9, 9, 9, 9)
	return f
}

// PPC64Linux64K is the only supported ppc64 Linux form: 64KB pages,
// 3 table levels above the page offset.
func PPC64Linux64K() Form {
	f, _ := NewForm(PPC64LinuxRPN30, 16, 12, 12, 4)
	return f
}

// S390XForm is the 4-level s390x paging form (4KB pages, standard
// region/segment table widths).
func S390XForm() Form {
	f, _ := NewForm(S390X, 12, 8, 11, 11, 11)
	return f
}
