// Package memsrc provides host-collaborator GetPage/PutPage
// implementations a Context can be built from: an in-memory byte
// slice for tests and demos, and a live /dev/mem-style mapped-memory
// reader. Neither parses any on-disk dump format -- that remains an
// external collaborator's job.
package memsrc

import (
	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/kread"
	"github.com/delphix/libkdumpfile/xlatmeth"
)

// Slice is a flat byte-slice-backed memory image, addressed by an
// offset from Base. It implements the GetPage/PutPage shape directly
// (PutPage is a no-op: nothing is borrowed from an external
// allocator).
type Slice struct {
	Base  uint64
	Data  []byte
	Order xlatmeth.ByteOrder
}

// NewSlice wraps data as a flat memory image starting at base.
func NewSlice(base uint64, data []byte, order xlatmeth.ByteOrder) *Slice {
	return &Slice{Base: base, Data: data, Order: order}
}

// GetPage implements kread.GetPageFunc: any address within the slice
// is served by a buffer over the entire underlying array, since
// there's no real paging boundary to respect in a flat in-memory
// image.
func (s *Slice) GetPage(space kaddr.Space, addr uint64) (kread.Buffer, kerr.Status) {
	if addr < s.Base || addr >= s.Base+uint64(len(s.Data)) {
		return kread.Buffer{}, kerr.NODATA
	}
	return kread.Buffer{Addr: s.Base, Size: len(s.Data), Ptr: s.Data, Order: s.Order}, kerr.OK
}

// PutPage implements kread.PutPageFunc.
func (s *Slice) PutPage(kaddr.Space, kread.Buffer) {}
