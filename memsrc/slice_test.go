package memsrc_test

import (
	"testing"

	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/kread"
	"github.com/delphix/libkdumpfile/memsrc"
	"github.com/delphix/libkdumpfile/xlatmeth"
)

func TestSliceRoundTrip(t *testing.T) {
	data := make([]byte, 0x100)
	data[0x10] = 0x42
	s := memsrc.NewSlice(0x1000, data, xlatmeth.LittleEndian)
	ctx := kread.NewContext(s.GetPage, s.PutPage, nil, kaddr.CapKPhys)

	v, status := ctx.DoRead32(kaddr.Addr{Space: kaddr.KPHYSADDR, Value: 0x1010}, "test")
	if status != kerr.OK {
		t.Fatalf("DoRead32 = %v", status)
	}
	if v != 0x42 {
		t.Fatalf("v = %#x, want 0x42", v)
	}
}

func TestSliceOutOfRange(t *testing.T) {
	s := memsrc.NewSlice(0x1000, make([]byte, 0x10), xlatmeth.LittleEndian)
	if _, status := s.GetPage(kaddr.KPHYSADDR, 0x5000); status != kerr.NODATA {
		t.Fatalf("GetPage(out of range) = %v, want NODATA", status)
	}
}
