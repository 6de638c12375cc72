//go:build linux

package memsrc

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/kread"
	"github.com/delphix/libkdumpfile/xlatmeth"
)

// devMemPageSize is the mmap granule DevMem widens every request to.
const devMemPageSize = 4096

// DevMem serves pages from a live system's physical memory via
// /dev/mem, mapped with golang.org/x/sys/unix.Mmap. Only machine- and
// kernel-physical addresses make sense here; it never interprets
// kernel virtual addresses itself.
type DevMem struct {
	f     *os.File
	order xlatmeth.ByteOrder

	mu  sync.Mutex
	out map[uint64][]byte // page-aligned base -> mapped window
}

// OpenDevMem opens path (typically "/dev/mem") for page-granularity
// mmap-backed reads.
func OpenDevMem(path string, order xlatmeth.ByteOrder) (*DevMem, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return &DevMem{f: f, order: order, out: map[uint64][]byte{}}, nil
}

// Close unmaps every outstanding window and closes the device.
func (d *DevMem) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for base, m := range d.out {
		unix.Munmap(m)
		delete(d.out, base)
	}
	return d.f.Close()
}

// GetPage implements kread.GetPageFunc, mapping one page covering
// addr with mmap and handing back the live-mapped byte slice.
func (d *DevMem) GetPage(space kaddr.Space, addr uint64) (kread.Buffer, kerr.Status) {
	if space != kaddr.KPHYSADDR && space != kaddr.MACHPHYSADDR {
		return kread.Buffer{}, kerr.NOTIMPL
	}
	base := addr &^ (devMemPageSize - 1)

	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.out[base]; ok {
		return kread.Buffer{Addr: base, Size: len(m), Ptr: m, Order: d.order}, kerr.OK
	}

	m, err := unix.Mmap(int(d.f.Fd()), int64(base), devMemPageSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return kread.Buffer{}, kerr.System(int(errnoOf(err)))
	}
	d.out[base] = m
	return kread.Buffer{Addr: base, Size: len(m), Ptr: m, Order: d.order}, kerr.OK
}

// PutPage implements kread.PutPageFunc; the underlying mapping stays
// live until Close so repeated reads of a hot page avoid remapping.
func (d *DevMem) PutPage(kaddr.Space, kread.Buffer) {}

func errnoOf(err error) int {
	if errno, ok := err.(unix.Errno); ok {
		return int(errno)
	}
	return -1
}
