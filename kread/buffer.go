// Package kread implements the per-session Context: user callbacks,
// the N=4 LRU read cache over them, the accreting error buffer, and
// direct (non-translating) byte-order-aware reads. The
// buffer-ownership shape follows a circular-buffer-of-borrowed-windows
// idiom, generalized here to a small fixed ring of pages instead of
// raw bytes.
package kread

import "github.com/delphix/libkdumpfile/xlatmeth"

// Buffer is one window of memory borrowed from the host via GetPage,
// covering [Addr, Addr+Size) in the space GetPage was asked about.
type Buffer struct {
	Addr  uint64
	Size  int
	Ptr   []byte
	Order xlatmeth.ByteOrder
}

// contains reports whether the buffer covers [addr, addr+width).
func (b *Buffer) contains(addr uint64, width int) bool {
	if b.Ptr == nil {
		return false
	}
	end := b.Addr + uint64(b.Size)
	return addr >= b.Addr && addr+uint64(width) <= end
}
