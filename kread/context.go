package kread

import (
	"fmt"
	"log/slog"

	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/xlatmeth"
)

// GetPageFunc fills a Buffer covering addr in space, mirroring the
// get_page host callback. The host may widen addr down to its own
// alignment and report the actual covered window in the result.
type GetPageFunc func(space kaddr.Space, addr uint64) (Buffer, kerr.Status)

// PutPageFunc releases a Buffer previously returned by a GetPageFunc.
type PutPageFunc func(space kaddr.Space, buf Buffer)

// SymKind selects which symbol-resolution question Sym answers.
type SymKind int

const (
	SymReg SymKind = iota
	SymValue
	SymSizeof
	SymOffsetof
	SymNumber
)

// SymFunc resolves one host symbol query; args has length 1 except
// for SymOffsetof, which takes two (struct, field).
type SymFunc func(kind SymKind, args ...string) (uint64, kerr.Status)

// Context is a per-session object holding the host's callbacks, the
// N=4 read cache over them, an accreting error buffer, and the
// address-space capability mask (read_caps).
type Context struct {
	GetPage GetPageFunc
	PutPage PutPageFunc
	Sym     SymFunc

	ReadCaps kaddr.Caps
	// SuppressNotPresent mirrors the noerr.notpresent knob: when
	// set, a NOTPRESENT result skips error-message formatting, used
	// by probing walks that treat absence as routine.
	SuppressNotPresent bool

	Log *slog.Logger

	cache *cache
	err   kerr.Buf
	refs  int
}

// NewContext builds a Context with default (discard) logging; callers
// typically replace Log with a real slog.Logger wired to their host
// application's handler.
func NewContext(getPage GetPageFunc, putPage PutPageFunc, sym SymFunc, caps kaddr.Caps) *Context {
	return &Context{
		GetPage:  getPage,
		PutPage:  putPage,
		Sym:      sym,
		ReadCaps: caps,
		Log:      slog.New(slog.NewTextHandler(discardWriter{}, nil)),
		cache:    newCache(),
		refs:     1,
	}
}

// CanServe reports whether ReadCaps covers space directly.
func (c *Context) CanServe(space kaddr.Space) bool {
	return c.ReadCaps.Has(space)
}

// Ref increments the context's reference count (plain, non-atomic;
// callers sharing across threads provide external atomicity).
func (c *Context) Ref() {
	c.refs++
}

// Unref decrements the reference count, releasing every cached
// buffer via PutPage when it reaches zero.
func (c *Context) Unref() {
	c.refs--
	if c.refs > 0 {
		return
	}
	for i := range c.cache.slots {
		s := &c.cache.slots[i]
		if s.filled {
			c.PutPage(s.space, s.buf)
			s.filled = false
		}
	}
}

// Err returns the most recent error buffer contents.
func (c *Context) Err() error {
	return c.err.Err()
}

// ClearErr resets the error buffer.
func (c *Context) ClearErr() {
	c.err.Clear()
}

// fail records status as the innermost error message, honoring
// SuppressNotPresent for the routine-absence hot path.
func (c *Context) fail(status kerr.Status, format string, args ...any) kerr.Status {
	if status == kerr.NOTPRESENT && c.SuppressNotPresent {
		return status
	}
	return c.err.Set(status, format, args...)
}

// wrap prefixes a higher-layer explanation onto whatever a callee
// already buffered, prefixing it onto whatever a lower layer reported.
func (c *Context) wrap(status kerr.Status, format string, args ...any) kerr.Status {
	if status == kerr.NOTPRESENT && c.SuppressNotPresent {
		return status
	}
	return c.err.Wrap(format, args...)
}

// ensureSlot returns the buffer covering [addr, addr+width) in space,
// fetching or evicting a slot per the cache's LRU policy.
func (c *Context) ensureSlot(space kaddr.Space, addr uint64, width int) (*Buffer, kerr.Status) {
	if i := c.cache.find(space, addr, width); i >= 0 {
		c.cache.promote(i)
		return &c.cache.slots[i].buf, kerr.OK
	}

	i := c.cache.lru()
	s := &c.cache.slots[i]
	if s.filled {
		c.PutPage(s.space, s.buf)
		s.filled = false
	}

	buf, status := c.GetPage(space, addr)
	if status != kerr.OK {
		return nil, c.fail(status, "get_page(%s:%#x)", space, addr)
	}
	s.space = space
	s.buf = buf
	s.filled = true
	c.cache.promote(i)
	c.Log.Debug("cache fill", "space", space.String(), "addr", fmt.Sprintf("%#x", addr))
	return &s.buf, kerr.OK
}

// DoRead32 reads a little/big/host-ordered 32-bit value directly out
// of the cache; callers must have already established CanServe(addr
// .Space) or translated addr into a servable space.
func (c *Context) DoRead32(addr kaddr.Addr, what string) (uint32, kerr.Status) {
	buf, status := c.ensureSlot(addr.Space, addr.Value, 4)
	if status != kerr.OK {
		return 0, c.wrap(status, "read32(%s) %s", addr, what)
	}
	off := int(addr.Value - buf.Addr)
	return xlatmeth.Read32(buf.Ptr, off, buf.Order), kerr.OK
}

// DoRead64 is DoRead32's 64-bit counterpart.
func (c *Context) DoRead64(addr kaddr.Addr, what string) (uint64, kerr.Status) {
	buf, status := c.ensureSlot(addr.Space, addr.Value, 8)
	if status != kerr.OK {
		return 0, c.wrap(status, "read64(%s) %s", addr, what)
	}
	off := int(addr.Value - buf.Addr)
	return xlatmeth.Read64(buf.Ptr, off, buf.Order), kerr.OK
}

// Bury biases the cache against re-promoting the slot currently
// covering addr in space, without releasing it -- a separate "bury"
// operation distinct from eviction. A no-op if no slot covers it.
func (c *Context) Bury(space kaddr.Space, addr uint64, width int) {
	if i := c.cache.find(space, addr, width); i >= 0 {
		c.cache.bury(i)
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
