// Package kerr defines the error taxonomy shared by every layer of the
// address-translation engine and the accreting error-message buffer
// described for addrxlat contexts.
package kerr

import "fmt"

// Status is the closed set of translation-layer outcomes. Non-OK values
// are never synthesized into each other as they propagate; a layer may
// only prefix a message onto the one a lower layer produced.
type Status int

const (
	// OK means the operation succeeded; it is the only status that
	// clears a context's error buffer.
	OK Status = iota
	// NOTIMPL marks a requested feature or option combination the
	// engine does not support.
	NOTIMPL
	// NOTPRESENT marks a page-table entry (or lookup/memarr slot)
	// that says the requested address simply isn't mapped. This is
	// not a defect; map construction probes rely on it routinely.
	NOTPRESENT
	// INVALID marks malformed input or a malformed on-disk/in-memory
	// structure (e.g. a paging form whose field widths overflow 64
	// bits).
	INVALID
	// NOMEM marks an allocation failure.
	NOMEM
	// NODATA marks a callback that declined to provide data it was
	// asked for.
	NODATA
	// NOMETH marks a map direction with no method covering the
	// requested range.
	NOMETH

	// baseSystem is the first status value reserved for codes
	// propagated verbatim from a host callback (transport/OS errors).
	// Callers should not construct these directly; use System.
	baseSystem Status = 1000
)

// System wraps a callback-supplied error code too host-specific to
// name here, by offsetting it into a reserved range above every named
// status.
func System(code int) Status {
	return baseSystem + Status(code)
}

// IsSystem reports whether s came from System and, if so, the original
// code.
func (s Status) IsSystem() (int, bool) {
	if s < baseSystem {
		return 0, false
	}
	return int(s - baseSystem), true
}

var names = map[Status]string{
	OK:         "ok",
	NOTIMPL:    "not implemented",
	NOTPRESENT: "not present",
	INVALID:    "invalid",
	NOMEM:      "out of memory",
	NODATA:     "no data",
	NOMETH:     "no method",
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	if code, ok := s.IsSystem(); ok {
		return fmt.Sprintf("system error %d", code)
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Error implements the error interface so a bare Status can be returned
// and matched with errors.Is against the package sentinels.
func (s Status) Error() string {
	return s.String()
}

// StatusError pairs a Status with the accreted, human-readable message
// that explains it. It is what Context.Err returns.
type StatusError struct {
	Status Status
	Msg    string
}

func (e *StatusError) Error() string {
	if e.Msg == "" {
		return e.Status.String()
	}
	return e.Msg
}

// Unwrap lets errors.Is(err, kerr.NOTPRESENT) work on a *StatusError.
func (e *StatusError) Unwrap() error {
	return e.Status
}

// Buf accretes an error message by prefixing. Every layer that fails
// may prepend its own context onto the message a lower layer already
// produced; only a successful call resets it.
type Buf struct {
	status Status
	msg    string
}

// Set records status with msg as the innermost (first) message. It
// replaces whatever was previously buffered.
func (b *Buf) Set(status Status, format string, args ...any) Status {
	b.status = status
	if status == OK {
		b.msg = ""
		return OK
	}
	b.msg = fmt.Sprintf(format, args...)
	return status
}

// Wrap prefixes format (rendered with args) onto the currently buffered
// message, keeping the existing status. Used when a higher layer wants
// to add context to an error a callee already set via Set/Wrap.
func (b *Buf) Wrap(format string, args ...any) Status {
	if b.status == OK {
		return OK
	}
	prefix := fmt.Sprintf(format, args...)
	if b.msg == "" {
		b.msg = prefix
	} else {
		b.msg = prefix + ": " + b.msg
	}
	return b.status
}

// Clear resets the buffer to OK with no message.
func (b *Buf) Clear() {
	b.status = OK
	b.msg = ""
}

// Status returns the currently buffered status.
func (b *Buf) Status() Status {
	return b.status
}

// String returns the accreted human-readable message.
func (b *Buf) String() string {
	return b.msg
}

// Err converts the buffer into a *StatusError, or nil if OK.
func (b *Buf) Err() error {
	if b.status == OK {
		return nil
	}
	return &StatusError{Status: b.status, Msg: b.msg}
}
