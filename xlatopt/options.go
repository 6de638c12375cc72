// Package xlatopt implements a flat key=value option bundle parser,
// plus two ambient layering sources on top: environment-variable
// defaults and an optional YAML file, applied with precedence
// env < YAML < key=value string, narrowest wins.
package xlatopt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
)

// FullAddr is a parsed "SPACE:0xHEX" or bare-numeric option value.
type FullAddr struct {
	Space kaddr.Space
	Value uint64
}

// Options is the parsed option bundle an OS-init routine consumes.
type Options struct {
	Levels    int
	PageSize  uint64
	PhysBase  uint64
	RootPGT   FullAddr
	XenP2MMFN uint64
	XenXlat   bool
	PTEMask   uint64

	set map[string]bool
}

// IsSet reports whether key was present in the parsed input (as
// opposed to holding its zero value by default).
func (o *Options) IsSet(key string) bool {
	return o.set != nil && o.set[key]
}

// Parse implements a flat option-string grammar: POSIX
// whitespace-separated key=value tokens, optionally quoted with '
// or ", keys matched case-insensitively.
func Parse(input string) (Options, kerr.Status) {
	opts := Options{set: map[string]bool{}}
	tokens, status := tokenize(input)
	if status != kerr.OK {
		return opts, status
	}
	for _, tok := range tokens {
		key, value, status := splitKV(tok)
		if status != kerr.OK {
			return opts, status
		}
		if status := apply(&opts, strings.ToLower(key), value); status != kerr.OK {
			return opts, status
		}
		opts.set[strings.ToLower(key)] = true
	}
	return opts, kerr.OK
}

// splitKV divides "key=value" (value may be quoted); a missing value
// produces INVALID.
func splitKV(tok string) (key, value string, status kerr.Status) {
	i := strings.IndexByte(tok, '=')
	if i < 0 {
		return "", "", kerr.INVALID
	}
	key = tok[:i]
	value = tok[i+1:]
	if value == "" {
		return "", "", kerr.INVALID
	}
	return key, value, kerr.OK
}

// tokenize splits input on POSIX whitespace, honoring ' and " quoting.
func tokenize(input string) ([]string, kerr.Status) {
	var tokens []string
	var cur strings.Builder
	var quote byte
	inTok := false

	flush := func() {
		if inTok {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inTok = false
		}
	}

	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inTok = true
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		default:
			cur.WriteByte(c)
			inTok = true
		}
	}
	if quote != 0 {
		return nil, kerr.INVALID
	}
	flush()
	return tokens, kerr.OK
}

func apply(o *Options, key, value string) kerr.Status {
	switch key {
	case "levels":
		n, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			return kerr.INVALID
		}
		o.Levels = int(n)
	case "pagesize":
		n, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return kerr.INVALID
		}
		o.PageSize = n
	case "phys_base":
		n, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return kerr.INVALID
		}
		o.PhysBase = n
	case "rootpgt":
		fa, status := parseFullAddr(value)
		if status != kerr.OK {
			return status
		}
		o.RootPGT = fa
	case "xen_p2m_mfn":
		n, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return kerr.INVALID
		}
		o.XenP2MMFN = n
	case "xen_xlat":
		b, status := parseBool(value)
		if status != kerr.OK {
			return status
		}
		o.XenXlat = b
	case "pte_mask":
		n, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return kerr.INVALID
		}
		o.PTEMask = n
	default:
		return kerr.NOTIMPL
	}
	return kerr.OK
}

// parseFullAddr parses "SPACE:0xHEX" or a bare number (taken to be
// KPHYSADDR).
func parseFullAddr(s string) (FullAddr, kerr.Status) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		space, ok := kaddr.ParseSpace(s[:i])
		if !ok {
			return FullAddr{}, kerr.INVALID
		}
		n, err := strconv.ParseUint(s[i+1:], 0, 64)
		if err != nil {
			return FullAddr{}, kerr.INVALID
		}
		return FullAddr{Space: space, Value: n}, kerr.OK
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return FullAddr{}, kerr.INVALID
	}
	return FullAddr{Space: kaddr.KPHYSADDR, Value: n}, kerr.OK
}

// parseBool accepts yes|no|true|false|<nonzero|0>.
func parseBool(s string) (bool, kerr.Status) {
	switch strings.ToLower(s) {
	case "yes", "true":
		return true, kerr.OK
	case "no", "false":
		return false, kerr.OK
	default:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return false, kerr.INVALID
		}
		return n != 0, kerr.OK
	}
}

// Format renders opts back into the key=value form Parse accepts, so
// parse(format(opts)) == opts for any round-trippable bundle.
func Format(o Options) string {
	var parts []string
	if o.IsSet("levels") {
		parts = append(parts, fmt.Sprintf("levels=%d", o.Levels))
	}
	if o.IsSet("pagesize") {
		parts = append(parts, fmt.Sprintf("pagesize=0x%x", o.PageSize))
	}
	if o.IsSet("phys_base") {
		parts = append(parts, fmt.Sprintf("phys_base=0x%x", o.PhysBase))
	}
	if o.IsSet("rootpgt") {
		parts = append(parts, fmt.Sprintf("rootpgt=%s:0x%x", o.RootPGT.Space, o.RootPGT.Value))
	}
	if o.IsSet("xen_p2m_mfn") {
		parts = append(parts, fmt.Sprintf("xen_p2m_mfn=0x%x", o.XenP2MMFN))
	}
	if o.IsSet("xen_xlat") {
		parts = append(parts, fmt.Sprintf("xen_xlat=%t", o.XenXlat))
	}
	if o.IsSet("pte_mask") {
		parts = append(parts, fmt.Sprintf("pte_mask=0x%x", o.PTEMask))
	}
	return strings.Join(parts, " ")
}
