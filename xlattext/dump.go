// Package xlattext renders a System's method table and direction maps
// as human-readable text, the sort of dump a CLI's "show me what got
// configured" subcommand prints. Numeric formatting goes through
// golang.org/x/text/message so range sizes and range counts come out
// with locale-aware grouping instead of a bare strconv.Itoa.
package xlattext

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/delphix/libkdumpfile/xlatmap"
	"github.com/delphix/libkdumpfile/xlatmeth"
	"github.com/delphix/libkdumpfile/xlatsys"
)

// Dump writes a full textual description of sys to w: one section per
// direction map, each mapped range's address span and target method
// (unmapped ranges are counted but not listed), then one line per
// populated method slot.
func Dump(w io.Writer, sys *xlatsys.System) error {
	p := message.NewPrinter(language.English)

	if _, err := p.Fprintf(w, "system %s/%s\n", sys.Arch(), sys.OS()); err != nil {
		return err
	}

	for _, dir := range xlatsys.Directions() {
		m := sys.Map(dir)
		if _, err := p.Fprintf(w, "\nmap %s (%d ranges):\n", dir, m.Len()); err != nil {
			return err
		}
		for _, t := range m.Tiles() {
			if t.Method == xlatmap.NoMethod {
				continue
			}
			if err := dumpTile(p, w, t); err != nil {
				return err
			}
		}
	}

	if _, err := p.Fprintf(w, "\nmethods:\n"); err != nil {
		return err
	}
	return dumpMethods(p, w, sys)
}

func dumpTile(p *message.Printer, w io.Writer, t xlatmap.Tile) error {
	_, err := p.Fprintf(w, "  [%#016x, %#016x] (%d bytes) -> method %d\n",
		t.Base, t.Base+t.EndOff, t.EndOff+1, t.Method)
	return err
}

func dumpMethods(p *message.Printer, w io.Writer, sys *xlatsys.System) error {
	names := map[int]string{
		xlatsys.MethRootPGT:         "root-pgt",
		xlatsys.MethUserPGT:         "user-pgt",
		xlatsys.MethDirect:          "direct",
		xlatsys.MethKernelText:      "kernel-text",
		xlatsys.MethVMemmap:         "vmemmap",
		xlatsys.MethReverseDirect:   "reverse-direct",
		xlatsys.MethMachPhysToKPhys: "machphys->kphys",
		xlatsys.MethKPhysToMachPhys: "kphys->machphys",
	}
	for idx := 0; idx < xlatsys.MethCustomBase+4; idx++ {
		meth, ok := sys.Method(idx)
		if !ok {
			continue
		}
		name := names[idx]
		if name == "" {
			name = fmt.Sprintf("custom-%d", idx)
		}
		if _, err := p.Fprintf(w, "  %-18s kind=%-6s target=%s%s\n",
			name, meth.Kind, meth.TargetAS, methodDetail(meth)); err != nil {
			return err
		}
	}
	return nil
}

func methodDetail(meth *xlatmeth.Method) string {
	switch meth.Kind {
	case xlatmeth.Linear:
		return fmt.Sprintf(" offset=%#x", meth.Offset)
	case xlatmeth.PGT:
		return fmt.Sprintf(" levels=%d root=%s", meth.Form.Levels(), meth.Root)
	case xlatmeth.Lookup:
		return fmt.Sprintf(" entries=%d", len(meth.Entries))
	case xlatmeth.MemArr:
		return fmt.Sprintf(" base=%s shift=%d", meth.Base, meth.Shift)
	default:
		return ""
	}
}
