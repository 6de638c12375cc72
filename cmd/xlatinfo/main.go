// Command xlatinfo loads a translation configuration (environment,
// YAML, and command-line overrides, in that precedence), assembles a
// System for the requested architecture, dumps it, and optionally
// translates one address against a memory image.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/delphix/libkdumpfile/diag"
	"github.com/delphix/libkdumpfile/kaddr"
	"github.com/delphix/libkdumpfile/kerr"
	"github.com/delphix/libkdumpfile/kread"
	"github.com/delphix/libkdumpfile/memsrc"
	"github.com/delphix/libkdumpfile/xlatmeth"
	"github.com/delphix/libkdumpfile/xlatop"
	"github.com/delphix/libkdumpfile/xlatopt"
	"github.com/delphix/libkdumpfile/xlatsys"
	"github.com/delphix/libkdumpfile/xlattext"
)

func main() {
	arch := flag.String("arch", "x86_64", "target architecture: x86_64, i386, aarch64, ppc64, s390x")
	yamlPath := flag.String("config", "", "optional YAML configuration file")
	kv := flag.String("opts", "", "key=value configuration overrides, e.g. \"rootpgt=KPHYSADDR:0x1000 levels=4\"")
	memPath := flag.String("devmem", "", "read physical memory from this device instead of dumping only")
	translate := flag.String("translate", "", "full address to translate, e.g. KVADDR:0xffff800012345678")
	target := flag.String("target", "KPHYSADDR", "address space to translate into")
	profile := flag.String("profile", "", "write a pprof step profile to this path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	opts, status := xlatopt.LoadLayered(*yamlPath, *kv)
	if status != kerr.OK {
		logger.Error("failed to load configuration", "status", status)
		os.Exit(1)
	}

	sys, status := initSystem(*arch, opts)
	if status != kerr.OK {
		logger.Error("failed to initialize system", "arch", *arch, "status", status)
		os.Exit(1)
	}

	if err := xlattext.Dump(os.Stdout, sys); err != nil {
		logger.Error("failed to dump system", "error", err)
		os.Exit(1)
	}

	if *translate == "" {
		return
	}

	addr, ok := parseFullAddr(*translate)
	if !ok {
		logger.Error("invalid --translate address", "value", *translate)
		os.Exit(1)
	}
	targetSpace, ok := kaddr.ParseSpace(*target)
	if !ok {
		logger.Error("invalid --target space", "value", *target)
		os.Exit(1)
	}

	ctx, closeCtx, status := buildContext(*memPath)
	if status != kerr.OK {
		logger.Error("failed to open memory source", "devmem", *memPath, "status", status)
		os.Exit(1)
	}
	defer closeCtx()

	profiler := diag.NewStepProfiler()
	eng := &xlatop.Engine{Ctx: ctx, Sys: sys, Profiler: profiler}

	result, status := eng.Translate(addr, targetSpace)
	if status != kerr.OK {
		logger.Error("translate failed", "addr", addr, "status", status)
		os.Exit(1)
	}
	fmt.Printf("%s -> %s\n", addr, result)

	if *profile != "" {
		f, err := os.Create(*profile)
		if err != nil {
			logger.Error("failed to create profile file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := profiler.Write(f); err != nil {
			logger.Error("failed to write profile", "error", err)
			os.Exit(1)
		}
	}
}

func initSystem(arch string, opts xlatopt.Options) (*xlatsys.System, kerr.Status) {
	switch arch {
	case "x86_64":
		return xlatsys.InitLinuxX8664(opts, 48, false)
	case "i386":
		return xlatsys.InitLinuxI386(opts, true)
	case "aarch64":
		return xlatsys.InitLinuxAArch64(opts)
	case "ppc64":
		return xlatsys.InitLinuxPPC64(opts, nil)
	case "s390x":
		return xlatsys.InitLinuxS390X(opts)
	default:
		return nil, kerr.NOTIMPL
	}
}

// buildContext opens a read context over /dev/mem-style live memory
// when devmem is set, otherwise an empty context useful only for
// dumping a System's layout.
func buildContext(devmem string) (*kread.Context, func(), kerr.Status) {
	if devmem == "" {
		empty := func(kaddr.Space, uint64) (kread.Buffer, kerr.Status) { return kread.Buffer{}, kerr.NODATA }
		ctx := kread.NewContext(empty, func(kaddr.Space, kread.Buffer) {}, nil, 0)
		return ctx, func() {}, kerr.OK
	}

	dm, err := memsrc.OpenDevMem(devmem, xlatmeth.HostEndian)
	if err != nil {
		return nil, func() {}, kerr.System(0)
	}
	ctx := kread.NewContext(dm.GetPage, dm.PutPage, nil, kaddr.CapKPhys|kaddr.CapMachPhys)
	return ctx, func() { dm.Close() }, kerr.OK
}

// parseFullAddr accepts "SPACE:0xHEX" for the command-line --translate
// flag, reusing the same grammar the key=value option parser accepts
// for a rootpgt value.
func parseFullAddr(s string) (kaddr.Addr, bool) {
	opts, status := xlatopt.Parse("rootpgt=" + s)
	if status != kerr.OK {
		return kaddr.None, false
	}
	return kaddr.Addr{Space: opts.RootPGT.Space, Value: opts.RootPGT.Value}, true
}
