package xlatopt

import (
	"os"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"github.com/delphix/libkdumpfile/kerr"
)

// yamlLayer mirrors the subset of Options a YAML config file may set;
// all fields are optional pointers so a layer only overrides what it
// explicitly mentions.
type yamlLayer struct {
	Levels    *int    `yaml:"levels"`
	PageSize  *uint64 `yaml:"pagesize"`
	PhysBase  *uint64 `yaml:"phys_base"`
	RootPGT   *string `yaml:"rootpgt"`
	XenP2MMFN *uint64 `yaml:"xen_p2m_mfn"`
	XenXlat   *bool   `yaml:"xen_xlat"`
	PTEMask   *uint64 `yaml:"pte_mask"`
}

// envPrefix namespaces every environment-variable override this
// package recognizes.
const envPrefix = "ADDRXLAT_"

// LoadLayered builds an Options bundle from three sources in
// increasing precedence: environment variables, an optional YAML
// file, and a key=value string -- the same grammar Parse accepts.
// Any source may be empty.
func LoadLayered(yamlPath, kv string) (Options, kerr.Status) {
	opts := Options{set: map[string]bool{}}

	applyEnv(&opts)

	if yamlPath != "" {
		if status := applyYAML(&opts, yamlPath); status != kerr.OK {
			return opts, status
		}
	}

	if kv != "" {
		kvOpts, status := Parse(kv)
		if status != kerr.OK {
			return opts, status
		}
		merge(&opts, kvOpts)
	}

	return opts, kerr.OK
}

// LoadYAML builds an Options bundle from a YAML file alone.
func LoadYAML(path string) (Options, kerr.Status) {
	opts := Options{set: map[string]bool{}}
	if status := applyYAML(&opts, path); status != kerr.OK {
		return opts, status
	}
	return opts, kerr.OK
}

// FromEnv builds an Options bundle from ADDRXLAT_*-prefixed
// environment variables alone.
func FromEnv() Options {
	opts := Options{set: map[string]bool{}}
	applyEnv(&opts)
	return opts
}

func applyEnv(o *Options) {
	if env.Has(envPrefix + "LEVELS") {
		o.Levels = env.Int(envPrefix + "LEVELS")
		o.set["levels"] = true
	}
	if v := env.Str(envPrefix + "PAGESIZE"); v != "" {
		if n, status := parseUintEnv(v); status == kerr.OK {
			o.PageSize = n
			o.set["pagesize"] = true
		}
	}
	if v := env.Str(envPrefix + "PHYS_BASE"); v != "" {
		if n, status := parseUintEnv(v); status == kerr.OK {
			o.PhysBase = n
			o.set["phys_base"] = true
		}
	}
	if env.Bool(envPrefix + "XEN_XLAT") {
		o.XenXlat = true
		o.set["xen_xlat"] = true
	}
}

func parseUintEnv(v string) (uint64, kerr.Status) {
	fa, status := parseFullAddr(v)
	if status != kerr.OK {
		return 0, status
	}
	return fa.Value, kerr.OK
}

func applyYAML(o *Options, path string) kerr.Status {
	data, err := os.ReadFile(path)
	if err != nil {
		return kerr.NODATA
	}
	var layer yamlLayer
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return kerr.INVALID
	}
	if layer.Levels != nil {
		o.Levels = *layer.Levels
		o.set["levels"] = true
	}
	if layer.PageSize != nil {
		o.PageSize = *layer.PageSize
		o.set["pagesize"] = true
	}
	if layer.PhysBase != nil {
		o.PhysBase = *layer.PhysBase
		o.set["phys_base"] = true
	}
	if layer.RootPGT != nil {
		fa, status := parseFullAddr(*layer.RootPGT)
		if status != kerr.OK {
			return status
		}
		o.RootPGT = fa
		o.set["rootpgt"] = true
	}
	if layer.XenP2MMFN != nil {
		o.XenP2MMFN = *layer.XenP2MMFN
		o.set["xen_p2m_mfn"] = true
	}
	if layer.XenXlat != nil {
		o.XenXlat = *layer.XenXlat
		o.set["xen_xlat"] = true
	}
	if layer.PTEMask != nil {
		o.PTEMask = *layer.PTEMask
		o.set["pte_mask"] = true
	}
	return kerr.OK
}

// merge overlays src's explicitly-set fields onto dst.
func merge(dst *Options, src Options) {
	if src.IsSet("levels") {
		dst.Levels = src.Levels
		dst.set["levels"] = true
	}
	if src.IsSet("pagesize") {
		dst.PageSize = src.PageSize
		dst.set["pagesize"] = true
	}
	if src.IsSet("phys_base") {
		dst.PhysBase = src.PhysBase
		dst.set["phys_base"] = true
	}
	if src.IsSet("rootpgt") {
		dst.RootPGT = src.RootPGT
		dst.set["rootpgt"] = true
	}
	if src.IsSet("xen_p2m_mfn") {
		dst.XenP2MMFN = src.XenP2MMFN
		dst.set["xen_p2m_mfn"] = true
	}
	if src.IsSet("xen_xlat") {
		dst.XenXlat = src.XenXlat
		dst.set["xen_xlat"] = true
	}
	if src.IsSet("pte_mask") {
		dst.PTEMask = src.PTEMask
		dst.set["pte_mask"] = true
	}
}
