// Package features translates the host build's enabled features into the
// arguments understood by the kernel's build tool.
package features

import (
	"slices"
	"strings"
)

// Feature is a kernel feature that can be forwarded to the inner build.
type Feature string

const (
	ACPI     Feature = "acpi"
	DHCPv4   Feature = "dhcpv4"
	FSGSBase Feature = "fsgsbase"
	PCI      Feature = "pci"
	PCIIDs   Feature = "pci-ids"
	SMP      Feature = "smp"
	TCP      Feature = "tcp"
	UDP      Feature = "udp"
	Trace    Feature = "trace"
	VGA      Feature = "vga"
	RTL8139  Feature = "rtl8139"
	FS       Feature = "fs"
)

// Toggles that map to dedicated inner-build flags instead of being forwarded.
const (
	Instrument      = "instrument"
	RandomizeLayout = "randomize-layout"

	InstrumentFlag      = "--instrument-mcount"
	RandomizeLayoutFlag = "--randomize-layout"
	NoDefaultFeatures   = "--no-default-features"
	FeaturesFlag        = "--features"
)

const envPrefix = "CARGO_FEATURE_"

// Allowlist is the ordered set of features that are forwarded. The order is
// the order of the joined feature argument.
var Allowlist = []Feature{
	ACPI, DHCPv4, FSGSBase, PCI, PCIIDs, SMP, TCP, UDP, Trace, VGA, RTL8139, FS,
}

// Set is a set of enabled features.
type Set map[Feature]struct{}

// NewSet returns a set containing fs.
func NewSet(fs ...Feature) Set {
	s := make(Set, len(fs))
	for _, f := range fs {
		s[f] = struct{}{}
	}

	return s
}

// Has reports whether f is enabled.
func (s Set) Has(f Feature) bool {
	_, ok := s[f]

	return ok
}

// Sorted returns the enabled features ordered by the allowlist.
func (s Set) Sorted() []Feature {
	return Enabled(Allowlist, s)
}

// Strings returns [Set.Sorted] as plain strings.
func (s Set) Strings() []string {
	out := make([]string, 0, len(s))
	for _, f := range s.Sorted() {
		out = append(out, string(f))
	}

	return out
}

// EnvName returns the variable the host build sets when the named feature is
// enabled: upper-case, dashes replaced by underscores.
func EnvName(name string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// Lookup reports whether the named feature variable is present in environ.
// The value is irrelevant.
func Lookup(environ []string, name string) bool {
	key := EnvName(name) + "="

	return slices.ContainsFunc(environ, func(kv string) bool {
		return strings.HasPrefix(kv, key)
	})
}

// FromEnviron returns the allowlisted features enabled in environ.
func FromEnviron(environ []string) Set {
	s := NewSet()
	for _, f := range Allowlist {
		if Lookup(environ, string(f)) {
			s[f] = struct{}{}
		}
	}

	return s
}

// Enabled filters allowlist to the features in s, keeping allowlist order.
func Enabled(allowlist []Feature, s Set) []Feature {
	var out []Feature
	for _, f := range allowlist {
		if s.Has(f) {
			out = append(out, f)
		}
	}

	return out
}

// Args returns the feature argument for the inner build: a single combined,
// space-joined value. It returns nil when nothing is enabled so the inner tool
// never receives an empty feature list.
func Args(allowlist []Feature, s Set) []string {
	enabled := Enabled(allowlist, s)
	if len(enabled) == 0 {
		return nil
	}

	names := make([]string, 0, len(enabled))
	for _, f := range enabled {
		names = append(names, string(f))
	}

	return []string{FeaturesFlag, strings.Join(names, " ")}
}

// ToggleArgs returns the dedicated flags for the instrumentation and layout
// randomization toggles, each checked independently.
func ToggleArgs(instrument, randomizeLayout bool) []string {
	var args []string
	if instrument {
		args = append(args, InstrumentFlag)
	}
	if randomizeLayout {
		args = append(args, RandomizeLayoutFlag)
	}

	return args
}
