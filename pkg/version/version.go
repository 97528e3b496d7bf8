// Package version provides the tool version and eSCL protocol version
// parsing and comparison.
package version

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
)

// Tool is the airscan release. Overridden at build time with
// -ldflags "-X github.com/escl-tools/airscan/pkg/version.Tool=...".
var Tool = "0.4.0"

// Current is the eSCL version this client speaks in its ScanSettings.
const Current = "2.6"

// ProtocolVersion represents a parsed "major.minor" eSCL version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string. Scanners report versions
// such as "2.63"; the minor component is taken as an integer.
func Parse(s string) (ProtocolVersion, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 2 {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// CompatibleWithCurrent reports whether a version advertised by a scanner
// shares the major version of Current. Unparseable versions are reported
// as incompatible together with the parse error.
func CompatibleWithCurrent(advertised string) (bool, error) {
	v, err := Parse(advertised)
	if err != nil {
		return false, err
	}
	current, _ := Parse(Current)
	return current.Compatible(v), nil
}

// UserAgent returns the User-Agent sent to scanners: "airscan/<Tool>".
func UserAgent() string {
	return "airscan/" + Tool
}

// String returns the multi-line text printed by -version.
func String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "airscan %s (eSCL %s)\n", Tool, Current)
	if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintf(&b, "built with %s", info.GoVersion)
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				fmt.Fprintf(&b, ", revision %s", s.Value[:7])
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
