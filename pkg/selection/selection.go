// Package selection decides which scanner to talk to and which scan
// settings to request from it.
package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/escl-tools/airscan/pkg/discovery"
	"github.com/escl-tools/airscan/pkg/escl"
)

// PreferredColorMode is chosen when the scanner marks no default.
const PreferredColorMode = "RGB24"

// ErrNoScannerFound is returned when there is neither an override nor a
// discovered scanner address.
var ErrNoScannerFound = errors.New("no scanner found")

// SelectEndpoint returns the override when it is not blank. Otherwise it
// derives the endpoint from the last address of the last candidate, which
// is the most recently seen scanner.
func SelectEndpoint(override string, candidates []discovery.Candidate) (escl.Endpoint, error) {
	if strings.TrimSpace(override) != "" {
		ep, err := escl.ParseEndpoint(override)
		if err != nil {
			return "", fmt.Errorf("scanner override: %w", err)
		}
		return ep, nil
	}

	for i := len(candidates) - 1; i >= 0; i-- {
		c := candidates[i]
		if len(c.Addresses) == 0 {
			continue
		}
		return escl.EndpointFor(c.Addresses[len(c.Addresses)-1], c.Port), nil
	}
	return "", ErrNoScannerFound
}

// Endpoints lists one endpoint per address of c.
func Endpoints(c discovery.Candidate) []escl.Endpoint {
	out := make([]escl.Endpoint, 0, len(c.Addresses))
	for _, addr := range c.Addresses {
		out = append(out, escl.EndpointFor(addr, c.Port))
	}
	return out
}

// Label returns the display name of a discovered scanner.
func Label(c discovery.Candidate) string {
	return c.Label()
}

// Overrides are user choices that take precedence over capability defaults.
// Zero values mean "not set".
type Overrides struct {
	ColorMode  string
	Resolution int
}

// Settings are the resolved parameters of one scan. Geometry is in
// three-hundredths of an inch.
type Settings struct {
	ColorMode  string
	Resolution int

	XOffset int
	YOffset int
	Width   int
	Height  int
}

// Request builds the scan request for s. The same resolution is used on
// both axes.
func (s Settings) Request() escl.ScanRequest {
	return escl.ScanRequest{
		XOffset:     s.XOffset,
		YOffset:     s.YOffset,
		Width:       s.Width,
		Height:      s.Height,
		ColorMode:   s.ColorMode,
		XResolution: s.Resolution,
		YResolution: s.Resolution,
	}
}

// ResolveSettings applies the selection policy. Overrides are taken as
// given, even when the scanner does not advertise them.
func ResolveSettings(caps *escl.Capabilities, o Overrides) Settings {
	return Settings{
		ColorMode:  resolveColorMode(caps, o.ColorMode),
		Resolution: resolveResolution(caps, o.Resolution),
		Width:      caps.MaxWidth,
		Height:     caps.MaxHeight,
	}
}

func resolveColorMode(caps *escl.Capabilities, override string) string {
	if override != "" {
		return override
	}
	if caps.DefaultColorMode != nil && strings.TrimSpace(*caps.DefaultColorMode) != "" {
		return *caps.DefaultColorMode
	}
	if caps.SupportsColorMode(PreferredColorMode) {
		return PreferredColorMode
	}
	if len(caps.ColorModes) > 0 {
		return caps.ColorModes[0]
	}
	return ""
}

func resolveResolution(caps *escl.Capabilities, override int) int {
	if override > 0 {
		return override
	}
	if caps.DefaultResolution != nil {
		return *caps.DefaultResolution
	}
	return caps.MaxOpticalResolution
}

// Warnings reports overrides the scanner does not advertise. They are sent
// anyway; the scanner decides.
func Warnings(caps *escl.Capabilities, o Overrides) []string {
	var w []string
	if o.ColorMode != "" && !caps.SupportsColorMode(o.ColorMode) {
		w = append(w, fmt.Sprintf("color mode %q is not advertised (have %s)",
			o.ColorMode, strings.Join(caps.ColorModes, ", ")))
	}
	if o.Resolution > 0 && len(caps.DiscreteResolutions) > 0 && !caps.SupportsResolution(o.Resolution) {
		w = append(w, fmt.Sprintf("resolution %d is not advertised", o.Resolution))
	}
	return w
}
