package escl

import (
	"encoding/xml"
	"fmt"
	"slices"
	"strconv"
	"strings"

	scanlog "github.com/escl-tools/airscan/pkg/log"
)

// XML namespaces of the eSCL vocabulary.
const (
	NamespaceScan = "http://schemas.hp.com/imaging/escl/2011/05/03"
	NamespacePWG  = "http://www.pwg.org/schemas/2010/12/sm"
)

// Capability document element names (scan namespace).
const (
	ElemMaxWidth              = "MaxWidth"
	ElemMaxHeight             = "MaxHeight"
	ElemMaxOpticalXResolution = "MaxOpticalXResolution"
	ElemMaxOpticalYResolution = "MaxOpticalYResolution"
	ElemColorModes            = "ColorModes"
	ElemContentTypes          = "ContentTypes"
	ElemDocumentFormats       = "DocumentFormats"
	ElemDiscreteResolutions   = "DiscreteResolutions"
	ElemXResolution           = "XResolution"
	ElemYResolution           = "YResolution"

	attrDefault = "default"
)

// Optional informational elements (PWG namespace).
const (
	ElemVersion      = "Version"
	ElemMakeAndModel = "MakeAndModel"
	ElemSerialNumber = "SerialNumber"
)

// Capabilities is an immutable snapshot of a scanner's capability document.
// Lengths are in three-hundredths of an inch.
type Capabilities struct {
	MaxWidth  int
	MaxHeight int

	// MaxOpticalResolution is min(MaxOpticalXResolution, MaxOpticalYResolution).
	MaxOpticalResolution int

	// ColorModes in document order.
	ColorModes      []string
	ContentTypes    []string
	DocumentFormats []string

	// DiscreteResolutions holds min(x, y) of each advertised pair, in
	// document order. Empty when the device only advertises a range.
	DiscreteResolutions []int

	// DefaultColorMode is the color mode marked default, or nil.
	DefaultColorMode *string

	// DefaultResolution is min(x, y) of the resolution marked default, or nil.
	DefaultResolution *int

	// Informational, empty when not advertised exactly once.
	Version      string
	MakeAndModel string
	SerialNumber string
}

// SupportsColorMode reports whether mode is advertised.
func (c *Capabilities) SupportsColorMode(mode string) bool {
	return slices.Contains(c.ColorModes, mode)
}

// SupportsResolution reports whether res is one of the discrete resolutions.
func (c *Capabilities) SupportsResolution(res int) bool {
	return slices.Contains(c.DiscreteResolutions, res)
}

func scanName(local string) xml.Name {
	return xml.Name{Space: NamespaceScan, Local: local}
}

func pwgName(local string) xml.Name {
	return xml.Name{Space: NamespacePWG, Local: local}
}

// ParseCapabilities parses a capability document. It fails with a
// *ProtocolError when the document is not well-formed, when a required
// element is missing or repeated, or when a number does not parse.
func ParseCapabilities(data []byte) (*Capabilities, error) {
	root, err := parseTree(data)
	if err != nil {
		return nil, &ProtocolError{
			Step:   scanlog.StepCapabilities,
			Reason: "malformed capability document",
			Err:    err,
		}
	}

	p := capParser{root: root}
	caps := &Capabilities{}

	caps.MaxHeight = p.length(ElemMaxHeight)
	caps.MaxWidth = p.length(ElemMaxWidth)
	caps.MaxOpticalResolution = min(
		p.integer(p.single(root, ElemMaxOpticalXResolution), ElemMaxOpticalXResolution),
		p.integer(p.single(root, ElemMaxOpticalYResolution), ElemMaxOpticalYResolution),
	)
	caps.ColorModes, caps.DefaultColorMode = p.enumeration(ElemColorModes)
	if p.err == nil && len(caps.ColorModes) == 0 {
		p.fail(ElemColorModes, "no color modes advertised", nil)
	}
	caps.ContentTypes, _ = p.enumeration(ElemContentTypes)
	caps.DocumentFormats, _ = p.enumeration(ElemDocumentFormats)
	caps.DiscreteResolutions, caps.DefaultResolution = p.resolutions()

	if p.err != nil {
		return nil, p.err
	}

	caps.Version = p.optional(ElemVersion)
	caps.MakeAndModel = p.optional(ElemMakeAndModel)
	caps.SerialNumber = p.optional(ElemSerialNumber)

	return caps, nil
}

// capParser keeps the first validation failure; later lookups become no-ops.
type capParser struct {
	root *element
	err  error
}

func (p *capParser) fail(field, reason string, err error) {
	if p.err != nil {
		return
	}
	p.err = &ProtocolError{
		Step:   scanlog.StepCapabilities,
		Field:  field,
		Reason: reason,
		Err:    err,
	}
}

// single returns the only scan-namespace element named local below scope.
func (p *capParser) single(scope *element, local string) *element {
	if p.err != nil {
		return nil
	}
	found := scope.descendants(scanName(local))
	if len(found) != 1 {
		p.fail(local, fmt.Sprintf("found %d instances, want exactly 1", len(found)), nil)
		return nil
	}
	return found[0]
}

func (p *capParser) integer(el *element, field string) int {
	if el == nil || p.err != nil {
		return 0
	}
	n, err := strconv.Atoi(el.textContent())
	if err != nil {
		p.fail(field, "not an integer", err)
		return 0
	}
	return n
}

func (p *capParser) length(local string) int {
	n := p.integer(p.single(p.root, local), local)
	if n < 0 {
		p.fail(local, fmt.Sprintf("negative length %d", n), nil)
	}
	return n
}

// enumeration returns the text of each child element of the singleton
// container, plus the first child carrying the default marker.
func (p *capParser) enumeration(local string) ([]string, *string) {
	container := p.single(p.root, local)
	if container == nil {
		return nil, nil
	}

	values := make([]string, 0, len(container.children))
	var def *string
	for _, child := range container.children {
		v := child.textContent()
		values = append(values, v)
		if def == nil && isDefault(child) {
			def = &v
		}
	}
	return values, def
}

// resolutions walks DiscreteResolutions in document order. The default marker
// may sit on the pair element or on either of its X/Y sub-elements.
func (p *capParser) resolutions() ([]int, *int) {
	container := p.single(p.root, ElemDiscreteResolutions)
	if container == nil {
		return nil, nil
	}

	values := make([]int, 0, len(container.children))
	var def *int
	for _, pair := range container.children {
		xEl := p.single(pair, ElemXResolution)
		yEl := p.single(pair, ElemYResolution)
		x := p.integer(xEl, ElemXResolution)
		y := p.integer(yEl, ElemYResolution)
		if p.err != nil {
			return nil, nil
		}

		res := min(x, y)
		values = append(values, res)
		if def == nil && (isDefault(pair) || isDefault(xEl) || isDefault(yEl)) {
			def = &res
		}
	}
	return values, def
}

// optional returns the text of a PWG element present exactly once, else "".
func (p *capParser) optional(local string) string {
	found := p.root.descendants(pwgName(local))
	if len(found) != 1 {
		return ""
	}
	return found[0].textContent()
}

func isDefault(el *element) bool {
	v, ok := el.attr(scanName(attrDefault))
	return ok && strings.EqualFold(strings.TrimSpace(v), "true")
}
