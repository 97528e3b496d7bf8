package escl

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Fixed ScanSettings tokens.
const (
	ScanSettingsVersion = "2.6"
	RegionUnits         = "escl:ThreeHundredthsOfInches"
	InputSourcePlaten   = "Platen"

	// ContentTypeXML is the media type of eSCL request bodies.
	ContentTypeXML = "text/xml"
)

// ScanRequest holds the parameters of one flatbed scan. Geometry is in
// three-hundredths of an inch.
type ScanRequest struct {
	XOffset int
	YOffset int
	Width   int
	Height  int

	ColorMode   string
	XResolution int
	YResolution int
}

// Render returns the ScanSettings document for r. It only templates: the
// color mode and geometry are not checked against any capabilities.
//
// Some devices reject namespace declarations that a generic XML encoder
// would produce, so the document is written from a fixed layout known to
// work.
func (r ScanRequest) Render() []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<scan:ScanSettings xmlns:scan="%s" xmlns:pwg="%s">`+"\n", NamespaceScan, NamespacePWG)
	fmt.Fprintf(&b, "    <pwg:Version>%s</pwg:Version>\n", ScanSettingsVersion)
	b.WriteString("    <pwg:ScanRegions>\n")
	b.WriteString("        <pwg:ScanRegion>\n")
	fmt.Fprintf(&b, "            <pwg:XOffset>%d</pwg:XOffset>\n", r.XOffset)
	fmt.Fprintf(&b, "            <pwg:YOffset>%d</pwg:YOffset>\n", r.YOffset)
	fmt.Fprintf(&b, "            <pwg:Width>%d</pwg:Width>\n", r.Width)
	fmt.Fprintf(&b, "            <pwg:Height>%d</pwg:Height>\n", r.Height)
	fmt.Fprintf(&b, "            <pwg:ContentRegionUnits>%s</pwg:ContentRegionUnits>\n", RegionUnits)
	b.WriteString("        </pwg:ScanRegion>\n")
	b.WriteString("    </pwg:ScanRegions>\n")
	fmt.Fprintf(&b, "    <scan:InputSource>%s</scan:InputSource>\n", InputSourcePlaten)
	b.WriteString("    <scan:ColorMode>")
	_ = xml.EscapeText(&b, []byte(r.ColorMode))
	b.WriteString("</scan:ColorMode>\n")
	fmt.Fprintf(&b, "    <scan:XResolution>%d</scan:XResolution>\n", r.XResolution)
	fmt.Fprintf(&b, "    <scan:YResolution>%d</scan:YResolution>\n", r.YResolution)
	b.WriteString("</scan:ScanSettings>\n")
	return b.Bytes()
}
