package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/escl-tools/airscan/pkg/discovery"
	"github.com/escl-tools/airscan/pkg/escl"
	"github.com/escl-tools/airscan/pkg/selection"
)

func printCandidates(w io.Writer, candidates []discovery.Candidate) {
	if len(candidates) == 0 {
		return
	}
	fmt.Fprintln(w, "Found scanner: ")
	for _, c := range candidates {
		fmt.Fprintf(w, "\t%s\n", selection.Label(c))
		for _, ep := range selection.Endpoints(c) {
			fmt.Fprintf(w, "\t\t%s\n", ep)
		}
	}
}

func printCapabilities(w io.Writer, caps *escl.Capabilities) {
	fmt.Fprintln(w, "\nCapabilities")
	if caps.MakeAndModel != "" {
		fmt.Fprintf(w, "%20s: %s\n", "Make and model", caps.MakeAndModel)
	}
	if caps.Version != "" {
		fmt.Fprintf(w, "%20s: %s\n", "eSCL version", caps.Version)
	}
	fmt.Fprintf(w, "%20s: %d\n", "Max Height", caps.MaxHeight)
	fmt.Fprintf(w, "%20s: %d\n", "Max Width", caps.MaxWidth)
	fmt.Fprintf(w, "%20s: %d\n", "Max Resolution", caps.MaxOpticalResolution)
	fmt.Fprintf(w, "%20s: %s\n", "Default Resolution", optionalInt(caps.DefaultResolution))
	fmt.Fprintf(w, "%20s: %s\n", "Resolutions", joinInts(caps.DiscreteResolutions))
	fmt.Fprintf(w, "%20s: %s\n", "Color modes", strings.Join(caps.ColorModes, ", "))
	fmt.Fprintf(w, "%20s: %s\n", "Content types", strings.Join(caps.ContentTypes, ", "))
	fmt.Fprintf(w, "%20s: %s\n", "Document formats", strings.Join(caps.DocumentFormats, ", "))
}

func printSettings(w io.Writer, s selection.Settings) {
	fmt.Fprintln(w, "\nScan settings")
	fmt.Fprintf(w, "%20s: %s\n", "Color mode", s.ColorMode)
	fmt.Fprintf(w, "%20s: %d\n", "Resolution", s.Resolution)
	fmt.Fprintf(w, "%20s: %dx%d\n", "Region", s.Width, s.Height)
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
