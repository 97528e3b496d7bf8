package escl

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Resource names below an endpoint.
const (
	PathScannerCapabilities = "ScannerCapabilities"
	PathScanJobs            = "ScanJobs"
	PathNextDocument        = "NextDocument"

	// DefaultRootPath is the resource root used for discovered scanners.
	DefaultRootPath = "/eSCL/"
)

// Endpoint is the base URL prefix under which the eSCL resources of one
// scanner are reachable. Resources are appended verbatim, so an endpoint
// normally ends in a slash.
type Endpoint string

// EndpointFor derives the endpoint of a discovered scanner.
func EndpointFor(host string, port int) Endpoint {
	return Endpoint("http://" + net.JoinHostPort(host, strconv.Itoa(port)) + DefaultRootPath)
}

// ParseEndpoint checks that raw is an absolute http(s) URL and returns it
// unchanged as an Endpoint.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid scanner URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid scanner URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid scanner URL %q: missing host", raw)
	}
	return Endpoint(raw), nil
}

// Resolve returns the URL of a resource below the endpoint.
func (e Endpoint) Resolve(resource string) string {
	return string(e) + resource
}

// Host returns the host:port part of the endpoint, or "" if it does not parse.
func (e Endpoint) Host() string {
	u, err := url.Parse(string(e))
	if err != nil {
		return ""
	}
	return u.Host
}

// String returns the endpoint URL.
func (e Endpoint) String() string {
	return string(e)
}

// nextDocumentURL resolves a job Location against the submission URL and
// appends the NextDocument resource.
func nextDocumentURL(submitURL, location string) (string, error) {
	base, err := url.Parse(submitURL)
	if err != nil {
		return "", err
	}
	loc, err := url.Parse(strings.TrimSpace(location))
	if err != nil {
		return "", err
	}
	job := base.ResolveReference(loc).String()
	return strings.TrimSuffix(job, "/") + "/" + PathNextDocument, nil
}
