// Package discovery implements mDNS/DNS-SD discovery of eSCL scanners.
//
// # Service Types
//
// Scanners speaking eSCL advertise _uscan._tcp (and _uscans._tcp for TLS).
// Some older devices only advertise _scanner._tcp; the service type is
// configurable through BrowserConfig.
//
// # Candidates
//
// A browse collects one Candidate per service instance. Addresses learned
// on several interfaces are merged into the same candidate. The candidate
// list is ordered by when an instance was last (re)announced, so the last
// candidate is the most recently seen scanner.
//
// # TXT Records
//
// TXT data is kept in its DNS wire form (a sequence of length-prefixed
// strings) and decoded with DecodeTXT. Keys of interest:
//   - mfg: manufacturer
//   - mdl: model
//   - ty:  human readable product name
//   - rs:  eSCL resource root (informational)
package discovery
