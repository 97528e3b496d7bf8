// Package escl implements the client side of the eSCL (AirScan/Mopria)
// scanning protocol.
//
// eSCL is plain HTTP with XML bodies under a per-device base URL, usually
// http://<host>:<port>/eSCL/. Three resources are used:
//
//	GET  <endpoint>ScannerCapabilities   capability document
//	POST <endpoint>ScanJobs               submit ScanSettings
//	GET  <job>/NextDocument               retrieve the scanned image
//
// # Capabilities
//
// ParseCapabilities turns the capability document into an immutable
// Capabilities snapshot. Every lookup is namespace-qualified; elements of the
// shared PWG vocabulary never satisfy a scan-namespace lookup. Required
// singleton elements are validated up front and reported as a ProtocolError
// naming the element.
//
// # Scan jobs
//
// Devices answer a job submission in one of two ways:
//   - 200 OK: the response body is the image (VariantInline)
//   - 201 Created: the Location header names a job; the image is fetched
//     exactly once from <Location>/NextDocument (VariantJob)
//
// Any other status is a ProtocolError. Network and I/O failures are
// TransportErrors. Nothing is retried.
package escl
