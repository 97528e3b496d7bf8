package discovery

import (
	"errors"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceTypeUScan is the eSCL service type.
	ServiceTypeUScan = "_uscan._tcp"

	// ServiceTypeScanner is the legacy scanner service type.
	ServiceTypeScanner = "_scanner._tcp"

	// DefaultServiceType is browsed unless configured otherwise.
	DefaultServiceType = ServiceTypeUScan

	// Domain is the mDNS domain.
	Domain = "local"
)

// TXT record key constants.
const (
	TXTKeyManufacturer = "mfg" // Manufacturer
	TXTKeyModel        = "mdl" // Model
	TXTKeyType         = "ty"  // Product name
	TXTKeyResourceRoot = "rs"  // eSCL resource root, e.g. "eSCL"
	TXTKeyUUID         = "UUID"
)

// Timing constants.
const (
	// BrowseTimeout is the default time spent collecting announcements.
	BrowseTimeout = 1 * time.Second
)

// Limits.
const (
	// MaxTXTStringLen is the largest string a single TXT length byte can carry.
	MaxTXTStringLen = 255
)

// Errors.
var (
	ErrInvalidTimeout  = errors.New("browse timeout must be positive")
	ErrUnknownIface    = errors.New("unknown network interface")
	ErrBrowseCancelled = errors.New("browse cancelled")
)

// Candidate is one scanner service instance seen during a browse.
type Candidate struct {
	// InstanceName is the DNS-SD service instance name.
	InstanceName string

	// Host is the advertised host name.
	Host string

	// Port is the advertised service port.
	Port int

	// Addresses are the host's IP addresses in the order they were learned.
	Addresses []string

	// Text is the TXT record in DNS wire format.
	Text []byte
}

// TXT decodes the candidate's TXT record.
func (c *Candidate) TXT() TXTRecordMap {
	return DecodeTXT(c.Text)
}

// Label returns a human-readable name for the candidate: "mfg mdl" when
// both are present, else "ty", else the instance name.
func (c *Candidate) Label() string {
	txt := c.TXT()
	mfg, hasMfg := txt.Value(TXTKeyManufacturer)
	mdl, hasMdl := txt.Value(TXTKeyModel)
	if hasMfg && hasMdl {
		return mfg + " " + mdl
	}
	if ty, ok := txt.Value(TXTKeyType); ok {
		return ty
	}
	return c.InstanceName
}
