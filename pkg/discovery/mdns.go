package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/enbility/zeroconf/v3"
)

// browseFunc matches zeroconf.Browse.
type browseFunc func(ctx context.Context, service, domain string,
	entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error

func zeroconfBrowse(ctx context.Context, service, domain string,
	entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error {
	return zeroconf.Browse(ctx, service, domain, entries, removed, opts...)
}

// MDNSBrowser implements the Browser interface using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
	logger *slog.Logger
	browse browseFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) (*MDNSBrowser, error) {
	cfg, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	return &MDNSBrowser{
		config: cfg,
		logger: slog.Default(),
		browse: zeroconfBrowse,
	}, nil
}

// SetLogger sets the logger for operational messages.
func (b *MDNSBrowser) SetLogger(logger *slog.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Config returns the effective configuration.
func (b *MDNSBrowser) Config() BrowserConfig {
	return b.config
}

// Browse collects scanner announcements for the configured timeout.
// Services are aggregated by instance name - addresses from multiple interfaces
// are combined into a single entry. Removals are handled when interfaces disappear.
// Cancelling ctx ends the browse early; the candidates seen so far are
// returned together with ErrBrowseCancelled.
func (b *MDNSBrowser) Browse(ctx context.Context) ([]Candidate, error) {
	opts, err := b.browserOptions()
	if err != nil {
		return nil, err
	}

	browseCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	browseErr := make(chan error, 1)
	go func() {
		browseErr <- b.browse(browseCtx, b.config.ServiceType, b.config.Domain, entries, removed, opts...)
	}()

	b.logger.Debug("browsing for scanners",
		"service", b.config.ServiceType,
		"domain", b.config.Domain,
		"interface", b.config.Interface,
		"timeout", b.config.Timeout)

	set := newCandidateSet()
	for done := false; !done; {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			c := entryToCandidate(entry)
			if set.add(c) {
				b.logger.Debug("scanner announced",
					"instance", c.InstanceName, "host", c.Host, "port", c.Port, "addresses", c.Addresses)
			}

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			set.remove(entry.Instance, entryAddresses(entry))
			b.logger.Debug("scanner withdrawn", "instance", entry.Instance)

		case <-browseCtx.Done():
			done = true
		}
	}

	// zeroconf sends on entries and removed without watching ctx, so keep
	// receiving until it returns. Late announcements are discarded.
	cancel()
	for waiting := true; waiting; {
		select {
		case _, ok := <-entries:
			if !ok {
				entries = nil
			}
		case _, ok := <-removed:
			if !ok {
				removed = nil
			}
		case err = <-browseErr:
			waiting = false
		}
	}
	candidates := set.list()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return candidates, fmt.Errorf("%w: %w", ErrBrowseCancelled, ctxErr)
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return candidates, fmt.Errorf("mdns browse: %w", err)
	}
	b.logger.Debug("browse finished", "candidates", len(candidates))
	return candidates, nil
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() ([]zeroconf.ClientOption, error) {
	var opts []zeroconf.ClientOption

	// Select specific interface if configured
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrUnknownIface, b.config.Interface, err)
		}
		opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
	}

	return opts, nil
}

// entryToCandidate converts a zeroconf entry to a Candidate.
func entryToCandidate(entry *zeroconf.ServiceEntry) *Candidate {
	return &Candidate{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         entry.Port,
		Addresses:    entryAddresses(entry),
		Text:         EncodeTXT(entry.Text),
	}
}

// entryAddresses collects IPv4 then IPv6 addresses.
func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// Ensure MDNSBrowser implements Browser interface.
var _ Browser = (*MDNSBrowser)(nil)
