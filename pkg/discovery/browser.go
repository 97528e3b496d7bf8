package discovery

import (
	"context"
	"fmt"
	"time"
)

// Browser collects scanner candidates from the local network.
type Browser interface {
	// Browse listens for announcements until the configured timeout expires
	// or ctx is cancelled, then returns the candidates seen so far in
	// observation order.
	Browse(ctx context.Context) ([]Candidate, error)
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// ServiceType is the DNS-SD service type to browse.
	// Default: _uscan._tcp.
	ServiceType string

	// Domain is the browse domain. Default: local.
	Domain string

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// Timeout bounds the time spent collecting announcements.
	// Default: 1 second.
	Timeout time.Duration
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		ServiceType: DefaultServiceType,
		Domain:      Domain,
		Interface:   "",
		Timeout:     BrowseTimeout,
	}
}

// withDefaults fills empty fields and validates the result.
func (c BrowserConfig) withDefaults() (BrowserConfig, error) {
	def := DefaultBrowserConfig()
	if c.ServiceType == "" {
		c.ServiceType = def.ServiceType
	}
	if c.Domain == "" {
		c.Domain = def.Domain
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.Timeout < 0 {
		return c, fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Timeout)
	}
	return c, nil
}

// candidateSet aggregates entries by instance name. A candidate that is
// (re)announced moves to the end of the order.
type candidateSet struct {
	byName map[string]*Candidate
	order  []string
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byName: make(map[string]*Candidate)}
}

// add merges c into the set and reports whether anything new was learned.
func (s *candidateSet) add(c *Candidate) bool {
	existing, found := s.byName[c.InstanceName]
	if !found {
		s.byName[c.InstanceName] = c
		s.order = append(s.order, c.InstanceName)
		return true
	}

	before := len(existing.Addresses)
	existing.Addresses = mergeAddresses(existing.Addresses, c.Addresses)
	if len(c.Text) > 0 {
		existing.Text = c.Text
	}
	if c.Host != "" {
		existing.Host = c.Host
	}
	if c.Port != 0 {
		existing.Port = c.Port
	}
	if len(existing.Addresses) == before {
		return false
	}
	s.touch(c.InstanceName)
	return true
}

// remove drops the given addresses; a candidate left without addresses is
// removed entirely.
func (s *candidateSet) remove(instance string, addrs []string) {
	existing, found := s.byName[instance]
	if !found {
		return
	}
	existing.Addresses = removeAddresses(existing.Addresses, addrs)
	if len(existing.Addresses) > 0 {
		return
	}
	delete(s.byName, instance)
	for i, name := range s.order {
		if name == instance {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *candidateSet) touch(instance string) {
	for i, name := range s.order {
		if name == instance {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.order = append(s.order, instance)
}

// list returns copies of the candidates in order.
func (s *candidateSet) list() []Candidate {
	out := make([]Candidate, 0, len(s.order))
	for _, name := range s.order {
		c := *s.byName[name]
		c.Addresses = append([]string(nil), c.Addresses...)
		out = append(out, c)
	}
	return out
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, new []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range new {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses filters addrs out of addresses.
func removeAddresses(addresses, addrs []string) []string {
	toRemove := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		toRemove[a] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
