package escl

import (
	"errors"
	"fmt"
	"strings"

	scanlog "github.com/escl-tools/airscan/pkg/log"
)

// maxPeerBody bounds the error payload kept from a scanner response.
const maxPeerBody = 4 * 1024

// TransportError reports a network or I/O failure during one HTTP step.
type TransportError struct {
	Step   scanlog.Step
	Method string
	URL    string
	Err    error

	// PeerBody is any error payload the scanner sent before the failure.
	PeerBody []byte
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "escl: %s %s %s: %v", strings.ToLower(e.Step.String()), e.Method, e.URL, e.Err)
	if len(e.PeerBody) > 0 {
		fmt.Fprintf(&b, " (scanner said: %s)", strings.TrimSpace(string(e.PeerBody)))
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a malformed capability document or a response the
// protocol does not allow.
type ProtocolError struct {
	Step scanlog.Step
	URL  string

	// Field names the offending capability element, if any.
	Field string

	// StatusCode is the unexpected HTTP status, if any.
	StatusCode int

	Reason   string
	PeerBody []byte
	Err      error
}

func (e *ProtocolError) Error() string {
	var b strings.Builder
	b.WriteString("escl: ")
	b.WriteString(strings.ToLower(e.Step.String()))
	if e.URL != "" {
		b.WriteString(" " + e.URL)
	}
	b.WriteString(": ")
	if e.Field != "" {
		b.WriteString(e.Field + ": ")
	}
	b.WriteString(e.Reason)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.PeerBody) > 0 {
		fmt.Fprintf(&b, " (scanner said: %s)", strings.TrimSpace(string(e.PeerBody)))
	}
	return b.String()
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is or wraps a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
