package log

import (
	"time"
)

// Event represents a protocol log event captured during one scan attempt.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// AttemptID groups all events of one invocation (UUID).
	AttemptID string `cbor:"2,keyasint"`

	// Direction indicates message flow relative to this client.
	Direction Direction `cbor:"3,keyasint"`

	// Step is the protocol step that produced the event.
	Step Step `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the scanner address (host:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Exchange    *ExchangeEvent    `cbor:"7,keyasint,omitempty"` // HTTP request or response
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"` // Scan job state machine
	Error       *ErrorEventData   `cbor:"9,keyasint,omitempty"` // Errors at any step
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a response received from the scanner.
	DirectionIn Direction = 0
	// DirectionOut indicates a request sent to the scanner.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Step identifies the protocol step of a scan attempt.
type Step uint8

const (
	// StepDiscovery is the mDNS browse preceding endpoint selection.
	StepDiscovery Step = 0
	// StepCapabilities is the ScannerCapabilities fetch.
	StepCapabilities Step = 1
	// StepSubmit is the ScanJobs POST.
	StepSubmit Step = 2
	// StepFetch is the NextDocument GET of a created job.
	StepFetch Step = 3
	// StepRead is the transfer of a document body to its sink.
	StepRead Step = 4
)

// String returns the step name.
func (s Step) String() string {
	switch s {
	case StepDiscovery:
		return "DISCOVERY"
	case StepCapabilities:
		return "CAPABILITIES"
	case StepSubmit:
		return "SUBMIT"
	case StepFetch:
		return "FETCH"
	case StepRead:
		return "READ"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates an HTTP request or response.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MaxCapturedBody is the largest body prefix stored in an ExchangeEvent.
const MaxCapturedBody = 64 * 1024

// ExchangeEvent captures one HTTP request or response.
type ExchangeEvent struct {
	// Method is the HTTP method (requests only).
	Method string `cbor:"1,keyasint,omitempty"`

	// URL is the request URL.
	URL string `cbor:"2,keyasint"`

	// StatusCode is the HTTP status (responses only).
	StatusCode int `cbor:"3,keyasint,omitempty"`

	// ContentType is the Content-Type header, if any.
	ContentType string `cbor:"4,keyasint,omitempty"`

	// Location is the Location header of a job creation response.
	Location string `cbor:"5,keyasint,omitempty"`

	// Size is the body size in bytes, or -1 when unknown.
	Size int64 `cbor:"6,keyasint"`

	// Body is the captured body (verbose mode only, may be truncated).
	Body []byte `cbor:"7,keyasint,omitempty"`

	// Truncated indicates if Body was truncated.
	Truncated bool `cbor:"8,keyasint,omitempty"`
}

// StateChangeEvent captures transitions of the scan job state machine.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any step.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Code is the HTTP status code (if applicable).
	Code *int `cbor:"2,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}

// CaptureBody returns the body prefix to store in an ExchangeEvent and
// whether it was truncated.
func CaptureBody(body []byte) ([]byte, bool) {
	if len(body) <= MaxCapturedBody {
		return body, false
	}
	return body[:MaxCapturedBody], true
}
