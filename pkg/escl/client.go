package escl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	scanlog "github.com/escl-tools/airscan/pkg/log"
)

// ResultVariant tells which protocol path produced a scanned document.
type ResultVariant uint8

const (
	// VariantInline means the job submission response carried the image.
	VariantInline ResultVariant = iota + 1
	// VariantJob means the image was fetched from <Location>/NextDocument.
	VariantJob
)

// String returns the variant name.
func (v ResultVariant) String() string {
	switch v {
	case VariantInline:
		return "inline"
	case VariantJob:
		return "job"
	default:
		return "unknown"
	}
}

// Scan job states, as recorded in protocol log state changes.
const (
	StateSubmitting       = "Submitting"
	StateInlineDocument   = "InlineDocument"
	StateJobCreated       = "JobCreated"
	StateFetchingDocument = "FetchingDocument"
	StateDone             = "Done"
	StateFailed           = "Failed"
)

// ScanResult is the document of a successful scan. Body must be consumed
// once and closed; WriteTo does both.
type ScanResult struct {
	Variant ResultVariant

	// Location is the job resource for VariantJob, else empty.
	Location string

	// DocumentURL is the URL the body is read from.
	DocumentURL string

	Body io.ReadCloser

	done func(n int64, err error)
}

// WriteTo copies the document to w and closes the body. A failure while
// reading the scanner's response is a *TransportError.
func (r *ScanResult) WriteTo(w io.Writer) (int64, error) {
	defer r.Body.Close()

	n, err := io.Copy(w, r.Body)
	if r.done != nil {
		r.done(n, err)
	}
	return n, err
}

// Config configures a Client.
type Config struct {
	// HTTPClient performs the requests. Defaults to a client without timeout.
	HTTPClient *http.Client

	// Logger receives protocol events. Defaults to NoopLogger.
	Logger scanlog.Logger

	// Verbose attaches request and response bodies to protocol events.
	Verbose bool

	// AttemptID tags all events of this client. Generated when empty.
	AttemptID string

	// UserAgent is sent with every request when set.
	UserAgent string
}

// Client talks to the eSCL resources of one endpoint. It holds no state
// between calls besides its configuration.
type Client struct {
	endpoint  Endpoint
	http      *http.Client
	logger    scanlog.Logger
	verbose   bool
	attemptID string
	userAgent string
}

// NewClient creates a client for endpoint.
func NewClient(endpoint Endpoint, cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	id := cfg.AttemptID
	if id == "" {
		id = uuid.New().String()
	}
	return &Client{
		endpoint:  endpoint,
		http:      hc,
		logger:    scanlog.OrNoop(cfg.Logger),
		verbose:   cfg.Verbose,
		attemptID: id,
		userAgent: cfg.UserAgent,
	}
}

// Endpoint returns the endpoint this client talks to.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// AttemptID returns the ID tagging this client's protocol events.
func (c *Client) AttemptID() string {
	return c.attemptID
}

// Capabilities fetches and parses the scanner's capability document.
func (c *Client) Capabilities(ctx context.Context) (*Capabilities, error) {
	u := c.endpoint.Resolve(PathScannerCapabilities)

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, c.fail(scanlog.StepCapabilities, &TransportError{
			Step: scanlog.StepCapabilities, Method: http.MethodGet, URL: u, Err: err,
		})
	}
	c.logRequest(scanlog.StepCapabilities, req, nil)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(scanlog.StepCapabilities, &TransportError{
			Step: scanlog.StepCapabilities, Method: http.MethodGet, URL: u, Err: err,
			PeerBody: drainPeerBody(resp),
		})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(scanlog.StepCapabilities, &TransportError{
			Step: scanlog.StepCapabilities, Method: http.MethodGet, URL: u, Err: err,
		})
	}
	c.logResponse(scanlog.StepCapabilities, u, resp, body)

	if resp.StatusCode != http.StatusOK {
		return nil, c.fail(scanlog.StepCapabilities, &ProtocolError{
			Step:       scanlog.StepCapabilities,
			URL:        u,
			StatusCode: resp.StatusCode,
			Reason:     "capabilities not available",
			PeerBody:   boundPeerBody(body),
		})
	}

	caps, err := ParseCapabilities(body)
	if err != nil {
		var pe *ProtocolError
		if errors.As(err, &pe) {
			pe.URL = u
		}
		return nil, c.fail(scanlog.StepCapabilities, err)
	}
	return caps, nil
}

// Scan submits req and returns the resulting document. A 200 response
// carries the document inline; a 201 response names a job whose document is
// fetched exactly once. Any other status is a *ProtocolError.
func (c *Client) Scan(ctx context.Context, sr ScanRequest) (*ScanResult, error) {
	u := c.endpoint.Resolve(PathScanJobs)
	body := sr.Render()

	req, err := c.newRequest(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, c.fail(scanlog.StepSubmit, &TransportError{
			Step: scanlog.StepSubmit, Method: http.MethodPost, URL: u, Err: err,
		})
	}
	req.Header.Set("Content-Type", ContentTypeXML)
	c.transition(scanlog.StepSubmit, "", StateSubmitting, "")
	c.logRequest(scanlog.StepSubmit, req, body)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(scanlog.StepSubmit, &TransportError{
			Step: scanlog.StepSubmit, Method: http.MethodPost, URL: u, Err: err,
			PeerBody: drainPeerBody(resp),
		})
	}

	switch resp.StatusCode {
	case http.StatusOK:
		c.logResponse(scanlog.StepSubmit, u, resp, nil)
		c.transition(scanlog.StepSubmit, StateSubmitting, StateInlineDocument, "status 200")
		return c.result(VariantInline, "", u, http.MethodPost, resp), nil

	case http.StatusCreated:
		location := resp.Header.Get("Location")
		c.logResponse(scanlog.StepSubmit, u, resp, nil)
		drainAndClose(resp.Body)

		if location == "" {
			return nil, c.fail(scanlog.StepSubmit, &ProtocolError{
				Step: scanlog.StepSubmit, URL: u, StatusCode: resp.StatusCode,
				Reason: "job created without Location header",
			})
		}
		docURL, err := nextDocumentURL(u, location)
		if err != nil {
			return nil, c.fail(scanlog.StepSubmit, &ProtocolError{
				Step: scanlog.StepSubmit, URL: u, StatusCode: resp.StatusCode,
				Reason: fmt.Sprintf("invalid Location header %q", location), Err: err,
			})
		}
		c.transition(scanlog.StepSubmit, StateSubmitting, StateJobCreated, location)
		return c.fetchDocument(ctx, location, docURL)

	default:
		peer := drainPeerBody(resp)
		c.logResponse(scanlog.StepSubmit, u, resp, peer)
		return nil, c.fail(scanlog.StepSubmit, &ProtocolError{
			Step:       scanlog.StepSubmit,
			URL:        u,
			StatusCode: resp.StatusCode,
			Reason:     "server did not accept the scan job",
			PeerBody:   peer,
		})
	}
}

// fetchDocument performs the single NextDocument request of a created job.
func (c *Client) fetchDocument(ctx context.Context, location, docURL string) (*ScanResult, error) {
	c.transition(scanlog.StepFetch, StateJobCreated, StateFetchingDocument, "")

	req, err := c.newRequest(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, c.fail(scanlog.StepFetch, &TransportError{
			Step: scanlog.StepFetch, Method: http.MethodGet, URL: docURL, Err: err,
		})
	}
	c.logRequest(scanlog.StepFetch, req, nil)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(scanlog.StepFetch, &TransportError{
			Step: scanlog.StepFetch, Method: http.MethodGet, URL: docURL, Err: err,
			PeerBody: drainPeerBody(resp),
		})
	}
	if resp.StatusCode != http.StatusOK {
		peer := drainPeerBody(resp)
		c.logResponse(scanlog.StepFetch, docURL, resp, peer)
		return nil, c.fail(scanlog.StepFetch, &ProtocolError{
			Step:       scanlog.StepFetch,
			URL:        docURL,
			StatusCode: resp.StatusCode,
			Reason:     "document retrieval failed",
			PeerBody:   peer,
		})
	}

	c.logResponse(scanlog.StepFetch, docURL, resp, nil)
	return c.result(VariantJob, location, docURL, http.MethodGet, resp), nil
}

func (c *Client) result(variant ResultVariant, location, docURL, method string, resp *http.Response) *ScanResult {
	from := StateInlineDocument
	if variant == VariantJob {
		from = StateFetchingDocument
	}
	return &ScanResult{
		Variant:     variant,
		Location:    location,
		DocumentURL: docURL,
		Body:        &documentReader{rc: resp.Body, method: method, url: docURL},
		done: func(n int64, err error) {
			if err != nil {
				_ = c.fail(scanlog.StepRead, err)
				return
			}
			c.transition(scanlog.StepRead, from, StateDone,
				fmt.Sprintf("%s document, %d bytes", variant, n))
		},
	}
}

// documentReader turns body read failures into TransportErrors.
type documentReader struct {
	rc     io.ReadCloser
	method string
	url    string
}

func (d *documentReader) Read(p []byte) (int, error) {
	n, err := d.rc.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, &TransportError{Step: scanlog.StepRead, Method: d.method, URL: d.url, Err: err}
	}
	return n, err
}

func (d *documentReader) Close() error {
	return d.rc.Close()
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// fail records err as an error event and returns it.
func (c *Client) fail(step scanlog.Step, err error) error {
	data := &scanlog.ErrorEventData{Message: err.Error()}

	var pe *ProtocolError
	var te *TransportError
	switch {
	case errors.As(err, &pe):
		if pe.StatusCode != 0 {
			code := pe.StatusCode
			data.Code = &code
		}
		data.Context = pe.URL
	case errors.As(err, &te):
		data.Context = te.Method + " " + te.URL
	}

	c.emit(scanlog.Event{
		Direction: scanlog.DirectionIn,
		Step:      step,
		Category:  scanlog.CategoryError,
		Error:     data,
	}, "")
	if step != scanlog.StepCapabilities {
		c.transition(step, "", StateFailed, err.Error())
	}
	return err
}

func (c *Client) transition(step scanlog.Step, from, to, reason string) {
	c.emit(scanlog.Event{
		Direction: scanlog.DirectionIn,
		Step:      step,
		Category:  scanlog.CategoryState,
		StateChange: &scanlog.StateChangeEvent{
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	}, "")
}

func (c *Client) logRequest(step scanlog.Step, req *http.Request, body []byte) {
	ex := &scanlog.ExchangeEvent{
		Method:      req.Method,
		URL:         req.URL.String(),
		ContentType: req.Header.Get("Content-Type"),
		Size:        int64(len(body)),
	}
	if c.verbose && len(body) > 0 {
		ex.Body, ex.Truncated = scanlog.CaptureBody(body)
	}
	c.emit(scanlog.Event{
		Direction: scanlog.DirectionOut,
		Step:      step,
		Category:  scanlog.CategoryMessage,
		Exchange:  ex,
	}, req.URL.Host)
}

// logResponse records a response. body is nil when it has not been read.
func (c *Client) logResponse(step scanlog.Step, u string, resp *http.Response, body []byte) {
	ex := &scanlog.ExchangeEvent{
		URL:         u,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Location:    resp.Header.Get("Location"),
		Size:        resp.ContentLength,
	}
	if body != nil {
		ex.Size = int64(len(body))
		if c.verbose {
			ex.Body, ex.Truncated = scanlog.CaptureBody(body)
		}
	}
	c.emit(scanlog.Event{
		Direction: scanlog.DirectionIn,
		Step:      step,
		Category:  scanlog.CategoryMessage,
		Exchange:  ex,
	}, hostOf(u))
}

func (c *Client) emit(event scanlog.Event, remote string) {
	event.Timestamp = time.Now()
	event.AttemptID = c.attemptID
	event.RemoteAddr = remote
	if event.RemoteAddr == "" {
		event.RemoteAddr = c.endpoint.Host()
	}
	c.logger.Log(event)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

// drainPeerBody reads a bounded error payload from resp, if any, and closes
// the body. resp may be nil.
func drainPeerBody(resp *http.Response) []byte {
	if resp == nil || resp.Body == nil {
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxPeerBody))
	if len(body) == 0 {
		return nil
	}
	return body
}

func boundPeerBody(body []byte) []byte {
	if len(body) == 0 {
		return nil
	}
	if len(body) > maxPeerBody {
		return body[:maxPeerBody]
	}
	return body
}

func drainAndClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, maxPeerBody))
	_ = rc.Close()
}
