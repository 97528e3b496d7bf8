package escl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scanlog "github.com/escl-tools/airscan/pkg/log"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []scanlog.Event
}

func (r *eventRecorder) Log(event scanlog.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) byCategory(c scanlog.Category) []scanlog.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []scanlog.Event
	for _, e := range r.events {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) states() []string {
	var out []string
	for _, e := range r.byCategory(scanlog.CategoryState) {
		out = append(out, e.StateChange.NewState)
	}
	return out
}

// fakeScanner is an httptest handler serving a configurable eSCL surface.
type fakeScanner struct {
	t *testing.T

	capabilities []byte
	capStatus    int

	submitStatus int
	location     string
	document     []byte

	submits      atomic.Int32
	fetches      atomic.Int32
	fetchPath    atomic.Value
	submitBody   atomic.Value
	submitCT     atomic.Value
	documentCode int
}

func (f *fakeScanner) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/ScannerCapabilities"):
		status := f.capStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(status)
		_, _ = w.Write(f.capabilities)

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/ScanJobs"):
		f.submits.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.submitBody.Store(body)
		f.submitCT.Store(r.Header.Get("Content-Type"))
		switch f.submitStatus {
		case http.StatusOK:
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(f.document)
		case http.StatusCreated:
			if f.location != "" {
				w.Header().Set("Location", f.location)
			}
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(f.submitStatus)
			_, _ = w.Write([]byte("<Error>busy</Error>"))
		}

	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/NextDocument"):
		f.fetches.Add(1)
		f.fetchPath.Store(r.URL.Path)
		code := f.documentCode
		if code == 0 {
			code = http.StatusOK
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(code)
		_, _ = w.Write(f.document)

	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, f *fakeScanner, rec *eventRecorder) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	ep, err := ParseEndpoint(srv.URL + DefaultRootPath)
	require.NoError(t, err)

	cfg := Config{HTTPClient: srv.Client(), AttemptID: "attempt-1", Verbose: true}
	if rec != nil {
		cfg.Logger = rec
	}
	return NewClient(ep, cfg), srv
}

var testRequest = ScanRequest{Width: 2550, Height: 3507, ColorMode: "RGB24", XResolution: 300, YResolution: 300}

func TestClientCapabilities(t *testing.T) {
	rec := &eventRecorder{}
	f := &fakeScanner{t: t, capabilities: loadCapabilities(t)}
	c, _ := newTestClient(t, f, rec)

	caps, err := c.Capabilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2550, caps.MaxWidth)
	assert.Equal(t, 3507, caps.MaxHeight)

	msgs := rec.byCategory(scanlog.CategoryMessage)
	require.Len(t, msgs, 2)
	assert.Equal(t, scanlog.DirectionOut, msgs[0].Direction)
	assert.Equal(t, http.MethodGet, msgs[0].Exchange.Method)
	assert.True(t, strings.HasSuffix(msgs[0].Exchange.URL, "/eSCL/ScannerCapabilities"))
	assert.Equal(t, scanlog.DirectionIn, msgs[1].Direction)
	assert.Equal(t, http.StatusOK, msgs[1].Exchange.StatusCode)
	assert.NotEmpty(t, msgs[1].Exchange.Body)
	for _, e := range rec.events {
		assert.Equal(t, "attempt-1", e.AttemptID)
		assert.Equal(t, scanlog.StepCapabilities, e.Step)
	}
}

func TestClientCapabilitiesFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		rec := &eventRecorder{}
		f := &fakeScanner{t: t, capStatus: http.StatusServiceUnavailable, capabilities: []byte("down")}
		c, _ := newTestClient(t, f, rec)

		_, err := c.Capabilities(context.Background())
		pe := requireProtocolError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, pe.StatusCode)
		assert.Equal(t, []byte("down"), pe.PeerBody)

		errs := rec.byCategory(scanlog.CategoryError)
		require.Len(t, errs, 1)
		require.NotNil(t, errs[0].Error.Code)
		assert.Equal(t, http.StatusServiceUnavailable, *errs[0].Error.Code)
	})

	t.Run("malformed", func(t *testing.T) {
		f := &fakeScanner{t: t, capabilities: []byte("<scan:ScannerCapabilities")}
		c, srv := newTestClient(t, f, nil)

		_, err := c.Capabilities(context.Background())
		pe := requireProtocolError(t, err)
		assert.Equal(t, srv.URL+"/eSCL/ScannerCapabilities", pe.URL)
	})
}

func TestClientScanInline(t *testing.T) {
	rec := &eventRecorder{}
	f := &fakeScanner{t: t, submitStatus: http.StatusOK, document: []byte("JPEGDATA")}
	c, _ := newTestClient(t, f, rec)

	res, err := c.Scan(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, VariantInline, res.Variant)
	assert.Empty(t, res.Location)

	var buf bytes.Buffer
	n, err := res.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, "JPEGDATA", buf.String())

	assert.EqualValues(t, 1, f.submits.Load())
	assert.EqualValues(t, 0, f.fetches.Load())
	assert.Equal(t, ContentTypeXML, f.submitCT.Load())
	assert.Equal(t, testRequest.Render(), f.submitBody.Load())

	assert.Equal(t, []string{StateSubmitting, StateInlineDocument, StateDone}, rec.states())
}

func TestClientScanJob(t *testing.T) {
	f := &fakeScanner{t: t, submitStatus: http.StatusCreated, document: []byte("PDFDATA")}
	rec := &eventRecorder{}
	c, srv := newTestClient(t, f, rec)
	f.location = srv.URL + "/job/7"

	res, err := c.Scan(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, VariantJob, res.Variant)
	assert.Equal(t, srv.URL+"/job/7", res.Location)
	assert.Equal(t, srv.URL+"/job/7/NextDocument", res.DocumentURL)

	var buf bytes.Buffer
	_, err = res.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "PDFDATA", buf.String())

	assert.EqualValues(t, 1, f.submits.Load())
	assert.EqualValues(t, 1, f.fetches.Load())
	assert.Equal(t, "/job/7/NextDocument", f.fetchPath.Load())

	assert.Equal(t, []string{StateSubmitting, StateJobCreated, StateFetchingDocument, StateDone}, rec.states())

	var sawLocation bool
	for _, e := range rec.byCategory(scanlog.CategoryMessage) {
		if e.Step == scanlog.StepSubmit && e.Direction == scanlog.DirectionIn {
			assert.Equal(t, http.StatusCreated, e.Exchange.StatusCode)
			assert.Equal(t, srv.URL+"/job/7", e.Exchange.Location)
			sawLocation = true
		}
	}
	assert.True(t, sawLocation)
}

func TestClientScanJobRelativeLocation(t *testing.T) {
	f := &fakeScanner{t: t, submitStatus: http.StatusCreated, location: "/eSCL/ScanJobs/42", document: []byte("x")}
	c, srv := newTestClient(t, f, nil)

	res, err := c.Scan(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/eSCL/ScanJobs/42/NextDocument", res.DocumentURL)
	_, err = res.WriteTo(io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "/eSCL/ScanJobs/42/NextDocument", f.fetchPath.Load())
}

func TestClientScanRejected(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusServiceUnavailable, http.StatusConflict, http.StatusAccepted} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			rec := &eventRecorder{}
			f := &fakeScanner{t: t, submitStatus: status}
			c, _ := newTestClient(t, f, rec)

			res, err := c.Scan(context.Background(), testRequest)
			assert.Nil(t, res)
			pe := requireProtocolError(t, err)
			assert.Equal(t, status, pe.StatusCode)
			assert.Equal(t, scanlog.StepSubmit, pe.Step)
			assert.EqualValues(t, 0, f.fetches.Load())
			assert.Contains(t, rec.states(), StateFailed)
		})
	}
}

func TestClientScanJobWithoutLocation(t *testing.T) {
	f := &fakeScanner{t: t, submitStatus: http.StatusCreated}
	c, _ := newTestClient(t, f, nil)

	_, err := c.Scan(context.Background(), testRequest)
	pe := requireProtocolError(t, err)
	assert.Equal(t, http.StatusCreated, pe.StatusCode)
	assert.Contains(t, pe.Reason, "Location")
	assert.EqualValues(t, 0, f.fetches.Load())
}

func TestClientFetchRejected(t *testing.T) {
	f := &fakeScanner{t: t, submitStatus: http.StatusCreated, documentCode: http.StatusNotFound}
	c, srv := newTestClient(t, f, nil)
	f.location = srv.URL + "/job/9"

	_, err := c.Scan(context.Background(), testRequest)
	pe := requireProtocolError(t, err)
	assert.Equal(t, scanlog.StepFetch, pe.Step)
	assert.Equal(t, http.StatusNotFound, pe.StatusCode)
	assert.EqualValues(t, 1, f.fetches.Load())
}

func TestClientTransportFailure(t *testing.T) {
	// Reserve a port, then close it so connections are refused.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	rec := &eventRecorder{}
	c := NewClient(Endpoint("http://"+addr+"/eSCL/"), Config{
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		Logger:     rec,
	})
	assert.NotEmpty(t, c.AttemptID())

	_, err = c.Capabilities(context.Background())
	require.Error(t, err)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, scanlog.StepCapabilities, te.Step)
	assert.Equal(t, http.MethodGet, te.Method)
	assert.True(t, IsTransport(err))
	assert.False(t, IsProtocol(err))

	_, err = c.Scan(context.Background(), testRequest)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, scanlog.StepSubmit, te.Step)

	assert.Len(t, rec.byCategory(scanlog.CategoryError), 2)
}

func TestClientReadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		hj, ok := w.(http.Hijacker)
		if !ok {
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}))
	t.Cleanup(srv.Close)

	rec := &eventRecorder{}
	c := NewClient(Endpoint(srv.URL+"/eSCL/"), Config{HTTPClient: srv.Client(), Logger: rec})

	res, err := c.Scan(context.Background(), testRequest)
	require.NoError(t, err)

	_, err = res.WriteTo(io.Discard)
	require.Error(t, err)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, scanlog.StepRead, te.Step)
	assert.Contains(t, rec.states(), StateFailed)
}

func TestClientContextCancelled(t *testing.T) {
	f := &fakeScanner{t: t, capabilities: loadCapabilities(t)}
	c, _ := newTestClient(t, f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Capabilities(ctx)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultVariantString(t *testing.T) {
	assert.Equal(t, "inline", VariantInline.String())
	assert.Equal(t, "job", VariantJob.String())
	assert.Equal(t, "unknown", ResultVariant(0).String())
}

func TestClientUserAgent(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Endpoint(srv.URL+"/eSCL/"), Config{HTTPClient: srv.Client(), UserAgent: "airscan/test"})
	_, err := c.Capabilities(context.Background())
	require.Error(t, err)
	assert.Equal(t, "airscan/test", got.Load())
}
