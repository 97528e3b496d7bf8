package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/escl-tools/airscan/internal/config"
	"github.com/escl-tools/airscan/pkg/discovery"
	"github.com/escl-tools/airscan/pkg/escl"
	scanlog "github.com/escl-tools/airscan/pkg/log"
	"github.com/escl-tools/airscan/pkg/output"
	"github.com/escl-tools/airscan/pkg/selection"
	"github.com/escl-tools/airscan/pkg/version"
)

// StateDiscovered is recorded in the protocol log for every browsed scanner.
const StateDiscovered = "Discovered"

// app is one invocation: discover, select, inspect and scan.
type app struct {
	cfg   config.Config
	info  bool
	debug bool

	out    io.Writer
	logger *slog.Logger

	// browser overrides the mDNS browser built from cfg.
	browser    discovery.Browser
	httpClient *http.Client
}

func (a *app) run(ctx context.Context) error {
	attemptID := uuid.New().String()

	protoLog, closeLog, err := a.protocolLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	var candidates []discovery.Candidate
	if strings.TrimSpace(a.cfg.URL) == "" {
		candidates, err = a.discover(ctx)
		if err != nil {
			return err
		}
		a.recordCandidates(protoLog, attemptID, candidates)
		printCandidates(a.out, candidates)
	}

	endpoint, err := selection.SelectEndpoint(a.cfg.URL, candidates)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\nSelected scanner: %s\n", endpoint)

	client := escl.NewClient(endpoint, escl.Config{
		HTTPClient: a.httpClient,
		Logger:     protoLog,
		Verbose:    a.debug || a.cfg.ProtocolLog != "",
		AttemptID:  attemptID,
		UserAgent:  version.UserAgent(),
	})

	caps, err := client.Capabilities(ctx)
	if err != nil {
		return err
	}
	printCapabilities(a.out, caps)
	a.checkVersion(caps.Version)

	overrides := selection.Overrides{ColorMode: a.cfg.ColorMode, Resolution: a.cfg.Resolution}
	for _, w := range selection.Warnings(caps, overrides) {
		a.logger.Warn(w)
	}
	settings := selection.ResolveSettings(caps, overrides)

	if a.info {
		printSettings(a.out, settings)
		return nil
	}

	fmt.Fprintf(a.out, "\nBeginning scan (%s, %d, %d)\n", settings.ColorMode, settings.Resolution, settings.Resolution)
	result, err := client.Scan(ctx, settings.Request())
	if err != nil {
		return err
	}
	defer result.Body.Close()

	n, err := output.Save(a.cfg.Output, result)
	if err != nil {
		return fmt.Errorf("save scan: %w", err)
	}
	a.logger.Debug("scan stored", "variant", result.Variant, "bytes", n, "document", result.DocumentURL)

	if summary, err := output.Describe(a.cfg.Output); err != nil {
		a.logger.Warn("cannot inspect scan", "path", a.cfg.Output, "error", err)
	} else {
		a.logger.Info("scan complete", "summary", summary.String())
	}
	fmt.Fprintf(a.out, "Wrote scan to: %s\n", a.cfg.Output)
	return nil
}

// protocolLogger assembles the protocol capture sinks: the capture file
// when configured and the slog adapter in debug mode.
func (a *app) protocolLogger() (scanlog.Logger, func(), error) {
	var loggers []scanlog.Logger
	closeLog := func() {}

	if a.cfg.ProtocolLog != "" {
		fl, err := scanlog.NewFileLogger(a.cfg.ProtocolLog)
		if err != nil {
			return nil, closeLog, fmt.Errorf("open protocol log: %w", err)
		}
		loggers = append(loggers, fl)
		closeLog = func() {
			if err := fl.Close(); err != nil {
				a.logger.Warn("close protocol log", "error", err)
			}
			a.logger.Debug("protocol log written", "path", a.cfg.ProtocolLog, "events", fl.Written())
		}
	}
	if a.debug {
		loggers = append(loggers, scanlog.NewSlogAdapter(a.logger))
	}

	switch len(loggers) {
	case 0:
		return scanlog.NoopLogger{}, closeLog, nil
	case 1:
		return loggers[0], closeLog, nil
	default:
		return scanlog.NewMultiLogger(loggers...), closeLog, nil
	}
}

func (a *app) discover(ctx context.Context) ([]discovery.Candidate, error) {
	b := a.browser
	if b == nil {
		mb, err := discovery.NewMDNSBrowser(discovery.BrowserConfig{
			ServiceType: a.cfg.Service,
			Domain:      discovery.Domain,
			Interface:   a.cfg.Interface,
			Timeout:     a.cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		mb.SetLogger(a.logger)
		b = mb
	}

	a.logger.Debug("browsing for scanners", "service", a.cfg.Service, "timeout", a.cfg.Timeout)
	start := time.Now()
	candidates, err := b.Browse(ctx)
	if err != nil {
		if errors.Is(err, discovery.ErrBrowseCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("discovery: %w", err)
	}
	a.logger.Debug("browse finished", "found", len(candidates), "elapsed", time.Since(start).Round(time.Millisecond))
	return candidates, nil
}

// recordCandidates writes one discovery event per candidate so a capture
// shows which scanners were available at selection time.
func (a *app) recordCandidates(l scanlog.Logger, attemptID string, candidates []discovery.Candidate) {
	for _, c := range candidates {
		remote := ""
		if len(c.Addresses) > 0 {
			remote = escl.EndpointFor(c.Addresses[len(c.Addresses)-1], c.Port).Host()
		}
		l.Log(scanlog.Event{
			Timestamp:  time.Now(),
			AttemptID:  attemptID,
			Direction:  scanlog.DirectionIn,
			Step:       scanlog.StepDiscovery,
			Category:   scanlog.CategoryState,
			RemoteAddr: remote,
			StateChange: &scanlog.StateChangeEvent{
				NewState: StateDiscovered,
				Reason:   selection.Label(c) + " (" + c.InstanceName + ")",
			},
		})
	}
}

func (a *app) checkVersion(advertised string) {
	if advertised == "" {
		return
	}
	ok, err := version.CompatibleWithCurrent(advertised)
	switch {
	case err != nil:
		a.logger.Warn("scanner advertises an unreadable eSCL version", "version", advertised, "error", err)
	case !ok:
		a.logger.Warn("scanner eSCL version differs from supported version", "version", advertised, "supported", version.Current)
	}
}
