// Command airscan scans a single page from an eSCL (AirScan) network scanner.
//
// Without -url the local network is browsed via mDNS for the configured
// service type; every scanner found is listed and the most recently seen one
// is used.
//
// Usage:
//
//	airscan [flags]
//
// Flags:
//
//	-o, -output string      Output filename (default "output.jpg")
//	-t, -timeout duration   Time to search for scanners, in seconds or as a duration (default 1s)
//	-u, -url string         URL to directly contact the scanner
//	-i, -info               Only show information about the scanner
//	-d, -debug              Verbose output, including protocol exchanges
//	-r, -resolution int     Resolution in DPI
//	-c, -colormode string   Color mode, e.g. RGB24 or Grayscale8
//	-config string          Configuration file path
//	-protocol-log string    Write a protocol capture to this file
//	-service string         DNS-SD service type to browse
//	-interface string       Restrict browsing to one network interface
//	-version                Print version information
//
// Examples:
//
//	# Scan with the first scanner found to output.jpg
//	airscan
//
//	# Show capabilities of a known scanner
//	airscan -i -u http://192.168.1.20/eSCL/
//
//	# Grayscale scan at 150 DPI, capturing the protocol exchange
//	airscan -c Grayscale8 -r 150 -o page.jpg -protocol-log scan.alog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/escl-tools/airscan/internal/config"
	"github.com/escl-tools/airscan/pkg/version"
)

func main() {
	opts, fs := newFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if opts.version {
		fmt.Print(version.String())
		return
	}

	cfg, err := loadConfig(opts, setFlags(fs))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg:        cfg,
		info:       opts.info,
		debug:      opts.debug,
		out:        os.Stdout,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
	if err := a.run(ctx); err != nil {
		logger.Error("scan failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, the environment and the
// explicitly set flags, in that order.
func loadConfig(opts *options, set map[string]bool) (config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return cfg, err
	}
	opts.apply(&cfg, set)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
