package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/escl-tools/airscan/internal/config"
)

// options holds the raw flag values. Only flags set on the command line
// override the loaded configuration.
type options struct {
	output      string
	timeout     time.Duration
	url         string
	info        bool
	debug       bool
	resolution  int
	colorMode   string
	configFile  string
	protocolLog string
	service     string
	iface       string
	httpTimeout time.Duration
	version     bool
}

// secondsValue is a duration flag that also accepts a bare number of seconds.
type secondsValue time.Duration

func (s *secondsValue) Set(v string) error {
	d, err := parseSeconds(v)
	if err != nil {
		return err
	}
	*s = secondsValue(d)
	return nil
}

func (s *secondsValue) String() string {
	return time.Duration(*s).String()
}

// parseSeconds accepts "3", "0.5" or any time.ParseDuration form.
func parseSeconds(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}

func newFlagSet() (*options, *flag.FlagSet) {
	o := &options{}
	fs := flag.NewFlagSet("airscan", flag.ContinueOnError)

	def := config.Default()
	o.timeout = def.Timeout

	for _, name := range []string{"o", "output"} {
		fs.StringVar(&o.output, name, def.Output, "Output filename")
	}
	for _, name := range []string{"t", "timeout"} {
		fs.Var((*secondsValue)(&o.timeout), name, "Time to search for scanners, in seconds or as a duration")
	}
	for _, name := range []string{"u", "url"} {
		fs.StringVar(&o.url, name, "", "URL to directly contact the scanner")
	}
	for _, name := range []string{"i", "info"} {
		fs.BoolVar(&o.info, name, false, "Only show information about the scanner")
	}
	for _, name := range []string{"d", "debug"} {
		fs.BoolVar(&o.debug, name, false, "Verbose output, including protocol exchanges")
	}
	for _, name := range []string{"r", "resolution"} {
		fs.IntVar(&o.resolution, name, 0, "Resolution in DPI (defaults to the scanner default or highest possible resolution)")
	}
	for _, name := range []string{"c", "colormode"} {
		fs.StringVar(&o.colorMode, name, "", "Color mode (defaults to the scanner default, RGB24 if present or the first supported mode)")
	}
	fs.StringVar(&o.configFile, "config", "", "Configuration file path")
	fs.StringVar(&o.protocolLog, "protocol-log", "", "Write a protocol capture to this file")
	fs.StringVar(&o.service, "service", def.Service, "DNS-SD service type to browse")
	fs.StringVar(&o.iface, "interface", "", "Restrict browsing to one network interface")
	fs.Var((*secondsValue)(&o.httpTimeout), "http-timeout", "Timeout of each HTTP exchange (0 = none)")
	fs.BoolVar(&o.version, "version", false, "Print version information")

	return o, fs
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

// apply copies the explicitly set flags into cfg.
func (o *options) apply(cfg *config.Config, set map[string]bool) {
	given := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return true
			}
		}
		return false
	}

	if given("o", "output") {
		cfg.Output = o.output
	}
	if given("t", "timeout") {
		cfg.Timeout = o.timeout
	}
	if given("u", "url") {
		cfg.URL = o.url
	}
	if given("r", "resolution") {
		cfg.Resolution = o.resolution
	}
	if given("c", "colormode") {
		cfg.ColorMode = o.colorMode
	}
	if given("protocol-log") {
		cfg.ProtocolLog = o.protocolLog
	}
	if given("service") {
		cfg.Service = o.service
	}
	if given("interface") {
		cfg.Interface = o.iface
	}
	if given("http-timeout") {
		cfg.HTTPTimeout = o.httpTimeout
	}
	if o.debug {
		cfg.LogLevel = "debug"
	}
}
