package config

import (
	"net/netip"
	"time"
)

type Verbosity int

const (
	VerbosityNormal Verbosity = iota
	VerbosityQuiet
	VerbositySilent
)

// VerbosityFromCount maps the number of -q flags to a level.
func VerbosityFromCount(n int) Verbosity {
	switch {
	case n <= 0:
		return VerbosityNormal
	case n == 1:
		return VerbosityQuiet
	default:
		return VerbositySilent
	}
}

func (v Verbosity) String() string {
	switch v {
	case VerbosityNormal:
		return "normal"
	case VerbosityQuiet:
		return "quiet"
	case VerbositySilent:
		return "silent"
	default:
		return "unknown"
	}
}

// Overrides carries the per-invocation values given on the command line.
type Overrides struct {
	Verbosity Verbosity
	KeepGoing bool
	Enabled   map[string]bool
	Params    map[string]map[string]any
}

// RunConfig is built once per invocation and must not be modified while a
// run is in progress.
type RunConfig struct {
	Target    netip.Addr
	DNSPort   int
	HTTPPort  int
	Timeouts  TimeoutConfig
	PingCount int
	Verbosity Verbosity
	FailFast  bool

	// Enabled holds explicit enable/skip decisions. Checks missing from the
	// map follow their category default.
	Enabled map[string]bool

	// Params holds parameter overrides keyed by check id then parameter name.
	Params map[string]map[string]any
}

// RunConfig merges the file configuration with command-line overrides.
// Overrides win over the file; the file wins over check defaults.
func (c *Config) RunConfig(target netip.Addr, o Overrides) *RunConfig {
	rc := &RunConfig{
		Target:    target,
		DNSPort:   orInt(c.Target.DNSPort, DefaultDNSPort),
		HTTPPort:  orInt(c.Target.HTTPPort, DefaultHTTPPort),
		PingCount: orInt(c.Ping.Count, DefaultPingCount),
		Timeouts: TimeoutConfig{
			DNS:  orDuration(c.Timeouts.DNS, DefaultDNSTimeout),
			HTTP: orDuration(c.Timeouts.HTTP, DefaultHTTPTimeout),
			Ping: orDuration(c.Timeouts.Ping, DefaultPingTimeout),
		},
		Verbosity: o.Verbosity,
		FailFast:  !o.KeepGoing,
		Enabled:   make(map[string]bool),
		Params:    make(map[string]map[string]any),
	}

	for name, checkCfg := range c.Checks {
		rc.applyFile(c, name)
		for param, value := range checkCfg.Params {
			rc.setParam(name, param, value)
		}
	}
	for _, ignored := range c.Ignore.Checks {
		rc.applyFile(c, ignored)
	}

	for name, enabled := range o.Enabled {
		rc.Enabled[name] = enabled
	}
	for name, params := range o.Params {
		for param, value := range params {
			rc.setParam(name, param, value)
		}
	}

	return rc
}

func (rc *RunConfig) applyFile(c *Config, name string) {
	if enabled, ok := c.CheckEnabled(name); ok {
		rc.Enabled[name] = enabled
	}
}

func (rc *RunConfig) setParam(check, param string, value any) {
	if rc.Params[check] == nil {
		rc.Params[check] = make(map[string]any)
	}
	rc.Params[check][param] = value
}

// IsCheckEnabled reports whether a check takes part in the run. def is the
// category default: true for mandatory checks, false for optional ones.
func (rc *RunConfig) IsCheckEnabled(name string, def bool) bool {
	if enabled, ok := rc.Enabled[name]; ok {
		return enabled
	}
	return def
}

// Param returns the override for a check parameter, if any.
func (rc *RunConfig) Param(check, param string) (any, bool) {
	params, ok := rc.Params[check]
	if !ok {
		return nil, false
	}
	v, ok := params[param]
	return v, ok
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
