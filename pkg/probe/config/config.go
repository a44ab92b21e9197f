package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDNSPort     = 53
	DefaultHTTPPort    = 80
	DefaultDNSTimeout  = 10 * time.Second
	DefaultHTTPTimeout = 5 * time.Second
	DefaultPingTimeout = 10 * time.Second
	DefaultPingCount   = 4
)

type Config struct {
	Checks   map[string]CheckConfig `yaml:"checks,omitempty"`
	Ignore   IgnoreConfig           `yaml:"ignore,omitempty"`
	Target   TargetConfig           `yaml:"target,omitempty"`
	Timeouts TimeoutConfig          `yaml:"timeouts,omitempty"`
	Ping     PingConfig             `yaml:"ping,omitempty"`
}

type CheckConfig struct {
	Enabled *bool          `yaml:"enabled,omitempty"`
	Params  map[string]any `yaml:"params,omitempty"`
}

type IgnoreConfig struct {
	Checks []string `yaml:"checks,omitempty"`
}

type TargetConfig struct {
	DNSPort  int `yaml:"dns_port,omitempty"`
	HTTPPort int `yaml:"http_port,omitempty"`
}

type TimeoutConfig struct {
	DNS  time.Duration `yaml:"dns,omitempty"`
	HTTP time.Duration `yaml:"http,omitempty"`
	Ping time.Duration `yaml:"ping,omitempty"`
}

type PingConfig struct {
	Count int `yaml:"count,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Checks: map[string]CheckConfig{},
		Target: TargetConfig{
			DNSPort:  DefaultDNSPort,
			HTTPPort: DefaultHTTPPort,
		},
		Timeouts: TimeoutConfig{
			DNS:  DefaultDNSTimeout,
			HTTP: DefaultHTTPTimeout,
			Ping: DefaultPingTimeout,
		},
		Ping: PingConfig{
			Count: DefaultPingCount,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Checks == nil {
		cfg.Checks = map[string]CheckConfig{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every problem in the file at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Target.DNSPort < 0 || c.Target.DNSPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("target.dns_port %d out of range", c.Target.DNSPort))
	}
	if c.Target.HTTPPort < 0 || c.Target.HTTPPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("target.http_port %d out of range", c.Target.HTTPPort))
	}
	if c.Timeouts.DNS < 0 {
		result = multierror.Append(result, fmt.Errorf("timeouts.dns must not be negative"))
	}
	if c.Timeouts.HTTP < 0 {
		result = multierror.Append(result, fmt.Errorf("timeouts.http must not be negative"))
	}
	if c.Timeouts.Ping < 0 {
		result = multierror.Append(result, fmt.Errorf("timeouts.ping must not be negative"))
	}
	if c.Ping.Count < 0 {
		result = multierror.Append(result, fmt.Errorf("ping.count must not be negative"))
	}
	for name := range c.Checks {
		if strings.TrimSpace(name) == "" {
			result = multierror.Append(result, fmt.Errorf("checks: empty check id"))
		}
	}

	return result.ErrorOrNil()
}

// CheckEnabled reports the file's decision for a check. An explicit
// enabled setting wins over the ignore list; ok is false when the file says
// nothing about the check.
func (c *Config) CheckEnabled(name string) (enabled, ok bool) {
	if checkCfg, found := c.Checks[name]; found && checkCfg.Enabled != nil {
		return *checkCfg.Enabled, true
	}

	for _, ignored := range c.Ignore.Checks {
		if ignored == name {
			return false, true
		}
	}

	return false, false
}

// ParseTarget accepts an IPv4 or IPv6 literal.
func ParseTarget(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid target address %q: must be an IP address", s)
	}
	return addr.Unmap(), nil
}

func SaveExample(path string) error {
	example := `# Pi-hole Probe Configuration
# Place this file at .probe/config.yaml

# Enable, disable or tune specific checks
checks:
  # dns-good-site:
  #   enabled: false
  # dns-stress:
  #   enabled: true
  #   params:
  #     count: 200
  #     threads: 20
  #     timeout: 3s
  #     threshold: 0.05

# Checks to skip entirely
ignore:
  checks: []
    # - ping

# Ports on the target (non-standard deployments)
target:
  dns_port: 53
  http_port: 80

# Per-request timeouts; a timeout is a failure, never retried
timeouts:
  dns: 10s
  http: 5s
  ping: 10s

ping:
  count: 4
`

	return os.WriteFile(path, []byte(example), 0644)
}
