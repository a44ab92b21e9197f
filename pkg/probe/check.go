package probe

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/punasusi/pihole-probe/pkg/probe/config"
)

type Category int

const (
	// Mandatory checks run unless skipped.
	Mandatory Category = iota
	// Optional checks run only when enabled.
	Optional
)

func (c Category) String() string {
	switch c {
	case Mandatory:
		return "mandatory"
	case Optional:
		return "optional"
	default:
		return "unknown"
	}
}

// EnabledByDefault reports whether checks of this category run without an
// explicit enable/skip decision.
func (c Category) EnabledByDefault() bool {
	return c == Mandatory
}

// Check is a single named probe against the target.
//
// Run must not panic and has no error return: every failure of the
// underlying probe is reported as a failed Outcome with a diagnostic.
type Check interface {
	ID() string
	Rank() int
	Category() Category
	Summary() string
	Parameters() []Param
	Run(ctx context.Context, target Target, params Params) Outcome
}

type Outcome struct {
	Passed bool
	Detail string
}

func Pass(format string, args ...any) Outcome {
	return Outcome{Passed: true, Detail: fmt.Sprintf(format, args...)}
}

func Fail(format string, args ...any) Outcome {
	return Outcome{Passed: false, Detail: fmt.Sprintf(format, args...)}
}

// Target is the appliance under test. The address is the implicit
// parameter of every check and cannot be overridden per check.
type Target struct {
	Addr      netip.Addr
	DNSServer string
	WebBase   string
}

func NewTarget(addr netip.Addr, dnsPort, httpPort int) Target {
	host := addr.String()
	// a zone inside a URL host must be escaped
	webHost := strings.Replace(host, "%", "%25", 1)
	web := "http://" + webHost
	if addr.Is6() {
		web = "http://[" + webHost + "]"
	}
	if httpPort != 0 && httpPort != 80 {
		web = "http://" + net.JoinHostPort(webHost, strconv.Itoa(httpPort))
	}
	if dnsPort == 0 {
		dnsPort = 53
	}
	return Target{
		Addr:      addr,
		DNSServer: net.JoinHostPort(host, strconv.Itoa(dnsPort)),
		WebBase:   web,
	}
}

// TargetFromConfig builds the target of a run.
func TargetFromConfig(rc *config.RunConfig) Target {
	return NewTarget(rc.Target, rc.DNSPort, rc.HTTPPort)
}

func (t Target) String() string {
	return t.Addr.String()
}

// URL joins a path onto the web base of the target.
func (t Target) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return t.WebBase + path
}

// FormatSummary resolves {target} and {param} placeholders in a check summary.
func FormatSummary(c Check, target Target, params Params) string {
	pairs := []string{"{target}", target.String()}
	for _, p := range c.Parameters() {
		pairs = append(pairs, "{"+p.Name+"}", params.Format(p.Name))
	}
	return strings.NewReplacer(pairs...).Replace(c.Summary())
}
