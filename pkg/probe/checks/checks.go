// Package checks holds the probes run against a Pi-hole appliance.
package checks

import (
	"net/netip"

	"github.com/miekg/dns"

	"github.com/punasusi/pihole-probe/pkg/dnsprobe"
	"github.com/punasusi/pihole-probe/pkg/ping"
	"github.com/punasusi/pihole-probe/pkg/probe"
	"github.com/punasusi/pihole-probe/pkg/webprobe"
)

// PiHoleName is the name the appliance answers with its own address.
const PiHoleName = "pi.hole"

const webFailure = "Error/Timeout in http request, make sure web server is operational and not firewalled"

// Deps are the collaborators the checks talk to the target through.
type Deps struct {
	DNS       dnsprobe.Client
	Web       webprobe.Client
	Pinger    ping.Pinger
	PingCount int
	// StressCandidates overrides the built-in stress domain list.
	StressCandidates []string
}

// Default returns the registry of every check, in execution order.
func Default(deps Deps) *probe.Registry {
	return probe.MustNewRegistry(
		NewPing(deps.Pinger, deps.PingCount),
		NewDNSSelf(deps.DNS),
		NewDNSGoodSite(deps.DNS),
		NewDNSLocalhost(deps.DNS),
		NewDNSLocalhostLocaldomain(deps.DNS),
		NewDNSBadSite(deps.DNS),
		NewWebBlocked(deps.Web),
		NewAdminOK(deps.Web),
		NewAPI(deps.Web),
		NewDNSStress(deps.DNS, deps.StressCandidates),
	)
}

func resolver(client dnsprobe.Client, target probe.Target) dnsprobe.Resolver {
	return dnsprobe.Resolver{Client: client, Server: target.DNSServer}
}

// answerAddr is addr as it appears in an A or AAAA record. Records never
// carry an IPv6 zone, so it is dropped.
func answerAddr(addr netip.Addr) string {
	return addr.WithZone("").String()
}

// addrType is the query type whose records hold addresses like addr.
func addrType(addr netip.Addr) uint16 {
	if addr.Is4() || addr.Is4In6() {
		return dns.TypeA
	}
	return dns.TypeAAAA
}
