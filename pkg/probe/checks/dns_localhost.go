package checks

import (
	"context"

	"github.com/miekg/dns"

	"github.com/punasusi/pihole-probe/pkg/dnsprobe"
	"github.com/punasusi/pihole-probe/pkg/probe"
)

type DNSLocalhost struct {
	client dnsprobe.Client
}

func NewDNSLocalhost(client dnsprobe.Client) *DNSLocalhost {
	return &DNSLocalhost{client: client}
}

func (c *DNSLocalhost) ID() string {
	return "dns-localhost"
}

func (c *DNSLocalhost) Rank() int {
	return 8
}

func (c *DNSLocalhost) Category() probe.Category {
	return probe.Mandatory
}

func (c *DNSLocalhost) Summary() string {
	return "DNS localhost should not return IP (or 127.0.0.1)"
}

func (c *DNSLocalhost) Parameters() []probe.Param {
	return nil
}

func (c *DNSLocalhost) Run(ctx context.Context, target probe.Target, _ probe.Params) probe.Outcome {
	r := resolver(c.client, target)
	ok, result := r.NXDomain(ctx, "localhost.", dns.TypeA)
	if ok {
		return probe.Pass("NXDOMAIN")
	}
	// some installs answer localhost themselves, which is harmless
	if loopback, _ := r.Equals(ctx, "localhost.", "127.0.0.1", dns.TypeA); loopback {
		return probe.Pass("pi.hole returning 127.0.0.1 for localhost")
	}
	return probe.Fail("%s: localhost should be NXDOMAIN", result)
}
