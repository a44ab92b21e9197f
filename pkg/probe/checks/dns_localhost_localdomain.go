package checks

import (
	"context"

	"github.com/miekg/dns"

	"github.com/punasusi/pihole-probe/pkg/dnsprobe"
	"github.com/punasusi/pihole-probe/pkg/probe"
)

type DNSLocalhostLocaldomain struct {
	client dnsprobe.Client
}

func NewDNSLocalhostLocaldomain(client dnsprobe.Client) *DNSLocalhostLocaldomain {
	return &DNSLocalhostLocaldomain{client: client}
}

func (c *DNSLocalhostLocaldomain) ID() string {
	return "dns-localhost-localdomain"
}

func (c *DNSLocalhostLocaldomain) Rank() int {
	return 9
}

func (c *DNSLocalhostLocaldomain) Category() probe.Category {
	return probe.Mandatory
}

func (c *DNSLocalhostLocaldomain) Summary() string {
	return "DNS localhost.localdomain should be NXDOMAIN"
}

func (c *DNSLocalhostLocaldomain) Parameters() []probe.Param {
	return nil
}

func (c *DNSLocalhostLocaldomain) Run(ctx context.Context, target probe.Target, _ probe.Params) probe.Outcome {
	ok, result := resolver(c.client, target).NXDomain(ctx, "localhost.localdomain.", dns.TypeA)
	if !ok {
		return probe.Fail("%s: should whitelist", result)
	}
	return probe.Pass("NXDOMAIN")
}
