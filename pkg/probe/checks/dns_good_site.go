package checks

import (
	"context"

	"github.com/punasusi/pihole-probe/pkg/dnsprobe"
	"github.com/punasusi/pihole-probe/pkg/probe"
)

type DNSGoodSite struct {
	client dnsprobe.Client
}

func NewDNSGoodSite(client dnsprobe.Client) *DNSGoodSite {
	return &DNSGoodSite{client: client}
}

func (c *DNSGoodSite) ID() string {
	return "dns-good-site"
}

func (c *DNSGoodSite) Rank() int {
	return 5
}

func (c *DNSGoodSite) Category() probe.Category {
	return probe.Mandatory
}

func (c *DNSGoodSite) Summary() string {
	return "DNS for {site}, should return IP that is not pihole"
}

func (c *DNSGoodSite) Parameters() []probe.Param {
	return []probe.Param{
		{Name: "site", Type: probe.ParamString, Default: "www.google.com", Usage: "a domain that must not be blocked"},
	}
}

func (c *DNSGoodSite) Run(ctx context.Context, target probe.Target, params probe.Params) probe.Outcome {
	ok, result := resolver(c.client, target).NotEquals(ctx, params.String("site"), answerAddr(target.Addr), addrType(target.Addr))
	if !ok {
		return probe.Fail("%s: check blacklists", result)
	}
	return probe.Pass("%s", result)
}
