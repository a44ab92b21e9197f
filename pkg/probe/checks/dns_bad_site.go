package checks

import (
	"context"
	"strings"

	"github.com/punasusi/pihole-probe/pkg/dnsprobe"
	"github.com/punasusi/pihole-probe/pkg/probe"
)

// DefaultAdSites are domains on every stock blocklist.
var DefaultAdSites = []string{
	"www.doubleclick.net",
	"www.googleadservices.com",
}

type DNSBadSite struct {
	client dnsprobe.Client
}

func NewDNSBadSite(client dnsprobe.Client) *DNSBadSite {
	return &DNSBadSite{client: client}
}

func (c *DNSBadSite) ID() string {
	return "dns-bad-site"
}

func (c *DNSBadSite) Rank() int {
	return 10
}

func (c *DNSBadSite) Category() probe.Category {
	return probe.Mandatory
}

func (c *DNSBadSite) Summary() string {
	return "DNS query for known ad sites"
}

func (c *DNSBadSite) Parameters() []probe.Param {
	return []probe.Param{
		{Name: "sites", Type: probe.ParamString, Default: strings.Join(DefaultAdSites, ","), Usage: "comma separated domains that must be blocked"},
	}
}

func (c *DNSBadSite) Run(ctx context.Context, target probe.Target, params probe.Params) probe.Outcome {
	sites := splitList(params.String("sites"))
	if len(sites) == 0 {
		return probe.Fail("no ad sites to query")
	}
	r := resolver(c.client, target)
	for _, site := range sites {
		ok, result := r.Equals(ctx, site, answerAddr(target.Addr), addrType(target.Addr))
		if !ok {
			return probe.Fail("%s: Are blacklists setup?", result)
		}
	}
	return probe.Pass("Returning pi.hole IP")
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
