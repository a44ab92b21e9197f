package checks

import (
	"context"

	"github.com/punasusi/pihole-probe/pkg/dnsprobe"
	"github.com/punasusi/pihole-probe/pkg/probe"
)

type DNSSelf struct {
	client dnsprobe.Client
}

func NewDNSSelf(client dnsprobe.Client) *DNSSelf {
	return &DNSSelf{client: client}
}

func (c *DNSSelf) ID() string {
	return "dns-self"
}

func (c *DNSSelf) Rank() int {
	return 4
}

func (c *DNSSelf) Category() probe.Category {
	return probe.Mandatory
}

func (c *DNSSelf) Summary() string {
	return "DNS pi.hole should return own IP"
}

func (c *DNSSelf) Parameters() []probe.Param {
	return nil
}

func (c *DNSSelf) Run(ctx context.Context, target probe.Target, _ probe.Params) probe.Outcome {
	ok, result := resolver(c.client, target).Equals(ctx, PiHoleName, answerAddr(target.Addr), addrType(target.Addr))
	if !ok {
		return probe.Fail("%s: Check to see that this is a pi-hole and not firewalled", result)
	}
	return probe.Pass("%s", result)
}
