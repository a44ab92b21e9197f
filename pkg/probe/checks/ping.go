package checks

import (
	"context"

	"github.com/punasusi/pihole-probe/pkg/ping"
	"github.com/punasusi/pihole-probe/pkg/probe"
)

const defaultPingCount = 4

type Ping struct {
	pinger ping.Pinger
	count  int
}

func NewPing(pinger ping.Pinger, count int) *Ping {
	if count <= 0 {
		count = defaultPingCount
	}
	return &Ping{pinger: pinger, count: count}
}

func (c *Ping) ID() string {
	return "ping"
}

func (c *Ping) Rank() int {
	return 1
}

func (c *Ping) Category() probe.Category {
	return probe.Optional
}

func (c *Ping) Summary() string {
	return "Probe existence of {target} via ping"
}

func (c *Ping) Parameters() []probe.Param {
	return []probe.Param{
		{Name: "count", Type: probe.ParamInt, Default: c.count, Usage: "echo requests to send"},
	}
}

func (c *Ping) Run(ctx context.Context, target probe.Target, params probe.Params) probe.Outcome {
	stats, err := c.pinger.Ping(ctx, target.Addr, params.Int("count"))
	if err != nil {
		return probe.Fail("Host not pingable: %v", err)
	}
	if stats.Received == 0 {
		return probe.Fail("Host not pingable: %s", stats)
	}
	return probe.Pass("%s", stats)
}
