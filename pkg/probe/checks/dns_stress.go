package checks

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/punasusi/pihole-probe/pkg/dnsprobe"
	"github.com/punasusi/pihole-probe/pkg/probe"
	"github.com/punasusi/pihole-probe/pkg/stress"
)

type DNSStress struct {
	client     dnsprobe.Client
	candidates []string
}

// NewDNSStress samples from candidates, or from the built-in list when
// candidates is empty.
func NewDNSStress(client dnsprobe.Client, candidates []string) *DNSStress {
	if len(candidates) == 0 {
		candidates = stress.Candidates()
	}
	return &DNSStress{client: client, candidates: candidates}
}

func (c *DNSStress) ID() string {
	return "dns-stress"
}

func (c *DNSStress) Rank() int {
	return 90
}

func (c *DNSStress) Category() probe.Category {
	return probe.Optional
}

func (c *DNSStress) Summary() string {
	return "DNS stress test with {count} queries over {threads} threads"
}

func (c *DNSStress) Parameters() []probe.Param {
	return []probe.Param{
		{Name: "count", Type: probe.ParamInt, Default: 100, Usage: "number of queries"},
		{Name: "threads", Type: probe.ParamInt, Default: stress.DefaultWorkers, Usage: "concurrent queries"},
		{Name: "timeout", Type: probe.ParamDuration, Default: stress.DefaultTimeout, Usage: "timeout of each query"},
		{Name: "threshold", Type: probe.ParamFloat, Default: stress.DefaultThreshold, Usage: "good/bad ratio a run with failures must exceed"},
	}
}

func (c *DNSStress) Run(ctx context.Context, target probe.Target, params probe.Params) probe.Outcome {
	names := stress.Sample(c.candidates, params.Int("count"), nil)
	runner := stress.NewRunner(stress.DNSProbe(c.client, target.DNSServer), params.Int("threads"), params.Duration("timeout"))

	stats := stress.Aggregate(runner.Run(ctx, names))
	klog.V(2).InfoS("Stress run finished", "target", target, "good", stats.Good, "bad", stats.Bad, "meanMs", stats.MeanMS)

	ok, detail := stress.Verdict(stats, params.Float("threshold"))
	if !ok {
		return probe.Fail("%s", detail)
	}
	return probe.Pass("%s", detail)
}
