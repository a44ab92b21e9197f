// Package stress measures how a DNS server copes with many concurrent
// queries: it fans probes out over a bounded pool of workers and reduces
// their outcomes into latency statistics.
package stress

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

const (
	DefaultWorkers  = 10
	DefaultTimeout  = 5 * time.Second
	DefaultTCPRatio = 0.5
)

// ProbeFunc performs one query for name. Any error marks the probe bad.
type ProbeFunc func(ctx context.Context, name string, tcp bool) error

// Result is the outcome of a single probe.
type Result struct {
	Name    string
	TCP     bool
	Good    bool
	Latency time.Duration
	Err     error
}

type Runner struct {
	Workers int
	// Timeout bounds each probe on its own; there is no overall deadline.
	Timeout time.Duration
	// TCPRatio is the probability that a probe uses TCP instead of UDP.
	TCPRatio float64
	Rand     *rand.Rand
	Probe    ProbeFunc
}

func NewRunner(probe ProbeFunc, workers int, timeout time.Duration) *Runner {
	return &Runner{
		Workers:  workers,
		Timeout:  timeout,
		TCPRatio: DefaultTCPRatio,
		Probe:    probe,
	}
}

// Run probes every name and returns once all probes have finished or timed
// out. Results are in the order of names.
func (r *Runner) Run(ctx context.Context, names []string) []Result {
	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// transports are drawn up front: *rand.Rand is not safe for concurrent use
	rng := r.rng()
	tcp := make([]bool, len(names))
	for i := range names {
		tcp[i] = rng.Float64() < r.TCPRatio
	}

	klog.V(2).InfoS("Starting stress run", "probes", len(names), "workers", workers, "timeout", timeout)

	results := make([]Result, len(names))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			results[i] = r.probe(ctx, name, tcp[i], timeout)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Runner) probe(ctx context.Context, name string, tcp bool, timeout time.Duration) (res Result) {
	res = Result{Name: name, TCP: tcp}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			res.Latency = time.Since(start)
			res.Good = false
			res.Err = fmt.Errorf("probe panicked: %v", p)
		}
	}()

	err := r.Probe(ctx, name, tcp)
	res.Latency = time.Since(start)
	res.Good = err == nil
	res.Err = err
	if err != nil {
		klog.V(4).InfoS("Stress probe failed", "name", name, "tcp", tcp, "latency", res.Latency, "err", err)
	}
	return res
}

func (r *Runner) rng() *rand.Rand {
	if r.Rand != nil {
		return r.Rand
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Sample returns n names drawn uniformly without replacement from
// candidates. The input is not modified. n is capped at len(candidates).
func Sample(candidates []string, n int, rng *rand.Rand) []string {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	shuffled := make([]string, len(candidates))
	copy(shuffled, candidates)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n < 0 {
		n = 0
	}
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
