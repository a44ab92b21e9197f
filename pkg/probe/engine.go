package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/punasusi/pihole-probe/pkg/probe/config"
	"k8s.io/klog/v2"
)

// DefaultFailureDetail replaces an empty diagnostic on a failed check.
const DefaultFailureDetail = "unspecified probe failure"

// Reporter receives progress of a run as it happens.
type Reporter interface {
	Running(c Check, summary string)
	Passed(c Check, summary string, o Outcome)
	Failed(c Check, summary string, o Outcome)
}

type nopReporter struct{}

func (nopReporter) Running(Check, string)         {}
func (nopReporter) Passed(Check, string, Outcome) {}
func (nopReporter) Failed(Check, string, Outcome) {}

// Engine runs the checks of a registry one at a time in execution order.
// Later checks rely on state established by earlier ones, so nothing here
// runs concurrently.
type Engine struct {
	registry *Registry
	reporter Reporter
	now      func() time.Time
}

func NewEngine(registry *Registry, reporter Reporter) *Engine {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Engine{
		registry: registry,
		reporter: reporter,
		now:      time.Now,
	}
}

// Plan returns the checks enabled under rc, in execution order.
func (e *Engine) Plan(rc *config.RunConfig) []Check {
	var plan []Check
	for _, c := range e.registry.Checks() {
		if rc.IsCheckEnabled(c.ID(), c.Category().EnabledByDefault()) {
			plan = append(plan, c)
		}
	}
	return plan
}

// Run executes the plan. With rc.FailFast it stops at the first failing
// check and no later check is invoked.
func (e *Engine) Run(ctx context.Context, rc *config.RunConfig) *RunResult {
	target := TargetFromConfig(rc)
	plan := e.Plan(rc)

	result := &RunResult{
		Target:  target.String(),
		State:   StateRunning,
		Results: make([]CheckResult, 0, len(plan)),
		Started: e.now(),
	}

	klog.V(1).InfoS("Starting run", "target", target, "checks", len(plan), "failFast", rc.FailFast)

	failed := false
	for _, c := range plan {
		if err := ctx.Err(); err != nil {
			klog.V(1).InfoS("Run interrupted", "before", c.ID(), "err", err)
			result.State = StateAborted
			break
		}

		cr := e.runCheck(ctx, c, target, rc)
		result.Results = append(result.Results, cr)

		if cr.Status == StatusFailed {
			failed = true
			if result.FailedCheck == "" {
				result.FailedCheck = c.ID()
			}
			if rc.FailFast {
				result.State = StateAborted
				break
			}
		}
	}

	if result.State == StateRunning {
		if failed {
			result.State = StateFailed
		} else {
			result.State = StatePassed
		}
	}

	result.Duration = e.now().Sub(result.Started)

	klog.V(1).InfoS("Run finished", "target", target, "state", result.State, "duration", result.Duration)
	return result
}

func (e *Engine) runCheck(ctx context.Context, c Check, target Target, rc *config.RunConfig) CheckResult {
	cr := CheckResult{
		ID:   c.ID(),
		Rank: c.Rank(),
	}

	params, err := ResolveParams(c, rc)
	if err != nil {
		cr.Summary = c.Summary()
		cr.Status = StatusFailed
		cr.Detail = err.Error()
		e.reporter.Running(c, cr.Summary)
		e.reporter.Failed(c, cr.Summary, Outcome{Detail: cr.Detail})
		return cr
	}

	cr.Summary = FormatSummary(c, target, params)
	e.reporter.Running(c, cr.Summary)

	klog.V(2).InfoS("Invoking check", "check", c.ID(), "rank", c.Rank(), "params", params)
	start := e.now()
	outcome := invoke(ctx, c, target, params)
	cr.Duration = e.now().Sub(start)
	cr.Detail = outcome.Detail

	if outcome.Passed {
		cr.Status = StatusPassed
		e.reporter.Passed(c, cr.Summary, outcome)
	} else {
		if cr.Detail == "" {
			cr.Detail = DefaultFailureDetail
			outcome.Detail = DefaultFailureDetail
		}
		cr.Status = StatusFailed
		e.reporter.Failed(c, cr.Summary, outcome)
	}

	klog.V(2).InfoS("Check finished", "check", c.ID(), "status", cr.Status, "duration", cr.Duration)
	return cr
}

// invoke shields the run from a check that breaks its contract by panicking.
func invoke(ctx context.Context, c Check, target Target, params Params) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			klog.ErrorS(nil, "Check panicked", "check", c.ID(), "panic", r)
			out = Fail("internal error in check %s: %v", c.ID(), r)
		}
	}()
	return c.Run(ctx, target, params)
}

// ResolveParams layers the overrides of rc on top of the declared defaults.
func ResolveParams(c Check, rc *config.RunConfig) (Params, error) {
	params := make(Params, len(c.Parameters()))
	for _, p := range c.Parameters() {
		params[p.Name] = p.Default
		if v, ok := rc.Param(c.ID(), p.Name); ok {
			coerced, err := p.Coerce(v)
			if err != nil {
				return nil, fmt.Errorf("check %s: %w", c.ID(), err)
			}
			params[p.Name] = coerced
		}
	}
	return params, nil
}
