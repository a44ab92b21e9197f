package probe

import "time"

type Status int

const (
	StatusNotRun Status = iota
	StatusPassed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNotRun:
		return "NOT RUN"
	case StatusPassed:
		return "PASS"
	case StatusFailed:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// State is the state of a whole run.
type State int

const (
	StatePending State = iota
	StateRunning
	StatePassed
	// StateFailed ends a run that kept going past failing checks.
	StateFailed
	// StateAborted ends a run stopped at its first failure or by cancellation.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StatePassed:
		return "passed"
	case StateFailed:
		return "failed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

type CheckResult struct {
	ID       string
	Rank     int
	Summary  string
	Status   Status
	Detail   string
	Duration time.Duration
}

type RunResult struct {
	Target      string
	State       State
	Results     []CheckResult
	FailedCheck string
	Started     time.Time
	Duration    time.Duration
}

func (r *RunResult) Passed() bool {
	return r.State == StatePassed
}

// Counts returns how many checks passed and failed.
func (r *RunResult) Counts() (passed, failed int) {
	for _, cr := range r.Results {
		switch cr.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		}
	}
	return passed, failed
}
