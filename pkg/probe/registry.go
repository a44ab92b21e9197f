package probe

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Registry is the fixed, ordered set of checks known to the binary.
type Registry struct {
	checks []Check
	byID   map[string]Check
}

// NewRegistry validates the checks and sorts them by rank, then id.
func NewRegistry(checks ...Check) (*Registry, error) {
	r := &Registry{
		checks: make([]Check, 0, len(checks)),
		byID:   make(map[string]Check, len(checks)),
	}

	var result *multierror.Error
	for _, c := range checks {
		if err := validateCheck(c); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if _, dup := r.byID[c.ID()]; dup {
			result = multierror.Append(result, fmt.Errorf("duplicate check id %q", c.ID()))
			continue
		}
		r.byID[c.ID()] = c
		r.checks = append(r.checks, c)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	sort.SliceStable(r.checks, func(i, j int) bool {
		return Less(r.checks[i], r.checks[j])
	})

	return r, nil
}

// MustNewRegistry is NewRegistry for static tables; it panics on error.
func MustNewRegistry(checks ...Check) *Registry {
	r, err := NewRegistry(checks...)
	if err != nil {
		panic(fmt.Sprintf("probe: invalid registry: %v", err))
	}
	return r
}

// Less is the execution order of checks: rank, then id.
func Less(a, b Check) bool {
	if a.Rank() != b.Rank() {
		return a.Rank() < b.Rank()
	}
	return a.ID() < b.ID()
}

// Checks returns the checks in execution order.
func (r *Registry) Checks() []Check {
	out := make([]Check, len(r.checks))
	copy(out, r.checks)
	return out
}

func (r *Registry) Lookup(id string) (Check, bool) {
	c, ok := r.byID[id]
	return c, ok
}

func validateCheck(c Check) error {
	id := c.ID()
	if id == "" {
		return fmt.Errorf("check with empty id (summary %q)", c.Summary())
	}
	if strings.ContainsAny(id, " _=\t") {
		return fmt.Errorf("check id %q must be kebab-case", id)
	}

	seen := make(map[string]bool)
	for _, p := range c.Parameters() {
		if p.Name == "" {
			return fmt.Errorf("check %s: parameter with empty name", id)
		}
		if seen[p.Name] {
			return fmt.Errorf("check %s: duplicate parameter %q", id, p.Name)
		}
		seen[p.Name] = true
		if !defaultMatches(p) {
			return fmt.Errorf("check %s: default of %s is %T, want %s", id, p.Name, p.Default, p.Type)
		}
	}
	return nil
}

func defaultMatches(p Param) bool {
	switch p.Type {
	case ParamInt:
		_, ok := p.Default.(int)
		return ok
	case ParamFloat:
		_, ok := p.Default.(float64)
		return ok
	case ParamString:
		_, ok := p.Default.(string)
		return ok
	case ParamDuration:
		_, ok := p.Default.(time.Duration)
		return ok
	}
	return false
}
