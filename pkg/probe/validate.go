package probe

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/punasusi/pihole-probe/pkg/probe/config"
)

// ValidateOverrides rejects enable/skip decisions and parameter overrides
// that do not match any registered check, before anything runs.
func ValidateOverrides(r *Registry, rc *config.RunConfig) error {
	var result *multierror.Error

	for _, id := range sortedKeys(rc.Enabled) {
		if _, ok := r.Lookup(id); !ok {
			result = multierror.Append(result, fmt.Errorf("unknown check %q", id))
		}
	}

	for _, id := range sortedKeys(rc.Params) {
		c, ok := r.Lookup(id)
		if !ok {
			result = multierror.Append(result, fmt.Errorf("parameters given for unknown check %q", id))
			continue
		}
		declared := make(map[string]Param)
		for _, p := range c.Parameters() {
			declared[p.Name] = p
		}
		for _, name := range sortedKeys(rc.Params[id]) {
			p, ok := declared[name]
			if !ok {
				result = multierror.Append(result, fmt.Errorf("check %s has no parameter %q", id, name))
				continue
			}
			if _, err := p.Coerce(rc.Params[id][name]); err != nil {
				result = multierror.Append(result, fmt.Errorf("check %s: %w", id, err))
			}
		}
	}

	return result.ErrorOrNil()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
