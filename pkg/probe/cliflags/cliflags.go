// Package cliflags derives command-line flags from the checks of a
// registry: a skip or enable switch per check and a typed flag per check
// parameter.
package cliflags

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/punasusi/pihole-probe/pkg/probe"
	"github.com/punasusi/pihole-probe/pkg/probe/config"
)

const (
	SkipPrefix   = "skip-"
	EnablePrefix = "enable-"
)

type toggle struct {
	flag    string
	check   string
	enables bool
}

type paramFlag struct {
	flag  string
	check string
	param probe.Param
}

// Set is the group of check flags registered on a FlagSet.
type Set struct {
	flags   *pflag.FlagSet
	toggles []toggle
	params  []paramFlag
}

// SkipFlag is the switch that turns a mandatory check off.
func SkipFlag(id string) string {
	return SkipPrefix + id
}

// EnableFlag is the switch that turns an optional check on.
func EnableFlag(id string) string {
	return EnablePrefix + id
}

// ParamFlag is the flag overriding a check parameter.
func ParamFlag(id, param string) string {
	return id + "-" + param
}

// Register defines the flags of every check in registry on fs. It fails
// when two derived names collide with each other or an existing flag.
func Register(fs *pflag.FlagSet, registry *probe.Registry) (*Set, error) {
	s := &Set{flags: fs}

	define := func(name string) error {
		if fs.Lookup(name) != nil {
			return fmt.Errorf("flag --%s is defined twice", name)
		}
		return nil
	}

	for _, c := range registry.Checks() {
		summary := describe(c)
		t := toggle{check: c.ID()}
		if c.Category().EnabledByDefault() {
			t.flag = SkipFlag(c.ID())
			if err := define(t.flag); err != nil {
				return nil, err
			}
			fs.Bool(t.flag, false, "Skip: "+summary)
		} else {
			t.flag, t.enables = EnableFlag(c.ID()), true
			if err := define(t.flag); err != nil {
				return nil, err
			}
			fs.Bool(t.flag, false, "Enable: "+summary)
		}
		s.toggles = append(s.toggles, t)

		for _, p := range c.Parameters() {
			name := ParamFlag(c.ID(), p.Name)
			if err := define(name); err != nil {
				return nil, err
			}
			if err := defineParam(fs, name, p); err != nil {
				return nil, fmt.Errorf("check %s: %w", c.ID(), err)
			}
			s.params = append(s.params, paramFlag{flag: name, check: c.ID(), param: p})
		}
	}

	return s, nil
}

func defineParam(fs *pflag.FlagSet, name string, p probe.Param) error {
	usage := p.Usage
	if usage == "" {
		usage = p.Name
	}
	switch p.Type {
	case probe.ParamInt:
		def, _ := p.Default.(int)
		fs.Int(name, def, usage)
	case probe.ParamFloat:
		def, _ := p.Default.(float64)
		fs.Float64(name, def, usage)
	case probe.ParamString:
		def, _ := p.Default.(string)
		fs.String(name, def, usage)
	case probe.ParamDuration:
		def, _ := p.Default.(time.Duration)
		fs.Duration(name, def, usage)
	default:
		return fmt.Errorf("parameter %s has unsupported type %s", p.Name, p.Type)
	}
	return nil
}

// Apply copies the flags given on the command line into o. Flags left at
// their default do not override the configuration file.
func (s *Set) Apply(o *config.Overrides) error {
	if o.Enabled == nil {
		o.Enabled = make(map[string]bool)
	}
	if o.Params == nil {
		o.Params = make(map[string]map[string]any)
	}

	for _, t := range s.toggles {
		if !s.flags.Changed(t.flag) {
			continue
		}
		set, err := s.flags.GetBool(t.flag)
		if err != nil {
			return err
		}
		if t.enables {
			o.Enabled[t.check] = set
		} else {
			o.Enabled[t.check] = !set
		}
	}

	for _, pf := range s.params {
		if !s.flags.Changed(pf.flag) {
			continue
		}
		v, err := s.value(pf)
		if err != nil {
			return err
		}
		if o.Params[pf.check] == nil {
			o.Params[pf.check] = make(map[string]any)
		}
		o.Params[pf.check][pf.param.Name] = v
	}

	return nil
}

func (s *Set) value(pf paramFlag) (any, error) {
	switch pf.param.Type {
	case probe.ParamInt:
		return s.flags.GetInt(pf.flag)
	case probe.ParamFloat:
		return s.flags.GetFloat64(pf.flag)
	case probe.ParamString:
		return s.flags.GetString(pf.flag)
	case probe.ParamDuration:
		return s.flags.GetDuration(pf.flag)
	}
	return nil, fmt.Errorf("flag --%s has unsupported type %s", pf.flag, pf.param.Type)
}

// describe renders a summary for help text, with parameters at their
// defaults.
func describe(c probe.Check) string {
	defaults := probe.Params{}
	pairs := []string{"{target}", "the target"}
	for _, p := range c.Parameters() {
		defaults[p.Name] = p.Default
		pairs = append(pairs, "{"+p.Name+"}", defaults.Format(p.Name))
	}
	return strings.NewReplacer(pairs...).Replace(c.Summary())
}
