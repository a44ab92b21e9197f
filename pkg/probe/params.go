package probe

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

type ParamType int

const (
	ParamInt ParamType = iota
	ParamFloat
	ParamString
	ParamDuration
)

func (t ParamType) String() string {
	switch t {
	case ParamInt:
		return "int"
	case ParamFloat:
		return "float"
	case ParamString:
		return "string"
	case ParamDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// Param declares one tunable parameter of a check. Default must already be
// of the Go type matching Type: int, float64, string or time.Duration.
type Param struct {
	Name    string
	Type    ParamType
	Default any
	Usage   string
}

// Coerce converts a value coming from a config file or a flag to the
// declared type of the parameter.
func (p Param) Coerce(v any) (any, error) {
	switch p.Type {
	case ParamInt:
		switch x := v.(type) {
		case int:
			return x, nil
		case int64:
			return int(x), nil
		case uint64:
			if x > math.MaxInt {
				return nil, fmt.Errorf("parameter %s: %d is out of range", p.Name, x)
			}
			return int(x), nil
		case float64:
			if x != math.Trunc(x) {
				return nil, fmt.Errorf("parameter %s: %v is not an integer", p.Name, x)
			}
			// float64(math.MaxInt) rounds up to 2^63, which does not fit
			if x < math.MinInt || x >= math.MaxInt {
				return nil, fmt.Errorf("parameter %s: %v is out of range", p.Name, x)
			}
			return int(x), nil
		case string:
			n, err := strconv.Atoi(x)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %q is not an integer", p.Name, x)
			}
			return n, nil
		}
	case ParamFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %q is not a number", p.Name, x)
			}
			return f, nil
		}
	case ParamString:
		switch x := v.(type) {
		case string:
			return x, nil
		case fmt.Stringer:
			return x.String(), nil
		}
	case ParamDuration:
		switch x := v.(type) {
		case time.Duration:
			return x, nil
		case string:
			d, err := time.ParseDuration(x)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %q is not a duration", p.Name, x)
			}
			return d, nil
		case int:
			// bare numbers in config files are seconds
			return time.Duration(x) * time.Second, nil
		case float64:
			return time.Duration(x * float64(time.Second)), nil
		}
	}
	return nil, fmt.Errorf("parameter %s: cannot use %v (%T) as %s", p.Name, v, v, p.Type)
}

// Params holds the effective parameter values of one check invocation.
type Params map[string]any

func (p Params) Int(name string) int {
	v, _ := p[name].(int)
	return v
}

func (p Params) Float(name string) float64 {
	v, _ := p[name].(float64)
	return v
}

func (p Params) String(name string) string {
	v, _ := p[name].(string)
	return v
}

func (p Params) Duration(name string) time.Duration {
	v, _ := p[name].(time.Duration)
	return v
}

// Format renders a parameter for summaries and reports.
func (p Params) Format(name string) string {
	v, ok := p[name]
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
