package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Binding maps parameter names to their bound values. Values are kept as
// strings (the form they take in templates); the declared parameter kind
// constrains what strings are acceptable.
type Binding map[string]string

// Narrow returns a new binding containing only the named parameters.
// Names with no bound value are simply absent from the result; the caller
// decides whether that is an error (it is, once a template references them).
func (b Binding) Narrow(names []string) Binding {
	narrowed := make(Binding, len(names))
	for _, name := range names {
		if value, ok := b[name]; ok {
			narrowed[name] = value
		}
	}
	return narrowed
}

// Clone returns an independent copy of the binding.
func (b Binding) Clone() Binding {
	c := make(Binding, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

// String renders the binding as "k=v" pairs in sorted key order.
// Used in instance names and log fields; must be deterministic.
func (b Binding) String() string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+b[k])
	}
	return strings.Join(pairs, ",")
}

// ParamKind is the declared type of a parameter.
type ParamKind string

const (
	// ParamNumber accepts integer or decimal values.
	ParamNumber ParamKind = "number"
	// ParamString accepts any value.
	ParamString ParamKind = "string"
)

// Parameter declares a named, typed experiment parameter. Its value is
// supplied at invocation time, not in the spec document.
type Parameter struct {
	Name string
	Kind ParamKind
	Help string
}

// CheckValue validates a bound value against the parameter's declared kind.
func (p Parameter) CheckValue(value string) error {
	switch p.Kind {
	case ParamNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return NewConfigError(ErrCodeBadValue, p.Name,
				fmt.Sprintf("value %q is not a number", value))
		}
		return nil
	case ParamString:
		return nil
	default:
		return NewConfigError(ErrCodeBadValue, p.Name,
			fmt.Sprintf("unknown parameter kind %q", p.Kind))
	}
}
