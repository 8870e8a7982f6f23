package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/smartmake/internal/model"
)

// ParseBindings turns repeated --set name=value flags into the list of
// parameter bindings to build. A parameter given several values multiplies
// the request: the result is the cross-product of every multi-valued
// parameter, expanded in sorted parameter order so the outcome is
// deterministic. No --set flags yield one empty binding.
func ParseBindings(sets []string) ([]model.Binding, error) {
	values := make(map[string][]string)
	for _, set := range sets {
		name, value, ok := strings.Cut(set, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed --set %q (want name=value)", set)
		}
		values[name] = append(values[name], value)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	bindings := []model.Binding{{}}
	for _, name := range names {
		var expanded []model.Binding
		for _, b := range bindings {
			for _, value := range values[name] {
				next := b.Clone()
				next[name] = value
				expanded = append(expanded, next)
			}
		}
		bindings = expanded
	}
	return bindings, nil
}
