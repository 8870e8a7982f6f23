package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// paramPattern matches {name} placeholders in path and command templates.
var paramPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// TemplateError is returned when a template references parameters that have
// no bound value. It reports the full set of missing names, not just the
// first, so a caller can fix a request in one round trip.
type TemplateError struct {
	// Context names the template's owner (task or file alias).
	Context string

	// Missing lists the unbound parameter names, sorted.
	Missing []string
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("in %s, missing parameters: %s",
		e.Context, strings.Join(e.Missing, " "))
}

// TemplateParams returns the sorted, deduplicated parameter names referenced
// by the template.
func TemplateParams(tmpl string) []string {
	seen := make(map[string]bool)
	for _, m := range paramPattern.FindAllStringSubmatch(tmpl, -1) {
		seen[m[1]] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExpandTemplate substitutes bound parameter values into a template's {name}
// placeholders and returns the fully resolved string.
//
// Pure function: no I/O, no side effects. Used for both file-path templates
// and command templates. If any placeholder has no binding, returns a
// TemplateError listing every missing name and the context.
func ExpandTemplate(context, tmpl string, binding Binding) (string, error) {
	var missing []string
	expanded := paramPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[1 : len(m)-1]
		value, ok := binding[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return value
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &TemplateError{Context: context, Missing: dedupSorted(missing)}
	}
	return expanded, nil
}

// dedupSorted removes adjacent duplicates from a sorted slice. A placeholder
// repeated in one template should be reported once.
func dedupSorted(names []string) []string {
	out := names[:0]
	for i, n := range names {
		if i == 0 || names[i-1] != n {
			out = append(out, n)
		}
	}
	return out
}
