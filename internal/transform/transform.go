// Package transform holds the named string transforms that pattern files may
// reference. The registry is static: names are validated at config-load time,
// so an unknown transform fails before any page is processed.
package transform

import (
	"sort"
	"strings"
)

// Func is a pure string-to-string transform.
type Func func(string) string

var registry = map[string]Func{
	"strip": strings.TrimSpace,
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
}

// Lookup returns the transform registered under name.
func Lookup(name string) (Func, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Names returns all registered transform names, sorted, so error messages
// listing them are deterministic.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Apply chains fns over value left to right. An empty chain is the identity.
func Apply(value string, fns []Func) string {
	for _, fn := range fns {
		value = fn(value)
	}
	return value
}
