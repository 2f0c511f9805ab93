// Package pattern defines the declarative extraction config that drives the
// engine: which elements on a career page are job links, how to read their
// metadata, and how the fetch layer should wait for the page to be ready.
//
// A pattern file is parsed once per run and normalized eagerly: selectors are
// compiled, transform names resolved, and field-spec shorthand expanded, so a
// broken pattern fails before any page is fetched instead of producing an
// empty result that looks like "no jobs found".
package pattern

import (
	"fmt"
	"regexp"
	"time"

	"github.com/andybalholm/cascadia"

	"github.com/baxromumarov/jobscout/internal/transform"
)

// Wait condition types understood by the fetch layer. The engine owns this
// vocabulary; the renderer executes it.
const (
	WaitNone     = "none"
	WaitSelector = "selector"
	WaitTimeout  = "timeout"
)

// WaitCondition tells the fetch layer when a rendered page is ready.
type WaitCondition struct {
	Type     string
	Selector string        // set when Type == WaitSelector
	Timeout  time.Duration // set when Type == WaitTimeout
}

// Config is a fully validated extraction config. Immutable after Load; safe
// to share across concurrent extraction calls.
type Config struct {
	CompanyName string
	WaitFor     WaitCondition
	Rules       []Rule
	FilterURLs  bool // apply the job-URL heuristics from urlutil
	Validation  *URLValidation
	Pagination  Pagination
}

// Rule identifies job-link elements and the metadata readable around them.
type Rule struct {
	Selector  string
	Attribute string // source of the job URL, default "href"
	Matcher   cascadia.Selector
	Fields    []Field // sorted by name
}

// Field is one metadata field, with its selector compiled and its transform
// chain resolved. Both config shapes (bare selector string and structured
// record) normalize into this form.
type Field struct {
	Name           string
	Selector       string
	Attribute      string // "text" or a DOM attribute name, default "text"
	TransformNames []string
	Matcher        cascadia.Selector

	transforms []transform.Func
}

// Apply runs the field's transform chain over value.
func (f *Field) Apply(value string) string {
	return transform.Apply(value, f.transforms)
}

// URLValidation holds the optional post-extraction URL rules from the
// pattern file's url_validation section.
type URLValidation struct {
	ValidPattern    *regexp.Regexp
	InvalidPatterns []*regexp.Regexp
}

// Pagination configures the crawler driver. The engine itself is single-page.
type Pagination struct {
	Enabled   bool
	PageParam string // query parameter carrying the page number, default "page"
	MaxPages  int
}

// ConfigError reports a malformed or incomplete pattern file. Field is the
// path of the offending key, e.g. "job_url_selectors[1].metadata.title".
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pattern config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}
