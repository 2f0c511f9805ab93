package pattern

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"

	"github.com/baxromumarov/jobscout/internal/transform"
)

const (
	defaultURLAttribute   = "href"
	defaultFieldAttribute = "text"
	defaultPageParam      = "page"
)

var attrSuffixPattern = regexp.MustCompile(`::attr\(([^)]+)\)$`)

// splitSuffix splits an extraction suffix off a selector: "::text" selects
// the element's text content, "::attr(name)" a DOM attribute. CSS matchers
// don't know these pseudo-elements, so they are peeled off before
// compilation and folded into the attribute instead.
func splitSuffix(sel string) (css, attribute string) {
	if css, ok := strings.CutSuffix(sel, "::text"); ok {
		return css, defaultFieldAttribute
	}
	if m := attrSuffixPattern.FindStringSubmatch(sel); m != nil {
		return strings.TrimSuffix(sel, m[0]), m[1]
	}
	return sel, ""
}

// mergeAttribute reconciles an explicit attribute key with one carried by a
// selector suffix. Having both is fine when they agree.
func mergeAttribute(explicit, fromSuffix, path string) (string, error) {
	if explicit != "" && fromSuffix != "" && explicit != fromSuffix {
		return "", configErrorf(path, "selector suffix selects %q but attribute is %q", fromSuffix, explicit)
	}
	if explicit != "" {
		return explicit, nil
	}
	return fromSuffix, nil
}

// Raw YAML shapes. These mirror the on-disk schema; Load normalizes them
// into the compiled Config.

type rawConfig struct {
	CompanyName   string         `yaml:"company_name"`
	WaitFor       *rawWait       `yaml:"wait_for"`
	Selectors     []rawRule      `yaml:"job_url_selectors"`
	FilterJobURLs *bool          `yaml:"filter_non_job_urls"`
	URLValidation *rawValidation `yaml:"url_validation"`
	Pagination    rawPagination  `yaml:"pagination"`
}

type rawWait struct {
	Type  string    `yaml:"type"`
	Value yaml.Node `yaml:"value"`
}

type rawRule struct {
	Selector  string              `yaml:"selector"`
	Attribute string              `yaml:"attribute"`
	Metadata  map[string]rawField `yaml:"metadata"`
}

// rawField accepts the two field-spec shapes: a bare selector string, or a
// structured record with selector/attribute/transform. transform itself may
// be a single name or a list. Selectors in either shape may carry a "::text"
// or "::attr(name)" suffix instead of an attribute key.
type rawField struct {
	Selector   string
	Attribute  string
	Transforms []string
}

func (f *rawField) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&f.Selector)
	}

	var structured struct {
		Selector  string    `yaml:"selector"`
		Attribute string    `yaml:"attribute"`
		Transform yaml.Node `yaml:"transform"`
	}
	if err := node.Decode(&structured); err != nil {
		return fmt.Errorf("field spec must be a selector string or a {selector, attribute, transform} record: %w", err)
	}
	f.Selector = structured.Selector
	f.Attribute = structured.Attribute

	switch structured.Transform.Kind {
	case 0: // absent
	case yaml.ScalarNode:
		var name string
		if err := structured.Transform.Decode(&name); err != nil {
			return err
		}
		if name != "" {
			f.Transforms = []string{name}
		}
	case yaml.SequenceNode:
		if err := structured.Transform.Decode(&f.Transforms); err != nil {
			return err
		}
	default:
		return errors.New("transform must be a name or a list of names")
	}
	return nil
}

type rawValidation struct {
	ValidPattern    string   `yaml:"valid_pattern"`
	InvalidPatterns []string `yaml:"invalid_patterns"`
}

type rawPagination struct {
	Enabled   bool   `yaml:"enabled"`
	PageParam string `yaml:"page_param"`
	MaxPages  int    `yaml:"max_pages"`
}

// Load reads, parses, and fully validates a pattern file. Any returned error
// is a *ConfigError (possibly wrapping a YAML error) except for I/O failures.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pattern file: %w", err)
	}
	defer file.Close()

	var raw rawConfig
	if err := yaml.NewDecoder(file).Decode(&raw); err != nil {
		return nil, &ConfigError{Field: path, Err: fmt.Errorf("parse yaml: %w", err)}
	}
	return raw.normalize()
}

// Parse is Load for in-memory YAML. Used by tests and embedded configs.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Field: "pattern", Err: fmt.Errorf("parse yaml: %w", err)}
	}
	return raw.normalize()
}

func (raw *rawConfig) normalize() (*Config, error) {
	cfg := &Config{
		CompanyName: raw.CompanyName,
		WaitFor:     WaitCondition{Type: WaitNone},
	}

	if raw.WaitFor != nil {
		wait, err := raw.WaitFor.normalize()
		if err != nil {
			return nil, err
		}
		cfg.WaitFor = wait
	}

	if len(raw.Selectors) == 0 {
		return nil, configErrorf("job_url_selectors", "at least one selector rule is required")
	}
	for i, rr := range raw.Selectors {
		rule, err := rr.normalize(fmt.Sprintf("job_url_selectors[%d]", i))
		if err != nil {
			return nil, err
		}
		cfg.Rules = append(cfg.Rules, rule)
	}

	// Job-URL filtering defaults on, matching the heuristics the crawler has
	// always applied; patterns targeting unusual URL schemes can disable it.
	cfg.FilterURLs = raw.FilterJobURLs == nil || *raw.FilterJobURLs

	if raw.URLValidation != nil {
		validation, err := raw.URLValidation.normalize()
		if err != nil {
			return nil, err
		}
		cfg.Validation = validation
	}

	cfg.Pagination = Pagination{
		Enabled:   raw.Pagination.Enabled,
		PageParam: raw.Pagination.PageParam,
		MaxPages:  raw.Pagination.MaxPages,
	}
	if cfg.Pagination.PageParam == "" {
		cfg.Pagination.PageParam = defaultPageParam
	}
	if cfg.Pagination.Enabled && cfg.Pagination.MaxPages <= 0 {
		return nil, configErrorf("pagination.max_pages", "must be > 0 when pagination is enabled")
	}

	return cfg, nil
}

func (w *rawWait) normalize() (WaitCondition, error) {
	switch w.Type {
	case WaitSelector:
		var sel string
		if err := w.Value.Decode(&sel); err != nil || sel == "" {
			return WaitCondition{}, configErrorf("wait_for.value", "selector wait requires a non-empty selector string")
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return WaitCondition{}, configErrorf("wait_for.value", "invalid selector %q: %v", sel, err)
		}
		return WaitCondition{Type: WaitSelector, Selector: sel}, nil
	case WaitTimeout:
		var ms int
		if err := w.Value.Decode(&ms); err != nil || ms <= 0 {
			return WaitCondition{}, configErrorf("wait_for.value", "timeout wait requires a positive integer of milliseconds")
		}
		return WaitCondition{Type: WaitTimeout, Timeout: time.Duration(ms) * time.Millisecond}, nil
	case "", WaitNone:
		return WaitCondition{Type: WaitNone}, nil
	default:
		return WaitCondition{}, configErrorf("wait_for.type", "unknown wait type %q (want %q or %q)", w.Type, WaitSelector, WaitTimeout)
	}
}

func (rr *rawRule) normalize(path string) (Rule, error) {
	if rr.Selector == "" {
		return Rule{}, configErrorf(path+".selector", "selector is required")
	}
	css, suffixAttr := splitSuffix(rr.Selector)
	matcher, err := cascadia.Compile(css)
	if err != nil {
		return Rule{}, configErrorf(path+".selector", "invalid selector %q: %v", css, err)
	}
	attribute, err := mergeAttribute(rr.Attribute, suffixAttr, path+".selector")
	if err != nil {
		return Rule{}, err
	}

	rule := Rule{
		Selector:  css,
		Attribute: attribute,
		Matcher:   matcher,
	}
	if rule.Attribute == "" {
		rule.Attribute = defaultURLAttribute
	}

	names := make([]string, 0, len(rr.Metadata))
	for name := range rr.Metadata {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field, err := rr.Metadata[name].normalize(name, fmt.Sprintf("%s.metadata.%s", path, name))
		if err != nil {
			return Rule{}, err
		}
		rule.Fields = append(rule.Fields, field)
	}
	return rule, nil
}

func (rf rawField) normalize(name, path string) (Field, error) {
	if rf.Selector == "" {
		return Field{}, configErrorf(path, "selector is required")
	}
	css, suffixAttr := splitSuffix(rf.Selector)
	matcher, err := cascadia.Compile(css)
	if err != nil {
		return Field{}, configErrorf(path, "invalid selector %q: %v", css, err)
	}
	attribute, err := mergeAttribute(rf.Attribute, suffixAttr, path)
	if err != nil {
		return Field{}, err
	}

	field := Field{
		Name:           name,
		Selector:       css,
		Attribute:      attribute,
		TransformNames: rf.Transforms,
		Matcher:        matcher,
	}
	if field.Attribute == "" {
		field.Attribute = defaultFieldAttribute
	}

	for _, tname := range rf.Transforms {
		fn, ok := transform.Lookup(tname)
		if !ok {
			return Field{}, configErrorf(path+".transform", "unknown transform %q (known: %v)", tname, transform.Names())
		}
		field.transforms = append(field.transforms, fn)
	}
	return field, nil
}

func (rv *rawValidation) normalize() (*URLValidation, error) {
	out := &URLValidation{}
	if rv.ValidPattern != "" {
		re, err := regexp.Compile(rv.ValidPattern)
		if err != nil {
			return nil, configErrorf("url_validation.valid_pattern", "invalid regex: %v", err)
		}
		out.ValidPattern = re
	}
	for i, p := range rv.InvalidPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, configErrorf(fmt.Sprintf("url_validation.invalid_patterns[%d]", i), "invalid regex: %v", err)
		}
		out.InvalidPatterns = append(out.InvalidPatterns, re)
	}
	return out, nil
}
