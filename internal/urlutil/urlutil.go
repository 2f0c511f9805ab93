// Package urlutil canonicalizes job-posting URLs. The canonical form is the
// deduplication key for extracted jobs, so everything here must be
// deterministic: same input, same output, no network.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var staticExtensions = map[string]struct{}{
	".css":   {},
	".gif":   {},
	".ico":   {},
	".jpeg":  {},
	".jpg":   {},
	".js":    {},
	".mp4":   {},
	".pdf":   {},
	".png":   {},
	".svg":   {},
	".woff":  {},
	".woff2": {},
	".zip":   {},
}

// Path fragments that mark a link as something other than a job posting:
// application forms, profile pages, search/filter state.
var excludedFragments = []string{
	"locationpicker",
	"/apply/",
	"/profile/",
	"/search",
	"/filter",
}

// Path fragments that mark a link as a job posting.
var jobFragments = []string{
	"/job/",
	"/jobs/",
	"/career/",
	"/careers/",
	"/position/",
	"/positions/",
	"/opening/",
	"/openings/",
	"/vacancy/",
	"/vacancies/",
	"/details/",
	"/listing/",
}

// Resolve resolves raw against base per standard URL-resolution rules and
// canonicalizes the result: lowercase scheme and host, fragment stripped,
// tracking query parameters removed, remaining parameters sorted. Relative,
// path-relative, and protocol-relative references are all supported.
//
// It fails when the result is not a well-formed absolute http(s) URL; callers
// treat that as a dropped candidate, not a run failure.
func Resolve(raw string, base *url.URL) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("not an http(s) url (scheme %q)", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("missing host")
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawQuery = normalizeQuery(u.RawQuery)
	return u.String(), nil
}

// normalizeQuery strips tracking parameters and sorts the rest so that
// equivalent links compare equal.
func normalizeQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	for key := range values {
		lk := strings.ToLower(key)
		if strings.HasPrefix(lk, "utm_") || lk == "gclid" || lk == "fbclid" {
			delete(values, key)
		}
	}
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	normalized := url.Values{}
	for _, k := range keys {
		normalized[k] = values[k]
	}
	return normalized.Encode()
}

// IsJobURL reports whether an absolute URL plausibly points at a job posting
// rather than an asset, an application form, or search chrome.
func IsJobURL(raw string) bool {
	lower := strings.ToLower(raw)

	u, err := url.Parse(lower)
	if err != nil {
		return false
	}
	if isStaticAssetPath(u.Path) {
		return false
	}
	for _, frag := range excludedFragments {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	for _, frag := range jobFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	// Plain ".../jobs" without a trailing slash is not caught by the
	// fragment list above.
	switch strings.Trim(path.Base(u.Path), "/") {
	case "jobs", "careers", "openings", "positions", "vacancies":
		return true
	}
	return false
}

func isStaticAssetPath(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	_, ok := staticExtensions[ext]
	return ok
}

// TitleFromSlug converts a URL path slug like "senior-go-engineer" into a
// display title, "Senior Go Engineer".
func TitleFromSlug(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ""
	}
	slug = strings.ReplaceAll(slug, "-", " ")
	slug = strings.ReplaceAll(slug, "_", " ")
	return cases.Title(language.Und).String(slug)
}
