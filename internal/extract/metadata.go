package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/baxromumarov/jobscout/internal/pattern"
)

// extractMetadata reads every configured field relative to one listing
// element. Field selectors are scoped to the listing, never the whole
// document, so values cannot leak in from sibling listings. A selector
// matching nothing means the field is absent; the first match wins when a
// selector matches more than one node. Values that are empty after
// transforms are treated as absent.
func extractMetadata(listing *goquery.Selection, fields []pattern.Field) map[string]string {
	meta := make(map[string]string, len(fields))
	for i := range fields {
		field := &fields[i]

		match := listing.FindMatcher(field.Matcher).First()
		if match.Length() == 0 {
			continue
		}
		value, ok := readValue(match, field.Attribute)
		if !ok {
			continue
		}
		value = field.Apply(value)
		if value == "" {
			continue
		}
		meta[field.Name] = value
	}
	return meta
}
