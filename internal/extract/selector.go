package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// AttrText is the pseudo-attribute selecting a node's text content instead
// of a DOM attribute.
const AttrText = "text"

// readValue extracts a value from the first node of sel. For AttrText it
// returns the whitespace-normalized text of the node and its descendants;
// for any other name, the raw attribute value. ok is false when the
// attribute is unset (text content is always considered present).
func readValue(sel *goquery.Selection, attribute string) (value string, ok bool) {
	if attribute == AttrText {
		return nodeText(sel), true
	}
	return sel.Attr(attribute)
}

// nodeText concatenates the text of sel's first node and its descendants and
// collapses runs of whitespace into single spaces.
func nodeText(sel *goquery.Selection) string {
	if len(sel.Nodes) == 0 {
		return ""
	}
	var sb strings.Builder
	collectText(sel.Nodes[0], &sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
