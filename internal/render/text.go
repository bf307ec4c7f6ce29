package render

import (
	"strings"

	"golang.org/x/net/html"
)

// DecodeHTML returns the text content of an HTML fragment. Diagram source
// embedded in rendered markdown arrives entity-escaped; parsing never runs
// scripts, it only yields text.
func DecodeHTML(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return html.UnescapeString(fragment)
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
