package epub

import (
	"strings"

	"golang.org/x/net/html"
)

// extractText flattens an XHTML document to whitespace-joined plain text.
// Head, script, and style subtrees are skipped; only reading content
// contributes.
func extractText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "head" || n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if out.Len() > 0 {
					out.WriteString(" ")
				}
				out.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out.String()
}
