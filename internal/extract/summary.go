package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// summaryRowMarker identifies the styled rows of the CRM's rendered case
// summary. The export renders each field as a padded div.
const summaryRowMarker = "padding-left: 5px;"

// ParseSummaryHTML extracts key/value pairs from the CRM's HTML case
// summary. A fragment with no markup is treated as a single opaque value
// under the "Summary" key. Otherwise, the text of every div whose style
// contains the row marker is split on the first colon; the literal token
// "strong" is scrubbed from keys (an artifact of the upstream HTML cleanup)
// and both sides are trimmed.
func ParseSummaryHTML(fragment string) map[string]string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}
	if !strings.Contains(fragment, "<") {
		return map[string]string{"Summary": strings.TrimSpace(fragment)}
	}

	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		// html.Parse almost never fails on real-world fragments; treat a
		// failure like markup-free input rather than losing the blob.
		return map[string]string{"Summary": strings.TrimSpace(fragment)}
	}

	data := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && styleMatches(n) {
			text := collapsedText(n)
			if key, value, found := strings.Cut(text, ":"); found {
				key = strings.TrimSpace(strings.ReplaceAll(key, "strong", ""))
				if key != "" {
					data[key] = strings.TrimSpace(value)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return data
}

func styleMatches(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key == "style" && strings.Contains(attr.Val, summaryRowMarker) {
			return true
		}
	}
	return false
}

// collapsedText concatenates the trimmed text of all descendants, matching
// the whitespace-stripping extraction the upstream consumer applied.
func collapsedText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
