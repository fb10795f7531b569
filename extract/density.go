package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// isolateContent returns the DOM subtree most likely to hold the page's
// article content. Semantic landmarks (<main>, <article>, role="main") win
// when present; otherwise the densest content subtree under <body> is
// selected by text-to-markup ratio, penalizing link-heavy regions.
// Returns nil when the page has no usable region at all.
func isolateContent(doc *html.Node) *html.Node {
	if n := findLandmark(doc); n != nil {
		return n
	}

	body := findBody(doc)
	if body == nil {
		return nil
	}
	if best := densestNode(body); best != nil {
		return best
	}
	return body
}

// findLandmark returns the first <main>, <article>, or role="main" element.
func findLandmark(doc *html.Node) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Main || n.DataAtom == atom.Article {
				found = n
				return
			}
			if attrVal(n, "role") == "main" {
				found = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

// densestNode scores candidate subtrees and returns the best one.
func densestNode(body *html.Node) *html.Node {
	const minRegionText = 80

	var best *html.Node
	var bestScore float64

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type != html.ElementNode || isChrome(n) {
			return
		}
		if containerTag(n.DataAtom) {
			text := collectText(n)
			if len(text) >= minRegionText {
				markup := len(renderNode(n))
				if markup == 0 {
					markup = 1
				}
				linkRatio := float64(len(linkText(n))) / float64(len(text))
				if linkRatio <= 0.5 {
					score := float64(len(text)) / float64(markup) * lengthScale(len(text)) * (1 - linkRatio)
					if score > bestScore {
						bestScore = score
						best = n
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return best
}

// lengthScale rewards longer regions on a rough log scale so a dense but
// tiny widget never beats the article body.
func lengthScale(n int) float64 {
	scale := 1.0
	for n > 100 {
		scale++
		n /= 2
	}
	return scale
}

// linkText returns text that sits inside anchor elements.
func linkText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, inLink bool) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			inLink = true
		}
		if n.Type == html.TextNode && inLink {
			sb.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inLink)
		}
	}
	walk(n, false)
	return sb.String()
}

// containerTag reports whether a is a block container worth scoring.
func containerTag(a atom.Atom) bool {
	switch a {
	case atom.Div, atom.Section, atom.Td, atom.Body:
		return true
	}
	return false
}

// chromeMarkers are class/id fragments that identify site chrome.
var chromeMarkers = []string{
	"sidebar", "footer", "header", "nav", "menu", "breadcrumb",
	"cookie", "banner", "advert", "social", "share", "widget",
	"popup", "modal", "carousel", "slideshow",
}

// isChrome reports whether a node is navigation or other site chrome.
func isChrome(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Nav, atom.Footer, atom.Header, atom.Aside,
		atom.Script, atom.Style, atom.Noscript:
		return true
	}
	switch attrVal(n, "role") {
	case "navigation", "banner", "contentinfo", "complementary":
		return true
	}
	for _, key := range []string{"class", "id"} {
		val := strings.ToLower(attrVal(n, key))
		for _, marker := range chromeMarkers {
			if strings.Contains(val, marker) {
				return true
			}
		}
	}
	return false
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findBody returns the <body> element.
func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return body
}
