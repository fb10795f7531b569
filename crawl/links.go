package crawl

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Links holds the outbound URLs discovered on one page, split into
// follow-up pages and PDF downloads, normalized and deduplicated in
// document order.
type Links struct {
	Pages []string
	PDFs  []string
}

// Discover parses rawHTML and collects every anchor href resolved against
// pageURL. Non-navigable schemes (mailto, tel, javascript) and unparseable
// hrefs are dropped silently.
func Discover(pageURL string, rawHTML []byte) (*Links, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := make(map[string]bool)
	links := &Links{}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || skipScheme(href) {
			return
		}
		abs, err := Resolve(base, href)
		if err != nil || seen[abs] {
			return
		}
		seen[abs] = true
		if IsPDF(abs) {
			links.PDFs = append(links.PDFs, abs)
		} else {
			links.Pages = append(links.Pages, abs)
		}
	})
	return links, nil
}

func skipScheme(href string) bool {
	lower := strings.ToLower(href)
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:", "#"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
