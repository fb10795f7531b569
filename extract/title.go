package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// titleSuffixes strip the site-name and CMS decorations municipal CMSes
// append to every <title>. Ordered; each applies at most once per pass.
var titleSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*[|\x{2013}\x{2014}-]\s*(town|city|village|borough|county) of [^|]+$`),
	regexp.MustCompile(`(?i)\s*[|\x{2013}\x{2014}-]\s*official (web)?site.*$`),
	regexp.MustCompile(`(?i)\s*[|\x{2013}\x{2014}-]\s*[A-Za-z .']+,\s*(MA|NH|VT|CT|RI|ME|NY)\s*$`),
	regexp.MustCompile(`(?i)\s*[|\x{2013}\x{2014}-]\s*(home|welcome)\s*$`),
	regexp.MustCompile(`(?i)\s*\((civicplus|granicus|revize)\)\s*$`),
}

// CleanTitle strips site-name/CMS suffixes from a page title. When the
// cleaned title is empty, it falls back to a humanized form of the URL's
// last path segment.
func CleanTitle(title, pageURL string) string {
	title = strings.TrimSpace(title)
	for _, pat := range titleSuffixes {
		title = pat.ReplaceAllString(title, "")
	}
	title = strings.TrimSpace(title)
	if title != "" {
		return title
	}
	return humanizePathSegment(pageURL)
}

// humanizePathSegment turns the last URL path segment into a readable
// title: "building-permit_faq" → "Building Permit Faq".
func humanizePathSegment(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Hostname()
	}
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	// Drop a file extension if present.
	if dot := strings.LastIndexByte(last, '.'); dot > 0 {
		last = last[:dot]
	}

	words := strings.FieldsFunc(last, func(r rune) bool {
		return r == '-' || r == '_' || r == '+'
	})
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
