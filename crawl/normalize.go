package crawl

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize canonicalizes an absolute URL for deduplication: lowercases the
// scheme and host, strips the fragment, and strips a trailing slash from
// non-root paths. Two URLs differing only in those never enter the frontier
// twice.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String(), nil
}

// Resolve makes href absolute against base and normalizes it.
func Resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return Normalize(base.ResolveReference(ref).String())
}

// IsPDF reports whether the URL names a PDF, either by path suffix or by a
// query parameter pointing at one (/download?file=report.pdf).
func IsPDF(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return true
	}
	for _, vals := range u.Query() {
		for _, v := range vals {
			if strings.HasSuffix(strings.ToLower(v), ".pdf") {
				return true
			}
		}
	}
	return false
}

// Host returns the lowercased host of a URL, or "" when unparseable.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
