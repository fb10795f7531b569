package crawl

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// defaultSkipPatterns filters the frontier noise every municipal CMS
// produces: calendars, login surfaces, search results, and media assets.
var defaultSkipPatterns = []string{
	`/calendar`,
	`/events/\d{4}`,
	`/login`, `/signin`, `/logout`, `/register`, `/account`,
	`/search\b`,
	`[?&]print=`,
	`[?&]share=`,
	`\.(?:jpe?g|png|gif|svg|ico|webp|bmp|tiff?)$`,
	`\.(?:css|js|json|xml|rss)$`,
	`\.(?:mp3|mp4|mov|avi|wmv|wav)$`,
	`\.(?:zip|tar|gz|docx?|xlsx?|pptx?)$`,
}

// Frontier is the breadth-first work queue plus its dedup sets, PDF
// collection, and completed documents. Single-goroutine; the crawler is
// strictly sequential.
type Frontier struct {
	queue   []Task
	queued  map[string]bool
	visited map[string]bool

	pdfs   []string
	pdfSet map[string]bool

	documents    []Document
	pagesFetched int

	maxDepth int
	domains  map[string]bool
	skips    []*regexp.Regexp
}

// NewFrontier builds an empty frontier for cfg. Skip patterns are compiled
// up front; an invalid pattern is a configuration error.
func NewFrontier(cfg Config) (*Frontier, error) {
	f := &Frontier{
		queued:   make(map[string]bool),
		visited:  make(map[string]bool),
		pdfSet:   make(map[string]bool),
		maxDepth: cfg.MaxDepth,
		domains:  make(map[string]bool),
	}
	for _, d := range cfg.AllowedDomains {
		f.domains[strings.ToLower(d)] = true
	}
	for _, p := range append(append([]string{}, defaultSkipPatterns...), cfg.SkipPatterns...) {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile skip pattern %q: %w", p, err)
		}
		f.skips = append(f.skips, re)
	}
	return f, nil
}

// Push enqueues a normalized URL unless it was already visited or queued,
// lies outside the allowed domains, exceeds the depth bound, or matches a
// skip pattern. PDFs are diverted to the PDF list instead of the queue.
func (f *Frontier) Push(normURL string, depth int) {
	if IsPDF(normURL) {
		f.AddPDF(normURL)
		return
	}
	if f.visited[normURL] || f.queued[normURL] {
		return
	}
	if depth > f.maxDepth || !f.allowed(normURL) || f.skip(normURL) {
		return
	}
	f.queued[normURL] = true
	f.queue = append(f.queue, Task{URL: normURL, Depth: depth})
}

// Next pops the oldest task and marks it visited, so a URL is attempted at
// most once per run even when the fetch later fails.
func (f *Frontier) Next() (Task, bool) {
	if len(f.queue) == 0 {
		return Task{}, false
	}
	t := f.queue[0]
	f.queue = f.queue[1:]
	delete(f.queued, t.URL)
	f.visited[t.URL] = true
	return t, true
}

// AddPDF records a PDF URL for the diverted extraction pass. Domain
// filtering still applies; dedup keeps first-seen order.
func (f *Frontier) AddPDF(normURL string) bool {
	if f.pdfSet[normURL] || !f.allowed(normURL) {
		return false
	}
	f.pdfSet[normURL] = true
	f.pdfs = append(f.pdfs, normURL)
	return true
}

// AddDocument appends a completed document.
func (f *Frontier) AddDocument(doc Document) {
	f.documents = append(f.documents, doc)
}

// CountFetch increments the fetched-page counter and reports the total.
func (f *Frontier) CountFetch() int {
	f.pagesFetched++
	return f.pagesFetched
}

// PagesFetched returns the number of pages fetched so far.
func (f *Frontier) PagesFetched() int { return f.pagesFetched }

// Pending reports whether work remains.
func (f *Frontier) Pending() bool { return len(f.queue) > 0 }

// PDFs returns the diverted PDF URLs in discovery order.
func (f *Frontier) PDFs() []string { return f.pdfs }

// Documents returns the completed documents in fetch order.
func (f *Frontier) Documents() []Document { return f.documents }

func (f *Frontier) allowed(normURL string) bool {
	if len(f.domains) == 0 {
		return true
	}
	host := Host(normURL)
	if f.domains[host] {
		return true
	}
	// Subdomains of an allowed domain pass: www.example.gov under example.gov.
	for d := range f.domains {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (f *Frontier) skip(normURL string) bool {
	u, err := url.Parse(normURL)
	if err != nil {
		return true
	}
	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	for _, re := range f.skips {
		if re.MatchString(target) {
			return true
		}
	}
	return false
}

// Snapshot captures the complete frontier state for checkpointing.
func (f *Frontier) Snapshot() *Progress {
	p := &Progress{
		Visited:      make([]string, 0, len(f.visited)),
		Queue:        append([]Task(nil), f.queue...),
		PDFs:         append([]string(nil), f.pdfs...),
		Documents:    append([]Document(nil), f.documents...),
		PagesFetched: f.pagesFetched,
	}
	for u := range f.visited {
		p.Visited = append(p.Visited, u)
	}
	return p
}

// Restore loads a checkpoint snapshot verbatim, replacing any current
// state. The queue order and visited set come back exactly as saved.
func (f *Frontier) Restore(p *Progress) {
	f.queue = append([]Task(nil), p.Queue...)
	f.queued = make(map[string]bool, len(p.Queue))
	for _, t := range p.Queue {
		f.queued[t.URL] = true
	}
	f.visited = make(map[string]bool, len(p.Visited))
	for _, u := range p.Visited {
		f.visited[u] = true
	}
	f.pdfs = append([]string(nil), p.PDFs...)
	f.pdfSet = make(map[string]bool, len(p.PDFs))
	for _, u := range p.PDFs {
		f.pdfSet[u] = true
	}
	f.documents = append([]Document(nil), p.Documents...)
	f.pagesFetched = p.PagesFetched
}
