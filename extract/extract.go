// Package extract turns raw CMS-generated HTML into clean markdown text.
//
// The pipeline: parse → capture <title> → isolate the main content region
// (semantic landmarks first, text-density scoring as fallback) → sanitize →
// convert to markdown with table preservation → strip site-chrome
// boilerplate via an ordered pattern table → normalize blank lines.
package extract

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrContentTooShort marks pages whose extracted text falls below the
// configured minimum. The caller still marks the page visited and mines it
// for links, but nothing is stored.
var ErrContentTooShort = errors.New("extracted content below minimum length")

// Result is the output of content extraction.
type Result struct {
	Text      string // cleaned markdown text
	Title     string // cleaned page title
	Hash      string // SHA-256 hex of Text
	SizeBytes int    // len(Text)
}

// Options controls extraction behavior.
type Options struct {
	// SourceURL of the page; used for title fallback and to resolve
	// relative links during markdown conversion.
	SourceURL string
	// MinTextLen is the minimum accepted text length. Default: 100.
	MinTextLen int
}

func (o *Options) defaults() {
	if o.MinTextLen <= 0 {
		o.MinTextLen = 100
	}
}

// Extractor converts raw HTML pages to markdown text. Safe to reuse
// across pages within a run.
type Extractor struct {
	opts      Options
	sanitizer *bluemonday.Policy
	md        *converter.Converter
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	opts.defaults()
	return &Extractor{
		opts:      opts,
		sanitizer: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Extract runs the extraction pipeline on one page.
func (e *Extractor) Extract(rawHTML []byte, pageURL string) (*Result, error) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	// Capture the raw <title> before any region selection discards <head>.
	rawTitle := findTitle(doc)

	region := isolateContent(doc)
	if region == nil {
		return nil, ErrContentTooShort
	}

	regionHTML := e.sanitizer.Sanitize(renderNode(region))

	text, err := e.md.ConvertString(regionHTML, converter.WithDomain(pageURL))
	if err != nil || strings.TrimSpace(text) == "" {
		// Converter choked on CMS markup; fall back to plain text.
		text = collectText(region)
	}

	text = StripBoilerplate(text)
	text = CollapseBlankLines(text)
	text = strings.TrimSpace(text)

	if len(text) < e.opts.MinTextLen {
		return nil, ErrContentTooShort
	}

	return &Result{
		Text:      text,
		Title:     CleanTitle(rawTitle, pageURL),
		Hash:      hashText(text),
		SizeBytes: len(text),
	}, nil
}

// findTitle returns the first <title> text in the document.
func findTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			if n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

// hashText returns the SHA-256 hex digest of text.
func hashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}

// renderNode serializes a node subtree back to HTML.
func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}

// collectText extracts visible text from a subtree, skipping script-like
// elements.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
