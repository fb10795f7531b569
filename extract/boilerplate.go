package extract

import (
	"regexp"
	"strings"
)

// boilerplateRule pairs a removal pattern with a label for debugging.
// The table is ordered and processed uniformly top to bottom; keep it a
// flat declarative list.
type boilerplateRule struct {
	pattern *regexp.Regexp
	label   string
}

// boilerplateTable strips the site-chrome debris that survives content
// isolation on CMS-generated municipal sites. Applying the table to
// already-cleaned text is a no-op.
var boilerplateTable = []boilerplateRule{
	{regexp.MustCompile(`(?mi)^\s*loading\s*(\.\.\.|…)?\s*$`), "loading placeholder"},
	{regexp.MustCompile(`(?mi)^\s*please wait\s*(\.\.\.|…)?\s*$`), "loading placeholder"},
	{regexp.MustCompile(`(?mi)^\s*\[?skip to (main )?content\]?.*$`), "skip-navigation link"},
	{regexp.MustCompile(`(?mi)^\s*skip to (navigation|footer).*$`), "skip-navigation link"},
	{regexp.MustCompile(`(?mi)^\s*-{3,}\s*$`), "decorative rule"},
	{regexp.MustCompile(`(?mi)^\s*[*=_#]{4,}\s*$`), "decorative banner"},
	{regexp.MustCompile(`(?mi)^\s*(home|you are here)\s*([>»/›]\s*[^>»/›\n]+){2,}\s*$`), "breadcrumb trail"},
	{regexp.MustCompile(`(?mi)^\s*(close|dismiss|×|✕)\s*$`), "modal leftover"},
	{regexp.MustCompile(`(?mi)^\s*a{5,}\s*$`), "font probe"},
	{regexp.MustCompile(`(?mi)^\s*(grid|lorem ipsum dolor)\s*$`), "font probe"},
	{regexp.MustCompile(`(?mi)^\s*(select|choose) (a |your )?language.*$`), "translation widget"},
	{regexp.MustCompile(`(?mi)^\s*powered by google translate.*$`), "translation widget"},
	{regexp.MustCompile(`(?mi)^\s*(previous|next)( slide)?\s*$`), "carousel control"},
	{regexp.MustCompile(`(?mi)^\s*slide \d+( of \d+)?\s*$`), "carousel control"},
	{regexp.MustCompile(`(?mi)^\s*(sign up|subscribe) (for|to) (our |the )?(e-?)?(newsletter|news ?flash|alerts).*$`), "newsletter CTA"},
	{regexp.MustCompile(`(?mi)^\s*!\[\]\([^)]*\)\s*$`), "decorative image"},
	{regexp.MustCompile(`(?mi)^\s*!\[(icon|logo|spacer|decorative|banner)[^\]]*\]\([^)]*\)\s*$`), "decorative image"},
	{regexp.MustCompile(`(?mi)^\s*(website|site) (design|powered) by .*$`), "CMS footer branding"},
	{regexp.MustCompile(`(?mi)^\s*(©|copyright).*(civicplus|granicus|revize|all rights reserved).*$`), "CMS footer branding"},
	{regexp.MustCompile(`(?mi)^\s*government websites by .*$`), "CMS footer branding"},
}

// StripBoilerplate applies the ordered boilerplate table to text.
// Idempotent: stripping already-stripped text changes nothing.
func StripBoilerplate(text string) string {
	for _, rule := range boilerplateTable {
		text = rule.pattern.ReplaceAllString(text, "")
	}
	return text
}

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// CollapseBlankLines reduces runs of three or more newlines to two, so
// paragraph boundaries survive but vertical noise does not.
func CollapseBlankLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return excessBlankLines.ReplaceAllString(text, "\n\n")
}
