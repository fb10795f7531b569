// Package segment splits classified documents into sections and packs them
// into token-bounded fragments with trailing-token overlap.
package segment

import (
	"regexp"
	"strings"

	"github.com/muniqa/ingest/classify"
)

// Section is a coarse structural unit produced by the segmenter and
// consumed immediately by the packer.
type Section struct {
	Title   string
	Number  string // leading numeric label, e.g. "5.2", when present
	Content string
}

var (
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
	sectionNumRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(.*)$`)
	blankSplitRe = regexp.MustCompile(`\n\s*\n`)
	tableLineRe  = regexp.MustCompile(`^\s*\|.*\|\s*$`)
)

// Sections partitions a document's text according to the break strategy.
//
// headings: split at markdown ATX heading lines, capturing the heading
// title and an optional leading numeric label; text before the first
// heading becomes an "Introduction" section. A document with no headings
// falls back to blank-line-delimited paragraphs.
//
// table_atomic: the text is partitioned into alternating prose and table
// pieces; a table region is never separated from itself.
func Sections(text string, strategy classify.BreakStrategy) []Section {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strategy == classify.BreakTableAtomic {
		return tableAtomicSections(text)
	}
	return headingSections(text)
}

func headingSections(text string) []Section {
	lines := strings.Split(text, "\n")

	var sections []Section
	current := Section{Title: "Introduction"}
	var body strings.Builder
	sawHeading := false

	flush := func() {
		content := strings.TrimSpace(body.String())
		if content != "" {
			current.Content = content
			sections = append(sections, current)
		}
		body.Reset()
	}

	for _, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			sawHeading = true
			title := m[2]
			number := ""
			if nm := sectionNumRe.FindStringSubmatch(title); nm != nil {
				number = nm[1]
				title = strings.TrimSpace(nm[2])
			}
			current = Section{Title: title, Number: number}
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()

	if !sawHeading {
		return paragraphSections(text)
	}
	return sections
}

// paragraphSections is the fallback for heading-free documents: each
// blank-line-delimited paragraph becomes its own section.
func paragraphSections(text string) []Section {
	var sections []Section
	for _, p := range blankSplitRe.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			sections = append(sections, Section{Content: p})
		}
	}
	return sections
}

// tableAtomicSections alternates prose and table pieces. Consecutive
// markdown table lines (plus immediately adjacent blank lines inside the
// run) form one atomic piece.
func tableAtomicSections(text string) []Section {
	lines := strings.Split(text, "\n")

	var sections []Section
	var buf []string
	inTable := false

	flush := func(table bool) {
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		if content != "" {
			title := ""
			if table {
				title = "Table"
			}
			sections = append(sections, Section{Title: title, Content: content})
		}
		buf = buf[:0]
	}

	for _, line := range lines {
		isTableLine := tableLineRe.MatchString(line)
		switch {
		case isTableLine && !inTable:
			flush(false)
			inTable = true
		case !isTableLine && inTable && strings.TrimSpace(line) != "":
			flush(true)
			inTable = false
		}
		buf = append(buf, line)
	}
	flush(inTable)

	return sections
}
