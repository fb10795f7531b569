package segment

import (
	"regexp"
	"strings"

	"github.com/muniqa/ingest/token"
)

// The embedding model's input ceiling, with headroom for the metadata the
// storage collaborator prepends. HardTokenLimit is the invariant every
// emitted fragment must satisfy regardless of per-type configuration.
const (
	EmbedTokenLimit = 8192
	ceilingHeadroom = 192
	HardTokenLimit  = EmbedTokenLimit - ceilingHeadroom

	// ceilingOverlap keeps a little continuity across forced splits.
	ceilingOverlap = 64
)

// sentenceEndRe finds sentence boundaries: terminal punctuation, optional
// closing quote/bracket, then whitespace.
var sentenceEndRe = regexp.MustCompile(`[.!?][)"'\]]?\s+`)

// EnforceCeiling is the last-resort splitter. Fragments within
// HardTokenLimit pass through untouched; oversized ones are split by an
// explicit work stack that tries paragraph breaks, then line breaks, then
// sentence boundaries, re-packing greedily with overlap at each level, and
// finally hard-splits on raw token boundaries. It never fails and always
// terminates.
func EnforceCeiling(frags []Fragment, tok token.Tokenizer) []Fragment {
	var out []Fragment
	for _, f := range frags {
		if f.TokenCount <= HardTokenLimit {
			out = append(out, f)
			continue
		}
		for _, text := range splitOversized(f.Text, tok) {
			out = append(out, Fragment{
				Text:          text,
				SectionTitle:  f.SectionTitle,
				SectionNumber: f.SectionNumber,
				TokenCount:    tok.Count(text),
			})
		}
	}
	return out
}

// splitTask is one pending unit of work for the splitter stack.
type splitTask struct {
	text  string
	level int
}

// splitOversized breaks text into pieces of at most HardTokenLimit tokens.
// The work stack replaces recursion so pathological inputs cannot grow the
// call stack; pieces are pushed in reverse so document order is preserved.
func splitOversized(text string, tok token.Tokenizer) []string {
	var out []string
	stack := []splitTask{{text: text, level: 0}}

	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if tok.Count(task.text) <= HardTokenLimit {
			out = append(out, task.text)
			continue
		}

		if task.level >= len(splitLevels) {
			out = append(out, hardSplit(task.text, tok)...)
			continue
		}

		lv := splitLevels[task.level]
		pieces := lv.split(task.text)
		if len(pieces) <= 1 {
			// Delimiter made no progress; try the next one.
			stack = append(stack, splitTask{text: task.text, level: task.level + 1})
			continue
		}

		packed := packPieces(pieces, lv.sep, HardTokenLimit, ceilingOverlap, tok)
		for i := len(packed) - 1; i >= 0; i-- {
			stack = append(stack, splitTask{text: packed[i], level: task.level + 1})
		}
	}
	return out
}

type splitLevel struct {
	sep   string
	split func(string) []string
}

var splitLevels = []splitLevel{
	{sep: "\n\n", split: func(s string) []string { return dropEmpty(blankSplitRe.Split(s, -1)) }},
	{sep: "\n", split: func(s string) []string { return dropEmpty(strings.Split(s, "\n")) }},
	{sep: " ", split: splitSentences},
}

func dropEmpty(pieces []string) []string {
	var out []string
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences cuts text after terminal punctuation followed by
// whitespace, keeping the punctuation with the preceding sentence.
func splitSentences(text string) []string {
	locs := sentenceEndRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	var out []string
	start := 0
	for _, loc := range locs {
		out = append(out, strings.TrimSpace(text[start:loc[1]]))
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return dropEmpty(out)
}

// hardSplit slices on raw token boundaries. Terminal fallback: guaranteed
// to produce pieces within the limit for any input.
func hardSplit(text string, tok token.Tokenizer) []string {
	tokens := tok.Encode(text)
	var out []string
	for start := 0; start < len(tokens); start += HardTokenLimit {
		end := start + HardTokenLimit
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, tok.Decode(tokens[start:end]))
	}
	return out
}
